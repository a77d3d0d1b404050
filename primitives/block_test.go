package primitives_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/go-test/deep"
	"github.com/phoreproject/beaconcore/chainhash"
	"github.com/phoreproject/beaconcore/primitives"
)

func testAttestation(slot uint64) primitives.AttestationRecord {
	return primitives.AttestationRecord{
		Slot:               slot,
		ShardID:            3,
		ShardBlockHash:     chainhash.HashH([]byte("shard block")),
		AttesterBitfield:   primitives.NewAttesterBitfield(10, 1, 4),
		JustifiedSlot:      slot - 1,
		JustifiedBlockHash: chainhash.HashH([]byte("justified")),
		AggregateSig:       []byte{1, 2, 3},
	}
}

func TestBlock_EncodeDecode(t *testing.T) {
	b := &primitives.Block{
		ParentHash:   chainhash.HashH([]byte("parent")),
		RandaoReveal: chainhash.HashH([]byte("randao")),
		MainChainRef: chainhash.HashH([]byte("main")),
		StateRoot:    chainhash.HashH([]byte("state")),
		Slot:         300,
		Attestations: []primitives.AttestationRecord{testAttestation(10), testAttestation(11)},
	}

	enc, err := b.Encode()
	if err != nil {
		t.Fatal(err)
	}

	decoded, err := primitives.DecodeBlock(enc)
	if err != nil {
		t.Fatal(err)
	}

	if diff := deep.Equal(b, decoded); diff != nil {
		t.Fatal(diff)
	}

	if decoded.Hash() != b.Hash() {
		t.Fatal("decoded block hash does not match")
	}
}

func TestBlock_EmptyAttestations(t *testing.T) {
	b := &primitives.Block{
		ParentHash: chainhash.HashH([]byte("parent")),
		Slot:       1,
	}

	enc, err := b.Encode()
	if err != nil {
		t.Fatal(err)
	}

	if enc[len(enc)-1] != 0x00 {
		t.Fatalf("expected empty attestation list to be encoded as zero byte, got %x", enc)
	}

	decoded, err := primitives.DecodeBlock(enc)
	if err != nil {
		t.Fatal(err)
	}

	if diff := deep.Equal(b, decoded); diff != nil {
		t.Fatal(diff)
	}
}

type nonCanonicalBlock struct {
	ParentHash   chainhash.Hash
	RandaoReveal chainhash.Hash
	MainChainRef chainhash.Hash
	StateRoot    chainhash.Hash
	Slot         uint64
	Attestations rlp.RawValue
}

func TestBlock_RejectEmptyRLPList(t *testing.T) {
	enc, err := rlp.EncodeToBytes(nonCanonicalBlock{Slot: 1, Attestations: rlp.RawValue{0xc0}})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := primitives.DecodeBlock(enc); err == nil {
		t.Fatal("expected empty RLP list to be rejected")
	}
}

func TestBlock_Genesis(t *testing.T) {
	g := primitives.GenesisBlock()

	if !g.IsGenesis() {
		t.Fatal("genesis stub should be genesis")
	}

	if !g.Hash().IsZero() {
		t.Fatal("genesis stub should hash to zero")
	}

	child := &primitives.Block{ParentHash: g.Hash(), Slot: 1}
	if !g.IsParentOf(child) {
		t.Fatal("genesis should be parent of block referencing zero hash")
	}

	if child.IsGenesis() {
		t.Fatal("block at slot 1 should not be genesis")
	}
}

func TestBlock_HashDependsOnStateRoot(t *testing.T) {
	b := &primitives.Block{ParentHash: chainhash.HashH([]byte("p")), Slot: 5}
	before := b.Hash()

	b.StateRoot = chainhash.HashH([]byte("state"))
	if b.Hash() == before {
		t.Fatal("backfilling state root should change the block hash")
	}
}

func TestBlock_Copy(t *testing.T) {
	b := &primitives.Block{
		Slot:         2,
		Attestations: []primitives.AttestationRecord{testAttestation(1)},
	}

	c := b.Copy()

	c.Slot = 3
	if b.Slot == 3 {
		t.Fatal("mutating slot mutates base")
	}

	c.Attestations[0].AggregateSig[0] = 9
	if b.Attestations[0].AggregateSig[0] == 9 {
		t.Fatal("mutating attestation mutates base")
	}
}
