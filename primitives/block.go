package primitives

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/phoreproject/beaconcore/chainhash"
)

// Block represents a single beacon chain block.
type Block struct {
	ParentHash   chainhash.Hash
	RandaoReveal chainhash.Hash
	MainChainRef chainhash.Hash
	StateRoot    chainhash.Hash
	Slot         uint64
	Attestations []AttestationRecord
}

type blockRLP struct {
	ParentHash   chainhash.Hash
	RandaoReveal chainhash.Hash
	MainChainRef chainhash.Hash
	StateRoot    chainhash.Hash
	Slot         uint64
	Attestations rlp.RawValue
}

// GenesisBlock returns the genesis stub. There is no real genesis block in the
// beacon chain, so it has no parent and its hash is the zero hash.
func GenesisBlock() *Block {
	return &Block{}
}

// Encode gets the canonical encoding of the block.
func (b *Block) Encode() ([]byte, error) {
	atts, err := encodeList(b.Attestations)
	if err != nil {
		return nil, err
	}
	return rlp.EncodeToBytes(blockRLP{
		ParentHash:   b.ParentHash,
		RandaoReveal: b.RandaoReveal,
		MainChainRef: b.MainChainRef,
		StateRoot:    b.StateRoot,
		Slot:         b.Slot,
		Attestations: atts,
	})
}

// DecodeBlock decodes a block from its canonical encoding.
func DecodeBlock(data []byte) (*Block, error) {
	var raw blockRLP
	if err := rlp.DecodeBytes(data, &raw); err != nil {
		return nil, err
	}
	atts, err := decodeList[AttestationRecord](raw.Attestations)
	if err != nil {
		return nil, fmt.Errorf("decoding attestations: %v", err)
	}
	return &Block{
		ParentHash:   raw.ParentHash,
		RandaoReveal: raw.RandaoReveal,
		MainChainRef: raw.MainChainRef,
		StateRoot:    raw.StateRoot,
		Slot:         raw.Slot,
		Attestations: atts,
	}, nil
}

// Hash gets the hash of the block. The genesis stub hashes to the zero hash.
func (b *Block) Hash() chainhash.Hash {
	if b.IsGenesis() {
		return chainhash.ZeroHash
	}
	enc, err := b.Encode()
	if err != nil {
		panic(err)
	}
	return chainhash.HashH(enc)
}

// IsGenesis checks if the block is the genesis stub.
func (b *Block) IsGenesis() bool {
	return b.Slot == 0 && b.IsParentEmpty()
}

// IsParentEmpty checks if the block references no parent.
func (b *Block) IsParentEmpty() bool {
	return b.ParentHash.IsZero()
}

// IsParentOf checks if other is a direct child of b.
func (b *Block) IsParentOf(other *Block) bool {
	return b.Hash() == other.ParentHash
}

// Copy returns a deep copy of the block.
func (b *Block) Copy() Block {
	newBlock := *b
	if b.Attestations != nil {
		newBlock.Attestations = make([]AttestationRecord, len(b.Attestations))
		for i := range b.Attestations {
			newBlock.Attestations[i] = b.Attestations[i].Copy()
		}
	}
	return newBlock
}

func (b *Block) String() string {
	if b.IsGenesis() {
		return "#0 (Genesis)"
	}
	return fmt.Sprintf("#%d (%s <~ %s; mainChainRef: %s)", b.Slot, b.Hash().Short(),
		b.ParentHash.Short(), b.MainChainRef.Short())
}
