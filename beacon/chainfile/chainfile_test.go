package chainfile_test

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/go-test/deep"

	"github.com/phoreproject/beaconcore/beacon/chainfile"
	"github.com/phoreproject/beaconcore/beacon/config"
	"github.com/phoreproject/beaconcore/chainhash"
	"github.com/phoreproject/beaconcore/primitives"
)

const testChainFile = `{
	"GenesisTime": 1546300800,
	"NetworkID": "regtest",
	"RandaoReveal": "0101010101010101010101010101010101010101010101010101010101010101",
	"InitialValidators": ["aa01"],
	"Validators": [
		{"PubKey": "aa01", "WithdrawalShard": 1, "WithdrawalAddress": "ff", "RandaoCommitment": ""},
		{"PubKey": "aa02", "WithdrawalShard": 2, "WithdrawalAddress": "", "RandaoCommitment": "0202020202020202020202020202020202020202020202020202020202020202"}
	]
}`

func TestReadChainFile(t *testing.T) {
	chainConfig, err := chainfile.ReadChainFile(strings.NewReader(testChainFile))
	if err != nil {
		t.Fatal(err)
	}

	c, err := chainConfig.NetworkConfig()
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(*c, config.RegtestConfig); diff != nil {
		t.Fatal(diff)
	}

	genesis, err := chainConfig.Genesis()
	if err != nil {
		t.Fatal(err)
	}
	if genesis.Time.Unix() != 1546300800 {
		t.Fatalf("unexpected genesis time %s", genesis.Time)
	}
	if genesis.RandaoReveal[0] != 1 || !genesis.MainChainRef.IsZero() {
		t.Fatal("unexpected genesis hashes")
	}
	if diff := deep.Equal(genesis.InitialValidators, []string{"aa01"}); diff != nil {
		t.Fatal(diff)
	}

	registry, err := chainConfig.Registry()
	if err != nil {
		t.Fatal(err)
	}
	validators, err := registry.Query(chainhash.Hash{})
	if err != nil {
		t.Fatal(err)
	}
	if len(validators) != 2 {
		t.Fatalf("expected 2 validators, got %d", len(validators))
	}
	if hex.EncodeToString(validators[1].PubKey) != "aa02" || validators[1].WithdrawalShard != 2 {
		t.Fatal("unexpected validator")
	}
	if validators[1].RandaoCommitment[0] != 2 {
		t.Fatal("unexpected randao commitment")
	}
}

func TestReadChainFile_InvalidHex(t *testing.T) {
	chainConfig, err := chainfile.ReadChainFile(strings.NewReader(`{"Validators": [{"PubKey": "zz"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := chainConfig.Registry(); err == nil {
		t.Fatal("expected invalid public key to fail")
	}

	chainConfig, err = chainfile.ReadChainFile(strings.NewReader(`{"NetworkID": "unknown"}`))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := chainConfig.NetworkConfig(); err == nil {
		t.Fatal("expected unknown network to fail")
	}
}

func TestBlocks_WriteRead(t *testing.T) {
	b1 := &primitives.Block{
		RandaoReveal: chainhash.HashH([]byte("b1")),
		Slot:         1,
	}
	b2 := &primitives.Block{
		ParentHash: b1.Hash(),
		StateRoot:  chainhash.HashH([]byte("state")),
		Slot:       3,
		Attestations: []primitives.AttestationRecord{
			{
				Slot:             1,
				ShardID:          2,
				AttesterBitfield: primitives.NewAttesterBitfield(4, 1, 3),
				AggregateSig:     []byte{1, 2, 3},
			},
		},
	}

	var buf bytes.Buffer
	if err := chainfile.WriteBlocks(&buf, []*primitives.Block{b1, b2}); err != nil {
		t.Fatal(err)
	}

	blocks, err := chainfile.ReadBlocks(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].Hash() != b1.Hash() || blocks[1].Hash() != b2.Hash() {
		t.Fatal("blocks changed when written to a file")
	}

	empty, err := chainfile.ReadBlocks(&bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Fatal("expected no blocks")
	}
}

func TestBlocks_Truncated(t *testing.T) {
	enc, err := (&primitives.Block{Slot: 1, RandaoReveal: chainhash.HashH([]byte("b"))}).Encode()
	if err != nil {
		t.Fatal(err)
	}

	if _, err := chainfile.ReadBlocks(bytes.NewReader(enc[:len(enc)-3])); err == nil {
		t.Fatal("expected truncated block file to fail")
	}
}
