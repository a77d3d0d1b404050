package beacon_test

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/phoreproject/beaconcore/beacon"
	"github.com/phoreproject/beaconcore/beacon/config"
	"github.com/phoreproject/beaconcore/beacon/internal/util"
	"github.com/phoreproject/beaconcore/chainhash"
	"github.com/phoreproject/beaconcore/primitives"
)

func TestRandao(t *testing.T) {
	randao := beacon.NewRandao(chainhash.HashH([]byte("secret")), 10)

	image := randao.Commitment()
	for i := 0; i < 9; i++ {
		preimage, err := randao.Reveal(image)
		if err != nil {
			t.Fatal(err)
		}
		if chainhash.HashH(preimage[:]) != image {
			t.Fatalf("reveal %d does not hash to its image", i)
		}
		image = preimage
	}

	if image != chainhash.HashH([]byte("secret")) {
		t.Fatal("expected to walk back to the seed")
	}

	if _, err := randao.Reveal(image); errors.Cause(err) != beacon.ErrUnknownRandaoImage {
		t.Fatalf("expected the seed to have no preimage, got %v", err)
	}
	if _, err := randao.Reveal(chainhash.HashH([]byte("other"))); errors.Cause(err) != beacon.ErrUnknownRandaoImage {
		t.Fatalf("expected unknown image error, got %v", err)
	}
}

func TestProposer_CreateBlock(t *testing.T) {
	c := config.RegtestConfig
	state := genesisState(t, &c, 16)
	transition := beacon.NewBlockTransition(&c)

	proposer := beacon.NewProposer(util.RandaoForValidator(3), transition)
	v, _ := state.ValidatorSet.Get(3)

	block, err := proposer.CreateBlock(beacon.ProposalInput{
		Parent:       primitives.GenesisBlock(),
		ParentState:  state,
		MainChainRef: chainhash.HashH([]byte("main chain")),
		Slot:         2,
		Attestations: []primitives.AttestationRecord{attestFully(t, state, &c, 1)},
		PubKey:       v.PubKey,
	})
	if err != nil {
		t.Fatal(err)
	}

	if !block.IsParentEmpty() || block.Slot != 2 {
		t.Fatalf("unexpected block %s", block)
	}

	// one reveal plus one skip off genesis
	twice := chainhash.HashH(block.RandaoReveal[:])
	if chainhash.HashH(twice[:]) != v.RandaoCommitment {
		t.Fatal("randao reveal does not lead back to the commitment")
	}

	expected, err := transition.ApplyBlock(block, state)
	if err != nil {
		t.Fatal(err)
	}
	if block.StateRoot != expected.Hash() {
		t.Fatal("state root was not filled in")
	}
}

func TestProposer_UnknownValidator(t *testing.T) {
	c := config.RegtestConfig
	state := genesisState(t, &c, 4)

	proposer := beacon.NewProposer(util.RandaoForValidator(0), beacon.NewBlockTransition(&c))
	_, err := proposer.CreateBlock(beacon.ProposalInput{
		Parent:      primitives.GenesisBlock(),
		ParentState: state,
		Slot:        1,
		PubKey:      []byte{1, 2, 3},
	})
	if err == nil {
		t.Fatal("expected proposal by unknown validator to fail")
	}
}
