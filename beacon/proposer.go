package beacon

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/phoreproject/beaconcore/chainhash"
	"github.com/phoreproject/beaconcore/primitives"
)

// ProposalInput is everything needed to build a block on top of a parent.
type ProposalInput struct {
	Parent       *primitives.Block
	ParentState  *primitives.ChainState
	MainChainRef chainhash.Hash
	Slot         uint64
	Attestations []primitives.AttestationRecord
	// Public key of the proposing validator
	PubKey []byte
}

// Proposer creates blocks for a validator.
type Proposer struct {
	randao     *Randao
	transition StateTransition
}

// NewProposer creates a proposer revealing from the given hash chain.
func NewProposer(randao *Randao, transition StateTransition) *Proposer {
	return &Proposer{randao: randao, transition: transition}
}

func (p *Proposer) randaoReveal(state *primitives.ChainState, pubKey []byte, skips uint64) (chainhash.Hash, error) {
	v, found := state.ValidatorSet.GetByPubKey(pubKey)
	if !found {
		return chainhash.Hash{}, errors.New("proposer is not in the validator set")
	}

	preimage, err := p.randao.Reveal(v.RandaoCommitment)
	if err != nil {
		return chainhash.Hash{}, err
	}
	for i := uint64(0); i < skips; i++ {
		preimage, err = p.randao.Reveal(preimage)
		if err != nil {
			return chainhash.Hash{}, err
		}
	}
	return preimage, nil
}

// CreateBlock builds a block on top of the parent and fills in the state
// root by applying it to the parent state.
func (p *Proposer) CreateBlock(in ProposalInput) (*primitives.Block, error) {
	if in.Slot <= in.Parent.Slot {
		return nil, errors.Errorf("cannot propose at slot %d on top of slot %d", in.Slot, in.Parent.Slot)
	}

	randaoSkips := uint64(1)
	if !in.Parent.IsGenesis() {
		randaoSkips = in.Slot - in.Parent.Slot
	}

	reveal, err := p.randaoReveal(in.ParentState, in.PubKey, randaoSkips)
	if err != nil {
		return nil, errors.Wrap(err, "could not reveal randao")
	}

	block := &primitives.Block{
		ParentHash:   in.Parent.Hash(),
		RandaoReveal: reveal,
		MainChainRef: in.MainChainRef,
		Slot:         in.Slot,
		Attestations: in.Attestations,
	}

	newState, err := p.transition.ApplyBlock(block, in.ParentState)
	if err != nil {
		return nil, err
	}
	block.StateRoot = newState.Hash()

	log.WithFields(logrus.Fields{
		"block": block.String(),
	}).Info("created block")

	return block, nil
}
