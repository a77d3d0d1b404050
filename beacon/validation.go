package beacon

import (
	"github.com/sirupsen/logrus"

	"github.com/phoreproject/beaconcore/beacon/config"
	"github.com/phoreproject/beaconcore/beacon/db"
	"github.com/phoreproject/beaconcore/bls"
	"github.com/phoreproject/beaconcore/chainhash"
	"github.com/phoreproject/beaconcore/primitives"
)

// ValidationResult is the outcome of validating a block.
type ValidationResult int

const (
	// Success means the block passed validation.
	Success ValidationResult = iota
	// ValidationNoParent means the parent of the block is unknown.
	ValidationNoParent
	// ValidationExist means the block is already stored.
	ValidationExist
	// ValidationInvalidSlot means the block is not after its parent.
	ValidationInvalidSlot
	// ValidationTooManyAttestations means the block carries more attestations
	// than allowed.
	ValidationTooManyAttestations
	// ValidationInvalidAttestation means an attestation is malformed.
	ValidationInvalidAttestation
	// ValidationConsensusBreak means the state root of the block does not
	// match the state it produces.
	ValidationConsensusBreak
)

func (r ValidationResult) String() string {
	switch r {
	case Success:
		return "Success"
	case ValidationNoParent:
		return "NoParent"
	case ValidationExist:
		return "Exist"
	case ValidationInvalidSlot:
		return "InvalidSlot"
	case ValidationTooManyAttestations:
		return "TooManyAttestations"
	case ValidationInvalidAttestation:
		return "InvalidAttestation"
	case ValidationConsensusBreak:
		return "ConsensusBreak"
	default:
		return "Unknown"
	}
}

// BlockLookup gives access to stored blocks.
type BlockLookup interface {
	Exist(h chainhash.Hash) (bool, error)
	GetByHash(h chainhash.Hash) (*primitives.Block, error)
}

var _ BlockLookup = (*db.BlockStore)(nil)

// BeaconValidator runs the checks that do not need the state after the
// block.
type BeaconValidator struct {
	blocks BlockLookup
	config *config.Config
}

// NewBeaconValidator creates a validator that checks blocks against the
// given block lookup.
func NewBeaconValidator(blocks BlockLookup, c *config.Config) *BeaconValidator {
	return &BeaconValidator{blocks: blocks, config: c}
}

// Validate validates a block before the state transition.
func (v *BeaconValidator) Validate(block *primitives.Block) (ValidationResult, error) {
	exists, err := v.blocks.Exist(block.Hash())
	if err != nil {
		return 0, err
	}
	if exists {
		return ValidationExist, nil
	}

	parent := primitives.GenesisBlock()
	if !block.IsParentEmpty() {
		parent, err = v.blocks.GetByHash(block.ParentHash)
		if err == db.ErrNotFound {
			return ValidationNoParent, nil
		}
		if err != nil {
			return 0, err
		}
	}

	if block.Slot <= parent.Slot {
		return ValidationInvalidSlot, nil
	}

	if len(block.Attestations) > v.config.MaxAttestationCount {
		return ValidationTooManyAttestations, nil
	}

	for i := range block.Attestations {
		if !v.attestationWellFormed(block, &block.Attestations[i]) {
			return ValidationInvalidAttestation, nil
		}
	}

	return Success, nil
}

func (v *BeaconValidator) attestationWellFormed(block *primitives.Block, att *primitives.AttestationRecord) bool {
	if att.ShardID >= v.config.ShardCount {
		return false
	}
	if att.Slot >= block.Slot || att.Slot+v.config.MinAttestationInclusionDelay > block.Slot {
		return false
	}
	if att.JustifiedSlot > att.Slot {
		return false
	}
	if att.VoteCount() == 0 {
		return false
	}
	return bls.IsWellFormed(att.AggregateSig)
}

// ValidateAndLog validates a block and logs the reason it was rejected.
func (v *BeaconValidator) ValidateAndLog(block *primitives.Block) (ValidationResult, error) {
	res, err := v.Validate(block)
	if err == nil && res != Success {
		log.WithFields(logrus.Fields{
			"block":  block.String(),
			"result": res,
		}).Debug("block rejected before state transition")
	}
	return res, err
}

// StateValidator checks the state produced by a block against the state root
// declared in it.
type StateValidator struct{}

// Validate validates a block after the state transition.
func (StateValidator) Validate(block *primitives.Block, state *primitives.ChainState) ValidationResult {
	if state.Hash() != block.StateRoot {
		return ValidationConsensusBreak
	}
	return Success
}

// ValidateAndLog validates the state and logs the reason it was rejected.
func (v StateValidator) ValidateAndLog(block *primitives.Block, state *primitives.ChainState) ValidationResult {
	res := v.Validate(block, state)
	if res != Success {
		log.WithFields(logrus.Fields{
			"block":    block.String(),
			"expected": block.StateRoot.Short(),
			"got":      state.Hash().Short(),
		}).Warn("state root mismatch")
	}
	return res
}
