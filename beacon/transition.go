package beacon

import (
	"github.com/phoreproject/beaconcore/primitives"
)

// StateTransition derives the state after a block from the state before it.
// Implementations must be deterministic and must not modify the given state.
type StateTransition interface {
	ApplyBlock(block *primitives.Block, state *primitives.ChainState) (*primitives.ChainState, error)
}

// NoTransition leaves the state unchanged.
type NoTransition struct{}

// ApplyBlock implements StateTransition.
func (NoTransition) ApplyBlock(_ *primitives.Block, state *primitives.ChainState) (*primitives.ChainState, error) {
	return state.Copy(), nil
}
