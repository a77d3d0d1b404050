package beacon

import (
	"github.com/phoreproject/beaconcore/chainhash"
	"github.com/phoreproject/beaconcore/primitives"
)

// ValidatorRegistry provides the validators registered on the main chain.
type ValidatorRegistry interface {
	// Query gets the validators registered up to and including the given
	// main chain block.
	Query(mainChainRef chainhash.Hash) ([]primitives.Validator, error)
}

// StaticRegistry is a registry with a fixed list of validators.
type StaticRegistry []primitives.Validator

// Query implements ValidatorRegistry.
func (r StaticRegistry) Query(chainhash.Hash) ([]primitives.Validator, error) {
	out := make([]primitives.Validator, len(r))
	for i := range r {
		out[i] = r[i].Copy()
	}
	return out, nil
}
