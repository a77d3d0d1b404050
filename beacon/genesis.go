package beacon

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/phoreproject/beaconcore/beacon/config"
	"github.com/phoreproject/beaconcore/chainhash"
	"github.com/phoreproject/beaconcore/primitives"
)

// ErrNotGenesis is returned when the genesis transition is applied to a
// regular block.
var ErrNotGenesis = errors.New("genesis transition can only be applied to the genesis block")

// Genesis holds the parameters the chain starts from.
type Genesis struct {
	Time         time.Time
	RandaoReveal chainhash.Hash
	MainChainRef chainhash.Hash
	// Hex-encoded public keys of the initial validators. All registered
	// validators are used when empty.
	InitialValidators []string
}

// GenesisTransition initializes the state from the validators registered on
// the main chain.
type GenesisTransition struct {
	registry ValidatorRegistry
	config   *config.Config
	genesis  Genesis

	lock         sync.RWMutex
	mainChainRef *chainhash.Hash
}

// NewGenesisTransition creates a genesis transition.
func NewGenesisTransition(registry ValidatorRegistry, c *config.Config, genesis Genesis) *GenesisTransition {
	return &GenesisTransition{
		registry: registry,
		config:   c,
		genesis:  genesis,
	}
}

// WithMainChainRef sets the main chain block validators are queried at,
// overriding the one from the genesis parameters.
func (t *GenesisTransition) WithMainChainRef(ref chainhash.Hash) *GenesisTransition {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.mainChainRef = &ref
	return t
}

func (t *GenesisTransition) queryRef() chainhash.Hash {
	t.lock.RLock()
	defer t.lock.RUnlock()
	if t.mainChainRef != nil {
		return *t.mainChainRef
	}
	return t.genesis.MainChainRef
}

func (t *GenesisTransition) initialValidatorSet(state *primitives.ChainState) (*primitives.ValidatorSet, error) {
	registered, err := t.registry.Query(t.queryRef())
	if err != nil {
		return nil, err
	}

	set := state.ValidatorSet.Copy()

	if len(t.genesis.InitialValidators) == 0 {
		for _, v := range registered {
			if err := set.Add(v); err != nil {
				return nil, err
			}
		}
		return set, nil
	}

	byPubKey := make(map[string]primitives.Validator, len(registered))
	for _, v := range registered {
		byPubKey[v.PubKeyHex()] = v
	}

	for _, pubKey := range t.genesis.InitialValidators {
		v, found := byPubKey[pubKey]
		if !found {
			log.WithField("pubkey", pubKey).Warn("initial validator is not registered")
			continue
		}
		if err := set.Add(v); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// ApplyBlock implements StateTransition.
func (t *GenesisTransition) ApplyBlock(block *primitives.Block, state *primitives.ChainState) (*primitives.ChainState, error) {
	if !block.IsGenesis() {
		return nil, ErrNotGenesis
	}

	set, err := t.initialValidatorSet(state)
	if err != nil {
		return nil, err
	}

	newState := state.Copy()
	newState.ValidatorSet = set
	newState.Committees = GetNewShuffling(t.genesis.RandaoReveal, set.ActiveIndices(), 0, t.config)
	newState.LastStateRecalc = 0
	newState.Crosslinks = primitives.EmptyCrosslinks(t.config.ShardCount)
	newState.NextShufflingSeed = t.genesis.RandaoReveal

	ref := t.queryRef()
	log.WithFields(logrus.Fields{
		"validators":   set.Size(),
		"mainChainRef": ref.Short(),
	}).Info("initialized genesis state")

	return newState, nil
}
