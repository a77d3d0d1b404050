package db

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/phoreproject/beaconcore/chainhash"
	"github.com/phoreproject/beaconcore/primitives"
)

// DefaultStateCacheSize is the number of decoded states kept in memory.
const DefaultStateCacheSize = 128

var (
	stateCacheHit = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_state_cache_hit_total",
		Help: "The number of state requests that are present in the cache.",
	})
	stateCacheMiss = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_state_cache_miss_total",
		Help: "The number of state requests that aren't present in the cache.",
	})
)

// StateStore keeps chain states addressed by their hash. The flattened state
// and the validator set are stored under separate keys so that states sharing
// a validator set store it once.
type StateStore struct {
	kv    KeyValueStore
	cache *lru.Cache[chainhash.Hash, *primitives.ChainState]

	// only committed states are added to the cache
	committed bool
}

// NewStateStore creates a state store over the given key-value store.
func NewStateStore(kv KeyValueStore, cacheSize int) (*StateStore, error) {
	cache, err := lru.New[chainhash.Hash, *primitives.ChainState](cacheSize)
	if err != nil {
		return nil, err
	}
	return &StateStore{
		kv:        kv,
		cache:     cache,
		committed: true,
	}, nil
}

// WithTx returns a state store that reads and writes through the given
// transaction.
func (s *StateStore) WithTx(txn KeyValueStore) *StateStore {
	return &StateStore{
		kv:    txn,
		cache: s.cache,
	}
}

// Insert stores a state and returns its hash.
func (s *StateStore) Insert(state *primitives.ChainState) (chainhash.Hash, error) {
	flat := state.Flatten()
	stateHash := flat.Hash()

	found, err := s.kv.Has(hashKey(validatorSetPrefix, flat.ValidatorSetHash))
	if err != nil {
		return chainhash.Hash{}, err
	}
	if !found {
		setEnc, err := state.ValidatorSet.Encode()
		if err != nil {
			return chainhash.Hash{}, err
		}
		if err := s.kv.Put(hashKey(validatorSetPrefix, flat.ValidatorSetHash), setEnc); err != nil {
			return chainhash.Hash{}, err
		}
	}

	enc, err := flat.Encode()
	if err != nil {
		return chainhash.Hash{}, err
	}
	if err := s.kv.Put(hashKey(statePrefix, stateHash), enc); err != nil {
		return chainhash.Hash{}, err
	}

	if s.committed {
		s.cache.Add(stateHash, state.Copy())
	}
	return stateHash, nil
}

// Get gets a state by hash.
func (s *StateStore) Get(h chainhash.Hash) (*primitives.ChainState, error) {
	if state, found := s.cache.Get(h); found {
		stateCacheHit.Inc()
		return state.Copy(), nil
	}
	stateCacheMiss.Inc()

	enc, err := s.kv.Get(hashKey(statePrefix, h))
	if err != nil {
		return nil, err
	}
	flat, err := primitives.DecodeFlattened(enc)
	if err != nil {
		return nil, errors.Wrapf(err, "could not decode state %s", h)
	}

	setEnc, err := s.kv.Get(hashKey(validatorSetPrefix, flat.ValidatorSetHash))
	if err != nil {
		return nil, errors.Wrapf(err, "could not find validator set %s", flat.ValidatorSetHash)
	}
	set, err := primitives.DecodeValidatorSet(setEnc)
	if err != nil {
		return nil, errors.Wrapf(err, "could not decode validator set %s", flat.ValidatorSetHash)
	}

	state, err := flat.Expand(set)
	if err != nil {
		return nil, err
	}

	if s.committed {
		s.cache.Add(h, state.Copy())
	}
	return state, nil
}

// Exist checks if a state is stored.
func (s *StateStore) Exist(h chainhash.Hash) (bool, error) {
	if s.cache.Contains(h) {
		return true, nil
	}
	return s.kv.Has(hashKey(statePrefix, h))
}

// GetEmpty gets the state the chain is bootstrapped from.
func (s *StateStore) GetEmpty() *primitives.ChainState {
	return primitives.EmptyState()
}
