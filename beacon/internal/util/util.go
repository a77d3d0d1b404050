package util

import (
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/phoreproject/beaconcore/beacon"
	"github.com/phoreproject/beaconcore/beacon/config"
	"github.com/phoreproject/beaconcore/beacon/db"
	"github.com/phoreproject/beaconcore/bls"
	"github.com/phoreproject/beaconcore/chainhash"
	"github.com/phoreproject/beaconcore/primitives"
	"github.com/phoreproject/beaconcore/validator"
)

// RandaoRounds is the length of the hash chains of test validators.
const RandaoRounds = 64

var blockCounter uint64

// createdStates holds the post-state of every block made by CreateBlock so
// children can be built before their parents are inserted.
var createdStates sync.Map

// Keystore holds the keys and randao hash chains of test validators. These
// keys should be assumed to be insecure.
var Keystore = validator.NewRootKeyStore("beaconcore test", RandaoRounds)

// KeyForValidator gets the secret key of a test validator.
func KeyForValidator(v uint32) *bls.SecretKey {
	return Keystore.GetKeyForValidator(v)
}

// RandaoForValidator gets the hash chain of a test validator.
func RandaoForValidator(v uint32) *beacon.Randao {
	return Keystore.GetRandaoForValidator(v)
}

// Validators creates n test validators registered with keys from Keystore.
func Validators(n int) []primitives.Validator {
	validators := make([]primitives.Validator, n)
	for i := range validators {
		validators[i] = validator.RegisteredValidator(Keystore, uint32(i), 1)
		validators[i].WithdrawalAddress = []byte{byte(i)}
	}
	return validators
}

// MainChainRefScore scores a block by the first byte of its main chain
// reference, so tests can pick the score of every block.
func MainChainRefScore(block *primitives.Block, _ *primitives.ChainState) *big.Int {
	return big.NewInt(int64(block.MainChainRef[0]))
}

// SetupChain creates an initialized chain on the given database that does
// not change the state and scores blocks with MainChainRefScore.
func SetupChain(database db.Database) (*beacon.BeaconChain, error) {
	c := config.RegtestConfig
	chain, err := beacon.NewBeaconChain(beacon.ChainConfig{
		Config:            &c,
		Database:          database,
		Transition:        beacon.NoTransition{},
		InitialTransition: beacon.NoTransition{},
		Score:             MainChainRefScore,
	})
	if err != nil {
		return nil, err
	}
	if err := chain.Init(); err != nil {
		return nil, err
	}
	return chain, nil
}

// CreateBlock creates a child of parent carrying the given score in its main
// chain reference. The state root is filled in by applying the transition to
// the parent state.
func CreateBlock(chain *beacon.BeaconChain, transition beacon.StateTransition, parent *primitives.Block, score byte, attestations ...primitives.AttestationRecord) (*primitives.Block, error) {
	n := atomic.AddUint64(&blockCounter, 1)

	parentState, err := parentStateOf(chain, parent)
	if err != nil {
		return nil, err
	}

	mainChainRef := chainhash.HashH([]byte(fmt.Sprintf("main chain %d", n)))
	mainChainRef[0] = score

	block := &primitives.Block{
		ParentHash:   parent.Hash(),
		RandaoReveal: chainhash.HashH([]byte(fmt.Sprintf("randao %d", n))),
		MainChainRef: mainChainRef,
		Slot:         parent.Slot + 1,
		Attestations: attestations,
	}

	newState, err := transition.ApplyBlock(block, parentState)
	if err != nil {
		return nil, err
	}
	block.StateRoot = newState.Hash()
	createdStates.Store(block.Hash(), newState)

	return block, nil
}

func parentStateOf(chain *beacon.BeaconChain, parent *primitives.Block) (*primitives.ChainState, error) {
	if !parent.IsGenesis() {
		if s, found := createdStates.Load(parent.Hash()); found {
			return s.(*primitives.ChainState).Copy(), nil
		}
	}
	return chain.GetState(parent)
}

// Attest creates an attestation for the committee of a shard at a slot with
// the validators at the given committee positions voting.
func Attest(state *primitives.ChainState, c *config.Config, slot uint64, shardID uint64, positions ...uint64) (primitives.AttestationRecord, error) {
	shuffling, found := state.ShufflingForSlot(slot, c.CycleLength)
	if !found {
		return primitives.AttestationRecord{}, fmt.Errorf("no committees for slot %d", slot)
	}
	committee, found := primitives.CommitteeForShard(shuffling, c.SlotOffset(slot), shardID)
	if !found {
		return primitives.AttestationRecord{}, fmt.Errorf("no committee for shard %d at slot %d", shardID, slot)
	}

	shardBlockHash := chainhash.HashH([]byte(fmt.Sprintf("shard %d block %d", shardID, slot)))

	sigs := make([]*bls.Signature, 0, len(positions))
	for _, p := range positions {
		sig, err := bls.Sign(KeyForValidator(committee.Validators[p]), shardBlockHash[:], bls.DomainAttestation)
		if err != nil {
			return primitives.AttestationRecord{}, err
		}
		sigs = append(sigs, sig)
	}
	aggregate, err := bls.AggregateSigs(sigs)
	if err != nil {
		return primitives.AttestationRecord{}, err
	}

	return primitives.AttestationRecord{
		Slot:             slot,
		ShardID:          shardID,
		ShardBlockHash:   shardBlockHash,
		AttesterBitfield: primitives.NewAttesterBitfield(uint64(len(committee.Validators)), positions...),
		JustifiedSlot:    state.LastJustifiedSlot,
		AggregateSig:     aggregate.Serialize(),
	}, nil
}

// AllPositions lists every position of a committee of the given size.
func AllPositions(size int) []uint64 {
	positions := make([]uint64, size)
	for i := range positions {
		positions[i] = uint64(i)
	}
	return positions
}
