package primitives

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/phoreproject/beaconcore/chainhash"
)

// ChainState is the crystallized state of the beacon chain. It is only
// recalculated once per cycle, apart from finality and crosslink
// bookkeeping.
type ChainState struct {
	// Slot of the last cycle recalculation
	LastStateRecalc uint64
	// Active validators
	ValidatorSet *ValidatorSet
	// Committees for each slot offset of the cycle
	Committees [][]Committee
	// Slot the previous committees were assigned at, and the committees
	// themselves. They cover slots from PreviousStateRecalc up to
	// LastStateRecalc.
	PreviousStateRecalc uint64
	PreviousCommittees  [][]Committee
	LastJustifiedSlot   uint64
	// Number of consecutive justified slots ending at LastJustifiedSlot
	JustifiedStreak   uint64
	LastFinalizedSlot uint64
	// Most recent crosslink for each shard
	Crosslinks []Crosslink
	// Randao mix used to seed the next shuffling
	NextShufflingSeed chainhash.Hash
	// Slot of the last validator set change
	ValidatorSetChangeSlot uint64
}

// EmptyState returns the state the genesis transition starts from.
func EmptyState() *ChainState {
	return &ChainState{ValidatorSet: &ValidatorSet{}}
}

// Copy deep-copies the state.
func (s *ChainState) Copy() *ChainState {
	newState := *s

	if s.ValidatorSet != nil {
		newState.ValidatorSet = s.ValidatorSet.Copy()
	}

	newState.Committees = copyCommittees(s.Committees)
	newState.PreviousCommittees = copyCommittees(s.PreviousCommittees)

	if s.Crosslinks != nil {
		newState.Crosslinks = make([]Crosslink, len(s.Crosslinks))
		copy(newState.Crosslinks, s.Crosslinks)
	}

	return &newState
}

func copyCommittees(committees [][]Committee) [][]Committee {
	if committees == nil {
		return nil
	}
	out := make([][]Committee, len(committees))
	for i, slot := range committees {
		out[i] = make([]Committee, len(slot))
		for n := range slot {
			out[i][n] = slot[n].Copy()
		}
	}
	return out
}

// ShufflingForSlot gets the committees assigned to the cycle a slot belongs
// to. Slots before the last recalculation resolve to the previous committees
// and slots before those have none.
func (s *ChainState) ShufflingForSlot(slot uint64, cycleLength uint64) ([][]Committee, bool) {
	switch {
	case slot >= s.LastStateRecalc+cycleLength:
		return nil, false
	case slot >= s.LastStateRecalc:
		return s.Committees, true
	case slot >= s.PreviousStateRecalc && s.PreviousCommittees != nil:
		return s.PreviousCommittees, true
	default:
		return nil, false
	}
}

// Flatten replaces the validator set with its hash.
func (s *ChainState) Flatten() *FlattenedState {
	setHash := EmptyValidatorSetHash
	if s.ValidatorSet != nil {
		setHash = s.ValidatorSet.Hash()
	}
	return &FlattenedState{
		ValidatorSetHash:       setHash,
		LastStateRecalc:        s.LastStateRecalc,
		LastJustifiedSlot:      s.LastJustifiedSlot,
		JustifiedStreak:        s.JustifiedStreak,
		LastFinalizedSlot:      s.LastFinalizedSlot,
		ValidatorSetChangeSlot: s.ValidatorSetChangeSlot,
		NextShufflingSeed:      s.NextShufflingSeed,
		Committees:             s.Committees,
		PreviousStateRecalc:    s.PreviousStateRecalc,
		PreviousCommittees:     s.PreviousCommittees,
		Crosslinks:             s.Crosslinks,
	}
}

// Hash gets the hash of the flattened state.
func (s *ChainState) Hash() chainhash.Hash {
	return s.Flatten().Hash()
}

// FlattenedState is the state as it is hashed and stored. The validator set
// is referenced by hash and stored separately.
type FlattenedState struct {
	ValidatorSetHash       chainhash.Hash
	LastStateRecalc        uint64
	LastJustifiedSlot      uint64
	JustifiedStreak        uint64
	LastFinalizedSlot      uint64
	ValidatorSetChangeSlot uint64
	NextShufflingSeed      chainhash.Hash
	Committees             [][]Committee
	PreviousStateRecalc    uint64
	PreviousCommittees     [][]Committee
	Crosslinks             []Crosslink
}

type flattenedRLP struct {
	ValidatorSetHash       chainhash.Hash
	LastStateRecalc        uint64
	LastJustifiedSlot      uint64
	JustifiedStreak        uint64
	LastFinalizedSlot      uint64
	ValidatorSetChangeSlot uint64
	NextShufflingSeed      chainhash.Hash
	Committees             rlp.RawValue
	PreviousStateRecalc    uint64
	PreviousCommittees     rlp.RawValue
	Crosslinks             rlp.RawValue
}

// Encode gets the canonical encoding of the flattened state.
func (f *FlattenedState) Encode() ([]byte, error) {
	committees, err := encodeCommittees(f.Committees)
	if err != nil {
		return nil, err
	}
	previous, err := encodeCommittees(f.PreviousCommittees)
	if err != nil {
		return nil, err
	}
	crosslinks, err := encodeList(f.Crosslinks)
	if err != nil {
		return nil, err
	}

	return rlp.EncodeToBytes(flattenedRLP{
		ValidatorSetHash:       f.ValidatorSetHash,
		LastStateRecalc:        f.LastStateRecalc,
		LastJustifiedSlot:      f.LastJustifiedSlot,
		JustifiedStreak:        f.JustifiedStreak,
		LastFinalizedSlot:      f.LastFinalizedSlot,
		ValidatorSetChangeSlot: f.ValidatorSetChangeSlot,
		NextShufflingSeed:      f.NextShufflingSeed,
		Committees:             committees,
		PreviousStateRecalc:    f.PreviousStateRecalc,
		PreviousCommittees:     previous,
		Crosslinks:             crosslinks,
	})
}

func encodeCommittees(committees [][]Committee) (rlp.RawValue, error) {
	slots := make([]rlp.RawValue, len(committees))
	for i := range committees {
		enc, err := encodeList(committees[i])
		if err != nil {
			return nil, err
		}
		slots[i] = enc
	}
	return encodeList(slots)
}

func decodeCommittees(data rlp.RawValue) ([][]Committee, error) {
	slots, err := decodeList[rlp.RawValue](data)
	if err != nil {
		return nil, err
	}
	if slots == nil {
		return nil, nil
	}
	committees := make([][]Committee, len(slots))
	for i := range slots {
		committees[i], err = decodeList[Committee](slots[i])
		if err != nil {
			return nil, fmt.Errorf("slot offset %d: %v", i, err)
		}
	}
	return committees, nil
}

// Hash gets the hash of the flattened state.
func (f *FlattenedState) Hash() chainhash.Hash {
	enc, err := f.Encode()
	if err != nil {
		panic(err)
	}
	return chainhash.HashH(enc)
}

// Expand combines the flattened state with its validator set.
func (f *FlattenedState) Expand(set *ValidatorSet) (*ChainState, error) {
	if set.Hash() != f.ValidatorSetHash {
		return nil, fmt.Errorf("validator set hash mismatch: expected %s, got %s", f.ValidatorSetHash, set.Hash())
	}
	s := &ChainState{
		LastStateRecalc:        f.LastStateRecalc,
		ValidatorSet:           set,
		Committees:             f.Committees,
		PreviousStateRecalc:    f.PreviousStateRecalc,
		PreviousCommittees:     f.PreviousCommittees,
		LastJustifiedSlot:      f.LastJustifiedSlot,
		JustifiedStreak:        f.JustifiedStreak,
		LastFinalizedSlot:      f.LastFinalizedSlot,
		Crosslinks:             f.Crosslinks,
		NextShufflingSeed:      f.NextShufflingSeed,
		ValidatorSetChangeSlot: f.ValidatorSetChangeSlot,
	}
	return s.Copy(), nil
}

// DecodeFlattened decodes a flattened state from its canonical encoding.
func DecodeFlattened(data []byte) (*FlattenedState, error) {
	var raw flattenedRLP
	if err := rlp.DecodeBytes(data, &raw); err != nil {
		return nil, err
	}

	committees, err := decodeCommittees(raw.Committees)
	if err != nil {
		return nil, fmt.Errorf("decoding committees: %v", err)
	}
	previous, err := decodeCommittees(raw.PreviousCommittees)
	if err != nil {
		return nil, fmt.Errorf("decoding previous committees: %v", err)
	}

	crosslinks, err := decodeList[Crosslink](raw.Crosslinks)
	if err != nil {
		return nil, fmt.Errorf("decoding crosslinks: %v", err)
	}

	return &FlattenedState{
		ValidatorSetHash:       raw.ValidatorSetHash,
		LastStateRecalc:        raw.LastStateRecalc,
		LastJustifiedSlot:      raw.LastJustifiedSlot,
		JustifiedStreak:        raw.JustifiedStreak,
		LastFinalizedSlot:      raw.LastFinalizedSlot,
		ValidatorSetChangeSlot: raw.ValidatorSetChangeSlot,
		NextShufflingSeed:      raw.NextShufflingSeed,
		Committees:             committees,
		PreviousStateRecalc:    raw.PreviousStateRecalc,
		PreviousCommittees:     previous,
		Crosslinks:             crosslinks,
	}, nil
}
