package primitives

import (
	"io"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/phoreproject/beaconcore/chainhash"
)

// Committee is a list of validator indices assigned to attest to a shard.
type Committee struct {
	ShardID    uint64
	Validators []uint32
}

type committeeRLP struct {
	ShardID    uint64
	Validators rlp.RawValue
}

// EncodeRLP implements rlp.Encoder.
func (c Committee) EncodeRLP(w io.Writer) error {
	validators, err := encodeList(c.Validators)
	if err != nil {
		return err
	}
	return rlp.Encode(w, committeeRLP{ShardID: c.ShardID, Validators: validators})
}

// DecodeRLP implements rlp.Decoder.
func (c *Committee) DecodeRLP(s *rlp.Stream) error {
	var raw committeeRLP
	if err := s.Decode(&raw); err != nil {
		return err
	}
	validators, err := decodeList[uint32](raw.Validators)
	if err != nil {
		return err
	}
	c.ShardID = raw.ShardID
	c.Validators = validators
	return nil
}

// Copy copies the committee.
func (c *Committee) Copy() Committee {
	newCommittee := *c
	if c.Validators != nil {
		newCommittee.Validators = append([]uint32{}, c.Validators...)
	}
	return newCommittee
}

// CommitteeIndex locates a validator inside the committee structure.
type CommitteeIndex struct {
	ValidatorIndex uint32
	ShardID        uint64
	SlotOffset     int
	CommitteeIdx   int
	CommitteeSize  int
	Position       int
}

// ScanCommittees finds the committee a validator is assigned to.
func ScanCommittees(validatorIndex uint32, committees [][]Committee) (CommitteeIndex, bool) {
	for slotOffset, slot := range committees {
		for committeeIdx, committee := range slot {
			for position, v := range committee.Validators {
				if v == validatorIndex {
					return CommitteeIndex{
						ValidatorIndex: v,
						ShardID:        committee.ShardID,
						SlotOffset:     slotOffset,
						CommitteeIdx:   committeeIdx,
						CommitteeSize:  len(committee.Validators),
						Position:       position,
					}, true
				}
			}
		}
	}
	return CommitteeIndex{}, false
}

// CommitteeForShard gets the committee attesting to a shard at a slot offset.
func CommitteeForShard(committees [][]Committee, slotOffset int, shardID uint64) (*Committee, bool) {
	if slotOffset < 0 || slotOffset >= len(committees) {
		return nil, false
	}
	for i := range committees[slotOffset] {
		if committees[slotOffset][i].ShardID == shardID {
			return &committees[slotOffset][i], true
		}
	}
	return nil, false
}

// ProposerIndex gets the validator assigned to propose a block at a slot.
func ProposerIndex(committees [][]Committee, slot uint64) (uint32, bool) {
	if len(committees) == 0 {
		return 0, false
	}
	slotCommittees := committees[slot%uint64(len(committees))]
	if len(slotCommittees) == 0 || len(slotCommittees[0].Validators) == 0 {
		return 0, false
	}
	validators := slotCommittees[0].Validators
	return validators[slot%uint64(len(validators))], true
}

// Crosslink is the most recent shard block attested to with sufficient
// committee support.
type Crosslink struct {
	Slot           uint64
	ShardBlockHash chainhash.Hash
}

// EmptyCrosslinks allocates empty crosslink records for every shard.
func EmptyCrosslinks(shardCount uint64) []Crosslink {
	return make([]Crosslink, shardCount)
}
