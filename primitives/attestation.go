package primitives

import (
	"github.com/phoreproject/beaconcore/chainhash"
	"github.com/prysmaticlabs/go-bitfield"
)

// AttestationRecord is a committee vote on a shard block, carried by a beacon
// block.
type AttestationRecord struct {
	Slot               uint64
	ShardID            uint64
	ShardBlockHash     chainhash.Hash
	AttesterBitfield   bitfield.Bitlist
	JustifiedSlot      uint64
	JustifiedBlockHash chainhash.Hash
	AggregateSig       []byte
}

// NewAttesterBitfield returns a bitfield sized for a committee with the given
// validator positions set.
func NewAttesterBitfield(committeeSize uint64, positions ...uint64) bitfield.Bitlist {
	bits := bitfield.NewBitlist(committeeSize)
	for _, p := range positions {
		bits.SetBitAt(p, true)
	}
	return bits
}

// VoteCount counts the attesters in the bitfield.
func (a *AttestationRecord) VoteCount() uint64 {
	if len(a.AttesterBitfield) == 0 {
		return 0
	}
	return a.AttesterBitfield.Count()
}

// Copy returns a deep copy of the attestation record.
func (a *AttestationRecord) Copy() AttestationRecord {
	newAtt := *a
	newAtt.AttesterBitfield = append(bitfield.Bitlist(nil), a.AttesterBitfield...)
	newAtt.AggregateSig = append([]byte(nil), a.AggregateSig...)
	return newAtt
}
