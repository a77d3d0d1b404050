package beacon

import (
	"bytes"
	"sort"

	"github.com/pkg/errors"
	"github.com/prysmaticlabs/go-bitfield"
	"github.com/sirupsen/logrus"

	"github.com/phoreproject/beaconcore/beacon/config"
	"github.com/phoreproject/beaconcore/bls"
	"github.com/phoreproject/beaconcore/chainhash"
	"github.com/phoreproject/beaconcore/primitives"
)

// ErrShardOutOfRange is returned when an attestation references a shard
// without a crosslink record.
var ErrShardOutOfRange = errors.New("shard index out of range")

// BlockTransition is the state transition applied to every block after
// genesis.
type BlockTransition struct {
	config *config.Config
}

// NewBlockTransition creates the per-block state transition.
func NewBlockTransition(c *config.Config) *BlockTransition {
	return &BlockTransition{config: c}
}

// ApplyBlock implements StateTransition.
func (t *BlockTransition) ApplyBlock(block *primitives.Block, state *primitives.ChainState) (*primitives.ChainState, error) {
	newState := state.Copy()

	newState.NextShufflingSeed = chainhash.HashConcat(state.NextShufflingSeed[:], block.RandaoReveal[:])

	if block.Slot >= newState.LastStateRecalc+t.config.CycleLength {
		t.recalculateCycle(block, newState)
	}

	if err := t.processAttestations(block, newState); err != nil {
		return nil, err
	}

	return newState, nil
}

// hasSupermajority checks if votes make up at least 2/3 of total.
func hasSupermajority(votes uint64, total uint64) bool {
	return total > 0 && 3*votes >= 2*total
}

type shardVote struct {
	slot  uint64
	shard uint64
}

type crosslinkVote struct {
	shardVote
	shardBlockHash chainhash.Hash
}

// attesters is the union of the attester bitfields included for one vote.
type attesters map[crosslinkVote]bitfield.Bitlist

func (a attesters) add(vote crosslinkVote, bits bitfield.Bitlist) error {
	existing, found := a[vote]
	if !found {
		a[vote] = bits
		return nil
	}
	merged, err := existing.Or(bits)
	if err != nil {
		return err
	}
	a[vote] = merged
	return nil
}

func (a attesters) sortedVotes() []crosslinkVote {
	votes := make([]crosslinkVote, 0, len(a))
	for v := range a {
		votes = append(votes, v)
	}
	sort.Slice(votes, func(i, j int) bool {
		if votes[i].slot != votes[j].slot {
			return votes[i].slot < votes[j].slot
		}
		if votes[i].shard != votes[j].shard {
			return votes[i].shard < votes[j].shard
		}
		return bytes.Compare(votes[i].shardBlockHash[:], votes[j].shardBlockHash[:]) < 0
	})
	return votes
}

// verifyAttestation checks the aggregate signature of the attesters over the
// shard block hash.
func verifyAttestation(state *primitives.ChainState, committee *primitives.Committee, att *primitives.AttestationRecord) error {
	sig, err := bls.DeserializeSignature(att.AggregateSig)
	if err != nil {
		return err
	}

	positions := att.AttesterBitfield.BitIndices()
	if len(positions) == 0 {
		return errors.New("no attesters")
	}
	pubs := make([]*bls.PublicKey, 0, len(positions))
	for _, p := range positions {
		v, found := state.ValidatorSet.Get(committee.Validators[p])
		if !found {
			return errors.Errorf("committee member %d is not in the validator set", committee.Validators[p])
		}
		pub, err := bls.DeserializePublicKey(v.PubKey)
		if err != nil {
			return errors.Wrapf(err, "could not decode public key of validator %d", committee.Validators[p])
		}
		pubs = append(pubs, pub)
	}

	if !bls.VerifyAggregateCommon(pubs, att.ShardBlockHash[:], sig, bls.DomainAttestation) {
		return errors.New("aggregate signature does not verify")
	}
	return nil
}

func (t *BlockTransition) processAttestations(block *primitives.Block, state *primitives.ChainState) error {
	votes := make(attesters)
	committeeSizes := make(map[uint64]uint64)

	for i := range block.Attestations {
		att := &block.Attestations[i]
		attLog := log.WithFields(logrus.Fields{
			"slot":  att.Slot,
			"shard": att.ShardID,
		})

		shuffling, found := state.ShufflingForSlot(att.Slot, t.config.CycleLength)
		if !found {
			attLog.Debug("skipping attestation without committee")
			continue
		}
		committee, found := primitives.CommitteeForShard(shuffling, t.config.SlotOffset(att.Slot), att.ShardID)
		if !found {
			attLog.Debug("skipping attestation without committee")
			continue
		}

		committeeSize := uint64(len(committee.Validators))
		if att.AttesterBitfield.Len() != committeeSize {
			attLog.WithFields(logrus.Fields{
				"expected": committeeSize,
				"got":      att.AttesterBitfield.Len(),
			}).Debug("skipping attestation with bitfield of wrong size")
			continue
		}

		if err := verifyAttestation(state, committee, att); err != nil {
			attLog.WithError(err).Debug("skipping attestation with invalid signature")
			continue
		}

		if _, found := committeeSizes[att.Slot]; !found {
			committeeSizes[att.Slot] = committeeSizeAtSlot(shuffling, t.config.SlotOffset(att.Slot))
		}

		vote := crosslinkVote{
			shardVote:      shardVote{slot: att.Slot, shard: att.ShardID},
			shardBlockHash: att.ShardBlockHash,
		}
		if err := votes.add(vote, att.AttesterBitfield); err != nil {
			return err
		}
	}

	sorted := votes.sortedVotes()

	// a committee member is counted once per slot and shard, whichever shard
	// block it voted for
	voters := make(map[shardVote]bitfield.Bitlist)
	for _, vote := range sorted {
		bits := votes[vote]
		if hasSupermajority(bits.Count(), bits.Len()) {
			if err := updateCrosslink(state, vote.slot, vote.shard, vote.shardBlockHash); err != nil {
				return err
			}
		}

		existing, found := voters[vote.shardVote]
		if !found {
			voters[vote.shardVote] = bits
			continue
		}
		merged, err := existing.Or(bits)
		if err != nil {
			return err
		}
		voters[vote.shardVote] = merged
	}

	votesBySlot := make(map[uint64]uint64)
	for vote, bits := range voters {
		votesBySlot[vote.slot] += bits.Count()
	}

	attestedSlots := make([]uint64, 0, len(votesBySlot))
	for slot := range votesBySlot {
		attestedSlots = append(attestedSlots, slot)
	}
	sort.Slice(attestedSlots, func(i, j int) bool { return attestedSlots[i] < attestedSlots[j] })

	for _, slot := range attestedSlots {
		if slot <= state.LastJustifiedSlot {
			continue
		}
		if !hasSupermajority(votesBySlot[slot], committeeSizes[slot]) {
			continue
		}
		t.justifySlot(state, slot)
	}

	return nil
}

// committeeSizeAtSlot gets the number of validators assigned to a slot.
func committeeSizeAtSlot(shuffling [][]primitives.Committee, slotOffset int) uint64 {
	if slotOffset >= len(shuffling) {
		return 0
	}
	total := uint64(0)
	for _, c := range shuffling[slotOffset] {
		total += uint64(len(c.Validators))
	}
	return total
}

func (t *BlockTransition) justifySlot(state *primitives.ChainState, slot uint64) {
	if slot == state.LastJustifiedSlot+1 {
		state.JustifiedStreak++
	} else {
		state.JustifiedStreak = 1
	}
	state.LastJustifiedSlot = slot

	if state.JustifiedStreak >= t.config.CycleLength+1 {
		finalized := slot - t.config.CycleLength - 1
		if finalized > state.LastFinalizedSlot {
			state.LastFinalizedSlot = finalized
			log.WithField("slot", finalized).Debug("finalized slot")
		}
	}
}

func updateCrosslink(state *primitives.ChainState, slot uint64, shardID uint64, shardBlockHash chainhash.Hash) error {
	if shardID >= uint64(len(state.Crosslinks)) {
		return errors.Wrapf(ErrShardOutOfRange, "shard %d, crosslinks %d", shardID, len(state.Crosslinks))
	}

	crosslink := &state.Crosslinks[shardID]
	if slot > crosslink.Slot {
		crosslink.Slot = slot
		crosslink.ShardBlockHash = shardBlockHash
	}
	return nil
}

// validatorSetChangeAllowed checks if enough time passed since the last
// validator set change and if the chain made progress since then: a newer
// finalized slot and a newer crosslink for every shard.
func (t *BlockTransition) validatorSetChangeAllowed(slot uint64, state *primitives.ChainState) bool {
	if slot-state.ValidatorSetChangeSlot < t.config.MinValidatorSetChangeInterval {
		return false
	}
	if state.LastFinalizedSlot <= state.ValidatorSetChangeSlot {
		return false
	}
	for _, c := range state.Crosslinks {
		if c.Slot <= state.ValidatorSetChangeSlot {
			return false
		}
	}
	return true
}

// recalculateCycle moves the state to the cycle the block belongs to and
// reshuffles the committees, keeping the outgoing ones for attestations to
// the previous cycle. A validator set change only records its slot.
func (t *BlockTransition) recalculateCycle(block *primitives.Block, state *primitives.ChainState) {
	previousRecalc := state.LastStateRecalc
	cycles := (block.Slot - state.LastStateRecalc) / t.config.CycleLength
	state.LastStateRecalc += cycles * t.config.CycleLength

	if t.validatorSetChangeAllowed(block.Slot, state) {
		state.ValidatorSetChangeSlot = state.LastStateRecalc
		log.WithField("slot", state.LastStateRecalc).Debug("validator set change")
	}

	startShard := NextStartShard(state.Committees, t.config)
	state.PreviousStateRecalc = previousRecalc
	state.PreviousCommittees = state.Committees
	state.Committees = GetNewShuffling(state.NextShufflingSeed, state.ValidatorSet.ActiveIndices(), startShard, t.config)
}
