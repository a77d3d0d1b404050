package beacon_test

import (
	"fmt"
	"testing"

	"github.com/go-test/deep"
	"github.com/pkg/errors"

	"github.com/phoreproject/beaconcore/beacon"
	"github.com/phoreproject/beaconcore/beacon/config"
	"github.com/phoreproject/beaconcore/beacon/internal/util"
	"github.com/phoreproject/beaconcore/chainhash"
	"github.com/phoreproject/beaconcore/primitives"
)

func genesisState(t *testing.T, c *config.Config, numValidators int) *primitives.ChainState {
	t.Helper()

	transition := beacon.NewGenesisTransition(beacon.StaticRegistry(util.Validators(numValidators)), c, beacon.Genesis{
		RandaoReveal: chainhash.HashH([]byte("genesis")),
	})
	state, err := transition.ApplyBlock(primitives.GenesisBlock(), primitives.EmptyState())
	if err != nil {
		t.Fatal(err)
	}
	return state
}

func blockAt(slot uint64, attestations ...primitives.AttestationRecord) *primitives.Block {
	return &primitives.Block{
		ParentHash:   chainhash.HashH([]byte(fmt.Sprintf("parent %d", slot))),
		RandaoReveal: chainhash.HashH([]byte(fmt.Sprintf("randao %d", slot))),
		Slot:         slot,
		Attestations: attestations,
	}
}

// attestFully creates an attestation with every member of the committee
// assigned at the given slot voting.
func attestFully(t *testing.T, state *primitives.ChainState, c *config.Config, slot uint64) primitives.AttestationRecord {
	t.Helper()

	shuffling, found := state.ShufflingForSlot(slot, c.CycleLength)
	if !found {
		t.Fatalf("no committees for slot %d", slot)
	}
	committee := shuffling[c.SlotOffset(slot)][0]
	att, err := util.Attest(state, c, slot, committee.ShardID, util.AllPositions(len(committee.Validators))...)
	if err != nil {
		t.Fatal(err)
	}
	return att
}

func TestBlockTransition_Deterministic(t *testing.T) {
	c := config.RegtestConfig
	state := genesisState(t, &c, 16)
	before := state.Hash()

	transition := beacon.NewBlockTransition(&c)
	block := blockAt(2, attestFully(t, state, &c, 1))

	first, err := transition.ApplyBlock(block, state)
	if err != nil {
		t.Fatal(err)
	}
	second, err := transition.ApplyBlock(block, state)
	if err != nil {
		t.Fatal(err)
	}

	if diff := deep.Equal(first, second); diff != nil {
		t.Fatal(diff)
	}
	if first.Hash() != second.Hash() {
		t.Fatal("expected equal state hashes")
	}
	if state.Hash() != before {
		t.Fatal("transition modified the parent state")
	}
}

func TestBlockTransition_RandaoMix(t *testing.T) {
	c := config.RegtestConfig
	state := genesisState(t, &c, 16)

	block := blockAt(1)
	newState, err := beacon.NewBlockTransition(&c).ApplyBlock(block, state)
	if err != nil {
		t.Fatal(err)
	}

	expected := chainhash.HashConcat(state.NextShufflingSeed[:], block.RandaoReveal[:])
	if newState.NextShufflingSeed != expected {
		t.Fatal("unexpected shuffling seed")
	}
}

func TestBlockTransition_CrosslinkAndJustification(t *testing.T) {
	c := config.RegtestConfig
	state := genesisState(t, &c, 16)
	transition := beacon.NewBlockTransition(&c)

	att := attestFully(t, state, &c, 1)
	newState, err := transition.ApplyBlock(blockAt(2, att), state)
	if err != nil {
		t.Fatal(err)
	}

	crosslink := newState.Crosslinks[att.ShardID]
	if crosslink.Slot != 1 || crosslink.ShardBlockHash != att.ShardBlockHash {
		t.Fatalf("expected crosslink for shard %d at slot 1, got %+v", att.ShardID, crosslink)
	}
	if newState.LastJustifiedSlot != 1 || newState.JustifiedStreak != 1 {
		t.Fatalf("expected slot 1 to be justified, got %d (streak %d)", newState.LastJustifiedSlot, newState.JustifiedStreak)
	}
}

func TestBlockTransition_NoSupermajority(t *testing.T) {
	c := config.RegtestConfig
	state := genesisState(t, &c, 16)

	committee := state.Committees[1][0]
	att, err := util.Attest(state, &c, 1, committee.ShardID, 0)
	if err != nil {
		t.Fatal(err)
	}

	newState, err := beacon.NewBlockTransition(&c).ApplyBlock(blockAt(2, att), state)
	if err != nil {
		t.Fatal(err)
	}

	if newState.Crosslinks[att.ShardID].Slot != 0 {
		t.Fatal("crosslink should not be updated without a supermajority")
	}
	if newState.LastJustifiedSlot != 0 {
		t.Fatal("slot should not be justified without a supermajority")
	}
}

func TestBlockTransition_SkipsMismatchedBitfield(t *testing.T) {
	c := config.RegtestConfig
	state := genesisState(t, &c, 16)

	att := attestFully(t, state, &c, 1)
	att.AttesterBitfield = primitives.NewAttesterBitfield(5, 0, 1, 2, 3, 4)

	newState, err := beacon.NewBlockTransition(&c).ApplyBlock(blockAt(2, att), state)
	if err != nil {
		t.Fatal(err)
	}
	if newState.LastJustifiedSlot != 0 || newState.Crosslinks[att.ShardID].Slot != 0 {
		t.Fatal("attestation with a bitfield of the wrong size should be skipped")
	}
}

func TestBlockTransition_ShardOutOfRange(t *testing.T) {
	c := config.RegtestConfig
	state := genesisState(t, &c, 16)

	att := attestFully(t, state, &c, 1)
	state.Crosslinks = state.Crosslinks[:att.ShardID]

	_, err := beacon.NewBlockTransition(&c).ApplyBlock(blockAt(2, att), state)
	if errors.Cause(err) != beacon.ErrShardOutOfRange {
		t.Fatalf("expected ErrShardOutOfRange, got %v", err)
	}
}

func TestBlockTransition_Finality(t *testing.T) {
	c := config.RegtestConfig
	state := genesisState(t, &c, 16)
	transition := beacon.NewBlockTransition(&c)

	// every block attests to the slot before it
	for slot := uint64(2); slot <= 11; slot++ {
		var err error
		state, err = transition.ApplyBlock(blockAt(slot, attestFully(t, state, &c, slot-1)), state)
		if err != nil {
			t.Fatal(err)
		}
	}

	if state.LastJustifiedSlot != 10 || state.JustifiedStreak != 10 {
		t.Fatalf("expected slots 1 to 10 to be justified, got %d (streak %d)", state.LastJustifiedSlot, state.JustifiedStreak)
	}
	if state.LastFinalizedSlot != 1 {
		t.Fatalf("expected slot 1 to be finalized, got %d", state.LastFinalizedSlot)
	}
	if state.LastStateRecalc != 8 {
		t.Fatalf("expected cycle recalculation at slot 8, got %d", state.LastStateRecalc)
	}
}

func TestBlockTransition_CycleRecalculation(t *testing.T) {
	c := config.RegtestConfig
	state := genesisState(t, &c, 16)
	transition := beacon.NewBlockTransition(&c)

	sameCycle, err := transition.ApplyBlock(blockAt(7), state)
	if err != nil {
		t.Fatal(err)
	}
	if sameCycle.LastStateRecalc != 0 {
		t.Fatal("expected no recalculation within the first cycle")
	}
	if diff := deep.Equal(sameCycle.Committees, state.Committees); diff != nil {
		t.Fatal("committees changed within a cycle")
	}

	// skipped slots advance whole cycles
	newState, err := transition.ApplyBlock(blockAt(20), state)
	if err != nil {
		t.Fatal(err)
	}
	if newState.LastStateRecalc != 16 {
		t.Fatalf("expected recalculation at slot 16, got %d", newState.LastStateRecalc)
	}
	if len(newState.Committees) != int(c.CycleLength) {
		t.Fatalf("expected committees for %d slots, got %d", c.CycleLength, len(newState.Committees))
	}
	if deep.Equal(newState.Committees, state.Committees) == nil {
		t.Fatal("expected a new shuffling")
	}
	if newState.ValidatorSetChangeSlot != 0 {
		t.Fatal("validator set change should wait for finality and crosslinks")
	}
	if newState.ValidatorSet.Size() != state.ValidatorSet.Size() {
		t.Fatal("validator set should be unchanged")
	}
}

func TestBlockTransition_ValidatorSetChangeRecordsSlot(t *testing.T) {
	c := config.RegtestConfig
	state := genesisState(t, &c, 16).Copy()
	state.LastFinalizedSlot = 5
	for i := range state.Crosslinks {
		state.Crosslinks[i].Slot = 6
	}

	newState, err := beacon.NewBlockTransition(&c).ApplyBlock(blockAt(16), state)
	if err != nil {
		t.Fatal(err)
	}
	if newState.ValidatorSetChangeSlot != 16 {
		t.Fatalf("expected validator set change at slot 16, got %d", newState.ValidatorSetChangeSlot)
	}
	if !newState.ValidatorSet.Equals(state.ValidatorSet) {
		t.Fatal("validator set change should not alter the set")
	}
	if diff := deep.Equal(newState.PreviousCommittees, state.Committees); diff != nil {
		t.Fatal(diff)
	}

	// the next change waits for a newer finalized slot
	again, err := beacon.NewBlockTransition(&c).ApplyBlock(blockAt(32), newState)
	if err != nil {
		t.Fatal(err)
	}
	if again.ValidatorSetChangeSlot != 16 {
		t.Fatalf("expected no change without new finality, got slot %d", again.ValidatorSetChangeSlot)
	}
}

func TestBlockTransition_RepeatedAttestationCountsOnce(t *testing.T) {
	c := config.RegtestConfig
	state := genesisState(t, &c, 16)
	transition := beacon.NewBlockTransition(&c)

	committee := state.Committees[c.SlotOffset(1)][0]
	if len(committee.Validators) != 2 {
		t.Fatalf("expected a committee of 2, got %d", len(committee.Validators))
	}

	first, err := util.Attest(state, &c, 1, committee.ShardID, 0)
	if err != nil {
		t.Fatal(err)
	}

	newState, err := transition.ApplyBlock(blockAt(2, first, first), state)
	if err != nil {
		t.Fatal(err)
	}
	if newState.LastJustifiedSlot != 0 || newState.Crosslinks[committee.ShardID].Slot != 0 {
		t.Fatal("the same attester included twice should only count once")
	}

	second, err := util.Attest(state, &c, 1, committee.ShardID, 1)
	if err != nil {
		t.Fatal(err)
	}

	newState, err = transition.ApplyBlock(blockAt(2, first, second), state)
	if err != nil {
		t.Fatal(err)
	}
	if newState.LastJustifiedSlot != 1 {
		t.Fatalf("expected separate attesters to justify slot 1, got %d", newState.LastJustifiedSlot)
	}
	if newState.Crosslinks[committee.ShardID].Slot != 1 {
		t.Fatal("expected separate attesters to crosslink the shard")
	}
}

func TestBlockTransition_AttestationAcrossCycleBoundary(t *testing.T) {
	c := config.RegtestConfig
	c.ShardCount = 5
	state := genesisState(t, &c, 16)
	transition := beacon.NewBlockTransition(&c)

	att := attestFully(t, state, &c, 7)

	// included right at the boundary
	atBoundary, err := transition.ApplyBlock(blockAt(8, att), state)
	if err != nil {
		t.Fatal(err)
	}

	// included one block later, after the reshuffle
	empty, err := transition.ApplyBlock(blockAt(8), state)
	if err != nil {
		t.Fatal(err)
	}
	if empty.LastStateRecalc != 8 || empty.PreviousStateRecalc != 0 {
		t.Fatalf("expected a recalculation at slot 8, got %d (previous %d)", empty.LastStateRecalc, empty.PreviousStateRecalc)
	}
	if diff := deep.Equal(empty.PreviousCommittees, state.Committees); diff != nil {
		t.Fatal(diff)
	}
	later, err := transition.ApplyBlock(blockAt(9, att), empty)
	if err != nil {
		t.Fatal(err)
	}

	for _, s := range []*primitives.ChainState{atBoundary, later} {
		if s.Crosslinks[att.ShardID].Slot != 7 {
			t.Fatalf("expected crosslink for shard %d at slot 7, got %d", att.ShardID, s.Crosslinks[att.ShardID].Slot)
		}
		if s.LastJustifiedSlot != 7 {
			t.Fatalf("expected slot 7 to be justified, got %d", s.LastJustifiedSlot)
		}
	}

	// two cycles on, the committees of slot 7 are gone
	next, err := transition.ApplyBlock(blockAt(16), empty)
	if err != nil {
		t.Fatal(err)
	}
	tooLate, err := transition.ApplyBlock(blockAt(17, att), next)
	if err != nil {
		t.Fatal(err)
	}
	if tooLate.LastJustifiedSlot != 0 || tooLate.Crosslinks[att.ShardID].Slot != 0 {
		t.Fatal("attestation older than the previous cycle should be skipped")
	}
}

func TestBlockTransition_SkipsInvalidSignature(t *testing.T) {
	c := config.RegtestConfig
	state := genesisState(t, &c, 16)
	transition := beacon.NewBlockTransition(&c)

	otherBlock := attestFully(t, state, &c, 1)
	otherBlock.ShardBlockHash = chainhash.HashH([]byte("another shard block"))

	committee := state.Committees[c.SlotOffset(1)][0]
	extraVoter, err := util.Attest(state, &c, 1, committee.ShardID, 0)
	if err != nil {
		t.Fatal(err)
	}
	extraVoter.AttesterBitfield.SetBitAt(1, true)

	unsigned := attestFully(t, state, &c, 1)
	unsigned.AggregateSig = nil

	for name, att := range map[string]primitives.AttestationRecord{
		"signed another hash": otherBlock,
		"unsigned voter":      extraVoter,
		"no signature":        unsigned,
	} {
		newState, err := transition.ApplyBlock(blockAt(2, att), state)
		if err != nil {
			t.Fatal(err)
		}
		if newState.LastJustifiedSlot != 0 || newState.Crosslinks[att.ShardID].Slot != 0 {
			t.Fatalf("%s: attestation should be skipped", name)
		}
	}
}
