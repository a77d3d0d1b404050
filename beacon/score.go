package beacon

import (
	"math/big"

	"github.com/phoreproject/beaconcore/primitives"
)

// ScoreFunction weighs a block and the state it produces for fork choice.
// Higher scores are preferred.
type ScoreFunction func(block *primitives.Block, state *primitives.ChainState) *big.Int

// FinalityScore orders chains by last finalized slot, then by last justified
// slot, then by slot.
func FinalityScore(block *primitives.Block, state *primitives.ChainState) *big.Int {
	score := new(big.Int).SetUint64(state.LastFinalizedSlot)
	score.Lsh(score, 64)
	score.Add(score, new(big.Int).SetUint64(state.LastJustifiedSlot))
	score.Lsh(score, 64)
	return score.Add(score, new(big.Int).SetUint64(block.Slot))
}
