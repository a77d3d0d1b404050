package beacon

import (
	"encoding/binary"

	"github.com/phoreproject/beaconcore/beacon/config"
	"github.com/phoreproject/beaconcore/chainhash"
	"github.com/phoreproject/beaconcore/primitives"
)

const randBytes = 3

// randMax is the largest value a sample of randBytes bytes can take.
const randMax = uint32(1<<(randBytes*8)) - 1

// ShuffleValidators shuffles a copy of an array of validator indices given a
// seed.
func ShuffleValidators(toShuffle []uint32, seed chainhash.Hash) []uint32 {
	shuffled := append([]uint32{}, toShuffle...)
	numValues := len(shuffled)

	source := seed
	index := 0
	for index < numValues-1 {
		source = chainhash.HashH(source[:])
		for position := 0; position < (32 - (32 % randBytes)); position += randBytes {
			remaining := uint32(numValues - index)
			if remaining == 1 {
				break
			}

			sampleFromSource := binary.BigEndian.Uint32(append([]byte{'\x00'}, source[position:position+randBytes]...))

			sampleMax := randMax - randMax%remaining

			if sampleFromSource < sampleMax {
				replacementPos := (sampleFromSource % remaining) + uint32(index)
				shuffled[index], shuffled[replacementPos] = shuffled[replacementPos], shuffled[index]
				index++
			}
		}
	}
	return shuffled
}

// Split splits an array into N different sections.
func Split(l []uint32, splitCount uint32) [][]uint32 {
	out := make([][]uint32, splitCount)
	numItems := uint32(len(l))
	for i := uint32(0); i < splitCount; i++ {
		out[i] = l[(numItems * i / splitCount):(numItems * (i + 1) / splitCount)]
	}
	return out
}

// committeeLayout gets the number of committees assigned to each slot and the
// number of slots a single shard keeps its committee for.
func committeeLayout(numValidators uint64, c *config.Config) (committeesPerSlot uint64, slotsPerCommittee uint64) {
	if numValidators >= c.CycleLength*c.MinCommitteeSize {
		return numValidators/c.CycleLength/(c.MinCommitteeSize*2) + 1, 1
	}

	committeesPerSlot = 1
	slotsPerCommittee = 1
	for numValidators*slotsPerCommittee < c.CycleLength*c.MinCommitteeSize && slotsPerCommittee < c.CycleLength {
		slotsPerCommittee *= 2
	}
	return committeesPerSlot, slotsPerCommittee
}

// GetNewShuffling calculates the new shuffling of validators
// to slots and shards.
func GetNewShuffling(seed chainhash.Hash, activeValidators []uint32, crosslinkingStart uint64, c *config.Config) [][]primitives.Committee {
	committeesPerSlot, slotsPerCommittee := committeeLayout(uint64(len(activeValidators)), c)

	output := make([][]primitives.Committee, c.CycleLength)

	shuffledValidatorIndices := ShuffleValidators(activeValidators, seed)

	validatorsPerSlot := Split(shuffledValidatorIndices, uint32(c.CycleLength))

	for slot, slotIndices := range validatorsPerSlot {
		shardIndices := Split(slotIndices, uint32(committeesPerSlot))

		shardIDStart := crosslinkingStart + uint64(slot)*committeesPerSlot/slotsPerCommittee

		committees := make([]primitives.Committee, len(shardIndices))
		for shardPosition, indices := range shardIndices {
			committees[shardPosition] = primitives.Committee{
				ShardID:    (shardIDStart + uint64(shardPosition)) % c.ShardCount,
				Validators: append([]uint32{}, indices...),
			}
		}

		output[slot] = committees
	}
	return output
}

// NextStartShard gets the shard the next shuffling starts assigning from, the
// one after the last shard of the current shuffling.
func NextStartShard(committees [][]primitives.Committee, c *config.Config) uint64 {
	for i := len(committees) - 1; i >= 0; i-- {
		if n := len(committees[i]); n > 0 {
			return (committees[i][n-1].ShardID + 1) % c.ShardCount
		}
	}
	return 0
}
