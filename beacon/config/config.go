package config

import "time"

// Config is the consensus config for the beacon chain.
type Config struct {
	// Number of slots in each cycle
	CycleLength uint64 `yaml:"cycle_length"`
	// Number of shards
	ShardCount uint64 `yaml:"shard_count"`
	// Minimal number of slots between two adjacent changes of the validator set
	MinValidatorSetChangeInterval uint64 `yaml:"min_validator_set_change_interval"`
	// Minimal number of validators in a shard attestation committee
	MinCommitteeSize uint64 `yaml:"min_committee_size"`
	// Duration of a single slot
	SlotDuration time.Duration `yaml:"slot_duration"`
	// Max number of attestations included into a block
	MaxAttestationCount int `yaml:"max_attestation_count"`
	// Minimal delay in slots for an attestation to be included into a block
	MinAttestationInclusionDelay uint64 `yaml:"min_attestation_inclusion_delay"`
	// Shard id of the beacon chain itself
	BeaconChainShardID uint64 `yaml:"beacon_chain_shard_id"`
}

// MainNetConfig is the config used on the mainnet
var MainNetConfig = Config{
	CycleLength:                   64,
	ShardCount:                    1024,
	MinValidatorSetChangeInterval: 256,
	MinCommitteeSize:              128,
	SlotDuration:                  8 * time.Second,
	MaxAttestationCount:           128,
	MinAttestationInclusionDelay:  4,
	BeaconChainShardID:            0xffffffff,
}

// LocalnetConfig is the config used for testing the blockchain locally
var LocalnetConfig = Config{
	CycleLength:                   16,
	ShardCount:                    32,
	MinValidatorSetChangeInterval: 64,
	MinCommitteeSize:              4,
	SlotDuration:                  4 * time.Second,
	MaxAttestationCount:           128,
	MinAttestationInclusionDelay:  2,
	BeaconChainShardID:            0xffffffff,
}

// RegtestConfig is the config used for unit tests
var RegtestConfig = Config{
	CycleLength:                   8,
	ShardCount:                    4,
	MinValidatorSetChangeInterval: 16,
	MinCommitteeSize:              2,
	SlotDuration:                  2 * time.Second,
	MaxAttestationCount:           16,
	MinAttestationInclusionDelay:  1,
	BeaconChainShardID:            0xffffffff,
}

// NetworkIDs maps a network ID string to the corresponding config.
var NetworkIDs = map[string]Config{
	"localnet": LocalnetConfig,
	"regtest":  RegtestConfig,
	"mainnet":  MainNetConfig,
}

// CycleStartSlot gets the first slot of the cycle the given slot belongs to.
func (c *Config) CycleStartSlot(slot uint64) uint64 {
	return slot - slot%c.CycleLength
}

// SlotOffset gets the position of the slot within its cycle.
func (c *Config) SlotOffset(slot uint64) int {
	return int(slot % c.CycleLength)
}

// NextAssignedSlot calculates the next slot with the given offset after
// currentSlot, in either the current or the next cycle.
func (c *Config) NextAssignedSlot(currentSlot uint64, slotOffset int) uint64 {
	slotInCurrentCycle := c.CycleStartSlot(currentSlot) + uint64(slotOffset)
	if currentSlot >= slotInCurrentCycle {
		return slotInCurrentCycle + c.CycleLength
	}
	return slotInCurrentCycle
}

// SlotStartTime gets the time the given slot starts at.
func (c *Config) SlotStartTime(slot uint64, genesisTime time.Time) time.Time {
	return genesisTime.Add(time.Duration(slot) * c.SlotDuration)
}

// SlotAt gets the slot that the given moment falls into.
func (c *Config) SlotAt(t time.Time, genesisTime time.Time) uint64 {
	if t.Before(genesisTime) {
		return 0
	}
	return uint64(t.Sub(genesisTime) / c.SlotDuration)
}
