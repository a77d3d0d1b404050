package db

import (
	"encoding/binary"

	"github.com/phoreproject/beaconcore/chainhash"
)

var (
	blockPrefix        = []byte("block")
	indexPrefix        = []byte("index")
	slotPrefix         = []byte("slot")
	statePrefix        = []byte("state")
	validatorSetPrefix = []byte("vset")

	canonicalHeadKey      = []byte("canonical_head")
	canonicalHeadScoreKey = []byte("canonical_head_score")
)

func hashKey(prefix []byte, h chainhash.Hash) []byte {
	key := make([]byte, 0, len(prefix)+chainhash.HashSize)
	key = append(key, prefix...)
	return append(key, h[:]...)
}

func slotKey(slot uint64) []byte {
	key := make([]byte, len(slotPrefix)+8)
	copy(key, slotPrefix)
	binary.BigEndian.PutUint64(key[len(slotPrefix):], slot)
	return key
}
