// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainhash

import (
	"encoding/hex"
	"fmt"
)

// HashSize of array used to store hashes.
const HashSize = 32

// ZeroHash is the hash with all bytes set to zero. The genesis sentinel uses
// it as both its own hash and its parent hash.
var ZeroHash Hash

// Hash is used in several of the beacon messages and common structures. It
// typically represents the blake2b-256 digest of data.
type Hash [HashSize]byte

// String returns the Hash as a hex string.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Short returns the first 6 hex characters of the hash for log lines.
func (h Hash) Short() string {
	return h.String()[:6]
}

// CloneBytes returns a copy of the bytes which represent the hash as a byte
// slice.
func (h *Hash) CloneBytes() []byte {
	newHash := make([]byte, HashSize)
	copy(newHash, h[:])

	return newHash
}

// SetBytes sets the bytes which represent the hash. An error is returned if
// the number of bytes passed in is not HashSize.
func (h *Hash) SetBytes(newHash []byte) error {
	nhlen := len(newHash)
	if nhlen != HashSize {
		return fmt.Errorf("invalid hash length of %v, want %v", nhlen,
			HashSize)
	}
	copy(h[:], newHash)

	return nil
}

// IsEqual returns true if target is the same as hash.
func (h *Hash) IsEqual(target *Hash) bool {
	if h == nil && target == nil {
		return true
	}
	if h == nil || target == nil {
		return false
	}
	return *h == *target
}

// IsZero returns true if every byte of the hash is zero.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// NewHash returns a new Hash from a byte slice. An error is returned if
// the number of bytes passed in is not HashSize.
func NewHash(newHash []byte) (*Hash, error) {
	var sh Hash
	err := sh.SetBytes(newHash)
	if err != nil {
		return nil, err
	}
	return &sh, err
}

// NewHashFromStr creates a Hash from a hex string.
func NewHashFromStr(hash string) (*Hash, error) {
	ret := new(Hash)
	err := Decode(ret, hash)
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Decode decodes the hex encoding of a hash to a destination.
func Decode(dst *Hash, src string) error {
	if len(src) != HashSize*2 {
		return fmt.Errorf("invalid hash string length of %v, want %v", len(src), HashSize*2)
	}
	b, err := hex.DecodeString(src)
	if err != nil {
		return err
	}
	copy(dst[:], b)
	return nil
}
