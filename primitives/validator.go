package primitives

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/phoreproject/beaconcore/chainhash"
)

// Validator is a registered validator. Membership in a validator set implies
// the validator is active.
type Validator struct {
	// BLS public key
	PubKey []byte
	// Shard to withdraw to
	WithdrawalShard uint64
	// Address to withdraw to
	WithdrawalAddress []byte
	// Randao commitment, the tip of the validator's hash-chain
	RandaoCommitment chainhash.Hash
}

// PubKeyHex gets the hex-encoded public key.
func (v *Validator) PubKeyHex() string {
	return hex.EncodeToString(v.PubKey)
}

// Copy copies a validator instance.
func (v *Validator) Copy() Validator {
	newValidator := *v
	newValidator.PubKey = append([]byte(nil), v.PubKey...)
	newValidator.WithdrawalAddress = append([]byte(nil), v.WithdrawalAddress...)
	return newValidator
}

// ValidatorSet is an ordered set of validators, unique by public key.
type ValidatorSet struct {
	validators []Validator
	index      map[string]uint32
}

// NewValidatorSet creates a validator set from the given validators. Later
// duplicates of a public key are rejected.
func NewValidatorSet(validators ...Validator) (*ValidatorSet, error) {
	set := &ValidatorSet{index: make(map[string]uint32)}
	for _, v := range validators {
		if err := set.Add(v); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// Add appends a validator to the set.
func (vs *ValidatorSet) Add(v Validator) error {
	if vs.index == nil {
		vs.index = make(map[string]uint32)
	}
	key := string(v.PubKey)
	if _, found := vs.index[key]; found {
		return fmt.Errorf("validator %s is already in the set", v.PubKeyHex())
	}
	vs.index[key] = uint32(len(vs.validators))
	vs.validators = append(vs.validators, v.Copy())
	return nil
}

// Size gets the number of validators in the set.
func (vs *ValidatorSet) Size() int {
	return len(vs.validators)
}

// Get gets the validator at an index.
func (vs *ValidatorSet) Get(index uint32) (*Validator, bool) {
	if int(index) >= len(vs.validators) {
		return nil, false
	}
	return &vs.validators[index], true
}

// IndexOf gets the index of the validator with the given public key.
func (vs *ValidatorSet) IndexOf(pubKey []byte) (uint32, bool) {
	idx, found := vs.index[string(pubKey)]
	return idx, found
}

// GetByPubKey gets a validator by public key.
func (vs *ValidatorSet) GetByPubKey(pubKey []byte) (*Validator, bool) {
	idx, found := vs.IndexOf(pubKey)
	if !found {
		return nil, false
	}
	return &vs.validators[idx], true
}

// ActiveIndices gets the indices of all active validators.
func (vs *ValidatorSet) ActiveIndices() []uint32 {
	out := make([]uint32, len(vs.validators))
	for i := range out {
		out[i] = uint32(i)
	}
	return out
}

// Validators gets a copy of the validator list.
func (vs *ValidatorSet) Validators() []Validator {
	out := make([]Validator, len(vs.validators))
	for i := range vs.validators {
		out[i] = vs.validators[i].Copy()
	}
	return out
}

// Copy deep-copies the validator set.
func (vs *ValidatorSet) Copy() *ValidatorSet {
	newSet := &ValidatorSet{
		validators: vs.Validators(),
		index:      make(map[string]uint32, len(vs.index)),
	}
	for k, v := range vs.index {
		newSet.index[k] = v
	}
	return newSet
}

// Encode gets the canonical encoding of the validator set.
func (vs *ValidatorSet) Encode() ([]byte, error) {
	return encodeList(vs.validators)
}

// Hash gets the hash of the validator set.
func (vs *ValidatorSet) Hash() chainhash.Hash {
	enc, err := vs.Encode()
	if err != nil {
		panic(err)
	}
	return chainhash.HashH(enc)
}

// Equals checks if two validator sets hold the same validators in the same
// order.
func (vs *ValidatorSet) Equals(other *ValidatorSet) bool {
	if vs.Size() != other.Size() {
		return false
	}
	for i := range vs.validators {
		a, b := &vs.validators[i], &other.validators[i]
		if !bytes.Equal(a.PubKey, b.PubKey) || a.WithdrawalShard != b.WithdrawalShard ||
			!bytes.Equal(a.WithdrawalAddress, b.WithdrawalAddress) || a.RandaoCommitment != b.RandaoCommitment {
			return false
		}
	}
	return true
}

// DecodeValidatorSet decodes a validator set from its canonical encoding.
func DecodeValidatorSet(data []byte) (*ValidatorSet, error) {
	validators, err := decodeList[Validator](rlp.RawValue(data))
	if err != nil {
		return nil, err
	}
	return NewValidatorSet(validators...)
}

// EmptyValidatorSetHash is the hash of a validator set with no validators.
var EmptyValidatorSetHash = chainhash.HashH(emptyList)
