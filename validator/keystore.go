package validator

import (
	"encoding/binary"

	"github.com/phoreproject/beaconcore/beacon"
	"github.com/phoreproject/beaconcore/bls"
	"github.com/phoreproject/beaconcore/chainhash"
	"github.com/phoreproject/beaconcore/primitives"
)

// DefaultRandaoRounds is the length of the randao hash chain generated for
// each validator.
const DefaultRandaoRounds = 1 << 16

type xorshift struct {
	state uint64
}

func (xor *xorshift) Read(b []byte) (int, error) {
	for i := range b {
		x := xor.state
		x ^= x << 13
		x ^= x >> 7
		x ^= x << 17
		b[i] = uint8(x)
		xor.state = x
	}
	return len(b), nil
}

// Keystore is an interface for retrieving keys from a keystore.
type Keystore interface {
	GetKeyForValidator(uint32) *bls.SecretKey
	GetPublicKeyForValidator(uint32) *bls.PublicKey
	GetRandaoForValidator(uint32) *beacon.Randao
}

// RootKeyStore derives the keys and randao hash chains of every validator
// from a single root key. It should be assumed to be insecure and is only
// meant for test networks.
type RootKeyStore struct {
	rootKey      string
	randaoRounds int
}

var _ Keystore = (*RootKeyStore)(nil)

// NewRootKeyStore creates a keystore deriving keys from rootKey.
func NewRootKeyStore(rootKey string, randaoRounds int) *RootKeyStore {
	return &RootKeyStore{rootKey: rootKey, randaoRounds: randaoRounds}
}

func (r *RootKeyStore) derive(purpose string, v uint32) chainhash.Hash {
	var index [4]byte
	binary.BigEndian.PutUint32(index[:], v)
	return chainhash.HashH(append([]byte(r.rootKey+"/"+purpose+"/"), index[:]...))
}

// GetKeyForValidator gets the private key for the given validator ID.
func (r *RootKeyStore) GetKeyForValidator(v uint32) *bls.SecretKey {
	seed := r.derive("key", v)
	s, _ := bls.RandSecretKey(&xorshift{state: binary.BigEndian.Uint64(seed[:8]) | 1})
	return s
}

// GetPublicKeyForValidator gets the public key for the given validator ID.
func (r *RootKeyStore) GetPublicKeyForValidator(v uint32) *bls.PublicKey {
	return r.GetKeyForValidator(v).DerivePublicKey()
}

// GetRandaoForValidator gets the randao hash chain of the given validator ID.
func (r *RootKeyStore) GetRandaoForValidator(v uint32) *beacon.Randao {
	return beacon.NewRandao(r.derive("randao", v), r.randaoRounds)
}

// RegisteredValidator gets the registration of a validator as it appears
// in the validator registry.
func RegisteredValidator(k Keystore, v uint32, withdrawalShard uint64) primitives.Validator {
	return primitives.Validator{
		PubKey:           k.GetPublicKeyForValidator(v).Serialize(),
		WithdrawalShard:  withdrawalShard,
		RandaoCommitment: k.GetRandaoForValidator(v).Commitment(),
	}
}
