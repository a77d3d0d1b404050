package bls

import (
	"io"

	"github.com/phoreproject/beaconcore/chainhash"
	bls "github.com/phoreproject/bls/g2pubs"
)

const (
	// DomainProposal is a signature for proposing a block.
	DomainProposal = iota

	// DomainAttestation is a signature for an attestation.
	DomainAttestation
)

const (
	// SignatureSize is the length of a serialized signature.
	SignatureSize = 48

	// PublicKeySize is the length of a serialized public key.
	PublicKeySize = 96
)

// Signature used in the BLS signature scheme.
type Signature struct {
	s bls.Signature
}

// Serialize gets the binary representation of the
// signature.
func (s Signature) Serialize() []byte {
	out := s.s.Serialize()
	return out[:]
}

// Copy returns a copy of the signature.
func (s Signature) Copy() *Signature {
	c := s.s.Copy()
	return &Signature{*c}
}

// DeserializeSignature deserializes a binary signature
// into the actual signature.
func DeserializeSignature(b []byte) (*Signature, error) {
	var sigBytes [SignatureSize]byte
	if len(b) != SignatureSize {
		return nil, ErrInvalidLength
	}
	copy(sigBytes[:], b)

	s, err := bls.DeserializeSignature(sigBytes)
	if err != nil {
		return nil, err
	}

	return &Signature{s: *s}, nil
}

// IsWellFormed checks if b deserializes to a signature.
func IsWellFormed(b []byte) bool {
	_, err := DeserializeSignature(b)
	return err == nil
}

// SecretKey used in the BLS scheme.
type SecretKey struct {
	s bls.SecretKey
}

// RandSecretKey generates a random key given a byte reader.
func RandSecretKey(r io.Reader) (*SecretKey, error) {
	key, err := bls.RandKey(r)
	if err != nil {
		return nil, err
	}

	return &SecretKey{s: *key}, nil
}

// DerivePublicKey derives a public key from a secret key.
func (s SecretKey) DerivePublicKey() *PublicKey {
	pub := bls.PrivToPub(&s.s)
	return &PublicKey{p: *pub}
}

// PublicKey corresponding to secret key used in the BLS scheme.
type PublicKey struct {
	p bls.PublicKey
}

func (p PublicKey) String() string {
	return p.p.String()
}

// Serialize serializes a public key to bytes.
func (p PublicKey) Serialize() []byte {
	out := p.p.Serialize()
	return out[:]
}

// Equals checks if two public keys are equal.
func (p PublicKey) Equals(other PublicKey) bool {
	return p.p.Equals(other.p)
}

// DeserializePublicKey deserialies a public key from the provided bytes.
func DeserializePublicKey(b []byte) (*PublicKey, error) {
	var pubBytes [PublicKeySize]byte
	if len(b) != PublicKeySize {
		return nil, ErrInvalidLength
	}
	copy(pubBytes[:], b)

	p, err := bls.DeserializePublicKey(pubBytes)
	if err != nil {
		return nil, err
	}
	return &PublicKey{*p}, nil
}

// Hash gets the hash of a pubkey
func (p PublicKey) Hash() chainhash.Hash {
	return chainhash.HashH(p.Serialize())
}

// Sign a message using a secret key.
func Sign(sec *SecretKey, msg []byte, domain uint64) (*Signature, error) {
	s := bls.Sign(msg, &sec.s, domain)
	return &Signature{s: *s}, nil
}

// AggregateSigs puts multiple signatures into one using the underlying
// BLS sum functions.
func AggregateSigs(sigs []*Signature) (*Signature, error) {
	blsSigs := make([]*bls.Signature, len(sigs))
	for i := range sigs {
		blsSigs[i] = &sigs[i].s
	}
	aggSig := bls.AggregateSignatures(blsSigs)
	return &Signature{s: *aggSig}, nil
}

// VerifyAggregateCommon verifies a signature over a common message.
func VerifyAggregateCommon(pubkeys []*PublicKey, msg []byte, signature *Signature, domain uint64) bool {
	blsPubs := make([]*bls.PublicKey, len(pubkeys))
	for i := range pubkeys {
		blsPubs[i] = &pubkeys[i].p
	}

	return signature.s.VerifyAggregateCommon(blsPubs, msg, domain)
}
