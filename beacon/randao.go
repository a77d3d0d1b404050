package beacon

import (
	"github.com/pkg/errors"

	"github.com/phoreproject/beaconcore/chainhash"
)

// ErrUnknownRandaoImage is returned when revealing an image that is not part
// of the hash chain or has no preimage left.
var ErrUnknownRandaoImage = errors.New("image is not part of the randao hash chain")

// Randao is a hash chain built from a secret seed. The last image is
// published as the validator's commitment and every reveal walks one step
// back towards the seed.
type Randao struct {
	images []chainhash.Hash
	index  map[chainhash.Hash]int
}

// NewRandao builds a hash chain of the given length on top of seed.
func NewRandao(seed chainhash.Hash, rounds int) *Randao {
	if rounds < 1 {
		rounds = 1
	}
	r := &Randao{
		images: make([]chainhash.Hash, rounds),
		index:  make(map[chainhash.Hash]int, rounds),
	}
	r.images[0] = seed
	r.index[seed] = 0
	for i := 1; i < rounds; i++ {
		r.images[i] = chainhash.HashH(r.images[i-1][:])
		r.index[r.images[i]] = i
	}
	return r
}

// Commitment gets the tip of the hash chain.
func (r *Randao) Commitment() chainhash.Hash {
	return r.images[len(r.images)-1]
}

// Reveal gets the preimage of an image.
func (r *Randao) Reveal(image chainhash.Hash) (chainhash.Hash, error) {
	i, found := r.index[image]
	if !found || i == 0 {
		return chainhash.Hash{}, errors.Wrapf(ErrUnknownRandaoImage, "image %s", image.Short())
	}
	return r.images[i-1], nil
}
