package primitives

import (
	"bytes"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
)

// emptyList is the canonical encoding of an empty list. An RLP empty list
// (0xc0) is never produced and is rejected when decoding.
var emptyList = rlp.RawValue{0x00}

// ErrNonCanonicalEmptyList is returned when an empty list is encoded as an
// RLP list instead of the zero byte.
var ErrNonCanonicalEmptyList = errors.New("empty list must be encoded as a single zero byte")

// ErrExpectedList is returned when a list field decodes to a string.
var ErrExpectedList = errors.New("expected list or empty list marker")

// IsEmptyList checks if raw is the zero byte empty list marker.
func IsEmptyList(raw []byte) bool {
	return bytes.Equal(raw, emptyList)
}

func encodeList[T any](items []T) (rlp.RawValue, error) {
	if len(items) == 0 {
		return emptyList, nil
	}
	return rlp.EncodeToBytes(items)
}

func decodeList[T any](raw rlp.RawValue) ([]T, error) {
	if IsEmptyList(raw) {
		return nil, nil
	}
	kind, content, rest, err := rlp.Split(raw)
	if err != nil {
		return nil, err
	}
	if kind != rlp.List || len(rest) != 0 {
		return nil, ErrExpectedList
	}
	if len(content) == 0 {
		return nil, ErrNonCanonicalEmptyList
	}
	var out []T
	if err := rlp.DecodeBytes(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
