package bls

import "errors"

// ErrInvalidLength is returned when serialized keys or signatures have the
// wrong size.
var ErrInvalidLength = errors.New("invalid length for serialized BLS value")
