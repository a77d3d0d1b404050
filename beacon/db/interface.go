package db

import "errors"

// ErrNotFound is returned when a key is not present in the database.
var ErrNotFound = errors.New("key not found")

// KeyValueStore is a byte-keyed, byte-valued store.
type KeyValueStore interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Put(key []byte, value []byte) error
	Delete(key []byte) error
}

// Database is a very basic interface for pluggable
// databases. Update groups every write done by the callback into one atomic
// commit; if the callback fails, none of its writes become visible.
type Database interface {
	KeyValueStore
	Update(cb func(txn KeyValueStore) error) error
	Close() error
}
