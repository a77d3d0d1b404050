package db

import (
	"github.com/dgraph-io/badger"
	"github.com/pkg/errors"
)

var _ Database = (*BadgerDB)(nil)

// BadgerDB is a wrapper around the badger database.
type BadgerDB struct {
	db *badger.DB
}

// NewBadgerDB initializes the badger database with the supplied directories.
func NewBadgerDB(databaseDir string, databaseValueDir string) (*BadgerDB, error) {
	opts := badger.DefaultOptions(databaseDir)
	opts.ValueDir = databaseValueDir
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "could not open badger database")
	}

	return &BadgerDB{
		db: db,
	}, nil
}

type badgerTxn struct {
	txn *badger.Txn
}

func (t badgerTxn) Get(key []byte) ([]byte, error) {
	i, err := t.txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return i.ValueCopy(nil)
}

func (t badgerTxn) Has(key []byte) (bool, error) {
	_, err := t.txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t badgerTxn) Put(key []byte, value []byte) error {
	return t.txn.Set(key, value)
}

func (t badgerTxn) Delete(key []byte) error {
	return t.txn.Delete(key)
}

// Get gets the value stored at key.
func (b *BadgerDB) Get(key []byte) ([]byte, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		v, err := badgerTxn{txn}.Get(key)
		out = v
		return err
	})
	return out, err
}

// Has checks if key is stored.
func (b *BadgerDB) Has(key []byte) (bool, error) {
	var found bool
	err := b.db.View(func(txn *badger.Txn) error {
		f, err := badgerTxn{txn}.Has(key)
		found = f
		return err
	})
	return found, err
}

// Put stores a single value.
func (b *BadgerDB) Put(key []byte, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// Delete removes a single value.
func (b *BadgerDB) Delete(key []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// Update runs cb inside a read-write transaction and commits it if cb
// succeeds.
func (b *BadgerDB) Update(cb func(txn KeyValueStore) error) error {
	txn := b.db.NewTransaction(true)
	defer txn.Discard()

	if err := cb(badgerTxn{txn}); err != nil {
		return err
	}

	return errors.Wrap(txn.Commit(), "could not commit transaction")
}

// Flush removes all keys from the database.
func (b *BadgerDB) Flush() error {
	return b.db.DropAll()
}

// Close closes the database.
func (b *BadgerDB) Close() error {
	return b.db.Close()
}
