package db

import (
	"sync"
)

// InMemoryDB is a map-backed database used for tests and ephemeral nodes.
type InMemoryDB struct {
	data map[string][]byte
	lock *sync.RWMutex
}

var _ Database = &InMemoryDB{}

// NewInMemoryDB initializes a new in-memory DB
func NewInMemoryDB() *InMemoryDB {
	return &InMemoryDB{
		data: make(map[string][]byte),
		lock: new(sync.RWMutex),
	}
}

// Get gets the value stored at key.
func (db *InMemoryDB) Get(key []byte) ([]byte, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()
	v, found := db.data[string(key)]
	if !found {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Has checks if key is stored.
func (db *InMemoryDB) Has(key []byte) (bool, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()
	_, found := db.data[string(key)]
	return found, nil
}

// Put stores a single value.
func (db *InMemoryDB) Put(key []byte, value []byte) error {
	db.lock.Lock()
	defer db.lock.Unlock()
	db.data[string(key)] = append([]byte(nil), value...)
	return nil
}

// Delete removes a single value.
func (db *InMemoryDB) Delete(key []byte) error {
	db.lock.Lock()
	defer db.lock.Unlock()
	delete(db.data, string(key))
	return nil
}

// Update runs cb against an overlay of the database and merges the overlay
// if cb succeeds. Transactions are serialized.
func (db *InMemoryDB) Update(cb func(txn KeyValueStore) error) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	txn := &memoryTxn{
		parent:  db.data,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}

	if err := cb(txn); err != nil {
		return err
	}

	for k := range txn.deletes {
		delete(db.data, k)
	}
	for k, v := range txn.writes {
		db.data[k] = v
	}
	return nil
}

// Close closes the database.
func (db *InMemoryDB) Close() error {
	return nil
}

type memoryTxn struct {
	parent  map[string][]byte
	writes  map[string][]byte
	deletes map[string]struct{}
}

func (t *memoryTxn) Get(key []byte) ([]byte, error) {
	k := string(key)
	if v, found := t.writes[k]; found {
		return append([]byte(nil), v...), nil
	}
	if _, deleted := t.deletes[k]; deleted {
		return nil, ErrNotFound
	}
	if v, found := t.parent[k]; found {
		return append([]byte(nil), v...), nil
	}
	return nil, ErrNotFound
}

func (t *memoryTxn) Has(key []byte) (bool, error) {
	_, err := t.Get(key)
	if err == ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (t *memoryTxn) Put(key []byte, value []byte) error {
	k := string(key)
	delete(t.deletes, k)
	t.writes[k] = append([]byte(nil), value...)
	return nil
}

func (t *memoryTxn) Delete(key []byte) error {
	k := string(key)
	delete(t.writes, k)
	t.deletes[k] = struct{}{}
	return nil
}
