package db_test

import (
	"errors"
	"testing"

	"github.com/phoreproject/beaconcore/beacon/db"
	"github.com/phoreproject/beaconcore/chainhash"
	"github.com/phoreproject/beaconcore/primitives"
)

func testState(t *testing.T) *primitives.ChainState {
	set, err := primitives.NewValidatorSet(primitives.Validator{
		PubKey:            []byte{1, 2, 3},
		WithdrawalShard:   1,
		WithdrawalAddress: []byte{4, 5},
		RandaoCommitment:  chainhash.HashH([]byte("randao")),
	})
	if err != nil {
		t.Fatal(err)
	}
	return &primitives.ChainState{
		LastStateRecalc: 64,
		ValidatorSet:    set,
		Committees:      [][]primitives.Committee{{{ShardID: 0, Validators: []uint32{0}}}, nil},
		Crosslinks:      primitives.EmptyCrosslinks(4),
	}
}

func TestStateStore_InsertGet(t *testing.T) {
	database := db.NewInMemoryDB()
	store, err := db.NewStateStore(database, db.DefaultStateCacheSize)
	if err != nil {
		t.Fatal(err)
	}

	s := testState(t)
	h, err := store.Insert(s)
	if err != nil {
		t.Fatal(err)
	}
	if h != s.Hash() {
		t.Fatal("insert should return the state hash")
	}

	got, err := store.Get(h)
	if err != nil {
		t.Fatal(err)
	}
	if got.Hash() != h {
		t.Fatal("retrieved state hash does not match")
	}

	got.ValidatorSet = primitives.EmptyState().ValidatorSet
	again, err := store.Get(h)
	if err != nil {
		t.Fatal(err)
	}
	if again.ValidatorSet.Size() != 1 {
		t.Fatal("mutating a returned state should not affect the store")
	}

	// a fresh store over the same database decodes from disk
	cold, err := db.NewStateStore(database, db.DefaultStateCacheSize)
	if err != nil {
		t.Fatal(err)
	}
	fromDisk, err := cold.Get(h)
	if err != nil {
		t.Fatal(err)
	}
	if fromDisk.Hash() != h {
		t.Fatal("decoded state hash does not match")
	}
	if !fromDisk.ValidatorSet.Equals(s.ValidatorSet) {
		t.Fatal("decoded validator set does not match")
	}

	if _, err := cold.Get(chainhash.HashH([]byte("missing"))); err != db.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStateStore_Empty(t *testing.T) {
	store, err := db.NewStateStore(db.NewInMemoryDB(), 4)
	if err != nil {
		t.Fatal(err)
	}

	empty := store.GetEmpty()
	h, err := store.Insert(empty)
	if err != nil {
		t.Fatal(err)
	}

	found, err := store.Exist(h)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected empty state to exist")
	}
}

func TestStateStore_AbortedTransaction(t *testing.T) {
	database := db.NewInMemoryDB()
	store, err := db.NewStateStore(database, db.DefaultStateCacheSize)
	if err != nil {
		t.Fatal(err)
	}

	s := testState(t)
	errAbort := errors.New("abort")
	err = database.Update(func(txn db.KeyValueStore) error {
		if _, err := store.WithTx(txn).Insert(s); err != nil {
			return err
		}
		return errAbort
	})
	if err != errAbort {
		t.Fatalf("expected abort error, got %v", err)
	}

	found, err := store.Exist(s.Hash())
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("aborted state should not exist")
	}
}
