package chainhash_test

import (
	"testing"

	"github.com/phoreproject/beaconcore/chainhash"
)

func TestHashStringRoundTrip(t *testing.T) {
	h := chainhash.HashH([]byte("beacon"))

	parsed, err := chainhash.NewHashFromStr(h.String())
	if err != nil {
		t.Fatal(err)
	}
	if !parsed.IsEqual(&h) {
		t.Fatalf("expected %s, got %s", h, parsed)
	}
	if len(h.Short()) != 6 {
		t.Fatalf("short form should be 6 characters, got %q", h.Short())
	}
}

func TestHashConcat(t *testing.T) {
	a := []byte{1, 2, 3}
	b := []byte{4, 5}

	if chainhash.HashConcat(a, b) != chainhash.HashH([]byte{1, 2, 3, 4, 5}) {
		t.Fatal("concatenated hash should equal hash of joined bytes")
	}
	if chainhash.HashConcat(a, b) == chainhash.HashConcat(b, a) {
		t.Fatal("hash should depend on order")
	}
}

func TestBytesToHash(t *testing.T) {
	if _, err := chainhash.BytesToHash(make([]byte, 31)); err == nil {
		t.Fatal("expected error for short input")
	}
	h, err := chainhash.BytesToHash(make([]byte, 32))
	if err != nil {
		t.Fatal(err)
	}
	if !h.IsZero() {
		t.Fatal("expected zero hash")
	}
}
