package security

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasher_RoundTrip(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	hash, err := h.Hash([]byte("correct horse"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Fatalf("hash does not look like bcrypt: %q", hash)
	}
	if err := h.Compare(hash, []byte("correct horse")); err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if err := h.Compare(hash, []byte("battery staple")); err == nil {
		t.Fatal("Compare accepted the wrong password")
	}
}

func TestHasher_CostClamping(t *testing.T) {
	// Below-range costs must still produce verifiable hashes.
	for _, cost := range []int{-1, 0, 3} {
		h := NewHasher(cost)
		hash, err := h.Hash([]byte("pw"))
		if err != nil {
			t.Fatalf("cost %d: Hash: %v", cost, err)
		}
		if err := h.Compare(hash, []byte("pw")); err != nil {
			t.Fatalf("cost %d: Compare: %v", cost, err)
		}
	}
}

func TestHasher_CompareGarbageHash(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	if err := h.Compare("not-a-bcrypt-hash", []byte("pw")); err == nil {
		t.Fatal("Compare accepted a malformed hash")
	}
}
