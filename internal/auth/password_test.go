package auth

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasherVerify(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	digest, err := h.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !h.Verify("correct horse", digest) {
		t.Fatalf("expected password to verify")
	}
	if h.Verify("battery staple", digest) {
		t.Fatalf("expected different password to fail")
	}
	again, _ := h.Hash("correct horse")
	if again == digest {
		t.Fatalf("expected fresh salt per hash")
	}
}

func TestBcryptHasherMalformedDigest(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	for _, digest := range []string{"", "plain", "$2a$04$short"} {
		if h.Verify("anything", digest) {
			t.Fatalf("malformed digest %q verified", digest)
		}
	}
}

func TestBcryptHasherEmptyAndCost(t *testing.T) {
	if _, err := NewBcryptHasher(bcrypt.MinCost).Hash(""); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
	if got := NewBcryptHasher(0).Cost(); got != bcrypt.DefaultCost {
		t.Fatalf("default cost = %d", got)
	}
	if got := NewBcryptHasher(1).Cost(); got != bcrypt.MinCost {
		t.Fatalf("low cost not clamped: %d", got)
	}
	if got := NewBcryptHasher(99).Cost(); got != bcrypt.MaxCost {
		t.Fatalf("high cost not clamped: %d", got)
	}
}
