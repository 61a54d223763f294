package store

import (
	"errors"
	"testing"

	"github.com/efreitasn/escrowbook/internal/domain"
)

func addr(t *testing.T, s string) domain.Address {
	t.Helper()
	a, err := domain.ParseAddress(s)
	if err != nil {
		t.Fatalf("bad test address %q: %v", s, err)
	}
	return a
}

func TestNonceStore_MarkUsedWithoutInitialize(t *testing.T) {
	s := NewNonceStore()
	user := addr(t, "0x1")

	if err := s.MarkUsed(user, 1); !errors.Is(err, domain.ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestNonceStore_InitializeTwice(t *testing.T) {
	s := NewNonceStore()
	user := addr(t, "0x1")

	if err := s.Initialize(user); err != nil {
		t.Fatalf("first initialize failed: %v", err)
	}
	if err := s.Initialize(user); !errors.Is(err, domain.ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestNonceStore_MarkUsedIsIrrevocable(t *testing.T) {
	s := NewNonceStore()
	user := addr(t, "0x1")

	if err := s.Initialize(user); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	if s.IsUsed(user, 42) {
		t.Fatal("fresh nonce should be unused")
	}
	if err := s.MarkUsed(user, 42); err != nil {
		t.Fatalf("first MarkUsed failed: %v", err)
	}
	if !s.IsUsed(user, 42) {
		t.Fatal("nonce should be used after MarkUsed")
	}
	if err := s.MarkUsed(user, 42); !errors.Is(err, domain.ErrAlreadyUsed) {
		t.Fatalf("expected ErrAlreadyUsed, got %v", err)
	}
}

func TestNonceStore_UsersAreIndependent(t *testing.T) {
	s := NewNonceStore()
	alice := addr(t, "0xa")
	bob := addr(t, "0xb")

	for _, u := range []domain.Address{alice, bob} {
		if err := s.Initialize(u); err != nil {
			t.Fatalf("initialize failed: %v", err)
		}
	}

	if err := s.MarkUsed(alice, 7); err != nil {
		t.Fatalf("MarkUsed failed: %v", err)
	}
	if s.IsUsed(bob, 7) {
		t.Fatal("bob's nonce 7 should be unaffected by alice's")
	}
}
