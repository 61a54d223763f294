package store

import (
	"sync"

	"github.com/efreitasn/escrowbook/internal/domain"
)

// NonceStore is a thread-safe registry of consumed authorization
// nonces, keyed by (user, nonce). Used nonces are never released; the
// registry grows monotonically.
type NonceStore struct {
	mu   sync.RWMutex
	used map[domain.Address]map[uint64]bool
}

// NewNonceStore creates an empty NonceStore.
func NewNonceStore() *NonceStore {
	return &NonceStore{
		used: make(map[domain.Address]map[uint64]bool),
	}
}

// Initialize creates the per-user registry. It returns
// domain.ErrAlreadyInitialized if the user already has one.
func (s *NonceStore) Initialize(user domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.used[user]; exists {
		return domain.ErrAlreadyInitialized
	}
	s.used[user] = make(map[uint64]bool)
	return nil
}

// Exists returns true if the user's registry has been initialized.
func (s *NonceStore) Exists(user domain.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.used[user]
	return ok
}

// IsUsed returns true if the nonce has been consumed by the user.
// An uninitialized registry reports every nonce as unused.
func (s *NonceStore) IsUsed(user domain.Address, nonce uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.used[user][nonce]
}

// MarkUsed consumes a nonce. It returns domain.ErrNotInitialized if
// the user has no registry and domain.ErrAlreadyUsed if the nonce was
// consumed before. A consumed nonce never reverts to unused.
func (s *NonceStore) MarkUsed(user domain.Address, nonce uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nonces, ok := s.used[user]
	if !ok {
		return domain.ErrNotInitialized
	}
	if nonces[nonce] {
		return domain.ErrAlreadyUsed
	}
	nonces[nonce] = true
	return nil
}
