package store

import (
	"sync"

	"github.com/efreitasn/escrowbook/internal/domain"
)

// VaultStore is a thread-safe registry of vault accounts keyed by
// operator address. The store only indexes vaults; per-vault state is
// serialized by each VaultAccount's own mutex.
type VaultStore struct {
	mu     sync.RWMutex
	vaults map[domain.Address]*domain.VaultAccount
}

// NewVaultStore creates an empty VaultStore.
func NewVaultStore() *VaultStore {
	return &VaultStore{
		vaults: make(map[domain.Address]*domain.VaultAccount),
	}
}

// Create registers a vault under its operator address. It returns
// domain.ErrAlreadyInitialized if the operator already has a vault.
func (s *VaultStore) Create(v *domain.VaultAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.vaults[v.Operator]; exists {
		return domain.ErrAlreadyInitialized
	}
	s.vaults[v.Operator] = v
	return nil
}

// Get retrieves a vault by operator address. It returns
// domain.ErrNotInitialized if no vault exists there.
func (s *VaultStore) Get(operator domain.Address) (*domain.VaultAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vaults[operator]
	if !ok {
		return nil, domain.ErrNotInitialized
	}
	return v, nil
}
