package store

import (
	"sync"

	"github.com/efreitasn/escrowbook/internal/domain"
)

// WalletStore is a thread-safe ledger of plain per-address balances,
// the funds payment authorizations move and vaults take custody of.
// Amounts are in the smallest asset unit.
type WalletStore struct {
	mu       sync.RWMutex
	balances map[domain.Address]uint64
}

// NewWalletStore creates an empty WalletStore.
func NewWalletStore() *WalletStore {
	return &WalletStore{
		balances: make(map[domain.Address]uint64),
	}
}

// Balance returns the address's balance. Unknown addresses hold zero.
func (s *WalletStore) Balance(addr domain.Address) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.balances[addr]
}

// Credit adds amount to the address's balance.
func (s *WalletStore) Credit(addr domain.Address, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := domain.CheckedAdd(s.balances[addr], amount)
	if err != nil {
		return err
	}
	s.balances[addr] = next
	return nil
}

// Debit removes amount from the address's balance. It returns
// domain.ErrInsufficientAvailable if the balance is too low.
func (s *WalletStore) Debit(addr domain.Address, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.debitLocked(addr, amount)
}

// Transfer moves amount from one address to another as a unit: either
// both sides change or neither. A self-transfer is a funded no-op: it
// still requires a sufficient balance but moves nothing.
func (s *WalletStore) Transfer(from, to domain.Address, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if from == to {
		if s.balances[from] < amount {
			return domain.ErrInsufficientAvailable
		}
		return nil
	}

	// Validate the credit side before touching the debit side.
	next, err := domain.CheckedAdd(s.balances[to], amount)
	if err != nil {
		return err
	}
	if err := s.debitLocked(from, amount); err != nil {
		return err
	}
	s.balances[to] = next
	return nil
}

func (s *WalletStore) debitLocked(addr domain.Address, amount uint64) error {
	if s.balances[addr] < amount {
		return domain.ErrInsufficientAvailable
	}
	s.balances[addr] -= amount
	return nil
}
