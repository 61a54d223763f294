package store

import (
	"sync"

	"github.com/efreitasn/escrowbook/internal/domain"
)

type orderKey struct {
	book    domain.Address
	orderID uint64
}

type userKey struct {
	book  domain.Address
	owner domain.Address
}

// OrderStore is a thread-safe, append-only store for orders, with a
// primary index by (book, order_id) and a secondary index by
// (book, owner). Orders are never removed, only status-transitioned
// in place by the engine.
type OrderStore struct {
	mu         sync.RWMutex
	orders     map[orderKey]*domain.Order
	userOrders map[userKey][]*domain.Order
}

// NewOrderStore creates an empty OrderStore.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders:     make(map[orderKey]*domain.Order),
		userOrders: make(map[userKey][]*domain.Order),
	}
}

// Create adds an order to the store and appends it to the owner's
// secondary index.
func (s *OrderStore) Create(o *domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders[orderKey{o.Book, o.OrderID}] = o
	uk := userKey{o.Book, o.Owner}
	s.userOrders[uk] = append(s.userOrders[uk], o)
}

// Get retrieves an order by book and id. It returns
// domain.ErrOrderNotFound if the order does not exist.
func (s *OrderStore) Get(book domain.Address, orderID uint64) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[orderKey{book, orderID}]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

// ListByUser returns the user's orders on a book in reverse
// chronological order (newest first).
func (s *OrderStore) ListByUser(book, owner domain.Address) []*domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.userOrders[userKey{book, owner}]
	out := make([]*domain.Order, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, all[i])
	}
	return out
}
