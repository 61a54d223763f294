package engine

import (
	"sync"
	"time"

	"github.com/efreitasn/escrowbook/internal/domain"
	"github.com/efreitasn/escrowbook/internal/store"
)

// OrderLedger maintains per-operator order books. Placing reserves
// vault balance, cancelling releases it, and fills move locked
// balances between counterparties through the vault. There is no
// crossing here: fills come from an external matcher that has already
// reserved the taker's funds.
type OrderLedger struct {
	mu     sync.RWMutex
	books  map[domain.Address]*Book
	vault  *Vault
	orders *store.OrderStore
	events *store.EventLog
}

// NewOrderLedger creates an OrderLedger backed by the given vault
// engine and stores.
func NewOrderLedger(vault *Vault, orders *store.OrderStore, events *store.EventLog) *OrderLedger {
	return &OrderLedger{
		books:  make(map[domain.Address]*Book),
		vault:  vault,
		orders: orders,
		events: events,
	}
}

// InitializeBook creates an order book owned by admin, trading
// against an existing vault.
func (e *OrderLedger) InitializeBook(admin, vault domain.Address) error {
	// The vault must exist before a book can reference it.
	if _, err := e.vault.Info(vault); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.books[admin]; exists {
		return domain.ErrAlreadyInitialized
	}
	e.books[admin] = newBook(admin, vault)
	return nil
}

// snapshotOrder copies an order so callers never hold a pointer into
// ledger state. Mutations happen in place under the book mutex, so
// every order that leaves the engine is copied under that same lock.
func snapshotOrder(o *domain.Order) *domain.Order {
	c := *o
	if o.CancelledAt != nil {
		at := *o.CancelledAt
		c.CancelledAt = &at
	}
	return &c
}

func (e *OrderLedger) getBook(book domain.Address) (*Book, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	b, ok := e.books[book]
	if !ok {
		return nil, domain.ErrNotInitialized
	}
	return b, nil
}

// PlaceOrder places an order signed-and-submitted by its owner.
func (e *OrderLedger) PlaceOrder(owner, book domain.Address, price, quantity uint64, side domain.OrderSide) (*domain.Order, error) {
	b, err := e.getBook(book)
	if err != nil {
		return nil, err
	}
	return e.place(b, owner, price, quantity, side)
}

// PlaceOrderForUser places an order on a user's behalf. Only the book
// operator may sponsor placements; the user's authorization signature
// was verified by the caller that collected it.
func (e *OrderLedger) PlaceOrderForUser(facilitator, book, user domain.Address, price, quantity uint64, side domain.OrderSide) (*domain.Order, error) {
	b, err := e.getBook(book)
	if err != nil {
		return nil, err
	}
	if facilitator != b.operator {
		return nil, domain.ErrUnauthorized
	}
	return e.place(b, user, price, quantity, side)
}

func (e *OrderLedger) place(b *Book, owner domain.Address, price, quantity uint64, side domain.OrderSide) (*domain.Order, error) {
	if side != domain.OrderSideBid && side != domain.OrderSideAsk {
		return nil, &domain.ValidationError{Message: "side must be 'bid' or 'ask'"}
	}
	if price == 0 || quantity == 0 {
		return nil, domain.ErrInvalidAmount
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	lockAmount, err := domain.LockAmount(side, price, quantity)
	if err != nil {
		return nil, err
	}

	// No order exists unless the reservation succeeds.
	if err := e.vault.lockBalance(b.vault, owner, lockAmount); err != nil {
		return nil, err
	}

	order := &domain.Order{
		OrderID:   b.allocateOrderID(),
		Book:      b.operator,
		Owner:     owner,
		Price:     price,
		Quantity:  quantity,
		Side:      side,
		Status:    domain.OrderStatusOpen,
		CreatedAt: time.Now().UTC(),
	}
	e.orders.Create(order)
	b.insert(order)

	e.events.Append(domain.EventOrderPlaced, domain.OrderPlacedPayload{
		Book:       b.operator.String(),
		OrderID:    order.OrderID,
		Owner:      owner.String(),
		Price:      price,
		Quantity:   quantity,
		Side:       string(side),
		LockAmount: lockAmount,
	})
	return snapshotOrder(order), nil
}

// CancelOrder cancels the caller's own open or partially filled
// order, releasing the still-locked remainder back to their available
// balance. Cancelled is terminal.
func (e *OrderLedger) CancelOrder(caller, book domain.Address, orderID uint64) (*domain.Order, error) {
	b, err := e.getBook(book)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	order, err := e.orders.Get(book, orderID)
	if err != nil {
		return nil, err
	}
	if caller != order.Owner {
		return nil, domain.ErrUnauthorized
	}
	if !order.Fillable() {
		return nil, domain.ErrInvalidOrderState
	}

	released, err := domain.LockAmount(order.Side, order.Price, order.Remaining())
	if err != nil {
		return nil, err
	}
	if err := e.vault.unlockBalance(b.vault, order.Owner, released); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order.Status = domain.OrderStatusCancelled
	order.CancelledAt = &now
	b.remove(order.OrderID)

	e.events.Append(domain.EventOrderCancelled, domain.OrderCancelledPayload{
		Book:           b.operator.String(),
		OrderID:        order.OrderID,
		Owner:          order.Owner.String(),
		ReleasedAmount: released,
	})
	return snapshotOrder(order), nil
}

// FillOrder applies an externally matched fill against a resting
// maker order. Only the book operator may submit fills. The taker's
// locked balance must already cover their leg; this engine does not
// create or validate a taker order.
//
// For a bid maker, fill_value moves maker→taker and fill_quantity
// moves taker→maker; for an ask maker the directions swap. Both
// settlements apply as one unit.
func (e *OrderLedger) FillOrder(facilitator, book domain.Address, makerOrderID uint64, taker domain.Address, fillQuantity uint64) (*domain.Order, error) {
	b, err := e.getBook(book)
	if err != nil {
		return nil, err
	}
	if facilitator != b.operator {
		return nil, domain.ErrUnauthorized
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	order, err := e.orders.Get(book, makerOrderID)
	if err != nil {
		return nil, err
	}
	if !order.Fillable() {
		return nil, domain.ErrInvalidOrderState
	}
	if fillQuantity == 0 || fillQuantity > order.Remaining() {
		return nil, domain.ErrInvalidAmount
	}

	fillValue, err := domain.CheckedMul(order.Price, fillQuantity)
	if err != nil {
		return nil, err
	}

	if order.Side == domain.OrderSideBid {
		// Maker pays value from escrow, receives quantity.
		err = e.vault.settleSwap(b.vault, order.Owner, taker, fillValue, fillQuantity)
	} else {
		// Maker delivers quantity from escrow, receives value.
		err = e.vault.settleSwap(b.vault, order.Owner, taker, fillQuantity, fillValue)
	}
	if err != nil {
		return nil, err
	}

	order.FilledQuantity += fillQuantity
	if order.Remaining() == 0 {
		order.Status = domain.OrderStatusFilled
		b.remove(order.OrderID)
	} else {
		order.Status = domain.OrderStatusPartiallyFilled
	}

	e.events.Append(domain.EventOrderFilled, domain.OrderFilledPayload{
		Book:              b.operator.String(),
		OrderID:           order.OrderID,
		Taker:             taker.String(),
		FillQuantity:      fillQuantity,
		RemainingQuantity: order.Remaining(),
	})
	return snapshotOrder(order), nil
}

// GetOrder retrieves an order by book and id. The returned order is a
// copy taken under the book mutex, never a live ledger pointer.
func (e *OrderLedger) GetOrder(book domain.Address, orderID uint64) (*domain.Order, error) {
	b, err := e.getBook(book)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	order, err := e.orders.Get(book, orderID)
	if err != nil {
		return nil, err
	}
	return snapshotOrder(order), nil
}

// UserOrders returns copies of a user's orders on a book, newest
// first.
func (e *OrderLedger) UserOrders(book, user domain.Address) ([]*domain.Order, error) {
	b, err := e.getBook(book)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	live := e.orders.ListByUser(book, user)
	out := make([]*domain.Order, len(live))
	for i, o := range live {
		out[i] = snapshotOrder(o)
	}
	return out, nil
}

// Depth returns up to n aggregated price levels per side.
func (e *OrderLedger) Depth(book domain.Address, n int) (bids, asks []PriceLevel, err error) {
	b, err := e.getBook(book)
	if err != nil {
		return nil, nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return topLevels(b.bids, n), topLevels(b.asks, n), nil
}
