package domain

import "time"

// OrderSide indicates whether an order is a bid (buy) or ask (sell).
type OrderSide string

const (
	OrderSideBid OrderSide = "bid"
	OrderSideAsk OrderSide = "ask"
)

// OrderStatus represents the lifecycle state of an order.
// Filled and Cancelled are terminal.
type OrderStatus string

const (
	OrderStatusOpen            OrderStatus = "open"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

// Order is one entry in a book's append-only order ledger. Orders are
// never deleted; terminal orders remain as the audit trail.
type Order struct {
	OrderID        uint64 // monotonically increasing per book
	Book           Address
	Owner          Address
	Price          uint64
	Quantity       uint64
	FilledQuantity uint64 // always <= Quantity
	Side           OrderSide
	Status         OrderStatus
	CreatedAt      time.Time
	CancelledAt    *time.Time
}

// Remaining returns the unfilled quantity.
func (o *Order) Remaining() uint64 {
	return o.Quantity - o.FilledQuantity
}

// Fillable reports whether the order can still accept fills or be
// cancelled, i.e. it is not in a terminal state.
func (o *Order) Fillable() bool {
	return o.Status == OrderStatusOpen || o.Status == OrderStatusPartiallyFilled
}

// LockAmount returns the vault balance an order of the given shape
// reserves: price x quantity for bids (cash), quantity for asks.
func LockAmount(side OrderSide, price, quantity uint64) (uint64, error) {
	if side == OrderSideBid {
		return CheckedMul(price, quantity)
	}
	return quantity, nil
}
