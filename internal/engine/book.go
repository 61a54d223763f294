package engine

import (
	"sync"
	"time"

	"github.com/google/btree"

	"github.com/efreitasn/escrowbook/internal/domain"
)

// bookEntry represents a single open order resting on a book's depth
// index. Price, CreatedAt, and OrderID are immutable, so in-place
// status updates on the order never disturb the tree ordering.
type bookEntry struct {
	Price     uint64
	CreatedAt time.Time
	OrderID   uint64
	Order     *domain.Order
}

// PriceLevel is an aggregated price level in the depth view. Only the
// unfilled remainder of open orders is counted.
type PriceLevel struct {
	Price         uint64
	TotalQuantity uint64
	OrderCount    int
}

// bidLess orders the bid side: price descending, then created_at
// ascending, then order_id ascending, so Min() is the best bid.
func bidLess(a, b bookEntry) bool {
	if a.Price != b.Price {
		return a.Price > b.Price
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.OrderID < b.OrderID
}

// askLess orders the ask side: price ascending, then created_at
// ascending, then order_id ascending, so Min() is the best ask.
func askLess(a, b bookEntry) bool {
	if a.Price != b.Price {
		return a.Price < b.Price
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.OrderID < b.OrderID
}

// Book holds one operator's order ledger state: the monotonic order
// id counter and B-tree depth indexes over open orders, with a
// secondary index for O(log n) removal by order id. The book only
// references its vault by address; vault state stays in the vault.
type Book struct {
	operator  domain.Address
	vault     domain.Address
	createdAt time.Time

	mu          sync.Mutex
	nextOrderID uint64
	bids        *btree.BTreeG[bookEntry]
	asks        *btree.BTreeG[bookEntry]
	index       map[uint64]bookEntry
}

// newBook creates a book for the given operator, trading against the
// given vault.
func newBook(operator, vault domain.Address) *Book {
	const degree = 32
	return &Book{
		operator:  operator,
		vault:     vault,
		createdAt: time.Now().UTC(),
		bids:      btree.NewG[bookEntry](degree, bidLess),
		asks:      btree.NewG[bookEntry](degree, askLess),
		index:     make(map[uint64]bookEntry),
	}
}

// allocateOrderID returns the next monotonic order id. Callers hold mu.
func (b *Book) allocateOrderID() uint64 {
	b.nextOrderID++
	return b.nextOrderID
}

// insert adds an open order to its side's depth index. Callers hold mu.
func (b *Book) insert(o *domain.Order) {
	entry := bookEntry{
		Price:     o.Price,
		CreatedAt: o.CreatedAt,
		OrderID:   o.OrderID,
		Order:     o,
	}
	if o.Side == domain.OrderSideBid {
		b.bids.ReplaceOrInsert(entry)
	} else {
		b.asks.ReplaceOrInsert(entry)
	}
	b.index[o.OrderID] = entry
}

// remove drops an order from the depth indexes. Terminal orders stay
// in the order store; only the depth view forgets them. Callers hold mu.
func (b *Book) remove(orderID uint64) {
	entry, ok := b.index[orderID]
	if !ok {
		return
	}
	delete(b.index, orderID)
	if entry.Order.Side == domain.OrderSideBid {
		b.bids.Delete(entry)
	} else {
		b.asks.Delete(entry)
	}
}

// topLevels aggregates up to n price levels from one side. Callers hold mu.
func topLevels(tree *btree.BTreeG[bookEntry], n int) []PriceLevel {
	levels := make([]PriceLevel, 0, n)
	tree.Ascend(func(e bookEntry) bool {
		remaining := e.Order.Remaining()
		if len(levels) > 0 && levels[len(levels)-1].Price == e.Price {
			levels[len(levels)-1].TotalQuantity += remaining
			levels[len(levels)-1].OrderCount++
			return true
		}
		if len(levels) == n {
			return false
		}
		levels = append(levels, PriceLevel{
			Price:         e.Price,
			TotalQuantity: remaining,
			OrderCount:    1,
		})
		return true
	})
	return levels
}
