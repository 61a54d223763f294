package service

import (
	"github.com/efreitasn/escrowbook/internal/domain"
	"github.com/efreitasn/escrowbook/internal/engine"
)

// PlaceOrderRequest represents the input for order placement. When
// Facilitator is non-empty the placement is sponsored on the owner's
// behalf and the facilitator must be the book operator.
type PlaceOrderRequest struct {
	Book        string
	Owner       string
	Facilitator string
	Price       uint64
	Quantity    uint64
	Side        string
}

// OrderService validates order requests and hands them to the order
// ledger.
type OrderService struct {
	ledger *engine.OrderLedger
}

// NewOrderService creates a new OrderService.
func NewOrderService(ledger *engine.OrderLedger) *OrderService {
	return &OrderService{ledger: ledger}
}

// InitializeBook creates an order book owned by admin against an
// existing vault.
func (s *OrderService) InitializeBook(admin, vault string) error {
	adminAddr, err := domain.ParseAddress(admin)
	if err != nil {
		return err
	}
	vaultAddr, err := domain.ParseAddress(vault)
	if err != nil {
		return err
	}
	return s.ledger.InitializeBook(adminAddr, vaultAddr)
}

// PlaceOrder validates and places an order, sponsored or direct.
func (s *OrderService) PlaceOrder(req PlaceOrderRequest) (*domain.Order, error) {
	book, err := domain.ParseAddress(req.Book)
	if err != nil {
		return nil, err
	}
	owner, err := domain.ParseAddress(req.Owner)
	if err != nil {
		return nil, err
	}

	side := domain.OrderSide(req.Side)
	if side != domain.OrderSideBid && side != domain.OrderSideAsk {
		return nil, &domain.ValidationError{Message: "side must be 'bid' or 'ask'"}
	}

	if req.Facilitator != "" {
		facilitator, err := domain.ParseAddress(req.Facilitator)
		if err != nil {
			return nil, err
		}
		return s.ledger.PlaceOrderForUser(facilitator, book, owner, req.Price, req.Quantity, side)
	}
	return s.ledger.PlaceOrder(owner, book, req.Price, req.Quantity, side)
}

// CancelOrder cancels the caller's order.
func (s *OrderService) CancelOrder(caller, book string, orderID uint64) (*domain.Order, error) {
	callerAddr, err := domain.ParseAddress(caller)
	if err != nil {
		return nil, err
	}
	bookAddr, err := domain.ParseAddress(book)
	if err != nil {
		return nil, err
	}
	return s.ledger.CancelOrder(callerAddr, bookAddr, orderID)
}

// FillOrder applies an externally matched fill against a maker order.
func (s *OrderService) FillOrder(facilitator, book string, makerOrderID uint64, taker string, fillQuantity uint64) (*domain.Order, error) {
	facAddr, err := domain.ParseAddress(facilitator)
	if err != nil {
		return nil, err
	}
	bookAddr, err := domain.ParseAddress(book)
	if err != nil {
		return nil, err
	}
	takerAddr, err := domain.ParseAddress(taker)
	if err != nil {
		return nil, err
	}
	return s.ledger.FillOrder(facAddr, bookAddr, makerOrderID, takerAddr, fillQuantity)
}

// GetOrder retrieves an order by book and id.
func (s *OrderService) GetOrder(book string, orderID uint64) (*domain.Order, error) {
	bookAddr, err := domain.ParseAddress(book)
	if err != nil {
		return nil, err
	}
	return s.ledger.GetOrder(bookAddr, orderID)
}

// UserOrders returns a user's orders on a book, newest first.
func (s *OrderService) UserOrders(book, user string) ([]*domain.Order, error) {
	bookAddr, err := domain.ParseAddress(book)
	if err != nil {
		return nil, err
	}
	userAddr, err := domain.ParseAddress(user)
	if err != nil {
		return nil, err
	}
	return s.ledger.UserOrders(bookAddr, userAddr)
}

// Depth returns up to n aggregated open price levels per side.
func (s *OrderService) Depth(book string, n int) (bids, asks []engine.PriceLevel, err error) {
	bookAddr, err := domain.ParseAddress(book)
	if err != nil {
		return nil, nil, err
	}
	return s.ledger.Depth(bookAddr, n)
}
