package domain

import "time"

// EventType identifies one kind of ledger event.
type EventType string

const (
	EventPaymentExecuted EventType = "payment.executed"
	EventDeposited       EventType = "vault.deposited"
	EventWithdrawn       EventType = "vault.withdrawn"
	EventVaultTrade      EventType = "vault.trade"
	EventOrderPlaced     EventType = "order.placed"
	EventOrderFilled     EventType = "order.filled"
	EventOrderCancelled  EventType = "order.cancelled"
)

// Event is one append-only ledger event. Events are emitted
// synchronously with the state change they describe, in operation
// order.
type Event struct {
	EventID   string    `json:"event_id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// PaymentExecutedPayload records a completed sponsor-paid transfer.
type PaymentExecutedPayload struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
	Nonce     uint64 `json:"nonce"`
}

// DepositedPayload records a share mint, whether funds moved through
// the wallet (deposit) or arrived earlier (credit_deposit).
type DepositedPayload struct {
	Vault        string `json:"vault"`
	User         string `json:"user"`
	Amount       uint64 `json:"amount"`
	SharesMinted uint64 `json:"shares_minted"`
}

// WithdrawnPayload records a share burn.
type WithdrawnPayload struct {
	Vault        string `json:"vault"`
	User         string `json:"user"`
	SharesBurned uint64 `json:"shares_burned"`
	Amount       uint64 `json:"amount"`
}

// VaultTradePayload records locked balance settling to another user's
// available balance.
type VaultTradePayload struct {
	Vault  string `json:"vault"`
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// OrderPlacedPayload records a new order and the balance it reserved.
type OrderPlacedPayload struct {
	Book       string `json:"book"`
	OrderID    uint64 `json:"order_id"`
	Owner      string `json:"owner"`
	Price      uint64 `json:"price"`
	Quantity   uint64 `json:"quantity"`
	Side       string `json:"side"`
	LockAmount uint64 `json:"lock_amount"`
}

// OrderFilledPayload records a fill against a resting order.
type OrderFilledPayload struct {
	Book              string `json:"book"`
	OrderID           uint64 `json:"order_id"`
	Taker             string `json:"taker"`
	FillQuantity      uint64 `json:"fill_quantity"`
	RemainingQuantity uint64 `json:"remaining_quantity"`
}

// OrderCancelledPayload records a cancellation and the balance it
// released back to the owner.
type OrderCancelledPayload struct {
	Book           string `json:"book"`
	OrderID        uint64 `json:"order_id"`
	Owner          string `json:"owner"`
	ReleasedAmount uint64 `json:"released_amount"`
}
