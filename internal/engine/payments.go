package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/escrowbook/internal/crypto"
	"github.com/efreitasn/escrowbook/internal/domain"
	"github.com/efreitasn/escrowbook/internal/store"
)

// Payments executes sponsor-paid transfers from signed off-chain
// authorizations: the facilitator submits, the sender only signs.
type Payments struct {
	nonces *store.NonceStore
	wallet *store.WalletStore
	events *store.EventLog
	now    func() time.Time
}

// NewPayments creates a Payments engine over the given stores.
func NewPayments(nonces *store.NonceStore, wallet *store.WalletStore, events *store.EventLog) *Payments {
	return &Payments{
		nonces: nonces,
		wallet: wallet,
		events: events,
		now:    time.Now,
	}
}

// InitializeNonceStore creates the sender's nonce registry. A sender
// must initialize before their first authorization can execute.
func (e *Payments) InitializeNonceStore(user domain.Address) error {
	return e.nonces.Initialize(user)
}

// IsNonceUsed reports whether the (user, nonce) pair has been consumed.
func (e *Payments) IsNonceUsed(user domain.Address, nonce uint64) bool {
	return e.nonces.IsUsed(user, nonce)
}

// ExecuteTransfer validates and executes a signed transfer
// authorization on behalf of the sender. The facilitator may be any
// caller; authority comes entirely from the signature.
//
// Precondition order is part of the contract: expiry, registry
// existence, replay, then signature. The nonce is burned before the
// funds move, so a transfer that fails on balance still consumes
// the nonce. Re-use is never possible, even for failed submissions.
func (e *Payments) ExecuteTransfer(facilitator domain.Address, auth domain.Authorization) (*domain.TransferReceipt, error) {
	now := e.now()

	if auth.Expired(now) {
		return nil, domain.ErrExpired
	}
	if !e.nonces.Exists(auth.Sender) {
		return nil, domain.ErrNotInitialized
	}
	if e.nonces.IsUsed(auth.Sender, auth.Nonce) {
		return nil, domain.ErrAlreadyUsed
	}
	if !crypto.VerifyStrict(auth.PublicKey, auth.SigningMessage(), auth.Signature) {
		return nil, domain.ErrInvalidSignature
	}

	if err := e.nonces.MarkUsed(auth.Sender, auth.Nonce); err != nil {
		return nil, err
	}

	if err := e.wallet.Transfer(auth.Sender, auth.Recipient, auth.Amount); err != nil {
		// Deliberately no nonce rollback: see above.
		return nil, err
	}

	receipt := &domain.TransferReceipt{
		ReceiptID: uuid.New().String(),
		Sender:    auth.Sender,
		Recipient: auth.Recipient,
		Amount:    auth.Amount,
		Nonce:     auth.Nonce,
		Timestamp: now.UTC(),
	}

	e.events.Append(domain.EventPaymentExecuted, domain.PaymentExecutedPayload{
		Sender:    auth.Sender.String(),
		Recipient: auth.Recipient.String(),
		Amount:    auth.Amount,
		Nonce:     auth.Nonce,
	})
	return receipt, nil
}
