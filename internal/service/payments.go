package service

import (
	"encoding/hex"
	"strings"

	"github.com/efreitasn/escrowbook/internal/crypto"
	"github.com/efreitasn/escrowbook/internal/domain"
	"github.com/efreitasn/escrowbook/internal/engine"
)

// ExecuteTransferRequest represents the input for a sponsored
// transfer. Addresses, the signature, and the public key are hex
// strings as received on the wire.
type ExecuteTransferRequest struct {
	Facilitator string
	Sender      string
	Recipient   string
	Amount      uint64
	Nonce       uint64
	Expiry      uint64
	Signature   string
	PublicKey   string
}

// PaymentService validates transfer requests and hands them to the
// payments engine.
type PaymentService struct {
	payments *engine.Payments
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(payments *engine.Payments) *PaymentService {
	return &PaymentService{payments: payments}
}

// InitializeNonceStore creates the nonce registry for a user.
func (s *PaymentService) InitializeNonceStore(user string) error {
	addr, err := domain.ParseAddress(user)
	if err != nil {
		return err
	}
	return s.payments.InitializeNonceStore(addr)
}

// IsNonceUsed reports whether a user's nonce has been consumed.
func (s *PaymentService) IsNonceUsed(user string, nonce uint64) (bool, error) {
	addr, err := domain.ParseAddress(user)
	if err != nil {
		return false, err
	}
	return s.payments.IsNonceUsed(addr, nonce), nil
}

// ExecuteTransfer validates the request shape and executes the
// authorization. Semantic failures (expiry, replay, signature,
// balance) come back from the engine as sentinel errors.
func (s *PaymentService) ExecuteTransfer(req ExecuteTransferRequest) (*domain.TransferReceipt, error) {
	facilitator, err := domain.ParseAddress(req.Facilitator)
	if err != nil {
		return nil, err
	}
	sender, err := domain.ParseAddress(req.Sender)
	if err != nil {
		return nil, err
	}
	recipient, err := domain.ParseAddress(req.Recipient)
	if err != nil {
		return nil, err
	}
	if req.Amount == 0 {
		return nil, &domain.ValidationError{Message: "amount must be a positive integer"}
	}

	sig, err := decodeHexField(req.Signature, crypto.SignatureSize, "signature")
	if err != nil {
		return nil, err
	}
	pub, err := decodeHexField(req.PublicKey, crypto.PublicKeySize, "public_key")
	if err != nil {
		return nil, err
	}

	return s.payments.ExecuteTransfer(facilitator, domain.Authorization{
		Sender:    sender,
		Recipient: recipient,
		Amount:    req.Amount,
		Nonce:     req.Nonce,
		Expiry:    req.Expiry,
		Signature: sig,
		PublicKey: pub,
	})
}

// decodeHexField decodes an optionally 0x-prefixed hex string and
// enforces its decoded length.
func decodeHexField(s string, wantLen int, field string) ([]byte, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, &domain.ValidationError{Message: field + " must be valid hex"}
	}
	if len(raw) != wantLen {
		return nil, &domain.ValidationError{Message: field + " has wrong length"}
	}
	return raw, nil
}
