package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrExpired               = errors.New("expired")
	ErrAlreadyUsed           = errors.New("already_used")
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrNotInitialized        = errors.New("not_initialized")
	ErrAlreadyInitialized    = errors.New("already_initialized")
	ErrInsufficientAvailable = errors.New("insufficient_available")
	ErrInsufficientLocked    = errors.New("insufficient_locked")
	ErrInsufficientShares    = errors.New("insufficient_shares")
	ErrInvalidAmount         = errors.New("invalid_amount")
	ErrInvalidOrderState     = errors.New("invalid_order_state")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrArithmeticOverflow    = errors.New("arithmetic_overflow")
	ErrVaultInactive         = errors.New("vault_inactive")
	ErrOrderNotFound         = errors.New("order_not_found")
	ErrWebhookNotFound       = errors.New("webhook_not_found")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
