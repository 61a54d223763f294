package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/efreitasn/escrowbook/internal/domain"
)

// WriteJSON writes a JSON response with the given status code and data.
// Sets Content-Type to application/json before writing the status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data) // Write error intentionally ignored in response helper
}

// errorResponse is the standard error response format.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a standard error response with the given status code,
// error code, and human-readable message.
func WriteError(w http.ResponseWriter, status int, errorCode, message string) {
	WriteJSON(w, status, errorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// ParseJSON decodes the request body as JSON into v, rejecting
// unknown fields. The Content-Type check lives in the contentTypeJSON
// middleware; decode failures carry the decoder's reason so callers
// can tell a typo from a malformed body.
func ParseJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("Invalid JSON body: %v", err)
	}

	return nil
}

// errorStatuses maps each sentinel error to its HTTP status code.
// Validation failures are 400, authorization failures 403, missing
// resources 404, state and balance conflicts 409, rejected
// authorizations 422, arithmetic overflow 500.
var errorStatuses = []struct {
	err    error
	status int
}{
	{domain.ErrUnauthorized, http.StatusForbidden},
	{domain.ErrNotInitialized, http.StatusNotFound},
	{domain.ErrOrderNotFound, http.StatusNotFound},
	{domain.ErrWebhookNotFound, http.StatusNotFound},
	{domain.ErrAlreadyInitialized, http.StatusConflict},
	{domain.ErrInsufficientAvailable, http.StatusConflict},
	{domain.ErrInsufficientLocked, http.StatusConflict},
	{domain.ErrInsufficientShares, http.StatusConflict},
	{domain.ErrInvalidAmount, http.StatusConflict},
	{domain.ErrInvalidOrderState, http.StatusConflict},
	{domain.ErrVaultInactive, http.StatusConflict},
	{domain.ErrExpired, http.StatusUnprocessableEntity},
	{domain.ErrAlreadyUsed, http.StatusUnprocessableEntity},
	{domain.ErrInvalidSignature, http.StatusUnprocessableEntity},
	{domain.ErrArithmeticOverflow, http.StatusInternalServerError},
}

// MapError translates a service error into the standard error
// response. The sentinel's message doubles as the error code.
func MapError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	for _, m := range errorStatuses {
		if errors.Is(err, m.err) {
			WriteError(w, m.status, m.err.Error(), err.Error())
			return
		}
	}
	WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
}
