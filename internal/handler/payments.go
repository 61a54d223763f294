package handler

import (
	"net/http"
	"strconv"

	"github.com/efreitasn/escrowbook/internal/service"
	"github.com/go-chi/chi/v5"
)

// PaymentHandler handles HTTP requests for payment endpoints.
type PaymentHandler struct {
	paymentSvc *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentSvc *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc}
}

// executeTransferRequest is the JSON request body for POST /transfers.
type executeTransferRequest struct {
	Facilitator string `json:"facilitator"`
	Sender      string `json:"sender"`
	Recipient   string `json:"recipient"`
	Amount      uint64 `json:"amount"`
	Nonce       uint64 `json:"nonce"`
	Expiry      uint64 `json:"expiry"`
	Signature   string `json:"signature"`
	PublicKey   string `json:"public_key"`
}

// transferReceiptResponse is the JSON response for POST /transfers.
type transferReceiptResponse struct {
	ReceiptID string `json:"receipt_id"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
	Nonce     uint64 `json:"nonce"`
	Timestamp string `json:"timestamp"`
}

// initNonceStoreRequest is the JSON request body for POST /nonces.
type initNonceStoreRequest struct {
	User string `json:"user"`
}

// ExecuteTransfer handles POST /transfers.
func (h *PaymentHandler) ExecuteTransfer(w http.ResponseWriter, r *http.Request) {
	var req executeTransferRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	receipt, err := h.paymentSvc.ExecuteTransfer(service.ExecuteTransferRequest{
		Facilitator: req.Facilitator,
		Sender:      req.Sender,
		Recipient:   req.Recipient,
		Amount:      req.Amount,
		Nonce:       req.Nonce,
		Expiry:      req.Expiry,
		Signature:   req.Signature,
		PublicKey:   req.PublicKey,
	})
	if err != nil {
		MapError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, transferReceiptResponse{
		ReceiptID: receipt.ReceiptID,
		Sender:    receipt.Sender.String(),
		Recipient: receipt.Recipient.String(),
		Amount:    receipt.Amount,
		Nonce:     receipt.Nonce,
		Timestamp: receipt.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
	})
}

// InitializeNonceStore handles POST /nonces.
func (h *PaymentHandler) InitializeNonceStore(w http.ResponseWriter, r *http.Request) {
	var req initNonceStoreRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := h.paymentSvc.InitializeNonceStore(req.User); err != nil {
		MapError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]string{"user": req.User})
}

// GetNonce handles GET /nonces/{user}/{nonce}.
func (h *PaymentHandler) GetNonce(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	nonce, err := strconv.ParseUint(chi.URLParam(r, "nonce"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "nonce must be a non-negative integer")
		return
	}

	used, err := h.paymentSvc.IsNonceUsed(user, nonce)
	if err != nil {
		MapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"user":  user,
		"nonce": nonce,
		"used":  used,
	})
}
