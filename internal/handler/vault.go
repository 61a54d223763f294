package handler

import (
	"net/http"
	"strconv"

	"github.com/efreitasn/escrowbook/internal/service"
	"github.com/go-chi/chi/v5"
)

// VaultHandler handles HTTP requests for vault and wallet endpoints.
type VaultHandler struct {
	vaultSvc *service.VaultService
}

// NewVaultHandler creates a new VaultHandler.
func NewVaultHandler(vaultSvc *service.VaultService) *VaultHandler {
	return &VaultHandler{vaultSvc: vaultSvc}
}

// initVaultRequest is the JSON request body for POST /vaults.
type initVaultRequest struct {
	Admin           string `json:"admin"`
	ReferenceTrader string `json:"reference_trader"`
}

// depositRequest is the JSON request body for POST /vaults/{vault}/deposits.
type depositRequest struct {
	User   string `json:"user"`
	Amount uint64 `json:"amount"`
}

// creditDepositRequest is the JSON request body for POST /vaults/{vault}/credits.
type creditDepositRequest struct {
	Facilitator string `json:"facilitator"`
	User        string `json:"user"`
	Amount      uint64 `json:"amount"`
}

// withdrawRequest is the JSON request body for POST /vaults/{vault}/withdrawals.
type withdrawRequest struct {
	User   string `json:"user"`
	Shares uint64 `json:"shares"`
}

// fundRequest is the JSON request body for POST /wallets/{address}/fund.
type fundRequest struct {
	Caller string `json:"caller"`
	Amount uint64 `json:"amount"`
}

// vaultInfoResponse is the JSON response for GET /vaults/{vault}.
type vaultInfoResponse struct {
	Operator        string `json:"operator"`
	ReferenceTrader string `json:"reference_trader"`
	TotalDeposits   uint64 `json:"total_deposits"`
	TotalShares     uint64 `json:"total_shares"`
	IsActive        bool   `json:"is_active"`
	CreatedAt       string `json:"created_at"`
}

// balancesResponse is the JSON response for GET /vaults/{vault}/users/{user}/balances.
type balancesResponse struct {
	Available uint64 `json:"available_balance"`
	Locked    uint64 `json:"locked_balance"`
	Total     uint64 `json:"total_balance"`
}

// Initialize handles POST /vaults.
func (h *VaultHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	var req initVaultRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := h.vaultSvc.InitializeVault(req.Admin, req.ReferenceTrader); err != nil {
		MapError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]string{"vault": req.Admin})
}

// Deposit handles POST /vaults/{vault}/deposits.
func (h *VaultHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	vault := chi.URLParam(r, "vault")

	var req depositRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := h.vaultSvc.Deposit(req.User, vault, req.Amount); err != nil {
		MapError(w, err)
		return
	}

	shares, err := h.vaultSvc.UserShares(vault, req.User)
	if err != nil {
		MapError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]uint64{"shares": shares})
}

// CreditDeposit handles POST /vaults/{vault}/credits.
func (h *VaultHandler) CreditDeposit(w http.ResponseWriter, r *http.Request) {
	vault := chi.URLParam(r, "vault")

	var req creditDepositRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := h.vaultSvc.CreditDeposit(req.Facilitator, vault, req.User, req.Amount); err != nil {
		MapError(w, err)
		return
	}

	shares, err := h.vaultSvc.UserShares(vault, req.User)
	if err != nil {
		MapError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]uint64{"shares": shares})
}

// Withdraw handles POST /vaults/{vault}/withdrawals.
func (h *VaultHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	vault := chi.URLParam(r, "vault")

	var req withdrawRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	amount, err := h.vaultSvc.Withdraw(req.User, vault, req.Shares)
	if err != nil {
		MapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]uint64{"amount": amount})
}

// Info handles GET /vaults/{vault}.
func (h *VaultHandler) Info(w http.ResponseWriter, r *http.Request) {
	vault := chi.URLParam(r, "vault")

	info, err := h.vaultSvc.Info(vault)
	if err != nil {
		MapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, vaultInfoResponse{
		Operator:        info.Operator.String(),
		ReferenceTrader: info.ReferenceTrader.String(),
		TotalDeposits:   info.TotalDeposits,
		TotalShares:     info.TotalShares,
		IsActive:        info.IsActive,
		CreatedAt:       info.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	})
}

// UserShares handles GET /vaults/{vault}/users/{user}/shares.
func (h *VaultHandler) UserShares(w http.ResponseWriter, r *http.Request) {
	vault := chi.URLParam(r, "vault")
	user := chi.URLParam(r, "user")

	shares, err := h.vaultSvc.UserShares(vault, user)
	if err != nil {
		MapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]uint64{"shares": shares})
}

// Balances handles GET /vaults/{vault}/users/{user}/balances.
func (h *VaultHandler) Balances(w http.ResponseWriter, r *http.Request) {
	vault := chi.URLParam(r, "vault")
	user := chi.URLParam(r, "user")

	available, locked, total, err := h.vaultSvc.Balances(vault, user)
	if err != nil {
		MapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, balancesResponse{
		Available: available,
		Locked:    locked,
		Total:     total,
	})
}

// ShareValue handles GET /vaults/{vault}/share-value?shares=N.
func (h *VaultHandler) ShareValue(w http.ResponseWriter, r *http.Request) {
	vault := chi.URLParam(r, "vault")

	shares, err := strconv.ParseUint(r.URL.Query().Get("shares"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "shares query parameter must be a non-negative integer")
		return
	}

	value, err := h.vaultSvc.ShareValue(vault, shares)
	if err != nil {
		MapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]uint64{"value": value})
}

// Fund handles POST /wallets/{address}/fund.
func (h *VaultHandler) Fund(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "address")

	var req fundRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := h.vaultSvc.Fund(req.Caller, target, req.Amount); err != nil {
		MapError(w, err)
		return
	}

	balance, err := h.vaultSvc.WalletBalance(target)
	if err != nil {
		MapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]uint64{"balance": balance})
}

// WalletBalance handles GET /wallets/{address}.
func (h *VaultHandler) WalletBalance(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	balance, err := h.vaultSvc.WalletBalance(address)
	if err != nil {
		MapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]uint64{"balance": balance})
}
