package handler

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/efreitasn/escrowbook/internal/crypto"
	"github.com/efreitasn/escrowbook/internal/domain"
	"github.com/efreitasn/escrowbook/internal/engine"
	"github.com/efreitasn/escrowbook/internal/service"
	"github.com/efreitasn/escrowbook/internal/store"
)

const (
	adminAddr = "0x00000000000000000000000000000000000000000000000000000000000000a1"
	aliceAddr = "0x00000000000000000000000000000000000000000000000000000000000000a2"
	bobAddr   = "0x00000000000000000000000000000000000000000000000000000000000000a3"
)

// testEnv bundles all dependencies for handler integration tests.
type testEnv struct {
	router http.Handler
	events *store.EventLog
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	wallet := store.NewWalletStore()
	events := store.NewEventLog()
	vault := engine.NewVault(store.NewVaultStore(), wallet, events)
	payments := engine.NewPayments(store.NewNonceStore(), wallet, events)
	ledger := engine.NewOrderLedger(vault, store.NewOrderStore(), events)

	paymentSvc := service.NewPaymentService(payments)
	vaultSvc, err := service.NewVaultService(vault, wallet, "")
	if err != nil {
		t.Fatalf("new vault service: %v", err)
	}
	orderSvc := service.NewOrderService(ledger)
	webhookSvc := service.NewWebhookService(store.NewWebhookStore(), 5*time.Second)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(paymentSvc, vaultSvc, orderSvc, webhookSvc, events, logger)

	return &testEnv{router: router, events: events}
}

// doJSON sends a JSON request and returns the recorder.
func (env *testEnv) doJSON(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

// doRaw sends a raw request with optional content-type override.
func (env *testEnv) doRaw(t *testing.T, method, path, contentType, rawBody string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(rawBody))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

// decodeJSON decodes the response body into v.
func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rr.Body.String())
	}
}

// fund seeds an address's wallet via the API.
func (env *testEnv) fund(t *testing.T, addr string, amount uint64) {
	t.Helper()
	rr := env.doJSON(t, "POST", "/wallets/"+addr+"/fund", map[string]any{
		"caller": addr,
		"amount": amount,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("fund %s: expected 200, got %d: %s", addr, rr.Code, rr.Body.String())
	}
}

// setupVault initializes an admin vault via the API.
func (env *testEnv) setupVault(t *testing.T) {
	t.Helper()
	rr := env.doJSON(t, "POST", "/vaults", map[string]any{
		"admin":            adminAddr,
		"reference_trader": adminAddr,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("init vault: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
}

// setupBook initializes the admin's book on top of the vault.
func (env *testEnv) setupBook(t *testing.T) {
	t.Helper()
	env.setupVault(t)
	rr := env.doJSON(t, "POST", "/books", map[string]any{
		"admin": adminAddr,
		"vault": adminAddr,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("init book: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
}

// depositFor funds addr's wallet and deposits it into the admin vault.
func (env *testEnv) depositFor(t *testing.T, addr string, amount uint64) {
	t.Helper()
	env.fund(t, addr, amount)
	rr := env.doJSON(t, "POST", "/vaults/"+adminAddr+"/deposits", map[string]any{
		"user":   addr,
		"amount": amount,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("deposit for %s: expected 201, got %d: %s", addr, rr.Code, rr.Body.String())
	}
}

// placeOrder places an order via the API and returns the decoded response.
func (env *testEnv) placeOrder(t *testing.T, owner, side string, price, qty uint64) map[string]any {
	t.Helper()
	rr := env.doJSON(t, "POST", "/books/"+adminAddr+"/orders", map[string]any{
		"owner":    owner,
		"side":     side,
		"price":    price,
		"quantity": qty,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("place order: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	decodeJSON(t, rr, &resp)
	return resp
}

// --- Health check ---

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rr := env.doJSON(t, "GET", "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["status"] != "ok" {
		t.Errorf("got status %q, want ok", resp["status"])
	}
}

// --- Content-Type middleware ---

func TestPost_MissingContentType(t *testing.T) {
	env := newTestEnv(t)

	rr := env.doRaw(t, "POST", "/vaults", "", `{"admin":"0x1"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["error"] != "invalid_request" {
		t.Errorf("got error %q, want invalid_request", resp["error"])
	}
}

func TestPost_MalformedJSON(t *testing.T) {
	env := newTestEnv(t)

	rr := env.doRaw(t, "POST", "/vaults", "application/json", `{not json`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

// --- Transfer endpoints ---

func TestExecuteTransfer_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, aliceAddr, 1_000)

	rr := env.doJSON(t, "POST", "/nonces", map[string]any{"user": aliceAddr})
	if rr.Code != http.StatusCreated {
		t.Fatalf("init nonces: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	sender, err := domain.ParseAddress(aliceAddr)
	if err != nil {
		t.Fatalf("parse sender: %v", err)
	}
	recipient, err := domain.ParseAddress(bobAddr)
	if err != nil {
		t.Fatalf("parse recipient: %v", err)
	}
	pub, priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	auth := domain.Authorization{
		Sender:    sender,
		Recipient: recipient,
		Amount:    400,
		Nonce:     7,
		Expiry:    uint64(time.Now().Add(time.Hour).Unix()),
	}
	sig := crypto.Sign(priv, auth.SigningMessage())

	rr = env.doJSON(t, "POST", "/transfers", map[string]any{
		"facilitator": adminAddr,
		"sender":      aliceAddr,
		"recipient":   bobAddr,
		"amount":      400,
		"nonce":       7,
		"expiry":      auth.Expiry,
		"signature":   "0x" + hex.EncodeToString(sig),
		"public_key":  "0x" + hex.EncodeToString(pub),
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("transfer: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	decodeJSON(t, rr, &resp)
	if resp["amount"] != float64(400) {
		t.Errorf("got amount %v, want 400", resp["amount"])
	}
	if resp["receipt_id"] == "" {
		t.Error("expected non-empty receipt_id")
	}

	// Recipient's wallet got the funds.
	rr = env.doJSON(t, "GET", "/wallets/"+bobAddr, nil)
	var balance map[string]uint64
	decodeJSON(t, rr, &balance)
	if balance["balance"] != 400 {
		t.Errorf("got recipient balance %d, want 400", balance["balance"])
	}

	// The nonce now reads used.
	rr = env.doJSON(t, "GET", fmt.Sprintf("/nonces/%s/%d", aliceAddr, 7), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get nonce: expected 200, got %d", rr.Code)
	}
	var nonceResp map[string]any
	decodeJSON(t, rr, &nonceResp)
	if nonceResp["used"] != true {
		t.Error("expected nonce to be used")
	}
}

func TestExecuteTransfer_BadSignature_422(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, aliceAddr, 1_000)
	env.doJSON(t, "POST", "/nonces", map[string]any{"user": aliceAddr})

	pub, _, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	rr := env.doJSON(t, "POST", "/transfers", map[string]any{
		"facilitator": adminAddr,
		"sender":      aliceAddr,
		"recipient":   bobAddr,
		"amount":      400,
		"nonce":       7,
		"expiry":      uint64(time.Now().Add(time.Hour).Unix()),
		"signature":   "0x" + hex.EncodeToString(make([]byte, crypto.SignatureSize)),
		"public_key":  "0x" + hex.EncodeToString(pub),
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["error"] != "invalid_signature" {
		t.Errorf("got error %q, want invalid_signature", resp["error"])
	}
}

func TestInitNonceStore_Twice_409(t *testing.T) {
	env := newTestEnv(t)

	env.doJSON(t, "POST", "/nonces", map[string]any{"user": aliceAddr})
	rr := env.doJSON(t, "POST", "/nonces", map[string]any{"user": aliceAddr})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

// --- Vault endpoints ---

func TestVault_DepositWithdrawFlow(t *testing.T) {
	env := newTestEnv(t)
	env.setupVault(t)
	env.depositFor(t, aliceAddr, 1_000)

	rr := env.doJSON(t, "GET", "/vaults/"+adminAddr, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("vault info: expected 200, got %d", rr.Code)
	}
	var info map[string]any
	decodeJSON(t, rr, &info)
	if info["total_deposits"] != float64(1_000) {
		t.Errorf("got total_deposits %v, want 1000", info["total_deposits"])
	}
	if info["is_active"] != true {
		t.Error("expected is_active=true")
	}

	rr = env.doJSON(t, "GET", "/vaults/"+adminAddr+"/users/"+aliceAddr+"/shares", nil)
	var shares map[string]uint64
	decodeJSON(t, rr, &shares)
	if shares["shares"] != 1_000 {
		t.Errorf("got shares %d, want 1000", shares["shares"])
	}

	rr = env.doJSON(t, "GET", "/vaults/"+adminAddr+"/users/"+aliceAddr+"/balances", nil)
	var balances map[string]uint64
	decodeJSON(t, rr, &balances)
	if balances["available_balance"] != 1_000 || balances["locked_balance"] != 0 {
		t.Errorf("got balances %v, want available=1000 locked=0", balances)
	}

	rr = env.doJSON(t, "GET", "/vaults/"+adminAddr+"/share-value?shares=500", nil)
	var value map[string]uint64
	decodeJSON(t, rr, &value)
	if value["value"] != 500 {
		t.Errorf("got share value %d, want 500", value["value"])
	}

	rr = env.doJSON(t, "POST", "/vaults/"+adminAddr+"/withdrawals", map[string]any{
		"user":   aliceAddr,
		"shares": 1_000,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("withdraw: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var withdrawn map[string]uint64
	decodeJSON(t, rr, &withdrawn)
	if withdrawn["amount"] != 1_000 {
		t.Errorf("got withdrawn amount %d, want 1000", withdrawn["amount"])
	}
}

func TestVault_NotInitialized_404(t *testing.T) {
	env := newTestEnv(t)

	rr := env.doJSON(t, "GET", "/vaults/"+adminAddr, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestVault_DepositWithoutFunds_409(t *testing.T) {
	env := newTestEnv(t)
	env.setupVault(t)

	rr := env.doJSON(t, "POST", "/vaults/"+adminAddr+"/deposits", map[string]any{
		"user":   aliceAddr,
		"amount": 100,
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["error"] != "insufficient_available" {
		t.Errorf("got error %q, want insufficient_available", resp["error"])
	}
}

func TestVault_CreditDepositWrongFacilitator_403(t *testing.T) {
	env := newTestEnv(t)
	env.setupVault(t)

	rr := env.doJSON(t, "POST", "/vaults/"+adminAddr+"/credits", map[string]any{
		"facilitator": aliceAddr,
		"user":        aliceAddr,
		"amount":      100,
	})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rr.Code, rr.Body.String())
	}
}

// --- Order book endpoints ---

func TestOrders_PlaceGetCancel(t *testing.T) {
	env := newTestEnv(t)
	env.setupBook(t)
	env.depositFor(t, aliceAddr, 10_000)

	placed := env.placeOrder(t, aliceAddr, "bid", 50, 10)
	if placed["status"] != "open" {
		t.Errorf("got status %v, want open", placed["status"])
	}
	orderID := placed["order_id"].(float64)

	rr := env.doJSON(t, "GET", fmt.Sprintf("/books/%s/orders/%d", adminAddr, int(orderID)), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get order: expected 200, got %d", rr.Code)
	}

	// Bid locked price*qty.
	rr = env.doJSON(t, "GET", "/vaults/"+adminAddr+"/users/"+aliceAddr+"/balances", nil)
	var balances map[string]uint64
	decodeJSON(t, rr, &balances)
	if balances["locked_balance"] != 500 {
		t.Errorf("got locked %d, want 500", balances["locked_balance"])
	}

	// Cancel requires the caller query param.
	rr = env.doJSON(t, "DELETE", fmt.Sprintf("/books/%s/orders/%d", adminAddr, int(orderID)), nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("cancel without caller: expected 400, got %d", rr.Code)
	}

	// Only the owner may cancel.
	rr = env.doJSON(t, "DELETE", fmt.Sprintf("/books/%s/orders/%d?caller=%s", adminAddr, int(orderID), bobAddr), nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("cancel as stranger: expected 403, got %d", rr.Code)
	}

	rr = env.doJSON(t, "DELETE", fmt.Sprintf("/books/%s/orders/%d?caller=%s", adminAddr, int(orderID), aliceAddr), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var cancelled map[string]any
	decodeJSON(t, rr, &cancelled)
	if cancelled["status"] != "cancelled" {
		t.Errorf("got status %v, want cancelled", cancelled["status"])
	}
	if cancelled["cancelled_at"] == nil {
		t.Error("expected cancelled_at to be set")
	}
}

func TestOrders_FillFlow(t *testing.T) {
	env := newTestEnv(t)
	env.setupBook(t)
	env.depositFor(t, aliceAddr, 10_000)
	env.depositFor(t, bobAddr, 10_000)

	placed := env.placeOrder(t, aliceAddr, "bid", 50, 10)
	orderID := int(placed["order_id"].(float64))

	// Taker needs a locked reservation: bob places a matching ask.
	env.placeOrder(t, bobAddr, "ask", 50, 10)

	rr := env.doJSON(t, "POST", fmt.Sprintf("/books/%s/orders/%d/fills", adminAddr, orderID), map[string]any{
		"facilitator":   adminAddr,
		"taker":         bobAddr,
		"fill_quantity": 10,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("fill: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var filled map[string]any
	decodeJSON(t, rr, &filled)
	if filled["status"] != "filled" {
		t.Errorf("got status %v, want filled", filled["status"])
	}
	if filled["remaining_quantity"] != float64(0) {
		t.Errorf("got remaining %v, want 0", filled["remaining_quantity"])
	}
}

func TestOrders_FillWrongFacilitator_403(t *testing.T) {
	env := newTestEnv(t)
	env.setupBook(t)
	env.depositFor(t, aliceAddr, 10_000)

	placed := env.placeOrder(t, aliceAddr, "bid", 50, 10)
	orderID := int(placed["order_id"].(float64))

	rr := env.doJSON(t, "POST", fmt.Sprintf("/books/%s/orders/%d/fills", adminAddr, orderID), map[string]any{
		"facilitator":   bobAddr,
		"taker":         bobAddr,
		"fill_quantity": 10,
	})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestOrders_GetUnknown_404(t *testing.T) {
	env := newTestEnv(t)
	env.setupBook(t)

	rr := env.doJSON(t, "GET", "/books/"+adminAddr+"/orders/99", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestOrders_ListByUser(t *testing.T) {
	env := newTestEnv(t)
	env.setupBook(t)
	env.depositFor(t, aliceAddr, 10_000)

	env.placeOrder(t, aliceAddr, "bid", 50, 10)
	env.placeOrder(t, aliceAddr, "bid", 51, 10)

	rr := env.doJSON(t, "GET", "/books/"+adminAddr+"/orders?user="+aliceAddr, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp map[string][]map[string]any
	decodeJSON(t, rr, &resp)
	if len(resp["orders"]) != 2 {
		t.Fatalf("got %d orders, want 2", len(resp["orders"]))
	}
	// Newest first.
	if resp["orders"][0]["price"] != float64(51) {
		t.Errorf("got first price %v, want 51", resp["orders"][0]["price"])
	}
}

func TestDepth(t *testing.T) {
	env := newTestEnv(t)
	env.setupBook(t)
	env.depositFor(t, aliceAddr, 10_000)

	env.placeOrder(t, aliceAddr, "bid", 50, 10)
	env.placeOrder(t, aliceAddr, "bid", 50, 5)
	env.placeOrder(t, aliceAddr, "ask", 55, 7)

	rr := env.doJSON(t, "GET", "/books/"+adminAddr+"/depth", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp depthResponse
	decodeJSON(t, rr, &resp)
	if len(resp.Bids) != 1 || len(resp.Asks) != 1 {
		t.Fatalf("got %d bids %d asks, want 1 and 1", len(resp.Bids), len(resp.Asks))
	}
	if resp.Bids[0].TotalQuantity != 15 || resp.Bids[0].OrderCount != 2 {
		t.Errorf("got bid level %+v, want qty=15 count=2", resp.Bids[0])
	}
	if resp.Asks[0].Price != 55 {
		t.Errorf("got ask price %d, want 55", resp.Asks[0].Price)
	}
}

// --- Event log ---

func TestEvents_ListAndFilter(t *testing.T) {
	env := newTestEnv(t)
	env.setupBook(t)
	env.depositFor(t, aliceAddr, 10_000)
	env.placeOrder(t, aliceAddr, "bid", 50, 10)

	rr := env.doJSON(t, "GET", "/events", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp map[string][]map[string]any
	decodeJSON(t, rr, &resp)
	if len(resp["events"]) != 2 {
		t.Fatalf("got %d events, want 2 (deposit + placement)", len(resp["events"]))
	}
	if resp["events"][0]["type"] != "vault.deposited" {
		t.Errorf("got first event %v, want vault.deposited", resp["events"][0]["type"])
	}

	rr = env.doJSON(t, "GET", "/events?type=order.placed", nil)
	decodeJSON(t, rr, &resp)
	if len(resp["events"]) != 1 {
		t.Fatalf("got %d filtered events, want 1", len(resp["events"]))
	}
	if resp["events"][0]["type"] != "order.placed" {
		t.Errorf("got type %v, want order.placed", resp["events"][0]["type"])
	}
}

// --- Webhook endpoints ---

func TestWebhooks_CRUD(t *testing.T) {
	env := newTestEnv(t)

	rr := env.doJSON(t, "POST", "/webhooks", map[string]any{
		"owner":  aliceAddr,
		"url":    "https://example.com/hooks",
		"events": []string{"order.filled"},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("upsert: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp webhookListResponse
	decodeJSON(t, rr, &resp)
	if len(resp.Webhooks) != 1 {
		t.Fatalf("got %d webhooks, want 1", len(resp.Webhooks))
	}
	webhookID := resp.Webhooks[0].WebhookID

	// Re-registering the same pair is a 200, not a 201.
	rr = env.doJSON(t, "POST", "/webhooks", map[string]any{
		"owner":  aliceAddr,
		"url":    "https://example.com/hooks",
		"events": []string{"order.filled"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("idempotent upsert: expected 200, got %d", rr.Code)
	}

	rr = env.doJSON(t, "GET", "/webhooks?owner="+aliceAddr, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rr.Code)
	}

	rr = env.doJSON(t, "DELETE", "/webhooks/"+webhookID, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rr.Code)
	}

	rr = env.doJSON(t, "DELETE", "/webhooks/"+webhookID, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("delete again: expected 404, got %d", rr.Code)
	}
}

func TestWebhooks_ListRequiresOwner(t *testing.T) {
	env := newTestEnv(t)

	rr := env.doJSON(t, "GET", "/webhooks", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}
