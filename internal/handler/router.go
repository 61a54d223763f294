package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/efreitasn/escrowbook/internal/service"
	"github.com/efreitasn/escrowbook/internal/store"
	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all routes registered, request logging,
// and Content-Type validation middleware.
func NewRouter(
	paymentSvc *service.PaymentService,
	vaultSvc *service.VaultService,
	orderSvc *service.OrderService,
	webhookSvc *service.WebhookService,
	events *store.EventLog,
	logger *slog.Logger,
) chi.Router {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(requestLogging(logger))
	r.Use(contentTypeJSON)

	// Create handlers.
	paymentH := NewPaymentHandler(paymentSvc)
	vaultH := NewVaultHandler(vaultSvc)
	orderH := NewOrderHandler(orderSvc)
	webhookH := NewWebhookHandler(webhookSvc)
	eventH := NewEventHandler(events)

	// Health check.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Payment routes.
	r.Post("/transfers", paymentH.ExecuteTransfer)
	r.Post("/nonces", paymentH.InitializeNonceStore)
	r.Get("/nonces/{user}/{nonce}", paymentH.GetNonce)

	// Vault routes.
	r.Post("/vaults", vaultH.Initialize)
	r.Get("/vaults/{vault}", vaultH.Info)
	r.Post("/vaults/{vault}/deposits", vaultH.Deposit)
	r.Post("/vaults/{vault}/credits", vaultH.CreditDeposit)
	r.Post("/vaults/{vault}/withdrawals", vaultH.Withdraw)
	r.Get("/vaults/{vault}/share-value", vaultH.ShareValue)
	r.Get("/vaults/{vault}/users/{user}/shares", vaultH.UserShares)
	r.Get("/vaults/{vault}/users/{user}/balances", vaultH.Balances)

	// Wallet routes.
	r.Post("/wallets/{address}/fund", vaultH.Fund)
	r.Get("/wallets/{address}", vaultH.WalletBalance)

	// Order book routes.
	r.Post("/books", orderH.InitializeBook)
	r.Post("/books/{book}/orders", orderH.PlaceOrder)
	r.Get("/books/{book}/orders", orderH.ListOrders)
	r.Get("/books/{book}/orders/{order_id}", orderH.GetOrder)
	r.Delete("/books/{book}/orders/{order_id}", orderH.CancelOrder)
	r.Post("/books/{book}/orders/{order_id}/fills", orderH.FillOrder)
	r.Get("/books/{book}/depth", orderH.Depth)

	// Event log.
	r.Get("/events", eventH.List)

	// Webhook routes.
	r.Post("/webhooks", webhookH.Upsert)
	r.Get("/webhooks", webhookH.List)
	r.Delete("/webhooks/{webhook_id}", webhookH.Delete)

	return r
}

// requestLogging returns middleware that logs each request's method, path,
// status code, and duration using slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// contentTypeJSON is middleware that validates Content-Type for POST, PUT, and
// PATCH requests. If the Content-Type header doesn't start with
// "application/json", it returns 400 Bad Request before the handler runs.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct == "" || !strings.HasPrefix(ct, "application/json") {
				WriteError(w, http.StatusBadRequest, "invalid_request",
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
