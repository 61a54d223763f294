package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/efreitasn/escrowbook/internal/config"
	"github.com/efreitasn/escrowbook/internal/engine"
	"github.com/efreitasn/escrowbook/internal/handler"
	"github.com/efreitasn/escrowbook/internal/service"
	"github.com/efreitasn/escrowbook/internal/store"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load .env if present, then configuration from the environment.
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Instantiate stores.
	nonceStore := store.NewNonceStore()
	walletStore := store.NewWalletStore()
	vaultStore := store.NewVaultStore()
	orderStore := store.NewOrderStore()
	webhookStore := store.NewWebhookStore()
	eventLog := store.NewEventLog()

	// Engines.
	vault := engine.NewVault(vaultStore, walletStore, eventLog)
	payments := engine.NewPayments(nonceStore, walletStore, eventLog)
	ledger := engine.NewOrderLedger(vault, orderStore, eventLog)

	// Services.
	paymentSvc := service.NewPaymentService(payments)
	vaultSvc, err := service.NewVaultService(vault, walletStore, cfg.FundingAdmin)
	if err != nil {
		logger.Error("invalid FUNDING_ADMIN", slog.String("error", err.Error()))
		os.Exit(1)
	}
	orderSvc := service.NewOrderService(ledger)
	webhookSvc := service.NewWebhookService(webhookStore, cfg.WebhookTimeout)

	// Every appended event is pushed to webhook subscribers.
	eventLog.SetNotifier(webhookSvc.Dispatch)

	// Router.
	router := handler.NewRouter(paymentSvc, vaultSvc, orderSvc, webhookSvc, eventLog, logger)

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start HTTP server in a goroutine.
	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	// Graceful shutdown.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}
