package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/payfees/internal/auth"
	"github.com/mmynk/payfees/internal/catalog"
	"github.com/mmynk/payfees/internal/config"
	"github.com/mmynk/payfees/internal/handler"
	"github.com/mmynk/payfees/internal/middleware"
	"github.com/mmynk/payfees/internal/payments"
	"github.com/mmynk/payfees/internal/rpc"
	"github.com/mmynk/payfees/internal/storage/sqlite"
	"github.com/mmynk/payfees/pkg/logging"
)

func main() {
	logging.Setup()
	cfg := config.Load()

	// Initialize SQLite storage
	store, err := sqlite.New(cfg.Server.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.Server.DBPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := catalog.SeedDemo(ctx, store.Catalog()); err != nil {
		slog.Error("Failed to seed catalog", "error", err)
		os.Exit(1)
	}

	limits := payments.Limits{
		ServiceFeePercent: cfg.Payment.ServiceFeePercent,
		MinAmount:         cfg.Payment.MinAmount,
		MaxAmount:         cfg.Payment.MaxAmount,
		Currency:          cfg.Payment.CurrencyCode,
	}
	signer := auth.NewReceiptSigner(cfg.Server.ReceiptSecret, cfg.Server.ReceiptTTL)
	paySvc := payments.NewService(store)
	processor := payments.NewProcessor(paySvc, signer, limits)
	slog.Info("Payment limits", "limits", limits.String())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	mux := http.NewServeMux()

	handler.NewFunctions(paySvc).Register(mux, cfg.Server.FunctionsPrefix)
	handler.NewREST(catalog.NewService(store.Catalog()), paySvc, processor).Register(mux)

	// Register Connect services
	receiptPath, receiptHandler := rpc.NewReceiptServiceHandler(
		rpc.NewReceiptService(paySvc, cfg.Payment.CurrencySymbol),
		connect.WithInterceptors(middleware.LoggingInterceptor(), middleware.RequireReceipt(signer)),
	)
	mux.Handle(receiptPath, receiptHandler)

	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// Metrics must wrap the mux directly to see the matched pattern.
	h := middleware.Chain(mux,
		middleware.RequestID,
		middleware.Logging,
		middleware.Recover,
		middleware.CORS,
		middleware.NewHTTPMetrics(reg).Middleware,
	)

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           h2c.NewHandler(h, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("Shutdown signal received, stopping server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown failed", "error", err)
		}
	}()

	slog.Info("Server starting",
		"address", server.Addr,
		"url", "http://localhost:"+cfg.Server.Port,
		"functions", cfg.Server.FunctionsPrefix,
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
