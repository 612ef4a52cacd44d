package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"xrpl-iou-issuer-go/internal/api"
	"xrpl-iou-issuer-go/internal/common"
	"xrpl-iou-issuer-go/internal/reconciler"

	"go.uber.org/zap"
)

func main() {
	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := common.LoadConfig()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting XRPL IOU issuer",
		zap.String("endpoint", cfg.Ledger.Endpoint),
		zap.String("currency", cfg.Issuer.Currency),
		zap.String("store", cfg.Store.Backend))

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	rec := reconciler.New(reconciler.Config{
		Store:     services.Store,
		Ledger:    services.Client,
		Interval:  cfg.Reconciler.Interval,
		BatchSize: cfg.Reconciler.BatchSize,
	})
	if err := rec.Start(ctx); err != nil {
		zap.L().Fatal("Failed to start reconciler", zap.Error(err))
	}

	server := api.NewServer(cfg.HTTP, api.Deps{
		Issuer:  services.Issuance,
		Ledger:  services.Manager,
		Signer:  services.Signer,
		Limiter: services.Limiter,
		Store:   services.Store,
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		zap.L().Info("HTTP server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
		zap.L().Info("Shutdown signal received, stopping...")
	case err := <-serverErr:
		zap.L().Error("HTTP server failed", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	// in-flight mints finish before the ledger session closes
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("Forced shutdown after timeout", zap.Error(err))
	}
	rec.Stop()
	cancel()
	zap.L().Info("Issuer stopped")
}
