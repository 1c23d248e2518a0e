package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/timmarsh1987/XMCVisualiser/infrastructure/config"
	"github.com/timmarsh1987/XMCVisualiser/infrastructure/di"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	srv := &http.Server{
		Addr:    cfg.ServerAddress,
		Handler: container.Router().Setup(),
		// Both upstream fetches run in parallel under GraphQLTimeout
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.GraphQLTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Warm up readiness so the first /ready does not pay for the probe
	go func() {
		result := container.Bootstrap.Initialize(ctx)
		if !result.Ready() {
			container.Logger.Warn("Sitecore endpoints not ready",
				zap.String("state", string(result.State)),
				zap.Int("attempts", result.Attempts),
				zap.Error(result.Err),
			)
		}
	}()

	go func() {
		container.Logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			container.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	container.Logger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("Server shutdown error", zap.Error(err))
	}
	if err := container.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("Container shutdown error", zap.Error(err))
	}

	if err := container.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	log.Println("Server stopped")
}
