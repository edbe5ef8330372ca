package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"phrasely-backend/infrastructure/config"
	"phrasely-backend/infrastructure/di"
	"phrasely-backend/pkg/observability"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize dependency container
	container, err := di.InitializeContainer(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	logger := container.Logger

	// Tracing
	if cfg.EnableTracing {
		tp, err := observability.InitTracing("phrasely-backend", cfg.Environment, cfg.OTLPEndpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Error("Tracer shutdown error", zap.Error(err))
			}
		}()
	}

	// Projection updates from user-initiated edits flow through the
	// in-process event bus to the WebSocket hub.
	if err := container.EventBus.Subscribe("document.updated", container.ProjectionListener); err != nil {
		logger.Fatal("Failed to subscribe projection listener", zap.Error(err))
	}

	// WebSocket hub for browser connections
	go container.Hub.Run()
	defer container.Hub.Stop()

	// Upstream stream consumer
	go func() {
		if err := container.EventSource.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("Event source stopped", zap.Error(err))
		}
	}()

	// Housekeeping: expire idle sessions and deferred stream events
	go runHousekeeping(ctx, container, cfg)

	// Optional hot-reload of dynamic limits
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		watcher, err := config.NewConfigWatcher(path, logger)
		if err != nil {
			logger.Warn("Config watcher disabled", zap.Error(err))
		} else {
			watcher.OnChange(func(dynamic *config.DynamicConfig) {
				container.RateLimiter.SetRate(dynamic.Limits.SubmitsPerMinute)
			})
			watcher.Start()
			defer watcher.Stop()
		}
	}

	// HTTP server
	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      container.Router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	if err := logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	log.Println("Server stopped")
}

// runHousekeeping sweeps deferred stream events past their TTL and
// deletes sessions idle past the configured max age.
func runHousekeeping(ctx context.Context, container *di.Container, cfg *config.Config) {
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			container.Assembler.Sweep(ctx)
			if _, err := container.Sessions.DeleteExpired(ctx, time.Now().Add(-cfg.SessionMaxAge)); err != nil {
				container.Logger.Warn("Session expiry sweep failed", zap.Error(err))
			}
		}
	}
}
