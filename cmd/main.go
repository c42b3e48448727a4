package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pm-lab/auth"
	"pm-lab/backplane"
	"pm-lab/infrastructure/ws"
	"pm-lab/observability"
	"pm-lab/repositories"
	"pm-lab/runtime"
	"pm-lab/runtime/workers"
	"pm-lab/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for the HTTP server and the backplane.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	//  Defer will be executed before run() returned anything to main()
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Stores & Gate
	sessions := repositories.NewSessionRepository(db, config.SessionTTL)
	messages := repositories.NewMessageRepository(db)
	gate := auth.NewGate(sessions)

	// 4. Delivery Backplane
	// A NATS URL switches the instance to clustered fan-out; without one,
	// delivery stays in-process.
	var bp backplane.IBackplane
	if config.NatsURL != "" {
		bp, err = backplane.NewNats(config.NatsURL, log)
		if err != nil {
			return fmt.Errorf("backplane connection failed: %w", err)
		}
		log.Info("Using NATS backplane", "url", config.NatsURL)
	} else {
		bp = backplane.NewInProc()
		log.Info("Using in-process backplane")
	}
	metered := observability.NewPromBackplane(bp)
	defer func() { _ = metered.Close() }()

	// 5. Presence Engine
	registry := runtime.NewRegistry()
	observability.LiveConnectionsGauge(registry.Total)
	coordinator := runtime.NewCoordinator(log, sessions, messages, registry, metered)
	service := services.NewPresenceService(gate, coordinator)

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 7. Background Workers
	sup := workers.NewSupervisor(log)
	sup.Add(
		workers.NewStorageGCWorker(log, db, config.GCInterval),
		workers.NewTelemetryWorker(log, config.TelemetryInterval, registry.Total),
	)
	go sup.Run(ctx)

	// 8. HTTP Server Setup
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{
		Addr:    address,
		Handler: ws.NewServer(log, service, config.ConnectionBufferSize).Router(),
	}

	// Use an error channel to capture ListenAndServe() issues
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 9. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 10. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("Forced shutdown", "error", err)
	}
	sup.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
