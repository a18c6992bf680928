/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the wage engine HTTP server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env file, environment, then flags)
  2. Initialize SQLite store and the breakdown cache
  3. Wire aggregator, service and API handler
  4. Start the month-close scheduler when enabled
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides APP_PORT)
  -db      SQLite database path (overrides DB_PATH)
           Use ":memory:" for in-memory database
  -env     Path of a .env file to load (default: .env)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the month-close scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close cache and database
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/payroll.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Seoul wall clock, monthly close every 30 minutes
  PAYROLL_TIMEZONE=Asia/Seoul CLOSE_ENABLED=true CLOSE_INTERVAL=30m ./server

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/wage-engine/api"
	"github.com/warp/wage-engine/cache"
	"github.com/warp/wage-engine/config"
	"github.com/warp/wage-engine/factory"
	"github.com/warp/wage-engine/payroll"
	"github.com/warp/wage-engine/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Flags
	port := flag.Int("port", 0, "HTTP server port (overrides APP_PORT)")
	dbPath := flag.String("db", "", "SQLite database path (overrides DB_PATH)")
	envFile := flag.String("env", ".env", "Path of a .env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		return err
	}
	if *port != 0 {
		cfg.App.Port = *port
	}
	if *dbPath != "" {
		cfg.Storage.DBPath = *dbPath
	}

	level, err := config.ParseLogLevel(cfg.App.LogLevel)
	if err != nil {
		return err
	}
	logger := api.NewLogger(os.Stdout, level, cfg.App.Env)
	slog.SetDefault(logger)

	// Initialize store
	store, err := sqlite.New(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	breakdowns, err := cache.Open(cfg.Storage.CachePath)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer breakdowns.Close()

	// Initialize service and handler
	svc := payroll.NewService(store, store, breakdowns, payroll.NewAggregator(store), logger)
	svc.Workers = cfg.Payroll.Workers

	handler := api.NewHandler(store, svc, logger)
	handler.Cache = breakdowns
	handler.Parser = factory.NewShiftParser(cfg.Payroll.Location)
	handler.Closer.Enabled = cfg.Payroll.CloseEnabled
	handler.Closer.CheckInterval = cfg.Payroll.CloseInterval
	handler.Closer.Location = cfg.Payroll.Location

	handler.Closer.Start()
	defer handler.Closer.Stop()

	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logger,
		LogLevel:       level,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			slog.Int("port", cfg.App.Port),
			slog.String("db", cfg.Storage.DBPath),
			slog.String("timezone", cfg.Payroll.Timezone))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	logger.Info("shutting down server")
	handler.Closer.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
