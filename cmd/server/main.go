/*
main.go - Application entry point

PURPOSE:
  Starts the case ledger HTTP server: loads configuration, builds the
  logger, opens (and migrates) the SQLite store, wires the ledger and
  router, and shuts down gracefully.

STARTUP SEQUENCE:
  1. Load .env (if present) and the environment
  2. Apply command-line flags over the environment
  3. Build the zap logger
  4. Open the SQLite store, applying pending migrations
  5. Create the ledger, handler and router
  6. Serve until SIGINT/SIGTERM

COMMAND-LINE FLAGS:
  -port    HTTP server port (env PORT, default 8080)
  -db      SQLite database path (env DB_PATH, default caseledger.db)
           Use ":memory:" for an in-memory database
  -zone    Store time zone (env STORE_ZONE, default America/Phoenix)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  ./server -db="./data/caseledger.db"
  ./server -db=":memory:" -port=3000

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/warp/caseledger/api"
	"github.com/warp/caseledger/config"
	"github.com/warp/caseledger/inventory"
	"github.com/warp/caseledger/logging"
	"github.com/warp/caseledger/store/sqlite"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Configuration: .env, then environment, then flags
	_ = godotenv.Load()
	cfg := config.LoadEnv()
	cfg.BindFlags(flag.CommandLine)
	flag.Parse()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer logger.Sync()

	clock, err := inventory.NewStoreClock(cfg.Store.Zone)
	if err != nil {
		return err
	}

	// Initialize store
	store, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	ledger := inventory.NewLedger(store,
		inventory.WithClock(clock),
		inventory.WithLogger(logger.Named("ledger")),
	)
	handler := api.NewHandler(ledger, logger.Named("api"))
	router := api.NewRouter(handler, cfg.Server.CORSOrigins)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", server.Addr),
			zap.String("db", cfg.DB.Path),
			zap.String("zone", cfg.Store.Zone),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal or a failed listener
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
