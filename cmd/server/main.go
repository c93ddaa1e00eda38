/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the stockroom lending server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env + STOCKROOM_* environment, flag overrides)
  2. Initialize the persistence backend (json files, sqlite or memory)
  3. Load the ledger, catalog and user directory from the backend
  4. Wire the transaction coordinator and API handler
  5. Start the HTTP server with graceful shutdown

COMMAND-LINE FLAGS:
  -port     HTTP server port (overrides STOCKROOM_PORT)
  -backend  Persistence backend: json, sqlite or memory
  -data     Data directory for the json backend
  -db       SQLite database path (use ":memory:" for an in-memory db)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the database connection
  4. Exit

EXAMPLES:
  # Run against JSON files under ./data (the default)
  ./server

  # Run against sqlite
  ./server -backend=sqlite -db=./data/stockroom.db

SEE ALSO:
  - config/config.go: Environment configuration
  - api/server.go: Router configuration
  - store/jsonfile, store/sqlite: Backend implementations
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/stockroom/api"
	"github.com/warp/stockroom/auth"
	"github.com/warp/stockroom/config"
	"github.com/warp/stockroom/inventory"
	memstore "github.com/warp/stockroom/inventory/store"
	"github.com/warp/stockroom/store/jsonfile"
	"github.com/warp/stockroom/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Flags override environment for local runs.
	port := flag.Int("port", cfg.Port, "HTTP server port")
	backend := flag.String("backend", cfg.Backend, "persistence backend: json, sqlite or memory")
	dataDir := flag.String("data", cfg.DataDir, "data directory for the json backend")
	dbPath := flag.String("db", cfg.SQLitePath, "SQLite database path")
	flag.Parse()

	log := newLogger(cfg)

	store, closeStore, err := openStore(*backend, *dataDir, *dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("backend", *backend).Msg("failed to initialize store")
	}
	defer closeStore()

	ctx := context.Background()

	ledger, err := inventory.NewActivityLedger(ctx, store, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load activity ledger")
	}
	catalog, err := inventory.NewInventoryCatalog(ctx, store, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load inventory catalog")
	}
	directory, err := inventory.NewUserDirectory(ctx, store, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load user directory")
	}

	coordinator := inventory.NewTransactionCoordinator(catalog, ledger, log)
	authn := auth.NewAuthenticator(directory, log)

	// Bring the derived stock fields in line with the ledger in case the
	// catalog file was edited or imported outside a running server.
	for _, item := range catalog.GetAll() {
		if _, err := coordinator.ReconcileItem(ctx, item.ItemID); err != nil {
			log.Warn().Err(err).Int("item_id", item.ItemID).Msg("startup reconciliation failed")
		}
	}

	if err := os.MkdirAll(cfg.ExportDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.ExportDir).Msg("failed to create export directory")
	}

	handler := api.NewHandler(coordinator, catalog, ledger, directory, authn, cfg.ExportDir, log)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("backend", *backend).
			Int("items", len(catalog.GetAll())).
			Int("entries", ledger.Len()).
			Msgf("server starting on http://localhost:%d", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// openStore builds the configured persistence backend.
func openStore(backend, dataDir, dbPath string) (inventory.Store, func(), error) {
	switch backend {
	case "json":
		s, err := jsonfile.New(dataDir)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	case "sqlite":
		s, err := sqlite.New(dbPath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "memory":
		return memstore.NewMemory(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", backend)
	}
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var log zerolog.Logger
	if cfg.Pretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Logger()
}
