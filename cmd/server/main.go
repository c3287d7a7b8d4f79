/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the voucher ledger server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags, load YAML config
  2. Build the structured logger
  3. Initialize SQLite store, seed the default chart when empty
  4. Resolve configured account codes into calculator policies
  5. Create voucher service and API handler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML config file (optional, defaults apply without it)
  -port    HTTP server port, overrides server.port
  -db      SQLite database path, overrides database.path
           Use ":memory:" for in-memory database
  -static  Built frontend directory (default: ./web/dist)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests (server.shutdown_timeout)
  3. Close database connection

EXAMPLES:
  ./server -config=config.yaml
  ./server -db=":memory:" -port=3000

SEE ALSO:
  - config/config.go: Configuration file format
  - api/server.go: Router configuration
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

	"github.com/warp/voucher-ledger/api"
	"github.com/warp/voucher-ledger/catalog"
	"github.com/warp/voucher-ledger/config"
	"github.com/warp/voucher-ledger/logging"
	"github.com/warp/voucher-ledger/store/sqlite"
	"github.com/warp/voucher-ledger/voucher"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configPath := flag.String("config", "", "YAML config file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	staticDir := flag.String("static", "./web/dist", "Built frontend directory")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	logger := logging.New(logging.Config{
		Level:       logging.LogLevel(cfg.Logging.Level),
		Format:      cfg.Logging.Format,
		ServiceName: "voucher-ledger",
		Version:     version,
	})
	slog.SetDefault(logger)

	if err := run(cfg, *staticDir, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, staticDir string, logger *slog.Logger) error {
	ctx := context.Background()

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	if cfg.Database.SeedDefaults {
		if err := seedIfEmpty(ctx, store, logger); err != nil {
			return err
		}
	}

	policies, accounts, err := cfg.Vouchers.Resolve(ctx, store)
	if err != nil {
		return fmt.Errorf("resolve voucher accounts: %w", err)
	}
	calc := voucher.NewCalculator(policies)
	svc := voucher.NewService(store, store, calc, accounts, logger)

	handler := api.NewHandler(store, svc, logger)
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		StaticDir:      staticDir,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr, "db", cfg.Database.Path)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// seedIfEmpty loads the default chart and products into a fresh database.
func seedIfEmpty(ctx context.Context, store *sqlite.Store, logger *slog.Logger) error {
	existing, err := store.Accounts(ctx)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	if err := catalog.SeedDefaults(ctx, store); err != nil {
		return err
	}
	logger.Info("seeded default chart of accounts",
		"accounts", len(catalog.DefaultChart()),
		"products", len(catalog.DefaultProducts()))
	return nil
}
