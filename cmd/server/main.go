/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the rebate engine HTTP server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, config.yaml, REBATE_* env vars)
  2. Build the zap logger
  3. Open the store (SQLite or memory) and wrap it in the read-through cache
  4. Build the rule selector and event publisher
  5. Create the calculation service, API handler and router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Directory containing config.yaml (default: "." and "./config")
  -addr    Override server.address
  -db      Override storage.path (":memory:" for an in-memory SQLite database)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (server.shutdown_timeout)
  3. Flush the event publisher
  4. Close the database connection

EXAMPLES:
  ./server -db="./data/rebates.db"
  REBATE_SELECTOR_MODE=determined ./server
  REBATE_KAFKA_ENABLED=true REBATE_KAFKA_BROKERS=localhost:9092 ./server

SEE ALSO:
  - config/config.go: Configuration keys
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/warp/rebate-engine/api"
	"github.com/warp/rebate-engine/config"
	"github.com/warp/rebate-engine/logger"
	"github.com/warp/rebate-engine/publisher"
	"github.com/warp/rebate-engine/rebate"
	"github.com/warp/rebate-engine/rebate/store"
	"github.com/warp/rebate-engine/store/cache"
	"github.com/warp/rebate-engine/store/sqlite"
	"go.uber.org/zap"
)

type closablePublisher interface {
	rebate.Publisher
	Close() error
}

func main() {
	configDir := flag.String("config", "", "Directory containing config.yaml")
	addr := flag.String("addr", "", "HTTP listen address (overrides server.address)")
	dbPath := flag.String("db", "", "SQLite database path (overrides storage.path)")
	flag.Parse()

	var dirs []string
	if *configDir != "" {
		dirs = append(dirs, *configDir)
	}
	cfg, err := config.New(dirs...)
	if err != nil {
		// No logger yet.
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Address = *addr
	}
	if *dbPath != "" {
		cfg.Storage.Driver = "sqlite"
		cfg.Storage.Path = *dbPath
	}

	log, err := logger.New(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatalw("server exited", "error", err)
	}
}

func run(cfg *config.Configuration, log *zap.SugaredLogger) error {
	// Store
	repo, closeStore, err := openStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer closeStore()

	var (
		rebates  rebate.RebateStore  = repo
		products rebate.ProductStore = repo
		opts     []api.HandlerOption
	)
	if cfg.Cache.Enabled {
		cached := cache.New(repo, cfg.Cache.TTL)
		rebates, products = cached, cached
		opts = append(opts, api.WithCache(cached))
	}

	// Selector
	selector, err := rebate.NewSelector(rebate.SelectorMode(cfg.Selector.Mode), rebate.DefaultRegistry())
	if err != nil {
		return err
	}

	// Publisher
	var pub closablePublisher = publisher.NewLog(log.Named("events"))
	if cfg.Kafka.Enabled {
		pub = publisher.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic, log.Named("kafka"))
	}
	defer func() {
		if err := pub.Close(); err != nil {
			log.Warnw("failed to close publisher", "error", err)
		}
	}()

	svc := rebate.NewService(rebates, products, selector,
		rebate.WithLogger(log.Named("calculator")),
		rebate.WithPublisher(pub),
	)

	handler := api.NewHandler(repo, svc, append(opts, api.WithLogger(log.Named("api")))...)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("server starting",
			"address", cfg.Server.Address,
			"storage", cfg.Storage.Driver,
			"selector", cfg.Selector.Mode,
			"cache", cfg.Cache.Enabled,
			"kafka", cfg.Kafka.Enabled,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return errors.Wrap(err, "listen")
	case sig := <-quit:
		log.Infow("shutting down server", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "server forced to shutdown")
	}

	log.Info("server stopped")
	return nil
}

func openStore(cfg config.StorageConfig) (api.Repository, func(), error) {
	switch cfg.Driver {
	case "memory":
		return store.NewMemory(), func() {}, nil
	default:
		if cfg.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
				return nil, nil, errors.Wrap(err, "failed to create database directory")
			}
		}
		db, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to initialize database")
		}
		return db, func() { db.Close() }, nil
	}
}
