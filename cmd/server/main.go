/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the tiffin subscription engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env + environment)
  2. Build the structured logger
  3. Initialize SQLite store
  4. Wire the accounting engine, daily job and renewal planner
  5. Start the background scheduler and HTTP server
  6. Wait for SIGINT/SIGTERM and shut down gracefully

CONFIGURATION:
  All configuration comes from the environment (see config package).
  A .env file in the working directory is honored when present.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the background scheduler
  4. Close the database connection

EXAMPLES:
  # Run with defaults (tiffin.db, port 8080)
  ./server

  # In-memory database, custom cutoff
  DATABASE_PATH=":memory:" CUTOFF_HOUR=18 ./server

SEE ALSO:
  - config/config.go: Environment settings
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/tiffin-engine/api"
	"github.com/warp/tiffin-engine/config"
	"github.com/warp/tiffin-engine/renewal"
	"github.com/warp/tiffin-engine/store/sqlite"
	"github.com/warp/tiffin-engine/tiffin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("invalid timezone", zap.Error(err))
	}
	window, err := cfg.Window()
	if err != nil {
		logger.Fatal("invalid delivery window", zap.Error(err))
	}

	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	engine := tiffin.Engine{
		Window: window,
		Cutoff: cfg.CutoffAt(loc),
	}

	job := &tiffin.SnapshotJob{
		Repo:   store,
		Events: store,
		Engine: engine,
		Log:    logger,
	}

	planner := &renewal.Planner{
		Repo:     store,
		Events:   store,
		Offers:   store,
		Notifier: &renewal.LogNotifier{Log: logger},
		Engine:   engine,
		Config: renewal.Config{
			Enabled:           cfg.RenewalReminderEnabled,
			Threshold:         cfg.RenewalReminderThreshold,
			ExcludeTrialMeals: cfg.RenewalExcludeTrialMeals,
			ExcludedProducts:  cfg.RenewalExcludedProducts,
			LinkBase:          cfg.RenewalLinkBase,
			OfferTTL:          cfg.RenewalOfferTTL,
		},
		Log: logger,
	}

	handler := &api.Handler{
		Repo:    store,
		Writer:  store,
		Events:  store,
		Offers:  store,
		Engine:  engine,
		Planner: planner,
		Job:     job,
		Log:     logger,
	}

	scheduler := api.NewScheduler(job, planner, cfg.JobCheckInterval, logger)
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Port),
			zap.String("database", cfg.DatabasePath),
			zap.String("timezone", cfg.Timezone))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// buildLogger creates a production zap logger at the configured level.
func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = lvl
	return zcfg.Build()
}
