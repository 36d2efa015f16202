package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"envelope/internal/amqp"
	"envelope/internal/config"
	"envelope/internal/document"
	apphttp "envelope/internal/http"
	"envelope/internal/ledger"
	"envelope/internal/services"
	"envelope/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting envelope server")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize snapshot store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	led, err := loadLedger(context.Background(), cfg, repo)
	if err != nil {
		logger.Error("Failed to load ledger", "error", err)
		os.Exit(1)
	}
	logger.Info("Ledger loaded",
		"name", led.Name,
		"accounts", len(led.Accounts),
		"transactions", len(led.Transactions),
		"templates", len(led.Templates))

	// AMQP is optional; without it materialized transactions are simply not
	// announced.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized")
		}
	} else {
		logger.Info("AMQP disabled - transaction events will not be published")
	}

	scheduler := services.NewScheduler(amqpClient)
	srv := apphttp.NewServer(":"+cfg.Port, led, scheduler, repo)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		runSchedulerLoop(ctx, srv, cfg)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if _, err := srv.SnapshotNow(shutdownCtx); err != nil {
			logger.Error("Final snapshot failed", "error", err)
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

// loadLedger restores the latest snapshot, falling back to a seed document
// file and finally to an empty ledger.
func loadLedger(ctx context.Context, cfg *config.Config, repo *storage.SQLiteRepository) (*ledger.Ledger, error) {
	snap, err := repo.LatestSnapshot(ctx)
	switch {
	case err == nil:
		slog.InfoContext(ctx, "Restoring ledger from snapshot",
			"snapshot_id", snap.ID,
			"version", snap.Version,
			"created_at", snap.CreatedAt.Format(time.RFC3339))
		return document.Load(snap.Document)
	case errors.Is(err, storage.ErrNoSnapshot):
	default:
		return nil, err
	}

	if cfg.DocumentPath != "" {
		slog.InfoContext(ctx, "Seeding ledger from document file", "path", cfg.DocumentPath)
		data, err := os.ReadFile(cfg.DocumentPath)
		if err != nil {
			return nil, err
		}
		return document.Load(data)
	}

	slog.InfoContext(ctx, "Starting with a fresh ledger", "name", cfg.LedgerName)
	return ledger.New(cfg.LedgerName), nil
}

// runSchedulerLoop runs an initial materialization pass and then ticks at the
// configured interval, snapshotting after any pass that created transactions.
func runSchedulerLoop(ctx context.Context, srv *apphttp.Server, cfg *config.Config) {
	runPass := func(now time.Time) {
		created, err := srv.RunSchedulerPass(ctx, now)
		if err != nil {
			slog.ErrorContext(ctx, "Scheduler pass failed", "error", err)
			return
		}
		if created == 0 {
			return
		}
		if _, err := srv.SnapshotNow(ctx); err != nil {
			slog.ErrorContext(ctx, "Snapshot after scheduler pass failed", "error", err)
		}
	}

	slog.InfoContext(ctx, "Running initial scheduler pass")
	runPass(time.Now())

	ticker := time.NewTicker(cfg.SchedulerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			runPass(now)
		}
	}
}
