// The recurring-worker runs the materialization pass headlessly against the
// snapshot store, for deployments that don't keep the API server running.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"envelope/internal/amqp"
	"envelope/internal/config"
	"envelope/internal/document"
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

	logger.Info("Starting recurring-worker")

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

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized - transactions will sync via export-worker")
		}
	} else {
		logger.Info("AMQP disabled - transactions will not sync to Google Sheets")
	}

	scheduler := services.NewScheduler(amqpClient)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Recurring template processor configured",
		"interval", cfg.SchedulerInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	logger.Info("Running initial recurring template processing...")
	processOnce(ctx, cfg, repo, scheduler)

	ticker := time.NewTicker(cfg.SchedulerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Worker stopped")
			return
		case <-ticker.C:
			logger.Info("Processing due recurring templates...")
			processOnce(ctx, cfg, repo, scheduler)
		}
	}
}

// processOnce restores the latest snapshot, runs one pass, and writes a new
// snapshot when anything changed. Each cycle reloads from storage so the
// worker never holds stale state across ticks.
func processOnce(ctx context.Context, cfg *config.Config, repo *storage.SQLiteRepository, scheduler *services.Scheduler) {
	led, err := loadLedger(ctx, cfg, repo)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load ledger", "error", err)
		return
	}

	created, err := scheduler.ProcessDue(ctx, led, time.Now())
	if err != nil {
		slog.ErrorContext(ctx, "Processing failed", "error", err)
		return
	}
	if created == 0 {
		return
	}

	data, err := document.Save(led)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to serialize ledger", "error", err)
		return
	}
	if _, err := repo.SaveSnapshot(ctx, led.Name, led.Version(), data); err != nil {
		slog.ErrorContext(ctx, "Failed to save snapshot", "error", err)
		return
	}
	if _, err := repo.PruneSnapshots(ctx, cfg.SnapshotsKept); err != nil {
		slog.WarnContext(ctx, "Failed to prune snapshots", "error", err)
	}

	slog.InfoContext(ctx, "Processing complete", "transactions_created", created)
}

func loadLedger(ctx context.Context, cfg *config.Config, repo *storage.SQLiteRepository) (*ledger.Ledger, error) {
	snap, err := repo.LatestSnapshot(ctx)
	switch {
	case err == nil:
		return document.Load(snap.Document)
	case errors.Is(err, storage.ErrNoSnapshot):
	default:
		return nil, err
	}

	if cfg.DocumentPath != "" {
		data, err := os.ReadFile(cfg.DocumentPath)
		if err != nil {
			return nil, err
		}
		return document.Load(data)
	}
	return ledger.New(cfg.LedgerName), nil
}
