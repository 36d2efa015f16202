// The export-worker consumes transaction-created messages and mirrors each
// one to the Google Sheets register.
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
	"envelope/internal/export"
	"envelope/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting export-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the export worker")
		os.Exit(1)
	}

	var sheetsClient *export.Client
	if cfg.SheetsConfigured() {
		var err error
		sheetsClient, err = export.New(context.Background(), cfg)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Warn("Google Sheets not configured - messages will be consumed and dropped")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(sheetsClient)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = amqpClient.ConsumeTransactionCreated(ctx, exportWorker.HandleTransactionCreated)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Shutting down worker...")
	time.Sleep(time.Second)
	logger.Info("Worker shutdown complete")
}
