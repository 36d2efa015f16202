// Package worker bridges transaction-created messages to the Google Sheets
// register.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"envelope/internal/amqp"
	"envelope/internal/export"
)

// ExportWorker appends each materialized transaction to the configured sheet.
// Failures propagate to the consumer, which requeues the delivery.
type ExportWorker struct {
	sheets *export.Client
}

func NewExportWorker(sheets *export.Client) *ExportWorker {
	return &ExportWorker{sheets: sheets}
}

// HandleTransactionCreated processes a single transaction-created message.
func (w *ExportWorker) HandleTransactionCreated(ctx context.Context, msg *amqp.TransactionCreatedMessage) error {
	slog.InfoContext(ctx, "Processing transaction created message",
		"transaction_id", msg.TransactionID,
		"template_id", msg.TemplateID,
		"date", msg.Date)

	if w.sheets == nil {
		slog.WarnContext(ctx, "No sheets client configured, dropping message",
			"transaction_id", msg.TransactionID)
		return nil
	}

	if err := w.sheets.AppendTransaction(ctx, msg); err != nil {
		return fmt.Errorf("append transaction to sheets: %w", err)
	}

	return nil
}
