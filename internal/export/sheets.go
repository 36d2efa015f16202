// Package export appends materialized transactions to a Google Sheets
// register. The sheet is a write-only mirror; the ledger never reads back.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"envelope/internal/amqp"
	"envelope/internal/config"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// New creates a Sheets client from configuration using service account
// credentials (inline JSON or a credentials file).
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg.GoogleSpreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName := cfg.GoogleSheetName
	if sheetName == "" {
		sheetName = "Register"
	}

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.GoogleSpreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func newSheetsService(ctx context.Context, cfg *config.Config) (*gsheet.Service, error) {
	var credentialsJSON []byte
	var err error

	switch {
	case cfg.GoogleCredentialsJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(cfg.GoogleCredentialsJSON)
	case cfg.GoogleCredentialsFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", cfg.GoogleCredentialsFile)
		credentialsJSON, err = os.ReadFile(cfg.GoogleCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_FILE)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return service, nil
}

// AppendTransaction writes one register row: date, account, payee, budget,
// amount in major units, note.
func (c *Client) AppendTransaction(ctx context.Context, msg *amqp.TransactionCreatedMessage) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	amount := float64(msg.AmountCents) / 100.0
	rng := fmt.Sprintf("%s!A:F", c.sheetName)
	vr := &gsheet.ValueRange{Values: [][]any{{
		msg.Date, msg.Account, msg.Payee, msg.Budget, amount, msg.Note,
	}}}

	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}

	slog.InfoContext(ctx, "Transaction appended to sheet",
		"sheet", c.sheetName,
		"transaction_id", msg.TransactionID,
		"amount_cents", msg.AmountCents)

	return nil
}
