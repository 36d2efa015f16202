// Package storage persists ledger document snapshots in SQLite. Each save is
// a new row, so history accumulates and the latest snapshot wins at startup.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNoSnapshot = errors.New("no snapshot stored")

type Snapshot struct {
	ID         int64
	LedgerName string
	Version    uint64
	Document   []byte
	CreatedAt  time.Time
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveSnapshot appends a serialized document as a new snapshot row.
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, ledgerName string, version uint64, document []byte) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO snapshots (ledger_name, version, document) VALUES (?, ?, ?)`,
		ledgerName, int64(version), document)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("snapshot id: %w", err)
	}

	slog.InfoContext(ctx, "Ledger snapshot saved",
		"snapshot_id", id,
		"ledger", ledgerName,
		"version", version,
		"bytes", len(document))

	return id, nil
}

// LatestSnapshot returns the most recently stored snapshot, or ErrNoSnapshot
// when the store is empty.
func (r *SQLiteRepository) LatestSnapshot(ctx context.Context) (*Snapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, ledger_name, version, document, created_at
		 FROM snapshots ORDER BY id DESC LIMIT 1`)

	var s Snapshot
	var version int64
	if err := row.Scan(&s.ID, &s.LedgerName, &version, &s.Document, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("load latest snapshot: %w", err)
	}
	s.Version = uint64(version)
	return &s, nil
}

// ListSnapshots returns snapshot metadata newest first, without document
// bodies, up to limit rows.
func (r *SQLiteRepository) ListSnapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, ledger_name, version, created_at
		 FROM snapshots ORDER BY id DESC LIMIT ?`, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var s Snapshot
		var version int64
		if err := rows.Scan(&s.ID, &s.LedgerName, &version, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		s.Version = uint64(version)
		out = append(out, s)
	}
	return out, rows.Err()
}

// PruneSnapshots deletes all but the newest keep rows.
func (r *SQLiteRepository) PruneSnapshots(ctx context.Context, keep int) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE id NOT IN
		   (SELECT id FROM snapshots ORDER BY id DESC LIMIT ?)`, int64(keep))
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Pruned old snapshots", "deleted", n, "kept", keep)
	}
	return n, nil
}
