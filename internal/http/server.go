// Package http exposes the ledger over a JSON API. All ledger access goes
// through the server's mutex, which is the single-writer gate for the whole
// process.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"envelope/internal/document"
	"envelope/internal/ledger"
	"envelope/internal/services"
)

// SnapshotSaver persists a serialized document. Implemented by the SQLite
// repository; nil disables the snapshot endpoint.
type SnapshotSaver interface {
	SaveSnapshot(ctx context.Context, ledgerName string, version uint64, document []byte) (int64, error)
}

type Server struct {
	http.Server

	mu        sync.Mutex
	led       *ledger.Ledger
	scheduler *services.Scheduler
	snapshots SnapshotSaver
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, led *ledger.Ledger, scheduler *services.Scheduler, snapshots SnapshotSaver) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		led:       led,
		scheduler: scheduler,
		snapshots: snapshots,
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("GET /api/ledger", s.withRequestLog(s.handleLedgerInfo))
	mux.HandleFunc("GET /api/accounts", s.withRequestLog(s.handleListAccounts))
	mux.HandleFunc("GET /api/budgets", s.withRequestLog(s.handleBudgetsMonth))

	mux.HandleFunc("POST /api/transactions", s.withRequestLog(s.handleCreateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withRequestLog(s.handleDeleteTransaction))
	mux.HandleFunc("POST /api/transfers", s.withRequestLog(s.handleCreateTransfer))
	mux.HandleFunc("DELETE /api/transfers/{id}", s.withRequestLog(s.handleDeleteTransfer))
	mux.HandleFunc("POST /api/assignments", s.withRequestLog(s.handleCreateAssignment))
	mux.HandleFunc("POST /api/templates", s.withRequestLog(s.handleCreateTemplate))

	mux.HandleFunc("POST /api/scheduler/run", s.withRequestLog(s.handleSchedulerRun))
	mux.HandleFunc("POST /api/snapshots", s.withRequestLog(s.handleSaveSnapshot))

	return s
}

// withRequestLog attaches a request ID and logs start and completion.
func (s *Server) withRequestLog(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

// RunSchedulerPass runs one materialization pass under the server's write
// lock. Used by the periodic ticker in main alongside the HTTP trigger.
func (s *Server) RunSchedulerPass(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduler.ProcessDue(ctx, s.led, now)
}

// SnapshotNow serializes the ledger and persists it to the snapshot store.
func (s *Server) SnapshotNow(ctx context.Context) (int64, error) {
	if s.snapshots == nil {
		return 0, fmt.Errorf("snapshot store not configured")
	}

	s.mu.Lock()
	data, err := document.Save(s.led)
	name, version := s.led.Name, s.led.Version()
	s.mu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("serialize ledger: %w", err)
	}

	return s.snapshots.SaveSnapshot(ctx, name, version, data)
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
