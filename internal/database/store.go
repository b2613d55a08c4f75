package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edgard/intakebot/internal/ledger"
	"github.com/edgard/intakebot/internal/stats"
)

// Store defines the request index operations.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// IndexRequest mirrors one persisted request.
	IndexRequest(ctx context.Context, req ledger.Request) error

	// Mirror runs appendFn and indexes the request it returns. Index
	// failures are logged, not returned. Mirror never overlaps Rebuild.
	Mirror(ctx context.Context, appendFn func() (ledger.Request, error)) (ledger.Request, error)

	// Rebuild replaces the index content with the given sequence and
	// returns the number of indexed requests.
	Rebuild(ctx context.Context, requests iter.Seq2[ledger.Request, error]) (int, error)

	// Tally counts indexed requests by category and sender.
	Tally(ctx context.Context) (stats.Tally, error)

	// Stale reports whether the index may miss ledger records: before the
	// first successful Rebuild and after any failed mirror write.
	Stale() bool

	// RunSQLMaintenance performs VACUUM and ANALYZE.
	RunSQLMaintenance(ctx context.Context) error
}

const insertRequestQuery = `
        INSERT INTO requests (order_number, user_id, category, message, timestamp, indexed_at)
        VALUES (:order_number, :user_id, :category, :message, :timestamp, :indexed_at);
    `

// sqlxStore implements Store using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger

	// Held shared by Mirror and exclusively by Rebuild.
	mirror sync.RWMutex
	stale  atomic.Bool
}

// NewStore returns a Store backed by db.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
	s.stale.Store(true)
	return s
}

// Stale implements Store.
func (s *sqlxStore) Stale() bool {
	return s.stale.Load()
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// IndexRequest inserts one request row.
func (s *sqlxStore) IndexRequest(ctx context.Context, req ledger.Request) error {
	if !req.Category.Valid() {
		return fmt.Errorf("%w: %q", ledger.ErrUnknownCategory, req.Category)
	}
	if _, err := s.db.NamedExecContext(ctx, insertRequestQuery, rowFromRequest(req, time.Now().UTC())); err != nil {
		s.logger.ErrorContext(ctx, "Error indexing request", "order_number", req.OrderNumber, "error", err)
		return fmt.Errorf("failed to index request %s: %w", req.OrderNumber, err)
	}
	s.logger.DebugContext(ctx, "Request indexed", "order_number", req.OrderNumber)
	return nil
}

// Mirror implements Store.
func (s *sqlxStore) Mirror(ctx context.Context, appendFn func() (ledger.Request, error)) (ledger.Request, error) {
	s.mirror.RLock()
	defer s.mirror.RUnlock()

	req, err := appendFn()
	if err != nil {
		return req, err
	}
	if err := s.IndexRequest(context.WithoutCancel(ctx), req); err != nil {
		s.stale.Store(true)
		s.logger.WarnContext(ctx, "Request saved but not indexed, the next rebuild will pick it up",
			"order_number", req.OrderNumber, "error", err)
	}
	return req, nil
}

// Rebuild empties the index and refills it in one transaction. Errors from
// the sequence abort the rebuild and leave the previous content in place.
func (s *sqlxStore) Rebuild(ctx context.Context, requests iter.Seq2[ledger.Request, error]) (int, error) {
	s.mirror.Lock()
	defer s.mirror.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM requests;"); err != nil {
		return 0, fmt.Errorf("failed to clear index: %w", err)
	}

	stmt, err := tx.PrepareNamedContext(ctx, insertRequestQuery)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	n := 0
	for req, scanErr := range requests {
		if scanErr != nil {
			return 0, fmt.Errorf("failed to read ledger: %w", scanErr)
		}
		if _, err := stmt.ExecContext(ctx, rowFromRequest(req, now)); err != nil {
			return 0, fmt.Errorf("failed to index request %s: %w", req.OrderNumber, err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil
	s.stale.Store(false)

	s.logger.InfoContext(ctx, "Request index rebuilt", "requests", n)
	return n, nil
}

// Tally implements stats.Source.
func (s *sqlxStore) Tally(ctx context.Context) (stats.Tally, error) {
	var byCategory []categoryCount
	if err := s.db.SelectContext(ctx, &byCategory,
		"SELECT category, COUNT(*) AS n FROM requests GROUP BY category;"); err != nil {
		return stats.Tally{}, fmt.Errorf("failed to count categories: %w", err)
	}
	var bySender []senderCount
	if err := s.db.SelectContext(ctx, &bySender,
		"SELECT user_id, COUNT(*) AS n FROM requests GROUP BY user_id;"); err != nil {
		return stats.Tally{}, fmt.Errorf("failed to count senders: %w", err)
	}

	t := stats.NewTally()
	for _, row := range byCategory {
		t.ByCategory[ledger.Category(row.Category)] = row.Count
		t.Total += row.Count
	}
	for _, row := range bySender {
		t.BySender[row.UserID] = row.Count
	}
	return t, nil
}

// RunSQLMaintenance executes VACUUM and ANALYZE on the index.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context done before starting maintenance", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		s.logger.WarnContext(ctx, "Failed to set busy timeout", "error", err)
	}

	// VACUUM must run outside a transaction.
	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Failed to execute VACUUM", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, "ANALYZE;"); err != nil {
		s.logger.WarnContext(ctx, "ANALYZE failed", "error", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance completed successfully.")
	return nil
}
