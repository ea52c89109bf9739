package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS exchanges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_key TEXT NOT NULL,
		transport TEXT NOT NULL,
		kind TEXT NOT NULL,
		status INTEGER NOT NULL,
		latency_ms INTEGER NOT NULL,
		message_len INTEGER NOT NULL,
		response_len INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_exchanges_created ON exchanges(created_at);
	CREATE INDEX IF NOT EXISTS idx_exchanges_kind ON exchanges(kind);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordExchange stores one exchange. Busy errors are retried with
// exponential backoff.
func (s *SQLiteStore) RecordExchange(ctx context.Context, e *Exchange) error {
	const maxRetries = 3
	baseDelay := 50 * time.Millisecond

	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO exchanges (
			client_key, transport, kind, status, latency_ms,
			message_len, response_len, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	var err error
	for i := 0; i < maxRetries; i++ {
		_, err = s.db.ExecContext(ctx, query,
			e.ClientKey, e.Transport, e.Kind, e.Status, e.Latency.Milliseconds(),
			e.MessageLen, e.ResponseLen, createdAt.UnixMilli(),
		)
		if err == nil {
			return nil
		}
		if !isConflictError(err) || i == maxRetries-1 {
			break
		}

		delay := baseDelay * time.Duration(1<<i)
		slog.Debug("RecordExchange hit SQLITE_BUSY, retrying", "attempt", i+1, "delay", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("insert exchange: %w", err)
}

// ExchangeStats counts stored exchanges by kind.
func (s *SQLiteStore) ExchangeStats(ctx context.Context) (*Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM exchanges GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("query exchange stats: %w", err)
	}
	defer rows.Close()

	stats := &Stats{ByKind: make(map[string]int64)}
	for rows.Next() {
		var kind string
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan exchange stats: %w", err)
		}
		stats.ByKind[kind] = n
		stats.Total += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exchange stats: %w", err)
	}

	var oldest sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MIN(created_at) FROM exchanges`).Scan(&oldest); err != nil {
		return nil, fmt.Errorf("query oldest exchange: %w", err)
	}
	if oldest.Valid {
		since := time.UnixMilli(oldest.Int64).UTC()
		stats.Since = &since
	}

	return stats, nil
}

// PruneBefore deletes exchanges created before cutoff.
func (s *SQLiteStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM exchanges WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune exchanges: %w", err)
	}
	return result.RowsAffected()
}
