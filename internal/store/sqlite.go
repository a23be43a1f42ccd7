package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/tradebot/internal/domain"
	"github.com/ashureev/tradebot/internal/shared"
	"github.com/cenkalti/backoff/v4"
	_ "modernc.org/sqlite"
)

const (
	busyRetryInitial = 50 * time.Millisecond
	busyRetryMax     = 3
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
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

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS sentries (
		username TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		hash BLOB,
		updated_at INTEGER NOT NULL
	);
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

// GetSentry retrieves the machine-auth secret for username.
func (s *SQLiteStore) GetSentry(ctx context.Context, username string) (*domain.Sentry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT username, data, hash, updated_at FROM sentries WHERE username = ?`, username)

	var sentry domain.Sentry
	var updatedAt int64
	err := row.Scan(&sentry.Username, &sentry.Data, &sentry.Hash, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan sentry row: %w", err)
	}
	sentry.UpdatedAt = time.Unix(updatedAt, 0)
	if len(sentry.Hash) == 0 {
		sentry.Hash = domain.SentryHash(sentry.Data)
	}
	return &sentry, nil
}

// SaveSentry creates or replaces the secret. Busy/locked errors are retried with
// exponential backoff.
func (s *SQLiteStore) SaveSentry(ctx context.Context, sentry *domain.Sentry) error {
	if sentry == nil || sentry.Username == "" {
		return fmt.Errorf("save sentry: username is required")
	}
	if sentry.UpdatedAt.IsZero() {
		sentry.UpdatedAt = time.Now()
	}
	if len(sentry.Hash) == 0 {
		sentry.Hash = domain.SentryHash(sentry.Data)
	}

	query := `
	INSERT INTO sentries (username, data, hash, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(username) DO UPDATE SET
		data = excluded.data,
		hash = excluded.hash,
		updated_at = excluded.updated_at`

	op := func() error {
		_, err := s.db.ExecContext(ctx, query,
			sentry.Username, sentry.Data, sentry.Hash, sentry.UpdatedAt.Unix())
		if err == nil {
			return nil
		}
		if shared.IsSQLiteConflictError(err) {
			slog.Debug("SaveSentry hit a locked database, retrying", "username", sentry.Username, "error", err)
			return err
		}
		return backoff.Permanent(err)
	}

	if err := backoff.Retry(op, busyRetryPolicy(ctx)); err != nil {
		return fmt.Errorf("upsert sentry: %w", err)
	}
	return nil
}

// DeleteSentry removes the secret for username.
func (s *SQLiteStore) DeleteSentry(ctx context.Context, username string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sentries WHERE username = ?`, username); err != nil {
		return fmt.Errorf("delete sentry: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func busyRetryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = busyRetryInitial
	b.Multiplier = 2
	return backoff.WithContext(backoff.WithMaxRetries(b, busyRetryMax), ctx)
}

var _ Repository = (*SQLiteStore)(nil)
