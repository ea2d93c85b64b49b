// Package sqlite implements the persistence port on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/koyif/securevault/internal/persistence"

	// Register SQLite driver for database/sql
	_ "modernc.org/sqlite"
)

const (
	loadSQL = `SELECT value FROM kv WHERE key = ?`

	saveSQL = `
		INSERT INTO kv (key, value, version, updated_at) VALUES (?, ?, 1, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			version = kv.version + 1,
			updated_at = excluded.updated_at
	`
)

// Port stores values in the kv table of a SQLite database.
type Port struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ persistence.Port = (*Port)(nil)

// Open opens (or creates) the database at dbPath and applies migrations.
// dbPath may be ":memory:" for a private in-memory database.
func Open(ctx context.Context, dbPath string, logger *zap.Logger) (*Port, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(FULL)",
		dbPath,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases alive and serialises writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Debug("sqlite storage opened", zap.String("path", dbPath))

	return &Port{db: db, logger: logger}, nil
}

// Load returns the value stored under key.
func (p *Port) Load(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := p.db.QueryRowContext(ctx, loadSQL, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %q: %w", key, err)
	}

	return []byte(value), nil
}

// Save upserts value under key.
func (p *Port) Save(ctx context.Context, key string, value []byte) error {
	if err := persistence.Validate(key, value); err != nil {
		return err
	}

	if _, err := p.db.ExecContext(ctx, saveSQL, key, string(value), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save %q: %w", key, err)
	}

	p.logger.Debug("value saved", zap.String("key", key), zap.Int("bytes", len(value)))

	return nil
}

// Version returns how many times key has been written, or 0 if it never was.
func (p *Port) Version(ctx context.Context, key string) (int64, error) {
	var version int64
	err := p.db.QueryRowContext(ctx, `SELECT version FROM kv WHERE key = ?`, key).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read version of %q: %w", key, err)
	}

	return version, nil
}

// Ping checks that the database file is reachable.
func (p *Port) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database.
func (p *Port) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}

	return nil
}
