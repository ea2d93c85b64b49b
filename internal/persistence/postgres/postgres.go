// Package postgres implements the persistence port on a PostgreSQL table, for vaults
// shared by several machines.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/koyif/securevault/internal/persistence"
)

const (
	createTableSQL = `
		CREATE TABLE IF NOT EXISTS vault_kv (
			key        TEXT PRIMARY KEY,
			value      JSONB NOT NULL,
			version    BIGINT NOT NULL DEFAULT 1,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`

	loadSQL = `SELECT value::text FROM vault_kv WHERE key = $1`

	saveSQL = `
		INSERT INTO vault_kv (key, value) VALUES ($1, $2::jsonb)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			version = vault_kv.version + 1,
			updated_at = NOW()`
)

// DB is the subset of pgxpool.Pool the port needs. pgxmock pools satisfy it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Port stores values in the vault_kv table.
type Port struct {
	db     DB
	logger *zap.Logger
}

var _ persistence.Port = (*Port)(nil)

// Open connects to dsn, retrying transient failures, and ensures the table exists.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*Port, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dsn: %w", err)
	}
	poolCfg.MaxConns = 4

	var pool *pgxpool.Pool
	err = retry(ctx, DefaultRetryConfig(), func() error {
		p, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	port, err := New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return port, nil
}

// New wraps an existing connection and ensures the table exists.
func New(ctx context.Context, db DB, logger *zap.Logger) (*Port, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if _, err := db.Exec(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create vault_kv table: %w", err)
	}

	return &Port{db: db, logger: logger}, nil
}

// Load returns the value stored under key.
func (p *Port) Load(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := p.db.QueryRow(ctx, loadSQL, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
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

	if _, err := p.db.Exec(ctx, saveSQL, key, string(value)); err != nil {
		return fmt.Errorf("failed to save %q: %w", key, err)
	}

	p.logger.Debug("value saved", zap.String("key", key), zap.Int("bytes", len(value)))

	return nil
}

// Ping checks that the server is reachable.
func (p *Port) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

// Close closes the pool.
func (p *Port) Close() error {
	p.db.Close()
	return nil
}
