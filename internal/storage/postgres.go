package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createTableQuery = `
	CREATE TABLE IF NOT EXISTS timerpanel_kv (
		key        TEXT PRIMARY KEY,
		value      JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

// PostgresStore keeps documents in a single key/value table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and makes sure the table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	cfg.MaxConns = 4
	cfg.MinConns = 1
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating connection pool: %w", err)
	}

	if _, err := pool.Exec(connectCtx, createTableQuery); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error creating kv table: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Get returns the requested documents.
func (store *PostgresStore) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	query := `
		SELECT key, value
		FROM timerpanel_kv
		WHERE key = ANY($1)`

	rows, err := store.pool.Query(ctx, query, keys)
	if err != nil {
		return nil, fmt.Errorf("error querying keys: %w", err)
	}
	defer rows.Close()

	result := make(map[string]json.RawMessage, len(keys))
	for rows.Next() {
		var (
			key   string
			value []byte
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		result[key] = value
	}
	return result, rows.Err()
}

// Set upserts every value inside one transaction.
func (store *PostgresStore) Set(ctx context.Context, values map[string]any) error {
	encoded, err := encodeValues(values)
	if err != nil {
		return err
	}

	tx, err := store.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	query := `
		INSERT INTO timerpanel_kv (key, value, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

	for key, raw := range encoded {
		if _, err := tx.Exec(ctx, query, key, string(raw)); err != nil {
			return fmt.Errorf("error writing %s: %w", key, err)
		}
	}

	return tx.Commit(ctx)
}

// Close releases the pool.
func (store *PostgresStore) Close() error {
	store.pool.Close()
	return nil
}
