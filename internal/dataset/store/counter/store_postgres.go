package counter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	txcontext "lumine/pkg/platform/tx"
)

// PostgresCounter stores counters in the app_config key/value table.
type PostgresCounter struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresCounter {
	return &PostgresCounter{db: db}
}

type dbExecutor interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (c *PostgresCounter) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return c.db
}

// Get seeds the key when missing. Inside a transaction the row is read FOR UPDATE
// so concurrent writers serialise on it until commit. A read-only transaction
// cannot seed or lock, so a missing key reads as initial there.
func (c *PostgresCounter) Get(ctx context.Context, key string, initial int64) (int64, error) {
	exec := c.execer(ctx)
	if txcontext.IsReadOnly(ctx) {
		var v int64
		err := exec.QueryRowContext(ctx, `SELECT value FROM app_config WHERE key = $1`, key).Scan(&v)
		if errors.Is(err, sql.ErrNoRows) {
			return initial, nil
		}
		if err != nil {
			return 0, fmt.Errorf("read counter %s: %w", key, err)
		}
		return v, nil
	}
	if _, err := exec.ExecContext(ctx,
		`INSERT INTO app_config (key, value) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING`,
		key, initial,
	); err != nil {
		return 0, fmt.Errorf("seed counter %s: %w", key, err)
	}

	query := `SELECT value FROM app_config WHERE key = $1`
	if _, inTx := txcontext.From(ctx); inTx {
		query += ` FOR UPDATE`
	}
	var v int64
	if err := exec.QueryRowContext(ctx, query, key).Scan(&v); err != nil {
		return 0, fmt.Errorf("read counter %s: %w", key, err)
	}
	return v, nil
}

// Increment is a single upsert statement, so it is atomic with or without an
// enclosing transaction.
func (c *PostgresCounter) Increment(ctx context.Context, key string, initial int64) (int64, error) {
	var v int64
	err := c.execer(ctx).QueryRowContext(ctx, `
		INSERT INTO app_config (key, value) VALUES ($1, $2 + 1)
		ON CONFLICT (key) DO UPDATE SET value = app_config.value + 1
		RETURNING value
	`, key, initial).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("increment counter %s: %w", key, err)
	}
	return v, nil
}
