package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres keeps every blob in a single key/value table.
type Postgres struct {
	Pool *pgxpool.Pool
}

// EnsureSchema creates the blob table when it does not exist yet.
func (p Postgres) EnsureSchema(ctx context.Context) error {
	if p.Pool == nil {
		return errors.New("store: pgx pool not configured")
	}
	_, err := p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS storefront_blobs (
			key        text PRIMARY KEY,
			blob       jsonb NOT NULL,
			updated_at timestamptz NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("store: ensure schema: %w", err)
	}
	return nil
}

// Load implements Adapter.
func (p Postgres) Load(ctx context.Context, key string) ([]byte, error) {
	if p.Pool == nil {
		return nil, errors.New("store: pgx pool not configured")
	}
	var raw []byte
	err := p.Pool.QueryRow(ctx, `SELECT blob FROM storefront_blobs WHERE key = $1`, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: select %s: %w", key, err)
	}
	return raw, nil
}

// Save implements Adapter.
func (p Postgres) Save(ctx context.Context, key string, blob []byte) error {
	if p.Pool == nil {
		return errors.New("store: pgx pool not configured")
	}
	_, err := p.Pool.Exec(ctx, `
		INSERT INTO storefront_blobs (key, blob, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET blob = EXCLUDED.blob, updated_at = now()`,
		key, blob)
	if err != nil {
		return fmt.Errorf("store: upsert %s: %w", key, err)
	}
	return nil
}
