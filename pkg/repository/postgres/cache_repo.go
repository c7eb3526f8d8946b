package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/artem13815/curricula/pkg/cache"
)

// CacheRepository stores result-cache entries. Entries are shared across the
// whole process and across restarts; they are only ever invalidated by an
// explicit administrative action, never by TTL.
type CacheRepository struct {
	pool *pgxpool.Pool
}

func NewCacheRepository(pool *pgxpool.Pool) (*CacheRepository, error) {
	r := &CacheRepository{pool: pool}
	if err := r.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *CacheRepository) ensureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS cache_entries (
	key TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	payload JSONB NOT NULL,
	valid BOOLEAN NOT NULL DEFAULT TRUE,
	access_count BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`)
	return err
}

// Get reads a valid entry and bumps its access counter in the same statement.
func (r *CacheRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	row := r.pool.QueryRow(ctx, `
UPDATE cache_entries SET access_count = access_count + 1
WHERE key = $1 AND valid
RETURNING payload
`, key)
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return payload, true, nil
}

func (r *CacheRepository) Put(ctx context.Context, key string, kind cache.Kind, payload []byte) error {
	now := time.Now().UTC()
	_, err := r.pool.Exec(ctx, `
INSERT INTO cache_entries (key, kind, payload, valid, access_count, created_at, updated_at)
VALUES ($1, $2, $3, TRUE, 0, $4, $4)
ON CONFLICT (key) DO UPDATE SET
	kind = EXCLUDED.kind,
	payload = EXCLUDED.payload,
	valid = TRUE,
	updated_at = EXCLUDED.updated_at
`, key, kind, payload, now)
	return err
}

func (r *CacheRepository) Invalidate(ctx context.Context, key string) error {
	_, err := r.pool.Exec(ctx, `
UPDATE cache_entries SET valid = FALSE, updated_at = $2 WHERE key = $1
`, key, time.Now().UTC())
	return err
}

func (r *CacheRepository) InvalidateAll(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
UPDATE cache_entries SET valid = FALSE, updated_at = $1 WHERE valid
`, time.Now().UTC())
	return err
}
