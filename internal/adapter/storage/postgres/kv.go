package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Pool is the subset of pgxpool.Pool the adapters use. pgxmock satisfies it
// for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// KVStore implements ports.KVStore on a single PostgreSQL table. SetNX relies
// on INSERT ... ON CONFLICT DO NOTHING, which is atomic per key, so the
// idempotency guard keeps its single-flight property on this backend too.
type KVStore struct {
	pool Pool
	now  func() time.Time
}

// NewKVStore creates a PostgreSQL-backed KV store.
func NewKVStore(pool Pool) *KVStore {
	return &KVStore{pool: pool, now: time.Now}
}

// Migrate creates the backing table. Expired rows are reclaimed lazily on
// read and on SetNX takeover rather than by a background sweeper.
func (s *KVStore) Migrate(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS acp_kv (
		k TEXT PRIMARY KEY,
		v TEXT NOT NULL,
		expires_at TIMESTAMPTZ
	)`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("migrate acp_kv: %w", err)
	}
	return nil
}

// Get returns the value and whether the key exists and is unexpired.
func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	query := `SELECT v FROM acp_kv WHERE k = $1 AND (expires_at IS NULL OR expires_at > $2)`

	var value string
	err := s.pool.QueryRow(ctx, query, key, s.now().UTC()).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("kv get: %w", err)
	}
	return value, true, nil
}

// Set writes unconditionally, replacing any prior value and TTL.
func (s *KVStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	query := `INSERT INTO acp_kv (k, v, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v, expires_at = EXCLUDED.expires_at`

	if _, err := s.pool.Exec(ctx, query, key, value, s.expiresAt(ttl)); err != nil {
		return fmt.Errorf("kv set: %w", err)
	}
	return nil
}

// SetNX creates the key only if absent and reports whether the caller won.
// A row whose TTL has lapsed counts as absent and is taken over in place.
func (s *KVStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	insert := `INSERT INTO acp_kv (k, v, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (k) DO NOTHING`

	tag, err := s.pool.Exec(ctx, insert, key, value, s.expiresAt(ttl))
	if err != nil {
		return false, fmt.Errorf("kv setnx: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	takeover := `UPDATE acp_kv SET v = $2, expires_at = $3
		WHERE k = $1 AND expires_at IS NOT NULL AND expires_at <= $4`

	tag, err = s.pool.Exec(ctx, takeover, key, value, s.expiresAt(ttl), s.now().UTC())
	if err != nil {
		return false, fmt.Errorf("kv setnx takeover: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// expiresAt converts a ttl to an absolute expiry; zero means no expiry.
func (s *KVStore) expiresAt(ttl time.Duration) *time.Time {
	if ttl <= 0 {
		return nil
	}
	t := s.now().UTC().Add(ttl)
	return &t
}
