package ports

import (
	"context"
	"time"

	"agentic-checkout/internal/core/domain"
)

// KVStore is the string-keyed store the engine persists into. SetNX must be
// atomic at the backend; implementations that cannot offer this are
// unsuitable for the idempotency guard.
type KVStore interface {
	// Get returns the value and whether the key exists and is unexpired.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes unconditionally. A zero ttl means no expiry; a non-zero ttl
	// replaces any prior ttl.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX atomically creates the key if absent and reports whether the
	// caller won the race.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}

// SessionStore is the typed session repository over the KV store.
type SessionStore interface {
	// Get returns nil, nil on miss or expiry. Parse failures are fatal
	// internal errors.
	Get(ctx context.Context, id string) (*domain.CheckoutSession, error)
	// Put stamps updated_at and writes the session under the session TTL.
	// The caller must not mutate the value afterward without re-putting.
	Put(ctx context.Context, session *domain.CheckoutSession) error
}
