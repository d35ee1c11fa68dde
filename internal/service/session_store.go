package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agentic-checkout/internal/core/domain"
	"agentic-checkout/internal/core/ports"
)

// sessionKeyPrefix namespaces session records in the KV store.
const sessionKeyPrefix = "acp:session:"

// kvSessionStore implements ports.SessionStore over a KV backend with JSON
// serialization. It exclusively owns session bytes in the store.
type kvSessionStore struct {
	kv  ports.KVStore
	ttl time.Duration
	now func() time.Time
}

// NewSessionStore creates a session repository with the given session TTL.
func NewSessionStore(kv ports.KVStore, ttl time.Duration) ports.SessionStore {
	return &kvSessionStore{kv: kv, ttl: ttl, now: time.Now}
}

// Get loads a session by id. Misses and expired entries return nil, nil;
// undecodable bytes are a fatal internal error.
func (s *kvSessionStore) Get(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	raw, ok, err := s.kv.Get(ctx, sessionKeyPrefix+id)
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var session domain.CheckoutSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("session %s: corrupt record: %w", id, err)
	}
	return &session, nil
}

// Put stamps updated_at and writes the session under the session TTL.
func (s *kvSessionStore) Put(ctx context.Context, session *domain.CheckoutSession) error {
	session.UpdatedAt = s.now().UTC()
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("session marshal: %w", err)
	}
	if err := s.kv.Set(ctx, sessionKeyPrefix+session.ID, string(raw), s.ttl); err != nil {
		return fmt.Errorf("session put: %w", err)
	}
	return nil
}
