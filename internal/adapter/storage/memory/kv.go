// Package memory provides an in-process KVStore for tests and single-node
// development runs. It honors TTLs but offers no durability and no
// cross-process atomicity.
package memory

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value   string
	expires time.Time
}

// KVStore is a mutex-guarded map implementing ports.KVStore.
type KVStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewKVStore creates an empty store.
func NewKVStore() *KVStore {
	return &KVStore{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the value and whether the key exists and is unexpired.
func (s *KVStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return "", false, nil
	}
	if s.expired(e) {
		delete(s.entries, key)
		return "", false, nil
	}
	return e.value, true, nil
}

// Set writes unconditionally. A zero ttl means no expiry.
func (s *KVStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = s.newEntry(value, ttl)
	return nil
}

// SetNX creates the key only if absent and reports whether the caller won.
func (s *KVStore) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok && !s.expired(e) {
		return false, nil
	}
	s.entries[key] = s.newEntry(value, ttl)
	return true, nil
}

func (s *KVStore) newEntry(value string, ttl time.Duration) entry {
	e := entry{value: value}
	if ttl > 0 {
		e.expires = s.now().Add(ttl)
	}
	return e
}

func (s *KVStore) expired(e entry) bool {
	return !e.expires.IsZero() && s.now().After(e.expires)
}
