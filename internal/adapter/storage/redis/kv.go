package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// KVStore implements ports.KVStore on Redis. SetNX maps to SET NX, which is
// atomic at the server — the property the idempotency guard depends on.
type KVStore struct {
	client *goredis.Client
}

// NewKVStore creates a Redis-backed KV store.
func NewKVStore(client *goredis.Client) *KVStore {
	return &KVStore{client: client}
}

// Get returns the value and whether the key exists.
func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err == goredis.Nil {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return val, true, nil
}

// Set writes unconditionally, replacing any prior TTL.
func (s *KVStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// SetNX atomically creates the key if absent and reports whether the caller
// won the race.
func (s *KVStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	result, err := s.client.SetArgs(ctx, key, value, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if err == goredis.Nil {
			// Key already exists — another caller won.
			return false, nil
		}
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return result == "OK", nil
}
