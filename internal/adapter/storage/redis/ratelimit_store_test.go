package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRateLimitStore(t *testing.T) *RateLimitStore {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewRateLimitStore(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
}

func TestRateLimit_AllowsUnderLimit(t *testing.T) {
	store := newRateLimitStore(t)
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		result, err := store.Allow(ctx, "1.2.3.4:checkout_write", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d", i)
		assert.Equal(t, int64(5), result.Limit)
		assert.Equal(t, 5-i, result.Remaining)
	}
}

func TestRateLimit_BlocksOverLimit(t *testing.T) {
	store := newRateLimitStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := store.Allow(ctx, "1.2.3.4:checkout_write", 2, time.Minute)
		require.NoError(t, err)
		require.True(t, result.Allowed)
	}

	result, err := store.Allow(ctx, "1.2.3.4:checkout_write", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, int64(0), result.Remaining)
	assert.Greater(t, result.ResetAt, time.Now().Unix()-1)
}

func TestRateLimit_KeysAreIndependent(t *testing.T) {
	store := newRateLimitStore(t)
	ctx := context.Background()

	result, err := store.Allow(ctx, "1.2.3.4:checkout_write", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, result.Allowed)

	// A different client is unaffected by the first client's counter.
	result, err = store.Allow(ctx, "5.6.7.8:checkout_write", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestRateLimit_WindowKeyCarriesPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRateLimitStore(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))

	_, err := store.Allow(context.Background(), "1.2.3.4:checkout_read", 10, time.Minute)
	require.NoError(t, err)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], "acp:ratelimit:1.2.3.4:checkout_read:")
}
