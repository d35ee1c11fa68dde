package service

import (
	"context"
	"strconv"
	"time"

	"agentic-checkout/internal/core/ports"
	"agentic-checkout/pkg/apperror"

	"github.com/rs/zerolog"
)

const (
	// idempotencyKeyPrefix namespaces guard records in the KV store.
	idempotencyKeyPrefix = "acp:"

	// Sentinel values distinguishing in-flight and failed executions from
	// serialized successful results.
	pendingSentinel = "__pending__"
	failedSentinel  = "__failed__"

	// failMarkerSuffix names the companion failure marker written next to a
	// failed key for observability.
	failMarkerSuffix = ":fail"
	failMarkerTTL    = 60 * time.Second
)

// defaultWaitBackoff is the poll schedule for requests that lost the SetNX
// race and are waiting on the winner.
var defaultWaitBackoff = []time.Duration{
	50 * time.Millisecond,
	100 * time.Millisecond,
	200 * time.Millisecond,
	400 * time.Millisecond,
	800 * time.Millisecond,
	1600 * time.Millisecond,
	3200 * time.Millisecond,
}

// ComputeFunc produces the serialized response body of an operation.
type ComputeFunc func(ctx context.Context) ([]byte, error)

// IdempotencyGuard executes a compute closure at most once per key across
// the cluster and caches the serialized result for the idempotency TTL.
// Single flight is enforced by the KV backend's atomic SetNX, not by
// in-process locking, so the server scales horizontally.
type IdempotencyGuard struct {
	kv      ports.KVStore
	ttl     time.Duration
	backoff []time.Duration
	log     zerolog.Logger
	now     func() time.Time
}

// NewIdempotencyGuard creates a guard. ttl must be at least the session TTL:
// expiring the idempotency record before the session it advanced would let a
// retried client re-execute the compute and risk double payment.
func NewIdempotencyGuard(kv ports.KVStore, ttl time.Duration, log zerolog.Logger) *IdempotencyGuard {
	return &IdempotencyGuard{
		kv:      kv,
		ttl:     ttl,
		backoff: defaultWaitBackoff,
		log:     log,
		now:     time.Now,
	}
}

// Do runs compute under single-flight semantics for key. An empty key runs
// compute inline with no caching. Concurrent callers holding the same key
// either observe the cached result, wait on the pending marker, or time out;
// they never race into compute themselves.
func (g *IdempotencyGuard) Do(ctx context.Context, key string, compute ComputeFunc) (*ports.OperationResult, error) {
	if key == "" {
		body, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		return &ports.OperationResult{Body: body}, nil
	}

	storeKey := idempotencyKeyPrefix + key

	val, ok, err := g.kv.Get(ctx, storeKey)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if ok {
		switch val {
		case pendingSentinel:
			return g.waitForResult(ctx, storeKey)
		case failedSentinel:
			return nil, apperror.IdempotentRequestFailed()
		default:
			return &ports.OperationResult{Body: []byte(val), Reused: true}, nil
		}
	}

	won, err := g.kv.SetNX(ctx, storeKey, pendingSentinel, g.ttl)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if !won {
		return g.waitForResult(ctx, storeKey)
	}

	// Once the lock is taken the closure must run to a cached success or
	// fail marker even if the client disconnects; otherwise retries would
	// deadlock on the pending sentinel.
	body, err := compute(context.WithoutCancel(ctx))
	if err != nil {
		g.markFailed(storeKey)
		return nil, err
	}
	if setErr := g.kv.Set(context.WithoutCancel(ctx), storeKey, string(body), g.ttl); setErr != nil {
		g.log.Error().Err(setErr).Str("key", storeKey).Msg("idempotency: failed to cache result")
		return nil, apperror.Internal(setErr)
	}
	return &ports.OperationResult{Body: body}, nil
}

// waitForResult polls for the winner's outcome on a bounded backoff.
func (g *IdempotencyGuard) waitForResult(ctx context.Context, storeKey string) (*ports.OperationResult, error) {
	for _, delay := range g.backoff {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, apperror.Internal(ctx.Err())
		}

		val, ok, err := g.kv.Get(ctx, storeKey)
		if err != nil {
			return nil, apperror.Internal(err)
		}
		if ok {
			switch val {
			case pendingSentinel:
				continue
			case failedSentinel:
				return nil, apperror.IdempotentRequestFailed()
			default:
				return &ports.OperationResult{Body: []byte(val), Reused: true}, nil
			}
		}

		// Key vanished: the failed sentinel may have expired ahead of its
		// companion marker.
		if _, failed, err := g.kv.Get(ctx, storeKey+failMarkerSuffix); err == nil && failed {
			return nil, apperror.IdempotentRequestFailed()
		}
	}
	return nil, apperror.IdempotencyTimeout()
}

// markFailed records the failed sentinel and its companion marker.
func (g *IdempotencyGuard) markFailed(storeKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.kv.Set(ctx, storeKey, failedSentinel, failMarkerTTL); err != nil {
		g.log.Error().Err(err).Str("key", storeKey).Msg("idempotency: failed to write failure sentinel")
	}
	ts := strconv.FormatInt(g.now().Unix(), 10)
	if err := g.kv.Set(ctx, storeKey+failMarkerSuffix, ts, failMarkerTTL); err != nil {
		g.log.Warn().Err(err).Str("key", storeKey).Msg("idempotency: failed to write failure marker")
	}
}
