package integration

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"agentic-checkout/internal/core/ports"
)

// countingPSP approves everything except the configured decline token and
// counts side-effecting calls so tests can assert exactly-once semantics.
type countingPSP struct {
	declineToken   string
	authorizations int64
	captures       int64
}

func (p *countingPSP) Authorize(_ context.Context, req ports.AuthorizationRequest) (*ports.AuthorizationResult, error) {
	n := atomic.AddInt64(&p.authorizations, 1)
	if req.DelegatedToken == p.declineToken {
		return &ports.AuthorizationResult{Approved: false, Reason: "Card declined"}, nil
	}
	return &ports.AuthorizationResult{
		Approved: true,
		IntentID: fmt.Sprintf("pi_%d", n),
	}, nil
}

func (p *countingPSP) Capture(_ context.Context, _ string) (*ports.CaptureResult, error) {
	atomic.AddInt64(&p.captures, 1)
	return &ports.CaptureResult{Captured: true}, nil
}

func (p *countingPSP) authorizeCount() int64 { return atomic.LoadInt64(&p.authorizations) }
func (p *countingPSP) captureCount() int64   { return atomic.LoadInt64(&p.captures) }

// recordingSink collects emitted order events in memory.
type recordingSink struct {
	mu     sync.Mutex
	events []ports.OrderEvent
}

func (s *recordingSink) OrderUpdated(_ context.Context, event ports.OrderEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) all() []ports.OrderEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ports.OrderEvent, len(s.events))
	copy(out, s.events)
	return out
}
