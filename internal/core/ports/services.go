package ports

import (
	"context"

	"agentic-checkout/internal/core/domain"
)

// ItemRef is the agent-supplied cart line: a catalog id and a quantity.
type ItemRef struct {
	ID       string
	Quantity int64
}

// Cart is the input to a pricing call.
type Cart struct {
	Items       []ItemRef
	Customer    *domain.Customer
	Fulfillment *domain.Fulfillment
}

// Quote is the output of a pricing call: priced items, authoritative totals,
// fulfillment options, advisory messages, and a readiness flag.
type Quote struct {
	Items       []domain.LineItem
	Totals      domain.Totals
	Fulfillment *domain.Fulfillment
	Customer    *domain.Customer
	Messages    []domain.Message
	Ready       bool
}

// Catalog prices a cart. It is the sole source of line items and totals;
// the engine never computes prices itself.
type Catalog interface {
	Price(ctx context.Context, cart Cart) (*Quote, error)
}

// AuthorizationRequest carries what the PSP needs to authorize a payment.
// DelegatedToken is an opaque payment handle passed through from the agent;
// the server never sees card data.
type AuthorizationRequest struct {
	Session        *domain.CheckoutSession
	DelegatedToken string
	Method         string
}

// AuthorizationResult is the PSP's answer. A declined authorization is not
// an error: Approved is false and Reason carries the provider's text.
type AuthorizationResult struct {
	Approved bool
	IntentID string
	Reason   string
}

// CaptureResult is the outcome of capturing an authorized intent.
type CaptureResult struct {
	Captured bool
	Reason   string
}

// PaymentProvider performs authorization and capture. Both calls are
// non-idempotent side effects; the idempotency guard ensures each runs at
// most once per client key. Uncaptured authorizations are not voided here —
// providers auto-expire them (Stripe cancels uncaptured manual-capture
// intents after seven days).
type PaymentProvider interface {
	Authorize(ctx context.Context, req AuthorizationRequest) (*AuthorizationResult, error)
	Capture(ctx context.Context, intentID string) (*CaptureResult, error)
}

// Outbound webhook event types.
const (
	EventOrderCreated = "order_created"
	EventOrderUpdated = "order_updated"
)

// OrderEvent is the payload handed to the webhook sink after a session
// reaches a terminal state.
type OrderEvent struct {
	Type              string
	CheckoutSessionID string
	Status            string
	PermalinkURL      string
	Order             *domain.Order
}

// WebhookSink delivers order events to the merchant's configured endpoint.
// Delivery is at-least-once; receivers must tolerate duplicates.
type WebhookSink interface {
	OrderUpdated(ctx context.Context, event OrderEvent) error
}

// SignatureService signs and verifies HMAC-SHA256 payloads of the form
// "<timestamp>.<body>".
type SignatureService interface {
	Sign(secret []byte, timestamp int64, body []byte) string
	// Verify rejects missing or malformed timestamps, stale timestamps
	// beyond the configured tolerance, and signature mismatches.
	Verify(secret []byte, timestamp string, body []byte, signature string) error
}

// AuthVerifier validates the bearer credential on inbound requests. The
// scheme is pluggable; the engine does not bake one in.
type AuthVerifier interface {
	Verify(token string) error
}

// CreateSessionRequest is the validated input of the create operation.
type CreateSessionRequest struct {
	Items       []ItemRef
	Customer    *domain.Customer
	Fulfillment *domain.Fulfillment
}

// UpdateSessionRequest is the validated input of the update operation.
// Nil fields keep the session's current value.
type UpdateSessionRequest struct {
	Items       []ItemRef
	Customer    *domain.Customer
	Fulfillment *domain.Fulfillment
}

// CompleteSessionRequest is the validated input of the complete operation.
type CompleteSessionRequest struct {
	DelegatedToken string
	Method         string
	Customer       *domain.Customer
	Fulfillment    *domain.Fulfillment
}

// OperationResult is the serialized outcome of an idempotent operation.
// Body is the exact response JSON; replays return it byte-equal. Reused is
// true when the result came from the idempotency cache.
type OperationResult struct {
	Body   []byte
	Reused bool
}

// CheckoutService is the protocol engine: the five checkout-session
// operations. idemKey is the client-supplied Idempotency-Key; empty means
// the operation runs unguarded.
type CheckoutService interface {
	Create(ctx context.Context, idemKey string, req CreateSessionRequest) (*OperationResult, error)
	Get(ctx context.Context, id string) (*domain.CheckoutSession, error)
	Update(ctx context.Context, idemKey, id string, req UpdateSessionRequest) (*OperationResult, error)
	Complete(ctx context.Context, idemKey, id string, req CompleteSessionRequest) (*OperationResult, error)
	Cancel(ctx context.Context, idemKey, id string) (*OperationResult, error)
}
