package domain

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPlaced   OrderStatus = "placed"
	OrderStatusFailed   OrderStatus = "failed"
	OrderStatusRefunded OrderStatus = "refunded"
)

// Order is created on successful completion of a checkout session. Its id is
// the PSP payment intent id; no order store exists — the order travels only
// in the complete response and the outbound webhook.
type Order struct {
	ID                string      `json:"id"`
	CheckoutSessionID string      `json:"checkout_session_id"`
	Status            OrderStatus `json:"status"`
	PermalinkURL      *string     `json:"permalink_url,omitempty"`
}

// SessionWithOrder is the complete-response body: the session with the
// resulting order embedded.
type SessionWithOrder struct {
	CheckoutSession
	Order Order `json:"order"`
}

// BuildIdempotencyKey constructs the guard key for a client-supplied token.
// The operation and scope components keep keys distinct per endpoint+method.
func BuildIdempotencyKey(operation, scope, clientKey string) string {
	if scope == "" {
		return operation + ":" + clientKey
	}
	return operation + ":" + scope + ":" + clientKey
}
