package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agentic-checkout/internal/core/domain"
	"agentic-checkout/internal/core/ports"
	"agentic-checkout/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CheckoutServiceImpl implements ports.CheckoutService. Every mutation is a
// compute closure handed to the idempotency guard; the guard caches the
// serialized response so replays return byte-equal bodies.
type CheckoutServiceImpl struct {
	sessions ports.SessionStore
	catalog  ports.Catalog
	psp      ports.PaymentProvider
	webhooks ports.WebhookSink
	guard    *IdempotencyGuard
	log      zerolog.Logger
	now      func() time.Time
	newID    func() string
}

// NewCheckoutService creates the protocol engine.
func NewCheckoutService(
	sessions ports.SessionStore,
	catalog ports.Catalog,
	psp ports.PaymentProvider,
	webhooks ports.WebhookSink,
	guard *IdempotencyGuard,
	log zerolog.Logger,
) *CheckoutServiceImpl {
	return &CheckoutServiceImpl{
		sessions: sessions,
		catalog:  catalog,
		psp:      psp,
		webhooks: webhooks,
		guard:    guard,
		log:      log,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// guardKey scopes the client token per operation (endpoint+method).
func guardKey(operation, scope, idemKey string) string {
	if idemKey == "" {
		return ""
	}
	return domain.BuildIdempotencyKey(operation, scope, idemKey)
}

// Create prices the cart and persists a new session. The initial status
// follows the quote's readiness flag.
func (s *CheckoutServiceImpl) Create(ctx context.Context, idemKey string, req ports.CreateSessionRequest) (*ports.OperationResult, error) {
	return s.guard.Do(ctx, guardKey("create", "", idemKey), func(ctx context.Context) ([]byte, error) {
		quote, err := s.catalog.Price(ctx, ports.Cart{
			Items:       req.Items,
			Customer:    req.Customer,
			Fulfillment: req.Fulfillment,
		})
		if err != nil {
			return nil, apperror.Internal(fmt.Errorf("catalog price: %w", err))
		}

		now := s.now().UTC()
		session := &domain.CheckoutSession{
			ID:          s.newID(),
			Status:      statusFromQuote(quote),
			Items:       quote.Items,
			Totals:      quote.Totals,
			Fulfillment: quote.Fulfillment,
			Customer:    quote.Customer,
			Messages:    quote.Messages,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := session.Validate(); err != nil {
			return nil, apperror.Internal(fmt.Errorf("quote produced invalid session: %w", err))
		}
		if err := s.sessions.Put(ctx, session); err != nil {
			return nil, apperror.Internal(err)
		}

		s.log.Info().
			Str("session_id", session.ID).
			Str("status", string(session.Status)).
			Int64("grand_total", session.Totals.GrandTotal.Amount).
			Msg("checkout session created")

		return json.Marshal(session)
	})
}

// Get loads a session by id. Terminal sessions remain retrievable until the
// session TTL expires them from the store.
func (s *CheckoutServiceImpl) Get(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if session == nil {
		return nil, apperror.SessionNotFound(id)
	}
	return session, nil
}

// Update merges the request into the current session, reprices, and
// recomputes the status from the new quote. Terminal sessions never re-open.
func (s *CheckoutServiceImpl) Update(ctx context.Context, idemKey, id string, req ports.UpdateSessionRequest) (*ports.OperationResult, error) {
	return s.guard.Do(ctx, guardKey("update", id, idemKey), func(ctx context.Context) ([]byte, error) {
		session, err := s.sessions.Get(ctx, id)
		if err != nil {
			return nil, apperror.Internal(err)
		}
		if session == nil {
			return nil, apperror.SessionNotFound(id)
		}
		if session.Status.IsTerminal() {
			return nil, apperror.InvalidState(fmt.Sprintf("session is %s and can no longer be updated", session.Status))
		}

		items := req.Items
		if items == nil {
			items = itemRefs(session.Items)
		}
		customer := req.Customer
		if customer == nil {
			customer = session.Customer
		}
		fulfillment := req.Fulfillment
		if fulfillment == nil {
			fulfillment = session.Fulfillment
		}

		quote, err := s.catalog.Price(ctx, ports.Cart{
			Items:       items,
			Customer:    customer,
			Fulfillment: fulfillment,
		})
		if err != nil {
			return nil, apperror.Internal(fmt.Errorf("catalog price: %w", err))
		}

		session.Items = quote.Items
		session.Totals = quote.Totals
		session.Fulfillment = quote.Fulfillment
		session.Customer = quote.Customer
		session.Messages = quote.Messages

		if quote.Ready {
			if session.Status == domain.StatusNotReadyForPayment {
				if err := domain.CanTransition(session.Status, domain.StatusReadyForPayment); err != nil {
					return nil, apperror.InvalidState(err.Error())
				}
				session.Status = domain.StatusReadyForPayment
			}
		} else {
			session.Status = domain.StatusNotReadyForPayment
		}

		if err := session.Validate(); err != nil {
			return nil, apperror.Internal(fmt.Errorf("quote produced invalid session: %w", err))
		}
		if err := s.sessions.Put(ctx, session); err != nil {
			return nil, apperror.Internal(err)
		}

		s.log.Info().
			Str("session_id", session.ID).
			Str("status", string(session.Status)).
			Msg("checkout session updated")

		return json.Marshal(session)
	})
}

// Complete authorizes and captures payment, marks the session completed, and
// emits the terminal webhook. The webhook sits inside the compute closure so
// the cached idempotent response carries the same order id on replay.
func (s *CheckoutServiceImpl) Complete(ctx context.Context, idemKey, id string, req ports.CompleteSessionRequest) (*ports.OperationResult, error) {
	return s.guard.Do(ctx, guardKey("complete", id, idemKey), func(ctx context.Context) ([]byte, error) {
		session, err := s.sessions.Get(ctx, id)
		if err != nil {
			return nil, apperror.Internal(err)
		}
		if session == nil {
			return nil, apperror.SessionNotFound(id)
		}
		if session.Status != domain.StatusReadyForPayment {
			return nil, apperror.InvalidState(fmt.Sprintf("session is %s; complete requires %s", session.Status, domain.StatusReadyForPayment))
		}

		auth, err := s.psp.Authorize(ctx, ports.AuthorizationRequest{
			Session:        session,
			DelegatedToken: req.DelegatedToken,
			Method:         req.Method,
		})
		if err != nil {
			return nil, apperror.Internal(fmt.Errorf("psp authorize: %w", err))
		}
		if !auth.Approved {
			return nil, apperror.PaymentAuthorizationFailed(auth.Reason)
		}

		capture, err := s.psp.Capture(ctx, auth.IntentID)
		if err != nil {
			return nil, apperror.Internal(fmt.Errorf("psp capture: %w", err))
		}
		if !capture.Captured {
			return nil, apperror.PaymentCaptureFailed(capture.Reason)
		}

		if err := domain.CanTransition(session.Status, domain.StatusCompleted); err != nil {
			return nil, apperror.InvalidState(err.Error())
		}
		session.Status = domain.StatusCompleted
		if err := s.sessions.Put(ctx, session); err != nil {
			return nil, apperror.Internal(err)
		}

		order := domain.Order{
			ID:                auth.IntentID,
			CheckoutSessionID: session.ID,
			Status:            domain.OrderStatusPlaced,
		}

		// Delivery failures are logged and retried by the sink; a committed
		// completion must still cache its response, or the client's retry
		// would re-attempt payment.
		if err := s.webhooks.OrderUpdated(ctx, ports.OrderEvent{
			Type:              ports.EventOrderCreated,
			CheckoutSessionID: session.ID,
			Status:            string(domain.StatusCompleted),
			Order:             &order,
		}); err != nil {
			s.log.Warn().Err(err).Str("session_id", session.ID).Msg("order webhook emission failed")
		}

		s.log.Info().
			Str("session_id", session.ID).
			Str("order_id", order.ID).
			Msg("checkout session completed")

		return json.Marshal(domain.SessionWithOrder{CheckoutSession: *session, Order: order})
	})
}

// Cancel moves a non-terminal session to canceled and emits the webhook.
func (s *CheckoutServiceImpl) Cancel(ctx context.Context, idemKey, id string) (*ports.OperationResult, error) {
	return s.guard.Do(ctx, guardKey("cancel", id, idemKey), func(ctx context.Context) ([]byte, error) {
		session, err := s.sessions.Get(ctx, id)
		if err != nil {
			return nil, apperror.Internal(err)
		}
		if session == nil {
			return nil, apperror.SessionNotFound(id)
		}
		if err := domain.CanTransition(session.Status, domain.StatusCanceled); err != nil {
			return nil, apperror.InvalidState(err.Error())
		}

		session.Status = domain.StatusCanceled
		if err := s.sessions.Put(ctx, session); err != nil {
			return nil, apperror.Internal(err)
		}

		if err := s.webhooks.OrderUpdated(ctx, ports.OrderEvent{
			Type:              ports.EventOrderUpdated,
			CheckoutSessionID: session.ID,
			Status:            string(domain.StatusCanceled),
		}); err != nil {
			s.log.Warn().Err(err).Str("session_id", session.ID).Msg("cancel webhook emission failed")
		}

		s.log.Info().Str("session_id", session.ID).Msg("checkout session canceled")

		return json.Marshal(session)
	})
}

// statusFromQuote derives the initial state of a new session.
func statusFromQuote(quote *ports.Quote) domain.SessionStatus {
	if quote.Ready {
		return domain.StatusReadyForPayment
	}
	return domain.StatusNotReadyForPayment
}

// itemRefs reduces stored line items back to {id, quantity} cart lines.
func itemRefs(items []domain.LineItem) []ports.ItemRef {
	refs := make([]ports.ItemRef, 0, len(items))
	for _, item := range items {
		refs = append(refs, ports.ItemRef{ID: item.ID, Quantity: item.Quantity})
	}
	return refs
}
