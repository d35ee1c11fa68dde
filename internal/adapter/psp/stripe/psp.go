// Package stripe adapts Stripe PaymentIntents to ports.PaymentProvider.
// Authorization uses manual capture so the charge is only settled after the
// session transition is known to be legal.
package stripe

import (
	"context"
	"errors"
	"fmt"

	"agentic-checkout/internal/core/ports"

	stripego "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"
)

// Provider implements ports.PaymentProvider on Stripe.
type Provider struct {
	newIntent     func(params *stripego.PaymentIntentParams) (*stripego.PaymentIntent, error)
	captureIntent func(id string, params *stripego.PaymentIntentCaptureParams) (*stripego.PaymentIntent, error)
}

// New creates a provider. The API key is set process-wide, matching the
// stripe-go client model.
func New(apiKey string) *Provider {
	stripego.Key = apiKey
	return &Provider{
		newIntent:     paymentintent.New,
		captureIntent: paymentintent.Capture,
	}
}

// Authorize creates and confirms a manual-capture PaymentIntent for the
// session's grand total, using the delegated token as the payment method.
func (p *Provider) Authorize(ctx context.Context, req ports.AuthorizationRequest) (*ports.AuthorizationResult, error) {
	if req.DelegatedToken == "" {
		return &ports.AuthorizationResult{Approved: false, Reason: "missing delegated payment token"}, nil
	}

	params := &stripego.PaymentIntentParams{
		Amount:        stripego.Int64(req.Session.Totals.GrandTotal.Amount),
		Currency:      stripego.String(req.Session.Totals.GrandTotal.Currency),
		CaptureMethod: stripego.String(string(stripego.PaymentIntentCaptureMethodManual)),
		Confirm:       stripego.Bool(true),
		PaymentMethod: stripego.String(req.DelegatedToken),
	}
	params.Context = ctx

	intent, err := p.newIntent(params)
	if err != nil {
		if result, ok := mapAuthorizeError(err); ok {
			return result, nil
		}
		return nil, fmt.Errorf("stripe authorize: %w", err)
	}

	if intent.Status != stripego.PaymentIntentStatusRequiresCapture {
		return &ports.AuthorizationResult{
			Approved: false,
			Reason:   fmt.Sprintf("payment intent in unexpected status %s", intent.Status),
		}, nil
	}

	return &ports.AuthorizationResult{Approved: true, IntentID: intent.ID}, nil
}

// Capture settles a previously authorized intent.
func (p *Provider) Capture(ctx context.Context, intentID string) (*ports.CaptureResult, error) {
	params := &stripego.PaymentIntentCaptureParams{}
	params.Context = ctx

	intent, err := p.captureIntent(intentID, params)
	if err != nil {
		var stripeErr *stripego.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripego.ErrorTypeCard {
			return &ports.CaptureResult{Captured: false, Reason: declineReason(stripeErr)}, nil
		}
		return nil, fmt.Errorf("stripe capture: %w", err)
	}

	if intent.Status != stripego.PaymentIntentStatusSucceeded {
		return &ports.CaptureResult{
			Captured: false,
			Reason:   fmt.Sprintf("capture left intent in status %s", intent.Status),
		}, nil
	}
	return &ports.CaptureResult{Captured: true}, nil
}

// mapAuthorizeError turns card declines into a rejection result; all other
// errors stay errors so callers surface an opaque api_error.
func mapAuthorizeError(err error) (*ports.AuthorizationResult, bool) {
	var stripeErr *stripego.Error
	if !errors.As(err, &stripeErr) {
		return nil, false
	}
	switch stripeErr.Type {
	case stripego.ErrorTypeCard, stripego.ErrorTypeInvalidRequest:
		return &ports.AuthorizationResult{Approved: false, Reason: declineReason(stripeErr)}, true
	default:
		return nil, false
	}
}

// declineReason prefers the human message, falling back to the decline code.
// The reason travels into the protocol error envelope, so it must never carry
// the raw provider response.
func declineReason(stripeErr *stripego.Error) string {
	if stripeErr.Msg != "" {
		return stripeErr.Msg
	}
	if stripeErr.DeclineCode != "" {
		return string(stripeErr.DeclineCode)
	}
	return "payment declined"
}
