package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"agentic-checkout/internal/core/ports"

	"github.com/rs/zerolog"
)

// webhookRetryIntervals is the background retry schedule after a failed
// synchronous delivery.
var webhookRetryIntervals = []time.Duration{
	15 * time.Second,
	60 * time.Second,
	2 * time.Minute,
	5 * time.Minute,
	10 * time.Minute,
}

// HTTPClient abstracts the outbound HTTP client for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// webhookEnvelope is the signed JSON body POSTed to the merchant endpoint.
// The timestamp lives inside the signed payload so it stays bound to the
// signature even if intermediaries strip headers.
type webhookEnvelope struct {
	Type      string           `json:"type"`
	Data      webhookOrderData `json:"data"`
	Timestamp int64            `json:"timestamp"`
}

type webhookOrderData struct {
	Type              string   `json:"type"`
	CheckoutSessionID string   `json:"checkout_session_id"`
	PermalinkURL      string   `json:"permalink_url,omitempty"`
	Status            string   `json:"status"`
	Refunds           []string `json:"refunds,omitempty"`
}

// WebhookSender implements ports.WebhookSink: it signs order events with the
// merchant secret and POSTs them to the configured URL.
type WebhookSender struct {
	url        string
	secret     []byte
	sigHeader  string
	sigSvc     ports.SignatureService
	httpClient HTTPClient
	timeout    time.Duration
	intervals  []time.Duration
	log        zerolog.Logger
	now        func() time.Time
}

// NewWebhookSender creates a sender. merchantName is sanitized into the
// signature header name ("<MerchantName>-Signature"). An empty url disables
// delivery.
func NewWebhookSender(
	url, merchantName string,
	secret []byte,
	sigSvc ports.SignatureService,
	httpClient HTTPClient,
	timeout time.Duration,
	log zerolog.Logger,
) *WebhookSender {
	return &WebhookSender{
		url:        url,
		secret:     secret,
		sigHeader:  SanitizeMerchantName(merchantName) + "-Signature",
		sigSvc:     sigSvc,
		httpClient: httpClient,
		timeout:    timeout,
		intervals:  webhookRetryIntervals,
		log:        log,
		now:        time.Now,
	}
}

// SanitizeMerchantName reduces a merchant name to a valid HTTP header token.
func SanitizeMerchantName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r == ' ', r == '_':
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "Merchant"
	}
	return b.String()
}

// OrderUpdated delivers the event. The first attempt is synchronous and
// bounded by the configured timeout; on failure the remaining attempts run
// in the background so a flaky receiver never fails a committed operation.
func (s *WebhookSender) OrderUpdated(ctx context.Context, event ports.OrderEvent) error {
	if s.url == "" {
		s.log.Debug().Str("session_id", event.CheckoutSessionID).Msg("webhook: no URL configured, skipping")
		return nil
	}

	ts := s.now().Unix()
	body, err := json.Marshal(webhookEnvelope{
		Type: event.Type,
		Data: webhookOrderData{
			Type:              "order",
			CheckoutSessionID: event.CheckoutSessionID,
			PermalinkURL:      event.PermalinkURL,
			Status:            event.Status,
		},
		Timestamp: ts,
	})
	if err != nil {
		return fmt.Errorf("webhook marshal: %w", err)
	}
	signature := s.sigSvc.Sign(s.secret, ts, body)

	if err := s.deliver(ctx, body, ts, signature); err != nil {
		s.log.Warn().Err(err).Str("session_id", event.CheckoutSessionID).Msg("webhook: first delivery attempt failed, retrying in background")
		go s.retryLoop(body, ts, signature, event.CheckoutSessionID)
	}
	return nil
}

// deliver performs one POST attempt bounded by the sender timeout.
func (s *WebhookSender) deliver(ctx context.Context, body []byte, ts int64, signature string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(s.sigHeader, signature)
	req.Header.Set("X-Timestamp", strconv.FormatInt(ts, 10))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// retryLoop replays delivery on the retry schedule. Receivers must tolerate
// at-least-once delivery.
func (s *WebhookSender) retryLoop(body []byte, ts int64, signature string, sessionID string) {
	for attempt, interval := range s.intervals {
		time.Sleep(interval)
		if err := s.deliver(context.Background(), body, ts, signature); err != nil {
			s.log.Warn().Err(err).Str("session_id", sessionID).Int("attempt", attempt+2).Msg("webhook: delivery retry failed")
			continue
		}
		s.log.Info().Str("session_id", sessionID).Int("attempt", attempt+2).Msg("webhook: delivered")
		return
	}
	s.log.Error().Str("session_id", sessionID).Msg("webhook: all retry attempts exhausted")
}
