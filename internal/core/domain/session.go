package domain

import (
	"fmt"
	"time"
)

// SessionStatus represents the lifecycle state of a checkout session.
type SessionStatus string

const (
	StatusNotReadyForPayment SessionStatus = "not_ready_for_payment"
	StatusReadyForPayment    SessionStatus = "ready_for_payment"
	StatusCompleted          SessionStatus = "completed"
	StatusCanceled           SessionStatus = "canceled"
)

// IsTerminal reports whether no further transitions are permitted.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// Valid reports whether s is one of the four enumerated states.
func (s SessionStatus) Valid() bool {
	switch s {
	case StatusNotReadyForPayment, StatusReadyForPayment, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// Address is a postal address attached to a session.
type Address struct {
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	Region     *string `json:"region,omitempty"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
	Name       *string `json:"name,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Email      *string `json:"email,omitempty"`
}

// Customer groups the addresses supplied by the agent.
type Customer struct {
	BillingAddress  *Address `json:"billing_address,omitempty"`
	ShippingAddress *Address `json:"shipping_address,omitempty"`
}

// LineItem is a priced catalog line. The extended price is never stored;
// it is always recomputed as Quantity * UnitPrice.
type LineItem struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Quantity  int64   `json:"quantity"`
	UnitPrice Money   `json:"unit_price"`
	VariantID *string `json:"variant_id,omitempty"`
	SKU       *string `json:"sku,omitempty"`
	ImageURL  *string `json:"image_url,omitempty"`
}

// DeliveryEstimate bounds the expected delivery window of a fulfillment choice.
type DeliveryEstimate struct {
	Earliest *time.Time `json:"earliest,omitempty"`
	Latest   *time.Time `json:"latest,omitempty"`
}

// FulfillmentChoice is one way the order can be fulfilled.
type FulfillmentChoice struct {
	ID          string            `json:"id"`
	Label       string            `json:"label"`
	Price       Money             `json:"price"`
	EstDelivery *DeliveryEstimate `json:"est_delivery,omitempty"`
}

// Fulfillment carries the offered choices and the agent's selection.
// SelectedID, when present, must refer to one of Options.
type Fulfillment struct {
	Options    []FulfillmentChoice `json:"options,omitempty"`
	SelectedID *string             `json:"selected_id,omitempty"`
}

// MessageType classifies an advisory message.
type MessageType string

const (
	MessageInfo    MessageType = "info"
	MessageWarning MessageType = "warning"
	MessageError   MessageType = "error"
)

// Message is advisory text surfaced to the agent alongside a session.
type Message struct {
	Type    MessageType `json:"type"`
	Code    *string     `json:"code,omitempty"`
	Message string      `json:"message"`
	Param   *string     `json:"param,omitempty"`
}

// CheckoutSession is the primary entity of the protocol. It is created once,
// mutated in place by id, and never re-keyed.
type CheckoutSession struct {
	ID          string            `json:"id"`
	Status      SessionStatus     `json:"status"`
	Items       []LineItem        `json:"items"`
	Totals      Totals            `json:"totals"`
	Fulfillment *Fulfillment      `json:"fulfillment,omitempty"`
	Customer    *Customer         `json:"customer,omitempty"`
	Messages    []Message         `json:"messages,omitempty"`
	Links       map[string]string `json:"links,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Validate enforces the structural invariants of a persisted session.
func (s *CheckoutSession) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("session id is empty")
	}
	if !s.Status.Valid() {
		return fmt.Errorf("unknown session status %q", s.Status)
	}
	if len(s.Items) == 0 {
		return fmt.Errorf("session has no items")
	}
	currency := s.Totals.Subtotal.Currency
	for i, item := range s.Items {
		if item.Quantity <= 0 {
			return fmt.Errorf("items[%d].quantity must be positive", i)
		}
		if item.UnitPrice.Currency != currency {
			return fmt.Errorf("items[%d].unit_price: currency mismatch: %s vs %s", i, item.UnitPrice.Currency, currency)
		}
	}
	if err := s.Totals.Validate(); err != nil {
		return err
	}
	if s.Fulfillment != nil && s.Fulfillment.SelectedID != nil {
		if !s.Fulfillment.HasOption(*s.Fulfillment.SelectedID) {
			return fmt.Errorf("fulfillment.selected_id %q does not match any option", *s.Fulfillment.SelectedID)
		}
	}
	if s.UpdatedAt.Before(s.CreatedAt) {
		return fmt.Errorf("updated_at precedes created_at")
	}
	return nil
}

// HasOption reports whether id refers to one of the offered choices.
func (f *Fulfillment) HasOption(id string) bool {
	for _, opt := range f.Options {
		if opt.ID == id {
			return true
		}
	}
	return false
}
