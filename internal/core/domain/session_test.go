package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validSession() *CheckoutSession {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	selected := "standard"
	return &CheckoutSession{
		ID:     "cs_1",
		Status: StatusReadyForPayment,
		Items: []LineItem{
			{ID: "item_tshirt", Title: "T-Shirt", Quantity: 2, UnitPrice: NewMoney(2000, "usd")},
		},
		Totals: Totals{
			Subtotal:   NewMoney(4000, "usd"),
			Shipping:   &Money{Amount: 500, Currency: "usd"},
			GrandTotal: NewMoney(4500, "usd"),
		},
		Fulfillment: &Fulfillment{
			Options: []FulfillmentChoice{
				{ID: "standard", Label: "Standard", Price: NewMoney(500, "usd")},
			},
			SelectedID: &selected,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCheckoutSession_Validate(t *testing.T) {
	assert.NoError(t, validSession().Validate())
}

func TestCheckoutSession_Validate_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CheckoutSession)
		wantErr string
	}{
		{"empty id", func(s *CheckoutSession) { s.ID = "" }, "session id is empty"},
		{"unknown status", func(s *CheckoutSession) { s.Status = "pending" }, "unknown session status"},
		{"no items", func(s *CheckoutSession) { s.Items = nil }, "no items"},
		{"zero quantity", func(s *CheckoutSession) { s.Items[0].Quantity = 0 }, "quantity must be positive"},
		{"item currency mismatch", func(s *CheckoutSession) { s.Items[0].UnitPrice.Currency = "eur" }, "currency mismatch"},
		{"broken totals", func(s *CheckoutSession) { s.Totals.GrandTotal.Amount = 9999 }, "grand_total"},
		{"dangling selected_id", func(s *CheckoutSession) {
			bogus := "teleport"
			s.Fulfillment.SelectedID = &bogus
		}, "does not match any option"},
		{"updated_at before created_at", func(s *CheckoutSession) {
			s.UpdatedAt = s.CreatedAt.Add(-time.Minute)
		}, "updated_at precedes created_at"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSession()
			tt.mutate(s)
			assert.ErrorContains(t, s.Validate(), tt.wantErr)
		})
	}
}

func TestFulfillment_HasOption(t *testing.T) {
	f := &Fulfillment{Options: []FulfillmentChoice{{ID: "standard"}, {ID: "express"}}}
	assert.True(t, f.HasOption("express"))
	assert.False(t, f.HasOption("drone"))
}

func TestBuildIdempotencyKey(t *testing.T) {
	assert.Equal(t, "create:k1", BuildIdempotencyKey("create", "", "k1"))
	assert.Equal(t, "complete:cs_1:k1", BuildIdempotencyKey("complete", "cs_1", "k1"))
}
