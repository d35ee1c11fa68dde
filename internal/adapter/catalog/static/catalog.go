// Package static provides an in-memory catalog for development and tests.
// Production deployments swap in an adapter backed by the merchant's real
// pricing service; the core only sees ports.Catalog.
package static

import (
	"context"
	"fmt"

	"agentic-checkout/internal/core/domain"
	"agentic-checkout/internal/core/ports"
)

// Product is a priced catalog entry.
type Product struct {
	Title     string
	UnitPrice domain.Money
	VariantID string
	SKU       string
	ImageURL  string
}

// Catalog implements ports.Catalog over a fixed product map. Tax is a flat
// rate in basis points; shipping comes from the selected fulfillment option.
type Catalog struct {
	products    map[string]Product
	currency    string
	taxRateBps  int64
	fulfillment []domain.FulfillmentChoice
}

// New creates a catalog. fulfillment may be empty, in which case sessions
// need no fulfillment selection to become ready.
func New(products map[string]Product, currency string, taxRateBps int64, fulfillment []domain.FulfillmentChoice) *Catalog {
	return &Catalog{
		products:    products,
		currency:    currency,
		taxRateBps:  taxRateBps,
		fulfillment: fulfillment,
	}
}

// Price builds a quote for the cart. Unknown items are carried at zero price
// with an error message so the session stays representable; they hold the
// quote at not-ready until the agent removes them.
func (c *Catalog) Price(_ context.Context, cart ports.Cart) (*ports.Quote, error) {
	if len(cart.Items) == 0 {
		return nil, fmt.Errorf("cart has no items")
	}

	items := make([]domain.LineItem, 0, len(cart.Items))
	var messages []domain.Message
	allKnown := true
	var subtotal int64

	for i, ref := range cart.Items {
		product, ok := c.products[ref.ID]
		if !ok {
			allKnown = false
			messages = append(messages, domain.Message{
				Type:    domain.MessageError,
				Code:    strPtr("item_unavailable"),
				Message: fmt.Sprintf("item %q is not available", ref.ID),
				Param:   strPtr(fmt.Sprintf("items[%d].id", i)),
			})
			items = append(items, domain.LineItem{
				ID:        ref.ID,
				Title:     ref.ID,
				Quantity:  ref.Quantity,
				UnitPrice: domain.Money{Amount: 0, Currency: c.currency},
			})
			continue
		}

		items = append(items, domain.LineItem{
			ID:        ref.ID,
			Title:     product.Title,
			Quantity:  ref.Quantity,
			UnitPrice: product.UnitPrice,
			VariantID: optional(product.VariantID),
			SKU:       optional(product.SKU),
			ImageURL:  optional(product.ImageURL),
		})
		subtotal += product.UnitPrice.Amount * ref.Quantity
	}

	fulfillment, selectionOK := c.resolveFulfillment(cart.Fulfillment)
	if fulfillment != nil && !selectionOK {
		messages = append(messages, domain.Message{
			Type:    domain.MessageError,
			Code:    strPtr("invalid_fulfillment_option"),
			Message: "selected fulfillment option is not offered",
			Param:   strPtr("fulfillment.selected_id"),
		})
	}

	tax := subtotal * c.taxRateBps / 10000
	var shipping int64
	if fulfillment != nil && fulfillment.SelectedID != nil && selectionOK {
		for _, opt := range fulfillment.Options {
			if opt.ID == *fulfillment.SelectedID {
				shipping = opt.Price.Amount
			}
		}
	}

	money := func(amount int64) domain.Money {
		return domain.Money{Amount: amount, Currency: c.currency}
	}
	taxTotal := money(tax)
	shippingTotal := money(shipping)

	ready := allKnown && selectionOK && (fulfillment == nil || fulfillment.SelectedID != nil)

	return &ports.Quote{
		Items: items,
		Totals: domain.Totals{
			Subtotal:   money(subtotal),
			Tax:        &taxTotal,
			Shipping:   &shippingTotal,
			GrandTotal: money(subtotal + tax + shipping),
		},
		Fulfillment: fulfillment,
		Customer:    cart.Customer,
		Messages:    messages,
		Ready:       ready,
	}, nil
}

// resolveFulfillment merges the cart's selection with the catalog's offered
// options. The option list always comes from the catalog, never the client.
func (c *Catalog) resolveFulfillment(requested *domain.Fulfillment) (*domain.Fulfillment, bool) {
	if len(c.fulfillment) == 0 {
		return nil, true
	}

	result := &domain.Fulfillment{Options: c.fulfillment}
	if requested == nil || requested.SelectedID == nil {
		return result, true
	}
	if !result.HasOption(*requested.SelectedID) {
		return result, false
	}
	result.SelectedID = requested.SelectedID
	return result, true
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func strPtr(s string) *string { return &s }
