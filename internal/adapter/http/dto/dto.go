package dto

import (
	"agentic-checkout/internal/core/domain"
	"agentic-checkout/internal/core/ports"
)

// ItemParam is a cart line reference in create/update requests.
type ItemParam struct {
	ID       string `json:"id"`
	Quantity int64  `json:"quantity"`
}

// AddressParam mirrors the wire shape of a postal address.
type AddressParam struct {
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

// CustomerParam carries billing and shipping addresses.
type CustomerParam struct {
	BillingAddress  *AddressParam `json:"billing_address,omitempty"`
	ShippingAddress *AddressParam `json:"shipping_address,omitempty"`
}

// FulfillmentParam carries the agent's fulfillment option selection. Offered
// options always come from the catalog; clients only pick one.
type FulfillmentParam struct {
	SelectedID *string `json:"selected_id,omitempty"`
}

// CreateSessionRequest is the POST /checkout_sessions body.
type CreateSessionRequest struct {
	Items       []ItemParam       `json:"items"`
	Customer    *CustomerParam    `json:"customer,omitempty"`
	Fulfillment *FulfillmentParam `json:"fulfillment,omitempty"`
}

// UpdateSessionRequest is the POST /checkout_sessions/:id body. All fields
// are optional; absent fields keep their current value.
type UpdateSessionRequest struct {
	Items       []ItemParam       `json:"items,omitempty"`
	Customer    *CustomerParam    `json:"customer,omitempty"`
	Fulfillment *FulfillmentParam `json:"fulfillment,omitempty"`
}

// PaymentParam carries the delegated payment credential for complete.
type PaymentParam struct {
	DelegatedToken string `json:"delegated_token,omitempty"`
	Method         string `json:"method,omitempty"`
}

// CompleteSessionRequest is the POST /checkout_sessions/:id/complete body.
type CompleteSessionRequest struct {
	Payment PaymentParam `json:"payment"`
}

// ToPorts converts a validated create request to the service contract.
func (r CreateSessionRequest) ToPorts() ports.CreateSessionRequest {
	return ports.CreateSessionRequest{
		Items:       toItemRefs(r.Items),
		Customer:    toCustomer(r.Customer),
		Fulfillment: toFulfillment(r.Fulfillment),
	}
}

// ToPorts converts a validated update request to the service contract. Nil
// slices and pointers signal "leave unchanged".
func (r UpdateSessionRequest) ToPorts() ports.UpdateSessionRequest {
	out := ports.UpdateSessionRequest{
		Customer:    toCustomer(r.Customer),
		Fulfillment: toFulfillment(r.Fulfillment),
	}
	if r.Items != nil {
		out.Items = toItemRefs(r.Items)
	}
	return out
}

// ToPorts converts a validated complete request to the service contract.
func (r CompleteSessionRequest) ToPorts() ports.CompleteSessionRequest {
	return ports.CompleteSessionRequest{
		DelegatedToken: r.Payment.DelegatedToken,
		Method:         r.Payment.Method,
	}
}

func toItemRefs(items []ItemParam) []ports.ItemRef {
	refs := make([]ports.ItemRef, 0, len(items))
	for _, item := range items {
		refs = append(refs, ports.ItemRef{ID: item.ID, Quantity: item.Quantity})
	}
	return refs
}

func toCustomer(c *CustomerParam) *domain.Customer {
	if c == nil {
		return nil
	}
	return &domain.Customer{
		BillingAddress:  toAddress(c.BillingAddress),
		ShippingAddress: toAddress(c.ShippingAddress),
	}
}

func toAddress(a *AddressParam) *domain.Address {
	if a == nil {
		return nil
	}
	return &domain.Address{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		Region:     a.Region,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Name:       a.Name,
		Phone:      a.Phone,
		Email:      a.Email,
	}
}

func toFulfillment(f *FulfillmentParam) *domain.Fulfillment {
	if f == nil {
		return nil
	}
	return &domain.Fulfillment{SelectedID: f.SelectedID}
}
