package dto

import (
	"fmt"

	"agentic-checkout/pkg/apperror"
)

const (
	maxItems       = 100
	maxQuantity    = 10000
	maxIDLength    = 256
	maxFieldLength = 512
)

// Validate shape-checks a create request before the handler runs. The first
// offending field's path lands in the error's param.
func (r CreateSessionRequest) Validate() *apperror.AppError {
	if err := validateItems(r.Items, true); err != nil {
		return err
	}
	if err := validateCustomer(r.Customer); err != nil {
		return err
	}
	return validateFulfillment(r.Fulfillment)
}

// Validate shape-checks an update request. At least one field must be
// present; an empty update is a client bug, not a no-op.
func (r UpdateSessionRequest) Validate() *apperror.AppError {
	if r.Items == nil && r.Customer == nil && r.Fulfillment == nil {
		return apperror.Validation("", "at least one of items, customer, fulfillment must be provided")
	}
	if r.Items != nil {
		if err := validateItems(r.Items, true); err != nil {
			return err
		}
	}
	if err := validateCustomer(r.Customer); err != nil {
		return err
	}
	return validateFulfillment(r.Fulfillment)
}

// Validate shape-checks a complete request. The payment credential is
// required; which field carries it depends on the delegation scheme.
func (r CompleteSessionRequest) Validate() *apperror.AppError {
	if r.Payment.DelegatedToken == "" && r.Payment.Method == "" {
		return apperror.Validation("payment.delegated_token", "a delegated payment token or method is required")
	}
	if len(r.Payment.DelegatedToken) > maxFieldLength {
		return apperror.Validation("payment.delegated_token", "value too long")
	}
	if len(r.Payment.Method) > maxFieldLength {
		return apperror.Validation("payment.method", "value too long")
	}
	return nil
}

func validateItems(items []ItemParam, required bool) *apperror.AppError {
	if len(items) == 0 {
		if required {
			return apperror.Validation("items", "items must contain at least one entry")
		}
		return nil
	}
	if len(items) > maxItems {
		return apperror.Validation("items", fmt.Sprintf("items must not exceed %d entries", maxItems))
	}
	for i, item := range items {
		if item.ID == "" {
			return apperror.Validation(fmt.Sprintf("items[%d].id", i), "id is required")
		}
		if len(item.ID) > maxIDLength {
			return apperror.Validation(fmt.Sprintf("items[%d].id", i), "id too long")
		}
		if item.Quantity <= 0 {
			return apperror.Validation(fmt.Sprintf("items[%d].quantity", i), "quantity must be a positive integer")
		}
		if item.Quantity > maxQuantity {
			return apperror.Validation(fmt.Sprintf("items[%d].quantity", i), fmt.Sprintf("quantity must not exceed %d", maxQuantity))
		}
	}
	return nil
}

func validateCustomer(c *CustomerParam) *apperror.AppError {
	if c == nil {
		return nil
	}
	if err := validateAddress(c.BillingAddress, "customer.billing_address"); err != nil {
		return err
	}
	return validateAddress(c.ShippingAddress, "customer.shipping_address")
}

func validateAddress(a *AddressParam, path string) *apperror.AppError {
	if a == nil {
		return nil
	}
	if a.Line1 == "" {
		return apperror.Validation(path+".line1", "line1 is required")
	}
	if a.City == "" {
		return apperror.Validation(path+".city", "city is required")
	}
	if a.PostalCode == "" {
		return apperror.Validation(path+".postal_code", "postal_code is required")
	}
	if len(a.Country) != 2 {
		return apperror.Validation(path+".country", "country must be a 2-letter ISO code")
	}
	for _, field := range []struct{ name, value string }{
		{"line1", a.Line1},
		{"city", a.City},
		{"postal_code", a.PostalCode},
	} {
		if len(field.value) > maxFieldLength {
			return apperror.Validation(path+"."+field.name, "value too long")
		}
	}
	return nil
}

func validateFulfillment(f *FulfillmentParam) *apperror.AppError {
	if f == nil {
		return nil
	}
	if f.SelectedID != nil && *f.SelectedID == "" {
		return apperror.Validation("fulfillment.selected_id", "selected_id must not be empty")
	}
	return nil
}
