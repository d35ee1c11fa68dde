package domain

import "fmt"

// Money is an amount in minor units of a single ISO-4217 currency.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// NewMoney creates a Money value.
func NewMoney(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// Add returns m + other. Mixing currencies is a programming error and is
// reported rather than silently coerced.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("currency mismatch: %s vs %s", m.Currency, other.Currency)
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

// Sub returns m - other.
func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("currency mismatch: %s vs %s", m.Currency, other.Currency)
	}
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}, nil
}

// Scale returns m multiplied by a unitless quantity.
func (m Money) Scale(qty int64) Money {
	return Money{Amount: m.Amount * qty, Currency: m.Currency}
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// Totals is the priced summary of a session. GrandTotal is authoritative:
// it must equal Subtotal + Tax + Shipping - Discount, absent components
// counting as zero in the subtotal's currency.
type Totals struct {
	Subtotal   Money  `json:"subtotal"`
	Tax        *Money `json:"tax,omitempty"`
	Shipping   *Money `json:"shipping,omitempty"`
	Discount   *Money `json:"discount,omitempty"`
	GrandTotal Money  `json:"grand_total"`
}

// orZero returns the component or a zero Money in the given currency.
func orZero(m *Money, currency string) Money {
	if m == nil {
		return Money{Currency: currency}
	}
	return *m
}

// Validate checks the totals arithmetic and single-currency rule.
func (t Totals) Validate() error {
	cur := t.Subtotal.Currency
	sum, err := t.Subtotal.Add(orZero(t.Tax, cur))
	if err != nil {
		return fmt.Errorf("totals.tax: %w", err)
	}
	sum, err = sum.Add(orZero(t.Shipping, cur))
	if err != nil {
		return fmt.Errorf("totals.shipping: %w", err)
	}
	sum, err = sum.Sub(orZero(t.Discount, cur))
	if err != nil {
		return fmt.Errorf("totals.discount: %w", err)
	}
	if t.GrandTotal.Currency != cur {
		return fmt.Errorf("totals.grand_total: currency mismatch: %s vs %s", t.GrandTotal.Currency, cur)
	}
	if t.GrandTotal.Amount != sum.Amount {
		return fmt.Errorf("totals.grand_total: %d does not equal component sum %d", t.GrandTotal.Amount, sum.Amount)
	}
	return nil
}
