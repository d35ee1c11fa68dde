package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney_Add(t *testing.T) {
	sum, err := NewMoney(1000, "usd").Add(NewMoney(250, "usd"))
	require.NoError(t, err)
	assert.Equal(t, NewMoney(1250, "usd"), sum)
}

func TestMoney_Add_CurrencyMismatch(t *testing.T) {
	_, err := NewMoney(1000, "usd").Add(NewMoney(250, "eur"))
	assert.ErrorContains(t, err, "currency mismatch")
}

func TestMoney_Sub(t *testing.T) {
	diff, err := NewMoney(1000, "usd").Sub(NewMoney(250, "usd"))
	require.NoError(t, err)
	assert.Equal(t, int64(750), diff.Amount)

	_, err = NewMoney(1000, "usd").Sub(NewMoney(250, "jpy"))
	assert.Error(t, err)
}

func TestMoney_Scale(t *testing.T) {
	assert.Equal(t, NewMoney(6000, "usd"), NewMoney(2000, "usd").Scale(3))
	assert.Equal(t, NewMoney(0, "usd"), NewMoney(2000, "usd").Scale(0))
}

func TestTotals_Validate(t *testing.T) {
	tax := NewMoney(350, "usd")
	shipping := NewMoney(500, "usd")
	discount := NewMoney(100, "usd")

	tests := []struct {
		name    string
		totals  Totals
		wantErr string
	}{
		{
			name: "all components",
			totals: Totals{
				Subtotal:   NewMoney(4000, "usd"),
				Tax:        &tax,
				Shipping:   &shipping,
				Discount:   &discount,
				GrandTotal: NewMoney(4750, "usd"),
			},
		},
		{
			name: "absent components count as zero",
			totals: Totals{
				Subtotal:   NewMoney(4000, "usd"),
				GrandTotal: NewMoney(4000, "usd"),
			},
		},
		{
			name: "grand total arithmetic violation",
			totals: Totals{
				Subtotal:   NewMoney(4000, "usd"),
				Tax:        &tax,
				GrandTotal: NewMoney(4000, "usd"),
			},
			wantErr: "does not equal component sum",
		},
		{
			name: "mixed currency component",
			totals: Totals{
				Subtotal:   NewMoney(4000, "usd"),
				Tax:        &Money{Amount: 350, Currency: "eur"},
				GrandTotal: NewMoney(4350, "usd"),
			},
			wantErr: "totals.tax",
		},
		{
			name: "grand total currency mismatch",
			totals: Totals{
				Subtotal:   NewMoney(4000, "usd"),
				GrandTotal: NewMoney(4000, "eur"),
			},
			wantErr: "totals.grand_total",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.totals.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}
