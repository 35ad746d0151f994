// Package invoice derives invoice totals and edits in-progress invoice drafts.
package invoice

import (
	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the precision used when totals are presented
const CurrencyPlaces = 2

// Item is one line of a draft
type Item struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Amount is quantity times unit price, never rounded or stored
func (i Item) Amount() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice)
}

// Totals holds the derived monetary values of a set of items
type Totals struct {
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// ComputeTotals sums line amounts and applies the tax rate. All values are
// exact; an empty item list yields zeros.
func ComputeTotals(items []Item, taxRatePercent decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Amount())
	}

	// percent → fraction by shifting two decimal places, which is exact
	tax := subtotal.Mul(taxRatePercent).Shift(-2)

	return Totals{
		Subtotal:  subtotal,
		TaxAmount: tax,
		Total:     subtotal.Add(tax),
	}
}

// Rounded returns a copy rounded half-up to currency precision, for display.
// Each value is rounded independently from its exact form.
func (t Totals) Rounded() Totals {
	return Totals{
		Subtotal:  Round(t.Subtotal),
		TaxAmount: Round(t.TaxAmount),
		Total:     Round(t.Total),
	}
}

// Round rounds d half-up to currency precision. Inputs are non-negative, so
// half-away-from-zero and half-up agree.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPlaces)
}

// Format renders d at currency precision
func Format(d decimal.Decimal) string {
	return d.StringFixed(CurrencyPlaces)
}
