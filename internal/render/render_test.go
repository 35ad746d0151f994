package render

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mejba13/invoiceflow/internal/api"
	"github.com/mejba13/invoiceflow/internal/invoice"
)

func TestMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"143", "143.00"},
		{"0.005", "0.01"},
		{"10.994", "10.99"},
		{"0", "0.00"},
	}
	for _, tt := range tests {
		if got := Money(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Errorf("Money(%s): expected %s, got %s", tt.in, tt.want, got)
		}
	}
}

func TestTable(t *testing.T) {
	out := Table([]string{"Name", "Amount"}, [][]string{{"Acme", "10.00"}, {"Globex", "2.50"}}, 1)

	for _, want := range []string{"Name", "Amount", "Acme", "Globex", "10.00", "2.50"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected table to contain %q, got:\n%s", want, out)
		}
	}
}

func TestError_ListsFieldErrors(t *testing.T) {
	verr := &api.Error{}
	verr.Add("client", "Client is required")
	verr.Add("items.1.quantity", "Quantity must be at least 1")

	out := Error(verr)
	for _, want := range []string{"Client is required", "items.1.quantity:", "Quantity must be at least 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected banner to contain %q, got:\n%s", want, out)
		}
	}

	plain := Error(errors.New("connection refused"))
	if !strings.Contains(plain, "connection refused") {
		t.Errorf("unexpected banner %q", plain)
	}
}

func TestDraft_ShowsRoundedTotals(t *testing.T) {
	d := invoice.NewDraft(decimal.RequireFromString("10"), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	_ = d.UpdateItem(0, invoice.FieldDescription, "Design")
	_ = d.UpdateItem(0, invoice.FieldQuantity, "2")
	_ = d.UpdateItem(0, invoice.FieldUnitPrice, "50")
	d.AddItem()
	_ = d.UpdateItem(1, invoice.FieldDescription, "Hosting")
	_ = d.UpdateItem(1, invoice.FieldUnitPrice, "30")

	out := Draft("march", d)
	for _, want := range []string{"Draft march", "Design", "Hosting", "130.00", "13.00", "143.00", "Tax (10%)"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected draft view to contain %q, got:\n%s", want, out)
		}
	}
}

func TestFields_SkipsEmptyValues(t *testing.T) {
	out := Fields([][2]string{{"Client", "Acme"}, {"Notes", ""}})
	if strings.Contains(out, "Notes") {
		t.Errorf("expected empty field to be skipped, got %q", out)
	}
	if !strings.Contains(out, "Acme") {
		t.Errorf("expected value, got %q", out)
	}
}
