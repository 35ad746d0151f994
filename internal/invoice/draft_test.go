package invoice

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mejba13/invoiceflow/internal/api"
)

var issued = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestNewDraft(t *testing.T) {
	d := NewDraft(dec("10"), issued)

	require.Len(t, d.Items, 1)
	assert.Equal(t, "2026-03-01", d.IssueDate)
	assert.Equal(t, "2026-03-31", d.DueDate)
	assert.Equal(t, api.StatusDraft, d.Status)
	assert.True(t, d.Items[0].Quantity.Equal(decimal.NewFromInt(1)))
	assert.True(t, d.Items[0].UnitPrice.IsZero())
	assert.Empty(t, d.Items[0].Description)
}

func TestDraft_AddItem(t *testing.T) {
	d := NewDraft(decimal.Zero, issued)
	d.AddItem()
	d.AddItem()

	require.Len(t, d.Items, 3)
	for _, it := range d.Items {
		assert.Equal(t, "1", it.Quantity.String())
		assert.Equal(t, "0", it.UnitPrice.String())
	}
}

func TestDraft_RemoveItem(t *testing.T) {
	d := NewDraft(decimal.Zero, issued)
	d.Items = []Item{item("A", "1", "1"), item("B", "1", "2"), item("C", "1", "3")}

	require.NoError(t, d.RemoveItem(1))
	require.Len(t, d.Items, 2)
	assert.Equal(t, "A", d.Items[0].Description)
	assert.Equal(t, "C", d.Items[1].Description)

	err := d.RemoveItem(5)
	assert.True(t, errors.Is(err, ErrNoSuchItem))
	assert.Len(t, d.Items, 2)
}

func TestDraft_RemoveItem_KeepsLastItem(t *testing.T) {
	d := NewDraft(decimal.Zero, issued)
	d.Items[0] = item("Only", "2", "5")

	err := d.RemoveItem(0)
	assert.ErrorIs(t, err, ErrLastItem)
	require.Len(t, d.Items, 1)
	assert.Equal(t, "Only", d.Items[0].Description)
}

func TestDraft_UpdateItem(t *testing.T) {
	d := NewDraft(dec("10"), issued)
	d.AddItem()

	require.NoError(t, d.UpdateItem(0, FieldDescription, "Design"))
	require.NoError(t, d.UpdateItem(0, FieldQuantity, "2"))
	require.NoError(t, d.UpdateItem(0, FieldUnitPrice, "50"))
	require.NoError(t, d.UpdateItem(1, FieldDescription, "Hosting"))
	require.NoError(t, d.UpdateItem(1, FieldUnitPrice, " 30 "))

	totals := d.Totals()
	assert.Equal(t, "130", totals.Subtotal.String())
	assert.Equal(t, "13", totals.TaxAmount.String())
	assert.Equal(t, "143", totals.Total.String())
}

func TestDraft_UpdateItem_Errors(t *testing.T) {
	d := NewDraft(decimal.Zero, issued)
	before := d.Items[0]

	assert.Error(t, d.UpdateItem(0, FieldQuantity, "two"))
	assert.Error(t, d.UpdateItem(0, Field("amount"), "5"))
	assert.ErrorIs(t, d.UpdateItem(3, FieldDescription, "x"), ErrNoSuchItem)
	assert.ErrorIs(t, d.UpdateItem(-1, FieldDescription, "x"), ErrNoSuchItem)

	assert.Equal(t, before, d.Items[0])
}

func TestCheckItemValue(t *testing.T) {
	tests := []struct {
		field   Field
		value   string
		wantErr bool
	}{
		{FieldQuantity, "3", false},
		{FieldQuantity, "-1", true},
		{FieldQuantity, "abc", true},
		{FieldUnitPrice, "0", false},
		{FieldUnitPrice, "19.99", false},
		{FieldUnitPrice, "-0.01", true},
		{FieldDescription, "-anything", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.field)+"="+tt.value, func(t *testing.T) {
			err := CheckItemValue(tt.field, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDraft_SetField(t *testing.T) {
	d := NewDraft(decimal.Zero, issued)

	require.NoError(t, d.SetField("client", "client-1"))
	require.NoError(t, d.SetField("due_date", "2026-04-15"))
	require.NoError(t, d.SetField("status", "sent"))
	require.NoError(t, d.SetField("notes", "Thanks"))

	assert.Equal(t, "client-1", d.Client)
	assert.Equal(t, "2026-04-15", d.DueDate)
	assert.Equal(t, api.StatusSent, d.Status)
	assert.Equal(t, "Thanks", d.Notes)

	assert.Error(t, d.SetField("issue_date", "15/04/2026"))
	assert.Error(t, d.SetField("status", "archived"))
	assert.Error(t, d.SetField("currency", "EUR"))
	assert.Equal(t, "2026-03-01", d.IssueDate)
}

func TestDraft_Validate(t *testing.T) {
	d := NewDraft(decimal.Zero, issued)

	err := d.Validate()
	var verr *api.Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Client is required", verr.Message)
	assert.Equal(t, "Description is required", verr.Field("items.1.description"))

	d.Client = "client-1"
	d.Items[0] = item("Design", "0", "-5")
	err = d.Validate()
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Quantity must be at least 1", verr.Field("items.1.quantity"))
	assert.Equal(t, "Unit price must be positive", verr.Field("items.1.unit_price"))
	assert.Empty(t, verr.Field("client"))

	d.Items[0] = item("Design", "1", "0")
	assert.NoError(t, d.Validate())
}

func TestDraft_Input(t *testing.T) {
	d := NewDraft(decimal.Zero, issued)
	d.Client = "client-1"
	d.Items = []Item{item("A", "1", "10"), item("B", "2", "5")}

	in := d.Input()
	assert.Equal(t, "client-1", in.Client)
	assert.Equal(t, api.StatusDraft, in.Status)
	require.Len(t, in.Items, 2)
	assert.Equal(t, 0, in.Items[0].Order)
	assert.Equal(t, 1, in.Items[1].Order)
	assert.Equal(t, "B", in.Items[1].Description)
}

func TestFromInvoice(t *testing.T) {
	inv := &api.Invoice{
		ID:        "inv-1",
		Client:    "client-1",
		IssueDate: "2026-01-01",
		DueDate:   "2026-01-31",
		Status:    api.StatusSent,
		Items: []api.InvoiceItem{
			{Description: "Design", Quantity: dec("2"), UnitPrice: dec("50"), Amount: dec("100")},
		},
	}

	d := FromInvoice(inv, dec("10"))
	assert.Equal(t, "inv-1", d.InvoiceID)
	require.Len(t, d.Items, 1)
	assert.Equal(t, "110", d.Totals().Total.String())

	empty := FromInvoice(&api.Invoice{ID: "inv-2"}, decimal.Zero)
	assert.Len(t, empty.Items, 1)
}
