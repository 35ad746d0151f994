package invoice

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mejba13/invoiceflow/internal/api"
)

var (
	// ErrLastItem is returned when removing the only item of a draft
	ErrLastItem = errors.New("a draft must keep at least one item")
	// ErrNoSuchItem is returned for an item index outside the draft
	ErrNoSuchItem = errors.New("no item at that position")
)

// Field names an editable item field
type Field string

const (
	FieldDescription Field = "description"
	FieldQuantity    Field = "quantity"
	FieldUnitPrice   Field = "unit_price"
)

// DateLayout is the wire format of invoice dates
const DateLayout = "2006-01-02"

// DefaultPaymentTerm is the gap between issue and due date of a new draft
const DefaultPaymentTerm = 30 * 24 * time.Hour

var statuses = map[string]bool{
	api.StatusDraft:     true,
	api.StatusSent:      true,
	api.StatusPaid:      true,
	api.StatusOverdue:   true,
	api.StatusCancelled: true,
}

// Draft is an invoice being composed or edited. The tax rate is captured
// when the draft is created and is not refreshed afterwards.
type Draft struct {
	InvoiceID      string          `json:"invoice_id,omitempty"`
	Client         string          `json:"client"`
	IssueDate      string          `json:"issue_date"`
	DueDate        string          `json:"due_date"`
	Status         string          `json:"status"`
	Notes          string          `json:"notes,omitempty"`
	Terms          string          `json:"terms,omitempty"`
	TaxRatePercent decimal.Decimal `json:"tax_rate_percent"`
	Items          []Item          `json:"items"`
}

func newItem() Item {
	return Item{Quantity: decimal.NewFromInt(1), UnitPrice: decimal.Zero}
}

// NewDraft starts a draft with one blank item, issued today and due after
// the default payment term.
func NewDraft(taxRatePercent decimal.Decimal, now time.Time) *Draft {
	return &Draft{
		IssueDate:      now.Format(DateLayout),
		DueDate:        now.Add(DefaultPaymentTerm).Format(DateLayout),
		Status:         api.StatusDraft,
		TaxRatePercent: taxRatePercent,
		Items:          []Item{newItem()},
	}
}

// FromInvoice starts a draft that edits an existing invoice
func FromInvoice(inv *api.Invoice, taxRatePercent decimal.Decimal) *Draft {
	d := &Draft{
		InvoiceID:      inv.ID,
		Client:         inv.Client,
		IssueDate:      inv.IssueDate,
		DueDate:        inv.DueDate,
		Status:         inv.Status,
		Notes:          inv.Notes,
		Terms:          inv.Terms,
		TaxRatePercent: taxRatePercent,
		Items:          make([]Item, 0, len(inv.Items)),
	}
	for _, it := range inv.Items {
		d.Items = append(d.Items, Item{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	if len(d.Items) == 0 {
		d.Items = append(d.Items, newItem())
	}
	return d
}

// AddItem appends a blank item with quantity 1
func (d *Draft) AddItem() {
	d.Items = append(d.Items, newItem())
}

// RemoveItem deletes the item at index. Removing the last remaining item
// is refused and leaves the draft unchanged.
func (d *Draft) RemoveItem(index int) error {
	if index < 0 || index >= len(d.Items) {
		return fmt.Errorf("%w: %d", ErrNoSuchItem, index+1)
	}
	if len(d.Items) == 1 {
		return ErrLastItem
	}
	d.Items = append(d.Items[:index:index], d.Items[index+1:]...)
	return nil
}

// UpdateItem replaces one field of one item. Numeric fields must parse as
// decimals; sign checks belong to CheckItemValue.
func (d *Draft) UpdateItem(index int, field Field, value string) error {
	if index < 0 || index >= len(d.Items) {
		return fmt.Errorf("%w: %d", ErrNoSuchItem, index+1)
	}

	item := d.Items[index]
	switch field {
	case FieldDescription:
		item.Description = value
	case FieldQuantity, FieldUnitPrice:
		n, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("invalid %s %q: must be a number", field, value)
		}
		if field == FieldQuantity {
			item.Quantity = n
		} else {
			item.UnitPrice = n
		}
	default:
		return fmt.Errorf("unknown item field %q (expected description, quantity or unit_price)", field)
	}

	d.Items[index] = item
	return nil
}

// Totals derives subtotal, tax and total from the current items
func (d *Draft) Totals() Totals {
	return ComputeTotals(d.Items, d.TaxRatePercent)
}

// SetField sets one header field of the draft
func (d *Draft) SetField(name, value string) error {
	switch name {
	case "client":
		d.Client = value
	case "issue_date", "due_date":
		if _, err := time.Parse(DateLayout, value); err != nil {
			return fmt.Errorf("invalid %s %q: expected YYYY-MM-DD", name, value)
		}
		if name == "issue_date" {
			d.IssueDate = value
		} else {
			d.DueDate = value
		}
	case "status":
		s := strings.ToUpper(value)
		if !statuses[s] {
			return fmt.Errorf("invalid status %q", value)
		}
		d.Status = s
	case "notes":
		d.Notes = value
	case "terms":
		d.Terms = value
	default:
		return fmt.Errorf("unknown draft field %q", name)
	}
	return nil
}

// CheckItemValue rejects input a user may not enter for an item field:
// numbers that do not parse or are negative.
func CheckItemValue(field Field, value string) error {
	if field != FieldQuantity && field != FieldUnitPrice {
		return nil
	}
	n, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid %s %q: must be a number", field, value)
	}
	if n.IsNegative() {
		return fmt.Errorf("%s cannot be negative", field)
	}
	return nil
}

// Validate checks the draft can be submitted. The returned *api.Error
// carries one message per offending field; items are keyed items.N.field.
func (d *Draft) Validate() error {
	verr := &api.Error{}

	if d.Client == "" {
		verr.Add("client", "Client is required")
	}
	if d.IssueDate == "" {
		verr.Add("issue_date", "Issue date is required")
	}
	if d.DueDate == "" {
		verr.Add("due_date", "Due date is required")
	}
	if len(d.Items) == 0 {
		verr.Add("items", "At least one item is required")
	}

	one := decimal.NewFromInt(1)
	for i, item := range d.Items {
		key := fmt.Sprintf("items.%d", i+1)
		if strings.TrimSpace(item.Description) == "" {
			verr.Add(key+".description", "Description is required")
		}
		if item.Quantity.LessThan(one) {
			verr.Add(key+".quantity", "Quantity must be at least 1")
		}
		if item.UnitPrice.IsNegative() {
			verr.Add(key+".unit_price", "Unit price must be positive")
		}
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

// Input builds the create/update payload
func (d *Draft) Input() api.InvoiceInput {
	in := api.InvoiceInput{
		Client:    d.Client,
		IssueDate: d.IssueDate,
		DueDate:   d.DueDate,
		Status:    d.Status,
		Notes:     d.Notes,
		Terms:     d.Terms,
		Items:     make([]api.InvoiceItemInput, len(d.Items)),
	}
	for i, item := range d.Items {
		in.Items[i] = api.InvoiceItemInput{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Order:       i,
		}
	}
	return in
}
