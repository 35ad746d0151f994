package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"

	"github.com/mejba13/invoiceflow/internal/api"
	"github.com/mejba13/invoiceflow/internal/invoice"
)

// Money formats an amount rounded half-up to two places
func Money(d decimal.Decimal) string {
	return invoice.Format(invoice.Round(d))
}

// Table renders rows under headers. Numeric-looking columns are right
// aligned by the caller passing their indexes in right.
func Table(headers []string, rows [][]string, right ...int) string {
	alignRight := make(map[int]bool, len(right))
	for _, c := range right {
		alignRight[c] = true
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Border)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Bold(true).Foreground(Accent)
			}
			if alignRight[col] {
				s = s.Align(lipgloss.Right)
			}
			return s
		})
	return t.String()
}

// Fields renders label/value pairs one per line with aligned labels
func Fields(pairs [][2]string) string {
	width := 0
	for _, p := range pairs {
		if len(p[0]) > width {
			width = len(p[0])
		}
	}

	var b strings.Builder
	for _, p := range pairs {
		if p[1] == "" {
			continue
		}
		label := Label.Render(fmt.Sprintf("%-*s", width, p[0]))
		fmt.Fprintf(&b, "%s  %s\n", label, p[1])
	}
	return b.String()
}

// Error renders err as a banner. Backend and validation errors list every
// field message below the headline.
func Error(err error) string {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return Banner.Render(Failure.Render("Error: ") + err.Error())
	}

	var b strings.Builder
	b.WriteString(Failure.Render("Error: ") + apiErr.Message)
	for _, f := range apiErr.Fields() {
		for _, msg := range apiErr.FieldErrors[f] {
			fmt.Fprintf(&b, "\n  %s %s", Label.Render(f+":"), msg)
		}
	}
	return Banner.Render(b.String())
}

// Draft renders a draft's header, items and rounded totals
func Draft(name string, d *invoice.Draft) string {
	var b strings.Builder

	heading := "Draft " + name
	if d.InvoiceID != "" {
		heading += Muted.Render(" (editing invoice " + d.InvoiceID + ")")
	}
	b.WriteString(Title.Render(heading) + "\n")
	b.WriteString(Fields([][2]string{
		{"Client", d.Client},
		{"Issue date", d.IssueDate},
		{"Due date", d.DueDate},
		{"Status", Status(d.Status)},
		{"Notes", d.Notes},
		{"Terms", d.Terms},
	}))

	rows := make([][]string, len(d.Items))
	for i, it := range d.Items {
		rows[i] = []string{
			fmt.Sprint(i + 1),
			it.Description,
			it.Quantity.String(),
			Money(it.UnitPrice),
			Money(it.Amount()),
		}
	}
	b.WriteString(Table([]string{"#", "Description", "Qty", "Unit price", "Amount"}, rows, 0, 2, 3, 4))
	b.WriteString("\n")

	b.WriteString(Totals(d.Totals(), d.TaxRatePercent))
	return b.String()
}

// Totals renders subtotal, tax and total, each rounded independently
func Totals(t invoice.Totals, taxRatePercent decimal.Decimal) string {
	r := t.Rounded()
	return Fields([][2]string{
		{"Subtotal", invoice.Format(r.Subtotal)},
		{fmt.Sprintf("Tax (%s%%)", taxRatePercent.String()), invoice.Format(r.TaxAmount)},
		{"Total", Title.Render(invoice.Format(r.Total))},
	})
}

// Invoice renders a single invoice record
func Invoice(inv *api.Invoice) string {
	var b strings.Builder

	b.WriteString(Title.Render("Invoice "+inv.InvoiceNumber) + "\n")
	client := inv.Client
	if inv.ClientDetails != nil {
		client = inv.ClientDetails.Name
	}
	b.WriteString(Fields([][2]string{
		{"ID", inv.ID},
		{"Client", client},
		{"Status", Status(inv.Status)},
		{"Issue date", inv.IssueDate},
		{"Due date", inv.DueDate},
		{"Notes", inv.Notes},
		{"Terms", inv.Terms},
	}))

	rows := make([][]string, len(inv.Items))
	for i, it := range inv.Items {
		rows[i] = []string{it.Description, it.Quantity.String(), Money(it.UnitPrice), Money(it.Amount)}
	}
	b.WriteString(Table([]string{"Description", "Qty", "Unit price", "Amount"}, rows, 1, 2, 3))
	b.WriteString("\n")

	b.WriteString(Fields([][2]string{
		{"Subtotal", Money(inv.Subtotal)},
		{"Tax", Money(inv.TaxAmount)},
		{"Total", Title.Render(Money(inv.TotalAmount))},
		{"Paid", Money(inv.AmountPaid)},
		{"Due", Money(inv.AmountDue)},
	}))
	if inv.IsOverdue {
		b.WriteString(Warning.Render("This invoice is overdue") + "\n")
	}
	return b.String()
}

// User renders the signed-in user's profile
func User(u *api.User) string {
	verified := "no"
	if u.EmailVerified {
		verified = "yes"
	}
	return Title.Render(u.FullName()) + "\n" + Fields([][2]string{
		{"Email", u.Email},
		{"Verified", verified},
		{"Business", u.BusinessName},
		{"Address", u.BusinessAddress},
		{"Phone", u.Phone},
		{"Currency", u.Currency},
		{"Tax rate", u.TaxRate.String() + "%"},
	})
}
