package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mejba13/invoiceflow/internal/api"
	"github.com/mejba13/invoiceflow/internal/document"
)

// seedInvoice creates an invoice for a fresh client straight through the API
func (e *testEnv) seedInvoice(t *testing.T, dueDate string) *api.Invoice {
	t.Helper()
	client := e.addClient("Acme", "billing@acme.test")

	inv, err := newAuthedClient(t, e).CreateInvoice(t.Context(), api.InvoiceInput{
		Client:    client.ID,
		IssueDate: "2020-01-01",
		DueDate:   dueDate,
		Items: []api.InvoiceItemInput{
			{Description: "Consulting", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("49.995")},
		},
	})
	require.NoError(t, err)
	return inv
}

func TestInvoiceListAndShow(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)

	out := mustRun(t, "invoice", "list")
	assert.Contains(t, out, "No invoices found")

	inv := env.seedInvoice(t, "2099-12-31")

	out = mustRun(t, "invoice", "list")
	assert.Contains(t, out, inv.InvoiceNumber)
	assert.Contains(t, out, "Acme")

	out = mustRun(t, "invoice", "list", "--status", "PAID")
	assert.Contains(t, out, "No invoices found")

	out = mustRun(t, "invoice", "show", inv.ID)
	assert.Contains(t, out, "Invoice "+inv.InvoiceNumber)
	assert.Contains(t, out, "Consulting")
	// 99.99 subtotal, 9.999 tax, 109.989 total
	assert.Contains(t, out, "99.99")
	assert.Contains(t, out, "109.99")

	_, err := run(t, "", "invoice", "show", "missing")
	assert.EqualError(t, err, "Not found.")
}

func TestInvoiceOverdue(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)

	out := mustRun(t, "invoice", "overdue")
	assert.Contains(t, out, "No overdue invoices")

	late := env.seedInvoice(t, "2020-01-31")
	out = mustRun(t, "invoice", "overdue")
	assert.Contains(t, out, late.InvoiceNumber)

	out = mustRun(t, "invoice", "show", late.ID)
	assert.Contains(t, out, "This invoice is overdue")
}

func TestInvoicePDF(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)
	inv := env.seedInvoice(t, "2099-12-31")

	path := filepath.Join(t.TempDir(), "out.pdf")
	out := mustRun(t, "invoice", "pdf", inv.ID, "-o", path)
	assert.Contains(t, out, "Saved 1-page PDF to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	info, err := document.Inspect(data)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Pages)

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), st.Mode().Perm())
}

func TestInvoiceActions(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)

	t.Run("send then mark paid", func(t *testing.T) {
		inv := env.seedInvoice(t, "2099-12-31")

		out := mustRun(t, "invoice", "send", inv.ID)
		assert.Contains(t, out, "Invoice marked as sent")

		out = mustRun(t, "invoice", "mark-paid", inv.ID)
		assert.Contains(t, out, "Invoice "+inv.InvoiceNumber+" is now PAID")
	})

	t.Run("cancelled invoices cannot be paid", func(t *testing.T) {
		inv := env.seedInvoice(t, "2099-12-31")

		out := mustRun(t, "invoice", "cancel", inv.ID, "--yes")
		assert.Contains(t, out, "cancelled")

		_, err := run(t, "", "invoice", "mark-paid", inv.ID)
		assert.EqualError(t, err, "Cannot mark a cancelled invoice as paid")
	})

	t.Run("declined delete keeps the invoice", func(t *testing.T) {
		inv := env.seedInvoice(t, "2099-12-31")

		out, err := run(t, "no\n", "invoice", "delete", inv.ID)
		require.NoError(t, err)
		assert.Contains(t, out, "Aborted.")
		assert.Equal(t, 0, env.srv.Calls("DELETE /invoices/{id}/"))

		out = mustRun(t, "invoice", "delete", inv.ID, "-y")
		assert.Contains(t, out, "Invoice deleted")

		_, err = run(t, "", "invoice", "show", inv.ID)
		assert.EqualError(t, err, "Not found.")
	})
}

func TestInvoiceCommands_RequireLogin(t *testing.T) {
	env := newTestEnv(t)

	for _, args := range [][]string{
		{"invoice", "list"},
		{"invoice", "show", "x"},
		{"invoice", "mark-paid", "x"},
		{"draft", "new", "q1"},
		{"report", "dashboard"},
	} {
		_, err := run(t, "", args...)
		assert.ErrorIs(t, err, api.ErrNotAuthenticated, "%v", args)
	}
	assert.Equal(t, 0, env.srv.TotalCalls())
}
