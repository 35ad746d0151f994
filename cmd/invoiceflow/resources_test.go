package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mejba13/invoiceflow/internal/api"
)

func TestClientCommands(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)

	out := mustRun(t, "client", "list")
	assert.Contains(t, out, "No clients found")

	out = mustRun(t, "client", "create", "--name", "Acme", "--email", "billing@acme.test", "--company", "Acme Corp")
	assert.Contains(t, out, "Created client Acme")

	clients, err := newAuthedClient(t, env).ListClients(t.Context(), "")
	require.NoError(t, err)
	require.Len(t, clients, 1)
	id := clients[0].ID

	_, err = run(t, "", "client", "create", "--name", "Other", "--email", "BILLING@acme.test")
	assert.EqualError(t, err, "You already have a client with this email.")

	_, err = run(t, "", "client", "create", "--email", "nobody@acme.test")
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, []string{"This field is required."}, apiErr.FieldErrors["name"])

	out = mustRun(t, "client", "update", id, "--phone", "555-0100")
	assert.Contains(t, out, "555-0100")
	assert.Contains(t, out, "Acme Corp")

	out = mustRun(t, "client", "list", "--search", "corp")
	assert.Contains(t, out, "billing@acme.test")
	out = mustRun(t, "client", "list", "--search", "zzz")
	assert.Contains(t, out, "No clients found")

	out = mustRun(t, "client", "delete", id, "--yes")
	assert.Contains(t, out, "Client deleted")
	_, err = run(t, "", "client", "show", id)
	assert.EqualError(t, err, "Not found.")
}

func TestPaymentCommands(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)
	inv := env.seedInvoice(t, "2099-12-31")

	out := mustRun(t, "payment", "create", "--invoice", inv.ID, "--amount", "50", "--method", "paypal")
	assert.Contains(t, out, "Recorded payment of 50.00 for invoice "+inv.InvoiceNumber)

	out = mustRun(t, "invoice", "show", inv.ID)
	assert.Contains(t, out, "59.99")

	mustRun(t, "payment", "create", "--invoice", inv.ID, "--amount", "59.99")
	out = mustRun(t, "invoice", "show", inv.ID)
	assert.Contains(t, out, "PAID")

	out = mustRun(t, "payment", "list", "--invoice", inv.ID)
	assert.Contains(t, out, "PAYPAL")
	assert.Contains(t, out, "BANK_TRANSFER")

	_, err := run(t, "", "payment", "create", "--invoice", inv.ID, "--amount", "ten")
	assert.ErrorContains(t, err, "must be a number")

	_, err = run(t, "", "payment", "create", "--invoice", inv.ID, "--amount", "0")
	assert.EqualError(t, err, "Payment amount must be greater than zero.")

	_, err = run(t, "", "payment", "create", "--amount", "5")
	assert.ErrorContains(t, err, `required flag(s) "invoice" not set`)
}

func TestExpenseCommands(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)

	out := mustRun(t, "expense", "create", "--description", "Laptop", "--amount", "1500", "--category", "equipment", "--tax-deductible", "--vendor", "Shop")
	assert.Contains(t, out, `Recorded expense "Laptop" of 1500.00`)
	mustRun(t, "expense", "create", "--description", "Lunch", "--amount", "25.50")

	out = mustRun(t, "expense", "list", "--category", "equipment")
	assert.Contains(t, out, "Laptop")
	assert.NotContains(t, out, "Lunch")

	_, err := run(t, "", "expense", "create", "--description", "Thing", "--amount", "5", "--category", "toys")
	assert.EqualError(t, err, `"TOYS" is not a valid choice.`)

	out = mustRun(t, "report", "expenses")
	assert.Contains(t, out, "1525.50")
	assert.Contains(t, out, "EQUIPMENT")
	assert.Contains(t, out, "OTHER")
}

func TestReportCommands(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)

	out := mustRun(t, "report", "clients")
	assert.Contains(t, out, "No clients found")

	inv := env.seedInvoice(t, "2099-12-31")
	mustRun(t, "invoice", "mark-paid", inv.ID)

	out = mustRun(t, "report", "dashboard")
	assert.Contains(t, out, "Dashboard for Ada Lovelace")
	assert.Contains(t, out, inv.InvoiceNumber)
	assert.Contains(t, out, "Monthly revenue")
	assert.Contains(t, out, "Top clients")

	out = mustRun(t, "report", "clients")
	assert.Contains(t, out, "Acme")
	assert.Contains(t, out, "109.99")

	// paid_at is stamped in UTC
	today := time.Now().UTC().Format("2006-01-02")
	out = mustRun(t, "report", "income", "--from", today, "--to", today)
	assert.Contains(t, out, inv.InvoiceNumber)
	assert.Contains(t, out, "109.99")

	out = mustRun(t, "report", "income", "--from", "2001-01-01", "--to", "2001-12-31")
	assert.NotContains(t, out, inv.InvoiceNumber)
}
