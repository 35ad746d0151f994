package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mejba13/invoiceflow/internal/api"
	"github.com/mejba13/invoiceflow/internal/document"
	"github.com/mejba13/invoiceflow/internal/draftstore"
	"github.com/mejba13/invoiceflow/internal/invoice"
)

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, "", args...)
	require.NoError(t, err, "invoiceflow %s\n%s", strings.Join(args, " "), out)
	return out
}

func TestDraftFlow_ComposeAndSubmit(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)
	client := env.addClient("Acme", "billing@acme.test")

	out := mustRun(t, "draft", "new", "q1", "--client", client.ID, "--notes", "Thanks!")
	assert.Contains(t, out, "Draft q1")

	mustRun(t, "draft", "set-item", "q1", "1", "description", "Design")
	mustRun(t, "draft", "set-item", "q1", "1", "quantity", "2")
	mustRun(t, "draft", "set-item", "q1", "1", "unit_price", "50")
	out = mustRun(t, "draft", "add-item", "q1", "--description", "Hosting", "--unit-price", "30")

	assert.Contains(t, out, "Hosting")
	assert.Contains(t, out, "130.00")
	assert.Contains(t, out, "Tax (10%)")
	assert.Contains(t, out, "13.00")
	assert.Contains(t, out, "143.00")

	out = mustRun(t, "draft", "submit", "q1")
	assert.Contains(t, out, "Saved invoice INV-")
	assert.Equal(t, 1, env.srv.Calls("POST /invoices/"))

	_, err := run(t, "", "draft", "show", "q1")
	assert.ErrorIs(t, err, draftstore.ErrNotFound)
}

func TestDraftNew_CapturesProfileTaxRate(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)

	mustRun(t, "draft", "new", "q1")

	// later profile changes do not reach an existing draft
	mustRun(t, "profile", "update", "--tax-rate", "20")
	out := mustRun(t, "draft", "show", "q1")
	assert.Contains(t, out, "Tax (10%)")

	_, err := run(t, "", "draft", "new", "q1")
	assert.ErrorContains(t, err, "already exists")
}

func TestDraftItems(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)
	mustRun(t, "draft", "new", "q1")

	t.Run("negative values are refused", func(t *testing.T) {
		_, err := run(t, "", "draft", "set-item", "q1", "1", "unit_price", "--", "-5")
		assert.EqualError(t, err, "unit_price cannot be negative")

		_, err = run(t, "", "draft", "add-item", "q1", "--quantity", "abc")
		assert.ErrorContains(t, err, "must be a number")

		out := mustRun(t, "draft", "show", "q1")
		assert.NotContains(t, out, "-5")
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := run(t, "", "draft", "set-item", "q1", "1", "colour", "red")
		assert.ErrorContains(t, err, "unknown item field")
	})

	t.Run("item numbers start at one", func(t *testing.T) {
		_, err := run(t, "", "draft", "set-item", "q1", "0", "quantity", "1")
		assert.ErrorContains(t, err, "numbered from 1")

		_, err = run(t, "", "draft", "remove-item", "q1", "7")
		assert.ErrorIs(t, err, invoice.ErrNoSuchItem)
	})

	t.Run("last item cannot be removed", func(t *testing.T) {
		mustRun(t, "draft", "add-item", "q1", "--description", "Extra")
		mustRun(t, "draft", "remove-item", "q1", "1")

		_, err := run(t, "", "draft", "remove-item", "q1", "1")
		assert.ErrorIs(t, err, invoice.ErrLastItem)

		out := mustRun(t, "draft", "show", "q1")
		assert.Contains(t, out, "Extra")
	})
}

func TestDraftSubmit_ValidationStopsBeforeTheServer(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)
	mustRun(t, "draft", "new", "q1")

	_, err := run(t, "", "draft", "submit", "q1")

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Client is required", apiErr.Field("client"))
	assert.Equal(t, "Description is required", apiErr.Field("items.1.description"))
	assert.Equal(t, 0, env.srv.Calls("POST /invoices/"))

	// the draft survives a failed submit
	mustRun(t, "draft", "show", "q1")
}

func TestDraftSet(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)
	mustRun(t, "draft", "new", "q1")

	out := mustRun(t, "draft", "set", "q1", "due_date", "2031-02-28")
	assert.Contains(t, out, "2031-02-28")

	_, err := run(t, "", "draft", "set", "q1", "due_date", "28/02/2031")
	assert.ErrorContains(t, err, "expected YYYY-MM-DD")

	_, err = run(t, "", "draft", "set", "q1", "colour", "red")
	assert.ErrorContains(t, err, "unknown draft field")
}

func TestDraftEdit_UpdatesExistingInvoice(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)
	client := env.addClient("Acme", "billing@acme.test")

	mustRun(t, "draft", "new", "q1", "--client", client.ID)
	mustRun(t, "draft", "set-item", "q1", "1", "description", "Design")
	mustRun(t, "draft", "set-item", "q1", "1", "unit_price", "100")
	mustRun(t, "draft", "submit", "q1")

	invoices, err := newAuthedClient(t, env).ListInvoices(t.Context(), api.InvoiceFilter{})
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	id := invoices[0].ID

	out := mustRun(t, "draft", "edit", "fix", id)
	assert.Contains(t, out, "editing invoice "+id)

	mustRun(t, "draft", "set-item", "fix", "1", "quantity", "3")
	mustRun(t, "draft", "submit", "fix")

	assert.Equal(t, 1, env.srv.Calls("PUT /invoices/{id}/"))
	inv, err := newAuthedClient(t, env).GetInvoice(t.Context(), id)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(330).Equal(inv.TotalAmount), inv.TotalAmount.String())
}

func TestDraftListAndDiscard(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)

	out := mustRun(t, "draft", "list")
	assert.Contains(t, out, "No drafts")

	mustRun(t, "draft", "new", "alpha")
	mustRun(t, "draft", "new", "beta")
	out = mustRun(t, "draft", "list")
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "beta")

	out, err := run(t, "n\n", "draft", "discard", "alpha")
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted.")
	mustRun(t, "draft", "show", "alpha")

	mustRun(t, "draft", "discard", "alpha", "--yes")
	_, err = run(t, "", "draft", "show", "alpha")
	assert.ErrorIs(t, err, draftstore.ErrNotFound)
}

func TestDraftPreview(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)
	client := env.addClient("Acme", "billing@acme.test")

	mustRun(t, "draft", "new", "q1", "--client", client.ID)
	mustRun(t, "draft", "set-item", "q1", "1", "description", "Design")

	path := filepath.Join(t.TempDir(), "preview.pdf")
	out := mustRun(t, "draft", "preview", "q1", "-o", path)
	assert.Contains(t, out, "Preview written to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	info, err := document.Inspect(data)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Pages)
}

func TestDraftEditing_WorksOffline(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)
	mustRun(t, "draft", "new", "q1")
	before := env.srv.TotalCalls()

	mustRun(t, "draft", "add-item", "q1")
	mustRun(t, "draft", "set", "q1", "notes", "offline")
	mustRun(t, "draft", "show", "q1")

	assert.Equal(t, before, env.srv.TotalCalls())
}
