package apitest

import (
	"bytes"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/mejba13/invoiceflow/internal/api"
	"github.com/mejba13/invoiceflow/internal/document"
	"github.com/mejba13/invoiceflow/internal/invoice"
)

var invoiceStatuses = []string{
	api.StatusDraft, api.StatusSent, api.StatusPaid, api.StatusOverdue, api.StatusCancelled,
}

func today() string {
	return time.Now().Format(invoice.DateLayout)
}

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	owner := currentUser(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []api.Invoice
	for _, inv := range s.invoices.list(owner) {
		if v := q.Get("status"); v != "" && inv.Status != v {
			continue
		}
		if v := q.Get("client"); v != "" && inv.Client != v {
			continue
		}
		if v := q.Get("search"); v != "" && !contains(inv.InvoiceNumber, v) && !contains(s.clientNameLocked(owner, inv.Client), v) {
			continue
		}
		out = append(out, s.invoiceViewLocked(owner, *inv))
	}
	writeJSON(w, http.StatusOK, page(out))
}

func (s *Server) handleOverdueInvoices(w http.ResponseWriter, r *http.Request) {
	owner := currentUser(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	out := []api.Invoice{}
	for _, inv := range s.invoices.list(owner) {
		if isOverdue(inv) {
			out = append(out, s.invoiceViewLocked(owner, *inv))
		}
	}
	// not paginated
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	owner := currentUser(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices.get(owner, mux.Vars(r)["id"])
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, s.invoiceViewLocked(owner, *inv))
}

// validateInvoiceLocked writes a 400 and returns false when in is invalid
func (s *Server) validateInvoiceLocked(w http.ResponseWriter, owner string, in api.InvoiceInput) bool {
	var errs fieldErrors
	if in.Client == "" {
		errs.add("client", "This field is required.")
	} else if _, ok := s.clients.get(owner, in.Client); !ok {
		errs.add("client", fmt.Sprintf("Invalid pk \"%s\" - object does not exist.", in.Client))
	}
	for _, f := range [][2]string{{"issue_date", in.IssueDate}, {"due_date", in.DueDate}} {
		if _, err := time.Parse(invoice.DateLayout, f[1]); err != nil {
			errs.add(f[0], "Date has wrong format. Use one of these formats instead: YYYY-MM-DD.")
		}
	}
	if in.Status != "" && !slices.Contains(invoiceStatuses, in.Status) {
		errs.add("status", "\""+in.Status+"\" is not a valid choice.")
	}
	if len(in.Items) == 0 {
		errs.add("items", "This list may not be empty.")
	}
	if errs.any() {
		writeJSON(w, http.StatusBadRequest, &errs)
		return false
	}

	itemErrs := make([]map[string][]string, len(in.Items))
	bad := false
	for i, it := range in.Items {
		itemErrs[i] = map[string][]string{}
		if it.Description == "" {
			itemErrs[i]["description"] = []string{"This field may not be blank."}
			bad = true
		}
		if it.Quantity.LessThan(decimal.RequireFromString("0.01")) {
			itemErrs[i]["quantity"] = []string{"Ensure this value is greater than or equal to 0.01."}
			bad = true
		}
		if it.UnitPrice.IsNegative() {
			itemErrs[i]["unit_price"] = []string{"Ensure this value is greater than or equal to 0."}
			bad = true
		}
	}
	if bad {
		writeJSON(w, http.StatusBadRequest, map[string]any{"items": itemErrs})
		return false
	}
	return true
}

// applyInvoiceLocked replaces items and header fields and recomputes totals
func (s *Server) applyInvoiceLocked(owner string, inv *api.Invoice, in api.InvoiceInput) {
	inv.Client = in.Client
	inv.IssueDate = in.IssueDate
	inv.DueDate = in.DueDate
	inv.Notes = in.Notes
	inv.Terms = in.Terms
	if in.Status != "" {
		inv.Status = in.Status
	}

	items := make([]invoice.Item, len(in.Items))
	inv.Items = make([]api.InvoiceItem, len(in.Items))
	for i, it := range in.Items {
		items[i] = invoice.Item{Description: it.Description, Quantity: it.Quantity, UnitPrice: it.UnitPrice}
		inv.Items[i] = api.InvoiceItem{
			ID:          newID(),
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Amount:      items[i].Amount(),
			Order:       it.Order,
		}
	}

	totals := invoice.ComputeTotals(items, s.users[owner].user.TaxRate).Rounded()
	inv.Subtotal = totals.Subtotal
	inv.TaxAmount = totals.TaxAmount
	inv.TotalAmount = totals.Total
	inv.UpdatedAt = timestamp()
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var in api.InvoiceInput
	if !decodeBody(w, r, &in) {
		return
	}
	owner := currentUser(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.validateInvoiceLocked(w, owner, in) {
		return
	}

	s.seq++
	inv := &api.Invoice{
		ID:            newID(),
		InvoiceNumber: fmt.Sprintf("INV-%d-%05d", time.Now().Year(), s.seq),
		Status:        api.StatusDraft,
		CreatedAt:     timestamp(),
	}
	s.applyInvoiceLocked(owner, inv, in)
	s.invoices.put(owner, inv.ID, inv)

	writeJSON(w, http.StatusCreated, s.invoiceViewLocked(owner, *inv))
}

func (s *Server) handleUpdateInvoice(w http.ResponseWriter, r *http.Request) {
	var in api.InvoiceInput
	if !decodeBody(w, r, &in) {
		return
	}
	owner := currentUser(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices.get(owner, mux.Vars(r)["id"])
	if !ok {
		notFound(w)
		return
	}
	if !s.validateInvoiceLocked(w, owner, in) {
		return
	}
	s.applyInvoiceLocked(owner, inv, in)

	writeJSON(w, http.StatusOK, s.invoiceViewLocked(owner, *inv))
}

func (s *Server) handleDeleteInvoice(w http.ResponseWriter, r *http.Request) {
	owner := currentUser(r)
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.invoices.remove(owner, id) {
		notFound(w)
		return
	}
	for _, p := range s.payments.list(owner) {
		if p.Invoice == id {
			s.payments.remove(owner, p.ID)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// invoiceAction runs fn on the invoice and answers {invoice, message}.
// A non-empty return from fn is sent back as a 400.
func (s *Server) invoiceAction(w http.ResponseWriter, r *http.Request, message string, fn func(inv *api.Invoice) string) {
	owner := currentUser(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices.get(owner, mux.Vars(r)["id"])
	if !ok {
		notFound(w)
		return
	}
	if refusal := fn(inv); refusal != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": refusal})
		return
	}
	inv.UpdatedAt = timestamp()

	writeJSON(w, http.StatusOK, map[string]any{
		"invoice": s.invoiceViewLocked(owner, *inv),
		"message": message,
	})
}

func (s *Server) handleSendInvoice(w http.ResponseWriter, r *http.Request) {
	s.invoiceAction(w, r, "Invoice marked as sent", func(inv *api.Invoice) string {
		if inv.Status == api.StatusCancelled {
			return "Cannot send a cancelled invoice"
		}
		if inv.Status == api.StatusDraft {
			now := timestamp()
			inv.SentAt = &now
			inv.Status = api.StatusSent
		}
		return ""
	})
}

func (s *Server) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	s.invoiceAction(w, r, "Invoice marked as paid", func(inv *api.Invoice) string {
		if inv.Status == api.StatusCancelled {
			return "Cannot mark a cancelled invoice as paid"
		}
		markPaid(inv)
		return ""
	})
}

func (s *Server) handleCancelInvoice(w http.ResponseWriter, r *http.Request) {
	s.invoiceAction(w, r, "Invoice cancelled", func(inv *api.Invoice) string {
		inv.Status = api.StatusCancelled
		return ""
	})
}

func (s *Server) handleInvoicePDF(w http.ResponseWriter, r *http.Request) {
	owner := currentUser(r)

	s.mu.Lock()
	inv, ok := s.invoices.get(owner, mux.Vars(r)["id"])
	if !ok {
		s.mu.Unlock()
		notFound(w)
		return
	}
	user := s.users[owner].user
	parties := document.Parties{Issuer: &user}
	if c, ok := s.clients.get(owner, inv.Client); ok {
		client := *c
		parties.Client = &client
	}
	draft := invoice.FromInvoice(inv, user.TaxRate)
	filename := inv.InvoiceNumber + ".pdf"
	s.mu.Unlock()

	var buf bytes.Buffer
	if err := document.RenderDraft(&buf, draft, parties); err != nil {
		writeJSON(w, http.StatusInternalServerError, detail("Failed to render PDF"))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func markPaid(inv *api.Invoice) {
	if inv.Status == api.StatusPaid {
		return
	}
	now := timestamp()
	inv.PaidAt = &now
	inv.Status = api.StatusPaid
}

func isOverdue(inv *api.Invoice) bool {
	if inv.Status == api.StatusPaid || inv.Status == api.StatusCancelled {
		return false
	}
	return inv.DueDate < today()
}

func (s *Server) clientNameLocked(owner, clientID string) string {
	if c, ok := s.clients.get(owner, clientID); ok {
		return c.Name
	}
	return ""
}

// invoiceViewLocked fills the derived and nested fields of an invoice
func (s *Server) invoiceViewLocked(owner string, inv api.Invoice) api.Invoice {
	if c, ok := s.clients.get(owner, inv.Client); ok {
		client := *c
		inv.ClientDetails = &client
	}
	inv.Items = append([]api.InvoiceItem(nil), inv.Items...)
	inv.AmountPaid = s.amountPaidLocked(owner, inv.ID)
	inv.AmountDue = inv.TotalAmount.Sub(inv.AmountPaid)
	inv.IsOverdue = isOverdue(&inv)
	return inv
}
