package apitest

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/mejba13/invoiceflow/internal/api"
)

var hundred = decimal.NewFromInt(100)

// collection stores records per owner. Listing returns newest first.
type collection[T any] struct {
	order []string
	items map[string]*T
	owner map[string]string
}

func newCollection[T any]() *collection[T] {
	return &collection[T]{items: make(map[string]*T), owner: make(map[string]string)}
}

func (c *collection[T]) put(owner, id string, v *T) {
	if _, exists := c.items[id]; !exists {
		c.order = append(c.order, id)
	}
	c.items[id] = v
	c.owner[id] = owner
}

func (c *collection[T]) get(owner, id string) (*T, bool) {
	v, ok := c.items[id]
	if !ok || c.owner[id] != owner {
		return nil, false
	}
	return v, true
}

func (c *collection[T]) remove(owner, id string) bool {
	if _, ok := c.get(owner, id); !ok {
		return false
	}
	delete(c.items, id)
	delete(c.owner, id)
	c.order = slices.DeleteFunc(c.order, func(x string) bool { return x == id })
	return true
}

func (c *collection[T]) list(owner string) []*T {
	var out []*T
	for i := len(c.order) - 1; i >= 0; i-- {
		id := c.order[i]
		if c.owner[id] == owner {
			out = append(out, c.items[id])
		}
	}
	return out
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, detail("Not found."))
}

// clients

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	owner := currentUser(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []api.Customer
	for _, c := range s.clients.list(owner) {
		if search != "" && !contains(c.Name, search) && !contains(c.Email, search) && !contains(c.CompanyName, search) {
			continue
		}
		out = append(out, s.clientViewLocked(owner, *c))
	}
	writeJSON(w, http.StatusOK, page(out))
}

func (s *Server) validateClientLocked(owner, id string, in api.ClientInput) *fieldErrors {
	var errs fieldErrors
	if strings.TrimSpace(in.Name) == "" {
		errs.add("name", "This field is required.")
	}
	if strings.TrimSpace(in.Email) == "" {
		errs.add("email", "This field is required.")
	}
	for _, c := range s.clients.list(owner) {
		if c.ID != id && strings.EqualFold(c.Email, in.Email) {
			errs.add("email", "You already have a client with this email.")
			break
		}
	}
	return &errs
}

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var in api.ClientInput
	if !decodeBody(w, r, &in) {
		return
	}
	owner := currentUser(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	if errs := s.validateClientLocked(owner, "", in); errs.any() {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	now := timestamp()
	c := &api.Customer{ID: newID(), CreatedAt: now, UpdatedAt: now}
	applyClient(c, in)
	s.clients.put(owner, c.ID, c)
	writeJSON(w, http.StatusCreated, s.clientViewLocked(owner, *c))
}

// AddClient stores a client for the account with email
func (s *Server) AddClient(email string, in api.ClientInput) api.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner := s.byEmail[strings.ToLower(email)]
	now := timestamp()
	c := &api.Customer{ID: newID(), CreatedAt: now, UpdatedAt: now}
	applyClient(c, in)
	s.clients.put(owner, c.ID, c)
	return *c
}

func applyClient(c *api.Customer, in api.ClientInput) {
	c.Name = in.Name
	c.Email = in.Email
	c.CompanyName = in.CompanyName
	c.Address = in.Address
	c.Phone = in.Phone
	c.Notes = in.Notes
}

func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	owner := currentUser(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients.get(owner, mux.Vars(r)["id"])
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, s.clientViewLocked(owner, *c))
}

func (s *Server) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	var in api.ClientInput
	if !decodeBody(w, r, &in) {
		return
	}
	owner := currentUser(r)
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients.get(owner, id)
	if !ok {
		notFound(w)
		return
	}
	if errs := s.validateClientLocked(owner, id, in); errs.any() {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	applyClient(c, in)
	c.UpdatedAt = timestamp()
	writeJSON(w, http.StatusOK, s.clientViewLocked(owner, *c))
}

func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	owner := currentUser(r)
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, inv := range s.invoices.list(owner) {
		if inv.Client == id {
			writeJSON(w, http.StatusBadRequest, detail("Cannot delete a client that has invoices."))
			return
		}
	}
	if !s.clients.remove(owner, id) {
		notFound(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// clientViewLocked fills the derived totals of a client
func (s *Server) clientViewLocked(owner string, c api.Customer) api.Customer {
	c.TotalInvoiced, c.TotalPaid = decimal.Zero, decimal.Zero
	for _, inv := range s.invoices.list(owner) {
		if inv.Client != c.ID {
			continue
		}
		c.TotalInvoiced = c.TotalInvoiced.Add(inv.TotalAmount)
		c.TotalPaid = c.TotalPaid.Add(s.amountPaidLocked(owner, inv.ID))
	}
	c.TotalOutstanding = c.TotalInvoiced.Sub(c.TotalPaid)
	return c
}

// payments

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	owner := currentUser(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []api.Payment
	for _, p := range s.payments.list(owner) {
		if v := q.Get("invoice"); v != "" && p.Invoice != v {
			continue
		}
		if v := q.Get("payment_method"); v != "" && p.PaymentMethod != v {
			continue
		}
		out = append(out, *p)
	}
	writeJSON(w, http.StatusOK, page(out))
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var in api.PaymentInput
	if !decodeBody(w, r, &in) {
		return
	}
	owner := currentUser(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	var errs fieldErrors
	inv, ok := s.invoices.get(owner, in.Invoice)
	if !ok {
		errs.add("invoice", "You don't have permission to add payments to this invoice.")
	}
	if !positive(in.Amount) {
		errs.add("amount", "Payment amount must be greater than zero.")
	}
	if in.PaymentDate == "" {
		errs.add("payment_date", "This field is required.")
	}
	if !slices.Contains(api.PaymentMethods, in.PaymentMethod) {
		errs.add("payment_method", "\""+in.PaymentMethod+"\" is not a valid choice.")
	}
	if errs.any() {
		writeJSON(w, http.StatusBadRequest, &errs)
		return
	}

	now := timestamp()
	p := &api.Payment{
		ID:            newID(),
		Invoice:       inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		ClientName:    s.clientNameLocked(owner, inv.Client),
		Amount:        in.Amount,
		PaymentDate:   in.PaymentDate,
		PaymentMethod: in.PaymentMethod,
		TransactionID: in.TransactionID,
		Notes:         in.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.payments.put(owner, p.ID, p)

	if s.amountPaidLocked(owner, inv.ID).GreaterThanOrEqual(inv.TotalAmount) {
		markPaid(inv)
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments.get(currentUser(r), mux.Vars(r)["id"])
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.payments.remove(currentUser(r), mux.Vars(r)["id"]) {
		notFound(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) amountPaidLocked(owner, invoiceID string) decimal.Decimal {
	total := decimal.Zero
	for _, p := range s.payments.list(owner) {
		if p.Invoice == invoiceID {
			total = total.Add(p.Amount)
		}
	}
	return total
}

// expenses

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	owner := currentUser(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []api.Expense
	for _, e := range s.expenses.list(owner) {
		if v := q.Get("category"); v != "" && e.Category != v {
			continue
		}
		if v := q.Get("search"); v != "" && !contains(e.Description, v) && !contains(e.Vendor, v) {
			continue
		}
		out = append(out, *e)
	}
	writeJSON(w, http.StatusOK, page(out))
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var in api.ExpenseInput
	if !decodeBody(w, r, &in) {
		return
	}

	var errs fieldErrors
	if strings.TrimSpace(in.Description) == "" {
		errs.add("description", "This field is required.")
	}
	if !positive(in.Amount) {
		errs.add("amount", "Expense amount must be greater than zero.")
	}
	if !slices.Contains(api.ExpenseCategories, in.Category) {
		errs.add("category", "\""+in.Category+"\" is not a valid choice.")
	}
	if in.ExpenseDate == "" {
		errs.add("expense_date", "This field is required.")
	}
	if errs.any() {
		writeJSON(w, http.StatusBadRequest, &errs)
		return
	}

	now := timestamp()
	e := &api.Expense{
		ID:            newID(),
		Description:   in.Description,
		Amount:        in.Amount,
		Category:      in.Category,
		ExpenseDate:   in.ExpenseDate,
		Notes:         in.Notes,
		Vendor:        in.Vendor,
		TaxDeductible: in.TaxDeductible,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	s.mu.Lock()
	s.expenses.put(currentUser(r), e.ID, e)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.expenses.get(currentUser(r), mux.Vars(r)["id"])
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.expenses.remove(currentUser(r), mux.Vars(r)["id"]) {
		notFound(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
