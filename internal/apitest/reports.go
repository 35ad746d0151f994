package apitest

import (
	"net/http"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mejba13/invoiceflow/internal/api"
	"github.com/mejba13/invoiceflow/internal/invoice"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	owner := currentUser(r)
	monthStart := time.Now().Format("2006-01") + "-01"

	s.mu.Lock()
	defer s.mu.Unlock()

	var d api.Dashboard
	d.Overview = api.DashboardOverview{
		TotalOutstanding:  decimal.Zero,
		PaidThisMonth:     decimal.Zero,
		OverdueAmount:     decimal.Zero,
		ExpensesThisMonth: decimal.Zero,
	}

	invoices := s.invoices.list(owner)
	for _, inv := range invoices {
		switch inv.Status {
		case api.StatusPaid:
			if inv.PaidAt != nil && (*inv.PaidAt)[:10] >= monthStart {
				d.Overview.PaidThisMonth = d.Overview.PaidThisMonth.Add(inv.TotalAmount)
			}
		case api.StatusCancelled:
		default:
			d.Overview.TotalOutstanding = d.Overview.TotalOutstanding.Add(inv.TotalAmount)
		}
		if inv.Status == api.StatusSent || inv.Status == api.StatusDraft {
			d.Overview.PendingInvoices++
		}
		if isOverdue(inv) {
			d.Overview.OverdueInvoices++
			d.Overview.OverdueAmount = d.Overview.OverdueAmount.Add(inv.TotalAmount)
		}
	}

	for i, inv := range invoices {
		if i == 5 {
			break
		}
		d.RecentInvoices = append(d.RecentInvoices, api.RecentInvoice{
			ID:            inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			ClientName:    s.clientNameLocked(owner, inv.Client),
			TotalAmount:   inv.TotalAmount,
			Status:        inv.Status,
			DueDate:       inv.DueDate,
		})
	}

	for _, e := range s.expenses.list(owner) {
		if e.ExpenseDate >= monthStart {
			d.Overview.ExpensesThisMonth = d.Overview.ExpensesThisMonth.Add(e.Amount)
		}
	}

	now := time.Now()
	for i := 5; i >= 0; i-- {
		month := time.Date(now.Year(), now.Month()-time.Month(i), 1, 0, 0, 0, 0, time.UTC)
		prefix := month.Format("2006-01")
		revenue := decimal.Zero
		for _, inv := range invoices {
			if inv.Status == api.StatusPaid && inv.PaidAt != nil && (*inv.PaidAt)[:7] == prefix {
				revenue = revenue.Add(inv.TotalAmount)
			}
		}
		d.MonthlyRevenue = append(d.MonthlyRevenue, api.MonthlyRevenue{Month: month.Format("Jan 2006"), Revenue: revenue})
	}

	for _, c := range s.clientSummariesLocked(owner) {
		if len(d.TopClients) == 5 {
			break
		}
		d.TopClients = append(d.TopClients, api.TopClient{Name: c.Name, CompanyName: c.CompanyName, TotalInvoiced: c.TotalInvoiced})
	}

	writeJSON(w, http.StatusOK, d)
}

// period reads start_date/end_date, defaulting to the current month
func period(r *http.Request) (string, string) {
	q := r.URL.Query()
	start, end := q.Get("start_date"), q.Get("end_date")
	if start == "" {
		start = time.Now().Format("2006-01") + "-01"
	}
	if end == "" {
		end = time.Now().Format(invoice.DateLayout)
	}
	return start, end
}

func (s *Server) handleIncomeReport(w http.ResponseWriter, r *http.Request) {
	owner := currentUser(r)
	start, end := period(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	report := api.IncomeReport{TotalIncome: decimal.Zero, Invoices: []api.IncomeInvoice{}}
	for _, inv := range s.invoices.list(owner) {
		if inv.Status != api.StatusPaid || inv.PaidAt == nil {
			continue
		}
		day := (*inv.PaidAt)[:10]
		if day < start || day > end {
			continue
		}
		report.TotalIncome = report.TotalIncome.Add(inv.TotalAmount)
		report.InvoiceCount++
		report.Invoices = append(report.Invoices, api.IncomeInvoice{
			InvoiceNumber: inv.InvoiceNumber,
			ClientName:    s.clientNameLocked(owner, inv.Client),
			TotalAmount:   inv.TotalAmount,
			PaidAt:        *inv.PaidAt,
		})
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleExpenseReport(w http.ResponseWriter, r *http.Request) {
	owner := currentUser(r)
	start, end := period(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	report := api.ExpenseReport{TotalExpenses: decimal.Zero, TaxDeductible: decimal.Zero}
	byCategory := map[string]*api.CategoryTotal{}
	for _, e := range s.expenses.list(owner) {
		if e.ExpenseDate < start || e.ExpenseDate > end {
			continue
		}
		report.TotalExpenses = report.TotalExpenses.Add(e.Amount)
		if e.TaxDeductible {
			report.TaxDeductible = report.TaxDeductible.Add(e.Amount)
		}
		ct, ok := byCategory[e.Category]
		if !ok {
			ct = &api.CategoryTotal{Category: e.Category, Total: decimal.Zero}
			byCategory[e.Category] = ct
		}
		ct.Total = ct.Total.Add(e.Amount)
		ct.Count++
	}

	report.ByCategory = []api.CategoryTotal{}
	for _, ct := range byCategory {
		report.ByCategory = append(report.ByCategory, *ct)
	}
	sort.Slice(report.ByCategory, func(i, j int) bool {
		a, b := report.ByCategory[i], report.ByCategory[j]
		if !a.Total.Equal(b.Total) {
			return a.Total.GreaterThan(b.Total)
		}
		return a.Category < b.Category
	})
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleClientReport(w http.ResponseWriter, r *http.Request) {
	owner := currentUser(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	writeJSON(w, http.StatusOK, api.ClientReport{Clients: s.clientSummariesLocked(owner)})
}

// clientSummariesLocked ranks clients by total invoiced, highest first
func (s *Server) clientSummariesLocked(owner string) []api.ClientSummary {
	out := []api.ClientSummary{}
	for _, c := range s.clients.list(owner) {
		view := s.clientViewLocked(owner, *c)
		count := 0
		for _, inv := range s.invoices.list(owner) {
			if inv.Client == c.ID {
				count++
			}
		}
		out = append(out, api.ClientSummary{
			ID:            view.ID,
			Name:          view.Name,
			CompanyName:   view.CompanyName,
			Email:         view.Email,
			TotalInvoiced: view.TotalInvoiced,
			TotalPaid:     view.TotalPaid,
			InvoiceCount:  count,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalInvoiced.GreaterThan(out[j].TotalInvoiced)
	})
	return out
}
