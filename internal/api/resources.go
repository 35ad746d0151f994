package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// ListFilter narrows list endpoints. Empty values are not sent.
type ListFilter map[string]string

func (f ListFilter) query() string {
	v := url.Values{}
	for key, value := range f {
		if value != "" {
			v.Set(key, value)
		}
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// list fetches a paginated collection and returns its first page of results
func list[T any](ctx context.Context, ac *AuthenticatedClient, path string, filter ListFilter, fallback string) ([]T, error) {
	var page Page[T]
	if err := ac.do(ctx, http.MethodGet, path+filter.query(), nil, &page, fallback); err != nil {
		return nil, err
	}
	if page.Results == nil {
		return []T{}, nil
	}
	return page.Results, nil
}

func itemPath(collection, id string) string {
	return fmt.Sprintf("/%s/%s/", collection, url.PathEscape(id))
}

// ListClients returns clients, optionally filtered by search text
func (ac *AuthenticatedClient) ListClients(ctx context.Context, search string) ([]Customer, error) {
	return list[Customer](ctx, ac, "/clients/", ListFilter{"search": search}, "Failed to load clients")
}

// GetClient fetches one client
func (ac *AuthenticatedClient) GetClient(ctx context.Context, id string) (*Customer, error) {
	var c Customer
	if err := ac.do(ctx, http.MethodGet, itemPath("clients", id), nil, &c, "Failed to load client"); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateClient creates a client
func (ac *AuthenticatedClient) CreateClient(ctx context.Context, in ClientInput) (*Customer, error) {
	var c Customer
	if err := ac.do(ctx, http.MethodPost, "/clients/", in, &c, "Failed to create client"); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateClient replaces a client's fields
func (ac *AuthenticatedClient) UpdateClient(ctx context.Context, id string, in ClientInput) (*Customer, error) {
	var c Customer
	if err := ac.do(ctx, http.MethodPut, itemPath("clients", id), in, &c, "Failed to update client"); err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteClient deletes a client
func (ac *AuthenticatedClient) DeleteClient(ctx context.Context, id string) error {
	return ac.do(ctx, http.MethodDelete, itemPath("clients", id), nil, nil, "Failed to delete client")
}

// ListPayments returns payments filtered by search text and invoice id
func (ac *AuthenticatedClient) ListPayments(ctx context.Context, filter ListFilter) ([]Payment, error) {
	return list[Payment](ctx, ac, "/payments/", filter, "Failed to load payments")
}

// GetPayment fetches one payment
func (ac *AuthenticatedClient) GetPayment(ctx context.Context, id string) (*Payment, error) {
	var p Payment
	if err := ac.do(ctx, http.MethodGet, itemPath("payments", id), nil, &p, "Failed to load payment"); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePayment records a payment
func (ac *AuthenticatedClient) CreatePayment(ctx context.Context, in PaymentInput) (*Payment, error) {
	var p Payment
	if err := ac.do(ctx, http.MethodPost, "/payments/", in, &p, "Failed to record payment"); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePayment replaces a payment's fields
func (ac *AuthenticatedClient) UpdatePayment(ctx context.Context, id string, in PaymentInput) (*Payment, error) {
	var p Payment
	if err := ac.do(ctx, http.MethodPut, itemPath("payments", id), in, &p, "Failed to update payment"); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeletePayment deletes a payment
func (ac *AuthenticatedClient) DeletePayment(ctx context.Context, id string) error {
	return ac.do(ctx, http.MethodDelete, itemPath("payments", id), nil, nil, "Failed to delete payment")
}

// ListExpenses returns expenses filtered by search text and category
func (ac *AuthenticatedClient) ListExpenses(ctx context.Context, filter ListFilter) ([]Expense, error) {
	return list[Expense](ctx, ac, "/expenses/", filter, "Failed to load expenses")
}

// GetExpense fetches one expense
func (ac *AuthenticatedClient) GetExpense(ctx context.Context, id string) (*Expense, error) {
	var e Expense
	if err := ac.do(ctx, http.MethodGet, itemPath("expenses", id), nil, &e, "Failed to load expense"); err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateExpense records an expense. Receipts are not uploaded.
func (ac *AuthenticatedClient) CreateExpense(ctx context.Context, in ExpenseInput) (*Expense, error) {
	var e Expense
	if err := ac.do(ctx, http.MethodPost, "/expenses/", in, &e, "Failed to create expense"); err != nil {
		return nil, err
	}
	return &e, nil
}

// UpdateExpense replaces an expense's fields
func (ac *AuthenticatedClient) UpdateExpense(ctx context.Context, id string, in ExpenseInput) (*Expense, error) {
	var e Expense
	if err := ac.do(ctx, http.MethodPut, itemPath("expenses", id), in, &e, "Failed to update expense"); err != nil {
		return nil, err
	}
	return &e, nil
}

// DeleteExpense deletes an expense
func (ac *AuthenticatedClient) DeleteExpense(ctx context.Context, id string) error {
	return ac.do(ctx, http.MethodDelete, itemPath("expenses", id), nil, nil, "Failed to delete expense")
}

// Dashboard fetches the dashboard report
func (ac *AuthenticatedClient) Dashboard(ctx context.Context) (*Dashboard, error) {
	var d Dashboard
	if err := ac.do(ctx, http.MethodGet, "/reports/dashboard/", nil, &d, "Failed to load dashboard"); err != nil {
		return nil, err
	}
	return &d, nil
}

func (p ReportPeriod) filter() ListFilter {
	return ListFilter{"start_date": p.StartDate, "end_date": p.EndDate}
}

// IncomeReport fetches paid income for a period
func (ac *AuthenticatedClient) IncomeReport(ctx context.Context, period ReportPeriod) (*IncomeReport, error) {
	var r IncomeReport
	if err := ac.do(ctx, http.MethodGet, "/reports/income/"+period.filter().query(), nil, &r, "Failed to load income report"); err != nil {
		return nil, err
	}
	return &r, nil
}

// ExpenseReport fetches expenses by category for a period
func (ac *AuthenticatedClient) ExpenseReport(ctx context.Context, period ReportPeriod) (*ExpenseReport, error) {
	var r ExpenseReport
	if err := ac.do(ctx, http.MethodGet, "/reports/expenses/"+period.filter().query(), nil, &r, "Failed to load expense report"); err != nil {
		return nil, err
	}
	return &r, nil
}

// ClientReport fetches per-client totals
func (ac *AuthenticatedClient) ClientReport(ctx context.Context) (*ClientReport, error) {
	var r ClientReport
	if err := ac.do(ctx, http.MethodGet, "/reports/clients/", nil, &r, "Failed to load client report"); err != nil {
		return nil, err
	}
	return &r, nil
}
