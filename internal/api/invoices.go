package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
)

// InvoiceFilter narrows the invoice list
type InvoiceFilter struct {
	Search string
	Status string
	Client string
}

// ListInvoices returns invoices matching filter
func (ac *AuthenticatedClient) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]Invoice, error) {
	f := ListFilter{"search": filter.Search, "status": filter.Status, "client": filter.Client}
	return list[Invoice](ctx, ac, "/invoices/", f, "Failed to load invoices")
}

// OverdueInvoices returns invoices past their due date
func (ac *AuthenticatedClient) OverdueInvoices(ctx context.Context) ([]Invoice, error) {
	var invoices []Invoice
	if err := ac.do(ctx, http.MethodGet, "/invoices/overdue/", nil, &invoices, "Failed to load overdue invoices"); err != nil {
		return nil, err
	}
	return invoices, nil
}

// GetInvoice fetches one invoice with its items
func (ac *AuthenticatedClient) GetInvoice(ctx context.Context, id string) (*Invoice, error) {
	var inv Invoice
	if err := ac.do(ctx, http.MethodGet, itemPath("invoices", id), nil, &inv, "Failed to load invoice"); err != nil {
		return nil, err
	}
	return &inv, nil
}

// CreateInvoice creates an invoice with its items
func (ac *AuthenticatedClient) CreateInvoice(ctx context.Context, in InvoiceInput) (*Invoice, error) {
	var inv Invoice
	if err := ac.do(ctx, http.MethodPost, "/invoices/", in, &inv, "Failed to create invoice"); err != nil {
		return nil, err
	}
	return &inv, nil
}

// UpdateInvoice replaces an invoice and its items
func (ac *AuthenticatedClient) UpdateInvoice(ctx context.Context, id string, in InvoiceInput) (*Invoice, error) {
	var inv Invoice
	if err := ac.do(ctx, http.MethodPut, itemPath("invoices", id), in, &inv, "Failed to update invoice"); err != nil {
		return nil, err
	}
	return &inv, nil
}

// DeleteInvoice deletes an invoice
func (ac *AuthenticatedClient) DeleteInvoice(ctx context.Context, id string) error {
	return ac.do(ctx, http.MethodDelete, itemPath("invoices", id), nil, nil, "Failed to delete invoice")
}

// SendInvoice emails the invoice to its client
func (ac *AuthenticatedClient) SendInvoice(ctx context.Context, id string) error {
	return ac.do(ctx, http.MethodPost, itemPath("invoices", id)+"send/", nil, nil, "Failed to send invoice")
}

// MarkInvoicePaid marks the invoice paid and returns the updated record
func (ac *AuthenticatedClient) MarkInvoicePaid(ctx context.Context, id string) (*Invoice, error) {
	return ac.invoiceAction(ctx, id, "mark_paid", "Failed to mark invoice as paid")
}

// CancelInvoice cancels the invoice and returns the updated record
func (ac *AuthenticatedClient) CancelInvoice(ctx context.Context, id string) (*Invoice, error) {
	return ac.invoiceAction(ctx, id, "cancel", "Failed to cancel invoice")
}

// invoiceAction posts to an invoice action endpoint. The backend answers
// either with the invoice itself or with {"message", "invoice"}.
func (ac *AuthenticatedClient) invoiceAction(ctx context.Context, id, action, fallback string) (*Invoice, error) {
	var resp struct {
		Invoice
		Wrapped *Invoice `json:"invoice"`
	}
	if err := ac.do(ctx, http.MethodPost, itemPath("invoices", id)+action+"/", nil, &resp, fallback); err != nil {
		return nil, err
	}
	if resp.Wrapped != nil {
		return resp.Wrapped, nil
	}
	return &resp.Invoice, nil
}

// DownloadInvoicePDF returns the rendered PDF bytes for an invoice
func (ac *AuthenticatedClient) DownloadInvoicePDF(ctx context.Context, id string) ([]byte, error) {
	resp, err := ac.AuthenticatedRequest(ctx, http.MethodGet, itemPath("invoices", id)+"pdf/", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, readError(resp.StatusCode, resp.Body, "Failed to download invoice")
	}

	data, err := readLimitedResponse(resp.Body, MaxDocumentSize)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, fmt.Errorf("server did not return a PDF document")
	}
	return data, nil
}
