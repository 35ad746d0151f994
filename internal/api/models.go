package api

import (
	"github.com/shopspring/decimal"
)

// User is the authenticated account profile
type User struct {
	ID              string          `json:"id"`
	Email           string          `json:"email"`
	FirstName       string          `json:"first_name"`
	LastName        string          `json:"last_name"`
	BusinessName    string          `json:"business_name"`
	BusinessLogo    *string         `json:"business_logo,omitempty"`
	BusinessAddress string          `json:"business_address"`
	Phone           string          `json:"phone"`
	Currency        string          `json:"currency"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
	EmailVerified   bool            `json:"email_verified"`
	CreatedAt       string          `json:"created_at"`
	UpdatedAt       string          `json:"updated_at"`
}

// FullName joins first and last name
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenPair is returned by login and embedded in the register response
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// RegisterRequest is the new-account payload
type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	BusinessName    string `json:"business_name,omitempty"`
	Phone           string `json:"phone,omitempty"`
}

// AuthResponse is returned by register
type AuthResponse struct {
	User    User      `json:"user"`
	Tokens  TokenPair `json:"tokens"`
	Message string    `json:"message"`
}

// ProfileUpdate holds the editable profile fields; nil fields are not sent
type ProfileUpdate struct {
	FirstName       *string          `json:"first_name,omitempty"`
	LastName        *string          `json:"last_name,omitempty"`
	BusinessName    *string          `json:"business_name,omitempty"`
	BusinessAddress *string          `json:"business_address,omitempty"`
	Phone           *string          `json:"phone,omitempty"`
	Currency        *string          `json:"currency,omitempty"`
	TaxRate         *decimal.Decimal `json:"tax_rate,omitempty"`
}

// PasswordChange is the change-password payload
type PasswordChange struct {
	OldPassword        string `json:"old_password"`
	NewPassword        string `json:"new_password"`
	NewPasswordConfirm string `json:"new_password_confirm"`
}

// Page is the paginated list envelope. Only Results is consumed.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// Customer is a client record: someone the user bills
type Customer struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Email            string          `json:"email"`
	CompanyName      string          `json:"company_name"`
	Address          string          `json:"address"`
	Phone            string          `json:"phone"`
	Notes            string          `json:"notes"`
	TotalInvoiced    decimal.Decimal `json:"total_invoiced"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	CreatedAt        string          `json:"created_at"`
	UpdatedAt        string          `json:"updated_at"`
}

// ClientInput is the create/update payload for clients
type ClientInput struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	CompanyName string `json:"company_name,omitempty"`
	Address     string `json:"address,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// Invoice statuses as reported by the backend
const (
	StatusDraft     = "DRAFT"
	StatusSent      = "SENT"
	StatusPaid      = "PAID"
	StatusOverdue   = "OVERDUE"
	StatusCancelled = "CANCELLED"
)

// InvoiceItem is one line of an invoice as stored by the backend
type InvoiceItem struct {
	ID          string          `json:"id,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
	Order       int             `json:"order"`
}

// Invoice is an invoice record
type Invoice struct {
	ID            string          `json:"id"`
	Client        string          `json:"client"`
	ClientDetails *Customer       `json:"client_details,omitempty"`
	InvoiceNumber string          `json:"invoice_number"`
	IssueDate     string          `json:"issue_date"`
	DueDate       string          `json:"due_date"`
	Status        string          `json:"status"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Notes         string          `json:"notes"`
	Terms         string          `json:"terms"`
	SentAt        *string         `json:"sent_at"`
	PaidAt        *string         `json:"paid_at"`
	Items         []InvoiceItem   `json:"items"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	AmountDue     decimal.Decimal `json:"amount_due"`
	IsOverdue     bool            `json:"is_overdue"`
	CreatedAt     string          `json:"created_at"`
	UpdatedAt     string          `json:"updated_at"`
}

// InvoiceItemInput is one line of an invoice create/update payload
type InvoiceItemInput struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Order       int             `json:"order"`
}

// InvoiceInput is the create/update payload for invoices
type InvoiceInput struct {
	Client    string             `json:"client"`
	IssueDate string             `json:"issue_date"`
	DueDate   string             `json:"due_date"`
	Status    string             `json:"status,omitempty"`
	Notes     string             `json:"notes,omitempty"`
	Terms     string             `json:"terms,omitempty"`
	Items     []InvoiceItemInput `json:"items"`
}

// Payment methods accepted by the backend
var PaymentMethods = []string{
	"BANK_TRANSFER", "CREDIT_CARD", "DEBIT_CARD", "PAYPAL", "CASH", "CHECK", "OTHER",
}

// Payment is a payment record
type Payment struct {
	ID            string          `json:"id"`
	Invoice       string          `json:"invoice"`
	InvoiceNumber string          `json:"invoice_number"`
	ClientName    string          `json:"client_name"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   string          `json:"payment_date"`
	PaymentMethod string          `json:"payment_method"`
	TransactionID string          `json:"transaction_id"`
	Notes         string          `json:"notes"`
	CreatedAt     string          `json:"created_at"`
	UpdatedAt     string          `json:"updated_at"`
}

// PaymentInput is the create/update payload for payments
type PaymentInput struct {
	Invoice       string          `json:"invoice"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   string          `json:"payment_date"`
	PaymentMethod string          `json:"payment_method"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Notes         string          `json:"notes,omitempty"`
}

// Expense categories accepted by the backend
var ExpenseCategories = []string{
	"OFFICE_SUPPLIES", "TRAVEL", "MEALS", "SOFTWARE", "EQUIPMENT", "MARKETING",
	"PROFESSIONAL_SERVICES", "UTILITIES", "RENT", "INSURANCE", "TAXES", "OTHER",
}

// Expense is an expense record
type Expense struct {
	ID            string          `json:"id"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	ExpenseDate   string          `json:"expense_date"`
	Receipt       *string         `json:"receipt"`
	Notes         string          `json:"notes"`
	Vendor        string          `json:"vendor"`
	TaxDeductible bool            `json:"tax_deductible"`
	CreatedAt     string          `json:"created_at"`
	UpdatedAt     string          `json:"updated_at"`
}

// ExpenseInput is the create/update payload for expenses
type ExpenseInput struct {
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	ExpenseDate   string          `json:"expense_date"`
	Notes         string          `json:"notes,omitempty"`
	Vendor        string          `json:"vendor,omitempty"`
	TaxDeductible bool            `json:"tax_deductible"`
}

// DashboardOverview holds the headline dashboard figures
type DashboardOverview struct {
	TotalOutstanding  decimal.Decimal `json:"total_outstanding"`
	PaidThisMonth     decimal.Decimal `json:"paid_this_month"`
	PendingInvoices   int             `json:"pending_invoices"`
	OverdueInvoices   int             `json:"overdue_invoices"`
	OverdueAmount     decimal.Decimal `json:"overdue_amount"`
	ExpensesThisMonth decimal.Decimal `json:"expenses_this_month"`
}

// RecentInvoice is a dashboard invoice summary
type RecentInvoice struct {
	ID            string          `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	ClientName    string          `json:"client__name"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Status        string          `json:"status"`
	DueDate       string          `json:"due_date"`
}

// MonthlyRevenue is one month of paid revenue
type MonthlyRevenue struct {
	Month   string          `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
}

// TopClient is a client ranked by invoiced total
type TopClient struct {
	Name          string          `json:"name"`
	CompanyName   string          `json:"company_name"`
	TotalInvoiced decimal.Decimal `json:"total_invoiced"`
}

// Dashboard is the dashboard report
type Dashboard struct {
	Overview       DashboardOverview `json:"overview"`
	RecentInvoices []RecentInvoice   `json:"recent_invoices"`
	MonthlyRevenue []MonthlyRevenue  `json:"monthly_revenue"`
	TopClients     []TopClient       `json:"top_clients"`
}

// IncomeInvoice is one paid invoice in the income report
type IncomeInvoice struct {
	InvoiceNumber string          `json:"invoice_number"`
	ClientName    string          `json:"client__name"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaidAt        string          `json:"paid_at"`
}

// IncomeReport lists paid invoices in a period
type IncomeReport struct {
	TotalIncome  decimal.Decimal `json:"total_income"`
	InvoiceCount int             `json:"invoice_count"`
	Invoices     []IncomeInvoice `json:"invoices"`
}

// CategoryTotal is the expense total for one category
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// ExpenseReport summarizes expenses by category
type ExpenseReport struct {
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	TaxDeductible decimal.Decimal `json:"tax_deductible"`
	ByCategory    []CategoryTotal `json:"by_category"`
}

// ClientSummary is one row of the client report
type ClientSummary struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	CompanyName   string          `json:"company_name"`
	Email         string          `json:"email"`
	TotalInvoiced decimal.Decimal `json:"total_invoiced"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	InvoiceCount  int             `json:"invoice_count"`
}

// ClientReport ranks clients by invoiced and paid totals
type ClientReport struct {
	Clients []ClientSummary `json:"clients"`
}

// ReportPeriod narrows income and expense reports
type ReportPeriod struct {
	StartDate string
	EndDate   string
}
