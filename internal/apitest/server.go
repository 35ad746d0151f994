// Package apitest runs an in-memory InvoiceFlow backend for tests. It
// speaks the same JSON contract as the real service, including its error
// shapes, token refresh and pagination envelope.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/mejba13/invoiceflow/internal/api"
)

const defaultAccessTTL = 5 * time.Minute

type userRecord struct {
	user         api.User
	passwordHash string
}

type refreshRecord struct {
	userID  string
	revoked bool
}

type failure struct {
	status int
	body   any
}

// Server is a fake backend bound to a local listener
type Server struct {
	URL string

	srv    *httptest.Server
	tokens *tokenIssuer

	mu       sync.Mutex
	users    map[string]*userRecord
	byEmail  map[string]string
	refresh  map[string]refreshRecord
	clients  *collection[api.Customer]
	invoices *collection[api.Invoice]
	payments *collection[api.Payment]
	expenses *collection[api.Expense]
	seq      int
	calls    map[string]int
	failures map[string][]failure
}

// New starts a fake backend that is shut down when the test ends
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		tokens: &tokenIssuer{
			secretKey: []byte("apitest-" + newID()),
			accessTTL: defaultAccessTTL,
			now:       time.Now,
		},
		users:    make(map[string]*userRecord),
		byEmail:  make(map[string]string),
		refresh:  make(map[string]refreshRecord),
		clients:  newCollection[api.Customer](),
		invoices: newCollection[api.Invoice](),
		payments: newCollection[api.Payment](),
		expenses: newCollection[api.Expense](),
		calls:    make(map[string]int),
		failures: make(map[string][]failure),
	}

	s.srv = httptest.NewServer(s.routes())
	s.URL = s.srv.URL
	t.Cleanup(s.srv.Close)
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.record)

	r.HandleFunc("/auth/register/", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/auth/login/", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/refresh/", s.handleRefresh).Methods(http.MethodPost)

	authed := r.NewRoute().Subrouter()
	authed.Use(s.requireAuth)

	authed.HandleFunc("/auth/logout/", s.handleLogout).Methods(http.MethodPost)
	authed.HandleFunc("/auth/user/", s.handleProfile).Methods(http.MethodGet)
	authed.HandleFunc("/auth/user/", s.handleUpdateProfile).Methods(http.MethodPatch, http.MethodPut)
	authed.HandleFunc("/auth/change-password/", s.handleChangePassword).Methods(http.MethodPost)

	authed.HandleFunc("/clients/", s.handleListClients).Methods(http.MethodGet)
	authed.HandleFunc("/clients/", s.handleCreateClient).Methods(http.MethodPost)
	authed.HandleFunc("/clients/{id}/", s.handleGetClient).Methods(http.MethodGet)
	authed.HandleFunc("/clients/{id}/", s.handleUpdateClient).Methods(http.MethodPut, http.MethodPatch)
	authed.HandleFunc("/clients/{id}/", s.handleDeleteClient).Methods(http.MethodDelete)

	authed.HandleFunc("/invoices/", s.handleListInvoices).Methods(http.MethodGet)
	authed.HandleFunc("/invoices/", s.handleCreateInvoice).Methods(http.MethodPost)
	authed.HandleFunc("/invoices/overdue/", s.handleOverdueInvoices).Methods(http.MethodGet)
	authed.HandleFunc("/invoices/{id}/", s.handleGetInvoice).Methods(http.MethodGet)
	authed.HandleFunc("/invoices/{id}/", s.handleUpdateInvoice).Methods(http.MethodPut, http.MethodPatch)
	authed.HandleFunc("/invoices/{id}/", s.handleDeleteInvoice).Methods(http.MethodDelete)
	authed.HandleFunc("/invoices/{id}/send/", s.handleSendInvoice).Methods(http.MethodPost)
	authed.HandleFunc("/invoices/{id}/mark_paid/", s.handleMarkPaid).Methods(http.MethodPost)
	authed.HandleFunc("/invoices/{id}/cancel/", s.handleCancelInvoice).Methods(http.MethodPost)
	authed.HandleFunc("/invoices/{id}/pdf/", s.handleInvoicePDF).Methods(http.MethodGet)

	authed.HandleFunc("/payments/", s.handleListPayments).Methods(http.MethodGet)
	authed.HandleFunc("/payments/", s.handleCreatePayment).Methods(http.MethodPost)
	authed.HandleFunc("/payments/{id}/", s.handleGetPayment).Methods(http.MethodGet)
	authed.HandleFunc("/payments/{id}/", s.handleDeletePayment).Methods(http.MethodDelete)

	authed.HandleFunc("/expenses/", s.handleListExpenses).Methods(http.MethodGet)
	authed.HandleFunc("/expenses/", s.handleCreateExpense).Methods(http.MethodPost)
	authed.HandleFunc("/expenses/{id}/", s.handleGetExpense).Methods(http.MethodGet)
	authed.HandleFunc("/expenses/{id}/", s.handleDeleteExpense).Methods(http.MethodDelete)

	authed.HandleFunc("/reports/dashboard/", s.handleDashboard).Methods(http.MethodGet)
	authed.HandleFunc("/reports/income/", s.handleIncomeReport).Methods(http.MethodGet)
	authed.HandleFunc("/reports/expenses/", s.handleExpenseReport).Methods(http.MethodGet)
	authed.HandleFunc("/reports/clients/", s.handleClientReport).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, detail("Not found."))
	})
	return r
}

// record counts requests per route and serves queued failures
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				key = r.Method + " " + tpl
			}
		}

		s.mu.Lock()
		s.calls[key]++
		var f *failure
		if queue := s.failures[key]; len(queue) > 0 {
			f = &queue[0]
			s.failures[key] = queue[1:]
		}
		s.mu.Unlock()

		if f != nil {
			writeJSON(w, f.status, f.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type ctxKey struct{}

// requireAuth validates the bearer token and attaches the user id
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			writeJSON(w, http.StatusUnauthorized, detail("Authentication credentials were not provided."))
			return
		}

		userID, err := s.tokens.validate(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"detail": "Given token not valid for any token type",
				"code":   "token_not_valid",
			})
			return
		}

		s.mu.Lock()
		_, ok := s.users[userID]
		s.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, detail("User not found"))
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), userID)))
	})
}

// Calls returns how many requests hit route, written as "METHOD /path/"
// with mux path templates, e.g. "GET /invoices/{id}/".
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// TotalCalls returns the number of requests served
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// FailNext makes the next request to route answer with status and body
func (s *Server) FailNext(route string, status int, body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = append(s.failures[route], failure{status: status, body: body})
}

// SetAccessTTL changes the lifetime of access tokens issued from now on.
// A negative value issues tokens that are already expired.
func (s *Server) SetAccessTTL(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens.accessTTL = d
}

// AddUser registers an account directly and returns it with its id set
func (s *Server) AddUser(u api.User, password string) api.User {
	hash, err := hashPassword(password)
	if err != nil {
		panic(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(u, hash)
}

func (s *Server) addUserLocked(u api.User, hash string) api.User {
	now := timestamp()
	u.ID = newID()
	u.Email = strings.ToLower(u.Email)
	if u.Currency == "" {
		u.Currency = "USD"
	}
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = &userRecord{user: u, passwordHash: hash}
	s.byEmail[u.Email] = u.ID
	return u
}

// IssueTokens returns a fresh token pair for an existing account
func (s *Server) IssueTokens(email string) api.TokenPair {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		panic("apitest: unknown user " + email)
	}
	pair, err := s.issueLocked(id)
	if err != nil {
		panic(err)
	}
	return pair
}

func (s *Server) issueLocked(userID string) (api.TokenPair, error) {
	access, err := s.tokens.accessToken(userID, s.users[userID].user.Email)
	if err != nil {
		return api.TokenPair{}, err
	}
	refresh, err := refreshToken()
	if err != nil {
		return api.TokenPair{}, err
	}
	s.refresh[hashToken(refresh)] = refreshRecord{userID: userID}
	return api.TokenPair{Access: access, Refresh: refresh}, nil
}

// RefreshRevoked reports whether a refresh token was revoked by logout
func (s *Server) RefreshRevoked(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh[hashToken(token)].revoked
}

// User returns the stored profile for email
func (s *Server) User(email string) (api.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return api.User{}, false
	}
	return s.users[id].user, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func detail(msg string) map[string]string {
	return map[string]string{"detail": msg}
}

// fieldErrors builds a DRF-style validation body, keys in insertion order
type fieldErrors struct {
	keys []string
	msgs map[string][]string
}

func (f *fieldErrors) add(field, msg string) {
	if f.msgs == nil {
		f.msgs = make(map[string][]string)
	}
	if _, ok := f.msgs[field]; !ok {
		f.keys = append(f.keys, field)
	}
	f.msgs[field] = append(f.msgs[field], msg)
}

func (f *fieldErrors) any() bool {
	return len(f.keys) > 0
}

func (f *fieldErrors) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range f.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		key, _ := json.Marshal(k)
		val, _ := json.Marshal(f.msgs[k])
		b.Write(key)
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, detail("JSON parse error - "+err.Error()))
		return false
	}
	return true
}

func page[T any](results []T) api.Page[T] {
	if results == nil {
		results = []T{}
	}
	return api.Page[T]{Count: len(results), Results: results}
}

func newID() string {
	return uuid.NewString()
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func positive(d decimal.Decimal) bool {
	return d.GreaterThan(decimal.Zero)
}
