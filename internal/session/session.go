// Package session owns the authenticated-user state of the CLI and the
// credential tokens behind it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mejba13/invoiceflow/internal/api"
	"github.com/mejba13/invoiceflow/internal/keychain"
)

// ErrBusy is returned when a login or registration is started while another
// session call is still in flight
var ErrBusy = errors.New("another session request is in progress")

// Status is the coarse session state
type Status int

const (
	LoggedOut Status = iota
	Loading
	LoggedIn
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case LoggedIn:
		return "logged in"
	default:
		return "logged out"
	}
}

// State is a snapshot of the session. IsAuthenticated implies CurrentUser
// is set.
type State struct {
	CurrentUser     *api.User
	IsAuthenticated bool
	IsLoading       bool
	LastError       string
}

// Status derives the coarse state from the flags
func (s State) Status() Status {
	switch {
	case s.IsLoading:
		return Loading
	case s.IsAuthenticated:
		return LoggedIn
	default:
		return LoggedOut
	}
}

// Backend is the slice of the REST API the session depends on.
// *api.AuthenticatedClient satisfies it.
type Backend interface {
	Login(ctx context.Context, email, password string) (*api.TokenPair, error)
	Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	Profile(ctx context.Context) (*api.User, error)
	UpdateProfile(ctx context.Context, update api.ProfileUpdate) (*api.User, error)
	ChangePassword(ctx context.Context, change api.PasswordChange) error
}

// Manager holds the session state. State changes only through its methods;
// readers take snapshots or subscribe.
type Manager struct {
	backend  Backend
	keychain keychain.Keychain

	mu     sync.Mutex
	state  State
	subs   map[int]func(State)
	nextID int
}

// NewManager creates a manager in the logged-out state
func NewManager(backend Backend, kc keychain.Keychain) *Manager {
	return &Manager{
		backend:  backend,
		keychain: kc,
		subs:     make(map[int]func(State)),
	}
}

// State returns a snapshot of the current session
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return snapshot(m.state)
}

// Subscribe registers fn to receive every state transition. The returned
// func removes the subscription.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// update applies a transition and notifies subscribers outside the lock
func (m *Manager) update(fn func(s *State)) {
	m.transition(func(s *State) bool {
		fn(s)
		return true
	})
}

// transition applies fn under the lock. Subscribers are notified only when
// fn reports a change.
func (m *Manager) transition(fn func(s *State) bool) bool {
	m.mu.Lock()
	if !fn(&m.state) {
		m.mu.Unlock()
		return false
	}
	s := snapshot(m.state)
	subs := make([]func(State), 0, len(m.subs))
	for _, sub := range m.subs {
		subs = append(subs, sub)
	}
	m.mu.Unlock()

	for _, sub := range subs {
		sub(s)
	}
	return true
}

// begin enters Loading unless a call is already in flight
func (m *Manager) begin() bool {
	return m.transition(func(s *State) bool {
		if s.IsLoading {
			return false
		}
		s.IsLoading = true
		s.LastError = ""
		return true
	})
}

func (m *Manager) loggedIn(user *api.User) {
	m.update(func(s *State) {
		s.CurrentUser = user
		s.IsAuthenticated = true
		s.IsLoading = false
	})
}

func (m *Manager) loggedOut(lastError string) {
	m.update(func(s *State) {
		s.CurrentUser = nil
		s.IsAuthenticated = false
		s.IsLoading = false
		s.LastError = lastError
	})
}

func (m *Manager) clearTokens() {
	if err := keychain.ClearTokens(m.keychain); err != nil {
		log.Warn().Err(err).Msg("failed to clear stored tokens")
	}
}

// Login exchanges credentials for tokens, stores them and loads the profile.
// On failure LastError holds the display message and the error is returned.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	if !m.begin() {
		return ErrBusy
	}

	pair, err := m.backend.Login(ctx, email, password)
	if err != nil {
		m.loggedOut(api.Message(err, "Login failed"))
		return err
	}

	if err := keychain.StoreTokens(m.keychain, keychain.Tokens{Access: pair.Access, Refresh: pair.Refresh}); err != nil {
		m.clearTokens()
		m.loggedOut("Login failed")
		return err
	}

	user, err := m.backend.Profile(ctx)
	if err != nil {
		m.clearTokens()
		m.loggedOut(api.Message(err, "Login failed"))
		return err
	}

	log.Debug().Str("user", user.Email).Msg("logged in")
	m.loggedIn(user)
	return nil
}

// Register validates the request, creates the account and stores the
// returned tokens. Invalid requests never reach the backend.
func (m *Manager) Register(ctx context.Context, req api.RegisterRequest) error {
	if err := ValidateRegistration(req); err != nil {
		m.update(func(s *State) { s.LastError = err.Error() })
		return err
	}

	if !m.begin() {
		return ErrBusy
	}

	resp, err := m.backend.Register(ctx, req)
	if err != nil {
		msg := "Registration failed"
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			if first, ok := apiErr.FirstFieldError(); ok {
				msg = first
			}
		}
		m.loggedOut(msg)
		return err
	}

	if err := keychain.StoreTokens(m.keychain, keychain.Tokens{Access: resp.Tokens.Access, Refresh: resp.Tokens.Refresh}); err != nil {
		m.clearTokens()
		m.loggedOut("Registration failed")
		return err
	}

	user := resp.User
	m.loggedIn(&user)
	return nil
}

// Logout tells the backend to revoke the refresh token, then clears local
// state. Backend failures are logged and never returned. LastError is left
// as it was.
func (m *Manager) Logout(ctx context.Context) {
	refresh, err := m.keychain.Get(keychain.KeyRefreshToken)
	if err == nil && refresh != "" {
		if err := m.backend.Logout(ctx, refresh); err != nil {
			log.Warn().Err(err).Msg("logout notification failed")
		}
	}

	m.clearTokens()
	m.update(func(s *State) {
		s.CurrentUser = nil
		s.IsAuthenticated = false
		s.IsLoading = false
	})
}

// LoadUser restores the session from stored tokens. Without an access token
// it settles logged-out with no network call; any profile failure clears
// the tokens. Safe to call repeatedly.
func (m *Manager) LoadUser(ctx context.Context) {
	_ = m.loadUser(ctx)
}

func (m *Manager) loadUser(ctx context.Context) error {
	access, err := m.keychain.Get(keychain.KeyAccessToken)
	if err != nil || access == "" {
		m.update(func(s *State) {
			s.CurrentUser = nil
			s.IsAuthenticated = false
			s.IsLoading = false
		})
		return api.ErrNotAuthenticated
	}

	m.update(func(s *State) { s.IsLoading = true })

	user, err := m.backend.Profile(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("session restore failed")
		m.clearTokens()
		m.update(func(s *State) {
			s.CurrentUser = nil
			s.IsAuthenticated = false
			s.IsLoading = false
		})
		return err
	}

	m.loggedIn(user)
	return nil
}

// RequireUser restores the session and returns the current user, or an
// error explaining why there is none.
func (m *Manager) RequireUser(ctx context.Context) (*api.User, error) {
	if err := m.loadUser(ctx); err != nil {
		if errors.Is(err, api.ErrNotAuthenticated) || errors.Is(err, api.ErrSessionExpired) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", api.ErrSessionExpired, api.Message(err, err.Error()))
	}
	return m.State().CurrentUser, nil
}

// ClearError resets LastError
func (m *Manager) ClearError() {
	m.update(func(s *State) { s.LastError = "" })
}

// UpdateProfile saves profile changes and refreshes CurrentUser
func (m *Manager) UpdateProfile(ctx context.Context, update api.ProfileUpdate) (*api.User, error) {
	user, err := m.backend.UpdateProfile(ctx, update)
	if err != nil {
		m.update(func(s *State) { s.LastError = api.Message(err, "Failed to update profile") })
		return nil, err
	}

	m.update(func(s *State) {
		if s.IsAuthenticated {
			s.CurrentUser = user
		}
		s.LastError = ""
	})
	return user, nil
}

// ChangePassword validates and submits a password change
func (m *Manager) ChangePassword(ctx context.Context, change api.PasswordChange) error {
	if err := ValidatePasswordChange(change); err != nil {
		m.update(func(s *State) { s.LastError = err.Error() })
		return err
	}

	if err := m.backend.ChangePassword(ctx, change); err != nil {
		m.update(func(s *State) { s.LastError = api.Message(err, "Failed to change password") })
		return err
	}

	m.ClearError()
	return nil
}

func snapshot(s State) State {
	if s.CurrentUser != nil {
		u := *s.CurrentUser
		s.CurrentUser = &u
	}
	return s
}
