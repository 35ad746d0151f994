package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mejba13/invoiceflow/internal/api"
	"github.com/mejba13/invoiceflow/internal/keychain"
)

type fakeBackend struct {
	mu    sync.Mutex
	calls map[string]int

	loginErr    error
	registerErr error
	logoutErr   error
	profileErr  error
	updateErr   error
	passwordErr error

	user *api.User

	// block, when set, holds Login until closed
	block   chan struct{}
	entered chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		calls: make(map[string]int),
		user:  &api.User{ID: "u1", Email: "test@example.com", FirstName: "Ada", LastName: "Lovelace"},
	}
}

func (f *fakeBackend) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeBackend) Login(ctx context.Context, email, password string) (*api.TokenPair, error) {
	f.record("login")
	if f.block != nil {
		close(f.entered)
		<-f.block
	}
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &api.TokenPair{Access: "access-1", Refresh: "refresh-1"}, nil
}

func (f *fakeBackend) Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error) {
	f.record("register")
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &api.AuthResponse{
		User:   api.User{ID: "u2", Email: req.Email, FirstName: req.FirstName, LastName: req.LastName},
		Tokens: api.TokenPair{Access: "access-2", Refresh: "refresh-2"},
	}, nil
}

func (f *fakeBackend) Logout(ctx context.Context, refreshToken string) error {
	f.record("logout")
	return f.logoutErr
}

func (f *fakeBackend) Profile(ctx context.Context) (*api.User, error) {
	f.record("profile")
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	u := *f.user
	return &u, nil
}

func (f *fakeBackend) UpdateProfile(ctx context.Context, update api.ProfileUpdate) (*api.User, error) {
	f.record("update_profile")
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	u := *f.user
	if update.BusinessName != nil {
		u.BusinessName = *update.BusinessName
	}
	return &u, nil
}

func (f *fakeBackend) ChangePassword(ctx context.Context, change api.PasswordChange) error {
	f.record("change_password")
	return f.passwordErr
}

func validRegistration() api.RegisterRequest {
	return api.RegisterRequest{
		Email:           "new@example.com",
		Password:        "longpassword",
		PasswordConfirm: "longpassword",
		FirstName:       "Grace",
		LastName:        "Hopper",
	}
}

func TestNewManager_StartsLoggedOut(t *testing.T) {
	m := NewManager(newFakeBackend(), keychain.NewMockKeychain())

	s := m.State()
	assert.Equal(t, LoggedOut, s.Status())
	assert.Nil(t, s.CurrentUser)
	assert.Empty(t, s.LastError)
}

func TestLoadUser_NoTokenSkipsNetwork(t *testing.T) {
	backend := newFakeBackend()
	m := NewManager(backend, keychain.NewMockKeychain())

	m.LoadUser(context.Background())

	s := m.State()
	assert.False(t, s.IsAuthenticated)
	assert.False(t, s.IsLoading)
	assert.Equal(t, 0, backend.total())
}

func TestLoadUser_RestoresSession(t *testing.T) {
	backend := newFakeBackend()
	kc := keychain.NewMockKeychain()
	require.NoError(t, keychain.StoreTokens(kc, keychain.Tokens{Access: "a", Refresh: "r"}))
	m := NewManager(backend, kc)

	m.LoadUser(context.Background())
	m.LoadUser(context.Background())

	s := m.State()
	assert.Equal(t, LoggedIn, s.Status())
	require.NotNil(t, s.CurrentUser)
	assert.Equal(t, "test@example.com", s.CurrentUser.Email)
	assert.Equal(t, 2, backend.count("profile"))
}

func TestLoadUser_FailureClearsTokens(t *testing.T) {
	backend := newFakeBackend()
	backend.profileErr = api.ErrSessionExpired
	kc := keychain.NewMockKeychain()
	require.NoError(t, keychain.StoreTokens(kc, keychain.Tokens{Access: "a", Refresh: "r"}))
	m := NewManager(backend, kc)

	m.LoadUser(context.Background())

	s := m.State()
	assert.Equal(t, LoggedOut, s.Status())
	assert.Empty(t, s.LastError)
	_, err := kc.Get(keychain.KeyAccessToken)
	assert.ErrorIs(t, err, keychain.ErrNotFound)
	_, err = kc.Get(keychain.KeyRefreshToken)
	assert.ErrorIs(t, err, keychain.ErrNotFound)
}

func TestLogin_Success(t *testing.T) {
	backend := newFakeBackend()
	kc := keychain.NewMockKeychain()
	m := NewManager(backend, kc)

	require.NoError(t, m.Login(context.Background(), "test@example.com", "password123"))

	s := m.State()
	assert.True(t, s.IsAuthenticated)
	assert.False(t, s.IsLoading)
	require.NotNil(t, s.CurrentUser)
	assert.Equal(t, "u1", s.CurrentUser.ID)

	assert.Equal(t, 2, kc.Writes())
	access, _ := kc.Get(keychain.KeyAccessToken)
	refresh, _ := kc.Get(keychain.KeyRefreshToken)
	assert.Equal(t, "access-1", access)
	assert.Equal(t, "refresh-1", refresh)
}

func TestLogin_AuthFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.loginErr = &api.Error{
		Status:  http.StatusUnauthorized,
		Message: "No active account found with the given credentials",
	}
	kc := keychain.NewMockKeychain()
	m := NewManager(backend, kc)

	err := m.Login(context.Background(), "test@example.com", "wrong")
	require.Error(t, err)

	var apiErr *api.Error
	assert.True(t, errors.As(err, &apiErr))

	s := m.State()
	assert.False(t, s.IsAuthenticated)
	assert.False(t, s.IsLoading)
	assert.Equal(t, "No active account found with the given credentials", s.LastError)
	assert.Equal(t, 0, kc.Writes())
	assert.Equal(t, 0, backend.count("profile"))
}

func TestLogin_NetworkFailureUsesFallback(t *testing.T) {
	backend := newFakeBackend()
	backend.loginErr = errors.New("dial tcp: connection refused")
	m := NewManager(backend, keychain.NewMockKeychain())

	require.Error(t, m.Login(context.Background(), "test@example.com", "pw"))
	assert.Equal(t, "Login failed", m.State().LastError)
}

func TestLogin_ProfileFailureClearsTokens(t *testing.T) {
	backend := newFakeBackend()
	backend.profileErr = &api.Error{Status: http.StatusInternalServerError, Message: "Failed to load profile"}
	kc := keychain.NewMockKeychain()
	m := NewManager(backend, kc)

	require.Error(t, m.Login(context.Background(), "test@example.com", "password123"))

	s := m.State()
	assert.False(t, s.IsAuthenticated)
	assert.Nil(t, s.CurrentUser)
	assert.Equal(t, "Failed to load profile", s.LastError)
	_, err := kc.Get(keychain.KeyAccessToken)
	assert.ErrorIs(t, err, keychain.ErrNotFound)
}

func TestLogin_WhileLoadingIsBusy(t *testing.T) {
	backend := newFakeBackend()
	backend.block = make(chan struct{})
	backend.entered = make(chan struct{})
	m := NewManager(backend, keychain.NewMockKeychain())

	done := make(chan error, 1)
	go func() {
		done <- m.Login(context.Background(), "test@example.com", "password123")
	}()
	<-backend.entered

	assert.Equal(t, Loading, m.State().Status())
	assert.ErrorIs(t, m.Login(context.Background(), "other@example.com", "password123"), ErrBusy)
	assert.ErrorIs(t, m.Register(context.Background(), validRegistration()), ErrBusy)

	close(backend.block)
	require.NoError(t, <-done)

	assert.Equal(t, 1, backend.count("login"))
	assert.Equal(t, 0, backend.count("register"))
	assert.Equal(t, LoggedIn, m.State().Status())
}

func TestRegister_Success(t *testing.T) {
	backend := newFakeBackend()
	kc := keychain.NewMockKeychain()
	m := NewManager(backend, kc)

	require.NoError(t, m.Register(context.Background(), validRegistration()))

	s := m.State()
	assert.True(t, s.IsAuthenticated)
	require.NotNil(t, s.CurrentUser)
	assert.Equal(t, "new@example.com", s.CurrentUser.Email)
	assert.Equal(t, 0, backend.count("profile"))

	access, _ := kc.Get(keychain.KeyAccessToken)
	assert.Equal(t, "access-2", access)
}

func TestRegister_ValidationNeverReachesBackend(t *testing.T) {
	backend := newFakeBackend()
	m := NewManager(backend, keychain.NewMockKeychain())

	req := validRegistration()
	req.PasswordConfirm = "different"

	err := m.Register(context.Background(), req)
	var verr *api.Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Passwords do not match", verr.Field("password_confirm"))
	assert.Equal(t, "Passwords do not match", m.State().LastError)
	assert.Equal(t, 0, backend.total())
}

func TestRegister_FieldErrorSurfaces(t *testing.T) {
	backend := newFakeBackend()
	backend.registerErr = api.NewFieldError("email", "user with this email already exists.")
	m := NewManager(backend, keychain.NewMockKeychain())

	require.Error(t, m.Register(context.Background(), validRegistration()))
	assert.Equal(t, "user with this email already exists.", m.State().LastError)
	assert.False(t, m.State().IsAuthenticated)
}

func TestRegister_GenericFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.registerErr = &api.Error{Status: http.StatusInternalServerError, Message: "Server Error"}
	m := NewManager(backend, keychain.NewMockKeychain())

	require.Error(t, m.Register(context.Background(), validRegistration()))
	assert.Equal(t, "Registration failed", m.State().LastError)
}

func TestLogout_AlwaysClearsLocalState(t *testing.T) {
	backend := newFakeBackend()
	backend.logoutErr = errors.New("connection reset")
	kc := keychain.NewMockKeychain()
	m := NewManager(backend, kc)

	require.NoError(t, m.Login(context.Background(), "test@example.com", "password123"))
	m.Logout(context.Background())

	s := m.State()
	assert.Equal(t, LoggedOut, s.Status())
	assert.Nil(t, s.CurrentUser)
	assert.Empty(t, s.LastError)
	assert.Equal(t, 1, backend.count("logout"))

	_, err := kc.Get(keychain.KeyAccessToken)
	assert.ErrorIs(t, err, keychain.ErrNotFound)
	_, err = kc.Get(keychain.KeyRefreshToken)
	assert.ErrorIs(t, err, keychain.ErrNotFound)
}

func TestLogout_KeepsLastError(t *testing.T) {
	backend := newFakeBackend()
	backend.loginErr = errors.New("boom")
	m := NewManager(backend, keychain.NewMockKeychain())

	_ = m.Login(context.Background(), "a@example.com", "pw")
	lastError := m.State().LastError
	require.NotEmpty(t, lastError)

	m.Logout(context.Background())
	assert.Equal(t, LoggedOut, m.State().Status())
	assert.Equal(t, lastError, m.State().LastError)
}

func TestLogout_WithoutTokensSkipsBackend(t *testing.T) {
	backend := newFakeBackend()
	m := NewManager(backend, keychain.NewMockKeychain())

	m.Logout(context.Background())
	assert.Equal(t, 0, backend.count("logout"))
	assert.Equal(t, LoggedOut, m.State().Status())
}

func TestClearError(t *testing.T) {
	backend := newFakeBackend()
	backend.loginErr = errors.New("boom")
	m := NewManager(backend, keychain.NewMockKeychain())

	_ = m.Login(context.Background(), "a@example.com", "pw")
	require.NotEmpty(t, m.State().LastError)

	m.ClearError()
	assert.Empty(t, m.State().LastError)
}

func TestSubscribe(t *testing.T) {
	m := NewManager(newFakeBackend(), keychain.NewMockKeychain())

	var seen []Status
	unsubscribe := m.Subscribe(func(s State) {
		seen = append(seen, s.Status())
	})

	require.NoError(t, m.Login(context.Background(), "test@example.com", "password123"))
	assert.Equal(t, []Status{Loading, LoggedIn}, seen)

	unsubscribe()
	m.Logout(context.Background())
	assert.Len(t, seen, 2)
}

func TestState_IsSnapshot(t *testing.T) {
	m := NewManager(newFakeBackend(), keychain.NewMockKeychain())
	require.NoError(t, m.Login(context.Background(), "test@example.com", "password123"))

	s := m.State()
	s.CurrentUser.Email = "changed@example.com"
	assert.Equal(t, "test@example.com", m.State().CurrentUser.Email)
}

func TestRequireUser(t *testing.T) {
	backend := newFakeBackend()
	kc := keychain.NewMockKeychain()
	m := NewManager(backend, kc)

	_, err := m.RequireUser(context.Background())
	assert.ErrorIs(t, err, api.ErrNotAuthenticated)

	require.NoError(t, keychain.StoreTokens(kc, keychain.Tokens{Access: "a", Refresh: "r"}))
	user, err := m.RequireUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	backend.profileErr = errors.New("connection refused")
	_, err = m.RequireUser(context.Background())
	assert.ErrorIs(t, err, api.ErrSessionExpired)
	assert.Equal(t, LoggedOut, m.State().Status())
}

func TestUpdateProfile(t *testing.T) {
	backend := newFakeBackend()
	m := NewManager(backend, keychain.NewMockKeychain())
	require.NoError(t, m.Login(context.Background(), "test@example.com", "password123"))

	name := "Analytical Engines Ltd"
	user, err := m.UpdateProfile(context.Background(), api.ProfileUpdate{BusinessName: &name})
	require.NoError(t, err)
	assert.Equal(t, name, user.BusinessName)
	assert.Equal(t, name, m.State().CurrentUser.BusinessName)

	backend.updateErr = api.NewFieldError("phone", "Enter a valid phone number.")
	_, err = m.UpdateProfile(context.Background(), api.ProfileUpdate{})
	require.Error(t, err)
	assert.Equal(t, "Enter a valid phone number.", m.State().LastError)
}

func TestChangePassword(t *testing.T) {
	backend := newFakeBackend()
	m := NewManager(backend, keychain.NewMockKeychain())

	err := m.ChangePassword(context.Background(), api.PasswordChange{OldPassword: "old", NewPassword: "short", NewPasswordConfirm: "short"})
	require.Error(t, err)
	assert.Equal(t, 0, backend.count("change_password"))

	err = m.ChangePassword(context.Background(), api.PasswordChange{OldPassword: "old", NewPassword: "newpassword", NewPasswordConfirm: "newpassword"})
	require.NoError(t, err)
	assert.Equal(t, 1, backend.count("change_password"))

	backend.passwordErr = api.NewFieldError("old_password", "Old password is not correct")
	err = m.ChangePassword(context.Background(), api.PasswordChange{OldPassword: "bad", NewPassword: "newpassword", NewPasswordConfirm: "newpassword"})
	require.Error(t, err)
	assert.Equal(t, "Old password is not correct", m.State().LastError)
}
