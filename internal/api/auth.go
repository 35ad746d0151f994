package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mejba13/invoiceflow/internal/keychain"
)

// AuthenticatedClient wraps Client with bearer authentication
type AuthenticatedClient struct {
	client *Client
	tokens *TokenSource
}

// NewAuthenticatedClient creates a new authenticated API client
func NewAuthenticatedClient(baseURL string, kc keychain.Keychain, opts ...Option) *AuthenticatedClient {
	client := NewClient(baseURL, opts...)
	return &AuthenticatedClient{
		client: client,
		tokens: NewTokenSource(client, kc),
	}
}

// Tokens returns the token source used for authenticated requests
func (ac *AuthenticatedClient) Tokens() *TokenSource {
	return ac.tokens
}

// AuthenticatedRequest executes a request with the stored access token. A 401
// triggers one forced refresh and a retry; when the refresh fails the result
// is ErrSessionExpired.
func (ac *AuthenticatedClient) AuthenticatedRequest(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	tok, err := ac.tokens.TokenContext(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := ac.client.send(ctx, method, path, payload, tok)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		_ = resp.Body.Close()

		tok, err = ac.tokens.Refresh(ctx)
		if err != nil {
			return nil, err
		}

		resp, err = ac.client.send(ctx, method, path, payload, tok)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			_ = resp.Body.Close()
			return nil, ErrSessionExpired
		}
	}

	return resp, nil
}

func (ac *AuthenticatedClient) do(ctx context.Context, method, path string, payload, out any, fallback string) error {
	resp, err := ac.AuthenticatedRequest(ctx, method, path, payload)
	if err != nil {
		return err
	}
	return decodeResponse(resp, out, fallback)
}

// Login exchanges credentials for a token pair. Storing the pair is the
// caller's job.
func (ac *AuthenticatedClient) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	var pair TokenPair
	req := LoginRequest{Email: email, Password: password}
	if err := ac.client.do(ctx, http.MethodPost, "/auth/login/", req, &pair, "Login failed"); err != nil {
		return nil, err
	}
	if pair.Access == "" || pair.Refresh == "" {
		return nil, fmt.Errorf("login response missing tokens")
	}
	return &pair, nil
}

// Register creates an account and returns the user with its token pair
func (ac *AuthenticatedClient) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := ac.client.do(ctx, http.MethodPost, "/auth/register/", req, &resp, "Registration failed"); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout blacklists the refresh token on the backend
func (ac *AuthenticatedClient) Logout(ctx context.Context, refreshToken string) error {
	payload := map[string]string{"refresh_token": refreshToken}
	return ac.do(ctx, http.MethodPost, "/auth/logout/", payload, nil, "Logout failed")
}

// Profile fetches the current user's profile
func (ac *AuthenticatedClient) Profile(ctx context.Context) (*User, error) {
	var user User
	if err := ac.do(ctx, http.MethodGet, "/auth/user/", nil, &user, "Failed to load profile"); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile patches the current user's profile
func (ac *AuthenticatedClient) UpdateProfile(ctx context.Context, update ProfileUpdate) (*User, error) {
	var resp struct {
		User    User   `json:"user"`
		Message string `json:"message"`
	}
	if err := ac.do(ctx, http.MethodPatch, "/auth/user/", update, &resp, "Failed to update profile"); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// ChangePassword changes the current user's password
func (ac *AuthenticatedClient) ChangePassword(ctx context.Context, change PasswordChange) error {
	return ac.do(ctx, http.MethodPost, "/auth/change-password/", change, nil, "Failed to change password")
}
