package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/mejba13/invoiceflow/internal/keychain"
)

// TokenSource serves the stored access token, refreshing it through the
// backend when its exp claim has passed.
type TokenSource struct {
	client   *Client
	keychain keychain.Keychain
	mu       sync.Mutex
}

var _ oauth2.TokenSource = (*TokenSource)(nil)

// NewTokenSource creates a token source backed by kc
func NewTokenSource(client *Client, kc keychain.Keychain) *TokenSource {
	return &TokenSource{client: client, keychain: kc}
}

// Token implements oauth2.TokenSource
func (s *TokenSource) Token() (*oauth2.Token, error) {
	return s.TokenContext(context.Background())
}

// TokenContext returns a valid token, refreshing it first if it has expired
func (s *TokenSource) TokenContext(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.stored()
	if err != nil {
		return nil, err
	}
	if tok.Valid() {
		return tok, nil
	}
	return s.refreshLocked(ctx, tok.RefreshToken)
}

// Refresh exchanges the stored refresh token for a new access token
// regardless of the current token's expiry.
func (s *TokenSource) Refresh(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	refresh, err := s.keychain.Get(keychain.KeyRefreshToken)
	if err != nil {
		return nil, ErrSessionExpired
	}
	return s.refreshLocked(ctx, refresh)
}

func (s *TokenSource) stored() (*oauth2.Token, error) {
	access, err := s.keychain.Get(keychain.KeyAccessToken)
	if err != nil {
		if errors.Is(err, keychain.ErrNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("failed to retrieve access token: %w", err)
	}

	refresh, err := s.keychain.Get(keychain.KeyRefreshToken)
	if err != nil && !errors.Is(err, keychain.ErrNotFound) {
		return nil, fmt.Errorf("failed to retrieve refresh token: %w", err)
	}

	return &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		Expiry:       tokenExpiry(access),
	}, nil
}

func (s *TokenSource) refreshLocked(ctx context.Context, refresh string) (*oauth2.Token, error) {
	if refresh == "" {
		return nil, ErrSessionExpired
	}

	var resp TokenPair
	err := s.client.do(ctx, http.MethodPost, "/auth/refresh/", map[string]string{"refresh": refresh}, &resp, "Token refresh failed")
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%w: %s", ErrSessionExpired, apiErr.Message)
		}
		return nil, err
	}
	if resp.Access == "" {
		return nil, fmt.Errorf("%w: refresh response had no access token", ErrSessionExpired)
	}

	if err := s.keychain.Set(keychain.KeyAccessToken, resp.Access); err != nil {
		return nil, fmt.Errorf("failed to store access token: %w", err)
	}
	// rotated refresh tokens replace the old one
	if resp.Refresh != "" {
		if err := s.keychain.Set(keychain.KeyRefreshToken, resp.Refresh); err != nil {
			return nil, fmt.Errorf("failed to store refresh token: %w", err)
		}
		refresh = resp.Refresh
	}

	return &oauth2.Token{
		AccessToken:  resp.Access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		Expiry:       tokenExpiry(resp.Access),
	}, nil
}

// tokenExpiry reads the exp claim without verifying the signature. Opaque
// tokens and tokens without exp never expire client-side.
func tokenExpiry(access string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
