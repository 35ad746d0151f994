package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mejba13/invoiceflow/internal/keychain"
)

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)

	if got := tokenExpiry(signedToken(t, exp)); !got.Equal(exp) {
		t.Errorf("expected expiry %s, got %s", exp, got)
	}
	if got := tokenExpiry("opaque-token"); !got.IsZero() {
		t.Errorf("expected zero expiry for opaque token, got %s", got)
	}
}

func TestTokenSource_ValidTokenSkipsRefresh(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	kc := keychain.NewMockKeychain()
	access := signedToken(t, time.Now().Add(time.Hour))
	_ = kc.Set(keychain.KeyAccessToken, access)
	_ = kc.Set(keychain.KeyRefreshToken, "refresh")

	src := NewTokenSource(NewClient(server.URL), kc)
	tok, err := src.Token()
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if tok.AccessToken != access {
		t.Error("expected stored access token")
	}
	if calls != 0 {
		t.Errorf("expected no refresh call, got %d", calls)
	}
}

func TestTokenSource_ExpiredTokenRefreshes(t *testing.T) {
	fresh := signedToken(t, time.Now().Add(time.Hour))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/refresh/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access": fresh, "refresh": "rotated"})
	}))
	defer server.Close()

	kc := keychain.NewMockKeychain()
	_ = kc.Set(keychain.KeyAccessToken, signedToken(t, time.Now().Add(-time.Minute)))
	_ = kc.Set(keychain.KeyRefreshToken, "refresh")

	src := NewTokenSource(NewClient(server.URL), kc)
	tok, err := src.TokenContext(context.Background())
	if err != nil {
		t.Fatalf("TokenContext failed: %v", err)
	}
	if tok.AccessToken != fresh {
		t.Error("expected refreshed access token")
	}
	if rt, _ := kc.Get(keychain.KeyRefreshToken); rt != "rotated" {
		t.Errorf("expected rotated refresh token to be stored, got %q", rt)
	}
}

func TestTokenSource_ExpiredWithoutRefresh(t *testing.T) {
	kc := keychain.NewMockKeychain()
	_ = kc.Set(keychain.KeyAccessToken, signedToken(t, time.Now().Add(-time.Minute)))

	src := NewTokenSource(NewClient("http://127.0.0.1:1"), kc)
	if _, err := src.Token(); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("expected ErrSessionExpired, got %v", err)
	}
}

func TestTokenSource_NoToken(t *testing.T) {
	src := NewTokenSource(NewClient("http://127.0.0.1:1"), keychain.NewMockKeychain())
	if _, err := src.Token(); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
}
