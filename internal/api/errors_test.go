package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestParseError(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantMessage string
		wantFields  []string
	}{
		{
			name:        "detail only",
			body:        `{"detail": "No active account found with the given credentials"}`,
			wantMessage: "No active account found with the given credentials",
		},
		{
			name:        "field error preferred over detail",
			body:        `{"detail": "Bad request", "email": ["user with this email already exists."]}`,
			wantMessage: "user with this email already exists.",
			wantFields:  []string{"email"},
		},
		{
			name:        "first field in response order",
			body:        `{"password": ["Password fields didn't match."], "email": ["Enter a valid email address."]}`,
			wantMessage: "Password fields didn't match.",
			wantFields:  []string{"password", "email"},
		},
		{
			name:        "nested item errors",
			body:        `{"items": [{"description": ["This field may not be blank."]}]}`,
			wantMessage: "description: This field may not be blank.",
			wantFields:  []string{"items"},
		},
		{
			name:        "error key",
			body:        `{"error": "Invalid refresh token"}`,
			wantMessage: "Invalid refresh token",
		},
		{
			name:        "token metadata ignored",
			body:        `{"detail": "Given token not valid for any token type", "code": "token_not_valid", "messages": [{"message": "Token is expired"}]}`,
			wantMessage: "Given token not valid for any token type",
		},
		{
			name:        "non-json body uses fallback",
			body:        `<html>Internal Server Error</html>`,
			wantMessage: "fallback",
		},
		{
			name:        "empty body uses fallback",
			body:        ``,
			wantMessage: "fallback",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := parseError(http.StatusBadRequest, []byte(tt.body), "fallback")

			if e.Message != tt.wantMessage {
				t.Errorf("expected message %q, got %q", tt.wantMessage, e.Message)
			}
			if e.Status != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", e.Status)
			}
			if len(e.Fields()) != len(tt.wantFields) {
				t.Fatalf("expected fields %v, got %v", tt.wantFields, e.Fields())
			}
			for i, f := range tt.wantFields {
				if e.Fields()[i] != f {
					t.Errorf("expected field %d to be %s, got %s", i, f, e.Fields()[i])
				}
			}
		})
	}
}

func TestMessage(t *testing.T) {
	apiErr := &Error{Status: 401, Message: "bad credentials"}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"api error", apiErr, "bad credentials"},
		{"wrapped api error", fmt.Errorf("login: %w", apiErr), "bad credentials"},
		{"network error", errors.New("dial tcp: connection refused"), "Login failed"},
		{"session expired", ErrSessionExpired, ErrSessionExpired.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Message(tt.err, "Login failed"); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestNewFieldError(t *testing.T) {
	e := NewFieldError("password", "too short")
	e.Add("email", "invalid")

	if e.Message != "too short" {
		t.Errorf("expected first message to win, got %q", e.Message)
	}
	if e.Field("email") != "invalid" {
		t.Errorf("expected email message, got %q", e.Field("email"))
	}
	if !e.HasErrors() {
		t.Error("expected HasErrors to be true")
	}
}
