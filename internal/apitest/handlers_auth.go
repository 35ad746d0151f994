package apitest

import (
	"context"
	"net/http"
	"strings"

	"github.com/mejba13/invoiceflow/internal/api"
)

func withUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

func currentUser(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var errs fieldErrors
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		errs.add("email", "This field is required.")
	}
	if req.FirstName == "" {
		errs.add("first_name", "This field is required.")
	}
	if req.LastName == "" {
		errs.add("last_name", "This field is required.")
	}
	if len(req.Password) < 8 {
		errs.add("password", "This password is too short. It must contain at least 8 characters.")
	} else if req.Password != req.PasswordConfirm {
		errs.add("password", "Password fields didn't match.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[email]; taken {
		errs.add("email", "user with this email already exists.")
	}
	if errs.any() {
		writeJSON(w, http.StatusBadRequest, &errs)
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, detail("Failed to hash password"))
		return
	}
	u := s.addUserLocked(api.User{
		Email:        email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		BusinessName: req.BusinessName,
		Phone:        req.Phone,
	}, hash)

	pair, err := s.issueLocked(u.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, detail("Failed to generate tokens"))
		return
	}

	writeJSON(w, http.StatusCreated, api.AuthResponse{
		User:    u,
		Tokens:  pair,
		Message: "User registered successfully",
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	invalid := detail("No active account found with the given credentials")

	id, ok := s.byEmail[strings.ToLower(req.Email)]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, invalid)
		return
	}
	if err := verifyPassword(s.users[id].passwordHash, req.Password); err != nil {
		writeJSON(w, http.StatusUnauthorized, invalid)
		return
	}

	pair, err := s.issueLocked(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, detail("Failed to generate tokens"))
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.refresh[hashToken(req.Refresh)]
	if !ok || rec.revoked {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"detail": "Token is invalid or expired",
			"code":   "token_not_valid",
		})
		return
	}

	access, err := s.tokens.accessToken(rec.userID, s.users[rec.userID].user.Email)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, detail("Failed to generate access token"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": access})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Refresh token is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := hashToken(req.RefreshToken)
	rec, ok := s.refresh[key]
	if !ok || rec.userID != currentUser(r) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid token"})
		return
	}
	rec.revoked = true
	s.refresh[key] = rec

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.users[currentUser(r)].user)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var update api.ProfileUpdate
	if !decodeBody(w, r, &update) {
		return
	}

	if update.TaxRate != nil && (update.TaxRate.IsNegative() || update.TaxRate.GreaterThan(hundred)) {
		var errs fieldErrors
		errs.add("tax_rate", "Ensure this value is between 0 and 100.")
		writeJSON(w, http.StatusBadRequest, &errs)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.users[currentUser(r)]
	u := &rec.user
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&u.FirstName, update.FirstName)
	set(&u.LastName, update.LastName)
	set(&u.BusinessName, update.BusinessName)
	set(&u.BusinessAddress, update.BusinessAddress)
	set(&u.Phone, update.Phone)
	set(&u.Currency, update.Currency)
	if update.TaxRate != nil {
		u.TaxRate = *update.TaxRate
	}
	u.UpdatedAt = timestamp()

	writeJSON(w, http.StatusOK, map[string]any{
		"user":    *u,
		"message": "Profile updated successfully",
	})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req api.PasswordChange
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.users[currentUser(r)]

	var errs fieldErrors
	if err := verifyPassword(rec.passwordHash, req.OldPassword); err != nil {
		errs.add("old_password", "Old password is not correct")
	}
	if req.NewPassword != req.NewPasswordConfirm {
		errs.add("new_password", "Password fields didn't match.")
	}
	if errs.any() {
		writeJSON(w, http.StatusBadRequest, &errs)
		return
	}

	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, detail("Failed to hash password"))
		return
	}
	rec.passwordHash = hash

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated successfully"})
}
