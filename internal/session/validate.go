package session

import (
	"net/mail"
	"strings"

	"github.com/mejba13/invoiceflow/internal/api"
)

// MinPasswordLength is the shortest password accepted at registration
const MinPasswordLength = 8

// ValidateRegistration checks a registration request before it is sent.
// Failures come back as an *api.Error keyed by request field.
func ValidateRegistration(req api.RegisterRequest) error {
	verr := &api.Error{}

	if !validEmail(req.Email) {
		verr.Add("email", "Enter a valid email address")
	}
	if strings.TrimSpace(req.FirstName) == "" {
		verr.Add("first_name", "First name is required")
	}
	if strings.TrimSpace(req.LastName) == "" {
		verr.Add("last_name", "Last name is required")
	}
	checkNewPassword(verr, "password", "password_confirm", req.Password, req.PasswordConfirm)

	if verr.HasErrors() {
		return verr
	}
	return nil
}

// ValidatePasswordChange checks a password change before it is sent
func ValidatePasswordChange(change api.PasswordChange) error {
	verr := &api.Error{}

	if change.OldPassword == "" {
		verr.Add("old_password", "Current password is required")
	}
	checkNewPassword(verr, "new_password", "new_password_confirm", change.NewPassword, change.NewPasswordConfirm)

	if verr.HasErrors() {
		return verr
	}
	return nil
}

func checkNewPassword(verr *api.Error, field, confirmField, password, confirm string) {
	if len(password) < MinPasswordLength {
		verr.Add(field, "Password must be at least 8 characters")
	}
	if confirm != password {
		verr.Add(confirmField, "Passwords do not match")
	}
}

// validEmail accepts a bare address only, no display name
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Address == s && strings.Contains(addr.Address[strings.LastIndex(addr.Address, "@")+1:], ".")
}
