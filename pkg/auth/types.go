package auth

import (
	"strings"
	"time"

	"github.com/platinummonkey/novo-auth/pkg/session"
)

// Credentials are what a user signs in with.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Normalize trims and lowercases the email. The password is left as typed.
func (c Credentials) Normalize() (Credentials, error) {
	email := strings.ToLower(strings.TrimSpace(c.Email))
	if email == "" || c.Password == "" {
		return Credentials{}, ErrMissingCredentials
	}
	return Credentials{Email: email, Password: c.Password}, nil
}

// SignupInput registers a new account.
type SignupInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName,omitempty"`
}

// VerifyEmailInput confirms an email address.
type VerifyEmailInput struct {
	Token string `json:"token"`
}

// MFAVerifyInput confirms an MFA code.
type MFAVerifyInput struct {
	Code   string `json:"code"`
	Method string `json:"method,omitempty"`
}

// MFAChallenge is returned with a login that still needs a second factor.
type MFAChallenge struct {
	Required bool     `json:"required"`
	Methods  []string `json:"methods,omitempty"`
}

// LoginResult is a completed login.
type LoginResult struct {
	Session session.Session
	// SessionID is the opaque ID to hand to the browser.
	SessionID string
}

// SignupResult is the backend's answer to a signup.
type SignupResult struct {
	RequiresVerification bool `json:"requiresVerification"`
	User                 struct {
		ID     string `json:"id"`
		Email  string `json:"email"`
		Status string `json:"status"`
	} `json:"user"`
}

// VerifyEmailResult is the backend's answer to an email verification.
type VerifyEmailResult struct {
	Status string `json:"status"`
	User   struct {
		ID       string `json:"id"`
		Verified bool   `json:"verified"`
	} `json:"user"`
}

// MFAEnrollment holds a new TOTP secret and recovery codes.
type MFAEnrollment struct {
	Secret struct {
		Base32     string `json:"base32"`
		OtpauthURL string `json:"otpauthUrl"`
	} `json:"secret"`
	RecoveryCodes []string `json:"recoveryCodes"`
}

// MFAVerifyResult is the backend's answer to an MFA verification.
type MFAVerifyResult struct {
	Success       bool     `json:"success"`
	RecoveryCodes []string `json:"recoveryCodes,omitempty"`
}

// ModuleRedirect is a short-lived link into a module.
type ModuleRedirect struct {
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// User is the UserCore fragment.
type User struct {
	ID         string           `json:"id"`
	Email      string           `json:"email"`
	FullName   *string          `json:"fullName,omitempty"`
	Verified   bool             `json:"verified"`
	MFAEnabled bool             `json:"mfaEnabled"`
	Modules    []session.Module `json:"modules"`
}

// SessionStatus is the backend's view of the current session.
type SessionStatus struct {
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
	MaintenanceMode bool       `json:"maintenanceMode"`
}
