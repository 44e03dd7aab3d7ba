package session

import (
	"time"

	"golang.org/x/oauth2"
)

// RawAuthPayload is what the backend returns from login, signup and MFA
// verification. A nil *RawAuthPayload means no session was established.
type RawAuthPayload struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresAt    string       `json:"expiresAt"`
	User         RawUser      `json:"user"`
	MFA          *RawMFABlock `json:"mfa,omitempty"`
}

// RawUser is the user block of a RawAuthPayload. ID and Email are always
// present when the payload is.
type RawUser struct {
	ID         string      `json:"id"`
	Email      string      `json:"email"`
	FullName   *string     `json:"fullName,omitempty"`
	MFAEnabled *bool       `json:"mfaEnabled,omitempty"`
	Modules    []RawModule `json:"modules,omitempty"`
}

// RawModule is a module entry as the backend sends it.
type RawModule struct {
	Slug   string  `json:"slug"`
	Name   string  `json:"name"`
	Status *string `json:"status,omitempty"`
}

// RawMFABlock describes a pending MFA challenge.
type RawMFABlock struct {
	Required *bool    `json:"required,omitempty"`
	Methods  []string `json:"methods,omitempty"`
}

// Module is a module the user can reach, in server order.
type Module struct {
	Slug   string  `json:"slug"`
	Name   string  `json:"name"`
	Status *string `json:"status,omitempty"`
}

// Session is the canonical identity record. Nil pointer fields are unknown
// or absent. A Session is never modified after Normalize returns it; refresh
// and logout produce a new value.
type Session struct {
	AccessToken  *string    `json:"accessToken"`
	RefreshToken *string    `json:"refreshToken"`
	ExpiresAt    *time.Time `json:"expiresAt"`
	UserID       *string    `json:"userId"`
	Email        *string    `json:"email"`
	FullName     *string    `json:"fullName,omitempty"`
	Modules      []Module   `json:"modules"`
	MFARequired  bool       `json:"mfaRequired"`
	MFAMethods   []string   `json:"mfaMethods,omitempty"`
}

// Anonymous returns the session with no identity.
func Anonymous() Session {
	return Session{Modules: []Module{}}
}

// IsAnonymous reports whether s carries no user identity.
func (s Session) IsAnonymous() bool {
	return s.UserID == nil
}

// Token returns the access token or "".
func (s Session) Token() string {
	if s.AccessToken == nil {
		return ""
	}
	return *s.AccessToken
}

// OAuth2Token converts s into an oauth2.Token. It returns nil for a session
// without an access token. An unknown expiry maps to the zero Expiry, which
// oauth2 treats as never expiring.
func (s Session) OAuth2Token() *oauth2.Token {
	if s.AccessToken == nil || *s.AccessToken == "" {
		return nil
	}
	tok := &oauth2.Token{
		AccessToken: *s.AccessToken,
		TokenType:   "Bearer",
	}
	if s.RefreshToken != nil {
		tok.RefreshToken = *s.RefreshToken
	}
	if s.ExpiresAt != nil {
		tok.Expiry = *s.ExpiresAt
	}
	return tok
}

// HasModule reports whether the session grants access to slug.
func (s Session) HasModule(slug string) bool {
	for _, m := range s.Modules {
		if m.Slug == slug {
			return true
		}
	}
	return false
}

// State is where a Session is in its lifecycle.
type State string

const (
	StateAnonymous State = "anonymous"
	StateActive    State = "active"
	StateStale     State = "stale"
)
