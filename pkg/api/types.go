package api

import (
	"time"

	"github.com/platinummonkey/novo-auth/pkg/auth"
	"github.com/platinummonkey/novo-auth/pkg/session"
)

// SessionView is the browser's view of a session. Tokens stay on the
// server.
type SessionView struct {
	State         session.State     `json:"state"`
	Authenticated bool              `json:"authenticated"`
	UserID        *string           `json:"userId,omitempty"`
	Email         *string           `json:"email,omitempty"`
	FullName      *string           `json:"fullName,omitempty"`
	Modules       []session.Module  `json:"modules"`
	MFA           auth.MFAChallenge `json:"mfa"`
	ExpiresAt     *time.Time        `json:"expiresAt,omitempty"`
}

func newSessionView(n *session.Normalizer, s session.Session) SessionView {
	state := n.State(s)
	modules := s.Modules
	if modules == nil {
		modules = []session.Module{}
	}
	return SessionView{
		State:         state,
		Authenticated: state == session.StateActive,
		UserID:        s.UserID,
		Email:         s.Email,
		FullName:      s.FullName,
		Modules:       modules,
		MFA: auth.MFAChallenge{
			Required: s.MFARequired,
			Methods:  s.MFAMethods,
		},
		ExpiresAt: s.ExpiresAt,
	}
}

// LoginResponse is returned by POST /api/auth/login.
type LoginResponse struct {
	Session SessionView `json:"session"`
}

// MFAVerifyResponse is returned by POST /api/auth/mfa/verify.
type MFAVerifyResponse struct {
	Success       bool         `json:"success"`
	RecoveryCodes []string     `json:"recoveryCodes,omitempty"`
	Session       *SessionView `json:"session,omitempty"`
}

// SessionResponse is returned by GET /api/session. Status is the backend's
// view and is only present for signed-in sessions when the backend answered.
type SessionResponse struct {
	Session SessionView         `json:"session"`
	Status  *auth.SessionStatus `json:"status,omitempty"`
}
