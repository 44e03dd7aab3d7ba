package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/novo-auth/pkg/auth"
	"github.com/platinummonkey/novo-auth/pkg/contextkeys"
	"github.com/platinummonkey/novo-auth/pkg/httputil"
)

// AuthHandlers handles the credential and MFA endpoints
type AuthHandlers struct {
	server *Server
}

// NewAuthHandlers creates a new auth handlers instance
func NewAuthHandlers(s *Server) *AuthHandlers {
	return &AuthHandlers{server: s}
}

// RegisterRoutes registers authentication routes
func (h *AuthHandlers) RegisterRoutes(router *mux.Router) {
	s := h.server

	router.Handle("/auth/login", s.limited(h.login)).Methods(http.MethodPost)
	router.Handle("/auth/signup", s.limited(h.signup)).Methods(http.MethodPost)
	router.Handle("/auth/verify-email", s.limited(h.verifyEmail)).Methods(http.MethodPost)
	router.HandleFunc("/auth/logout", h.logout).Methods(http.MethodPost)

	// MFA routes
	router.Handle("/auth/mfa/enroll", s.authenticated(h.enrollMFA)).Methods(http.MethodPost)
	router.Handle("/auth/mfa/verify", s.limited(s.authenticated(h.verifyMFA).ServeHTTP)).Methods(http.MethodPost)
}

// login handles POST /api/auth/login
func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	s := h.server

	var creds auth.Credentials
	if !httputil.ParseJSONOrError(w, r, &creds) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(creds.Email))

	res, err := s.service.Login(r.Context(), creds)
	if err != nil {
		_ = s.audit.LogFromRequest(r, auth.ActionLogin, "", email, auditStatus(err), err)
		s.writeServiceError(w, r, err)
		return
	}

	s.sessions.SetCookie(w, res.SessionID, res.Session.ExpiresAt)
	_ = s.audit.LogFromRequest(r, auth.ActionLogin, *res.Session.UserID, email, auth.StatusSuccess, nil)

	_ = httputil.WriteSuccess(w, LoginResponse{Session: newSessionView(s.normalizer, res.Session)})
}

// signup handles POST /api/auth/signup
func (h *AuthHandlers) signup(w http.ResponseWriter, r *http.Request) {
	s := h.server

	var input auth.SignupInput
	if !httputil.ParseJSONOrError(w, r, &input) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))

	res, err := s.service.Signup(r.Context(), input)
	if err != nil {
		_ = s.audit.LogFromRequest(r, auth.ActionSignup, "", email, auditStatus(err), err)
		s.writeServiceError(w, r, err)
		return
	}

	_ = s.audit.LogFromRequest(r, auth.ActionSignup, res.User.ID, email, auth.StatusSuccess, nil)
	_ = httputil.WriteJSON(w, http.StatusCreated, res)
}

// verifyEmail handles POST /api/auth/verify-email
func (h *AuthHandlers) verifyEmail(w http.ResponseWriter, r *http.Request) {
	s := h.server

	var input auth.VerifyEmailInput
	if !httputil.ParseJSONOrError(w, r, &input) {
		return
	}

	res, err := s.service.VerifyEmail(r.Context(), input)
	if err != nil {
		_ = s.audit.LogFromRequest(r, auth.ActionVerifyEmail, "", "", auditStatus(err), err)
		s.writeServiceError(w, r, err)
		return
	}

	_ = s.audit.LogFromRequest(r, auth.ActionVerifyEmail, res.User.ID, "", auth.StatusSuccess, nil)
	_ = httputil.WriteSuccess(w, res)
}

// enrollMFA handles POST /api/auth/mfa/enroll
func (h *AuthHandlers) enrollMFA(w http.ResponseWriter, r *http.Request) {
	s := h.server

	res, err := s.service.EnrollMFA(r.Context())
	if err != nil {
		_ = s.audit.LogFromRequest(r, auth.ActionMFAEnroll, "", "", auditStatus(err), err)
		s.writeServiceError(w, r, err)
		return
	}

	_ = s.audit.LogFromRequest(r, auth.ActionMFAEnroll, "", "", auth.StatusSuccess, nil)
	_ = httputil.WriteSuccess(w, res)
}

// verifyMFA handles POST /api/auth/mfa/verify
func (h *AuthHandlers) verifyMFA(w http.ResponseWriter, r *http.Request) {
	s := h.server
	ctx := r.Context()

	var input auth.MFAVerifyInput
	if !httputil.ParseJSONOrError(w, r, &input) {
		return
	}

	sessionID := contextkeys.GetSessionID(ctx)
	res, err := s.service.VerifyMFA(ctx, sessionID, input)
	if err != nil {
		_ = s.audit.LogFromRequest(r, auth.ActionMFAVerify, "", "", auditStatus(err), err)
		s.writeServiceError(w, r, err)
		return
	}

	resp := MFAVerifyResponse{Success: res.Success, RecoveryCodes: res.RecoveryCodes}
	if !res.Success {
		_ = s.audit.LogFromRequest(r, auth.ActionMFAVerify, "", "", auth.StatusDenied, nil)
		_ = httputil.WriteSuccess(w, resp)
		return
	}

	_ = s.audit.LogFromRequest(r, auth.ActionMFAVerify, "", "", auth.StatusSuccess, nil)
	if sessionID != "" {
		if updated, err := s.service.Resolve(ctx, sessionID); err == nil {
			view := newSessionView(s.normalizer, updated)
			resp.Session = &view
		}
	}
	_ = httputil.WriteSuccess(w, resp)
}

// logout handles POST /api/auth/logout. It succeeds without a session.
func (h *AuthHandlers) logout(w http.ResponseWriter, r *http.Request) {
	s := h.server
	ctx := r.Context()

	if sessionID := contextkeys.GetSessionID(ctx); sessionID != "" {
		if err := s.service.Logout(ctx, sessionID); err != nil {
			s.logger.WithField("request_id", requestID(r)).
				WithError(err).Warn("Failed to delete session on logout")
		}
		_ = s.audit.LogFromRequest(r, auth.ActionLogout, "", "", auth.StatusSuccess, nil)
	}

	s.sessions.ClearCookie(w)
	httputil.WriteNoContent(w)
}

// auditStatus classifies a failed action for the audit log.
func auditStatus(err error) string {
	switch statusFor(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return auth.StatusDenied
	default:
		return auth.StatusFailure
	}
}

func requestID(r *http.Request) string {
	return contextkeys.GetRequestID(r.Context())
}
