package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/novo-auth/pkg/auth"
	"github.com/platinummonkey/novo-auth/pkg/httputil"
	"github.com/platinummonkey/novo-auth/pkg/middleware"
)

// SessionHandlers serves the signed-in user's session, profile and module
// links
type SessionHandlers struct {
	server *Server
}

// NewSessionHandlers creates a new session handlers instance
func NewSessionHandlers(s *Server) *SessionHandlers {
	return &SessionHandlers{server: s}
}

// RegisterRoutes registers session routes
func (h *SessionHandlers) RegisterRoutes(router *mux.Router) {
	s := h.server

	router.HandleFunc("/session", h.getSession).Methods(http.MethodGet)
	router.Handle("/me", s.authenticated(h.getMe)).Methods(http.MethodGet)
	router.Handle("/modules/{slug}/redirect", s.authenticated(h.moduleRedirect)).Methods(http.MethodPost)
}

// getSession handles GET /api/session. Anonymous callers get the anonymous
// view. For signed-in callers the backend's status is attached when it
// answers; a failed status lookup does not fail the request.
func (h *SessionHandlers) getSession(w http.ResponseWriter, r *http.Request) {
	s := h.server
	sess := middleware.GetSession(r)

	resp := SessionResponse{Session: newSessionView(s.normalizer, sess)}
	if resp.Session.Authenticated {
		status, err := s.service.SessionStatus(r.Context())
		if err != nil {
			s.logger.WithField("request_id", requestID(r)).
				WithError(err).Warn("Session status lookup failed")
		} else {
			resp.Status = status
		}
	}

	_ = httputil.WriteSuccess(w, resp)
}

// getMe handles GET /api/me
func (h *SessionHandlers) getMe(w http.ResponseWriter, r *http.Request) {
	s := h.server

	me, err := s.service.Me(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, me)
}

// moduleRedirect handles POST /api/modules/{slug}/redirect
func (h *SessionHandlers) moduleRedirect(w http.ResponseWriter, r *http.Request) {
	s := h.server

	slug, ok := httputil.ParsePathStringOrError(w, r, "slug")
	if !ok {
		return
	}

	res, err := s.service.ModuleRedirect(r.Context(), slug)
	if err != nil {
		_ = s.audit.LogFromRequest(r, auth.ActionModuleRedirect, "", "", auditStatus(err), err)
		s.writeServiceError(w, r, err)
		return
	}

	_ = s.audit.LogFromRequest(r, auth.ActionModuleRedirect, "", "", auth.StatusSuccess, nil)
	_ = httputil.WriteSuccess(w, res)
}
