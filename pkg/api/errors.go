package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/novo-auth/pkg/auth"
	"github.com/platinummonkey/novo-auth/pkg/httputil"
	"github.com/platinummonkey/novo-auth/pkg/observability"
	"github.com/platinummonkey/novo-auth/pkg/session"
	"github.com/platinummonkey/novo-auth/pkg/transport"
)

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrMissingCredentials), errors.Is(err, auth.ErrMissingInput):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrLoginRejected),
		errors.Is(err, auth.ErrSessionExpired),
		errors.Is(err, auth.ErrInvalidSessionID),
		errors.Is(err, session.ErrNotFound),
		errors.Is(err, session.ErrExpired):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrModuleNotGranted), errors.Is(err, auth.ErrMFARequired):
		return http.StatusForbidden
	case transport.IsApplicationError(err):
		return http.StatusUnprocessableEntity
	case transport.IsNetworkError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError presents err to the user. Server-side failures are
// logged with the request ID; the user only sees the presented copy.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		observability.UpdateLoggerWithTraceContext(r.Context(), s.logger).
			WithField("request_id", requestID(r)).
			WithField("path", r.URL.Path).
			WithError(err).Error("Request failed")
	}

	presented := auth.PresentError(s.observer, err)
	httputil.WriteErrorResponse(w, status, httputil.ErrorResponse{
		Title:       presented.Title,
		Description: presented.Description,
		Code:        presented.Code,
	})
}
