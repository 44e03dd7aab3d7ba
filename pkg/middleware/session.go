package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/platinummonkey/novo-auth/pkg/auth"
	"github.com/platinummonkey/novo-auth/pkg/contextkeys"
	"github.com/platinummonkey/novo-auth/pkg/httputil"
	"github.com/platinummonkey/novo-auth/pkg/observability"
	"github.com/platinummonkey/novo-auth/pkg/session"
)

// SessionCookieName is the cookie that carries the opaque session ID.
const SessionCookieName = "__Secure-novo-session"

// SessionResolver maps a session ID to its stored session. *auth.Service
// implements it.
type SessionResolver interface {
	Resolve(ctx context.Context, sessionID string) (session.Session, error)
}

// CookieConfig controls how the session cookie is written.
type CookieConfig struct {
	Name     string
	Domain   string
	Path     string
	Secure   bool
	SameSite http.SameSite
	// MaxAge bounds cookies for sessions with an unknown expiry.
	MaxAge time.Duration
}

// DefaultCookieConfig returns the production cookie settings.
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		Name:     SessionCookieName,
		Path:     "/",
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   session.DefaultMaxAge,
	}
}

// SessionMiddleware resolves the session cookie and places the session in
// the request context. Requests without a usable cookie continue as
// anonymous.
type SessionMiddleware struct {
	resolver SessionResolver
	cookie   CookieConfig
	logger   *observability.Logger
	now      func() time.Time
}

// NewSessionMiddleware creates a new session middleware
func NewSessionMiddleware(resolver SessionResolver, cookie CookieConfig, logger *observability.Logger) *SessionMiddleware {
	if cookie.Name == "" {
		cookie.Name = SessionCookieName
	}
	if cookie.Path == "" {
		cookie.Path = "/"
	}
	if cookie.MaxAge <= 0 {
		cookie.MaxAge = session.DefaultMaxAge
	}
	if logger == nil {
		logger = observability.NewLogger(observability.ErrorLevel, io.Discard)
	}
	return &SessionMiddleware{
		resolver: resolver,
		cookie:   cookie,
		logger:   logger,
		now:      time.Now,
	}
}

// Handler wraps an HTTP handler with session resolution
func (m *SessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		c, err := r.Cookie(m.cookie.Name)
		if err != nil || c.Value == "" {
			next.ServeHTTP(w, r.WithContext(session.NewContext(ctx, session.Anonymous())))
			return
		}

		sess, err := m.resolver.Resolve(ctx, c.Value)
		switch {
		case err == nil:
		case errors.Is(err, auth.ErrSessionExpired),
			errors.Is(err, auth.ErrInvalidSessionID),
			errors.Is(err, session.ErrNotFound),
			errors.Is(err, session.ErrExpired):
			m.logger.WithField("request_id", contextkeys.GetRequestID(ctx)).
				WithError(err).Debug("Discarding session cookie")
			m.ClearCookie(w)
			next.ServeHTTP(w, r.WithContext(session.NewContext(ctx, session.Anonymous())))
			return
		default:
			m.logger.WithField("request_id", contextkeys.GetRequestID(ctx)).
				WithError(err).Error("Session lookup failed")
			httputil.WriteServiceUnavailable(w, "session store unavailable")
			return
		}

		ctx = session.NewContext(ctx, sess)
		ctx = contextkeys.WithSessionID(ctx, c.Value)
		if sess.UserID != nil {
			ctx = contextkeys.WithUserID(ctx, *sess.UserID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetCookie writes the session cookie for id. The cookie expires with the
// session, or after MaxAge when the expiry is unknown.
func (m *SessionMiddleware) SetCookie(w http.ResponseWriter, id string, expiresAt *time.Time) {
	expires := m.now().Add(m.cookie.MaxAge)
	if expiresAt != nil && expiresAt.Before(expires) {
		expires = *expiresAt
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie.Name,
		Value:    id,
		Path:     m.cookie.Path,
		Domain:   m.cookie.Domain,
		Expires:  expires.UTC(),
		Secure:   m.cookie.Secure,
		HttpOnly: true,
		SameSite: m.cookie.SameSite,
	})
}

// ClearCookie removes the session cookie from the browser.
func (m *SessionMiddleware) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie.Name,
		Value:    "",
		Path:     m.cookie.Path,
		Domain:   m.cookie.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   m.cookie.Secure,
		HttpOnly: true,
		SameSite: m.cookie.SameSite,
	})
}

// GetSession returns the session placed in the request by SessionMiddleware,
// or the anonymous session.
func GetSession(r *http.Request) session.Session {
	if s, ok := session.FromContext(r.Context()); ok {
		return s
	}
	return session.Anonymous()
}

// RequireSession rejects anonymous and stale sessions with 401.
func RequireSession(n *session.Normalizer) func(http.Handler) http.Handler {
	if n == nil {
		n = session.NewNormalizer()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := GetSession(r)
			if s.IsAnonymous() {
				httputil.WriteErrorResponse(w, http.StatusUnauthorized, httputil.ErrorResponse{
					Error: "authentication required",
					Code:  auth.CodeSessionExpired,
				})
				return
			}
			if n.IsExpired(s) {
				httputil.WriteErrorResponse(w, http.StatusUnauthorized, httputil.ErrorResponse{
					Error: "session expired",
					Code:  auth.CodeSessionExpired,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
