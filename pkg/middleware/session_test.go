package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/novo-auth/pkg/auth"
	"github.com/platinummonkey/novo-auth/pkg/contextkeys"
	"github.com/platinummonkey/novo-auth/pkg/session"
)

type resolverFunc func(ctx context.Context, id string) (session.Session, error)

func (f resolverFunc) Resolve(ctx context.Context, id string) (session.Session, error) {
	return f(ctx, id)
}

func strPtr(v string) *string { return &v }

func activeSession(expiresIn time.Duration) session.Session {
	exp := time.Now().Add(expiresIn)
	return session.Session{
		AccessToken: strPtr("tok"),
		UserID:      strPtr("user-1"),
		Email:       strPtr("ada@novo.test"),
		ExpiresAt:   &exp,
		Modules:     []session.Module{},
	}
}

type captured struct {
	sess      session.Session
	sessionID string
	userID    string
	called    bool
}

func capture(c *captured) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.called = true
		c.sess = GetSession(r)
		c.sessionID = contextkeys.GetSessionID(r.Context())
		c.userID = contextkeys.GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func requestWithCookie(value string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	if value != "" {
		r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: value})
	}
	return r
}

func TestSessionMiddleware_NoCookie(t *testing.T) {
	m := NewSessionMiddleware(resolverFunc(func(context.Context, string) (session.Session, error) {
		t.Fatal("resolver should not be called")
		return session.Session{}, nil
	}), DefaultCookieConfig(), nil)

	var c captured
	m.Handler(capture(&c)).ServeHTTP(httptest.NewRecorder(), requestWithCookie(""))

	require.True(t, c.called)
	assert.True(t, c.sess.IsAnonymous())
	assert.Empty(t, c.sessionID)
}

func TestSessionMiddleware_Resolved(t *testing.T) {
	want := activeSession(time.Hour)
	m := NewSessionMiddleware(resolverFunc(func(_ context.Context, id string) (session.Session, error) {
		assert.Equal(t, "novo_abc", id)
		return want, nil
	}), DefaultCookieConfig(), nil)

	var c captured
	w := httptest.NewRecorder()
	m.Handler(capture(&c)).ServeHTTP(w, requestWithCookie("novo_abc"))

	require.True(t, c.called)
	assert.Equal(t, want, c.sess)
	assert.Equal(t, "novo_abc", c.sessionID)
	assert.Equal(t, "user-1", c.userID)
	assert.Empty(t, w.Result().Cookies())
}

func TestSessionMiddleware_DiscardsUnusableCookie(t *testing.T) {
	for _, resolveErr := range []error{auth.ErrSessionExpired, auth.ErrInvalidSessionID, session.ErrNotFound} {
		t.Run(resolveErr.Error(), func(t *testing.T) {
			m := NewSessionMiddleware(resolverFunc(func(context.Context, string) (session.Session, error) {
				return session.Anonymous(), resolveErr
			}), DefaultCookieConfig(), nil)

			var c captured
			w := httptest.NewRecorder()
			m.Handler(capture(&c)).ServeHTTP(w, requestWithCookie("novo_old"))

			require.True(t, c.called)
			assert.True(t, c.sess.IsAnonymous())

			cookies := w.Result().Cookies()
			require.Len(t, cookies, 1)
			assert.Equal(t, SessionCookieName, cookies[0].Name)
			assert.Empty(t, cookies[0].Value)
			assert.Negative(t, cookies[0].MaxAge)
		})
	}
}

func TestSessionMiddleware_StoreFailure(t *testing.T) {
	m := NewSessionMiddleware(resolverFunc(func(context.Context, string) (session.Session, error) {
		return session.Anonymous(), errors.New("redis: connection refused")
	}), DefaultCookieConfig(), nil)

	var c captured
	w := httptest.NewRecorder()
	m.Handler(capture(&c)).ServeHTTP(w, requestWithCookie("novo_abc"))

	assert.False(t, c.called)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSessionMiddleware_SetCookie(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	m := NewSessionMiddleware(nil, CookieConfig{Secure: true, Domain: "novo.test", MaxAge: 2 * time.Hour}, nil)
	m.now = func() time.Time { return now }

	t.Run("session expiry wins when sooner", func(t *testing.T) {
		w := httptest.NewRecorder()
		exp := now.Add(30 * time.Minute)
		m.SetCookie(w, "novo_abc", &exp)

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, SessionCookieName, cookies[0].Name)
		assert.Equal(t, "novo_abc", cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
		assert.True(t, cookies[0].Secure)
		assert.Equal(t, "/", cookies[0].Path)
		assert.Equal(t, exp.Unix(), cookies[0].Expires.Unix())
	})

	t.Run("unknown expiry uses max age", func(t *testing.T) {
		w := httptest.NewRecorder()
		m.SetCookie(w, "novo_abc", nil)

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, now.Add(2*time.Hour).Unix(), cookies[0].Expires.Unix())
	})
}

func TestRequireSession(t *testing.T) {
	tests := []struct {
		name     string
		sess     *session.Session
		wantCode int
		wantBody string
	}{
		{name: "no session in context", wantCode: http.StatusUnauthorized, wantBody: "authentication required"},
		{name: "anonymous", sess: func() *session.Session { s := session.Anonymous(); return &s }(), wantCode: http.StatusUnauthorized, wantBody: "authentication required"},
		{name: "stale", sess: func() *session.Session { s := activeSession(-time.Minute); return &s }(), wantCode: http.StatusUnauthorized, wantBody: "session expired"},
		{name: "active", sess: func() *session.Session { s := activeSession(time.Hour); return &s }(), wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RequireSession(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tt.sess != nil {
				r = r.WithContext(session.NewContext(r.Context(), *tt.sess))
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantBody != "" {
				assert.Contains(t, w.Body.String(), tt.wantBody)
				assert.Contains(t, w.Body.String(), auth.CodeSessionExpired)
			}
		})
	}
}
