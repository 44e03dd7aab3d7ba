package api

import (
	"context"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/novo-auth/pkg/auth"
	"github.com/platinummonkey/novo-auth/pkg/httputil"
	"github.com/platinummonkey/novo-auth/pkg/middleware"
	"github.com/platinummonkey/novo-auth/pkg/observability"
	"github.com/platinummonkey/novo-auth/pkg/session"
)

// AuthService is the part of *auth.Service the gateway calls.
type AuthService interface {
	Login(ctx context.Context, creds auth.Credentials) (*auth.LoginResult, error)
	Resolve(ctx context.Context, sessionID string) (session.Session, error)
	Logout(ctx context.Context, sessionID string) error
	Signup(ctx context.Context, input auth.SignupInput) (*auth.SignupResult, error)
	VerifyEmail(ctx context.Context, input auth.VerifyEmailInput) (*auth.VerifyEmailResult, error)
	EnrollMFA(ctx context.Context) (*auth.MFAEnrollment, error)
	VerifyMFA(ctx context.Context, sessionID string, input auth.MFAVerifyInput) (*auth.MFAVerifyResult, error)
	ModuleRedirect(ctx context.Context, slug string) (*auth.ModuleRedirect, error)
	Me(ctx context.Context) (*auth.User, error)
	SessionStatus(ctx context.Context) (*auth.SessionStatus, error)
}

// Options configures a Server. Zero values disable the optional parts.
type Options struct {
	Normalizer *session.Normalizer
	Cookie     middleware.CookieConfig
	// Limiter guards the credential routes.
	Limiter      middleware.Limiter
	Health       *observability.HealthChecker
	Metrics      *observability.Metrics
	Logger       *observability.Logger
	Observer     observability.Observer
	CORSOrigins  []string
	MaxBodyBytes int64
}

// Server is the gateway's HTTP API
type Server struct {
	service    AuthService
	normalizer *session.Normalizer
	sessions   *middleware.SessionMiddleware
	limiter    *middleware.RateLimitMiddleware
	audit      *auth.AuditLogger
	health     *observability.HealthChecker
	metrics    *observability.Metrics
	logger     *observability.Logger
	observer   observability.Observer
	router     *mux.Router
	handler    http.Handler
}

// NewServer creates a new API server
func NewServer(service AuthService, opts Options) *Server {
	if opts.Normalizer == nil {
		opts.Normalizer = session.NewNormalizer()
	}
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.ErrorLevel, io.Discard)
	}
	if opts.Observer == nil {
		opts.Observer = observability.NopObserver{}
	}

	s := &Server{
		service:    service,
		normalizer: opts.Normalizer,
		sessions:   middleware.NewSessionMiddleware(service, opts.Cookie, opts.Logger),
		audit:      auth.NewAuditLogger(opts.Logger),
		health:     opts.Health,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		observer:   opts.Observer,
		router:     mux.NewRouter(),
	}
	if opts.Limiter != nil {
		s.limiter = middleware.NewRateLimitMiddleware(opts.Limiter, opts.Logger)
	}

	s.setupRoutes()

	outer := []func(http.Handler) http.Handler{
		httputil.RecoveryMiddleware(s.logger),
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.logger),
	}
	if len(opts.CORSOrigins) > 0 {
		outer = append(outer, httputil.CORSMiddleware(opts.CORSOrigins))
	}
	if opts.MaxBodyBytes > 0 {
		outer = append(outer, httputil.MaxBytesMiddleware(opts.MaxBodyBytes))
	}
	s.handler = httputil.Chain(outer...)(s.router)

	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	if s.metrics != nil {
		s.router.Use(observability.MetricsMiddleware(s.metrics, routeTemplate))
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	if s.health != nil {
		s.router.HandleFunc("/healthz", s.health.Liveness).Methods(http.MethodGet)
		s.router.HandleFunc("/readyz", s.health.Readiness).Methods(http.MethodGet)
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.sessions.Handler)

	NewAuthHandlers(s).RegisterRoutes(api)
	NewSessionHandlers(s).RegisterRoutes(api)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router returns the underlying router, for registering extra routes.
func (s *Server) Router() *mux.Router {
	return s.router
}

// limited wraps h with the credential rate limiter when one is configured.
func (s *Server) limited(h http.HandlerFunc) http.Handler {
	if s.limiter == nil {
		return h
	}
	return s.limiter.Handler(h)
}

// authenticated wraps h so that it only runs for live sessions.
func (s *Server) authenticated(h http.HandlerFunc) http.Handler {
	return middleware.RequireSession(s.normalizer)(h)
}

// routeTemplate labels metrics with the matched route instead of the raw
// path.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
