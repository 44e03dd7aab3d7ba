// Package api is the gateway's HTTP surface.
//
// The browser never sees backend tokens. A login stores the normalized
// session server-side and hands the browser an opaque session ID in an
// HttpOnly cookie; every /api request resolves that cookie back to the
// session before the handler runs, and backend calls made while serving the
// request carry the session's bearer token.
//
// # Routes
//
//	POST /api/auth/login              rate limited
//	POST /api/auth/signup             rate limited
//	POST /api/auth/verify-email       rate limited
//	POST /api/auth/logout
//	POST /api/auth/mfa/enroll         session required
//	POST /api/auth/mfa/verify         session required, rate limited
//	GET  /api/session
//	GET  /api/me                      session required
//	POST /api/modules/{slug}/redirect session required
//	GET  /healthz, /readyz, /metrics
//
// Errors are written as {error, title, description, code} using the copy
// from auth.PresentError.
//
// # Usage
//
//	srv := api.NewServer(service, api.Options{
//		Cookie:  middleware.DefaultCookieConfig(),
//		Limiter: middleware.NewRateLimiter(nil),
//		Health:  health,
//		Metrics: metrics,
//		Logger:  logger,
//	})
//	http.ListenAndServe(":8080", srv)
package api
