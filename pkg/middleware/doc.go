// Package middleware provides the gateway's session and rate limiting
// middleware.
//
// # Sessions
//
// SessionMiddleware reads the __Secure-novo-session cookie, resolves it via
// auth.Service and stores the session in the request context. Unknown or
// expired IDs clear the cookie and continue as anonymous.
//
//	sm := middleware.NewSessionMiddleware(svc, middleware.DefaultCookieConfig(), logger)
//	router.Use(sm.Handler)
//	protected.Use(middleware.RequireSession(normalizer))
//
// # Rate Limiting
//
// RateLimitMiddleware limits credential endpoints per client IP with either
// the in-process token bucket or the Redis limiter shared by all instances:
//
//	limiter := middleware.NewDistributedRateLimiter(redisClient, middleware.LoginRateLimitConfig(), "")
//	login.Use(middleware.NewRateLimitMiddleware(limiter, logger).Handler)
//
// Limiter failures let the request through.
package middleware
