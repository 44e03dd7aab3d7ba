// Package httputil provides HTTP utilities for the gateway's JSON surface.
//
// # Response Helpers
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteUnauthorized(w, "session required")
//	httputil.WriteErrorResponse(w, http.StatusBadGateway, httputil.ErrorResponse{
//		Title: "Service unavailable",
//		Code:  "service_unavailable",
//	})
//
// # Request Parsing
//
//	var req LoginRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//	slug, ok := httputil.ParsePathStringOrError(w, r, "slug")
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//		httputil.MaxBytesMiddleware(1<<20),
//	)
package httputil
