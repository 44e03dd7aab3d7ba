// Package transport builds the stage chain every GraphQL operation passes
// through on its way to the backend.
//
// The chain is fixed, outermost first:
//
//	tracing -> retry -> error -> auth -> http
//
// Tracing reports the operation and opens a client span. Retry re-issues an
// operation once after a *NetworkError, with exponential backoff and jitter.
// Error reports every backend error and network failure exactly once without
// changing either. Auth asks the TokenAccessor for a token on every operation
// and, if one is returned, forwards a new RequestContext carrying
// "Authorization: Bearer <token>". Http posts the operation as JSON and keeps
// cookies between operations.
//
// Usage:
//
//	p, err := transport.Build(endpoint,
//		transport.WithTokenAccessor(accessor),
//		transport.WithObserver(observability.NewLoggerObserver(logger)),
//	)
//	if err != nil {
//		return err // *transport.ConfigurationError
//	}
//	resp, err := p.Execute(ctx, transport.Operation{Name: "Me", Kind: transport.KindQuery, Query: q})
//
// Build fails before anything is constructed when the endpoint is missing.
// Per-operation failures are returned as *NetworkError or *ApplicationError;
// with an *ApplicationError the response is returned as well.
package transport
