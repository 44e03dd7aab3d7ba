// Package auth runs the Novo sign-in flows and manages gateway sessions.
//
// # Overview
//
// Service drives login, signup, email verification, MFA and module redirects
// through the GraphQL client. A successful login normalizes the backend
// payload into a session.Session and stores it under an opaque session ID.
//
//	svc := auth.NewService(client, store, normalizer, observer)
//	res, err := svc.Login(ctx, auth.Credentials{Email: email, Password: pw})
//	// res.SessionID: novo_xxx (give to the browser)
//	// store key: SHA256(res.SessionID)
//
// Later requests resolve the ID back to a session:
//
//	sess, err := svc.Resolve(ctx, id)
//	if errors.Is(err, auth.ErrSessionExpired) {
//		// ask the user to sign in again
//	}
//
// # Token Accessors
//
// The transport pipeline asks a transport.TokenAccessor for the bearer token
// of each operation. HolderAccessor reads a process-wide session.Holder,
// ContextAccessor reads the session attached to the request context and
// TokenSourceAccessor adapts any oauth2.TokenSource. Anonymous and expired
// sessions yield an empty token.
//
// # Errors
//
// PresentError turns any error into a title, description and code suitable
// for an API response.
//
// # Audit
//
// AuditLogger writes one structured log line per authentication event.
package auth
