package session

import (
	"context"

	"github.com/platinummonkey/novo-auth/pkg/contextkeys"
)

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s Session) context.Context {
	return contextkeys.WithSession(ctx, s)
}

// FromContext returns the session stored by NewContext.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextkeys.SessionKey).(Session)
	return s, ok
}
