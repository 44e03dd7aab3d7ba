package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/platinummonkey/novo-auth/pkg/session"
	"github.com/platinummonkey/novo-auth/pkg/transport"
)

// ErrNoToken is returned by HolderTokenSource when no usable token is held.
var ErrNoToken = errors.New("no access token available")

// usableToken returns the session's token unless the session is anonymous or
// expired.
func usableToken(n *session.Normalizer, s session.Session) string {
	if s.IsAnonymous() || n.IsExpired(s) {
		return ""
	}
	return s.Token()
}

// HolderAccessor reads the token of the session currently in h. A stale or
// anonymous session yields "".
func HolderAccessor(h *session.Holder, n *session.Normalizer) transport.TokenAccessor {
	if n == nil {
		n = session.NewNormalizer()
	}
	return func(context.Context) (string, error) {
		return usableToken(n, h.Load()), nil
	}
}

// ContextAccessor reads the token of the session attached to the operation's
// context by session.NewContext.
func ContextAccessor(n *session.Normalizer) transport.TokenAccessor {
	if n == nil {
		n = session.NewNormalizer()
	}
	return func(ctx context.Context) (string, error) {
		s, ok := session.FromContext(ctx)
		if !ok {
			return "", nil
		}
		return usableToken(n, s), nil
	}
}

// TokenSourceAccessor adapts an oauth2.TokenSource. Empty tokens and tokens
// whose expiry is before now yield "". oauth2's early-expiry delta is not
// applied, so a token stays usable until the same instant a session does.
func TokenSourceAccessor(ts oauth2.TokenSource) transport.TokenAccessor {
	return tokenSourceAccessor(ts, time.Now)
}

func tokenSourceAccessor(ts oauth2.TokenSource, now func() time.Time) transport.TokenAccessor {
	return func(context.Context) (string, error) {
		tok, err := ts.Token()
		if err != nil {
			return "", fmt.Errorf("token source: %w", err)
		}
		if tok == nil || tok.AccessToken == "" {
			return "", nil
		}
		if !tok.Expiry.IsZero() && tok.Expiry.Before(now()) {
			return "", nil
		}
		return tok.AccessToken, nil
	}
}

// StaticTokenAccessor always returns token.
func StaticTokenAccessor(token string) transport.TokenAccessor {
	return TokenSourceAccessor(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
}

type holderTokenSource struct {
	holder *session.Holder
}

// HolderTokenSource exposes the session in h as an oauth2.TokenSource.
func HolderTokenSource(h *session.Holder) oauth2.TokenSource {
	return holderTokenSource{holder: h}
}

func (s holderTokenSource) Token() (*oauth2.Token, error) {
	tok := s.holder.Load().OAuth2Token()
	if tok == nil {
		return nil, ErrNoToken
	}
	return tok, nil
}
