package session

import (
	"strings"
	"time"

	"github.com/platinummonkey/novo-auth/pkg/observability"
)

const scopeSession = "auth:session"

// UnknownExpiryIsExpired is the answer IsExpired gives for a session whose
// expiry is not known. Unknown expiry never forces reauthentication.
const UnknownExpiryIsExpired = false

// expiryLayouts are the ISO-8601 forms accepted for expiresAt, tried in
// order. Layouts without a zone are read as UTC.
var expiryLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02",
}

// Normalizer turns backend payloads into Sessions and evaluates expiry.
type Normalizer struct {
	observer observability.Observer
	metrics  *observability.Metrics
	now      func() time.Time
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithObserver sets where normalization events are reported.
func WithObserver(obs observability.Observer) NormalizerOption {
	return func(n *Normalizer) {
		if obs != nil {
			n.observer = obs
		}
	}
}

// WithMetrics records normalization and expiry metrics.
func WithMetrics(m *observability.Metrics) NormalizerOption {
	return func(n *Normalizer) {
		n.metrics = m
	}
}

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) NormalizerOption {
	return func(n *Normalizer) {
		if now != nil {
			n.now = now
		}
	}
}

// NewNormalizer creates a Normalizer. Events are discarded unless an
// observer is set.
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		observer: observability.NopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var defaultNormalizer = NewNormalizer()

// Normalize converts payload using a Normalizer that reports nothing.
func Normalize(payload *RawAuthPayload) Session {
	return defaultNormalizer.Normalize(payload)
}

// IsExpired evaluates s against the current time using a Normalizer that
// reports nothing.
func IsExpired(s Session) bool {
	return defaultNormalizer.IsExpired(s)
}

// Normalize converts payload into a Session. It never fails: a nil payload
// yields the anonymous session and a "normalize:missing-payload" warning.
func (n *Normalizer) Normalize(payload *RawAuthPayload) Session {
	if payload == nil {
		n.observer.Warn(scopeSession, "normalize:missing-payload", nil)
		n.metrics.RecordSessionNormalized(string(StateAnonymous))
		return Anonymous()
	}

	n.observer.Info(scopeSession, "normalize", observability.Fields{
		"userId": payload.User.ID,
	})

	s := Session{
		AccessToken:  stringPtr(payload.AccessToken),
		RefreshToken: stringPtr(payload.RefreshToken),
		ExpiresAt:    n.parseExpiry(payload.ExpiresAt),
		UserID:       stringPtr(payload.User.ID),
		Email:        stringPtr(payload.User.Email),
		FullName:     copyString(payload.User.FullName),
		Modules:      make([]Module, 0, len(payload.User.Modules)),
	}
	for _, m := range payload.User.Modules {
		s.Modules = append(s.Modules, Module{
			Slug:   m.Slug,
			Name:   m.Name,
			Status: copyString(m.Status),
		})
	}
	if payload.MFA != nil {
		if payload.MFA.Required != nil {
			s.MFARequired = *payload.MFA.Required
		}
		if len(payload.MFA.Methods) > 0 {
			s.MFAMethods = append([]string(nil), payload.MFA.Methods...)
		}
	}

	n.metrics.RecordSessionNormalized(string(n.State(s)))
	return s
}

// IsExpired reports whether s's expiry is strictly before now. An unknown
// expiry returns UnknownExpiryIsExpired. Only an elapsed expiry is reported.
func (n *Normalizer) IsExpired(s Session) bool {
	if s.ExpiresAt == nil {
		return UnknownExpiryIsExpired
	}

	expired := n.elapsed(s)
	if expired {
		n.observer.Warn(scopeSession, "expiry:elapsed", observability.Fields{
			"expiresAt": s.ExpiresAt.UTC().Format(time.RFC3339Nano),
		})
		n.metrics.RecordSessionExpired()
	}
	return expired
}

// State classifies s. It does not report expiry events.
func (n *Normalizer) State(s Session) State {
	switch {
	case s.IsAnonymous():
		return StateAnonymous
	case n.elapsed(s):
		return StateStale
	default:
		return StateActive
	}
}

func (n *Normalizer) elapsed(s Session) bool {
	if s.ExpiresAt == nil {
		return UnknownExpiryIsExpired
	}
	return s.ExpiresAt.Before(n.now())
}

// StateOf classifies s against the current time.
func StateOf(s Session) State {
	return defaultNormalizer.State(s)
}

// ParseExpiry parses a backend timestamp. Empty or unparseable values yield
// nil; the latter also emits "normalize:invalid-expiry".
func (n *Normalizer) ParseExpiry(raw string) *time.Time {
	return n.parseExpiry(raw)
}

func (n *Normalizer) parseExpiry(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range expiryLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return &t
		}
	}
	n.observer.Warn(scopeSession, "normalize:invalid-expiry", observability.Fields{
		"expiresAt": raw,
	})
	return nil
}

func stringPtr(v string) *string {
	return &v
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
