package session

import (
	"context"
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultMaxAge bounds how long a session is kept when its expiry is unknown
// or further away.
const DefaultMaxAge = 24 * time.Hour

var (
	// ErrNotFound is returned by Get for an unknown or evicted key.
	ErrNotFound = errors.New("session not found")

	// ErrExpired is returned by Put for a session whose expiry has passed.
	ErrExpired = errors.New("session already expired")

	// ErrInvalidKey is returned for an empty key.
	ErrInvalidKey = errors.New("session key is required")
)

// Store persists sessions under opaque keys. Stored sessions are replaced
// wholesale; nothing is updated in place.
type Store interface {
	Get(ctx context.Context, key string) (Session, error)
	Put(ctx context.Context, key string, s Session) error
	Delete(ctx context.Context, key string) error
}

// Sweeper is implemented by stores that can remove stale sessions on demand.
type Sweeper interface {
	Sweep(ctx context.Context, stale func(Session) bool) (int, error)
}

// ttlFor returns how long s may be kept, relative to now. A session expiring
// exactly at now is still live (expiry is strictly after), so only a negative
// result means expired.
func ttlFor(s Session, now time.Time, maxAge time.Duration) time.Duration {
	if s.ExpiresAt == nil {
		return maxAge
	}
	ttl := s.ExpiresAt.Sub(now)
	if ttl > maxAge {
		return maxAge
	}
	return ttl
}

// MemoryStore keeps sessions in a size-bounded LRU whose entries also expire
// after the store's max age.
type MemoryStore struct {
	cache  *lru.LRU[string, Session]
	maxAge time.Duration
	now    func() time.Time
}

// NewMemoryStore creates a MemoryStore holding at most size sessions.
func NewMemoryStore(size int, maxAge time.Duration) *MemoryStore {
	if size <= 0 {
		size = 10000
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &MemoryStore{
		cache:  lru.NewLRU[string, Session](size, nil, maxAge),
		maxAge: maxAge,
		now:    time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (Session, error) {
	if key == "" {
		return Session{}, ErrInvalidKey
	}
	s, ok := m.cache.Get(key)
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, s Session) error {
	if key == "" {
		return ErrInvalidKey
	}
	if ttlFor(s, m.now(), m.maxAge) < 0 {
		m.cache.Remove(key)
		return ErrExpired
	}
	m.cache.Add(key, s)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	m.cache.Remove(key)
	return nil
}

// Len returns the number of sessions held.
func (m *MemoryStore) Len() int {
	return m.cache.Len()
}

// Sweep removes every session for which stale returns true.
func (m *MemoryStore) Sweep(ctx context.Context, stale func(Session) bool) (int, error) {
	removed := 0
	for _, key := range m.cache.Keys() {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		s, ok := m.cache.Peek(key)
		if ok && stale(s) {
			m.cache.Remove(key)
			removed++
		}
	}
	return removed, nil
}
