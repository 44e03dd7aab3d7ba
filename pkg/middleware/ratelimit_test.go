package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Allow(t *testing.T) {
	config := &RateLimitConfig{
		RequestsPerWindow: 10,
		WindowDuration:    time.Second,
		BurstSize:         2,
	}
	limiter := NewRateLimiter(config)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	allowed := 0
	for i := 0; i < config.RequestsPerWindow+config.BurstSize+5; i++ {
		ok, err := limiter.Allow(ctx, "ip:1.2.3.4")
		require.NoError(t, err)
		if ok {
			allowed++
		}
	}
	assert.Equal(t, config.RequestsPerWindow+config.BurstSize, allowed)

	remaining, err := limiter.Remaining(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.Zero(t, remaining)

	// A full window refills the bucket.
	now = now.Add(time.Second)
	ok, err := limiter.Allow(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok)

	// Other keys are independent.
	remaining, err = limiter.Remaining(ctx, "ip:5.6.7.8")
	require.NoError(t, err)
	assert.Equal(t, 12, remaining)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	limiter := NewRateLimiter(&RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	_, _ = limiter.Allow(context.Background(), "a")
	now = now.Add(3 * time.Minute)
	_, _ = limiter.Allow(context.Background(), "b")

	limiter.Cleanup()

	limiter.mu.RLock()
	defer limiter.mu.RUnlock()
	assert.NotContains(t, limiter.buckets, "a")
	assert.Contains(t, limiter.buckets, "b")
}

func setupRedisLimiter(t *testing.T, cfg *RateLimitConfig) (*DistributedRateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewDistributedRateLimiter(client, cfg, ""), mr
}

func TestDistributedRateLimiter(t *testing.T) {
	limiter, mr := setupRedisLimiter(t, &RateLimitConfig{RequestsPerWindow: 3, WindowDuration: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "ip:1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}
	ok, err := limiter.Allow(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok)

	remaining, err := limiter.Remaining(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.Zero(t, remaining)

	ttl, err := limiter.TTL(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)
	assert.True(t, mr.Exists("novo:ratelimit:ip:1.2.3.4"))

	mr.FastForward(time.Minute + time.Second)
	ok, err = limiter.Allow(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, limiter.Reset(ctx, "ip:1.2.3.4"))
	remaining, err = limiter.Remaining(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)
}

func TestDistributedRateLimiter_RedisDown(t *testing.T) {
	limiter, mr := setupRedisLimiter(t, nil)
	mr.Close()

	ok, err := limiter.Allow(context.Background(), "ip:1.2.3.4")

	assert.Error(t, err)
	assert.True(t, ok)
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewRateLimiter(&RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Minute})
	h := NewRateLimitMiddleware(limiter, nil).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(ip string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		r.RemoteAddr = ip + ":4000"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	w := send("10.0.0.1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)

	w = send("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, send("10.0.0.2").Code)
}

func TestRateLimitMiddleware_FailsOpen(t *testing.T) {
	limiter, mr := setupRedisLimiter(t, nil)
	mr.Close()

	called := false
	h := NewRateLimitMiddleware(limiter, nil).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))

	assert.True(t, called)
}

func TestRateLimitMiddleware_RedisRetryAfter(t *testing.T) {
	limiter, mr := setupRedisLimiter(t, &RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute})
	h := NewRateLimitMiddleware(limiter, nil).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
		return w
	}
	send()
	mr.FastForward(20 * time.Second)
	w := send()

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}
