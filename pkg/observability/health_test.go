package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestHealthChecker_Check(t *testing.T) {
	okCheck := PingFunc(func(context.Context) error { return nil })
	badCheck := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	t.Run("no dependencies", func(t *testing.T) {
		status := NewHealthChecker(nil, "1.2.3").Check(context.Background())
		assert.Equal(t, StatusHealthy, status.Status)
		assert.Equal(t, "1.2.3", status.Version)
		assert.Empty(t, status.Dependencies)
	})

	t.Run("healthy with redis", func(t *testing.T) {
		_, client := newRedis(t)
		h := NewHealthChecker(client, "dev")
		h.AddCheck("graphql", okCheck)

		status := h.Check(context.Background())
		assert.Equal(t, StatusHealthy, status.Status)
		assert.Equal(t, StatusHealthy, status.Dependencies["redis"].Status)
		assert.Equal(t, StatusHealthy, status.Dependencies["graphql"].Status)
	})

	t.Run("redis down degrades", func(t *testing.T) {
		mr, client := newRedis(t)
		mr.Close()
		h := NewHealthChecker(client, "dev")
		h.AddCheck("graphql", okCheck)

		status := h.Check(context.Background())
		assert.Equal(t, StatusDegraded, status.Status)
		assert.Equal(t, StatusUnhealthy, status.Dependencies["redis"].Status)
		assert.NotEmpty(t, status.Dependencies["redis"].Message)
	})

	t.Run("required dependency down", func(t *testing.T) {
		mr, client := newRedis(t)
		mr.Close()
		h := NewHealthChecker(client, "dev")
		h.AddCheck("graphql", badCheck)

		status := h.Check(context.Background())
		assert.Equal(t, StatusUnhealthy, status.Status)
		assert.Equal(t, "connection refused", status.Dependencies["graphql"].Message)
	})
}

func TestHealthChecker_Handlers(t *testing.T) {
	h := NewHealthChecker(nil, "dev")
	failing := true
	h.AddCheck("graphql", PingFunc(func(context.Context) error {
		if failing {
			return errors.New("down")
		}
		return nil
	}))

	w := httptest.NewRecorder()
	h.Liveness(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	w = httptest.NewRecorder()
	h.Readiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var status HealthStatus
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.Equal(t, StatusUnhealthy, status.Status)
	assert.Equal(t, "down", status.Dependencies["graphql"].Message)

	failing = false
	w = httptest.NewRecorder()
	h.Readiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
