package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/novo-auth/pkg/observability"
)

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	assert.Equal(t, 2, config.MaxAttempts)
	assert.Equal(t, 300*time.Millisecond, config.InitialDelay)
	assert.Equal(t, 2000*time.Millisecond, config.MaxDelay)
	assert.True(t, config.Jitter)
}

func TestNewRetryPolicy_FixesInvalidValues(t *testing.T) {
	policy := NewRetryPolicy(RetryConfig{MaxAttempts: 0, InitialDelay: 0, MaxDelay: time.Millisecond})

	config := policy.Config()
	assert.Equal(t, DefaultMaxAttempts, config.MaxAttempts)
	assert.Equal(t, DefaultInitialDelay, config.InitialDelay)
	assert.Equal(t, DefaultInitialDelay, config.MaxDelay)
}

func TestRetryPolicy_ShouldRetry(t *testing.T) {
	policy := NewRetryPolicy(DefaultRetryConfig())
	netErr := &NetworkError{Message: "connection refused"}
	appErr := &ApplicationError{Operation: "Me", Errors: []GraphQLError{{Message: "nope"}}}

	tests := []struct {
		name    string
		attempt int
		err     error
		want    bool
	}{
		{"no error", 1, nil, false},
		{"network error on first attempt", 1, netErr, true},
		{"wrapped network error", 1, errors.Join(errors.New("outer"), netErr), true},
		{"network error after budget", 2, netErr, false},
		{"application error", 1, appErr, false},
		{"plain error", 1, errors.New("boom"), false},
		{"configuration error", 1, &ConfigurationError{Field: "endpoint", Message: "missing"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.ShouldRetry(tt.attempt, tt.err))
		})
	}
}

func TestRetryPolicy_BaseDelay(t *testing.T) {
	policy := NewRetryPolicy(RetryConfig{
		MaxAttempts:  10,
		InitialDelay: 300 * time.Millisecond,
		MaxDelay:     2000 * time.Millisecond,
	})

	assert.Equal(t, 300*time.Millisecond, policy.BaseDelay(1))
	assert.Equal(t, 600*time.Millisecond, policy.BaseDelay(2))
	assert.Equal(t, 1200*time.Millisecond, policy.BaseDelay(3))
	assert.Equal(t, 2000*time.Millisecond, policy.BaseDelay(4))
	assert.Equal(t, 2000*time.Millisecond, policy.BaseDelay(50))

	prev := time.Duration(0)
	for n := 1; n <= 20; n++ {
		d := policy.BaseDelay(n)
		assert.GreaterOrEqual(t, d, prev, "delay for retry %d decreased", n)
		assert.LessOrEqual(t, d, 2000*time.Millisecond)
		prev = d
	}
}

func TestRetryPolicy_NextRetryDelayJitterBounds(t *testing.T) {
	policy := NewRetryPolicy(DefaultRetryConfig())

	for _, r := range []float64{0, 0.25, 0.5, 0.999} {
		policy.random = func() float64 { return r }
		for n := 1; n <= 6; n++ {
			base := policy.BaseDelay(n)
			d := policy.NextRetryDelay(n)
			assert.GreaterOrEqual(t, d, base/2)
			assert.LessOrEqual(t, d, base)
			assert.LessOrEqual(t, d, DefaultMaxDelay)
		}
	}
}

func TestRetryPolicy_NoJitter(t *testing.T) {
	policy := NewRetryPolicy(RetryConfig{MaxAttempts: 2, InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second})

	assert.Equal(t, 100*time.Millisecond, policy.NextRetryDelay(1))
	assert.Equal(t, 200*time.Millisecond, policy.NextRetryDelay(2))
}

type recordedSleeps struct {
	delays []time.Duration
}

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func TestRetryLink_NetworkErrorExhaustsBudget(t *testing.T) {
	rec := observability.NewRecorder()
	sleeps := &recordedSleeps{}
	link := retryLink(NewRetryPolicy(DefaultRetryConfig()), sleeps.sleep, rec, nil)

	attempts := 0
	first := &NetworkError{Message: "first failure"}
	second := &NetworkError{Message: "second failure"}
	next := func(context.Context, Request) (*Response, error) {
		attempts++
		if attempts == 1 {
			return nil, first
		}
		return nil, second
	}

	resp, err := link(context.Background(), NewRequest(Operation{Name: "Me"}), next)

	assert.Nil(t, resp)
	assert.Same(t, second, err)
	assert.Equal(t, 2, attempts)
	require.Len(t, sleeps.delays, 1)
	assert.GreaterOrEqual(t, sleeps.delays[0], DefaultInitialDelay/2)
	assert.LessOrEqual(t, sleeps.delays[0], DefaultInitialDelay)

	events := rec.Find(scopeRetry, "retrying")
	require.Len(t, events, 1)
	assert.Equal(t, "Me", events[0].Fields["operation"])
	assert.Equal(t, 1, events[0].Fields["attempt"])
}

func TestRetryLink_RecoversOnSecondAttempt(t *testing.T) {
	sleeps := &recordedSleeps{}
	link := retryLink(NewRetryPolicy(DefaultRetryConfig()), sleeps.sleep, observability.NopObserver{}, nil)

	attempts := 0
	want := &Response{Data: []byte(`{"ok":true}`)}
	next := func(context.Context, Request) (*Response, error) {
		attempts++
		if attempts == 1 {
			return nil, &NetworkError{Message: "reset"}
		}
		return want, nil
	}

	resp, err := link(context.Background(), NewRequest(Operation{Name: "Me"}), next)

	require.NoError(t, err)
	assert.Same(t, want, resp)
	assert.Equal(t, 2, attempts)
}

func TestRetryLink_ApplicationErrorNotRetried(t *testing.T) {
	rec := observability.NewRecorder()
	sleeps := &recordedSleeps{}
	link := retryLink(NewRetryPolicy(DefaultRetryConfig()), sleeps.sleep, rec, nil)

	attempts := 0
	next := func(context.Context, Request) (*Response, error) {
		attempts++
		return &Response{Errors: []GraphQLError{{Message: "bad input"}}}, nil
	}

	resp, err := link(context.Background(), NewRequest(Operation{Name: "AuthLogin"}), next)

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Len(t, resp.Errors, 1)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, sleeps.delays)
	assert.Zero(t, rec.Count(scopeRetry, "retrying"))
}

func TestRetryLink_StopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	link := retryLink(NewRetryPolicy(DefaultRetryConfig()), sleepContext, observability.NopObserver{}, nil)

	attempts := 0
	next := func(context.Context, Request) (*Response, error) {
		attempts++
		return nil, &NetworkError{Message: "down"}
	}

	_, err := link(ctx, NewRequest(Operation{Name: "Me"}), next)

	assert.True(t, IsNetworkError(err))
	assert.Equal(t, 1, attempts)
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
