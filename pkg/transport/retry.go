package transport

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/platinummonkey/novo-auth/pkg/observability"
)

// Retry policy constants. They are fixed for every pipeline.
const (
	DefaultInitialDelay = 300 * time.Millisecond
	DefaultMaxDelay     = 2000 * time.Millisecond
	DefaultMaxAttempts  = 2
	DefaultJitter       = true
)

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Jitter       bool
}

// DefaultRetryConfig returns the policy every pipeline uses.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  DefaultMaxAttempts,
		InitialDelay: DefaultInitialDelay,
		MaxDelay:     DefaultMaxDelay,
		Jitter:       DefaultJitter,
	}
}

// RetryPolicy implements exponential backoff with jitter for transport
// failures.
type RetryPolicy struct {
	config RetryConfig
	random func() float64
}

// NewRetryPolicy creates a retry policy, replacing invalid values with the
// defaults.
func NewRetryPolicy(config RetryConfig) *RetryPolicy {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = DefaultInitialDelay
	}
	if config.MaxDelay < config.InitialDelay {
		config.MaxDelay = config.InitialDelay
	}

	return &RetryPolicy{
		config: config,
		random: rand.Float64,
	}
}

// Config returns the effective configuration.
func (p *RetryPolicy) Config() RetryConfig {
	return p.config
}

// ShouldRetry reports whether a failed attempt (1-based) may be retried.
// Only network errors are eligible.
func (p *RetryPolicy) ShouldRetry(attempt int, err error) bool {
	if err == nil {
		return false
	}
	if attempt >= p.config.MaxAttempts {
		return false
	}
	return IsNetworkError(err)
}

// BaseDelay is the un-jittered delay before retry n (1-based):
// InitialDelay * 2^(n-1), capped at MaxDelay. It is non-decreasing in n.
func (p *RetryPolicy) BaseDelay(retry int) time.Duration {
	if retry <= 1 {
		return p.config.InitialDelay
	}

	delay := p.config.InitialDelay
	for i := 1; i < retry; i++ {
		delay *= 2
		if delay >= p.config.MaxDelay {
			return p.config.MaxDelay
		}
	}
	return delay
}

// NextRetryDelay is BaseDelay with jitter applied: a uniform value in
// [base/2, base]. It never exceeds MaxDelay.
func (p *RetryPolicy) NextRetryDelay(retry int) time.Duration {
	base := p.BaseDelay(retry)
	if !p.config.Jitter {
		return base
	}
	half := base / 2
	return half + time.Duration(p.random()*float64(base-half))
}

type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func retryLink(policy *RetryPolicy, sleep sleepFunc, obs observability.Observer, metrics *observability.Metrics) Link {
	return func(ctx context.Context, req Request, next Handler) (*Response, error) {
		for attempt := 1; ; attempt++ {
			resp, err := next(ctx, req)
			if !policy.ShouldRetry(attempt, err) {
				return resp, err
			}
			if ctx.Err() != nil {
				return resp, err
			}

			delay := policy.NextRetryDelay(attempt)
			obs.Warn(scopeRetry, "retrying", observability.Fields{
				"operation": req.Operation.Name,
				"message":   err.Error(),
				"attempt":   attempt,
				"delay_ms":  delay.Milliseconds(),
			})
			metrics.RecordRetry(req.Operation.Name)

			if sleepErr := sleep(ctx, delay); sleepErr != nil {
				return resp, err
			}
		}
	}
}
