package async

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"
	"time"

	"github.com/platinummonkey/novo-auth/pkg/observability"
)

// SafeGo executes a function in a goroutine with:
// - Context cancellation support
// - Panic recovery
// - Timeout enforcement
// - Error logging
//
// Use this instead of bare `go func()` so a failing background task never
// takes the gateway down. The returned channel is closed when fn returns or
// panics.
//
// Example:
//
//	SafeGo(ctx, logger, 10*time.Second, "watch Me", func(ctx context.Context) error {
//	    return client.refresh(ctx)
//	})
func SafeGo(parentCtx context.Context, logger *observability.Logger, timeout time.Duration, taskName string, fn func(context.Context) error) <-chan struct{} {
	if logger == nil {
		logger = observability.NewLogger(observability.ErrorLevel, io.Discard)
	}
	done := make(chan struct{})

	go func() {
		defer close(done)

		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				logger.WithField("task", taskName).
					WithField("panic", fmt.Sprint(r)).
					WithField("stack", string(debug.Stack())).
					Error("PANIC in background task")
			}
		}()

		if err := fn(ctx); err != nil {
			// Logged only; the caller decides whether the task mattered.
			logger.WithField("task", taskName).WithError(err).Warn("Background task failed")
		}
	}()

	return done
}

// SafeGoNoError is like SafeGo but for functions that don't return errors.
func SafeGoNoError(parentCtx context.Context, logger *observability.Logger, timeout time.Duration, taskName string, fn func(context.Context)) <-chan struct{} {
	return SafeGo(parentCtx, logger, timeout, taskName, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}
