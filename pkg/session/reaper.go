package session

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/novo-auth/pkg/observability"
)

// DefaultReapSchedule runs the reaper every fifteen minutes.
const DefaultReapSchedule = "*/15 * * * *"

// Reaper periodically removes stale sessions from a store.
type Reaper struct {
	sweeper    Sweeper
	normalizer *Normalizer
	logger     *observability.Logger
	metrics    *observability.Metrics
	cron       *cron.Cron
	timeout    time.Duration
}

// NewReaper schedules sweeps of store on schedule, a standard five-field cron
// expression. Staleness is decided by normalizer.
func NewReaper(store Sweeper, normalizer *Normalizer, schedule string, logger *observability.Logger, metrics *observability.Metrics) (*Reaper, error) {
	if normalizer == nil {
		normalizer = defaultNormalizer
	}
	if schedule == "" {
		schedule = DefaultReapSchedule
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, io.Discard)
	}

	r := &Reaper{
		sweeper:    store,
		normalizer: normalizer,
		logger:     logger,
		metrics:    metrics,
		cron:       cron.New(),
		timeout:    time.Minute,
	}

	if _, err := r.cron.AddFunc(schedule, func() {
		defer observability.RecoverPanic(r.logger, "session reaper")

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if _, err := r.RunOnce(ctx); err != nil {
			r.logger.WithError(err).Error("Session sweep failed")
		}
	}); err != nil {
		return nil, fmt.Errorf("failed to schedule session reaper: %w", err)
	}

	return r, nil
}

// RunOnce sweeps the store immediately and returns how many sessions were
// removed.
func (r *Reaper) RunOnce(ctx context.Context) (int, error) {
	removed, err := r.sweeper.Sweep(ctx, func(s Session) bool {
		return r.normalizer.State(s) == StateStale
	})
	r.metrics.RecordSessionsReaped(removed)
	if removed > 0 {
		r.logger.WithField("removed", removed).Info("Reaped stale sessions")
	}
	return removed, err
}

// Start begins running scheduled sweeps.
func (r *Reaper) Start() {
	r.cron.Start()
}

// Stop halts the scheduler and waits for a running sweep to finish or ctx to
// end.
func (r *Reaper) Stop(ctx context.Context) error {
	done := r.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
