package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/set-night/shareit/internal/domain"
	"github.com/set-night/shareit/internal/metrics"
)

// Retrier re-runs store units that failed for transient reasons. Caller
// errors, conflicts and context cancellation are returned immediately.
type Retrier struct {
	attempts uint
	maxWait  time.Duration
	metrics  *metrics.Metrics
}

func NewRetrier(attempts uint, maxWait time.Duration, m *metrics.Metrics) *Retrier {
	if attempts == 0 {
		attempts = 1
	}
	return &Retrier{attempts: attempts, maxWait: maxWait, metrics: m}
}

func (r *Retrier) Do(ctx context.Context, op string, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	if r.maxWait > 0 {
		b.MaxInterval = r.maxWait
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := fn()
		if err != nil && !retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(r.attempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			r.metrics.RecordRetry(op)
			slog.Warn("retrying store operation", "op", op, "error", err, "wait", wait)
		}),
	)
	return err
}

func retryable(err error) bool {
	if domain.IsValidation(err) || domain.IsConflict(err) {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
