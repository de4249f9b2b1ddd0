package feed

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/bobmcallan/vire-track/internal/models"
)

// Executor wraps a single feed call with bounded exponential-backoff retry.
// Throttled responses and transport failures are retried with a doubling
// delay; unknown-symbol errors propagate immediately. On exhaustion the last
// error is returned to the caller so it can decide how to degrade.
type Executor struct {
	initialInterval time.Duration
}

// NewExecutor creates an executor with a 1 second initial delay.
func NewExecutor() *Executor {
	return &Executor{initialInterval: time.Second}
}

// NewExecutorWithInterval creates an executor with a custom initial delay.
// Tests use a millisecond interval to keep retries fast.
func NewExecutorWithInterval(initial time.Duration) *Executor {
	return &Executor{initialInterval: initial}
}

// Execute invokes op, retrying up to maxRetries times (maxRetries+1 attempts
// total). Returns nil on success, the last error on exhaustion, or the
// context error if the context is cancelled mid-backoff.
func (e *Executor) Execute(ctx context.Context, op func() error, maxRetries uint64) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.initialInterval
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxElapsedTime = 0 // bounded by retry count, not wall clock

	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if errors.Is(err, models.ErrNotFound) {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.Retry(wrapped, backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx))
}
