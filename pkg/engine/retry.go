package engine

import (
	"context"
	"time"
)

// DefaultRetryInterval is the fixed pause between attempts of a flaky
// remote operation. The remote package manager processes installs
// asynchronously and rejects calls while busy; a fixed interval with a
// wall-clock budget is the protocol, deliberately without backoff or
// jitter.
const DefaultRetryInterval = 30 * time.Second

// DefaultTimeout is the default wall-clock retry budget per operation.
const DefaultTimeout = 600 * time.Second

// Retry runs fn until it succeeds, fails terminally, the wall-clock budget
// elapses, or the context is cancelled. Each loop tracks its own start
// time. Only transient errors are retried; anything else returns
// immediately. On an exhausted budget the last transient error is returned
// for the caller to wrap into its operation-specific kind; on cancellation
// the context error is returned.
func Retry(ctx context.Context, interval, budget time.Duration, fn func(ctx context.Context) error) error {
	start := time.Now()
	for {
		err := fn(ctx)
		if err == nil || !IsRetryable(err) {
			return err
		}
		if time.Since(start)+interval > budget {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
