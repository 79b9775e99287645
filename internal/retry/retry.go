// Package retry runs an operation with a bounded number of attempts and
// exponential backoff between them.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMaxRetries is returned when every attempt failed without producing an error
// to report, which only happens if the policy allows zero attempts.
var ErrMaxRetries = errors.New("max retries reached")

// Policy describes how many times to attempt an operation and how long to wait.
// The wait after failed attempt n (0-based) is BaseDelay * 2^n.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration

	// Sleep waits for d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry, when set, is called after a failed attempt that will be retried.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Backoff returns the wait that follows failed attempt n (0-based).
func (p Policy) Backoff(n int) time.Duration {
	return p.BaseDelay * time.Duration(1<<uint(n))
}

// Do calls op until it succeeds or MaxAttempts is exhausted, returning the
// result of the first success or the last attempt's error.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	sleep := p.Sleep
	if sleep == nil {
		sleep = wait
	}

	lastErr := ErrMaxRetries
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt == p.MaxAttempts-1 {
			break
		}
		delay := p.Backoff(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, delay, err)
		}
		if err := sleep(ctx, delay); err != nil {
			return zero, fmt.Errorf("retry interrupted after attempt %d: %w", attempt+1, errors.Join(err, lastErr))
		}
	}
	return zero, lastErr
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
