package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy retries an operation a bounded number of times. Backoff receives the
// number of failed attempts so far (starting at 1) and returns the wait before
// the next attempt. A nil Retryable retries every error.
type Policy struct {
	MaxAttempts int
	Backoff     func(failures int) time.Duration
	Retryable   func(err error) bool
	Sleep       func(ctx context.Context, d time.Duration) error
}

// ExhaustedError is returned when every attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Exponential doubles the wait after every failure: base, 2*base, 4*base ...
func Exponential(base time.Duration) func(int) time.Duration {
	return func(failures int) time.Duration {
		if failures < 1 {
			failures = 1
		}
		return base << (failures - 1)
	}
}

// Constant waits the same duration after every failure.
func Constant(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration {
		return d
	}
}

// Do runs fn until it succeeds, returns a non-retryable error, or MaxAttempts is reached.
// Cancellation and deadline errors, and a done ctx, are never retried.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if isContextError(err) || ctx.Err() != nil {
			return err
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		var wait time.Duration
		if p.Backoff != nil {
			wait = p.Backoff(attempt)
		}
		if err := sleep(ctx, wait); err != nil {
			return errors.Join(lastErr, err)
		}
	}
	return &ExhaustedError{Attempts: attempts, Err: lastErr}
}

// SleepContext blocks for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Recorder is a Sleep implementation that records waits instead of blocking.
type Recorder struct {
	Waits []time.Duration
}

func (r *Recorder) Sleep(_ context.Context, d time.Duration) error {
	r.Waits = append(r.Waits, d)
	return nil
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
