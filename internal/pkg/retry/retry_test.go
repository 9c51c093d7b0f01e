package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func TestExponential(t *testing.T) {
	backoff := Exponential(time.Second)
	assert.Equal(t, time.Second, backoff(1))
	assert.Equal(t, 2*time.Second, backoff(2))
	assert.Equal(t, 4*time.Second, backoff(3))
	assert.Equal(t, time.Second, backoff(0))
}

func TestPolicyDo_SucceedsAfterRetries(t *testing.T) {
	rec := &Recorder{}
	p := Policy{MaxAttempts: 3, Backoff: Exponential(time.Second), Sleep: rec.Sleep}

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.Waits)
}

func TestPolicyDo_NonRetryableStopsImmediately(t *testing.T) {
	rec := &Recorder{}
	fatal := errors.New("fatal")
	p := Policy{
		MaxAttempts: 3,
		Backoff:     Constant(time.Second),
		Retryable:   func(err error) bool { return errors.Is(err, errTransient) },
		Sleep:       rec.Sleep,
	}

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return fatal
	})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.Waits)
	var exhausted *ExhaustedError
	assert.False(t, errors.As(err, &exhausted))
}

func TestPolicyDo_Exhausted(t *testing.T) {
	rec := &Recorder{}
	p := Policy{MaxAttempts: 3, Backoff: Constant(time.Second), Sleep: rec.Sleep}

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return errTransient
	})

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, rec.Waits)
}

func TestPolicyDo_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := Policy{MaxAttempts: 3, Backoff: Constant(time.Hour)}

	err := p.Do(ctx, func(context.Context) error { return errTransient })

	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, errTransient)
}

func TestPolicyDo_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	err := Policy{}.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestPolicyDo_ContextErrorsNotRetried(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"canceled", context.Canceled},
		{"deadline", context.DeadlineExceeded},
		{"wrapped", fmt.Errorf("embed failed: %w", context.Canceled)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &Recorder{}
			calls := 0
			p := Policy{MaxAttempts: 3, Backoff: Constant(time.Second), Sleep: rec.Sleep}

			err := p.Do(context.Background(), func(context.Context) error {
				calls++
				return tt.err
			})

			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, 1, calls)
			assert.Empty(t, rec.Waits)
		})
	}
}

func TestPolicyDo_DoneContextStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rec := &Recorder{}
	calls := 0
	p := Policy{MaxAttempts: 3, Sleep: rec.Sleep}

	err := p.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, calls)
}
