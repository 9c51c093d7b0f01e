package ai

import (
	"context"
	"fmt"
	"time"

	"examgen/internal/pkg/retry"
)

// RateLimitPolicy retries only on rate-limit signals: 3 attempts, waiting 1s then 2s (then 4s).
func RateLimitPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 3,
		Backoff:     retry.Exponential(time.Second),
		Retryable:   IsRateLimited,
	}
}

// RetryingEmbedder retries rate-limited calls and reports every other outcome
// as ErrEmbeddingFailure.
type RetryingEmbedder struct {
	next   Embedder
	policy retry.Policy
}

func NewRetryingEmbedder(next Embedder, policy retry.Policy) *RetryingEmbedder {
	return &RetryingEmbedder{next: next, policy: policy}
}

func (e *RetryingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := e.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		vec, err = e.next.Embed(ctx, text)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailure, err)
	}
	return vec, nil
}

// RetryingCompleter retries rate-limited calls and reports every other outcome
// as ErrGenerationFailure.
type RetryingCompleter struct {
	next   Completer
	policy retry.Policy
}

func NewRetryingCompleter(next Completer, policy retry.Policy) *RetryingCompleter {
	return &RetryingCompleter{next: next, policy: policy}
}

func (c *RetryingCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	var out string
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = c.next.Complete(ctx, req)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailure, err)
	}
	return out, nil
}
