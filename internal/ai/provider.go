package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRateLimited marks a provider response that asked the caller to slow down.
	ErrRateLimited = errors.New("provider rate limited")
	// ErrEmbeddingFailure is returned once an embedding call cannot be completed.
	ErrEmbeddingFailure = errors.New("embedding failed")
	// ErrGenerationFailure is returned once a completion call cannot be completed.
	ErrGenerationFailure = errors.New("generation failed")
)

// Embedder maps text to a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Completer runs a single prompt through a text-generation model.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

type CompletionRequest struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// StatusError is a non-2xx provider response.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s response status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}

// IsRateLimited reports whether err carries a rate-limit signal.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
