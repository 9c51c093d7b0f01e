package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
)

type VectorCache interface {
	GetVector(ctx context.Context, key string) ([]float32, bool, error)
	SetVector(ctx context.Context, key string, vec []float32) error
}

// CachingEmbedder serves repeated texts from a shared cache. Cache failures
// are logged and the call falls through to the wrapped embedder.
type CachingEmbedder struct {
	next   Embedder
	cache  VectorCache
	model  string
	logger *slog.Logger
}

func NewCachingEmbedder(next Embedder, cache VectorCache, model string, logger *slog.Logger) *CachingEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachingEmbedder{next: next, cache: cache, model: model, logger: logger}
}

func (e *CachingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := CacheKey(e.model, text)
	vec, ok, err := e.cache.GetVector(ctx, key)
	if err != nil {
		e.logger.Warn("embedding cache read failed", "error", err)
	}
	if ok {
		return vec, nil
	}

	vec, err = e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := e.cache.SetVector(ctx, key, vec); err != nil {
		e.logger.Warn("embedding cache write failed", "error", err)
	}
	return vec, nil
}

// CacheKey identifies an embedding by model and exact input text.
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}
