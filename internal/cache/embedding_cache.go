package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// EmbeddingCache stores query embeddings in Redis under a content-derived key.
type EmbeddingCache struct {
	client *redisv9.Client
	prefix string
	ttl    time.Duration
}

func NewEmbeddingCache(client *redisv9.Client, prefix string, ttl time.Duration) *EmbeddingCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if prefix == "" {
		prefix = "examgen:embedding"
	}
	return &EmbeddingCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *EmbeddingCache) GetVector(ctx context.Context, key string) ([]float32, bool, error) {
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get embedding failed: %w", err)
	}

	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached embedding failed: %w", err)
	}
	if len(vec) == 0 {
		return nil, false, nil
	}
	return vec, true, nil
}

func (c *EmbeddingCache) SetVector(ctx context.Context, key string, vec []float32) error {
	payload, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("marshal embedding cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.key(key), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set embedding failed: %w", err)
	}
	return nil
}

func (c *EmbeddingCache) key(k string) string {
	return fmt.Sprintf("%s:%s", c.prefix, k)
}
