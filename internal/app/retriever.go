package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"examgen/internal/ai"
	"examgen/internal/filestore"
	"examgen/internal/model"
	"examgen/internal/vectorindex"
)

const DefaultTopK = 5

type ArtifactLoader interface {
	Load(document string) ([]model.ChunkRecord, string, error)
}

// Retriever answers nearest-chunk queries against one document's artifact.
// With a cache the index for a document is rebuilt only when its artifact
// content hash changes.
type Retriever struct {
	artifacts ArtifactLoader
	embedder  ai.Embedder
	cache     *vectorindex.Cache
	logger    *slog.Logger
}

func NewRetriever(artifacts ArtifactLoader, embedder ai.Embedder, cache *vectorindex.Cache, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{artifacts: artifacts, embedder: embedder, cache: cache, logger: logger}
}

// Retrieve returns up to k chunks of document ordered by ascending distance to
// query. k <= 0 means DefaultTopK.
func (r *Retriever) Retrieve(ctx context.Context, document, query string, k int) ([]model.RetrievedChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", ErrInvalidInput)
	}
	if k <= 0 {
		k = DefaultTopK
	}

	records, hash, err := r.artifacts.Load(document)
	if err != nil && !errors.Is(err, filestore.ErrNotFound) {
		return nil, err
	}
	if len(records) == 0 {
		r.forget(document)
		return nil, fmt.Errorf("%w: %s has no chunks", ErrNoRelevantContent, document)
	}

	idx, err := r.index(document, hash, records)
	if err != nil {
		return nil, err
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := idx.Search(vec, k)
	if err != nil {
		return nil, fmt.Errorf("search %s failed: %w", document, err)
	}
	if len(hits) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRelevantContent, document)
	}

	out := make([]model.RetrievedChunk, 0, len(hits))
	for _, h := range hits {
		rec := records[h.Position]
		out = append(out, model.RetrievedChunk{
			ID:       rec.ID,
			Text:     rec.Chunk,
			Source:   rec.Source,
			Page:     rec.Page,
			Distance: h.Distance,
		})
	}
	return out, nil
}

func (r *Retriever) index(document, hash string, records []model.ChunkRecord) (*vectorindex.FlatIndex, error) {
	build := func() (*vectorindex.FlatIndex, error) {
		vectors := make([][]float32, len(records))
		for i, rec := range records {
			vectors[i] = rec.Embedding
		}
		idx, err := vectorindex.Build(vectors)
		if err != nil {
			return nil, fmt.Errorf("build index for %s failed: %w", document, err)
		}
		r.logger.Info("vector index built", "document", document, "chunks", idx.Len(), "dim", idx.Dim())
		return idx, nil
	}
	if r.cache == nil {
		return build()
	}
	return r.cache.GetOrBuild(document, hash, build)
}

// forget drops a cached index whose artifact is gone or empty.
func (r *Retriever) forget(document string) {
	if r.cache != nil {
		r.cache.Invalidate(document)
	}
}
