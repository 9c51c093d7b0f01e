package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"examgen/internal/ai"
	"examgen/internal/model"
	"examgen/internal/pkg/chunker"
	"examgen/internal/pkg/pdfextract"
	"examgen/internal/pkg/retry"
)

const defaultPageBatchSize = 10

type DocumentOpener interface {
	Open(name string) (io.ReadCloser, error)
}

type ArtifactWriter interface {
	Save(document string, records []model.ChunkRecord) (string, error)
}

type TextExtractor interface {
	Extract(ctx context.Context, r io.Reader) ([]pdfextract.Page, error)
}

// IngestResult summarises one ingestion run.
type IngestResult struct {
	Document      string `json:"document"`
	Pages         int    `json:"pages"`
	ChunkCount    int    `json:"chunk_count"`
	PagesSkipped  int    `json:"pages_skipped"`
	ChunksDropped int    `json:"chunks_dropped"`
	ContentHash   string `json:"content_hash"`
}

// IngestService turns a stored PDF into a persisted list of embedded chunks.
type IngestService struct {
	docs          DocumentOpener
	artifacts     ArtifactWriter
	extractor     TextExtractor
	embedder      ai.Embedder
	chunkWords    int
	pageBatchSize int
	chunkPolicy   retry.Policy
	newID         func() string
	logger        *slog.Logger
}

type IngestOption func(*IngestService)

func WithChunkWords(n int) IngestOption {
	return func(s *IngestService) {
		if n > 0 {
			s.chunkWords = n
		}
	}
}

func WithPageBatchSize(n int) IngestOption {
	return func(s *IngestService) {
		if n > 0 {
			s.pageBatchSize = n
		}
	}
}

// WithChunkRetry replaces the per-chunk embedding retry policy.
func WithChunkRetry(p retry.Policy) IngestOption {
	return func(s *IngestService) { s.chunkPolicy = p }
}

func WithIDGenerator(fn func() string) IngestOption {
	return func(s *IngestService) { s.newID = fn }
}

func WithIngestLogger(l *slog.Logger) IngestOption {
	return func(s *IngestService) { s.logger = l }
}

func NewIngestService(
	docs DocumentOpener,
	artifacts ArtifactWriter,
	extractor TextExtractor,
	embedder ai.Embedder,
	opts ...IngestOption,
) *IngestService {
	s := &IngestService{
		docs:          docs,
		artifacts:     artifacts,
		extractor:     extractor,
		embedder:      embedder,
		chunkWords:    chunker.DefaultMaxWords,
		pageBatchSize: defaultPageBatchSize,
		chunkPolicy: retry.Policy{
			MaxAttempts: 3,
			Backoff:     retry.Constant(time.Second),
			Retryable:   func(err error) bool { return !isContextError(err) },
		},
		newID:  uuid.NewString,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest extracts, chunks and embeds document, then replaces its artifact.
// Failed chunks and pages are skipped; only an empty result is an error.
func (s *IngestService) Ingest(ctx context.Context, document string) (*IngestResult, error) {
	rc, err := s.docs.Open(document)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	pages, err := s.extractor.Extract(ctx, rc)
	if err != nil {
		return nil, fmt.Errorf("extract %s failed: %w", document, err)
	}

	result := &IngestResult{Document: document, Pages: len(pages)}
	source := filepath.Base(document)
	var records []model.ChunkRecord
	dim := 0

	for start := 0; start < len(pages); start += s.pageBatchSize {
		end := start + s.pageBatchSize
		if end > len(pages) {
			end = len(pages)
		}
		s.logger.Info("ingest batch", "document", document, "pages_from", pages[start].Number, "pages_to", pages[end-1].Number)

		for _, page := range pages[start:end] {
			pageRecords, dropped, err := s.processPage(ctx, source, page, &dim)
			if isContextError(err) {
				return nil, err
			}
			result.ChunksDropped += dropped
			if err != nil {
				result.PagesSkipped++
				s.logger.Warn("page skipped", "document", document, "page", page.Number, "error", err)
				continue
			}
			records = append(records, pageRecords...)
		}
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoExtractableContent, document)
	}

	hash, err := s.artifacts.Save(document, records)
	if err != nil {
		return nil, fmt.Errorf("save chunk artifact failed: %w", err)
	}
	result.ChunkCount = len(records)
	result.ContentHash = hash

	s.logger.Info("ingest finished",
		"document", document,
		"chunks", result.ChunkCount,
		"pages_skipped", result.PagesSkipped,
		"chunks_dropped", result.ChunksDropped,
	)
	return result, nil
}

func (s *IngestService) processPage(ctx context.Context, source string, page pdfextract.Page, dim *int) (records []model.ChunkRecord, dropped int, err error) {
	defer func() {
		if r := recover(); r != nil {
			records = nil
			err = fmt.Errorf("page %d panicked: %v", page.Number, r)
		}
	}()

	for i, chunk := range chunker.Split(page.Text, s.chunkWords) {
		vec, err := s.embedChunk(ctx, chunk)
		if isContextError(err) {
			return nil, dropped, err
		}
		if err == nil && *dim != 0 && len(vec) != *dim {
			err = fmt.Errorf("embedding dimension %d, corpus has %d", len(vec), *dim)
		}
		if err != nil {
			dropped++
			s.logger.Warn("chunk dropped", "source", source, "page", page.Number, "chunk", i, "error", err)
			continue
		}
		if *dim == 0 {
			*dim = len(vec)
		}
		records = append(records, model.ChunkRecord{
			ID:        s.newID(),
			Source:    source,
			Page:      page.Number,
			Chunk:     chunk,
			Embedding: vec,
		})
	}
	return records, dropped, nil
}

func (s *IngestService) embedChunk(ctx context.Context, chunk string) ([]float32, error) {
	var vec []float32
	err := s.chunkPolicy.Do(ctx, func(ctx context.Context) error {
		var err error
		vec, err = s.embedder.Embed(ctx, chunk)
		return err
	})
	return vec, err
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
