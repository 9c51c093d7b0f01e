package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"examgen/internal/filestore"
	"examgen/internal/model"
)

var ErrDocumentTooLarge = errors.New("document exceeds upload size limit")

type DocumentFiles interface {
	Save(name string, r io.Reader) error
	Exists(name string) bool
	List() ([]string, error)
}

type ArtifactChecker interface {
	Exists(document string) bool
}

type DocumentStateStore interface {
	Save(state *model.DocumentState) error
	Get(name string) (*model.DocumentState, error)
	List() ([]model.DocumentState, error)
}

type Ingester interface {
	Ingest(ctx context.Context, document string) (*IngestResult, error)
}

type IngestJobPublisher interface {
	PublishIngest(ctx context.Context, job model.IngestJob) error
}

// DocumentService owns uploaded documents and their ingestion state. Without
// a publisher ingestion runs inline with the request.
type DocumentService struct {
	files     DocumentFiles
	artifacts ArtifactChecker
	states    DocumentStateStore
	ingester  Ingester
	publisher IngestJobPublisher
	maxBytes  int64
	logger    *slog.Logger
}

func NewDocumentService(
	files DocumentFiles,
	artifacts ArtifactChecker,
	states DocumentStateStore,
	ingester Ingester,
	publisher IngestJobPublisher,
	maxBytes int64,
	logger *slog.Logger,
) *DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentService{
		files:     files,
		artifacts: artifacts,
		states:    states,
		ingester:  ingester,
		publisher: publisher,
		maxBytes:  maxBytes,
		logger:    logger,
	}
}

// Upload stores a PDF, resets its state and hands it to ingestion. The
// returned state reflects the document after a synchronous run, or the
// pending state when the job was queued.
func (s *DocumentService) Upload(ctx context.Context, name string, r io.Reader) (*model.DocumentState, error) {
	name, err := filestore.CleanName(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	body, err := s.readLimited(r)
	if err != nil {
		return nil, err
	}
	if err := s.files.Save(name, bytes.NewReader(body)); err != nil {
		return nil, fmt.Errorf("store upload failed: %w", err)
	}

	state := &model.DocumentState{Name: name}
	if err := s.states.Save(state); err != nil {
		return nil, err
	}
	s.logger.Info("document uploaded", "document", name, "bytes", len(body))

	return s.Dispatch(ctx, name)
}

// Dispatch queues ingestion when a publisher is configured and processes the
// document inline otherwise.
func (s *DocumentService) Dispatch(ctx context.Context, name string) (*model.DocumentState, error) {
	if !s.files.Exists(name) {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, name)
	}
	if s.publisher == nil {
		return s.Process(ctx, name)
	}

	job := model.IngestJob{ID: uuid.NewString(), Document: name, RequestedAt: time.Now().UTC()}
	if err := s.publisher.PublishIngest(ctx, job); err != nil {
		return nil, err
	}
	s.logger.Info("ingest job queued", "document", name, "job_id", job.ID)

	state, err := s.states.Get(name)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = &model.DocumentState{Name: name}
	}
	return state, nil
}

// Process ingests name and records the outcome. A failed run leaves the
// document unprocessed and disabled with the error recorded.
func (s *DocumentService) Process(ctx context.Context, name string) (*model.DocumentState, error) {
	if !s.files.Exists(name) {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, name)
	}

	result, ingestErr := s.ingester.Ingest(ctx, name)
	if isContextError(ingestErr) {
		// Interrupted, not failed: leave the previous state for the next run.
		return nil, ingestErr
	}
	state := &model.DocumentState{Name: name}
	if ingestErr != nil {
		state.Error = ingestErr.Error()
		s.logger.Error("ingest failed", "document", name, "error", ingestErr)
	} else {
		state.Processed = true
		state.Enabled = true
		state.ChunkCount = result.ChunkCount
		state.ContentHash = result.ContentHash
	}

	if err := s.states.Save(state); err != nil {
		return nil, errors.Join(ingestErr, err)
	}
	if ingestErr != nil {
		return state, ingestErr
	}
	return state, nil
}

// List reports every stored document. A document counts as processed only
// while its artifact exists, and as enabled only when also processed.
func (s *DocumentService) List() ([]model.DocumentState, error) {
	names, err := s.files.List()
	if err != nil {
		return nil, err
	}
	states, err := s.states.List()
	if err != nil {
		return nil, err
	}
	byName := make(map[string]model.DocumentState, len(states))
	for _, st := range states {
		byName[st.Name] = st
	}

	out := make([]model.DocumentState, 0, len(names))
	for _, name := range names {
		st, ok := byName[name]
		if !ok {
			st = model.DocumentState{Name: name}
		}
		st.Processed = s.artifacts.Exists(name)
		st.Enabled = st.Enabled && st.Processed
		out = append(out, st)
	}
	return out, nil
}

// ToggleEnabled flips whether a processed document may be used for generation.
func (s *DocumentService) ToggleEnabled(name string) (*model.DocumentState, error) {
	if !s.artifacts.Exists(name) {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotProcessed, name)
	}
	state, err := s.states.Get(name)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = &model.DocumentState{Name: name}
	}
	state.Processed = true
	state.Enabled = !state.Enabled
	if err := s.states.Save(state); err != nil {
		return nil, err
	}
	s.logger.Info("document toggled", "document", name, "enabled", state.Enabled)
	return state, nil
}

// RequireEnabled fails unless name may serve retrieval and generation. The
// merged corpus has no state of its own and passes whenever it exists.
func (s *DocumentService) RequireEnabled(name string) error {
	if name == filestore.CombinedCorpus {
		if !s.artifacts.Exists(name) {
			return fmt.Errorf("%w: %s", ErrDocumentNotProcessed, name)
		}
		return nil
	}

	state, err := s.states.Get(name)
	if err != nil {
		return err
	}
	if state == nil {
		if s.files.Exists(name) {
			return fmt.Errorf("%w: %s", ErrDocumentDisabled, name)
		}
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, name)
	}
	if !state.Enabled {
		return fmt.Errorf("%w: %s", ErrDocumentDisabled, name)
	}
	if !s.artifacts.Exists(name) {
		return fmt.Errorf("%w: %s", ErrDocumentNotProcessed, name)
	}
	return nil
}

func (s *DocumentService) readLimited(r io.Reader) ([]byte, error) {
	if s.maxBytes <= 0 {
		body, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read upload failed: %w", err)
		}
		return body, nil
	}
	body, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload failed: %w", err)
	}
	if int64(len(body)) > s.maxBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrDocumentTooLarge, s.maxBytes)
	}
	return body, nil
}
