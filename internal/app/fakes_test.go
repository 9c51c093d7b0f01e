package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"examgen/internal/ai"
	"examgen/internal/filestore"
	"examgen/internal/model"
	"examgen/internal/pkg/pdfextract"
	"examgen/internal/pkg/retry"
)

type fakeDocs struct {
	files map[string]string
}

func (f *fakeDocs) Open(name string) (io.ReadCloser, error) {
	body, ok := f.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", filestore.ErrNotFound, name)
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

type fakeExtractor struct {
	pages []pdfextract.Page
	err   error
}

func (f *fakeExtractor) Extract(context.Context, io.Reader) ([]pdfextract.Page, error) {
	return f.pages, f.err
}

type fakeArtifacts struct {
	mu      sync.Mutex
	saved   map[string][]model.ChunkRecord
	hashes  map[string]string
	loads   int
	saveErr error
}

func newFakeArtifacts() *fakeArtifacts {
	return &fakeArtifacts{saved: map[string][]model.ChunkRecord{}, hashes: map[string]string{}}
}

func (f *fakeArtifacts) Save(document string, records []model.ChunkRecord) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.saved[document] = records
	f.hashes[document] = fmt.Sprintf("hash-%s-%d", document, len(records))
	return f.hashes[document], nil
}

func (f *fakeArtifacts) Load(document string) ([]model.ChunkRecord, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	records, ok := f.saved[document]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", filestore.ErrNotFound, document)
	}
	return records, f.hashes[document], nil
}

func (f *fakeArtifacts) Exists(document string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.saved[document]
	return ok
}

// vectorEmbedder returns fixed vectors per text, a default vector otherwise,
// and fails for texts listed in fail.
type vectorEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	fail    map[string]error
	calls   []string
}

func (e *vectorEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, text)
	if err, ok := e.fail[text]; ok {
		return nil, err
	}
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0}, nil
}

type scriptedCompleter struct {
	responses []string
	errs      []error
	requests  []ai.CompletionRequest
}

func (c *scriptedCompleter) Complete(_ context.Context, req ai.CompletionRequest) (string, error) {
	c.requests = append(c.requests, req)
	i := len(c.requests) - 1
	if i < len(c.errs) && c.errs[i] != nil {
		return "", c.errs[i]
	}
	if i < len(c.responses) {
		return c.responses[i], nil
	}
	if len(c.responses) > 0 {
		return c.responses[len(c.responses)-1], nil
	}
	return "", errors.New("no scripted response")
}

type fakeRetriever struct {
	chunks  []model.RetrievedChunk
	err     error
	queries []string
	ks      []int
}

func (r *fakeRetriever) Retrieve(_ context.Context, _ string, query string, k int) ([]model.RetrievedChunk, error) {
	r.queries = append(r.queries, query)
	r.ks = append(r.ks, k)
	return r.chunks, r.err
}

func instantPolicy(p retry.Policy) (retry.Policy, *retry.Recorder) {
	rec := &retry.Recorder{}
	p.Sleep = rec.Sleep
	return p, rec
}

func repeatWords(word string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = word
	}
	return strings.Join(parts, " ")
}
