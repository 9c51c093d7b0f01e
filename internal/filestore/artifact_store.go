package filestore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"examgen/internal/model"
)

const (
	// CombinedCorpus names the artifact produced by Merge.
	CombinedCorpus = "all_chunks_combined"

	artifactSuffix = "_chunks.json"
)

// ArtifactStore persists each document's chunk records as an indented JSON list.
type ArtifactStore struct {
	dir string
}

func NewArtifactStore(dir string) (*ArtifactStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir failed: %w", err)
	}
	return &ArtifactStore{dir: dir}, nil
}

// Path returns the artifact file for a document name or for CombinedCorpus.
func (s *ArtifactStore) Path(document string) string {
	if document == CombinedCorpus {
		return filepath.Join(s.dir, CombinedCorpus+".json")
	}
	base := strings.TrimSuffix(document, filepath.Ext(document))
	return filepath.Join(s.dir, base+artifactSuffix)
}

// Save replaces the document's artifact and returns the SHA-256 of the bytes written.
func (s *ArtifactStore) Save(document string, records []model.ChunkRecord) (string, error) {
	if records == nil {
		records = []model.ChunkRecord{}
	}
	payload, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal chunk artifact failed: %w", err)
	}
	if err := writeAtomic(s.Path(document), func(w io.Writer) error {
		_, err := w.Write(payload)
		return err
	}); err != nil {
		return "", err
	}
	return contentHash(payload), nil
}

// Load reads a document's artifact together with the hash of its bytes.
func (s *ArtifactStore) Load(document string) ([]model.ChunkRecord, string, error) {
	payload, err := os.ReadFile(s.Path(document))
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", fmt.Errorf("%w: no chunks for %s", ErrNotFound, document)
	}
	if err != nil {
		return nil, "", fmt.Errorf("read chunk artifact failed: %w", err)
	}

	var records []model.ChunkRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, "", fmt.Errorf("decode chunk artifact failed: %w", err)
	}
	return records, contentHash(payload), nil
}

func (s *ArtifactStore) Exists(document string) bool {
	info, err := os.Stat(s.Path(document))
	return err == nil && !info.IsDir()
}

// Merge concatenates every per-document artifact, in file name order, into
// the CombinedCorpus artifact and returns the number of records written.
func (s *ArtifactStore) Merge() (int, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*"+artifactSuffix))
	if err != nil {
		return 0, fmt.Errorf("list chunk artifacts failed: %w", err)
	}
	sort.Strings(matches)

	var all []model.ChunkRecord
	for _, path := range matches {
		payload, err := os.ReadFile(path)
		if err != nil {
			return 0, fmt.Errorf("read %s failed: %w", filepath.Base(path), err)
		}
		var records []model.ChunkRecord
		if err := json.Unmarshal(payload, &records); err != nil {
			return 0, fmt.Errorf("decode %s failed: %w", filepath.Base(path), err)
		}
		all = append(all, records...)
	}

	if _, err := s.Save(CombinedCorpus, all); err != nil {
		return 0, err
	}
	return len(all), nil
}

func contentHash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
