// Package filestore keeps uploaded PDFs and their chunk artifacts on local disk.
package filestore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	ErrInvalidName = errors.New("invalid document name")
	ErrNotFound    = errors.New("document not found")
)

// DocumentStore holds uploaded PDFs in a flat directory, keyed by file name.
type DocumentStore struct {
	dir string
}

func NewDocumentStore(dir string) (*DocumentStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir failed: %w", err)
	}
	return &DocumentStore{dir: dir}, nil
}

// CleanName validates a document name: a bare file name ending in .pdf.
func CleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", ErrInvalidName
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return "", fmt.Errorf("%w: only .pdf files are accepted", ErrInvalidName)
	}
	return name, nil
}

// Save writes r to name, replacing any previous upload atomically.
func (s *DocumentStore) Save(name string, r io.Reader) error {
	name, err := CleanName(name)
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(s.dir, name), func(w io.Writer) error {
		_, err := io.Copy(w, r)
		return err
	})
}

func (s *DocumentStore) Open(name string) (io.ReadCloser, error) {
	name, err := CleanName(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("open document failed: %w", err)
	}
	return f, nil
}

func (s *DocumentStore) Exists(name string) bool {
	name, err := CleanName(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(filepath.Join(s.dir, name))
	return err == nil && !info.IsDir()
}

// List returns stored PDF names sorted alphabetically.
func (s *DocumentStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read upload dir failed: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, err := CleanName(e.Name()); err == nil {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func writeAtomic(path string, write func(w io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file failed: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s failed: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file failed: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename temp file failed: %w", err)
	}
	return nil
}
