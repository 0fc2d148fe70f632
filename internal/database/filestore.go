// internal/database/filestore.go - JSON file backend for the suppression record
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps the record as a single indented JSON document. Writes go
// to a temp file in the same directory which is synced and renamed into
// place.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, &PersistenceError{Op: "mkdir", Location: path, Err: err}
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) LoadRecord(ctx context.Context) (*SuppressionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		empty := normalizeRecord(nil)
		if err := s.write(empty); err != nil {
			return nil, &PersistenceError{Op: "create", Location: s.path, Err: err}
		}
		return empty, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "load", Location: s.path, Err: err}
	}

	var record SuppressionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, &PersistenceError{Op: "load", Location: s.path, Err: fmt.Errorf("failed to parse record: %w", err)}
	}
	return normalizeRecord(&record), nil
}

func (s *FileStore) SaveRecord(ctx context.Context, record *SuppressionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(normalizeRecord(record)); err != nil {
		return &PersistenceError{Op: "save", Location: s.path, Err: err}
	}
	return nil
}

func (s *FileStore) write(record *SuppressionRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace record: %w", err)
	}
	return nil
}

func (s *FileStore) Location() string {
	return s.path
}

func (s *FileStore) Close() error {
	return nil
}
