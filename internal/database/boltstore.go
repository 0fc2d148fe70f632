// internal/database/boltstore.go - BoltDB backend for the suppression record
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var (
	SuppressionsBucket = []byte("suppressions")
	RecordKey          = []byte("record")
)

type BoltStore struct {
	db   *bbolt.DB
	path string
}

func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, &PersistenceError{Op: "mkdir", Location: path, Err: err}
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, &PersistenceError{Op: "open", Location: path, Err: err}
	}

	store := &BoltStore{db: db, path: path}

	if err := store.initBuckets(); err != nil {
		db.Close()
		return nil, &PersistenceError{Op: "init", Location: path, Err: err}
	}

	return store, nil
}

func (s *BoltStore) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(SuppressionsBucket); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", SuppressionsBucket, err)
		}
		return nil
	})
}

func (s *BoltStore) LoadRecord(ctx context.Context) (*SuppressionRecord, error) {
	var record SuppressionRecord

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(SuppressionsBucket)
		v := b.Get(RecordKey)
		if v == nil {
			// First start: create the empty record so the on-disk state exists.
			data, err := json.Marshal(normalizeRecord(nil))
			if err != nil {
				return fmt.Errorf("failed to marshal empty record: %w", err)
			}
			return b.Put(RecordKey, data)
		}
		if err := json.Unmarshal(v, &record); err != nil {
			return fmt.Errorf("failed to unmarshal record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, &PersistenceError{Op: "load", Location: s.path, Err: err}
	}

	return normalizeRecord(&record), nil
}

func (s *BoltStore) SaveRecord(ctx context.Context, record *SuppressionRecord) error {
	data, err := json.Marshal(normalizeRecord(record))
	if err != nil {
		return &PersistenceError{Op: "save", Location: s.path, Err: fmt.Errorf("failed to marshal record: %w", err)}
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(SuppressionsBucket).Put(RecordKey, data)
	})
	if err != nil {
		return &PersistenceError{Op: "save", Location: s.path, Err: err}
	}
	return nil
}

func (s *BoltStore) Location() string {
	return s.path
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
