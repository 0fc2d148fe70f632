// internal/suppression/store.go - Operator-controlled account suppression
package suppression

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"sonarboard/internal/database"
)

var ErrInvalidID = errors.New("account id must not be empty")

// Set is a snapshot of suppressed account ids.
type Set map[string]struct{}

// Has reports whether id is in the set.
func (s Set) Has(id string) bool {
	_, ok := s[CanonicalID(id)]
	return ok
}

// Store owns the suppression set. Every mutation is written through to the
// backend before it returns, and mutations are serialized.
type Store struct {
	backend  database.Store
	mu       sync.RWMutex
	accounts Set
}

// Open loads the suppression set from backend.
func Open(ctx context.Context, backend database.Store) (*Store, error) {
	record, err := backend.LoadRecord(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load suppressions: %w", err)
	}

	accounts := make(Set, len(record.Accounts))
	for _, raw := range record.Accounts {
		if id := CanonicalID(raw); id != "" {
			accounts[id] = struct{}{}
		}
	}

	logrus.WithFields(logrus.Fields{
		"location": backend.Location(),
		"accounts": len(accounts),
	}).Info("Loaded suppressions")

	return &Store{backend: backend, accounts: accounts}, nil
}

// Suppress adds id to the set and persists it. Suppressing an id that is
// already present still rewrites the record.
func (s *Store) Suppress(ctx context.Context, id string) error {
	id = CanonicalID(id)
	if id == "" {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.accounts[id]
	s.accounts[id] = struct{}{}

	if err := s.saveLocked(ctx); err != nil {
		if !existed {
			delete(s.accounts, id)
		}
		return err
	}

	logrus.WithField("account_id", id).Info("Account suppressed")
	return nil
}

// Unsuppress removes id from the set and persists it. Removing an id that
// is not present is a no-op apart from the save.
func (s *Store) Unsuppress(ctx context.Context, id string) error {
	id = CanonicalID(id)
	if id == "" {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.accounts[id]
	delete(s.accounts, id)

	if err := s.saveLocked(ctx); err != nil {
		if existed {
			s.accounts[id] = struct{}{}
		}
		return err
	}

	logrus.WithField("account_id", id).Info("Account unsuppressed")
	return nil
}

// Current returns a copy of the suppression set. Changing the copy has no
// effect on the store.
func (s *Store) Current() Set {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(Set, len(s.accounts))
	for id := range s.accounts {
		out[id] = struct{}{}
	}
	return out
}

// List returns the suppressed ids sorted.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

func (s *Store) sortedLocked() []string {
	ids := make([]string, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) saveLocked(ctx context.Context) error {
	record := &database.SuppressionRecord{Accounts: s.sortedLocked()}
	if err := s.backend.SaveRecord(ctx, record); err != nil {
		logrus.WithError(err).Error("Failed to persist suppressions")
		return fmt.Errorf("failed to save suppressions: %w", err)
	}
	return nil
}

// CanonicalID is the string form used for set membership.
func CanonicalID(id string) string {
	return strings.TrimSpace(id)
}
