// internal/database/store.go
package database

import (
	"context"
	"fmt"
)

// Backend types accepted by Open.
const (
	TypeJSON   = "json"
	TypeBoltDB = "boltdb"
)

// Store persists the suppression record. Implementations must make a
// successful SaveRecord durable before returning.
type Store interface {
	// LoadRecord returns the stored record, creating an empty one if absent.
	LoadRecord(ctx context.Context) (*SuppressionRecord, error)

	// SaveRecord replaces the stored record.
	SaveRecord(ctx context.Context, record *SuppressionRecord) error

	// Location describes where the record lives, for logs.
	Location() string

	Close() error
}

// Open returns the backend named by storeType rooted at path.
func Open(storeType, path string) (Store, error) {
	switch storeType {
	case TypeJSON, "":
		return NewFileStore(path)
	case TypeBoltDB:
		return NewBoltStore(path)
	default:
		return nil, fmt.Errorf("unsupported database type %q", storeType)
	}
}
