// internal/database/models.go
package database

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"sonarboard/internal/normalize"
)

// SuppressionRecord is the durable form of the suppression set.
type SuppressionRecord struct {
	Accounts []string `json:"accounts"`
}

// UnmarshalJSON accepts account ids written as strings or numbers. Entries
// that are neither are dropped.
func (r *SuppressionRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		Accounts []json.RawMessage `json:"accounts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Accounts = make([]string, 0, len(raw.Accounts))
	for _, item := range raw.Accounts {
		if id, ok := recordID(item); ok {
			r.Accounts = append(r.Accounts, id)
		}
	}
	return nil
}

func recordID(item json.RawMessage) (string, bool) {
	item = bytes.TrimSpace(item)
	if len(item) == 0 {
		return "", false
	}

	switch c := item[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return "", false
		}
		s = strings.TrimSpace(s)
		return s, s != ""
	case c == '-' || (c >= '0' && c <= '9'):
		var n json.Number
		if err := json.Unmarshal(item, &n); err != nil {
			return "", false
		}
		return normalize.NumericID(n.String()), true
	default:
		return "", false
	}
}

// PersistenceError reports a failure to read or write the durable record.
type PersistenceError struct {
	Op       string
	Location string
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s %s: %v", e.Op, e.Location, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistenceError reports whether err wraps a *PersistenceError.
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

func normalizeRecord(record *SuppressionRecord) *SuppressionRecord {
	if record == nil {
		return &SuppressionRecord{Accounts: []string{}}
	}
	if record.Accounts == nil {
		record.Accounts = []string{}
	}
	return record
}
