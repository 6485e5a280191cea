// Package snapshot persists the last complete catalog fetch.
//
// A Snapshot is written whole on every successful fetch and read on startup
// or as a fallback after a failed fetch. Stores never expose a half-written
// record: implementations swap the stored value atomically.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/catalog/internal/catalog"
)

// DefaultKey is the storage key of the catalog snapshot.
const DefaultKey = "pharma_medicines_cache"

// ErrNotFound is returned by Load when no snapshot is stored.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is a timestamped, complete copy of the catalog.
type Snapshot struct {
	Timestamp time.Time
	Headers   []string // Observed sheet headers, in source order
	Data      []catalog.Medicine
}

// Age returns how old the snapshot is at now.
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.Timestamp)
}

// Fresh reports whether the snapshot is younger than ttl at now.
// A snapshot stamped in the future is stale.
func (s *Snapshot) Fresh(now time.Time, ttl time.Duration) bool {
	age := s.Age(now)
	return age >= 0 && age < ttl
}

// Store loads and replaces the persisted snapshot.
type Store interface {
	// Load returns the stored snapshot or ErrNotFound.
	Load(ctx context.Context) (*Snapshot, error)
	// Save replaces the stored snapshot wholesale.
	Save(ctx context.Context, s *Snapshot) error
	// Delete discards the stored snapshot. Deleting nothing is not an error.
	Delete(ctx context.Context) error
}

// record is the persisted layout: {"timestamp": epoch-millis, "headers": [...], "data": [...]}.
type record struct {
	Timestamp int64              `json:"timestamp"`
	Headers   []string           `json:"headers,omitempty"`
	Data      []catalog.Medicine `json:"data"`
}

// Marshal encodes s in the persisted layout.
func Marshal(s *Snapshot) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("marshal snapshot: nil snapshot")
	}
	data := s.Data
	if data == nil {
		data = []catalog.Medicine{}
	}
	return json.Marshal(record{
		Timestamp: s.Timestamp.UnixMilli(),
		Headers:   s.Headers,
		Data:      data,
	})
}

// Unmarshal decodes the persisted layout. Raw cell numbers decode as
// json.Number so re-normalizing a raw row gives the same medicine.
func Unmarshal(b []byte) (*Snapshot, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var rec record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &Snapshot{
		Timestamp: time.UnixMilli(rec.Timestamp).UTC(),
		Headers:   rec.Headers,
		Data:      rec.Data,
	}, nil
}
