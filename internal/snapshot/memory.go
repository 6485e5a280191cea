package snapshot

import (
	"context"
	"sync"
)

// MemoryStore keeps the snapshot in process memory. It stores the encoded
// form so callers never share slices with the stored copy.
type MemoryStore struct {
	mu      sync.RWMutex
	encoded []byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(ctx context.Context) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.encoded == nil {
		return nil, ErrNotFound
	}
	return Unmarshal(m.encoded)
}

func (m *MemoryStore) Save(ctx context.Context, s *Snapshot) error {
	b, err := Marshal(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.encoded = b
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context) error {
	m.mu.Lock()
	m.encoded = nil
	m.mu.Unlock()
	return nil
}
