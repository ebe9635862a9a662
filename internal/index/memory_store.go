// ABOUTME: MemoryStore keeps story indexes in process memory
// ABOUTME: Used by tests and for throwaway runs; contents are copied on save and load
package index

import (
	"context"
	"sync"

	"github.com/harper/storybrief/internal/models"
)

// MemoryStore is a goroutine-safe in-memory Store
type MemoryStore struct {
	mu      sync.RWMutex
	indexes map[string]*VectorIndex
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{indexes: make(map[string]*VectorIndex)}
}

// Save stores a copy of idx, replacing any previous index for the story
func (m *MemoryStore) Save(_ context.Context, idx *VectorIndex) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexes[idx.StoryID] = idx.Clone()
	return nil
}

// Load returns a copy of the stored index
func (m *MemoryStore) Load(_ context.Context, storyID string) (*VectorIndex, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, ok := m.indexes[storyID]
	if !ok {
		return nil, models.ErrIndexNotFound
	}
	return idx.Clone(), nil
}

// Exists reports whether storyID has an index
func (m *MemoryStore) Exists(_ context.Context, storyID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.indexes[storyID]
	return ok, nil
}

// Delete removes the story's index if present
func (m *MemoryStore) Delete(_ context.Context, storyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.indexes, storyID)
	return nil
}

// Clone returns a deep copy of the index
func (vi *VectorIndex) Clone() *VectorIndex {
	out := *vi
	out.Entries = make([]Entry, len(vi.Entries))
	for i, e := range vi.Entries {
		e.Vector = append([]float32(nil), e.Vector...)
		out.Entries[i] = e
	}
	out.Documents = make([]DocumentVector, len(vi.Documents))
	for i, d := range vi.Documents {
		d.Vector = append([]float32(nil), d.Vector...)
		out.Documents[i] = d
	}
	return &out
}
