package index

import (
	"sync"

	"github.com/sambhavthakkar/archivevault/internal/chunk"
	"github.com/sambhavthakkar/archivevault/internal/segment"
)

// Memory is the in-memory index backend: a plain guarded map with no
// persistence, used by the InMemory repository backend and by tests.
type Memory struct {
	mu      sync.RWMutex
	entries map[chunk.ID]segment.Descriptor
}

// NewMemory returns an empty in-memory index.
func NewMemory() *Memory {
	return &Memory{entries: make(map[chunk.ID]segment.Descriptor)}
}

func (m *Memory) Lookup(id chunk.ID) (segment.Descriptor, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.entries[id]
	return d, ok
}

func (m *Memory) Set(id chunk.ID, desc segment.Descriptor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[id]; exists {
		return
	}
	m.entries[id] = desc
}

func (m *Memory) KnownChunks() map[chunk.ID]struct{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[chunk.ID]struct{}, len(m.entries))
	for id := range m.entries {
		out[id] = struct{}{}
	}
	return out
}

func (m *Memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Commit is a no-op: the in-memory backend elides persistence entirely.
func (m *Memory) Commit() error { return nil }

// Close is a no-op.
func (m *Memory) Close() error { return nil }

var _ Index = (*Memory)(nil)
