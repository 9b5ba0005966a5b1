// Package index maps chunk ids to their segment location.
// Two backends are provided: an in-memory map with no persistence, and a
// bbolt-backed map that survives repository reopen.
package index

import (
	"github.com/sambhavthakkar/archivevault/internal/chunk"
	"github.com/sambhavthakkar/archivevault/internal/segment"
)

// Index is the capability the repository façade depends on. Lookup/Set form
// a total map; Set on an id that already exists is a no-op (first writer
// wins -- a well-formed index never sees two different descriptors for
// the same id, so callers never need Set's return value to detect a
// "collision").
type Index interface {
	Lookup(id chunk.ID) (segment.Descriptor, bool)
	Set(id chunk.ID, desc segment.Descriptor)
	KnownChunks() map[chunk.ID]struct{}
	Count() int
	Commit() error
	Close() error
}
