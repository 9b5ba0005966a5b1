// Package repository implements C8: the repository façade that
// orchestrates deduplicated chunk writes/reads and exposes the
// archive-level API, polymorphic over a Backend (an object-safe
// trait-style backend abstraction).
package repository

import (
	"fmt"

	"github.com/sambhavthakkar/archivevault/internal/index"
	"github.com/sambhavthakkar/archivevault/internal/manifest"
	"github.com/sambhavthakkar/archivevault/internal/segment"
)

// Backend bundles the storage capabilities a Repository needs: segment
// storage, the chunk-id index, and the manifest log, plus the unwrapped
// master key. Concrete backends (MultiFile, FlatFile, InMemory) construct
// one of these and hand it to New; SFTP is intentionally not implemented
// (see DESIGN.md -- network transports are out of core scope).
type Backend struct {
	Segments  segment.StoreBackend
	Index     index.Index
	Manifest  manifest.Backend
	MasterKey []byte
}

// Close releases every resource the backend owns, in the order the
// façade's own Close documents: segments, then index, then manifest.
func (b *Backend) Close() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	record(b.Segments.Close())
	record(b.Index.Commit())
	record(b.Index.Close())
	record(b.Manifest.Close())
	if firstErr != nil {
		return fmt.Errorf("repository: close backend: %w", firstErr)
	}
	return nil
}
