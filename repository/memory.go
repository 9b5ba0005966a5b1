package repository

import (
	"crypto/rand"
	"fmt"

	"github.com/sambhavthakkar/archivevault/internal/chunk"
	"github.com/sambhavthakkar/archivevault/internal/chunker"
	"github.com/sambhavthakkar/archivevault/internal/index"
	"github.com/sambhavthakkar/archivevault/internal/manifest"
	"github.com/sambhavthakkar/archivevault/internal/observability"
	"github.com/sambhavthakkar/archivevault/internal/pipeline"
	"github.com/sambhavthakkar/archivevault/internal/segment"
)

// OpenMemory constructs the in-memory backend, used by tests and
// ephemeral scenarios: no files are touched, and the repository's
// resources are released entirely by garbage collection once Close is
// called.
//
// masterKey may be nil, in which case a fresh random key is generated --
// convenient for tests and scratch repositories that have no passphrase to
// protect. pipelineCfg's zero value asks the pipeline to pick its own
// worker count/queue depth defaults.
func OpenMemory(masterKey []byte, settings chunk.Settings, chunkCfg chunker.Settings, pipelineCfg pipeline.Config, log *observability.Logger) (*Repository, error) {
	if masterKey == nil {
		masterKey = make([]byte, 32)
		if _, err := rand.Read(masterKey); err != nil {
			return nil, fmt.Errorf("repository: generate master key: %w", err)
		}
	}

	backend := &Backend{
		Segments:  segment.NewMemoryStore(),
		Index:     index.NewMemory(),
		Manifest:  manifest.NewMemoryLog(masterKey),
		MasterKey: masterKey,
	}
	return New(backend, settings, chunkCfg, pipelineCfg, log), nil
}
