package repository

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sambhavthakkar/archivevault/internal/chunk"
	"github.com/sambhavthakkar/archivevault/internal/chunker"
	"github.com/sambhavthakkar/archivevault/internal/index"
	"github.com/sambhavthakkar/archivevault/internal/keystore"
	"github.com/sambhavthakkar/archivevault/internal/manifest"
	"github.com/sambhavthakkar/archivevault/internal/observability"
	"github.com/sambhavthakkar/archivevault/internal/pipeline"
	"github.com/sambhavthakkar/archivevault/internal/segment"
)

// MultiFile is the on-disk layout used by OpenMultiFile: separate
// subdirectories/files per concern, so each component's own file format
// (segment frames, bbolt pages, manifest transaction files) stays isolated.
//
//	<root>/segments/   append-only segment files (C5)
//	<root>/index.bolt  persistent chunk-id index (C6)
//	<root>/manifest/   hash-chained transaction log (C7)
//	<root>/key         passphrase-wrapped master key (C9)
const (
	multiFileSegmentsDir = "segments"
	multiFileIndexName   = "index.bolt"
	multiFileManifestDir = "manifest"
	multiFileKeyName     = "key"
)

// OpenMultiFile opens (creating if absent) a repository rooted at dir,
// unwrapping the master key with passphrase. A repository is considered
// new if its key file does not yet exist; in that case a fresh master key
// is generated and settings is persisted as the manifest's initial
// ChunkSettings (chunkCfg is not persisted). pipelineCfg's zero value asks the pipeline to
// pick its own worker count/queue depth defaults.
func OpenMultiFile(dir string, passphrase string, settings chunk.Settings, chunkCfg chunker.Settings, segmentMaxSize uint64, pipelineCfg pipeline.Config, log *observability.Logger) (*Repository, error) {
	if log == nil {
		log = observability.NewLogger("archivevault", "dev", nil)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("repository: create repository dir: %w", err)
	}

	keyPath := filepath.Join(dir, multiFileKeyName)
	isNew := false
	if _, err := os.Stat(keyPath); os.IsNotExist(err) {
		isNew = true
	}

	var masterKey []byte
	var err error
	if isNew {
		masterKey, err = keystore.New(keyPath, passphrase)
	} else {
		masterKey, err = keystore.Open(keyPath, passphrase)
	}
	if err != nil {
		return nil, fmt.Errorf("repository: open keystore: %w", err)
	}

	segments, err := segment.Open(filepath.Join(dir, multiFileSegmentsDir), segmentMaxSize)
	if err != nil {
		return nil, fmt.Errorf("repository: open segments: %w", err)
	}

	idx, err := index.OpenBolt(filepath.Join(dir, multiFileIndexName))
	if err != nil {
		return nil, fmt.Errorf("repository: open index: %w", err)
	}

	manifestLog, persistedSettings, err := manifest.Open(filepath.Join(dir, multiFileManifestDir), masterKey, settings, isNew, log)
	if err != nil {
		return nil, fmt.Errorf("repository: open manifest: %w", err)
	}

	backend := &Backend{
		Segments:  segments,
		Index:     idx,
		Manifest:  manifestLog,
		MasterKey: masterKey,
	}
	return New(backend, persistedSettings, chunkCfg, pipelineCfg, log), nil
}
