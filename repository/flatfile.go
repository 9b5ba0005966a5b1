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

// FlatFile is a lighter single-directory layout than MultiFile: the
// manifest's transaction files sit directly in dir rather than under their
// own subdirectory, with the bolt index file and key alongside them; only
// segment files get a subdirectory (seg/). This suits small, single-operator repositories where a
// nested directory tree is unnecessary ceremony; MultiFile remains the
// default for anything shared across processes, since its isolated
// subdirectories make the per-concern file-locking story easier to reason
// about (the manifest's advisory lock in particular, which enumerates
// every file in its directory on open).
const flatFileKeyName = "key"

// OpenFlatFile opens (creating if absent) a flat-layout repository rooted
// at dir. Manifest transaction files live in dir alongside the fixed-name
// index.bolt and key files; segment files use the same zero-padded numeric
// naming, so they are kept in the seg/ subdirectory.
func OpenFlatFile(dir string, passphrase string, settings chunk.Settings, chunkCfg chunker.Settings, segmentMaxSize uint64, pipelineCfg pipeline.Config, log *observability.Logger) (*Repository, error) {
	if log == nil {
		log = observability.NewLogger("archivevault", "dev", nil)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("repository: create repository dir: %w", err)
	}

	keyPath := filepath.Join(dir, flatFileKeyName)
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

	// Segment frames and manifest transactions both live directly under
	// dir; segment.Store and manifest.Log each only look at filenames that
	// parse as a bare integer, so the two numeric sequences coexisting in
	// one directory would collide. Flat layout instead gives segments a
	// one-level subdirectory purely to dodge that collision, while index
	// and key stay at dir's top level as fixed-name files.
	segments, err := segment.Open(filepath.Join(dir, "seg"), segmentMaxSize)
	if err != nil {
		return nil, fmt.Errorf("repository: open segments: %w", err)
	}

	idx, err := index.OpenBolt(filepath.Join(dir, multiFileIndexName))
	if err != nil {
		return nil, fmt.Errorf("repository: open index: %w", err)
	}

	manifestLog, persistedSettings, err := manifest.Open(dir, masterKey, settings, isNew, log)
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
