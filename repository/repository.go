// Package repository implements C8, the public-facing façade: dedup-aware
// chunk writes/reads, and the archive-level API built on top of them. Every
// other package is internal, so this is the only package code outside this
// module can import; cmd/archivectl, inside the module, also uses internal
// packages directly.
package repository

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sambhavthakkar/archivevault/internal/archive"
	"github.com/sambhavthakkar/archivevault/internal/chunk"
	"github.com/sambhavthakkar/archivevault/internal/chunker"
	"github.com/sambhavthakkar/archivevault/internal/observability"
	"github.com/sambhavthakkar/archivevault/internal/pipeline"
	"github.com/sambhavthakkar/archivevault/internal/repoerr"
)

// Repository is the façade: one open repository, backed by a Backend, with
// a running pipeline for off-goroutine chunk packing.
type Repository struct {
	backend  *Backend
	settings chunk.Settings
	chunkCfg chunker.Settings
	pipeline *pipeline.Pipeline
	log      *observability.Logger

	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// New wraps an already-constructed Backend into a Repository. Concrete
// constructors (OpenMultiFile, OpenFlatFile, OpenMemory) call this once
// they've assembled the backend. pipelineCfg is forwarded to
// pipeline.New verbatim; its zero value asks the pipeline to pick its own
// defaults (runtime.NumCPU() workers, pipeline.QueueDepth).
func New(backend *Backend, settings chunk.Settings, chunkCfg chunker.Settings, pipelineCfg pipeline.Config, log *observability.Logger) *Repository {
	if log == nil {
		log = observability.NewLogger("archivevault", "dev", nil)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Repository{
		backend:  backend,
		settings: settings,
		chunkCfg: chunkCfg,
		pipeline: pipeline.New(ctx, log, pipelineCfg),
		log:      log,
		cancel:   cancel,
	}
}

// WriteChunk implements the C8 write path: compute the plaintext-keyed id,
// skip packing entirely on a dedup hit, otherwise pack off-goroutine via
// the pipeline and persist the result to segment storage plus the index.
func (r *Repository) WriteChunk(ctx context.Context, plaintext []byte) (chunk.ID, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return chunk.ID{}, repoerr.ErrChannelClosed
	}
	r.mu.Unlock()

	id, err := chunk.ComputeID(plaintext, r.settings, r.backend.MasterKey)
	if err != nil {
		return chunk.ID{}, fmt.Errorf("repository: compute id: %w", err)
	}

	if _, ok := r.backend.Index.Lookup(id); ok {
		r.log.ChunkDeduplicated(hex.EncodeToString(id[:]))
		return id, nil
	}

	c, err := r.pipeline.PackWithID(ctx, id, plaintext, r.settings, r.backend.MasterKey)
	if err != nil {
		return chunk.ID{}, fmt.Errorf("repository: pack chunk: %w", err)
	}

	desc, err := r.backend.Segments.WriteChunk(c)
	if err != nil {
		return chunk.ID{}, fmt.Errorf("repository: write segment: %w", err)
	}
	r.backend.Index.Set(id, desc)
	r.log.ChunkWritten(hex.EncodeToString(id[:]), len(plaintext), len(c.Ciphertext))
	return id, nil
}

// ReadChunk implements the C8 read path: resolve the id through the index,
// fetch the frame from segment storage, and unpack it.
func (r *Repository) ReadChunk(ctx context.Context, id chunk.ID) ([]byte, error) {
	desc, ok := r.backend.Index.Lookup(id)
	if !ok {
		return nil, repoerr.ErrDataNotFound
	}
	c, err := r.backend.Segments.ReadChunk(desc)
	if err != nil {
		return nil, fmt.Errorf("repository: read segment: %w", err)
	}
	plaintext, err := chunk.Unpack(c, r.backend.MasterKey)
	if err != nil {
		return nil, fmt.Errorf("repository: unpack chunk: %w", err)
	}
	return plaintext, nil
}

// StoreObject splits r's content with the configured chunker, writes every
// resulting chunk through WriteChunk (so dedup applies per-chunk), and
// records the resulting chunk list in arch under path.
func (r *Repository) StoreObject(ctx context.Context, arch *archive.Archive, path string, content io.Reader) error {
	c, err := newChunker(r.chunkCfg)
	if err != nil {
		return err
	}
	it := c.Chunk(content)

	var locations []archive.ChunkLocation
	var cursor uint64
	for {
		piece, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("repository: split %q: %w", path, err)
		}
		id, err := r.WriteChunk(ctx, piece)
		if err != nil {
			return fmt.Errorf("repository: store chunk for %q: %w", path, err)
		}
		locations = append(locations, archive.ChunkLocation{ID: id, Start: cursor, Length: uint64(len(piece))})
		cursor += uint64(len(piece))
	}
	arch.PutObject(path, locations)
	return nil
}

// FetchObject reconstructs path's bytes from arch via ReadChunk.
func (r *Repository) FetchObject(ctx context.Context, arch *archive.Archive, path string) ([]byte, error) {
	return arch.GetObject(path, func(id chunk.ID) ([]byte, error) {
		return r.ReadChunk(ctx, id)
	})
}

// CommitArchive serializes arch as a single chunk -- archive metadata is a
// small, self-contained record rather than bulk file content, so it is
// written as one WriteChunk call rather than re-split by the
// content-defined chunker; see DESIGN.md for this Open Question
// resolution -- and commits its id as the new manifest head.
func (r *Repository) CommitArchive(ctx context.Context, arch *archive.Archive) (chunk.ID, error) {
	data, err := arch.Marshal()
	if err != nil {
		return chunk.ID{}, err
	}
	rootID, err := r.WriteChunk(ctx, data)
	if err != nil {
		return chunk.ID{}, fmt.Errorf("repository: write archive root: %w", err)
	}
	txn, err := r.backend.Manifest.WriteArchive(rootID, arch.Name, r.settings.HMAC, arch.Timestamp)
	if err != nil {
		return chunk.ID{}, fmt.Errorf("repository: commit manifest: %w", err)
	}
	r.log.ManifestCommitted(arch.Name, hex.EncodeToString(txn.Tag[:]), len(txn.PreviousHeads))
	return rootID, nil
}

// OpenArchive resolves name to its latest committed root and decodes it.
func (r *Repository) OpenArchive(ctx context.Context, name string) (*archive.Archive, error) {
	for _, sa := range r.backend.Manifest.Archives() {
		if sa.ArchiveName == name {
			data, err := r.ReadChunk(ctx, sa.ArchiveID)
			if err != nil {
				return nil, fmt.Errorf("repository: fetch archive root: %w", err)
			}
			return archive.Unmarshal(data)
		}
	}
	return nil, fmt.Errorf("repository: no such archive %q: %w", name, repoerr.ErrDataNotFound)
}

// ListArchives returns every committed archive, newest first.
func (r *Repository) ListArchives() []ArchiveInfo {
	stored := r.backend.Manifest.Archives()
	out := make([]ArchiveInfo, 0, len(stored))
	for _, sa := range stored {
		out = append(out, ArchiveInfo{Name: sa.ArchiveName, Timestamp: sa.Timestamp, RootID: sa.ArchiveID})
	}
	return out
}

// ArchiveInfo is a lightweight summary of one manifest entry, decoupled
// from the manifest package's Tag/DAG internals.
type ArchiveInfo struct {
	Name      string
	Timestamp time.Time
	RootID    chunk.ID
}

// LastModified reports the timestamp of the most recently committed archive.
func (r *Repository) LastModified() (time.Time, bool) {
	return r.backend.Manifest.LastModified()
}

// Close drains the pipeline, then closes the backend's storage handles in
// order. Not cancelable, matching the pipeline's own Close contract.
func (r *Repository) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	var firstErr error
	if err := r.pipeline.Close(); err != nil {
		firstErr = err
	}
	r.cancel()
	if err := r.backend.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func newChunker(cfg chunker.Settings) (chunker.Chunker, error) {
	return chunker.NewFastCDC(cfg)
}
