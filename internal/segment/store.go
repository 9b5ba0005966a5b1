// Package segment implements the append-only, offset-addressable chunk
// storage: a sequence of segment files, each holding
// length-prefixed serialized chunks, capped at S_max before rotating to a
// new file.
package segment

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/sambhavthakkar/archivevault/internal/chunk"
)

// DefaultMaxSize is the default segment cap: 1 GiB (2^30 bytes), half the
// 2^31-byte ceiling. Tests that need rotation pass a smaller cap to Open.
const DefaultMaxSize = 1 << 30

// Descriptor addresses one chunk's frame: which segment file it lives in,
// and the byte offset its frame starts at. Length is intentionally omitted
// -- it is recovered from the frame's own length prefix.
type Descriptor struct {
	SegmentID uint64 `msgpack:"segment_id"`
	Start     uint64 `msgpack:"start"`
}

// Store is an append-only collection of segment files rooted at dir. One
// Store owns its directory exclusively; callers must serialize writes
// themselves or rely on the store's internal mutex, which only protects the
// in-process rotation decision, not cross-process access.
type Store struct {
	dir     string
	maxSize uint64

	mu      sync.Mutex
	current *segmentFile
	nextID  uint64
}

type segmentFile struct {
	id   uint64
	f    *os.File
	w    *bufio.Writer
	size uint64
}

// Open creates dir if needed and prepares the store to start a new
// segment on its first write; existing segment files are never appended
// to. The highest existing numeric filename determines the next segment id
// on reopen, so ids remain monotonic across process restarts.
func Open(dir string, maxSize uint64) (*Store, error) {
	if maxSize == 0 {
		maxSize = DefaultMaxSize
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("segment: create dir: %w", err)
	}

	nextID, err := nextSegmentID(dir)
	if err != nil {
		return nil, err
	}

	return &Store{dir: dir, maxSize: maxSize, nextID: nextID}, nil
}

func nextSegmentID(dir string) (uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("segment: list dir: %w", err)
	}
	var max uint64
	var found bool
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		var id uint64
		if _, err := fmt.Sscanf(e.Name(), "%d", &id); err != nil {
			continue
		}
		if !found || id > max {
			max = id
			found = true
		}
	}
	if !found {
		return 0, nil
	}
	return max + 1, nil
}

func (s *Store) path(id uint64) string {
	return filepath.Join(s.dir, fmt.Sprintf("%020d", id))
}

// WriteChunk serializes c as a length-prefixed frame and appends it,
// rotating to a new segment first if the write would exceed maxSize.
// Returns the segment id and byte offset of the frame's start.
func (s *Store) WriteChunk(c chunk.Chunk) (Descriptor, error) {
	payload, err := msgpack.Marshal(&c)
	if err != nil {
		return Descriptor{}, fmt.Errorf("segment: marshal chunk: %w", err)
	}

	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(payload)))
	frameSize := uint64(n + len(payload))

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.current.size+frameSize > s.maxSize {
		if err := s.rotateLocked(); err != nil {
			return Descriptor{}, err
		}
	}

	start := s.current.size
	if _, err := s.current.w.Write(lenBuf[:n]); err != nil {
		return Descriptor{}, fmt.Errorf("segment: write length prefix: %w", err)
	}
	if _, err := s.current.w.Write(payload); err != nil {
		return Descriptor{}, fmt.Errorf("segment: write frame: %w", err)
	}
	if err := s.current.w.Flush(); err != nil {
		return Descriptor{}, fmt.Errorf("segment: flush: %w", err)
	}
	s.current.size += frameSize

	return Descriptor{SegmentID: s.current.id, Start: start}, nil
}

func (s *Store) rotateLocked() error {
	if s.current != nil {
		if err := s.current.f.Close(); err != nil {
			return fmt.Errorf("segment: close %d: %w", s.current.id, err)
		}
	}

	id := s.nextID
	s.nextID++

	f, err := os.OpenFile(s.path(id), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("segment: open %d: %w", id, err)
	}
	s.current = &segmentFile{id: id, f: f, w: bufio.NewWriter(f)}
	return nil
}

// ReadChunk seeks into segment d.SegmentID at d.Start and deserializes one
// frame. No length argument is needed; the frame is self-describing.
func (s *Store) ReadChunk(d Descriptor) (chunk.Chunk, error) {
	f, err := os.Open(s.path(d.SegmentID))
	if err != nil {
		return chunk.Chunk{}, fmt.Errorf("segment: open %d for read: %w", d.SegmentID, err)
	}
	defer f.Close()

	if _, err := f.Seek(int64(d.Start), 0); err != nil {
		return chunk.Chunk{}, fmt.Errorf("segment: seek: %w", err)
	}

	r := bufio.NewReader(f)
	length, err := binary.ReadUvarint(r)
	if err != nil {
		return chunk.Chunk{}, fmt.Errorf("segment: read length prefix: %w", err)
	}

	payload := make([]byte, length)
	if _, err := readFull(r, payload); err != nil {
		return chunk.Chunk{}, fmt.Errorf("segment: read frame: %w", err)
	}

	var c chunk.Chunk
	if err := msgpack.Unmarshal(payload, &c); err != nil {
		return chunk.Chunk{}, fmt.Errorf("segment: unmarshal chunk: %w", err)
	}
	return c, nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Close flushes and closes the currently open segment file, if any.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	if err := s.current.w.Flush(); err != nil {
		return fmt.Errorf("segment: flush on close: %w", err)
	}
	err := s.current.f.Close()
	s.current = nil
	return err
}
