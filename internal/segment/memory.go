package segment

import (
	"fmt"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/sambhavthakkar/archivevault/internal/chunk"
)

// MemoryStore is the in-memory segment backend. Per the documented Open
// Question decision in DESIGN.md, the in-memory path never rotates: everything lives in one
// logical segment (SegmentID 0) backed by a growing byte buffer, addressed
// the same way a file segment would be.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryStore returns an empty in-memory segment store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// WriteChunk appends the framed chunk to the single in-memory segment.
func (s *MemoryStore) WriteChunk(c chunk.Chunk) (Descriptor, error) {
	payload, err := msgpack.Marshal(&c)
	if err != nil {
		return Descriptor{}, fmt.Errorf("segment: marshal chunk: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := uint64(len(s.data))
	s.data = appendUvarint(s.data, uint64(len(payload)))
	s.data = append(s.data, payload...)

	return Descriptor{SegmentID: 0, Start: start}, nil
}

// ReadChunk deserializes the frame starting at d.Start. SegmentID is
// ignored (always 0 for this backend).
func (s *MemoryStore) ReadChunk(d Descriptor) (chunk.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.Start >= uint64(len(s.data)) {
		return chunk.Chunk{}, fmt.Errorf("segment: offset %d out of range", d.Start)
	}

	length, n := readUvarint(s.data[d.Start:])
	if n <= 0 {
		return chunk.Chunk{}, fmt.Errorf("segment: malformed length prefix at offset %d", d.Start)
	}

	payloadStart := d.Start + uint64(n)
	payloadEnd := payloadStart + length
	if payloadEnd > uint64(len(s.data)) {
		return chunk.Chunk{}, fmt.Errorf("segment: truncated frame at offset %d", d.Start)
	}

	var c chunk.Chunk
	if err := msgpack.Unmarshal(s.data[payloadStart:payloadEnd], &c); err != nil {
		return chunk.Chunk{}, fmt.Errorf("segment: unmarshal chunk: %w", err)
	}
	return c, nil
}

// Len returns the total number of bytes written to the backing buffer, used
// by tests asserting dedup writes zero additional bytes.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// Close is a no-op; the in-memory store holds no OS resources.
func (s *MemoryStore) Close() error { return nil }

func appendUvarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

func readUvarint(buf []byte) (uint64, int) {
	var v uint64
	var shift uint
	for i, b := range buf {
		v |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return v, i + 1
		}
		shift += 7
		if i >= 9 {
			return 0, -1
		}
	}
	return 0, 0
}

// StoreBackend is the capability the repository façade depends on; both the
// file-backed Store and MemoryStore satisfy it.
type StoreBackend interface {
	WriteChunk(chunk.Chunk) (Descriptor, error)
	ReadChunk(Descriptor) (chunk.Chunk, error)
	Close() error
}

var (
	_ StoreBackend = (*Store)(nil)
	_ StoreBackend = (*MemoryStore)(nil)
)
