// Package chunker splits a byte stream into variable-sized, content-defined
// chunks with stable boundaries under insertion and deletion. Two
// algorithms are provided: FastCDC (default, gear-hash based, normalized
// chunking) and Buzhash (classical cyclic polynomial rolling hash).
//
// Both satisfy the same contract: deterministic boundaries for identical
// input and settings, no chunk larger than MaxSize, and at most one
// (trailing) chunk smaller than MinSize.
package chunker

import (
	"errors"
	"io"
)

// ErrInvalidSettings is returned when a chunker is constructed with a
// nonsensical size configuration (e.g. MinSize > MaxSize).
var ErrInvalidSettings = errors.New("chunker: invalid size settings")

// Settings bounds the sizes a chunker may produce. AvgSize should be a
// power of two for FastCDC's mask derivation; Buzhash only uses it to pick
// a cut probability and does not require a power of two.
type Settings struct {
	MinSize int
	AvgSize int
	MaxSize int
}

// Validate checks that the settings are usable.
func (s Settings) Validate() error {
	if s.MinSize <= 0 || s.AvgSize <= 0 || s.MaxSize <= 0 {
		return ErrInvalidSettings
	}
	if s.MinSize > s.AvgSize || s.AvgSize > s.MaxSize {
		return ErrInvalidSettings
	}
	return nil
}

// DefaultSettings returns the conventional FastCDC size band: 2KiB minimum,
// 8KiB average, 64KiB maximum.
func DefaultSettings() Settings {
	return Settings{MinSize: 2 << 10, AvgSize: 8 << 10, MaxSize: 64 << 10}
}

// Chunker slices an owned byte source into a sequence of chunks. Chunk
// produces an Iterator that owns the reader for the remainder of its
// lifetime; the iterator, not the caller, is responsible for draining it.
type Chunker interface {
	Chunk(r io.Reader) Iterator
}

// Iterator yields chunks one at a time. Next returns io.EOF (with a nil
// slice) once the stream is exhausted; an empty input stream yields EOF on
// the very first call, never an error.
type Iterator interface {
	Next() ([]byte, error)
}

// ChunkAll drains an Iterator into a slice. Convenience for callers (tests,
// small archives) that don't need to stream.
func ChunkAll(it Iterator) ([][]byte, error) {
	var out [][]byte
	for {
		c, err := it.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
}
