package crypto

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"

	"github.com/sambhavthakkar/archivevault/internal/repoerr"
)

// CompressionAlgorithm selects the chunk body codec. Level's meaning is
// algorithm-specific and ignored by None.
type CompressionAlgorithm int

const (
	CompNone CompressionAlgorithm = iota
	CompZStd
	CompLZ4
	CompLZMA
)

// Compress returns the compressed form of data. level is forwarded to the
// ZStd encoder only; None, LZ4 and LZMA ignore it and always compress with
// their library defaults.
func Compress(algo CompressionAlgorithm, level int, data []byte) ([]byte, error) {
	switch algo {
	case CompNone:
		return data, nil
	case CompZStd:
		return zstdCompress(level, data)
	case CompLZ4:
		return lz4Compress(data)
	case CompLZMA:
		return lzmaCompress(data)
	default:
		return nil, fmt.Errorf("%w: unknown compression algorithm %d", repoerr.ErrFormatError, algo)
	}
}

// Decompress reverses Compress. A malformed or truncated stream yields
// repoerr.ErrFormatError.
func Decompress(algo CompressionAlgorithm, data []byte) ([]byte, error) {
	switch algo {
	case CompNone:
		return data, nil
	case CompZStd:
		return zstdDecompress(data)
	case CompLZ4:
		return lz4Decompress(data)
	case CompLZMA:
		return lzmaDecompress(data)
	default:
		return nil, fmt.Errorf("%w: unknown compression algorithm %d", repoerr.ErrFormatError, algo)
	}
}

func zstdCompress(level int, data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, fmt.Errorf("crypto: zstd writer: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, make([]byte, 0, len(data))), nil
}

func zstdDecompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("crypto: zstd reader: %w", err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repoerr.ErrFormatError, err)
	}
	return out, nil
}

func lz4Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("crypto: lz4 write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("crypto: lz4 close: %w", err)
	}
	return buf.Bytes(), nil
}

func lz4Decompress(data []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(data))
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repoerr.ErrFormatError, err)
	}
	return out, nil
}

func lzmaCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("crypto: lzma writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("crypto: lzma write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("crypto: lzma close: %w", err)
	}
	return buf.Bytes(), nil
}

func lzmaDecompress(data []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repoerr.ErrFormatError, err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repoerr.ErrFormatError, err)
	}
	return out, nil
}
