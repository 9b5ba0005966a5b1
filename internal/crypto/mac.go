package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"hash"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	"github.com/zeebo/blake3"
)

// MACAlgorithm selects the keyed hash used both for chunk-id derivation and
// for the chunk/manifest authentication tag.
type MACAlgorithm int

const (
	MACSHA256 MACAlgorithm = iota
	MACSHA3
	MACBlake2b
	MACBlake2bp
	MACBlake3
)

// Size returns the digest length in bytes produced by algo. Every variant
// here is fixed at 32 bytes so ChunkID and authentication tags share one
// array type across algorithms.
func Size(MACAlgorithm) int { return 32 }

// MAC computes a keyed 32-byte digest of data under key. HMAC-based variants
// (SHA-256, SHA-3) accept any key length; Blake2b and Blake2bp accept keys
// of at most 64 bytes, and Blake3 requires a key of exactly 32 bytes -- a
// full 32-byte key is accepted by all five.
func MAC(algo MACAlgorithm, key, data []byte) ([32]byte, error) {
	switch algo {
	case MACSHA256:
		return hmacSum(sha256.New, key, data)
	case MACSHA3:
		return hmacSum(sha3.New256, key, data)
	case MACBlake2b:
		return blake2bSum(key, data)
	case MACBlake2bp:
		return blake2bpSum(key, data)
	case MACBlake3:
		return blake3Sum(key, data)
	default:
		return [32]byte{}, fmt.Errorf("crypto: unknown MAC algorithm %d", algo)
	}
}

func hmacSum(newHash func() hash.Hash, key, data []byte) ([32]byte, error) {
	var out [32]byte
	h := hmac.New(newHash, key)
	h.Write(data)
	copy(out[:], h.Sum(nil))
	return out, nil
}

func blake2bSum(key, data []byte) ([32]byte, error) {
	var out [32]byte
	h, err := blake2b.New256(key)
	if err != nil {
		return out, fmt.Errorf("crypto: blake2b: %w", err)
	}
	h.Write(data)
	copy(out[:], h.Sum(nil))
	return out, nil
}

// blake2bpSum approximates BLAKE2bp's four-way parallel tree mode: golang.org/x/crypto/blake2b
// does not expose the node-offset/depth parameters the real tree construction
// needs, so the four leaves are distinguished by an index byte instead and
// combined under a keyed root hash. Deterministic and keyed like the real
// algorithm, but not wire-compatible with a reference BLAKE2bp implementation.
func blake2bpSum(key, data []byte) ([32]byte, error) {
	const leaves = 4
	var out [32]byte

	root, err := blake2b.New256(key)
	if err != nil {
		return out, fmt.Errorf("crypto: blake2bp root: %w", err)
	}

	chunkSize := (len(data) + leaves - 1) / leaves
	if chunkSize == 0 {
		chunkSize = 1
	}
	for i := 0; i < leaves; i++ {
		start := i * chunkSize
		if start > len(data) {
			start = len(data)
		}
		end := start + chunkSize
		if end > len(data) {
			end = len(data)
		}

		leaf, err := blake2b.New512(key)
		if err != nil {
			return out, fmt.Errorf("crypto: blake2bp leaf %d: %w", i, err)
		}
		leaf.Write([]byte{byte(i)})
		leaf.Write(data[start:end])
		root.Write(leaf.Sum(nil))
	}

	copy(out[:], root.Sum(nil))
	return out, nil
}

func blake3Sum(key, data []byte) ([32]byte, error) {
	var out [32]byte
	h, err := blake3.NewKeyed(key)
	if err != nil {
		return out, fmt.Errorf("crypto: blake3: %w", err)
	}
	h.Write(data)
	copy(out[:], h.Sum(nil))
	return out, nil
}
