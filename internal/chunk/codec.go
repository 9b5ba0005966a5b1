package chunk

import (
	"fmt"

	"github.com/sambhavthakkar/archivevault/internal/crypto"
	"github.com/sambhavthakkar/archivevault/internal/repoerr"
)

// Pack implements C3: id <- MAC_k(plaintext), compress, encrypt under a
// fresh IV/nonce, then MAC the ciphertext. The id is over plaintext so
// deduplication is blind to the per-call encryption nonce; the MAC is over
// ciphertext so unpack can authenticate before touching decrypted bytes.
func Pack(plaintext []byte, settings Settings, key []byte) (Chunk, error) {
	id, err := ComputeID(plaintext, settings, key)
	if err != nil {
		return Chunk{}, err
	}
	return PackWithID(plaintext, id, settings, key)
}

// PackWithID is Pack but skips id derivation, reusing id as-is. Used by
// callers that already know the id (e.g. Unpacked.Pack, or the
// manifest root which uses the reserved all-zero id).
func PackWithID(plaintext []byte, id ID, settings Settings, key []byte) (Chunk, error) {
	compressed, err := crypto.Compress(settings.Compression, settings.CompressionLevel, plaintext)
	if err != nil {
		return Chunk{}, fmt.Errorf("chunk: compress: %w", err)
	}

	ciphertext, iv, err := crypto.Encrypt(settings.Encryption, key, compressed)
	if err != nil {
		return Chunk{}, fmt.Errorf("chunk: encrypt: %w", err)
	}

	mac, err := crypto.MAC(settings.HMAC, key, ciphertext)
	if err != nil {
		return Chunk{}, fmt.Errorf("chunk: mac ciphertext: %w", err)
	}

	return Chunk{
		ID:               id,
		Ciphertext:       ciphertext,
		Compression:      settings.Compression,
		CompressionLevel: settings.CompressionLevel,
		Encryption:       settings.Encryption,
		IV:               iv,
		HMACAlgo:         settings.HMAC,
		MAC:              mac[:],
	}, nil
}

// Unpack reverses Pack: verify the ciphertext MAC, decrypt, decompress, in
// that order. The MAC check runs before decryption so a tampered chunk
// never reaches the decryption or decompression primitives
// (MAC-then-decrypt).
func Unpack(c Chunk, key []byte) ([]byte, error) {
	mac, err := crypto.MAC(c.HMACAlgo, key, c.Ciphertext)
	if err != nil {
		return nil, repoerr.NewChunkError(c.ID, fmt.Errorf("chunk: mac ciphertext: %w", err))
	}
	if !macEqual(mac[:], c.MAC) {
		return nil, repoerr.NewChunkError(c.ID, repoerr.ErrAuthFailure)
	}

	compressed, err := crypto.Decrypt(c.Encryption, key, c.IV, c.Ciphertext)
	if err != nil {
		return nil, repoerr.NewChunkError(c.ID, fmt.Errorf("%w: %v", repoerr.ErrBadCiphertext, err))
	}

	plaintext, err := crypto.Decompress(c.Compression, compressed)
	if err != nil {
		return nil, repoerr.NewChunkError(c.ID, fmt.Errorf("%w: %v", repoerr.ErrFormatError, err))
	}

	return plaintext, nil
}

// ComputeID derives a chunk's id from its plaintext without packing it,
// used by callers (the repository façade) that need to check for a dedup
// hit before deciding whether to pack at all.
func ComputeID(plaintext []byte, settings Settings, key []byte) (ID, error) {
	digest, err := crypto.MAC(settings.HMAC, key, plaintext)
	if err != nil {
		return ID{}, fmt.Errorf("chunk: mac plaintext: %w", err)
	}
	return ID(digest), nil
}

// macEqual is a constant-time comparison: MAC verification must not leak
// timing information about how many leading bytes matched.
func macEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}
