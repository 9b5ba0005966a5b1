// Package chunk defines the on-disk chunk record and the
// packing policy that selects its compression, encryption, and MAC
// algorithms.
package chunk

import (
	"github.com/sambhavthakkar/archivevault/internal/crypto"
)

// Settings is the repository's packing policy: which compression,
// encryption, and MAC algorithm new chunks are written with. Persisted
// separately from segments and the manifest so it
// can be read authoritatively before any MAC check is attempted.
type Settings struct {
	Compression      crypto.CompressionAlgorithm `msgpack:"compression"`
	CompressionLevel int                         `msgpack:"compression_level"`
	Encryption       crypto.Algorithm            `msgpack:"encryption"`
	HMAC             crypto.MACAlgorithm         `msgpack:"hmac"`
}

// DefaultSettings matches the packing policy exercised by scenario S3:
// ZStd level 6, AES-256-CTR, Blake2b.
func DefaultSettings() Settings {
	return Settings{
		Compression:      crypto.CompZStd,
		CompressionLevel: 6,
		Encryption:       crypto.AES256CTR,
		HMAC:             crypto.MACBlake2b,
	}
}

// ID is the 32-byte chunk identifier: a keyed MAC over plaintext content,
// so identical plaintext always yields the same id (content-defined
// deduplication) while forging an id requires the repository key.
type ID [32]byte

// RootID is the distinguished all-zero id reserved for the manifest root.
var RootID ID

// Chunk is the on-disk form of one packed unit: ciphertext plus the tags
// needed to reverse compression, decrypt, and verify authenticity.
type Chunk struct {
	ID               ID                          `msgpack:"id"`
	Ciphertext       []byte                      `msgpack:"ciphertext"`
	Compression      crypto.CompressionAlgorithm `msgpack:"compression"`
	CompressionLevel int                         `msgpack:"compression_level"`
	Encryption       crypto.Algorithm            `msgpack:"encryption"`
	IV               []byte                      `msgpack:"iv"`
	HMACAlgo         crypto.MACAlgorithm         `msgpack:"hmac_algo"`
	MAC              []byte                      `msgpack:"mac"`
}

// Unpacked pairs plaintext with an id that has already been computed,
// a staging type for plaintext paired with an id already known before
// packing: the repository
// façade computes the id up front to decide whether to dedup before
// dispatching to the pipeline at all, then reuses that id when it does pack.
type Unpacked struct {
	ID   ID
	Data []byte
}

// Pack packs the staged plaintext using the id already computed for it,
// equivalent to PackWithID(u.Data, u.ID, settings, key).
func (u Unpacked) Pack(settings Settings, key []byte) (Chunk, error) {
	return PackWithID(u.Data, u.ID, settings, key)
}
