package chunk

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sambhavthakkar/archivevault/internal/crypto"
	"github.com/sambhavthakkar/archivevault/internal/repoerr"
)

func testKey() []byte { return bytes.Repeat([]byte{0x5a}, 32) }

func allSettings() []Settings {
	var out []Settings
	for _, comp := range []crypto.CompressionAlgorithm{crypto.CompNone, crypto.CompZStd, crypto.CompLZ4, crypto.CompLZMA} {
		for _, enc := range []crypto.Algorithm{crypto.None, crypto.AES256CBC, crypto.AES256CTR, crypto.ChaCha20} {
			for _, mac := range []crypto.MACAlgorithm{crypto.MACSHA256, crypto.MACSHA3, crypto.MACBlake2b, crypto.MACBlake2bp, crypto.MACBlake3} {
				out = append(out, Settings{Compression: comp, CompressionLevel: 6, Encryption: enc, HMAC: mac})
			}
		}
	}
	return out
}

func TestPackUnpackRoundTrip(t *testing.T) {
	key := testKey()
	plaintext := []byte("the lorem ipsum paragraph, repeated for compressibility. " +
		"the lorem ipsum paragraph, repeated for compressibility.")

	for _, s := range allSettings() {
		c, err := Pack(plaintext, s, key)
		require.NoError(t, err)

		got, err := Unpack(c, key)
		require.NoError(t, err)
		require.Equal(t, plaintext, got)
	}
}

func TestPackDeterministicID(t *testing.T) {
	key := testKey()
	s := DefaultSettings()
	plaintext := []byte("deduplication depends on this")

	a, err := Pack(plaintext, s, key)
	require.NoError(t, err)
	b, err := Pack(plaintext, s, key)
	require.NoError(t, err)

	require.Equal(t, a.ID, b.ID)
	// Encryption nonce is fresh per call, so ciphertexts for non-None
	// encryption need not match even though ids do.
}

func TestPackWithIDReusesGivenID(t *testing.T) {
	key := testKey()
	s := DefaultSettings()
	var id ID
	id[0] = 0xaa

	c, err := PackWithID([]byte("payload"), id, s, key)
	require.NoError(t, err)
	require.Equal(t, id, c.ID)
}

func TestUnpackDetectsTamperedMAC(t *testing.T) {
	key := testKey()
	s := DefaultSettings()
	c, err := Pack([]byte("hello, world"), s, key)
	require.NoError(t, err)

	c.MAC[0] ^= 0xff
	_, err = Unpack(c, key)
	require.ErrorIs(t, err, repoerr.ErrAuthFailure)
}

func TestUnpackDetectsTamperedCiphertext(t *testing.T) {
	key := testKey()
	s := DefaultSettings()
	c, err := Pack([]byte("hello, world"), s, key)
	require.NoError(t, err)

	c.Ciphertext[0] ^= 0xff
	_, err = Unpack(c, key)
	require.ErrorIs(t, err, repoerr.ErrAuthFailure)
}

func TestUnpackDetectsTamperedTagFields(t *testing.T) {
	key := testKey()
	s := Settings{Compression: crypto.CompZStd, CompressionLevel: 6, Encryption: crypto.AES256CTR, HMAC: crypto.MACBlake2b}
	c, err := Pack([]byte("hello, world, long enough to exercise the codec"), s, key)
	require.NoError(t, err)

	// The MAC covers ciphertext, not the IV, so a corrupted IV passes the
	// MAC check but yields a garbage keystream; decompression of the
	// resulting garbage then fails with FormatError.
	c.IV[0] ^= 0xff
	_, err = Unpack(c, key)
	require.Error(t, err)
}

func TestUnpackWrongKeyFails(t *testing.T) {
	s := DefaultSettings()
	c, err := Pack([]byte("secret"), s, testKey())
	require.NoError(t, err)

	wrongKey := bytes.Repeat([]byte{0x99}, 32)
	_, err = Unpack(c, wrongKey)
	require.ErrorIs(t, err, repoerr.ErrAuthFailure)
}
