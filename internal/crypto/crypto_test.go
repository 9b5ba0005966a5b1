package crypto

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMACDeterministicAndKeyed(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 32)
	otherKey := bytes.Repeat([]byte{0x43}, 32)
	data := []byte("the quick brown fox jumps over the lazy dog")

	for _, algo := range []MACAlgorithm{MACSHA256, MACSHA3, MACBlake2b, MACBlake2bp, MACBlake3} {
		a, err := MAC(algo, key, data)
		require.NoError(t, err)
		b, err := MAC(algo, key, data)
		require.NoError(t, err)
		require.Equal(t, a, b, "algo %d must be deterministic", algo)

		c, err := MAC(algo, otherKey, data)
		require.NoError(t, err)
		require.NotEqual(t, a, c, "algo %d must be keyed", algo)
	}
}

func TestCompressionRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("lorem ipsum dolor sit amet "), 200)

	for _, algo := range []CompressionAlgorithm{CompNone, CompZStd, CompLZ4, CompLZMA} {
		compressed, err := Compress(algo, 6, data)
		require.NoError(t, err)
		decompressed, err := Decompress(algo, compressed)
		require.NoError(t, err)
		require.Equal(t, data, decompressed, "algo %d round-trip", algo)
	}
}

func TestCompressionRejectsGarbage(t *testing.T) {
	garbage := []byte{0xff, 0x00, 0xde, 0xad, 0xbe, 0xef}
	for _, algo := range []CompressionAlgorithm{CompZStd, CompLZ4, CompLZMA} {
		_, err := Decompress(algo, garbage)
		require.Error(t, err)
	}
}

func TestEncryptionRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x07}, 32)
	data := []byte("the contents of a chunk, possibly already compressed")

	for _, algo := range []Algorithm{None, AES256CBC, AES256CTR, ChaCha20} {
		ciphertext, iv, err := Encrypt(algo, key, data)
		require.NoError(t, err)
		require.Len(t, iv, IVSize(algo))

		plaintext, err := Decrypt(algo, key, iv, ciphertext)
		require.NoError(t, err)
		require.Equal(t, data, plaintext)
	}
}

func TestEncryptionFreshIVPerCall(t *testing.T) {
	key := bytes.Repeat([]byte{0x09}, 32)
	data := []byte("identical plaintext")

	for _, algo := range []Algorithm{AES256CBC, AES256CTR, ChaCha20} {
		_, iv1, err := Encrypt(algo, key, data)
		require.NoError(t, err)
		_, iv2, err := Encrypt(algo, key, data)
		require.NoError(t, err)
		require.NotEqual(t, iv1, iv2, "algo %d must use a fresh IV each call", algo)
	}
}

func TestCBCRejectsBadPadding(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, 32)
	iv := bytes.Repeat([]byte{0x22}, 16)
	bad := bytes.Repeat([]byte{0xff}, 16)
	_, err := Decrypt(AES256CBC, key, iv, bad)
	require.Error(t, err)
}

func TestSealAndOpen(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	nonce := make([]byte, 12)
	_, err = rand.Read(nonce)
	require.NoError(t, err)

	plaintext := []byte("wrapped master key material")
	ciphertext, err := Seal(key, nonce, nil, plaintext)
	require.NoError(t, err)

	decrypted, err := Open(key, nonce, nil, ciphertext)
	require.NoError(t, err)
	require.Equal(t, plaintext, decrypted)
}

func TestOpenRejectsTamperedCiphertext(t *testing.T) {
	key := make([]byte, 32)
	nonce := make([]byte, 12)
	ciphertext, err := Seal(key, nonce, nil, []byte("hello"))
	require.NoError(t, err)

	ciphertext[0] ^= 0xff
	_, err = Open(key, nonce, nil, ciphertext)
	require.Error(t, err)
}
