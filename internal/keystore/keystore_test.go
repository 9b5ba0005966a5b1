package keystore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/sambhavthakkar/archivevault/internal/repoerr"
)

func readRaw(path string) (EncryptedKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return EncryptedKey{}, err
	}
	var entry EncryptedKey
	err = msgpack.Unmarshal(data, &entry)
	return entry, err
}

func TestNewOpenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")

	masterKey, err := New(path, "correct horse battery staple")
	require.NoError(t, err)
	require.Len(t, masterKey, masterKeySize)

	got, err := Open(path, "correct horse battery staple")
	require.NoError(t, err)
	require.Equal(t, masterKey, got)
}

func TestOpenWrongPassphraseFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	_, err := New(path, "right passphrase")
	require.NoError(t, err)

	_, err = Open(path, "wrong passphrase")
	require.ErrorIs(t, err, repoerr.ErrBadPassphrase)
}

func TestNewProducesDistinctSaltsAndCiphertexts(t *testing.T) {
	pathA := filepath.Join(t.TempDir(), "key")
	pathB := filepath.Join(t.TempDir(), "key")

	_, err := New(pathA, "same passphrase")
	require.NoError(t, err)
	_, err = New(pathB, "same passphrase")
	require.NoError(t, err)

	a, err := readRaw(pathA)
	require.NoError(t, err)
	b, err := readRaw(pathB)
	require.NoError(t, err)
	require.NotEqual(t, a.Salt, b.Salt)
	require.NotEqual(t, a.Ciphertext, b.Ciphertext)
}

func TestRewrapChangesPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	masterKey, err := New(path, "old passphrase")
	require.NoError(t, err)

	require.NoError(t, Rewrap(path, masterKey, "new passphrase"))

	_, err = Open(path, "old passphrase")
	require.Error(t, err)

	got, err := Open(path, "new passphrase")
	require.NoError(t, err)
	require.Equal(t, masterKey, got)
}
