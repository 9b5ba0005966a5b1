// Package keystore implements C9: wrapping the repository's 32-byte master
// key under a passphrase-derived KEK: Argon2id KDF plus AES-256-GCM
// wrapping around a plain symmetric master key.
package keystore

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/crypto/argon2"

	"github.com/sambhavthakkar/archivevault/internal/crypto"
	"github.com/sambhavthakkar/archivevault/internal/repoerr"
)

const (
	argon2Time    = 3
	argon2Memory  = 64 * 1024 // KiB
	argon2Threads = 4
	argon2KeyLen  = 32
	saltSize      = 32
	nonceSize     = 12
	masterKeySize = 32
	formatVersion = 1
)

// EncryptedKey is the on-disk wrapper: the KDF
// parameters needed to re-derive the KEK, plus the master key ciphertext.
type EncryptedKey struct {
	Version    int    `msgpack:"version"`
	Salt       []byte `msgpack:"salt"`
	Nonce      []byte `msgpack:"nonce"`
	Ciphertext []byte `msgpack:"ciphertext"`
	Time       uint32 `msgpack:"time"`
	MemoryKiB  uint32 `msgpack:"memory_kib"`
	Threads    uint8  `msgpack:"threads"`
}

// New generates a fresh 32-byte master key, wraps it under passphrase, and
// writes it to path. Called once at repository creation.
func New(path string, passphrase string) ([]byte, error) {
	masterKey := make([]byte, masterKeySize)
	if _, err := rand.Read(masterKey); err != nil {
		return nil, fmt.Errorf("keystore: generate master key: %w", err)
	}

	if err := save(path, masterKey, passphrase); err != nil {
		return nil, err
	}
	return masterKey, nil
}

// Open reads and unwraps the master key at path using passphrase. A wrong
// passphrase and a corrupted salt, nonce or ciphertext are indistinguishable
// (repoerr.ErrBadPassphrase); a file that does not decode, or carries an
// unknown version, yields repoerr.ErrFormatError.
func Open(path string, passphrase string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keystore: read %s: %w", path, err)
	}

	var entry EncryptedKey
	if err := msgpack.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("%w: decode keystore file: %v", repoerr.ErrFormatError, err)
	}
	if entry.Version != formatVersion {
		return nil, fmt.Errorf("%w: unsupported keystore version %d", repoerr.ErrFormatError, entry.Version)
	}

	kek := argon2.IDKey([]byte(passphrase), entry.Salt, entry.Time, entry.MemoryKiB, entry.Threads, argon2KeyLen)

	masterKey, err := crypto.Open(kek, entry.Nonce, nil, entry.Ciphertext)
	if err != nil {
		return nil, repoerr.ErrBadPassphrase
	}
	if len(masterKey) != masterKeySize {
		return nil, fmt.Errorf("%w: unwrapped key has wrong size", repoerr.ErrBadPassphrase)
	}
	return masterKey, nil
}

// Rewrap re-encrypts an already-known master key under a new passphrase,
// overwriting path. Used by a passphrase-change operation; not required by
// the core read/write path but kept alongside New/Open since it shares
// all of their machinery.
func Rewrap(path string, masterKey []byte, newPassphrase string) error {
	if len(masterKey) != masterKeySize {
		return errors.New("keystore: master key must be 32 bytes")
	}
	return save(path, masterKey, newPassphrase)
}

func save(path string, masterKey []byte, passphrase string) error {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("keystore: generate salt: %w", err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("keystore: generate nonce: %w", err)
	}

	kek := argon2.IDKey([]byte(passphrase), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	ciphertext, err := crypto.Seal(kek, nonce, nil, masterKey)
	if err != nil {
		return fmt.Errorf("keystore: wrap master key: %w", err)
	}

	entry := EncryptedKey{
		Version:    formatVersion,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: ciphertext,
		Time:       argon2Time,
		MemoryKiB:  argon2Memory,
		Threads:    argon2Threads,
	}

	data, err := msgpack.Marshal(&entry)
	if err != nil {
		return fmt.Errorf("keystore: encode keystore file: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("keystore: create dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("keystore: write %s: %w", path, err)
	}
	return nil
}
