package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20"

	"github.com/sambhavthakkar/archivevault/internal/repoerr"
)

// Algorithm selects the chunk-level encryption primitive. Unlike Seal/Open
// (AES-256-GCM, used to wrap the repository's master key), these variants
// are not AEAD: authenticity is provided separately by the chunk's MAC tag,
// so plain block/stream ciphers suffice and the packer must decide the MAC
// before trusting decrypted output (see chunk.Unpack).
type Algorithm int

const (
	// None passes data through unchanged; IVSize is 0.
	None Algorithm = iota
	// AES256CBC encrypts in CBC mode with PKCS#7 padding.
	AES256CBC
	// AES256CTR encrypts in CTR mode (no padding needed).
	AES256CTR
	// ChaCha20 encrypts with the IETF ChaCha20 stream cipher.
	ChaCha20
)

var ErrUnknownAlgorithm = errors.New("crypto: unknown encryption algorithm")

// IVSize returns the IV/nonce length required by algo.
func IVSize(algo Algorithm) int {
	switch algo {
	case None:
		return 0
	case AES256CBC, AES256CTR:
		return aes.BlockSize
	case ChaCha20:
		return chacha20.NonceSize
	default:
		return 0
	}
}

// Encrypt produces ciphertext under a freshly generated IV/nonce. The IV is
// returned alongside the ciphertext so the caller can embed it in the
// chunk's encryption tag; it is not secret.
func Encrypt(algo Algorithm, key, plaintext []byte) (ciphertext, iv []byte, err error) {
	if algo == None {
		return plaintext, nil, nil
	}
	if len(key) != 32 {
		return nil, nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKeySize, len(key))
	}

	iv = make([]byte, IVSize(algo))
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, fmt.Errorf("crypto: generate iv: %w", err)
	}

	switch algo {
	case AES256CBC:
		ct, err := aesCBCEncrypt(key, iv, plaintext)
		return ct, iv, err
	case AES256CTR:
		ct, err := aesCTRXOR(key, iv, plaintext)
		return ct, iv, err
	case ChaCha20:
		ct, err := chaCha20XOR(key, iv, plaintext)
		return ct, iv, err
	default:
		return nil, nil, ErrUnknownAlgorithm
	}
}

// Decrypt reverses Encrypt given the IV/nonce that was generated for the
// ciphertext. It returns ErrAuthenticationFailed-free errors only for
// malformed input (e.g. bad padding, wrong IV length); the caller is
// responsible for checking the chunk MAC before or instead of trusting
// decrypted output, since these ciphers carry no authentication of their
// own.
func Decrypt(algo Algorithm, key, iv, ciphertext []byte) ([]byte, error) {
	if algo == None {
		return ciphertext, nil
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKeySize, len(key))
	}
	if len(iv) != IVSize(algo) {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidNonceSize, IVSize(algo), len(iv))
	}

	switch algo {
	case AES256CBC:
		return aesCBCDecrypt(key, iv, ciphertext)
	case AES256CTR:
		return aesCTRXOR(key, iv, ciphertext)
	case ChaCha20:
		return chaCha20XOR(key, iv, ciphertext)
	default:
		return nil, ErrUnknownAlgorithm
	}
}

func aesCTRXOR(key, iv, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: aes cipher: %w", err)
	}
	stream := cipher.NewCTR(block, iv)
	out := make([]byte, len(data))
	stream.XORKeyStream(out, data)
	return out, nil
}

func chaCha20XOR(key, nonce, data []byte) ([]byte, error) {
	cph, err := chacha20.NewUnauthenticatedCipher(key, nonce)
	if err != nil {
		return nil, fmt.Errorf("crypto: chacha20 cipher: %w", err)
	}
	out := make([]byte, len(data))
	cph.XORKeyStream(out, data)
	return out, nil
}

func aesCBCEncrypt(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: aes cipher: %w", err)
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

func aesCBCDecrypt(key, iv, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext is not a multiple of the block size", repoerr.ErrBadCiphertext)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: aes cipher: %w", err)
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return pkcs7Unpad(out)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty padded buffer", repoerr.ErrBadCiphertext)
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, fmt.Errorf("%w: invalid padding", repoerr.ErrBadCiphertext)
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("%w: invalid padding", repoerr.ErrBadCiphertext)
		}
	}
	return data[:len(data)-padLen], nil
}
