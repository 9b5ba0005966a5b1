// Package repoerr defines the error taxonomy shared across the repository
// storage engine. Components wrap one of these sentinels with fmt.Errorf's
// %w verb so callers can use errors.Is/errors.As without depending on the
// package that produced the failure.
package repoerr

import (
	"errors"
	"fmt"
)

var (
	// ErrDataNotFound indicates an index lookup miss during a read.
	ErrDataNotFound = errors.New("repoerr: data not found")
	// ErrAuthFailure indicates a MAC mismatch on a chunk or manifest transaction.
	ErrAuthFailure = errors.New("repoerr: authentication failure")
	// ErrBadCiphertext indicates the decryption primitive rejected the input.
	ErrBadCiphertext = errors.New("repoerr: bad ciphertext")
	// ErrFormatError indicates decompression or deserialization rejected the input.
	ErrFormatError = errors.New("repoerr: format error")
	// ErrBadPassphrase indicates KEK unwrap failed.
	ErrBadPassphrase = errors.New("repoerr: bad passphrase")
	// ErrFileLock indicates the manifest lock could not be acquired.
	ErrFileLock = errors.New("repoerr: could not acquire file lock")
	// ErrGlobalLock indicates another process holds the repository.
	ErrGlobalLock = errors.New("repoerr: repository held by another process")
	// ErrChannelClosed indicates use of a pipeline or backend after close.
	ErrChannelClosed = errors.New("repoerr: channel closed")
)

// ChunkError annotates a sentinel with the chunk id it occurred on, so a
// caller can log or surface the offending identifier without the producer
// package needing to know about logging.
type ChunkError struct {
	ID  [32]byte
	Err error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %x: %v", e.ID, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// NewChunkError wraps err with the chunk id it pertains to.
func NewChunkError(id [32]byte, err error) error {
	return &ChunkError{ID: id, Err: err}
}

// TagError annotates a sentinel with the manifest transaction tag it occurred on.
type TagError struct {
	Tag [32]byte
	Err error
}

func (e *TagError) Error() string {
	return fmt.Sprintf("transaction %x: %v", e.Tag, e.Err)
}

func (e *TagError) Unwrap() error { return e.Err }

// NewTagError wraps err with the manifest transaction tag it pertains to.
func NewTagError(tag [32]byte, err error) error {
	return &TagError{Tag: tag, Err: err}
}
