// Package observability wraps zerolog into the structured, contextual
// logger used across the repository storage engine.
package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog for structured logging.
type Logger struct {
	logger zerolog.Logger
}

// NewLogger creates a new structured logger tagged with service/version/host.
func NewLogger(service, version string, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}

	zerolog.TimeFieldFormat = time.RFC3339

	logger := zerolog.New(output).With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Str("host", getHostname()).
		Logger()

	return &Logger{logger: logger}
}

// WithRepository adds repository path context to the logger.
func (l *Logger) WithRepository(path string) *Logger {
	return &Logger{logger: l.logger.With().Str("repository", path).Logger()}
}

// WithArchive adds archive name context to the logger.
func (l *Logger) WithArchive(name string) *Logger {
	return &Logger{logger: l.logger.With().Str("archive", name).Logger()}
}

// WithSegment adds segment id context to the logger.
func (l *Logger) WithSegment(segmentID uint64) *Logger {
	return &Logger{logger: l.logger.With().Uint64("segment_id", segmentID).Logger()}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string) { l.logger.Debug().Msg(msg) }

// Info logs an info message.
func (l *Logger) Info(msg string) { l.logger.Info().Msg(msg) }

// Warn logs a warning message.
func (l *Logger) Warn(msg string) { l.logger.Warn().Msg(msg) }

// Error logs an error message.
func (l *Logger) Error(err error, msg string) { l.logger.Error().Err(err).Msg(msg) }

// Fatal logs a fatal message and exits.
func (l *Logger) Fatal(err error, msg string) { l.logger.Fatal().Err(err).Msg(msg) }

// ChunkWritten logs a new (non-deduplicated) chunk write.
func (l *Logger) ChunkWritten(id string, plaintextSize, storedSize int) {
	l.logger.Debug().
		Str("chunk_id", id).
		Int("plaintext_size", plaintextSize).
		Int("stored_size", storedSize).
		Msg("chunk written")
}

// ChunkDeduplicated logs a write_chunk call that hit an existing id.
func (l *Logger) ChunkDeduplicated(id string) {
	l.logger.Debug().
		Str("chunk_id", id).
		Msg("chunk deduplicated")
}

// ManifestCommitted logs a successful archive commit.
func (l *Logger) ManifestCommitted(archiveName string, tag string, parents int) {
	l.logger.Info().
		Str("archive", archiveName).
		Str("tag", tag).
		Int("parent_count", parents).
		Msg("manifest transaction committed")
}

// ManifestVerifyFailed logs a manifest head that failed verification.
func (l *Logger) ManifestVerifyFailed(tag string, err error) {
	l.logger.Error().
		Str("tag", tag).
		Err(err).
		Msg("manifest verification failed")
}

func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}
