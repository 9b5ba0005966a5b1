package observability

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerEmitsServiceFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger("archivevault", "test", &buf)
	log.Info("hello")

	out := buf.String()
	require.Contains(t, out, `"service":"archivevault"`)
	require.Contains(t, out, `"version":"test"`)
	require.Contains(t, out, "hello")
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger("archivevault", "test", &buf)
	log.WithRepository("/tmp/repo").WithArchive("nightly").Info("event")

	out := buf.String()
	require.Contains(t, out, `"repository":"/tmp/repo"`)
	require.Contains(t, out, `"archive":"nightly"`)
}

func TestChunkEventsEmit(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger("archivevault", "test", &buf)
	log.ChunkWritten("abcd", 1024, 512)
	log.ChunkDeduplicated("abcd")

	out := buf.String()
	require.Contains(t, out, "chunk written")
	require.Contains(t, out, "chunk deduplicated")
}
