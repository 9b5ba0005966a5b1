package manifest

import (
	"testing"
	"time"

	"github.com/sambhavthakkar/archivevault/internal/chunk"
	"github.com/sambhavthakkar/archivevault/internal/crypto"
	"github.com/stretchr/testify/require"
)

func TestMemoryLogWriteAndIterate(t *testing.T) {
	log := NewMemoryLog(testKey())

	_, err := log.WriteArchive(chunk.ID{0x01}, "A", crypto.MACBlake2b, time.Now())
	require.NoError(t, err)
	_, err = log.WriteArchive(chunk.ID{0x02}, "B", crypto.MACBlake2b, time.Now().Add(time.Second))
	require.NoError(t, err)

	archives := log.Archives()
	require.Len(t, archives, 2)
	require.Equal(t, "B", archives[0].ArchiveName)
	require.Equal(t, "A", archives[1].ArchiveName)
}

func TestMemoryLogHeadsChainAcrossCommits(t *testing.T) {
	log := NewMemoryLog(testKey())

	txn1, err := log.WriteArchive(chunk.ID{0x01}, "A", crypto.MACBlake2b, time.Now())
	require.NoError(t, err)
	txn2, err := log.WriteArchive(chunk.ID{0x02}, "B", crypto.MACBlake2b, time.Now().Add(time.Second))
	require.NoError(t, err)

	require.Len(t, txn2.PreviousHeads, 1)
	require.Equal(t, txn1.Tag, txn2.PreviousHeads[0])
}

func TestMemoryLogLastModified(t *testing.T) {
	log := NewMemoryLog(testKey())
	_, ok := log.LastModified()
	require.False(t, ok)

	ts := time.Now()
	_, err := log.WriteArchive(chunk.ID{0x01}, "A", crypto.MACBlake2b, ts)
	require.NoError(t, err)

	latest, ok := log.LastModified()
	require.True(t, ok)
	require.WithinDuration(t, ts, latest, time.Millisecond)
}
