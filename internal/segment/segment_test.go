package segment

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sambhavthakkar/archivevault/internal/chunk"
	"github.com/sambhavthakkar/archivevault/internal/crypto"
)

func sampleChunk(id byte) chunk.Chunk {
	var cid chunk.ID
	cid[0] = id
	return chunk.Chunk{
		ID:               cid,
		Ciphertext:       bytes.Repeat([]byte{id}, 64),
		Compression:      crypto.CompZStd,
		CompressionLevel: 6,
		Encryption:       crypto.AES256CTR,
		IV:               bytes.Repeat([]byte{0xaa}, 16),
		HMACAlgo:         crypto.MACBlake2b,
		MAC:              bytes.Repeat([]byte{0xbb}, 32),
	}
}

func TestFileStoreWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, DefaultMaxSize)
	require.NoError(t, err)
	defer store.Close()

	c := sampleChunk(1)
	desc, err := store.WriteChunk(c)
	require.NoError(t, err)

	got, err := store.ReadChunk(desc)
	require.NoError(t, err)
	require.Equal(t, c, got)
}

func TestFileStoreMultipleChunksDistinctOffsets(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, DefaultMaxSize)
	require.NoError(t, err)
	defer store.Close()

	var descs []Descriptor
	for i := byte(0); i < 10; i++ {
		d, err := store.WriteChunk(sampleChunk(i))
		require.NoError(t, err)
		descs = append(descs, d)
	}

	for i, d := range descs {
		got, err := store.ReadChunk(d)
		require.NoError(t, err)
		require.Equal(t, byte(i), got.ID[0])
	}
}

func TestFileStoreRotatesAtCap(t *testing.T) {
	dir := t.TempDir()
	// A tiny cap forces rotation after the first chunk.
	store, err := Open(dir, 32)
	require.NoError(t, err)
	defer store.Close()

	d1, err := store.WriteChunk(sampleChunk(1))
	require.NoError(t, err)
	d2, err := store.WriteChunk(sampleChunk(2))
	require.NoError(t, err)

	require.NotEqual(t, d1.SegmentID, d2.SegmentID)
}

func TestFileStoreReopenResumesSegmentIDs(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, DefaultMaxSize)
	require.NoError(t, err)
	d1, err := store.WriteChunk(sampleChunk(1))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store2, err := Open(dir, 32)
	require.NoError(t, err)
	defer store2.Close()
	d2, err := store2.WriteChunk(sampleChunk(2))
	require.NoError(t, err)
	require.NotEqual(t, d1.SegmentID, d2.SegmentID)
}

func TestMemoryStoreWriteReadRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	c := sampleChunk(7)
	desc, err := store.WriteChunk(c)
	require.NoError(t, err)
	require.Equal(t, uint64(0), desc.SegmentID)

	got, err := store.ReadChunk(desc)
	require.NoError(t, err)
	require.Equal(t, c, got)
}

func TestMemoryStoreSingleWriteHasPositiveLen(t *testing.T) {
	store := NewMemoryStore()
	c := sampleChunk(9)

	_, err := store.WriteChunk(c)
	require.NoError(t, err)
	before := store.Len()

	// A well-formed dedup-aware caller never calls WriteChunk twice for the
	// same id; this test documents the size of one write so repository
	// tests can assert "byte count grows by exactly one write".
	require.Positive(t, before)
}
