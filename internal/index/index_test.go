package index

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sambhavthakkar/archivevault/internal/chunk"
	"github.com/sambhavthakkar/archivevault/internal/segment"
)

func testID(b byte) chunk.ID {
	var id chunk.ID
	id[0] = b
	return id
}

func testBackends(t *testing.T) map[string]Index {
	t.Helper()
	boltIdx, err := OpenBolt(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { boltIdx.Close() })

	return map[string]Index{
		"memory": NewMemory(),
		"bolt":   boltIdx,
	}
}

func TestIndexSetAndLookup(t *testing.T) {
	for name, idx := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			id := testID(1)
			desc := segment.Descriptor{SegmentID: 3, Start: 128}

			_, ok := idx.Lookup(id)
			require.False(t, ok)

			idx.Set(id, desc)
			got, ok := idx.Lookup(id)
			require.True(t, ok)
			require.Equal(t, desc, got)
			require.Equal(t, 1, idx.Count())
		})
	}
}

func TestIndexSetIsFirstWriterWins(t *testing.T) {
	for name, idx := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			id := testID(2)
			first := segment.Descriptor{SegmentID: 1, Start: 0}
			second := segment.Descriptor{SegmentID: 9, Start: 999}

			idx.Set(id, first)
			idx.Set(id, second)

			got, ok := idx.Lookup(id)
			require.True(t, ok)
			require.Equal(t, first, got)
			require.Equal(t, 1, idx.Count())
		})
	}
}

func TestIndexKnownChunks(t *testing.T) {
	for name, idx := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			idx.Set(testID(1), segment.Descriptor{})
			idx.Set(testID(2), segment.Descriptor{})

			known := idx.KnownChunks()
			require.Len(t, known, 2)
			_, ok := known[testID(1)]
			require.True(t, ok)
		})
	}
}

func TestBoltIndexSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenBolt(path)
	require.NoError(t, err)

	id := testID(5)
	desc := segment.Descriptor{SegmentID: 2, Start: 64}
	idx.Set(id, desc)
	require.NoError(t, idx.Commit())
	require.NoError(t, idx.Close())

	reopened, err := OpenBolt(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, ok := reopened.Lookup(id)
	require.True(t, ok)
	require.Equal(t, desc, got)
	require.Equal(t, 1, reopened.Count())
}
