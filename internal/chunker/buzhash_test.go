package chunker

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuzhashRespectsBounds(t *testing.T) {
	s := Settings{MinSize: 2 << 10, AvgSize: 8 << 10, MaxSize: 64 << 10}
	c, err := NewBuzhash(s)
	require.NoError(t, err)

	data := randomBytes(t, 5*1024*1024, 13)
	chunks, err := ChunkAll(c.Chunk(bytes.NewReader(data)))
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for i, ch := range chunks {
		require.LessOrEqual(t, len(ch), s.MaxSize)
		if i != len(chunks)-1 {
			require.GreaterOrEqual(t, len(ch), s.MinSize)
		}
	}
}

func TestBuzhashShorterThanWindowNeverCutsEarly(t *testing.T) {
	s := Settings{MinSize: 1, AvgSize: 4, MaxSize: buzWindow - 1}
	c, err := NewBuzhash(s)
	require.NoError(t, err)

	data := randomBytes(t, buzWindow-1, 5)
	chunks, err := ChunkAll(c.Chunk(bytes.NewReader(data)))
	require.NoError(t, err)
	require.Len(t, chunks, 1, "a stream shorter than the window can only force-cut at MaxSize or EOF")
}
