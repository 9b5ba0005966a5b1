package chunker

import (
	"bytes"
	"testing"
)

func BenchmarkFastCDC(b *testing.B) {
	data := make([]byte, 8*1024*1024)
	for i := range data {
		data[i] = byte(i * 2654435761)
	}
	s := DefaultSettings()
	c, err := NewFastCDC(s)
	if err != nil {
		b.Fatal(err)
	}

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ChunkAll(c.Chunk(bytes.NewReader(data))); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBuzhash(b *testing.B) {
	data := make([]byte, 8*1024*1024)
	for i := range data {
		data[i] = byte(i * 2654435761)
	}
	s := DefaultSettings()
	c, err := NewBuzhash(s)
	if err != nil {
		b.Fatal(err)
	}

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ChunkAll(c.Chunk(bytes.NewReader(data))); err != nil {
			b.Fatal(err)
		}
	}
}
