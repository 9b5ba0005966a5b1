package chunker

import (
	"bufio"
	"io"
	"math/bits"
)

// buzTable maps each byte value to a pseudo-random 32-bit word, the same
// role gearTable plays for FastCDC. Derived from the same splitmix64 stream
// seeded differently so the two algorithms don't share cut behavior.
var buzTable = makeBuzTable(0xd1b54a32d192ed03)

func makeBuzTable(seed uint64) [256]uint32 {
	var table [256]uint32
	x := seed
	for i := range table {
		x += 0x9e3779b97f4a7c15
		z := x
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		z = z ^ (z >> 31)
		table[i] = uint32(z)
	}
	return table
}

// buzWindow is the classical window size (bytes) over which the cyclic
// polynomial hash is maintained.
const buzWindow = 64

// Buzhash implements the classical cyclic polynomial rolling hash chunker:
// a fixed-size window's bytes are each rotated by their position and
// XORed together, and a cut is taken where the low bits of the resulting
// hash are zero.
type Buzhash struct {
	settings Settings
	cutBits  uint
}

// NewBuzhash constructs a Buzhash chunker. The number of low zero-bits
// required for a cut is derived from AvgSize so the expected chunk size
// matches the FastCDC chunker configured with the same settings.
func NewBuzhash(s Settings) (*Buzhash, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	cutBits := uint(bits.Len(uint(s.AvgSize))) - 1
	return &Buzhash{settings: s, cutBits: cutBits}, nil
}

// Chunk implements Chunker.
func (b *Buzhash) Chunk(r io.Reader) Iterator {
	return &buzhashIterator{r: bufio.NewReaderSize(r, 64<<10), b: b}
}

type buzhashIterator struct {
	r   *bufio.Reader
	b   *Buzhash
	eof bool
}

func (it *buzhashIterator) Next() ([]byte, error) {
	if it.eof {
		return nil, io.EOF
	}

	s := it.b.settings
	mask := uint32(1)<<it.b.cutBits - 1
	buf := make([]byte, 0, s.AvgSize)

	var window [buzWindow]byte
	var wn int // bytes currently held in the window, up to buzWindow
	var hash uint32

	for {
		c, err := it.r.ReadByte()
		if err != nil {
			it.eof = true
			if len(buf) == 0 {
				return nil, io.EOF
			}
			return buf, nil
		}

		buf = append(buf, c)

		if wn == buzWindow {
			out := window[0]
			copy(window[:], window[1:])
			window[buzWindow-1] = c
			hash = rotl32(hash, 1) ^ rotl32(buzTable[out], uint32(buzWindow)%32) ^ buzTable[c]
		} else {
			window[wn] = c
			wn++
			hash = rotl32(hash, 1) ^ buzTable[c]
		}

		n := len(buf)
		if n < s.MinSize {
			continue
		}
		if n >= s.MaxSize {
			return buf, nil
		}
		if wn == buzWindow && hash&mask == 0 {
			return buf, nil
		}
	}
}

func rotl32(x uint32, n uint32) uint32 {
	n &= 31
	return x<<n | x>>(32-n)
}
