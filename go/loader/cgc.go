package loader

import (
	"bytes"
	"io"
)

var cgcMagic = []byte{0x7f, 0x43, 0x47, 0x43}

func MatchCgc(r io.ReaderAt) bool {
	return bytes.Equal(getMagic(r), cgcMagic)
}

// FakeCgcReader presents a DECREE/CGC binary as ELF by swapping its magic.
type FakeCgcReader struct {
	io.ReaderAt
}

func (f *FakeCgcReader) ReadAt(p []byte, off int64) (int, error) {
	n := 0
	if off < 4 {
		n = copy(p, elfMagic[off:])
		if n == len(p) {
			return n, nil
		}
		p = p[n:]
		off = 4
	}
	n1, err := f.ReaderAt.ReadAt(p, off)
	return n1 + n, err
}

func NewCgcLoader(r io.ReaderAt) (*ElfLoader, error) {
	l, err := NewElfLoader(&FakeCgcReader{r})
	if err != nil {
		return nil, err
	}
	l.os = "cgc"
	return l, nil
}
