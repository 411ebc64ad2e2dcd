package loader

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
)

var UnknownMagic = errors.New("Could not identify file magic.")

func LoadFile(path string) (*ElfLoader, error) {
	p, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return Load(bytes.NewReader(p))
}

func Load(r io.ReaderAt) (*ElfLoader, error) {
	if MatchElf(r) {
		return NewElfLoader(r)
	} else if MatchCgc(r) {
		return NewCgcLoader(r)
	} else {
		return nil, errors.WithStack(UnknownMagic)
	}
}
