package auxv

import (
	"encoding/binary"
	"encoding/hex"
	"os"
	"slices"

	"github.com/pkg/errors"

	"github.com/lunixbochs/elfinfo/go/cmd"
	"github.com/lunixbochs/elfinfo/go/info"
	"github.com/lunixbochs/elfinfo/go/loader"
	"github.com/lunixbochs/elfinfo/go/models"
)

func byteOrder(big bool) binary.ByteOrder {
	if big {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func Main(args []string) int {
	c := cmd.NewElfCmd()
	var decode *string
	var bits *int
	var big *bool
	c.SetupFlags = func() error {
		decode = c.Flags.String("decode", "", "print a packed auxv (such as /proc/self/auxv) instead of building one")
		bits = c.Flags.Int("bits", 64, "word size for -decode")
		big = c.Flags.Bool("be", false, "big endian for -decode")
		return nil
	}
	c.RunElf = func(e *info.ElfInfo, l *loader.ElfLoader) error {
		p, err := Pack(e, l, c.Config.PageSize, c.InterpBase())
		if err != nil {
			return err
		}
		c.Printf("%s", hex.Dump(p))
		return nil
	}
	c.RunRaw = func(args []string) (bool, error) {
		if *decode == "" {
			return false, nil
		}
		p, err := os.ReadFile(*decode)
		if err != nil {
			return true, errors.WithStack(err)
		}
		auxv, err := models.UnpackAuxv(p, *bits, byteOrder(*big))
		if err != nil {
			return true, err
		}
		for _, a := range auxv {
			c.Printf("%-20s 0x%x\n", a.Type, a.Val)
		}
		return true, nil
	}
	return c.Run(args)
}

// Pack builds the image's auxv in its own word size and byte order, AT_NULL
// terminated.
func Pack(e *info.ElfInfo, l *loader.ElfLoader, pagesz uint64, ldsoBase *uint64) ([]byte, error) {
	seq, err := e.AuxVector(pagesz, ldsoBase)
	if err != nil {
		return nil, err
	}
	return models.PackAuxv(slices.Collect(seq), l.Bits(), l.ByteOrder())
}

func init() { cmd.Register("auxv", "hex dump the auxv a binary would start with, or -decode one", Main) }
