package inspect

import (
	"fmt"

	"github.com/lunixbochs/elfinfo/go/cmd"
	"github.com/lunixbochs/elfinfo/go/info"
	"github.com/lunixbochs/elfinfo/go/loader"
	"github.com/lunixbochs/elfinfo/go/models"
)

func Main(args []string) int {
	c := cmd.NewElfCmd()
	c.RunElf = func(e *info.ElfInfo, l *loader.ElfLoader) error {
		return Print(c, e, l)
	}
	return c.Run(args)
}

// Print writes a readelf-style summary of everything a loader needs.
func Print(c *cmd.ElfCmd, e *info.ElfInfo, l *loader.ElfLoader) error {
	hdr := l.Header()
	label := func(s string) string { return c.Color(fmt.Sprintf("%-10s", s), "cyan+b") }

	c.Printf("%s %s %s %d-bit %s\n", label("type"), hdr.Type, l.Arch(), l.Bits(), l.OS())
	if interp := e.Interp(); interp != "" {
		if resolved := c.Config.PrefixPath(interp, false); resolved != interp {
			c.Printf("%s %s (%s)\n", label("interp"), interp, resolved)
		} else {
			c.Printf("%s %s\n", label("interp"), interp)
		}
	}
	c.Printf("%s 0x%x\n", label("base"), e.Base())
	c.Printf("%s 0x%x\n", label("entry"), e.Entry())
	phdr, err := e.Phdr()
	if err != nil {
		return err
	}
	c.Printf("%s 0x%x (%d entries of %d bytes)\n", label("phdr"), phdr, e.Phnum(), e.Phent())
	span := e.Footprint(c.Config.PageSize)
	c.Printf("%s 0x%x-0x%x (0x%x bytes)\n", label("footprint"), span.Start, span.End, span.Size())

	c.Printf("\n%s\n", c.Color("LOAD segments:", "green+b"))
	c.Printf("  %-10s %-18s %-10s %-10s %-4s %s\n", "offset", "vaddr", "filesz", "memsz", "perm", "prot")
	for seg := range e.LoadSegments() {
		c.Printf("  0x%08x 0x%016x 0x%08x 0x%08x %-4s %d\n",
			seg.Off, seg.Vaddr, seg.Filesz, seg.Memsz, seg.PermString(), models.Prot(seg.Flags))
	}

	auxv, err := e.AuxVector(c.Config.PageSize, c.InterpBase())
	if err != nil {
		return err
	}
	c.Printf("\n%s\n", c.Color("auxv:", "green+b"))
	for a := range auxv {
		c.Printf("  %-10s 0x%x\n", a.Type, a.Val)
	}
	return nil
}

func init() { cmd.Register("info", "print entry, program headers, segments and auxv of a binary", Main) }
