package mock

import (
	"bytes"
	"debug/elf"
	"encoding/binary"

	"github.com/lunixbochs/struc"

	"github.com/lunixbochs/elfinfo/go/models"
)

// ElfFile is an in-memory models.ElfFile. Bytes() renders it as a real image.
type ElfFile struct {
	Hdr        models.ElfHeader
	Phdrs      []elf.ProgHeader
	InterpPath string
}

func (e *ElfFile) Header() *models.ElfHeader { return &e.Hdr }
func (e *ElfFile) Progs() []elf.ProgHeader   { return e.Phdrs }
func (e *ElfFile) Interp() string            { return e.InterpPath }

func ehsize(bits int) uint64 {
	if bits == 32 {
		return 52
	}
	return 64
}

func phentsize(bits int) uint16 {
	if bits == 32 {
		return 32
	}
	return 56
}

func ident(bits int, order binary.ByteOrder) [elf.EI_NIDENT]byte {
	var id [elf.EI_NIDENT]byte
	copy(id[:], models.ElfMagic[:])
	id[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	if bits == 32 {
		id[elf.EI_CLASS] = byte(elf.ELFCLASS32)
	}
	id[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	if order == binary.BigEndian {
		id[elf.EI_DATA] = byte(elf.ELFDATA2MSB)
	}
	id[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	return id
}

// StaticExec is a static executable with its entry at 0x401000 and its
// program headers right after the file header, inside the first PT_LOAD
// (file offset 0 mapped at 0x400000).
func StaticExec(bits int, order binary.ByteOrder) *ElfFile {
	phoff := ehsize(bits)
	progs := []elf.ProgHeader{
		{Type: elf.PT_PHDR, Flags: elf.PF_R, Off: phoff, Vaddr: 0x400000 + phoff, Filesz: 4 * uint64(phentsize(bits)), Memsz: 4 * uint64(phentsize(bits)), Align: 8},
		{Type: elf.PT_LOAD, Flags: elf.PF_R | elf.PF_X, Off: 0, Vaddr: 0x400000, Filesz: 0x1000, Memsz: 0x2000, Align: 0x1000},
		{Type: elf.PT_GNU_STACK, Flags: elf.PF_R | elf.PF_W},
		{Type: elf.PT_LOAD, Flags: elf.PF_R | elf.PF_W, Off: 0x1000, Vaddr: 0x403000, Filesz: 0x100, Memsz: 0x800, Align: 0x1000},
	}
	for i := range progs {
		progs[i].Paddr = progs[i].Vaddr
	}
	machine := elf.EM_X86_64
	if bits == 32 {
		machine = elf.EM_386
	}
	id := ident(bits, order)
	return &ElfFile{
		Hdr: models.ElfHeader{
			Ident:     id,
			Class:     elf.Class(id[elf.EI_CLASS]),
			Data:      elf.Data(id[elf.EI_DATA]),
			Type:      elf.ET_EXEC,
			Machine:   machine,
			Entry:     0x401000,
			Phoff:     phoff,
			Phentsize: phentsize(bits),
			Phnum:     uint16(len(progs)),
		},
		Phdrs: progs,
	}
}

// SharedObject is StaticExec reinterpreted as ET_DYN.
func SharedObject(bits int, order binary.ByteOrder) *ElfFile {
	e := StaticExec(bits, order)
	e.Hdr.Type = elf.ET_DYN
	return e
}

// Dynamic is SharedObject with a PT_INTERP naming path, placed at 0x800.
func Dynamic(bits int, order binary.ByteOrder, path string) *ElfFile {
	e := SharedObject(bits, order)
	size := uint64(len(path) + 1)
	interp := elf.ProgHeader{Type: elf.PT_INTERP, Flags: elf.PF_R, Off: 0x800, Vaddr: 0x400800, Paddr: 0x400800, Filesz: size, Memsz: size, Align: 1}
	e.Phdrs = append([]elf.ProgHeader{e.Phdrs[0], interp}, e.Phdrs[1:]...)
	e.Hdr.Phnum = uint16(len(e.Phdrs))
	e.Phdrs[0].Filesz = uint64(e.Hdr.Phnum) * uint64(e.Hdr.Phentsize)
	e.Phdrs[0].Memsz = e.Phdrs[0].Filesz
	e.InterpPath = path
	return e
}

// Bytes lays out the header, program header table and PT_INTERP string.
// Segment contents are zero.
func (e *ElfFile) Bytes() ([]byte, error) {
	bits := e.Hdr.Bits()
	order := e.Hdr.ByteOrder()
	size := e.Hdr.Phoff + uint64(len(e.Phdrs))*uint64(e.Hdr.Phentsize)
	for _, p := range e.Phdrs {
		if end := p.Off + p.Filesz; end > size {
			size = end
		}
	}
	out := make([]byte, size)

	var buf bytes.Buffer
	buf.Write(e.Hdr.Ident[:])
	var err error
	if bits == 32 {
		err = struc.PackWithOrder(&buf, &models.Elf32Header{
			Type: uint16(e.Hdr.Type), Machine: uint16(e.Hdr.Machine), Version: uint32(elf.EV_CURRENT),
			Entry: e.Hdr.Entry, Phoff: e.Hdr.Phoff, Ehsize: uint16(ehsize(bits)),
			Phentsize: e.Hdr.Phentsize, Phnum: e.Hdr.Phnum,
		}, order)
	} else {
		err = struc.PackWithOrder(&buf, &models.Elf64Header{
			Type: uint16(e.Hdr.Type), Machine: uint16(e.Hdr.Machine), Version: uint32(elf.EV_CURRENT),
			Entry: e.Hdr.Entry, Phoff: e.Hdr.Phoff, Ehsize: uint16(ehsize(bits)),
			Phentsize: e.Hdr.Phentsize, Phnum: e.Hdr.Phnum,
		}, order)
	}
	if err != nil {
		return nil, err
	}
	copy(out, buf.Bytes())

	buf.Reset()
	for _, p := range e.Phdrs {
		if bits == 32 {
			err = struc.PackWithOrder(&buf, &elf.Prog32{
				Type: uint32(p.Type), Off: uint32(p.Off), Vaddr: uint32(p.Vaddr), Paddr: uint32(p.Paddr),
				Filesz: uint32(p.Filesz), Memsz: uint32(p.Memsz), Flags: uint32(p.Flags), Align: uint32(p.Align),
			}, order)
		} else {
			err = struc.PackWithOrder(&buf, &elf.Prog64{
				Type: uint32(p.Type), Flags: uint32(p.Flags), Off: p.Off, Vaddr: p.Vaddr, Paddr: p.Paddr,
				Filesz: p.Filesz, Memsz: p.Memsz, Align: p.Align,
			}, order)
		}
		if err != nil {
			return nil, err
		}
		if p.Type == elf.PT_INTERP {
			copy(out[p.Off:], e.InterpPath)
		}
	}
	copy(out[e.Hdr.Phoff:], buf.Bytes())
	return out, nil
}
