package loader

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"io"
	"strings"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"

	"github.com/lunixbochs/elfinfo/go/models"
)

var machineMap = map[elf.Machine]string{
	elf.EM_386:     "x86",
	elf.EM_X86_64:  "x86_64",
	elf.EM_ARM:     "arm",
	elf.EM_AARCH64: "arm64",
	elf.EM_MIPS:    "mips",
	elf.EM_PPC:     "ppc",
	elf.EM_PPC64:   "ppc64",
	elf.EM_RISCV:   "riscv",
	elf.EM_SPARC:   "sparc",
	elf.EM_68K:     "m68k",
}

var elfMagic = models.ElfMagic[:]

func getMagic(r io.ReaderAt) []byte {
	ret := make([]byte, 4)
	r.ReadAt(ret, 0)
	return ret
}

func MatchElf(r io.ReaderAt) bool {
	return bytes.Equal(getMagic(r), elfMagic)
}

// ElfLoader decodes an ELF image from r. r must outlive the loader, since
// segment contents and PT_INTERP are read from it on demand.
type ElfLoader struct {
	arch   string
	os     string
	header models.ElfHeader
	progs  []elf.ProgHeader
	file   *elf.File
}

func readHeader(r io.ReaderAt) (*models.ElfHeader, error) {
	var h models.ElfHeader
	if _, err := r.ReadAt(h.Ident[:], 0); err != nil {
		return nil, errors.Wrap(err, "reading ELF ident")
	}
	h.Class = elf.Class(h.Ident[elf.EI_CLASS])
	h.Data = elf.Data(h.Ident[elf.EI_DATA])
	switch h.Data {
	case elf.ELFDATA2LSB, elf.ELFDATA2MSB:
	default:
		return nil, errors.Errorf("unknown ELF data encoding: %s", h.Data)
	}
	body := io.NewSectionReader(r, elf.EI_NIDENT, 1<<62)
	switch h.Class {
	case elf.ELFCLASS32:
		var tmp models.Elf32Header
		if err := struc.UnpackWithOrder(body, &tmp, h.ByteOrder()); err != nil {
			return nil, errors.Wrap(err, "struc.Unpack() failed")
		}
		h.Type, h.Machine = elf.Type(tmp.Type), elf.Machine(tmp.Machine)
		h.Entry, h.Phoff = tmp.Entry, tmp.Phoff
		h.Phentsize, h.Phnum = tmp.Phentsize, tmp.Phnum
	case elf.ELFCLASS64:
		var tmp models.Elf64Header
		if err := struc.UnpackWithOrder(body, &tmp, h.ByteOrder()); err != nil {
			return nil, errors.Wrap(err, "struc.Unpack() failed")
		}
		h.Type, h.Machine = elf.Type(tmp.Type), elf.Machine(tmp.Machine)
		h.Entry, h.Phoff = tmp.Entry, tmp.Phoff
		h.Phentsize, h.Phnum = tmp.Phentsize, tmp.Phnum
	default:
		return nil, errors.Errorf("unknown ELF class: %s", h.Class)
	}
	return &h, nil
}

func NewElfLoader(r io.ReaderAt) (*ElfLoader, error) {
	header, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	file, err := elf.NewFile(r)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	machineName, ok := machineMap[file.Machine]
	if !ok {
		machineName = file.Machine.String()
	}
	progs := make([]elf.ProgHeader, len(file.Progs))
	for i, prog := range file.Progs {
		progs[i] = prog.ProgHeader
	}
	return &ElfLoader{
		arch:   machineName,
		os:     "linux",
		header: *header,
		progs:  progs,
		file:   file,
	}, nil
}

func (e *ElfLoader) Arch() string {
	return e.arch
}

func (e *ElfLoader) OS() string {
	return e.os
}

func (e *ElfLoader) Bits() int {
	return e.header.Bits()
}

func (e *ElfLoader) ByteOrder() binary.ByteOrder {
	return e.header.ByteOrder()
}

// Entry is the unrebased e_entry.
func (e *ElfLoader) Entry() uint64 {
	return e.header.Entry
}

func (e *ElfLoader) Header() *models.ElfHeader {
	return &e.header
}

func (e *ElfLoader) Progs() []elf.ProgHeader {
	return e.progs
}

func (e *ElfLoader) Interp() string {
	for _, prog := range e.file.Progs {
		if prog.Type == elf.PT_INTERP {
			data, _ := io.ReadAll(prog.Open())
			return strings.TrimRight(string(data), "\x00")
		}
	}
	return ""
}

