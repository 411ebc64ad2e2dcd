package models

import (
	"debug/elf"
	"encoding/binary"
)

var ElfMagic = [4]byte{0x7f, 'E', 'L', 'F'}

// ElfHeader holds the file header fields an image loader needs. debug/elf
// drops Phoff/Phentsize/Phnum after parsing, so parsers fill them in here.
type ElfHeader struct {
	Ident     [elf.EI_NIDENT]byte
	Class     elf.Class
	Data      elf.Data
	Type      elf.Type
	Machine   elf.Machine
	Entry     uint64
	Phoff     uint64
	Phentsize uint16
	Phnum     uint16
}

func (h *ElfHeader) HasMagic() bool {
	return h.Ident[0] == ElfMagic[0] && h.Ident[1] == ElfMagic[1] &&
		h.Ident[2] == ElfMagic[2] && h.Ident[3] == ElfMagic[3]
}

func (h *ElfHeader) Bits() int {
	if h.Class == elf.ELFCLASS32 {
		return 32
	}
	return 64
}

func (h *ElfHeader) ByteOrder() binary.ByteOrder {
	if h.Data == elf.ELFDATA2MSB {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Elf64Header is Elf64_Ehdr after e_ident.
type Elf64Header struct {
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint64
	Phoff     uint64
	Shoff     uint64
	Flags     uint32
	Ehsize    uint16
	Phentsize uint16
	Phnum     uint16
	Shentsize uint16
	Shnum     uint16
	Shstrndx  uint16
}

// Elf32Header is Elf32_Ehdr after e_ident, widened to the 64-bit field types.
type Elf32Header struct {
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint64 `struc:"uint32"`
	Phoff     uint64 `struc:"uint32"`
	Shoff     uint64 `struc:"uint32"`
	Flags     uint32
	Ehsize    uint16
	Phentsize uint16
	Phnum     uint16
	Shentsize uint16
	Shnum     uint16
	Shstrndx  uint16
}

// ElfFile is a parsed ELF image. Implementations are read-only views over a
// caller-owned buffer and must stay valid for as long as anything derived
// from them is in use.
type ElfFile interface {
	Header() *ElfHeader
	Progs() []elf.ProgHeader
}
