// Package info derives loader-ready addresses from a parsed ELF image:
// the entry point, the mapped program header table, PT_LOAD segment
// descriptors and the ELF-specific part of the auxiliary vector.
//
// Every address an ElfInfo returns is the file's address plus Base(). Base is
// the caller's bias for ET_DYN images (PIE executables, shared objects and
// dynamic linkers) and 0 for everything else.
package info

import (
	"debug/elf"
	"iter"

	"github.com/pkg/errors"

	"github.com/lunixbochs/elfinfo/go/models"
)

var (
	ErrMalformedInput     = errors.New("invalid elf: bad magic")
	ErrInconsistentLayout = errors.New("program header table is outside every PT_LOAD segment")
)

// ElfInfo is a read-only view over a models.ElfFile. It keeps a reference to
// the file, so the file (and the buffer behind it) must outlive it.
type ElfInfo struct {
	elf  models.ElfFile
	base uint64
}

// New checks the ELF magic and resolves the load base. bias is only used
// when the image is ET_DYN.
func New(f models.ElfFile, bias uint64) (*ElfInfo, error) {
	hdr := f.Header()
	if !hdr.HasMagic() {
		return nil, errors.Wrapf(ErrMalformedInput, "ident % x", hdr.Ident[:4])
	}
	var base uint64
	if hdr.Type == elf.ET_DYN {
		base = bias
	}
	return &ElfInfo{elf: f, base: base}, nil
}

func (e *ElfInfo) Base() uint64 {
	return e.base
}

func (e *ElfInfo) Elf() models.ElfFile {
	return e.elf
}

func (e *ElfInfo) Entry() uint64 {
	// TODO: add a separate load address offset here if callers ever map the
	// image somewhere other than base.
	return e.elf.Header().Entry + e.base
}

func (e *ElfInfo) Phnum() uint64 {
	return uint64(e.elf.Header().Phnum)
}

func (e *ElfInfo) Phent() uint64 {
	return uint64(e.elf.Header().Phentsize)
}

// Phdr returns the address the program header table will have once the
// PT_LOAD segment containing it is mapped.
func (e *ElfInfo) Phdr() (uint64, error) {
	phoff := e.elf.Header().Phoff
	for seg := range e.LoadSegments() {
		if seg.ContainsPhys(phoff) {
			return phoff - seg.Off + seg.Vaddr, nil
		}
	}
	return 0, errors.Wrapf(ErrInconsistentLayout, "phoff 0x%x", phoff)
}

// LoadSegments yields a descriptor for each PT_LOAD entry in file order.
// Nothing is cached; each iteration reads the program headers again.
func (e *ElfInfo) LoadSegments() iter.Seq[models.LoadSegment] {
	return func(yield func(models.LoadSegment) bool) {
		for _, ph := range e.elf.Progs() {
			if ph.Type != elf.PT_LOAD {
				continue
			}
			seg := models.LoadSegment{
				Off:    ph.Off,
				Vaddr:  ph.Vaddr + e.base,
				Memsz:  ph.Memsz,
				Filesz: ph.Filesz,
				Flags:  ph.Flags,
			}
			if !yield(seg) {
				return
			}
		}
	}
}

// AuxVector yields the image's auxv entries: AT_PHDR, AT_PHENT, AT_PHNUM,
// AT_PAGESZ and AT_ENTRY, plus AT_BASE when ldsoBase is set. Terminating
// the vector with AT_NULL is left to the caller.
func (e *ElfInfo) AuxVector(pagesz uint64, ldsoBase *uint64) (iter.Seq[models.AuxEntry], error) {
	phdr, err := e.Phdr()
	if err != nil {
		return nil, err
	}
	auxv := []models.AuxEntry{
		{models.ELF_AT_PHDR, phdr},
		{models.ELF_AT_PHENT, e.Phent()},
		{models.ELF_AT_PHNUM, e.Phnum()},
		{models.ELF_AT_PAGESZ, pagesz},
		{models.ELF_AT_ENTRY, e.Entry()},
	}
	if ldsoBase != nil {
		auxv = append(auxv, models.AuxEntry{models.ELF_AT_BASE, *ldsoBase})
	}
	return func(yield func(models.AuxEntry) bool) {
		for _, a := range auxv {
			if !yield(a) {
				return
			}
		}
	}, nil
}

// Footprint is the page-aligned range covering every PT_LOAD segment, for
// reserving address space before mapping. It is empty if there are none.
// pagesz must be a power of two; otherwise segments are left unaligned.
func (e *ElfInfo) Footprint(pagesz uint64) models.Segment {
	var span *models.Segment
	for seg := range e.LoadSegments() {
		s := models.PageAlign(seg.Vaddr, seg.Memsz, pagesz)
		if span == nil {
			span = s
		} else {
			span.Merge(s)
		}
	}
	if span == nil {
		return models.Segment{}
	}
	return *span
}

// Interp returns the PT_INTERP path if the underlying file exposes one.
func (e *ElfInfo) Interp() string {
	if f, ok := e.elf.(interface{ Interp() string }); ok {
		return f.Interp()
	}
	return ""
}
