package models

import "debug/elf"

// LoadSegment describes one PT_LOAD entry, with Vaddr already rebased.
// Filesz bytes come from the file at Off; the rest up to Memsz is zero fill.
type LoadSegment struct {
	Off    uint64
	Vaddr  uint64
	Memsz  uint64
	Filesz uint64
	Flags  elf.ProgFlag
}

func (s *LoadSegment) ContainsPhys(off uint64) bool {
	return s.Off <= off && off-s.Off < s.Filesz
}

func (s *LoadSegment) ContainsVirt(addr uint64) bool {
	return s.Vaddr <= addr && addr-s.Vaddr < s.Memsz
}

func (s *LoadSegment) Readable() bool   { return s.Flags&elf.PF_R != 0 }
func (s *LoadSegment) Writable() bool   { return s.Flags&elf.PF_W != 0 }
func (s *LoadSegment) Executable() bool { return s.Flags&elf.PF_X != 0 }

// PermString renders the flags the way readelf and /proc/self/maps do.
func (s *LoadSegment) PermString() string {
	perm := []byte("---")
	if s.Readable() {
		perm[0] = 'r'
	}
	if s.Writable() {
		perm[1] = 'w'
	}
	if s.Executable() {
		perm[2] = 'x'
	}
	return string(perm)
}

type Segment struct {
	Start, End uint64
}

func (s *Segment) Merge(o *Segment) {
	if s.Start > o.Start {
		s.Start = o.Start
	}
	if s.End < o.End {
		s.End = o.End
	}
}

func (s *Segment) Size() uint64 {
	return s.End - s.Start
}

// PageAlign widens [addr, addr+size) out to page boundaries. pagesz must be a
// power of two; any other value leaves the range unaligned.
func PageAlign(addr, size, pagesz uint64) *Segment {
	if pagesz == 0 || pagesz&(pagesz-1) != 0 {
		return &Segment{addr, addr + size}
	}
	mask := pagesz - 1
	start := addr &^ mask
	end := (addr + size + mask) &^ mask
	return &Segment{start, end}
}
