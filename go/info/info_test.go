package info

import (
	"debug/elf"
	"encoding/binary"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"

	"github.com/lunixbochs/elfinfo/go/models"
	"github.com/lunixbochs/elfinfo/go/models/mock"
)

const pieBias = 0x7f0000000000

func mustNew(t *testing.T, f models.ElfFile, bias uint64) *ElfInfo {
	t.Helper()
	e, err := New(f, bias)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func mustPhdr(t *testing.T, e *ElfInfo) uint64 {
	t.Helper()
	phdr, err := e.Phdr()
	if err != nil {
		t.Fatal(err)
	}
	return phdr
}

func TestStaticExec(t *testing.T) {
	e := mustNew(t, mock.StaticExec(64, binary.LittleEndian), pieBias)
	if e.Base() != 0 {
		t.Fatalf("base = 0x%x, want 0", e.Base())
	}
	if e.Entry() != 0x401000 {
		t.Fatalf("entry = 0x%x, want 0x401000", e.Entry())
	}
	if phdr := mustPhdr(t, e); phdr != 0x400040 {
		t.Fatalf("phdr = 0x%x, want 0x400040", phdr)
	}
	if e.Phnum() != 4 || e.Phent() != 56 {
		t.Fatalf("phnum/phent = %d/%d, want 4/56", e.Phnum(), e.Phent())
	}
}

func TestStaticExecIgnoresBias(t *testing.T) {
	for _, bias := range []uint64{0, 0x1000, pieBias, ^uint64(0)} {
		e := mustNew(t, mock.StaticExec(64, binary.LittleEndian), bias)
		if e.Base() != 0 {
			t.Fatalf("bias 0x%x: base = 0x%x, want 0", bias, e.Base())
		}
	}
}

func TestSharedObject(t *testing.T) {
	e := mustNew(t, mock.SharedObject(64, binary.LittleEndian), pieBias)
	if e.Base() != pieBias {
		t.Fatalf("base = 0x%x, want 0x%x", e.Base(), uint64(pieBias))
	}
	if e.Entry() != 0x7f0000401000 {
		t.Fatalf("entry = 0x%x, want 0x7f0000401000", e.Entry())
	}
	if phdr := mustPhdr(t, e); phdr != 0x7f0000400040 {
		t.Fatalf("phdr = 0x%x, want 0x7f0000400040", phdr)
	}
}

func TestLoadSegmentsRebased(t *testing.T) {
	f := mock.SharedObject(64, binary.LittleEndian)
	e := mustNew(t, f, pieBias)
	var want []models.LoadSegment
	for _, ph := range f.Progs() {
		if ph.Type == elf.PT_LOAD {
			want = append(want, models.LoadSegment{
				Off:    ph.Off,
				Vaddr:  ph.Vaddr + pieBias,
				Memsz:  ph.Memsz,
				Filesz: ph.Filesz,
				Flags:  ph.Flags,
			})
		}
	}
	got := slices.Collect(e.LoadSegments())
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("LoadSegments() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSegmentsOnlyLoad(t *testing.T) {
	e := mustNew(t, mock.Dynamic(64, binary.LittleEndian, "/lib/ld-linux.so.2"), 0)
	want := []models.LoadSegment{
		{Off: 0, Vaddr: 0x400000, Memsz: 0x2000, Filesz: 0x1000, Flags: elf.PF_R | elf.PF_X},
		{Off: 0x1000, Vaddr: 0x403000, Memsz: 0x800, Filesz: 0x100, Flags: elf.PF_R | elf.PF_W},
	}
	first := slices.Collect(e.LoadSegments())
	if diff := cmp.Diff(want, first); diff != "" {
		t.Fatalf("LoadSegments() mismatch (-want +got):\n%s", diff)
	}
	second := slices.Collect(e.LoadSegments())
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("second iteration differs (-first +second):\n%s", diff)
	}
}

func TestLoadSegmentsStop(t *testing.T) {
	e := mustNew(t, mock.StaticExec(64, binary.LittleEndian), 0)
	n := 0
	for range e.LoadSegments() {
		n++
		break
	}
	if n != 1 {
		t.Fatalf("iterated %d times after break", n)
	}
}

func TestPhdrInsideSegment(t *testing.T) {
	for _, bits := range []int{32, 64} {
		for _, bias := range []uint64{0, 0x10000, pieBias} {
			if bits == 32 && bias > 0xffffffff {
				continue
			}
			f := mock.SharedObject(bits, binary.LittleEndian)
			e := mustNew(t, f, bias)
			phdr := mustPhdr(t, e)
			found := false
			for seg := range e.LoadSegments() {
				if seg.ContainsPhys(f.Hdr.Phoff) {
					found = true
					if !seg.ContainsVirt(phdr) {
						t.Fatalf("%d-bit bias 0x%x: phdr 0x%x outside segment at 0x%x+0x%x", bits, bias, phdr, seg.Vaddr, seg.Memsz)
					}
					if phdr-seg.Vaddr != f.Hdr.Phoff-seg.Off {
						t.Fatalf("%d-bit: phdr 0x%x not at phoff 0x%x within segment", bits, phdr, f.Hdr.Phoff)
					}
				}
			}
			if !found {
				t.Fatalf("%d-bit: no segment contains phoff", bits)
			}
		}
	}
}

func TestPhdr32(t *testing.T) {
	e := mustNew(t, mock.StaticExec(32, binary.BigEndian), 0)
	if phdr := mustPhdr(t, e); phdr != 0x400034 {
		t.Fatalf("phdr = 0x%x, want 0x400034", phdr)
	}
	if e.Phent() != 32 {
		t.Fatalf("phent = %d, want 32", e.Phent())
	}
}

func TestBadMagic(t *testing.T) {
	f := mock.StaticExec(64, binary.LittleEndian)
	copy(f.Hdr.Ident[:], "\x7fCGC")
	e, err := New(f, 0)
	if errors.Cause(err) != ErrMalformedInput {
		t.Fatalf("err = %v, want ErrMalformedInput", err)
	}
	if e != nil {
		t.Fatal("New returned an ElfInfo for a bad magic")
	}
}

func TestInconsistentLayout(t *testing.T) {
	f := mock.StaticExec(64, binary.LittleEndian)
	// file range of the first PT_LOAD ends at 0x1000, the second covers 0x1000-0x1100
	f.Hdr.Phoff = 0x1100
	e := mustNew(t, f, 0)
	if _, err := e.Phdr(); errors.Cause(err) != ErrInconsistentLayout {
		t.Fatalf("Phdr err = %v, want ErrInconsistentLayout", err)
	}
	if _, err := e.AuxVector(4096, nil); errors.Cause(err) != ErrInconsistentLayout {
		t.Fatalf("AuxVector err = %v, want ErrInconsistentLayout", err)
	}
	// the remaining accessors don't depend on the layout
	if e.Entry() != 0x401000 {
		t.Fatalf("entry = 0x%x", e.Entry())
	}
}

func TestPhdrIgnoresNonLoad(t *testing.T) {
	f := mock.StaticExec(64, binary.LittleEndian)
	// only PT_PHDR covers the table now
	f.Phdrs[1].Off = 0x2000
	f.Phdrs[3].Off = 0x3000
	e := mustNew(t, f, 0)
	if _, err := e.Phdr(); errors.Cause(err) != ErrInconsistentLayout {
		t.Fatalf("Phdr err = %v, want ErrInconsistentLayout", err)
	}
}

func TestAuxVector(t *testing.T) {
	e := mustNew(t, mock.SharedObject(64, binary.LittleEndian), pieBias)
	seq, err := e.AuxVector(4096, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []models.AuxEntry{
		{models.ELF_AT_PHDR, 0x7f0000400040},
		{models.ELF_AT_PHENT, 56},
		{models.ELF_AT_PHNUM, 4},
		{models.ELF_AT_PAGESZ, 4096},
		{models.ELF_AT_ENTRY, 0x7f0000401000},
	}
	if diff := cmp.Diff(want, slices.Collect(seq)); diff != "" {
		t.Fatalf("AuxVector() mismatch (-want +got):\n%s", diff)
	}
	// restartable
	if diff := cmp.Diff(want, slices.Collect(seq)); diff != "" {
		t.Fatalf("second AuxVector() iteration mismatch (-want +got):\n%s", diff)
	}
}

func TestAuxVectorInterpBase(t *testing.T) {
	e := mustNew(t, mock.StaticExec(64, binary.LittleEndian), 0)
	ldso := uint64(0x7fff00000000)
	seq, err := e.AuxVector(0x10000, &ldso)
	if err != nil {
		t.Fatal(err)
	}
	auxv := slices.Collect(seq)
	if len(auxv) != 6 {
		t.Fatalf("got %d entries, want 6: %v", len(auxv), auxv)
	}
	bases := 0
	for _, a := range auxv {
		if a.Type == models.ELF_AT_BASE {
			bases++
			if a.Val != ldso {
				t.Fatalf("AT_BASE = 0x%x, want 0x%x", a.Val, ldso)
			}
		}
		if a.Type == models.ELF_AT_PAGESZ && a.Val != 0x10000 {
			t.Fatalf("AT_PAGESZ = 0x%x", a.Val)
		}
	}
	if bases != 1 {
		t.Fatalf("found %d AT_BASE entries", bases)
	}

	seq, err = e.AuxVector(0x10000, nil)
	if err != nil {
		t.Fatal(err)
	}
	for a := range seq {
		if a.Type == models.ELF_AT_BASE {
			t.Fatal("AT_BASE present without an interpreter base")
		}
	}
}

func TestFootprint(t *testing.T) {
	e := mustNew(t, mock.SharedObject(64, binary.LittleEndian), pieBias)
	want := models.Segment{Start: pieBias + 0x400000, End: pieBias + 0x404000}
	if got := e.Footprint(0x1000); got != want {
		t.Fatalf("Footprint = %+v, want %+v", got, want)
	}
	// 64k pages round the second segment's end up
	want = models.Segment{Start: pieBias + 0x400000, End: pieBias + 0x410000}
	if got := e.Footprint(0x10000); got != want {
		t.Fatalf("Footprint(64k) = %+v, want %+v", got, want)
	}
	// a page size that is not a power of two leaves the raw segment hull
	want = models.Segment{Start: pieBias + 0x400000, End: pieBias + 0x403800}
	if got := e.Footprint(3000); got != want {
		t.Fatalf("Footprint(3000) = %+v, want %+v", got, want)
	}

	f := mock.StaticExec(64, binary.LittleEndian)
	f.Phdrs = nil
	if got := mustNew(t, f, 0).Footprint(0x1000); got != (models.Segment{}) {
		t.Fatalf("Footprint without segments = %+v", got)
	}
}

func TestInterp(t *testing.T) {
	e := mustNew(t, mock.Dynamic(64, binary.LittleEndian, "/lib64/ld-linux-x86-64.so.2"), pieBias)
	if e.Interp() != "/lib64/ld-linux-x86-64.so.2" {
		t.Fatalf("interp = %q", e.Interp())
	}
	if e.Elf().Header().Type != elf.ET_DYN {
		t.Fatal("Elf() did not return the wrapped file")
	}
}
