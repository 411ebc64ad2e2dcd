package models

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

// AuxType is an auxiliary vector tag, as found in linux/auxvec.h.
type AuxType uint64

const (
	ELF_AT_NULL AuxType = iota
	ELF_AT_IGNORE
	ELF_AT_EXECFD
	ELF_AT_PHDR
	ELF_AT_PHENT
	ELF_AT_PHNUM
	ELF_AT_PAGESZ
	ELF_AT_BASE
	ELF_AT_FLAGS
	ELF_AT_ENTRY
	ELF_AT_NOTELF
	ELF_AT_UID
	ELF_AT_EUID
	ELF_AT_GID
	ELF_AT_EGID
	ELF_AT_PLATFORM
	ELF_AT_HWCAP
	ELF_AT_CLKTCK
	ELF_AT_SECURE            AuxType = 23
	ELF_AT_BASE_PLATFORM     AuxType = 24
	ELF_AT_RANDOM            AuxType = 25
	ELF_AT_HWCAP2            AuxType = 26
	ELF_AT_RSEQ_FEATURE_SIZE AuxType = 27
	ELF_AT_RSEQ_ALIGN        AuxType = 28
	ELF_AT_HWCAP3            AuxType = 29
	ELF_AT_HWCAP4            AuxType = 30
	ELF_AT_EXECFN            AuxType = 31
	ELF_AT_SYSINFO           AuxType = 32
	ELF_AT_SYSINFO_EHDR      AuxType = 33
	ELF_AT_MINSIGSTKSZ       AuxType = 51
)

var auxNames = map[AuxType]string{
	ELF_AT_NULL:              "AT_NULL",
	ELF_AT_IGNORE:            "AT_IGNORE",
	ELF_AT_EXECFD:            "AT_EXECFD",
	ELF_AT_PHDR:              "AT_PHDR",
	ELF_AT_PHENT:             "AT_PHENT",
	ELF_AT_PHNUM:             "AT_PHNUM",
	ELF_AT_PAGESZ:            "AT_PAGESZ",
	ELF_AT_BASE:              "AT_BASE",
	ELF_AT_FLAGS:             "AT_FLAGS",
	ELF_AT_ENTRY:             "AT_ENTRY",
	ELF_AT_NOTELF:            "AT_NOTELF",
	ELF_AT_UID:               "AT_UID",
	ELF_AT_EUID:              "AT_EUID",
	ELF_AT_GID:               "AT_GID",
	ELF_AT_EGID:              "AT_EGID",
	ELF_AT_PLATFORM:          "AT_PLATFORM",
	ELF_AT_HWCAP:             "AT_HWCAP",
	ELF_AT_CLKTCK:            "AT_CLKTCK",
	ELF_AT_SECURE:            "AT_SECURE",
	ELF_AT_BASE_PLATFORM:     "AT_BASE_PLATFORM",
	ELF_AT_RANDOM:            "AT_RANDOM",
	ELF_AT_HWCAP2:            "AT_HWCAP2",
	ELF_AT_RSEQ_FEATURE_SIZE: "AT_RSEQ_FEATURE_SIZE",
	ELF_AT_RSEQ_ALIGN:        "AT_RSEQ_ALIGN",
	ELF_AT_HWCAP3:            "AT_HWCAP3",
	ELF_AT_HWCAP4:            "AT_HWCAP4",
	ELF_AT_EXECFN:            "AT_EXECFN",
	ELF_AT_SYSINFO:           "AT_SYSINFO",
	ELF_AT_SYSINFO_EHDR:      "AT_SYSINFO_EHDR",
	ELF_AT_MINSIGSTKSZ:       "AT_MINSIGSTKSZ",
}

func (a AuxType) String() string {
	if name, ok := auxNames[a]; ok {
		return name
	}
	return fmt.Sprintf("AT_%d", uint64(a))
}

type AuxEntry struct {
	Type AuxType
	Val  uint64
}

func (a AuxEntry) String() string {
	return fmt.Sprintf("%s=0x%x", a.Type, a.Val)
}

type Elf32Auxv struct {
	Type, Val uint32
}

type Elf64Auxv struct {
	Type, Val uint64
}

// PackAuxv lays out entries as Elf32_auxv_t or Elf64_auxv_t pairs and
// terminates the vector with AT_NULL.
func PackAuxv(auxv []AuxEntry, bits int, order binary.ByteOrder) ([]byte, error) {
	var buf bytes.Buffer
	auxv = append(auxv[:len(auxv):len(auxv)], AuxEntry{ELF_AT_NULL, 0})
	for _, a := range auxv {
		var err error
		if bits == 32 {
			if a.Val > 0xffffffff {
				return nil, errors.Errorf("%s does not fit in 32 bits", a)
			}
			err = struc.PackWithOrder(&buf, &Elf32Auxv{uint32(a.Type), uint32(a.Val)}, order)
		} else {
			err = struc.PackWithOrder(&buf, &Elf64Auxv{uint64(a.Type), a.Val}, order)
		}
		if err != nil {
			return nil, errors.Wrap(err, "struc.Pack() failed")
		}
	}
	return buf.Bytes(), nil
}

// UnpackAuxv reads pairs until AT_NULL. The terminator is not returned.
func UnpackAuxv(p []byte, bits int, order binary.ByteOrder) ([]AuxEntry, error) {
	r := bytes.NewReader(p)
	var auxv []AuxEntry
	for {
		var a AuxEntry
		var err error
		if bits == 32 {
			var tmp Elf32Auxv
			err = struc.UnpackWithOrder(r, &tmp, order)
			a = AuxEntry{AuxType(tmp.Type), uint64(tmp.Val)}
		} else {
			var tmp Elf64Auxv
			err = struc.UnpackWithOrder(r, &tmp, order)
			a = AuxEntry{AuxType(tmp.Type), tmp.Val}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, errors.New("auxv is missing its AT_NULL terminator")
		} else if err != nil {
			return nil, errors.Wrap(err, "struc.Unpack() failed")
		}
		if a.Type == ELF_AT_NULL {
			return auxv, nil
		}
		auxv = append(auxv, a)
	}
}
