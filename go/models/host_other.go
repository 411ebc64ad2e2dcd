//go:build !unix

package models

import "debug/elf"

// Linux values, for hosts without an mmap of their own.
const (
	protRead  = 0x1
	protWrite = 0x2
	protExec  = 0x4
)

func Prot(flags elf.ProgFlag) int {
	prot := 0
	if flags&elf.PF_R != 0 {
		prot |= protRead
	}
	if flags&elf.PF_W != 0 {
		prot |= protWrite
	}
	if flags&elf.PF_X != 0 {
		prot |= protExec
	}
	return prot
}

func HostPageSize() uint64 {
	return 4096
}
