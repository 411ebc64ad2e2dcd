//go:build unix

package models

import (
	"debug/elf"

	"golang.org/x/sys/unix"
)

// Prot converts segment flags to mmap/mprotect protection bits.
func Prot(flags elf.ProgFlag) int {
	prot := unix.PROT_NONE
	if flags&elf.PF_R != 0 {
		prot |= unix.PROT_READ
	}
	if flags&elf.PF_W != 0 {
		prot |= unix.PROT_WRITE
	}
	if flags&elf.PF_X != 0 {
		prot |= unix.PROT_EXEC
	}
	return prot
}

func HostPageSize() uint64 {
	return uint64(unix.Getpagesize())
}
