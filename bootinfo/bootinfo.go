// Package bootinfo defines the record that the loader hands over to the
// kernel: a format version, the physical address of the active page table
// root and a map describing all physical memory.
//
// Both programs compile this package independently, so every type in it has
// a fixed, word-size independent layout.
package bootinfo

import (
	"gopherboot/kernel"
	"gopherboot/kernel/mem/pmm"
)

// Version is the handoff format version. It must be bumped whenever the
// layout of BootInfo or any type it embeds changes.
const Version uint64 = 1

var errVersionMismatch = &kernel.Error{Module: "bootinfo", Message: "boot info version mismatch"}

// BootInfo is the record passed from the loader to the kernel entry point.
type BootInfo struct {
	// Version must be checked against the kernel's compiled-in Version
	// before any other field is read.
	Version uint64

	// P4TableAddr is the physical address of the root page table that is
	// active when the kernel entry point runs. The table is identity
	// mapped, covered by a RegionPageTable region and owned by the kernel
	// from the moment control is transferred.
	P4TableAddr pmm.PhysAddr

	// MemoryMap describes all physical memory known to the loader.
	MemoryMap MemoryMap
}

// New returns a BootInfo stamped with the current Version.
func New(p4TableAddr pmm.PhysAddr, memoryMap MemoryMap) BootInfo {
	return BootInfo{
		Version:     Version,
		P4TableAddr: p4TableAddr,
		MemoryMap:   memoryMap,
	}
}

// CheckVersion returns an error if the record was produced for a different
// format version.
func (info *BootInfo) CheckVersion() *kernel.Error {
	if info.Version != Version {
		return errVersionMismatch
	}
	return nil
}

// SortMemoryMap re-sorts the embedded memory map.
func (info *BootInfo) SortMemoryMap() {
	info.MemoryMap.Sort()
}
