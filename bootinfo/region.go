package bootinfo

import "gopherboot/kernel/mem/pmm"

// MemoryRegionType classifies the ownership and usability of a physical
// memory region. Its values are part of the handoff ABI and must never be
// reordered.
type MemoryRegionType uint32

const (
	// RegionUsable indicates free RAM.
	RegionUsable MemoryRegionType = iota

	// RegionInUse indicates RAM that is occupied by something not covered
	// by a more specific type.
	RegionInUse

	// RegionReserved indicates memory that is not available for use.
	RegionReserved

	// RegionAcpiReclaimable indicates memory holding ACPI tables that can
	// be reused once the tables have been parsed.
	RegionAcpiReclaimable

	// RegionAcpiNvs indicates memory that must be preserved across
	// hibernation.
	RegionAcpiNvs

	// RegionBadMemory indicates memory reported as defective.
	RegionBadMemory

	// RegionKernel indicates memory holding the kernel image.
	RegionKernel

	// RegionKernelStack indicates memory used by the kernel stack.
	RegionKernelStack

	// RegionPageTable indicates memory used by page tables.
	RegionPageTable

	// RegionBootloader indicates memory used by the loader.
	RegionBootloader

	// RegionFrameZero marks the frame at physical address 0. It should
	// never be handed out as it is too easily confused with a nil pointer.
	RegionFrameZero

	// RegionEmpty marks an unused slot in the memory map.
	RegionEmpty

	// RegionBootInfo indicates memory holding the BootInfo record.
	RegionBootInfo
)

// String implements fmt.Stringer for MemoryRegionType.
func (t MemoryRegionType) String() string {
	switch t {
	case RegionUsable:
		return "usable"
	case RegionInUse:
		return "in use"
	case RegionReserved:
		return "reserved"
	case RegionAcpiReclaimable:
		return "ACPI (reclaimable)"
	case RegionAcpiNvs:
		return "ACPI NVS"
	case RegionBadMemory:
		return "bad memory"
	case RegionKernel:
		return "kernel"
	case RegionKernelStack:
		return "kernel stack"
	case RegionPageTable:
		return "page table"
	case RegionBootloader:
		return "bootloader"
	case RegionFrameZero:
		return "frame zero"
	case RegionEmpty:
		return "empty"
	case RegionBootInfo:
		return "boot info"
	default:
		return "unknown"
	}
}

// MemoryRegion describes a frame-aligned physical memory range and its type.
type MemoryRegion struct {
	// The frames covered by this region.
	Range pmm.FrameRange

	// The region classification.
	Type MemoryRegionType

	// Pads the record to 24 bytes; without it, 32-bit targets would align
	// the struct to 4 bytes and disagree with 64-bit targets on its size.
	_ uint32
}

// EmptyRegion returns the sentinel region that occupies unused memory map
// slots.
func EmptyRegion() MemoryRegion {
	return MemoryRegion{Type: RegionEmpty}
}

// IsEmpty returns true if the region covers no frames.
func (r MemoryRegion) IsEmpty() bool {
	return r.Range.IsEmpty()
}
