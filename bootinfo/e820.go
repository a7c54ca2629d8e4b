package bootinfo

import (
	"gopherboot/kernel"
	"gopherboot/kernel/mem"
	"gopherboot/kernel/mem/pmm"
)

var (
	errUnknownRegionType = &kernel.Error{Module: "bootinfo", Message: "unknown firmware memory region type"}
	errInvalidAddress    = &kernel.Error{Module: "bootinfo", Message: "firmware memory region exceeds the physical address space"}
)

// E820MemoryRegion is a raw memory descriptor as reported by the firmware.
// Its layout matches both the E820 BIOS call output and the multiboot2
// memory map entries.
type E820MemoryRegion struct {
	// The physical address where the region begins. Not necessarily
	// page-aligned.
	StartAddr uint64

	// The region length in bytes.
	Length uint64

	// The firmware-defined region type.
	Type uint32

	// ACPI 3.0 extended attributes.
	ExtendedAttributes uint32
}

// firmwareRegionTypes maps firmware type codes to region types. Code 0 is
// unused by firmware.
var firmwareRegionTypes = [...]MemoryRegionType{
	1: RegionUsable,
	2: RegionReserved,
	3: RegionAcpiReclaimable,
	4: RegionAcpiNvs,
	5: RegionBadMemory,
}

// FromE820 converts a raw firmware memory descriptor into a MemoryRegion.
//
// The returned range is widened to frame boundaries: the start address is
// rounded down and the end address is rounded up, so the result always
// contains the firmware range.
//
// FromE820 returns an error if the firmware type code is not recognized or
// if the region does not fit in the physical address space.
func FromE820(rec E820MemoryRegion) (MemoryRegion, *kernel.Error) {
	if rec.Type == 0 || rec.Type >= uint32(len(firmwareRegionTypes)) {
		return EmptyRegion(), errUnknownRegionType
	}

	end := rec.StartAddr + rec.Length
	if end < rec.StartAddr || pmm.PhysAddr(end) > pmm.MaxPhysAddr {
		return EmptyRegion(), errInvalidAddress
	}

	return MemoryRegion{
		Range: pmm.FrameRange{
			Start: pmm.PhysAddr(rec.StartAddr).AlignDown(uint64(mem.PageSize)),
			End:   pmm.PhysAddr(end).AlignUp(uint64(mem.PageSize)),
		},
		Type: firmwareRegionTypes[rec.Type],
	}, nil
}
