// Package loader builds the BootInfo record that is handed over to the
// kernel: it collects the firmware memory map, records every range that the
// loader itself occupies and stamps the result with the format version.
package loader

import (
	"gopherboot/bootinfo"
	"gopherboot/kernel"
	"gopherboot/kernel/hal/multiboot"
	"gopherboot/kernel/kfmt"
	"gopherboot/kernel/mem"
	"gopherboot/kernel/mem/pmm"
	"unsafe"
)

var (
	// panicFn is mocked by tests.
	panicFn = kfmt.Panic

	errLayoutOverlap = &kernel.Error{Module: "loader", Message: "boot info address overlaps a loader-owned range"}
)

// RecordSource invokes visitor for each raw firmware memory descriptor. The
// scan stops when visitor returns false.
type RecordSource func(visitor func(rec *bootinfo.E820MemoryRegion) bool)

// MultibootRecords is a RecordSource that reads the memory map from the
// multiboot information structure registered via multiboot.SetInfoPtr.
func MultibootRecords(visitor func(rec *bootinfo.E820MemoryRegion) bool) {
	var rec bootinfo.E820MemoryRegion
	multiboot.VisitMemRegions(func(entry *multiboot.MemoryMapEntry) bool {
		rec = bootinfo.E820MemoryRegion{
			StartAddr:          entry.PhysAddress,
			Length:             entry.Length,
			Type:               entry.Type,
			ExtendedAttributes: entry.Reserved,
		}
		return visitor(&rec)
	})
}

// BuildMemoryMap converts every firmware record into a memory region and
// returns the resulting map. Records with a zero length describe no memory
// and are skipped. The first conversion or insertion failure aborts the
// scan and is returned to the caller.
func BuildMemoryMap(src RecordSource) (bootinfo.MemoryMap, *kernel.Error) {
	var err *kernel.Error

	m := bootinfo.NewMemoryMap()
	src(func(rec *bootinfo.E820MemoryRegion) bool {
		if rec.Length == 0 {
			return true
		}

		var region bootinfo.MemoryRegion
		if region, err = bootinfo.FromE820(*rec); err != nil {
			return false
		}

		err = m.AddRegion(region)
		return err == nil
	})

	return m, err
}

// Layout describes the physical memory ranges occupied by the loader and by
// the kernel image it loaded. All bounds are byte addresses; they are widened
// to frame boundaries before being recorded. Empty ranges are ignored.
type Layout struct {
	LoaderStart, LoaderEnd           pmm.PhysAddr
	KernelStart, KernelEnd           pmm.PhysAddr
	KernelStackStart, KernelStackEnd pmm.PhysAddr
	PageTableStart, PageTableEnd     pmm.PhysAddr

	// P4TableAddr is the physical address of the root page table.
	P4TableAddr pmm.PhysAddr

	// BootInfoAddr is the physical address where the BootInfo record will
	// be stored. If zero, Handoff allocates frames for it.
	BootInfoAddr pmm.PhysAddr
}

// bootInfoSize is the number of bytes occupied by a BootInfo record.
const bootInfoSize = mem.Size(unsafe.Sizeof(bootinfo.BootInfo{}))

// Handoff records the loader-owned ranges described by layout in m and
// writes the finished BootInfo record to dst. The boot info address that
// ends up being used is returned so the caller can pass it to the kernel
// entry point.
//
// The following regions are recorded: the frame at address 0, the loader
// image, the kernel image, the kernel stack, the page tables and the frames
// that hold the BootInfo record.
func Handoff(m *bootinfo.MemoryMap, layout Layout, dst *bootinfo.BootInfo) (pmm.PhysAddr, *kernel.Error) {
	alloc := NewFrameAllocator(m)

	// Frame zero is only recorded if it is usable memory; firmware often
	// already reports it as reserved.
	zero := bootinfo.MemoryRegion{Range: pmm.FrameRangeOf(0, 1), Type: bootinfo.RegionFrameZero}
	if err := alloc.MarkAllocated(zero); err != nil && err != errOverlapsNonUsable && err != errNotUsable {
		return 0, err
	}

	owned := [...]struct {
		start, end pmm.PhysAddr
		regionType bootinfo.MemoryRegionType
	}{
		{layout.LoaderStart, layout.LoaderEnd, bootinfo.RegionBootloader},
		{layout.KernelStart, layout.KernelEnd, bootinfo.RegionKernel},
		{layout.KernelStackStart, layout.KernelStackEnd, bootinfo.RegionKernelStack},
		{layout.PageTableStart, layout.PageTableEnd, bootinfo.RegionPageTable},
	}

	for _, r := range owned {
		if r.start >= r.end {
			continue
		}

		if err := alloc.MarkAllocated(frameAlignedRegion(r.start, r.end, r.regionType)); err != nil {
			return 0, err
		}
	}

	bootInfoAddr := layout.BootInfoAddr
	if bootInfoAddr == 0 {
		// The record always fits in a single frame.
		frame, err := alloc.AllocateFrame(bootinfo.RegionBootInfo)
		if err != nil {
			return 0, err
		}
		bootInfoAddr = frame.Address()
	} else {
		region := frameAlignedRegion(bootInfoAddr, bootInfoAddr.Add(bootInfoSize), bootinfo.RegionBootInfo)
		if err := alloc.MarkAllocated(region); err != nil {
			if err == errOverlapsNonUsable {
				return 0, errLayoutOverlap
			}
			return 0, err
		}
	}

	*dst = bootinfo.New(layout.P4TableAddr, *m)
	return bootInfoAddr, nil
}

// frameAlignedRegion returns a region covering [start, end) widened to frame
// boundaries.
func frameAlignedRegion(start, end pmm.PhysAddr, regionType bootinfo.MemoryRegionType) bootinfo.MemoryRegion {
	return bootinfo.MemoryRegion{
		Range: pmm.FrameRange{
			Start: start.AlignDown(uint64(mem.PageSize)),
			End:   end.AlignUp(uint64(mem.PageSize)),
		},
		Type: regionType,
	}
}

// Main builds the memory map from the multiboot information at
// multibootInfoPtr, records the ranges described by layout and writes the
// BootInfo record. It returns the physical address of the record. Any
// failure is fatal.
func Main(multibootInfoPtr uintptr, layout Layout) pmm.PhysAddr {
	multiboot.SetInfoPtr(multibootInfoPtr)

	m, err := BuildMemoryMap(MultibootRecords)
	if err != nil {
		panicFn(err)
		return 0
	}

	var scratch bootinfo.BootInfo
	addr, err := Handoff(&m, layout, &scratch)
	if err != nil {
		panicFn(err)
		return 0
	}

	// Copy the record into its final location. From this point on the
	// loader must not touch the map again.
	*(*bootinfo.BootInfo)(unsafe.Pointer(uintptr(addr))) = scratch

	kfmt.Printf("[loader] boot info at 0x%x, %d memory regions\n", uint64(addr), scratch.MemoryMap.Len())
	return addr
}
