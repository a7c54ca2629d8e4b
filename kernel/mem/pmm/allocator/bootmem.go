package allocator

import (
	"gopherboot/bootinfo"
	"gopherboot/kernel"
	"gopherboot/kernel/kfmt"
	"gopherboot/kernel/mem"
	"gopherboot/kernel/mem/pmm"
)

var (
	// earlyAllocator is a boot mem allocator instance used for page
	// allocations before switching to a more advanced allocator.
	earlyAllocator bootMemAllocator

	errBootAllocOutOfMemory = &kernel.Error{Module: "boot_mem_alloc", Message: "out of memory"}
	errNoMemoryMap          = &kernel.Error{Module: "boot_mem_alloc", Message: "no memory map supplied"}
)

// bootMemAllocator implements a rudimentary physical memory allocator which is
// used to bootstrap the kernel.
//
// The allocator walks the memory map that the loader stored in the boot info
// record and returns the next free frame. Frames that belong to a usable
// region but are also covered by a region of any other type (loader image,
// kernel, page tables, firmware reservations) are never handed out.
// Allocations are tracked via an internal counter that contains the last
// allocated frame.
//
// Allocated frames cannot be freed.
type bootMemAllocator struct {
	memoryMap *bootinfo.MemoryMap

	// allocCount tracks the total number of allocated frames.
	allocCount uint64

	// lastAllocFrame tracks the last allocated frame number.
	lastAllocFrame pmm.Frame
}

// init sets up the boot memory allocator internal state.
func (alloc *bootMemAllocator) init(m *bootinfo.MemoryMap) {
	alloc.memoryMap = m
	alloc.allocCount = 0
	alloc.lastAllocFrame = 0
}

// AllocFrame scans the usable memory regions and reserves the next available
// free frame.
//
// AllocFrame returns an error if no more memory can be allocated.
func (alloc *bootMemAllocator) AllocFrame() (pmm.Frame, *kernel.Error) {
	if alloc.memoryMap == nil {
		return pmm.InvalidFrame, errNoMemoryMap
	}

	for _, region := range alloc.memoryMap.Regions() {
		if region.Type != bootinfo.RegionUsable || region.IsEmpty() {
			continue
		}

		startFrame := region.Range.Start.Frame()
		endFrame := region.Range.End.Frame() - 1

		// Ignore already allocated regions
		if alloc.allocCount != 0 && alloc.lastAllocFrame >= endFrame {
			continue
		}

		frame := startFrame
		if alloc.allocCount != 0 && alloc.lastAllocFrame >= startFrame {
			frame = alloc.lastAllocFrame + 1
		}

		for ; frame <= endFrame; frame++ {
			if !alloc.isReserved(frame) {
				alloc.lastAllocFrame = frame
				alloc.allocCount++
				return frame, nil
			}
		}
	}

	return pmm.InvalidFrame, errBootAllocOutOfMemory
}

// isReserved returns true if any non-usable region covers frame.
func (alloc *bootMemAllocator) isReserved(frame pmm.Frame) bool {
	addr := frame.Address()
	for _, region := range alloc.memoryMap.Regions() {
		if region.Type != bootinfo.RegionUsable && region.Range.Contains(addr) {
			return true
		}
	}
	return false
}

// printMemoryMap prints out the memory map handed over by the loader.
func (alloc *bootMemAllocator) printMemoryMap() {
	kfmt.Printf("[boot_mem_alloc] system memory map:\n")
	for _, region := range alloc.memoryMap.Regions() {
		kfmt.Printf("\t[0x%10x - 0x%10x], size: %10d, type: %s\n",
			uint64(region.Range.Start), uint64(region.Range.End),
			uint64(region.Range.Size()), region.Type.String(),
		)
	}
	kfmt.Printf("[boot_mem_alloc] free memory: %dKb\n", uint64(alloc.memoryMap.UsableSize()/mem.Kb))
}

// AllocFrame reserves a frame using the early allocator.
func AllocFrame() (pmm.Frame, *kernel.Error) {
	return earlyAllocator.AllocFrame()
}

// Init sets up the kernel physical memory allocation sub-system using the
// memory map that the loader stored in the boot info record.
func Init(m *bootinfo.MemoryMap) *kernel.Error {
	if m == nil {
		return errNoMemoryMap
	}

	earlyAllocator.init(m)
	earlyAllocator.printMemoryMap()
	return nil
}
