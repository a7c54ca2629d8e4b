package loader

import (
	"gopherboot/bootinfo"
	"gopherboot/kernel"
	"gopherboot/kernel/mem/pmm"
)

// pageTableMinFrame is the first frame (16M) that page table allocations
// prefer.
const pageTableMinFrame = pmm.Frame(0x1000)

var (
	errOutOfMemory       = &kernel.Error{Module: "frame_alloc", Message: "out of memory"}
	errNotUsable         = &kernel.Error{Module: "frame_alloc", Message: "region is not part of any usable memory region"}
	errOverlapsNonUsable = &kernel.Error{Module: "frame_alloc", Message: "region overlaps with a non-usable memory region"}
	errNoFreeSlots       = &kernel.Error{Module: "frame_alloc", Message: "not enough free memory map slots"}
)

// FrameAllocator hands out physical frames during boot by carving them out
// of the usable regions of a memory map. Every allocation is recorded in the
// map itself so the kernel learns which frames the loader consumed.
type FrameAllocator struct {
	memoryMap *bootinfo.MemoryMap
}

// NewFrameAllocator returns a FrameAllocator that operates on m.
func NewFrameAllocator(m *bootinfo.MemoryMap) FrameAllocator {
	return FrameAllocator{memoryMap: m}
}

// AllocateFrame reserves a single frame and records it as a regionType
// region. Whenever possible the frame is taken from a usable region that
// directly follows an existing regionType region so that consecutive
// allocations extend a single map entry instead of consuming new slots.
func (alloc *FrameAllocator) AllocateFrame(regionType bootinfo.MemoryRegionType) (pmm.Frame, *kernel.Error) {
	regions := alloc.memoryMap.Regions()
	for i := 0; i+1 < len(regions); i++ {
		region, next := &regions[i], &regions[i+1]
		if region.Type != regionType || next.Type != bootinfo.RegionUsable {
			continue
		}

		if next.IsEmpty() || next.Range.Start != region.Range.End || alloc.isReserved(next.Range.Start.Frame()) {
			continue
		}

		frame := region.Range.End.Frame()
		region.Range.End = (frame + 1).Address()
		next.Range.Start = region.Range.End

		// next may now be empty; Sort drops it from the visible regions.
		alloc.memoryMap.Sort()
		return frame, nil
	}

	if alloc.memoryMap.Len() >= bootinfo.MaxRegions {
		return pmm.InvalidFrame, errNoFreeSlots
	}

	frame := pmm.InvalidFrame
	if regionType == bootinfo.RegionPageTable {
		frame = alloc.splitUsableRegion(pageTableMinFrame)
	}
	if !frame.Valid() {
		frame = alloc.splitUsableRegion(0)
	}
	if !frame.Valid() {
		return pmm.InvalidFrame, errOutOfMemory
	}

	err := alloc.memoryMap.AddRegion(bootinfo.MemoryRegion{
		Range: pmm.FrameRangeOf(frame, frame+1),
		Type:  regionType,
	})
	if err != nil {
		return pmm.InvalidFrame, err
	}

	return frame, nil
}

// splitUsableRegion removes the first free frame from the first usable
// region that starts at or above minFrame and returns it. Frames at the start
// of the region that are covered by a non-usable region are dropped from the
// usable region along with the returned frame. It returns InvalidFrame if no
// such frame exists.
func (alloc *FrameAllocator) splitUsableRegion(minFrame pmm.Frame) pmm.Frame {
	regions := alloc.memoryMap.Regions()
	for i := range regions {
		region := &regions[i]
		if region.Type != bootinfo.RegionUsable || region.IsEmpty() || region.Range.Start.Frame() < minFrame {
			continue
		}

		frame, endFrame := region.Range.Start.Frame(), region.Range.End.Frame()
		for frame < endFrame && alloc.isReserved(frame) {
			frame++
		}

		if frame == endFrame {
			continue
		}

		region.Range.Start = (frame + 1).Address()
		return frame
	}

	return pmm.InvalidFrame
}

// isReserved returns true if frame is covered by any region that is not
// usable. Firmware ranges are widened to frame boundaries independently, so
// a usable region may share its first or last frame with a reserved one.
func (alloc *FrameAllocator) isReserved(frame pmm.Frame) bool {
	for _, region := range alloc.memoryMap.Regions() {
		if region.Type != bootinfo.RegionUsable && region.Range.Contains(frame.Address()) {
			return true
		}
	}
	return false
}

// MarkAllocated records region as allocated by carving it out of every usable
// region it overlaps. Depending on where region falls, a usable region is
// trimmed at the front, trimmed at the back, split in two or dropped
// entirely.
//
// MarkAllocated returns an error if region overlaps any region that is not
// usable or if it does not overlap any usable region at all. A failed call
// leaves the map untouched.
func (alloc *FrameAllocator) MarkAllocated(region bootinfo.MemoryRegion) *kernel.Error {
	var (
		overlaps, covered int
		split             bool
	)

	regions := alloc.memoryMap.Regions()
	for i := range regions {
		r := &regions[i]
		if !r.Range.Overlaps(region.Range) {
			continue
		}

		if r.Type != bootinfo.RegionUsable {
			return errOverlapsNonUsable
		}

		overlaps++
		switch {
		case region.Range.Start <= r.Range.Start && region.Range.End >= r.Range.End:
			covered++
		case region.Range.Start > r.Range.Start && region.Range.End < r.Range.End:
			split = true
		}
	}

	if overlaps == 0 {
		return errNotUsable
	}

	// Covered regions free their slots; a split needs one more for the
	// tail. region itself always needs a slot.
	needed := 1 - covered
	if split {
		needed++
	}
	if alloc.memoryMap.Len()+needed > bootinfo.MaxRegions {
		return errNoFreeSlots
	}

	var tail bootinfo.MemoryRegion
	for i := range regions {
		r := &regions[i]
		if !r.Range.Overlaps(region.Range) {
			continue
		}

		switch {
		case region.Range.Start <= r.Range.Start && region.Range.End >= r.Range.End:
			// ----rrrrrrrr----
			// --RRRRRRRRRRRR--
			r.Range.End = r.Range.Start
		case region.Range.Start <= r.Range.Start:
			// ----rrrrrrrr----
			// --RRRRR---------
			r.Range.Start = region.Range.End
		case region.Range.End >= r.Range.End:
			// ----rrrrrrrr----
			// ---------RRRRR--
			r.Range.End = region.Range.Start
		default:
			// ----rrrrrrrr----
			// ------RRR-------
			tail = *r
			tail.Range.Start = region.Range.End
			r.Range.End = region.Range.Start
		}
	}

	// Drop the regions that became empty before inserting anything.
	alloc.memoryMap.Sort()

	if split {
		if err := alloc.memoryMap.AddRegion(tail); err != nil {
			return err
		}
	}

	return alloc.memoryMap.AddRegion(region)
}
