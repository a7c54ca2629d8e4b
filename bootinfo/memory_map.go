package bootinfo

import (
	"gopherboot/kernel"
	"gopherboot/kernel/mem"
)

// MaxRegions is the number of slots in a MemoryMap.
const MaxRegions = 32

var (
	errMemoryMapFull = &kernel.Error{Module: "bootinfo", Message: "memory map is full"}
	errEmptyRegion   = &kernel.Error{Module: "bootinfo", Message: "attempted to add an empty memory region"}
)

// MemoryMap is a fixed-capacity collection of memory regions kept sorted by
// start address. It is built by the loader and handed over to the kernel
// inside a BootInfo, so it never allocates and its layout is fixed.
//
// The first count entries are non-empty regions in ascending start address
// order; the remaining entries hold the EmptyRegion sentinel.
type MemoryMap struct {
	entries [MaxRegions]MemoryRegion

	// count is 64 bits wide on every target so that the loader and
	// kernel agree on the layout even if their word sizes differ.
	count uint64
}

// NewMemoryMap returns a MemoryMap with all slots set to the sentinel region.
func NewMemoryMap() MemoryMap {
	var m MemoryMap
	for i := range m.entries {
		m.entries[i] = EmptyRegion()
	}
	return m
}

// AddRegion stores region in the next free slot and re-sorts the map so the
// visible regions are ordered at all times. Regions that cover no frames or
// carry the RegionEmpty type are rejected. AddRegion returns an error if the
// map is already full.
func (m *MemoryMap) AddRegion(region MemoryRegion) *kernel.Error {
	if region.IsEmpty() || region.Type == RegionEmpty {
		return errEmptyRegion
	}

	if m.count >= MaxRegions {
		return errMemoryMapFull
	}

	m.entries[m.count] = region
	m.count++
	m.Sort()
	return nil
}

// Sort orders the backing array so that non-empty regions come first, in
// ascending start address order, followed by empty ones. The region count
// is then recomputed from the array contents and every trailing slot is
// reset to the sentinel region. Overlapping or adjacent regions are never
// merged.
func (m *MemoryMap) Sort() {
	// Insertion sort keeps equal elements in insertion order and does not
	// allocate.
	for i := 1; i < len(m.entries); i++ {
		region := m.entries[i]
		j := i
		for ; j > 0 && regionLess(region, m.entries[j-1]); j-- {
			m.entries[j] = m.entries[j-1]
		}
		m.entries[j] = region
	}

	m.count = MaxRegions
	for i := range m.entries {
		if m.entries[i].IsEmpty() {
			m.count = uint64(i)
			break
		}
	}

	for i := m.count; i < MaxRegions; i++ {
		m.entries[i] = EmptyRegion()
	}
}

// regionLess reports whether a must be placed before b. Empty regions sort
// after every non-empty region.
func regionLess(a, b MemoryRegion) bool {
	switch {
	case a.IsEmpty():
		return false
	case b.IsEmpty():
		return true
	default:
		return a.Range.Start < b.Range.Start
	}
}

// Len returns the number of regions stored in the map.
func (m *MemoryMap) Len() int {
	return int(m.count)
}

// Regions returns the populated part of the map. The returned slice aliases
// the map storage; callers that modify region bounds through it must call
// Sort afterwards. Its capacity is capped at Len so appending to it never
// reaches the sentinel slots.
func (m *MemoryMap) Regions() []MemoryRegion {
	return m.entries[:m.count:m.count]
}

// UsableSize returns the total size of all RegionUsable regions.
func (m *MemoryMap) UsableSize() mem.Size {
	var total mem.Size
	for _, region := range m.Regions() {
		if region.Type == RegionUsable {
			total += region.Range.Size()
		}
	}
	return total
}
