package bootinfo

import (
	"gopherboot/kernel/mem"
	"gopherboot/kernel/mem/pmm"
	"testing"
)

func region(start, end pmm.PhysAddr, regionType MemoryRegionType) MemoryRegion {
	return MemoryRegion{Range: pmm.FrameRange{Start: start, End: end}, Type: regionType}
}

func assertSentinelTail(t *testing.T, m *MemoryMap) {
	t.Helper()
	for i := m.Len(); i < MaxRegions; i++ {
		if m.entries[i] != EmptyRegion() {
			t.Fatalf("expected slot %d to hold the sentinel region; got %v", i, m.entries[i])
		}
	}
}

func TestNewMemoryMap(t *testing.T) {
	m := NewMemoryMap()

	if m.Len() != 0 || len(m.Regions()) != 0 {
		t.Fatalf("expected an empty memory map; got %d regions", m.Len())
	}

	assertSentinelTail(t, &m)
}

func TestAddRegionOrdering(t *testing.T) {
	m := NewMemoryMap()

	for _, start := range []pmm.PhysAddr{0x3000, 0x1000, 0x2000} {
		if err := m.AddRegion(region(start, start+0x1000, RegionUsable)); err != nil {
			t.Fatal(err)
		}
	}

	exp := []pmm.PhysAddr{0x1000, 0x2000, 0x3000}
	regions := m.Regions()
	if len(regions) != len(exp) {
		t.Fatalf("expected %d regions; got %d", len(exp), len(regions))
	}

	for i, start := range exp {
		if regions[i].Range.Start != start {
			t.Errorf("[region %d] expected start address %x; got %x", i, start, regions[i].Range.Start)
		}
	}

	assertSentinelTail(t, &m)
}

func TestAddRegionKeepsOverlaps(t *testing.T) {
	m := NewMemoryMap()

	specs := []MemoryRegion{
		region(0x100000, 0x8000000, RegionUsable),
		region(0x100000, 0x200000, RegionKernel),
		region(0x8000000, 0x8010000, RegionUsable),
		region(0x180000, 0x181000, RegionPageTable),
	}

	for _, r := range specs {
		if err := m.AddRegion(r); err != nil {
			t.Fatal(err)
		}
	}

	exp := []MemoryRegion{specs[0], specs[1], specs[3], specs[2]}
	if m.Len() != len(exp) {
		t.Fatalf("expected %d regions; got %d", len(exp), m.Len())
	}

	for i, r := range m.Regions() {
		if r != exp[i] {
			t.Errorf("[region %d] expected %v; got %v", i, exp[i], r)
		}
	}
}

func TestAddRegionUpToCapacity(t *testing.T) {
	for k := 0; k <= MaxRegions; k++ {
		m := NewMemoryMap()

		// Insert in descending order so every insertion moves entries.
		for i := k; i > 0; i-- {
			start := pmm.Frame(i * 2).Address()
			if err := m.AddRegion(region(start, start.Add(mem.PageSize), RegionReserved)); err != nil {
				t.Fatalf("[k = %d] unexpected error adding region %d: %v", k, i, err)
			}
		}

		if m.Len() != k {
			t.Fatalf("[k = %d] expected %d regions; got %d", k, k, m.Len())
		}

		regions := m.Regions()
		for i := 1; i < len(regions); i++ {
			if regions[i-1].Range.Start > regions[i].Range.Start {
				t.Fatalf("[k = %d] expected regions to be sorted; region %d starts at %x and region %d at %x", k, i-1, regions[i-1].Range.Start, i, regions[i].Range.Start)
			}
		}

		for i, r := range regions {
			if r.IsEmpty() || r.Type == RegionEmpty {
				t.Fatalf("[k = %d] sentinel region leaked into visible slot %d", k, i)
			}
		}

		assertSentinelTail(t, &m)
	}
}

func TestAddRegionErrors(t *testing.T) {
	m := NewMemoryMap()
	for i := 0; i < MaxRegions; i++ {
		start := pmm.Frame(i).Address()
		if err := m.AddRegion(region(start, start.Add(mem.PageSize), RegionUsable)); err != nil {
			t.Fatal(err)
		}
	}

	if err := m.AddRegion(region(0x100000, 0x101000, RegionUsable)); err != errMemoryMapFull {
		t.Fatalf("expected to get errMemoryMapFull when adding region %d; got %v", MaxRegions+1, err)
	}

	if m.Len() != MaxRegions {
		t.Fatalf("expected a failed insertion to leave %d regions; got %d", MaxRegions, m.Len())
	}

	m = NewMemoryMap()
	specs := []MemoryRegion{
		EmptyRegion(),
		region(0x1000, 0x1000, RegionUsable),
		region(0x1000, 0x2000, RegionEmpty),
	}

	for specIndex, spec := range specs {
		if err := m.AddRegion(spec); err != errEmptyRegion {
			t.Errorf("[spec %d] expected to get errEmptyRegion; got %v", specIndex, err)
		}
	}

	if m.Len() != 0 {
		t.Fatalf("expected rejected regions not to be stored; got %d regions", m.Len())
	}
}

func TestSortRecomputesCount(t *testing.T) {
	m := NewMemoryMap()
	for _, r := range []MemoryRegion{
		region(0x1000, 0x2000, RegionUsable),
		region(0x2000, 0x3000, RegionPageTable),
		region(0x3000, 0x4000, RegionUsable),
	} {
		if err := m.AddRegion(r); err != nil {
			t.Fatal(err)
		}
	}

	// Shrink the first region to zero frames through the mutable view.
	m.Regions()[0].Range.Start = 0x2000
	m.Sort()

	if m.Len() != 2 {
		t.Fatalf("expected Sort to drop the exhausted region; got %d regions", m.Len())
	}

	if got := m.Regions()[0]; got != region(0x2000, 0x3000, RegionPageTable) {
		t.Fatalf("expected the page table region to come first; got %v", got)
	}

	assertSentinelTail(t, &m)
}

func TestRegionsViewHidesSentinels(t *testing.T) {
	m := NewMemoryMap()
	if err := m.AddRegion(region(0x1000, 0x2000, RegionUsable)); err != nil {
		t.Fatal(err)
	}

	view := m.Regions()
	if cap(view) != m.Len() {
		t.Fatalf("expected view capacity to equal Len() (%d); got %d", m.Len(), cap(view))
	}

	// Appending must copy into a new array instead of writing past count.
	view = append(view, region(0x5000, 0x6000, RegionKernel))
	if len(view) != 2 || view[1].Type != RegionKernel {
		t.Fatalf("expected appended view to hold the new region; got %v", view)
	}

	if m.Len() != 1 {
		t.Fatalf("expected map to still contain 1 region; got %d", m.Len())
	}

	assertSentinelTail(t, &m)
}

func TestSortZeroValueMap(t *testing.T) {
	var m MemoryMap
	m.Sort()

	if m.Len() != 0 {
		t.Fatalf("expected a zero-value map to contain no regions; got %d", m.Len())
	}

	assertSentinelTail(t, &m)
}

func TestUsableSize(t *testing.T) {
	m := NewMemoryMap()
	for _, r := range []MemoryRegion{
		region(0x0, 0xa0000, RegionUsable),
		region(0x9f000, 0xa0000, RegionReserved),
		region(0x100000, 0x200000, RegionUsable),
	} {
		if err := m.AddRegion(r); err != nil {
			t.Fatal(err)
		}
	}

	if exp, got := mem.Size(0xa0000+0x100000), m.UsableSize(); got != exp {
		t.Fatalf("expected usable size to be %d; got %d", exp, got)
	}
}
