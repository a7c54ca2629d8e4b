package bootinfo

import (
	"gopherboot/kernel/mem/pmm"
	"testing"
)

func TestFromE820(t *testing.T) {
	specs := []struct {
		rec      E820MemoryRegion
		expRange pmm.FrameRange
		expType  MemoryRegionType
	}{
		{
			E820MemoryRegion{StartAddr: 0x1001, Length: 0x1000, Type: 1},
			pmm.FrameRange{Start: 0x1000, End: 0x3000},
			RegionUsable,
		},
		{
			E820MemoryRegion{StartAddr: 0x1000, Length: 0x1000, Type: 1},
			pmm.FrameRange{Start: 0x1000, End: 0x2000},
			RegionUsable,
		},
		{
			E820MemoryRegion{StartAddr: 0x0, Length: 0x9fc00, Type: 1},
			pmm.FrameRange{Start: 0x0, End: 0xa0000},
			RegionUsable,
		},
		{
			E820MemoryRegion{StartAddr: 0x9fc00, Length: 0x400, Type: 2},
			pmm.FrameRange{Start: 0x9f000, End: 0xa0000},
			RegionReserved,
		},
		{
			E820MemoryRegion{StartAddr: 0x7fe0000, Length: 0x20000, Type: 3},
			pmm.FrameRange{Start: 0x7fe0000, End: 0x8000000},
			RegionAcpiReclaimable,
		},
		{
			E820MemoryRegion{StartAddr: 0x7ff0000, Length: 0x10, Type: 4, ExtendedAttributes: 1},
			pmm.FrameRange{Start: 0x7ff0000, End: 0x7ff1000},
			RegionAcpiNvs,
		},
		{
			E820MemoryRegion{StartAddr: 0x200000, Length: 0x1000, Type: 5},
			pmm.FrameRange{Start: 0x200000, End: 0x201000},
			RegionBadMemory,
		},
		{
			E820MemoryRegion{StartAddr: 0x3000, Length: 0, Type: 1},
			pmm.FrameRange{Start: 0x3000, End: 0x3000},
			RegionUsable,
		},
	}

	for specIndex, spec := range specs {
		region, err := FromE820(spec.rec)
		if err != nil {
			t.Errorf("[spec %d] unexpected error: %v", specIndex, err)
			continue
		}

		if region.Range != spec.expRange {
			t.Errorf("[spec %d] expected range [%x, %x); got [%x, %x)", specIndex, spec.expRange.Start, spec.expRange.End, region.Range.Start, region.Range.End)
		}

		if region.Type != spec.expType {
			t.Errorf("[spec %d] expected region type %q; got %q", specIndex, spec.expType, region.Type)
		}
	}
}

func TestFromE820ContainsInputRange(t *testing.T) {
	for start := uint64(0); start < 0x3000; start += 0x3ff {
		for length := uint64(0); length < 0x3000; length += 0x1ff {
			rec := E820MemoryRegion{StartAddr: start, Length: length, Type: 2}
			region, err := FromE820(rec)
			if err != nil {
				t.Fatalf("unexpected error for [%x, %x): %v", start, start+length, err)
			}

			if !region.Range.Start.IsAligned(0x1000) || !region.Range.End.IsAligned(0x1000) {
				t.Fatalf("expected aligned range for [%x, %x); got [%x, %x)", start, start+length, region.Range.Start, region.Range.End)
			}

			if uint64(region.Range.Start) > start || uint64(region.Range.End) < start+length {
				t.Fatalf("expected [%x, %x) to contain [%x, %x)", region.Range.Start, region.Range.End, start, start+length)
			}

			again, _ := FromE820(rec)
			if again != region {
				t.Fatalf("expected converting [%x, %x) twice to yield identical regions", start, start+length)
			}
		}
	}
}

func TestFromE820Errors(t *testing.T) {
	specs := []struct {
		rec    E820MemoryRegion
		expErr error
	}{
		{E820MemoryRegion{StartAddr: 0x1000, Length: 0x1000, Type: 99}, errUnknownRegionType},
		{E820MemoryRegion{StartAddr: 0x1000, Length: 0x1000, Type: 0}, errUnknownRegionType},
		{E820MemoryRegion{StartAddr: 0x1000, Length: 0x1000, Type: 6}, errUnknownRegionType},
		{E820MemoryRegion{StartAddr: 0xffffffffffff0000, Length: 0x20000, Type: 1}, errInvalidAddress},
		{E820MemoryRegion{StartAddr: uint64(pmm.MaxPhysAddr), Length: 0x1000, Type: 2}, errInvalidAddress},
	}

	for specIndex, spec := range specs {
		region, err := FromE820(spec.rec)
		if err != spec.expErr {
			t.Errorf("[spec %d] expected error %v; got %v", specIndex, spec.expErr, err)
		}

		if region != EmptyRegion() {
			t.Errorf("[spec %d] expected the sentinel region on error; got %v", specIndex, region)
		}
	}
}
