package main

import (
	"fmt"
	"gopherboot/bootinfo"
	"io"

	"github.com/u-root/u-root/pkg/boot/bzimage"
)

// toE820 converts the memory map in info into an E820 table that can be
// placed in a Linux zero page. Loader and kernel owned regions are reported
// as reserved.
func toE820(info *bootinfo.BootInfo) []bzimage.E820Entry {
	regions := info.MemoryMap.Regions()
	entries := make([]bzimage.E820Entry, 0, len(regions))
	for _, region := range regions {
		e := bzimage.E820Entry{
			Addr: uint64(region.Range.Start),
			Size: uint64(region.Range.Size()),
		}

		switch region.Type {
		case bootinfo.RegionUsable:
			e.MemType = bzimage.RAM
		case bootinfo.RegionAcpiReclaimable:
			e.MemType = bzimage.ACPI
		case bootinfo.RegionAcpiNvs:
			e.MemType = bzimage.NVS
		default:
			e.MemType = bzimage.Reserved
		}

		entries = append(entries, e)
	}

	return entries
}

func e820TypeName(e bzimage.E820Entry) string {
	switch e.MemType {
	case bzimage.RAM:
		return "usable"
	case bzimage.ACPI:
		return "ACPI data"
	case bzimage.NVS:
		return "ACPI NVS"
	default:
		return "reserved"
	}
}

// printE820 writes entries in the format used by the Linux boot log.
func printE820(w io.Writer, entries []bzimage.E820Entry) {
	for _, e := range entries {
		fmt.Fprintf(w, "BIOS-e820: [mem 0x%016x-0x%016x] %s\n", e.Addr, e.Addr+e.Size-1, e820TypeName(e))
	}
}
