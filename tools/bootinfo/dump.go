package main

import (
	"fmt"
	"gopherboot/bootinfo"
	"io"
	"strings"

	"github.com/mgutz/ansi"
)

// regionColors maps region types to the ansi style used by dump.
var regionColors = map[bootinfo.MemoryRegionType]string{
	bootinfo.RegionUsable:          ansi.ColorCode("green+b"),
	bootinfo.RegionReserved:        ansi.ColorCode("red"),
	bootinfo.RegionAcpiReclaimable: ansi.ColorCode("cyan"),
	bootinfo.RegionAcpiNvs:         ansi.ColorCode("cyan+h"),
	bootinfo.RegionBadMemory:       ansi.ColorCode("red+bh"),
	bootinfo.RegionKernel:          ansi.ColorCode("yellow+b"),
	bootinfo.RegionKernelStack:     ansi.ColorCode("yellow"),
	bootinfo.RegionPageTable:       ansi.ColorCode("magenta"),
	bootinfo.RegionBootloader:      ansi.ColorCode("blue+b"),
	bootinfo.RegionBootInfo:        ansi.ColorCode("blue"),
	bootinfo.RegionFrameZero:       ansi.ColorCode("white"),
}

func colorPad(s, color string, pad int) string {
	length := len(s)
	if color != "" {
		s = color + s + ansi.Reset
	}
	if length < pad {
		s = s + strings.Repeat(" ", pad-length)
	}
	return s
}

// dumpBootInfo prints a table with every region in info. If color is set,
// region types are highlighted with ansi escape sequences.
func dumpBootInfo(w io.Writer, info *bootinfo.BootInfo, color bool) {
	fmt.Fprintf(w, "boot info v%d, P4 table at 0x%x\n", info.Version, uint64(info.P4TableAddr))
	fmt.Fprintf(w, "%d/%d memory regions, %d KiB usable\n", info.MemoryMap.Len(), bootinfo.MaxRegions, uint64(info.MemoryMap.UsableSize())/1024)

	for i, region := range info.MemoryMap.Regions() {
		var c string
		if color {
			c = regionColors[region.Type]
		}

		fmt.Fprintf(w, "%2d  [0x%012x - 0x%012x)  %s %8d frames\n",
			i, uint64(region.Range.Start), uint64(region.Range.End),
			colorPad(region.Type.String(), c, 18), region.Range.Frames(),
		)
	}
}
