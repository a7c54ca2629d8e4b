package main

import (
	"fmt"
	"gopherboot/bootinfo"
	"image/color"
	"io"

	"github.com/fogleman/gg"
	"github.com/pkg/errors"
)

const (
	renderWidth     = 1024
	renderRowHeight = 18
	renderLabelW    = 260
	renderMargin    = 8
)

var renderColors = map[bootinfo.MemoryRegionType]color.RGBA{
	bootinfo.RegionUsable:          {0x3c, 0xb3, 0x71, 0xff},
	bootinfo.RegionReserved:        {0xb2, 0x22, 0x22, 0xff},
	bootinfo.RegionAcpiReclaimable: {0x46, 0x82, 0xb4, 0xff},
	bootinfo.RegionAcpiNvs:         {0x5f, 0x9e, 0xa0, 0xff},
	bootinfo.RegionBadMemory:       {0x80, 0x00, 0x00, 0xff},
	bootinfo.RegionKernel:          {0xff, 0xd7, 0x00, 0xff},
	bootinfo.RegionKernelStack:     {0xda, 0xa5, 0x20, 0xff},
	bootinfo.RegionPageTable:       {0xba, 0x55, 0xd3, 0xff},
	bootinfo.RegionBootloader:      {0x41, 0x69, 0xe1, 0xff},
	bootinfo.RegionBootInfo:        {0x1e, 0x90, 0xff, 0xff},
	bootinfo.RegionFrameZero:       {0x80, 0x80, 0x80, 0xff},
}

// renderBootInfo draws one row per region. Each row shows the region label
// followed by a bar placed on a linear scale of the physical address space
// covered by the map.
func renderBootInfo(w io.Writer, info *bootinfo.BootInfo) error {
	regions := info.MemoryMap.Regions()
	if len(regions) == 0 {
		return errors.New("memory map is empty")
	}

	var maxEnd uint64
	for _, region := range regions {
		if end := uint64(region.Range.End); end > maxEnd {
			maxEnd = end
		}
	}

	height := 2*renderMargin + (len(regions)+1)*renderRowHeight
	dc := gg.NewContext(renderWidth, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	dc.SetRGB(0, 0, 0)
	dc.DrawString(fmt.Sprintf("boot info v%d, P4 table at 0x%x", info.Version, uint64(info.P4TableAddr)), renderMargin, renderMargin+12)

	barW := float64(renderWidth - renderLabelW - 2*renderMargin)
	scale := barW / float64(maxEnd)
	for i, region := range regions {
		y := float64(renderMargin + (i+1)*renderRowHeight)

		dc.SetRGB(0, 0, 0)
		dc.DrawString(fmt.Sprintf("%-12s 0x%x", region.Type.String(), uint64(region.Range.Start)), renderMargin, y+12)

		x := float64(renderLabelW+renderMargin) + float64(region.Range.Start)*scale
		width := float64(region.Range.Size()) * scale
		if width < 1 {
			width = 1
		}

		c, ok := renderColors[region.Type]
		if !ok {
			c = color.RGBA{0, 0, 0, 0xff}
		}
		dc.SetColor(c)
		dc.DrawRectangle(x, y+2, width, renderRowHeight-4)
		dc.Fill()
	}

	return errors.Wrap(dc.EncodePNG(w), "failed to encode PNG")
}
