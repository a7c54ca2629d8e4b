package main

import (
	"bytes"
	"encoding/binary"
	"gopherboot/bootinfo"
	"gopherboot/kernel/mem/pmm"
	"io"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

// wireOptions selects the byte order used by the loader and the kernel.
var wireOptions = &struc.Options{Order: binary.LittleEndian}

// wireRecord is the on-disk form of a raw firmware memory descriptor. A
// records file is a plain concatenation of these.
type wireRecord struct {
	StartAddr          uint64
	Length             uint64
	Type               uint32
	ExtendedAttributes uint32
}

// wireRecordSize is the packed size of a wireRecord.
const wireRecordSize = 24

// wireRegion mirrors the in-memory layout of bootinfo.MemoryRegion.
type wireRegion struct {
	Start uint64
	End   uint64
	Type  uint32
	Pad   []byte `struc:"[4]pad"`
}

type wireInfoHeader struct {
	Version     uint64
	P4TableAddr uint64
}

type wireMapCount struct {
	Count uint64
}

// readRecords parses a records file.
func readRecords(r io.Reader) ([]bootinfo.E820MemoryRegion, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read records")
	}

	if len(data)%wireRecordSize != 0 {
		return nil, errors.Errorf("records file size %d is not a multiple of %d", len(data), wireRecordSize)
	}

	br := bytes.NewReader(data)
	recs := make([]bootinfo.E820MemoryRegion, 0, len(data)/wireRecordSize)
	for br.Len() > 0 {
		var rec wireRecord
		if err := struc.UnpackWithOptions(br, &rec, wireOptions); err != nil {
			return nil, errors.Wrapf(err, "failed to unpack record %d", len(recs))
		}

		recs = append(recs, bootinfo.E820MemoryRegion{
			StartAddr:          rec.StartAddr,
			Length:             rec.Length,
			Type:               rec.Type,
			ExtendedAttributes: rec.ExtendedAttributes,
		})
	}

	return recs, nil
}

// writeRecords is the inverse of readRecords.
func writeRecords(w io.Writer, recs []bootinfo.E820MemoryRegion) error {
	for i, rec := range recs {
		wr := wireRecord{
			StartAddr:          rec.StartAddr,
			Length:             rec.Length,
			Type:               rec.Type,
			ExtendedAttributes: rec.ExtendedAttributes,
		}
		if err := struc.PackWithOptions(w, &wr, wireOptions); err != nil {
			return errors.Wrapf(err, "failed to pack record %d", i)
		}
	}
	return nil
}

// encodeBootInfo writes info using the exact byte layout the kernel sees in
// memory: the header, every map slot including the sentinel tail and the
// region count.
func encodeBootInfo(w io.Writer, info *bootinfo.BootInfo) error {
	hdr := wireInfoHeader{Version: info.Version, P4TableAddr: uint64(info.P4TableAddr)}
	if err := struc.PackWithOptions(w, &hdr, wireOptions); err != nil {
		return errors.Wrap(err, "failed to pack boot info header")
	}

	regions := info.MemoryMap.Regions()
	for i := 0; i < bootinfo.MaxRegions; i++ {
		region := bootinfo.EmptyRegion()
		if i < len(regions) {
			region = regions[i]
		}

		wr := wireRegion{
			Start: uint64(region.Range.Start),
			End:   uint64(region.Range.End),
			Type:  uint32(region.Type),
		}
		if err := struc.PackWithOptions(w, &wr, wireOptions); err != nil {
			return errors.Wrapf(err, "failed to pack memory region %d", i)
		}
	}

	count := wireMapCount{Count: uint64(info.MemoryMap.Len())}
	return errors.Wrap(struc.PackWithOptions(w, &count, wireOptions), "failed to pack region count")
}

// decodeBootInfo reads a record written by encodeBootInfo and checks that
// the memory map it contains is well formed.
func decodeBootInfo(r io.Reader) (bootinfo.BootInfo, error) {
	var (
		info    bootinfo.BootInfo
		hdr     wireInfoHeader
		regions [bootinfo.MaxRegions]wireRegion
		count   wireMapCount
	)

	if err := struc.UnpackWithOptions(r, &hdr, wireOptions); err != nil {
		return info, errors.Wrap(err, "failed to unpack boot info header")
	}

	for i := range regions {
		if err := struc.UnpackWithOptions(r, &regions[i], wireOptions); err != nil {
			return info, errors.Wrapf(err, "failed to unpack memory region %d", i)
		}
	}

	if err := struc.UnpackWithOptions(r, &count, wireOptions); err != nil {
		return info, errors.Wrap(err, "failed to unpack region count")
	}

	if count.Count > bootinfo.MaxRegions {
		return info, errors.Errorf("region count %d exceeds map capacity %d", count.Count, bootinfo.MaxRegions)
	}

	m := bootinfo.NewMemoryMap()
	for i, wr := range regions {
		region := bootinfo.MemoryRegion{
			Range: pmm.FrameRange{Start: pmm.PhysAddr(wr.Start), End: pmm.PhysAddr(wr.End)},
			Type:  bootinfo.MemoryRegionType(wr.Type),
		}

		if uint64(i) >= count.Count {
			if region != bootinfo.EmptyRegion() {
				return info, errors.Errorf("slot %d past the region count is not empty", i)
			}
			continue
		}

		if err := m.AddRegion(region); err != nil {
			return info, errors.Wrapf(err, "invalid memory region %d", i)
		}
	}

	info = bootinfo.BootInfo{
		Version:     hdr.Version,
		P4TableAddr: pmm.PhysAddr(hdr.P4TableAddr),
		MemoryMap:   m,
	}
	return info, nil
}
