package main

import (
	"gopherboot/bootinfo"
	"io"

	"github.com/golang/snappy"
	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

const (
	imageMagic   = "GBIM"
	imageVersion = 1

	// flagCompressed marks an image whose body is snappy-framed.
	flagCompressed uint32 = 1 << 0
)

// imageHeader precedes the boot info record in an image file.
type imageHeader struct {
	Magic   string `struc:"[4]byte"`
	Version uint32
	Flags   uint32
}

// writeImage stores info in w, optionally compressing the record.
func writeImage(w io.Writer, info *bootinfo.BootInfo, compress bool) error {
	hdr := imageHeader{Magic: imageMagic, Version: imageVersion}
	if compress {
		hdr.Flags |= flagCompressed
	}

	if err := struc.PackWithOptions(w, &hdr, wireOptions); err != nil {
		return errors.Wrap(err, "failed to pack image header")
	}

	if !compress {
		return encodeBootInfo(w, info)
	}

	zw := snappy.NewBufferedWriter(w)
	if err := encodeBootInfo(zw, info); err != nil {
		zw.Close()
		return err
	}
	return errors.Wrap(zw.Close(), "failed to flush compressed image")
}

// readImage loads an image written by writeImage. The boot info record must
// carry the version this tool was built with.
func readImage(r io.Reader) (bootinfo.BootInfo, error) {
	var hdr imageHeader
	if err := struc.UnpackWithOptions(r, &hdr, wireOptions); err != nil {
		return bootinfo.BootInfo{}, errors.Wrap(err, "failed to unpack image header")
	}

	if hdr.Magic != imageMagic {
		return bootinfo.BootInfo{}, errors.New("invalid image magic")
	}

	if hdr.Version != imageVersion {
		return bootinfo.BootInfo{}, errors.Errorf("unsupported image version %d", hdr.Version)
	}

	body := r
	if hdr.Flags&flagCompressed != 0 {
		body = snappy.NewReader(r)
	}

	info, err := decodeBootInfo(body)
	if err != nil {
		return info, err
	}

	if kerr := info.CheckVersion(); kerr != nil {
		return info, errors.Errorf("%s: image has version %d; expected %d", kerr.Message, info.Version, bootinfo.Version)
	}

	return info, nil
}
