package main

import (
	"bytes"
	"gopherboot/bootinfo"
	"strings"
	"testing"
)

func TestImageRoundTrip(t *testing.T) {
	info := testBootInfo(t)

	for _, compress := range []bool{false, true} {
		var buf bytes.Buffer
		if err := writeImage(&buf, &info, compress); err != nil {
			t.Fatalf("[compress: %t] unexpected error: %v", compress, err)
		}

		if got := buf.Bytes()[:4]; string(got) != imageMagic {
			t.Errorf("[compress: %t] expected image to start with %q; got %q", compress, imageMagic, got)
		}

		if got := buf.Bytes()[8]; (got&1 != 0) != compress {
			t.Errorf("[compress: %t] unexpected flags byte %x", compress, got)
		}

		got, err := readImage(&buf)
		if err != nil {
			t.Fatalf("[compress: %t] unexpected error: %v", compress, err)
		}

		if got != info {
			t.Errorf("[compress: %t] expected the image to round-trip", compress)
		}
	}
}

func TestReadImageErrors(t *testing.T) {
	info := testBootInfo(t)

	var buf bytes.Buffer
	if err := writeImage(&buf, &info, false); err != nil {
		t.Fatal(err)
	}
	valid := buf.Bytes()

	specs := []struct {
		name   string
		mutate func([]byte) []byte
		expErr string
	}{
		{"bad magic", func(b []byte) []byte { b[0] = 'X'; return b }, "invalid image magic"},
		{"bad image version", func(b []byte) []byte { b[4] = 9; return b }, "unsupported image version 9"},
		{"short header", func(b []byte) []byte { return b[:6] }, "failed to unpack image header"},
		{"record version mismatch", func(b []byte) []byte { b[12] = byte(bootinfo.Version + 1); return b }, "boot info version mismatch"},
	}

	for _, spec := range specs {
		t.Run(spec.name, func(t *testing.T) {
			data := spec.mutate(append([]byte(nil), valid...))
			_, err := readImage(bytes.NewReader(data))
			if err == nil || !strings.Contains(err.Error(), spec.expErr) {
				t.Fatalf("expected error containing %q; got %v", spec.expErr, err)
			}
		})
	}
}
