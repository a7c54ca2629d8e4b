package mem

import "testing"

func TestSizeFrames(t *testing.T) {
	specs := []struct {
		size      Size
		expFrames uint64
	}{
		{0, 0},
		{1, 1},
		{PageSize - 1, 1},
		{PageSize, 1},
		{PageSize + 1, 2},
		{Mb, 256},
		{792 * Byte, 1},
	}

	for specIndex, spec := range specs {
		if got := spec.size.Frames(); got != spec.expFrames {
			t.Errorf("[spec %d] expected size %d to need %d frames; got %d", specIndex, spec.size, spec.expFrames, got)
		}
	}
}
