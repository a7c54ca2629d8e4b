package mem

const (
	// PageShift is equal to log2(PageSize). This constant is used when
	// we need to convert a physical address to a frame number (shift right
	// by PageShift) and vice-versa.
	PageShift = 12

	// PageSize defines the size of a physical frame in bytes. Both the
	// loader and the kernel account for physical memory in units of
	// PageSize bytes.
	PageSize = Size(1 << PageShift)
)

// Size represents a memory block size in bytes.
type Size uint64

// Common memory block sizes
const (
	Byte Size = 1
	Kb        = 1024 * Byte
	Mb        = 1024 * Kb
	Gb        = 1024 * Mb
)

// Frames returns the number of PageSize frames needed to hold a block of
// this size.
func (s Size) Frames() uint64 {
	return uint64((s + PageSize - 1) >> PageShift)
}
