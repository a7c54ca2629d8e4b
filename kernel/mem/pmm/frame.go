// Package pmm contains the physical memory primitives shared by the loader
// and the kernel: physical addresses, frames and frame ranges.
package pmm

import (
	"gopherboot/kernel/mem"
	"math"
)

// MaxPhysAddr is the first address past the architectural physical address
// space (52 bits on amd64). Addresses at or above this value are invalid.
const MaxPhysAddr = PhysAddr(1 << 52)

// PhysAddr is a byte offset into the physical address space. It is always
// 64 bits wide regardless of the native word size so that it can be embedded
// in structures shared between independently compiled programs.
type PhysAddr uint64

// AlignDown rounds the address down to the closest multiple of align. The
// alignment must be a power of 2.
func (a PhysAddr) AlignDown(align uint64) PhysAddr {
	return a & ^PhysAddr(align-1)
}

// AlignUp rounds the address up to the closest multiple of align. The
// alignment must be a power of 2. Callers must ensure that the result does
// not overflow.
func (a PhysAddr) AlignUp(align uint64) PhysAddr {
	return (a + PhysAddr(align-1)) & ^PhysAddr(align-1)
}

// IsAligned returns true if the address is a multiple of align.
func (a PhysAddr) IsAligned(align uint64) bool {
	return a&PhysAddr(align-1) == 0
}

// Add returns the address that lies size bytes after a.
func (a PhysAddr) Add(size mem.Size) PhysAddr {
	return a + PhysAddr(size)
}

// Frame returns the frame that contains this address.
func (a PhysAddr) Frame() Frame {
	return Frame(a >> mem.PageShift)
}

// Frame describes a physical memory page index.
type Frame uint64

const (
	// InvalidFrame is returned by page allocators when
	// they fail to reserve the requested frame.
	InvalidFrame = Frame(math.MaxUint64)
)

// Valid returns true if this is a valid frame.
func (f Frame) Valid() bool {
	return f != InvalidFrame
}

// Address returns the physical address of the first byte in this Frame.
func (f Frame) Address() PhysAddr {
	return PhysAddr(f << mem.PageShift)
}

// FrameFromAddress returns the Frame that contains the given physical address.
// Addresses that are not page-aligned are rounded down.
func FrameFromAddress(physAddr PhysAddr) Frame {
	return physAddr.Frame()
}

// FrameRange describes the half-open frame range [Start, End). Both bounds
// are page-aligned physical addresses and Start <= End. A range with
// Start == End contains no frames.
type FrameRange struct {
	Start PhysAddr
	End   PhysAddr
}

// FrameRangeOf returns the range spanning frames [start, end).
func FrameRangeOf(start, end Frame) FrameRange {
	return FrameRange{Start: start.Address(), End: end.Address()}
}

// IsEmpty returns true if the range contains no frames.
func (r FrameRange) IsEmpty() bool {
	return r.Start >= r.End
}

// Frames returns the number of frames in the range.
func (r FrameRange) Frames() uint64 {
	if r.IsEmpty() {
		return 0
	}
	return uint64(r.End.Frame() - r.Start.Frame())
}

// Size returns the number of bytes covered by the range.
func (r FrameRange) Size() mem.Size {
	if r.IsEmpty() {
		return 0
	}
	return mem.Size(r.End - r.Start)
}

// Contains returns true if addr falls inside the range.
func (r FrameRange) Contains(addr PhysAddr) bool {
	return r.Start <= addr && addr < r.End
}

// Overlaps returns true if the two ranges share at least one frame.
func (r FrameRange) Overlaps(other FrameRange) bool {
	if r.IsEmpty() || other.IsEmpty() {
		return false
	}
	return r.Start < other.End && other.Start < r.End
}
