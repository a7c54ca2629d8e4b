package main

import (
	"gopherboot/kernel/mem/pmm"
	"gopherboot/loader"
)

// The rt0 code of the loader fills in these globals before calling main.
var (
	multibootInfoPtr uintptr

	loaderStart, loaderEnd           uintptr
	kernelStart, kernelEnd           uintptr
	kernelStackStart, kernelStackEnd uintptr
	pageTableStart, pageTableEnd     uintptr
	p4TableAddr                      uintptr

	// bootInfoAddr receives the physical address of the BootInfo record
	// so that rt0 can pass it to the kernel entry point.
	bootInfoAddr uintptr
)

// main works as a trampoline for loader.Main. Its arguments are read from
// globals so that the compiler cannot inline the call and strip the loader
// code from the generated object file.
func main() {
	bootInfoAddr = uintptr(loader.Main(multibootInfoPtr, loader.Layout{
		LoaderStart:      pmm.PhysAddr(loaderStart),
		LoaderEnd:        pmm.PhysAddr(loaderEnd),
		KernelStart:      pmm.PhysAddr(kernelStart),
		KernelEnd:        pmm.PhysAddr(kernelEnd),
		KernelStackStart: pmm.PhysAddr(kernelStackStart),
		KernelStackEnd:   pmm.PhysAddr(kernelStackEnd),
		PageTableStart:   pmm.PhysAddr(pageTableStart),
		PageTableEnd:     pmm.PhysAddr(pageTableEnd),
		P4TableAddr:      pmm.PhysAddr(p4TableAddr),
	}))
}
