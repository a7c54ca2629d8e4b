package kmain

import (
	"gopherboot/bootinfo"
	"gopherboot/kernel"
	"gopherboot/kernel/kfmt"
	"gopherboot/kernel/mem/pmm/allocator"
	"unsafe"
)

var (
	// panicFn is mocked by tests.
	panicFn = kfmt.Panic

	errKmainReturned = &kernel.Error{Module: "kmain", Message: "Kmain returned"}
)

// Kmain is the only Go symbol that is visible (exported) from the rt0 initialization
// code. This function is invoked by the rt0 assembly code after the loader has
// switched to the kernel page tables.
//
// The loader passes the physical address of the BootInfo record it built. The
// record is only trusted once its version matches the one this kernel was
// built against.
//
// Kmain is not expected to return. If it does, the rt0 code will halt the CPU.
//
//go:noinline
func Kmain(bootInfoPtr uintptr) {
	info := (*bootinfo.BootInfo)(unsafe.Pointer(bootInfoPtr))

	var err *kernel.Error
	if err = info.CheckVersion(); err != nil {
		panicFn(err)
		return
	}

	kfmt.Printf("[kmain] boot info v%d, P4 table at 0x%x\n", info.Version, uint64(info.P4TableAddr))

	if err = allocator.Init(&info.MemoryMap); err != nil {
		panicFn(err)
		return
	}

	// Use panicFn instead of panic to prevent the compiler from treating
	// kfmt.Panic as dead-code and eliminating it.
	panicFn(errKmainReturned)
}
