// Package cpu exposes the CPU instructions needed by the loader and kernel.
package cpu

// Halt disables interrupts and stops instruction execution.
func Halt()
