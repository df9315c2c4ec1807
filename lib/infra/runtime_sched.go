package infra

import (
	_ "unsafe"
)

//go:linkname procYield runtime.procyield
func procYield(cycles uint32)

// ProcYield spins the current P for the given cycles (PAUSE on amd64).
// Used by the spin mutex backoff before falling back to runtime.Gosched.
func ProcYield(cycles uint32) {
	procYield(cycles)
}
