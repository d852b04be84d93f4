package kernel

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// AtomicAddFloat64 adds delta to *addr atomically via a compare-and-swap
// loop over the float's bit pattern. Go has no native atomic float add;
// this is the standard idiom and is what the Atomic MTTKRP variant uses to
// accumulate contributions from multiple goroutines into the same output
// element without a lock.
func AtomicAddFloat64(addr *float64, delta float64) {
	bits := (*uint64)(unsafe.Pointer(addr))
	for {
		old := atomic.LoadUint64(bits)
		newV := math.Float64bits(math.Float64frombits(old) + delta)
		if atomic.CompareAndSwapUint64(bits, old, newV) {
			return
		}
	}
}
