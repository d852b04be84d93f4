//go:build gpu

package kernel

// gpuBackend stands in for a real device backend (the teacher's Darwin
// build wires an actual Metal command queue here via cgo; this module ships
// no cgo/CUDA bindings, so the build tag exists purely to exercise the
// capability-gated dispatch described in the design notes — every kernel
// still runs on the host, but Single/Duplicated are rejected exactly as a
// real device build would reject them).
type gpuBackend struct{}

func newDefaultBackend() Backend { return gpuBackend{} }

func (gpuBackend) Name() string              { return "gpu" }
func (gpuBackend) AllowsSingleThreaded() bool { return false }
func (gpuBackend) AllowsDuplicated() bool     { return false }
func (gpuBackend) Fence()                     {}
