//go:build !gpu

package kernel

// cpuBackend is the default execution space: plain goroutines/SIMD on the
// host CPU. All four sparse MTTKRP variants and both dense-solve paths are
// legal here.
type cpuBackend struct{}

func newDefaultBackend() Backend { return cpuBackend{} }

func (cpuBackend) Name() string                 { return "cpu" }
func (cpuBackend) AllowsSingleThreaded() bool    { return true }
func (cpuBackend) AllowsDuplicated() bool        { return true }
func (cpuBackend) Fence()                       {}
