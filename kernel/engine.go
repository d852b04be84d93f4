// Package kernel provides the compile-time execution-space abstraction and
// the small dense numeric primitives (syrk/posv/sysv-equivalent wrappers
// plus a general LU solve) that the FactorMatrix and MTTKRP layers build on.
//
// Portability across CPU/GPU targets is achieved the way the teacher engine
// achieves CPU/Metal portability: a base Backend is embedded by default, and
// a build-tagged file swaps in GPU-restricted behavior. There is no runtime
// type switch in any hot loop — the active Backend is resolved once, at
// package init, from the build tags used to compile the binary.
package kernel

// Backend describes what a given compiled target is allowed to do. The
// MTTKRP and FactorMatrix layers consult it before launching a kernel, not
// per element.
type Backend interface {
	// Name identifies the backend for logging/diagnostics.
	Name() string
	// AllowsSingleThreaded reports whether the Single MTTKRP variant
	// (sequential, no atomics) may run on this backend.
	AllowsSingleThreaded() bool
	// AllowsDuplicated reports whether the Duplicated MTTKRP variant
	// (per-worker private accumulation buffers) may run on this backend.
	AllowsDuplicated() bool
	// Fence blocks until all outstanding work launched on this backend
	// has completed and its effects are visible to the host. On the CPU
	// backend this is a no-op (work is already synchronous); a real GPU
	// backend would wait on its command queue here.
	Fence()
}

// Active is the Backend selected for this build. Exactly one of
// backend_cpu.go (default) or backend_gpu.go (//go:build gpu) supplies it.
var Active Backend = newDefaultBackend()
