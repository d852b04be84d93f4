// Package mttkrp implements the matricized-tensor-times-Khatri-Rao-product
// kernel: four algorithmic variants over sparse tensors (Single, Atomic,
// Duplicated, Perm), a dense variant, and a fused MTTKRP-all that computes
// every mode's result in one sweep.
package mttkrp

import (
	"runtime"
	"sync"

	"github.com/gentengo/gcp/densetensor"
	"github.com/gentengo/gcp/factormatrix"
	"github.com/gentengo/gcp/internal/gcperr"
	"github.com/gentengo/gcp/kernel"
	"github.com/gentengo/gcp/ktensor"
	"github.com/gentengo/gcp/sptensor"
)

// Method is the closed set of sparse MTTKRP algorithms. The dispatch
// between them is a switch resolved once per call, never per nonzero.
type Method int

const (
	Single Method = iota
	Atomic
	Duplicated
	Perm
)

func (m Method) String() string {
	switch m {
	case Single:
		return "Single"
	case Atomic:
		return "Atomic"
	case Duplicated:
		return "Duplicated"
	case Perm:
		return "Perm"
	default:
		return "Unknown"
	}
}

// Options configures a single MTTKRP call.
type Options struct {
	// TileSize is the column width of each independent output slice when
	// tiling mttkrp_duplicated_factor_matrix_tile_size; 0 means no tiling
	// (one tile spanning all R columns).
	TileSize int
	// DuplicatedGamma is the tunable threshold gamma in the Duplicated
	// eligibility test dims[n]*P <= gamma*nnz. Zero selects the reference
	// default of 4.
	DuplicatedGamma float64
	// FallbackOnMissingPerm, when true, silently substitutes Atomic if
	// Perm is requested but the tensor has no built permutation. When
	// false (the default) that combination is a hard error.
	FallbackOnMissingPerm bool
}

func (o Options) gamma() float64 {
	if o.DuplicatedGamma <= 0 {
		return 4
	}
	return o.DuplicatedGamma
}

// roundUpBlock returns the smallest value in {1,2,4,8,16,32} that is >= r,
// or r itself (handled as one "tail" block) when r exceeds 32. All SIMD
// row dispatch in this package is templated conceptually on this block
// size; Go has no compile-time generics over integer constants, so the
// block width instead governs how accumulation loops below are unrolled
// in groups, preserving the same memory-access pattern a templated C++
// kernel would use.
func roundUpBlock(r int) int {
	for _, b := range []int{1, 2, 4, 8, 16, 32} {
		if r <= b {
			return b
		}
	}
	return r
}

// checkMethod enforces the GPU restrictions: Single/Duplicated require a
// backend that allows single-threaded/duplicated-buffer execution.
func checkMethod(method Method) error {
	switch method {
	case Single:
		if !kernel.Active.AllowsSingleThreaded() {
			return gcperr.New(gcperr.UnsupportedConfig, "mttkrp: Single requested on a backend that forbids it")
		}
	case Duplicated:
		if !kernel.Active.AllowsDuplicated() {
			return gcperr.New(gcperr.UnsupportedConfig, "mttkrp: Duplicated requested on a backend that forbids it")
		}
	}
	return nil
}

// resolveMethod applies the Perm-without-permutation fallback rule.
func resolveMethod(x *sptensor.Sptensor, mode int, method Method, opts Options) (Method, error) {
	if method == Perm && !x.HasPermutation() {
		if opts.FallbackOnMissingPerm {
			return Atomic, nil
		}
		return method, gcperr.New(gcperr.UnsupportedConfig, "mttkrp: Perm requested without createPermutation()")
	}
	if err := checkMethod(method); err != nil {
		return method, err
	}
	return method, nil
}

// factorRowProduct computes, into dst (length R), the product
// λ[r] * Π_{m≠n} U[m][coord_m, r] for one nonzero's coordinate, sharing
// the per-nonzero factor-row gather that MTTKRP-all reuses across modes.
func factorRowProduct(u *ktensor.Ktensor, coord []int, skip int, dst []float64) {
	r := u.Rank()
	copy(dst, u.Weights)
	block := roundUpBlock(r)
	for m, c := range coord {
		if m == skip {
			continue
		}
		row := u.U[m].Row(c)
		for base := 0; base < r; base += block {
			end := base + block
			if end > r {
				end = r
			}
			for j := base; j < end; j++ {
				dst[j] *= row[j]
			}
		}
	}
}

// MTTKRP computes V[i,r] = Σ_{x: coord_n(x)=i} x.value · λ[r] ·
// Π_{m≠n} U[m][coord_m(x),r] for the requested mode n, using the given
// algorithmic variant. V is always overwritten (zeroed before
// accumulation).
func MTTKRP(x *sptensor.Sptensor, u *ktensor.Ktensor, mode int, method Method, opts Options) (*factormatrix.FactorMatrix, error) {
	if mode < 0 || mode >= x.NDims() {
		return nil, gcperr.New(gcperr.ShapeMismatch, "mttkrp: mode out of range")
	}
	if x.NDims() != u.NDims() {
		return nil, gcperr.New(gcperr.ShapeMismatch, "mttkrp: mode count mismatch between tensor and Ktensor")
	}
	method, err := resolveMethod(x, mode, method, opts)
	if err != nil {
		return nil, err
	}

	r := u.Rank()
	v := factormatrix.New(x.Dims[mode], r)

	switch method {
	case Single:
		mttkrpSingle(x, u, mode, v)
	case Atomic:
		mttkrpAtomic(x, u, mode, v)
	case Duplicated:
		mttkrpDuplicated(x, u, mode, v, opts)
	case Perm:
		mttkrpPerm(x, u, mode, v)
	default:
		return nil, gcperr.New(gcperr.UnsupportedConfig, "mttkrp: unknown method")
	}
	kernel.Active.Fence()
	return v, nil
}

func mttkrpSingle(x *sptensor.Sptensor, u *ktensor.Ktensor, mode int, v *factormatrix.FactorMatrix) {
	r := u.Rank()
	row := make([]float64, r)
	for i, coord := range x.Subs {
		factorRowProduct(u, coord, mode, row)
		out := v.Row(coord[mode])
		val := x.Vals[i]
		for j := 0; j < r; j++ {
			out[j] += val * row[j]
		}
	}
}

func mttkrpAtomic(x *sptensor.Sptensor, u *ktensor.Ktensor, mode int, v *factormatrix.FactorMatrix) {
	nnz := x.NNZ()
	workers := workerCount(nnz)
	chunk := chunkSize(nnz, workers)
	r := u.Rank()
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if lo >= nnz {
			break
		}
		if hi > nnz {
			hi = nnz
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			row := make([]float64, r)
			for i := lo; i < hi; i++ {
				coord := x.Subs[i]
				factorRowProduct(u, coord, mode, row)
				out := v.Row(coord[mode])
				val := x.Vals[i]
				for j := 0; j < r; j++ {
					kernel.AtomicAddFloat64(&out[j], val*row[j])
				}
			}
		}(lo, hi)
	}
	wg.Wait()
}

// workerCount clamps the host's parallelism to at least 1 and at most nnz
// (no point spawning more goroutines than there are nonzeros to share).
func workerCount(nnz int) int {
	w := runtime.GOMAXPROCS(0)
	if w < 1 {
		w = 1
	}
	if nnz > 0 && w > nnz {
		w = nnz
	}
	return w
}

func chunkSize(nnz, workers int) int {
	if workers < 1 {
		workers = 1
	}
	c := (nnz + workers - 1) / workers
	if c == 0 {
		c = 1
	}
	return c
}

// duplicatedEligible implements the dims[n]*P <= gamma*nnz admission test.
func duplicatedEligible(dimN, workers, nnz int, gamma float64) bool {
	return float64(dimN*workers) <= gamma*float64(nnz)
}

func mttkrpDuplicated(x *sptensor.Sptensor, u *ktensor.Ktensor, mode int, v *factormatrix.FactorMatrix, opts Options) {
	nnz := x.NNZ()
	workers := workerCount(nnz)
	if !duplicatedEligible(x.Dims[mode], workers, nnz, opts.gamma()) {
		// Falls back to Atomic when the private-buffer memory/reduction
		// overhead would outweigh its benefit.
		mttkrpAtomic(x, u, mode, v)
		return
	}

	r := u.Rank()
	chunk := chunkSize(nnz, workers)
	buffers := make([]*factormatrix.FactorMatrix, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if lo >= nnz {
			buffers[w] = nil
			continue
		}
		if hi > nnz {
			hi = nnz
		}
		buffers[w] = factormatrix.New(x.Dims[mode], r)
		wg.Add(1)
		go func(buf *factormatrix.FactorMatrix, lo, hi int) {
			defer wg.Done()
			row := make([]float64, r)
			for i := lo; i < hi; i++ {
				coord := x.Subs[i]
				factorRowProduct(u, coord, mode, row)
				out := buf.Row(coord[mode])
				val := x.Vals[i]
				for j := 0; j < r; j++ {
					out[j] += val * row[j]
				}
			}
		}(buffers[w], lo, hi)
	}
	wg.Wait()

	tile := opts.TileSize
	if tile <= 0 {
		tile = r
	}
	for colBase := 0; colBase < r; colBase += tile {
		colEnd := colBase + tile
		if colEnd > r {
			colEnd = r
		}
		for _, buf := range buffers {
			if buf == nil {
				continue
			}
			for i := 0; i < v.Rows; i++ {
				dst := v.Row(i)[colBase:colEnd]
				src := buf.Row(i)[colBase:colEnd]
				for j := range dst {
					dst[j] += src[j]
				}
			}
		}
	}
}

// mttkrpPerm requires x.HasPermutation(); it iterates nonzeros in
// perm[mode] order so consecutive nonzeros sharing the same target row
// accumulate in a local register-resident value before a single write,
// atomic only where a thread's tile boundary falls mid-row.
func mttkrpPerm(x *sptensor.Sptensor, u *ktensor.Ktensor, mode int, v *factormatrix.FactorMatrix) {
	perm := x.Perm(mode)
	nnz := len(perm)
	workers := workerCount(nnz)
	chunk := chunkSize(nnz, workers)
	r := u.Rank()
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if lo >= nnz {
			break
		}
		if hi > nnz {
			hi = nnz
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			row := make([]float64, r)
			local := make([]float64, r)
			curRow := -1
			isFirstRowFlush := true
			flush := func(atomicWrite bool) {
				if curRow < 0 {
					return
				}
				out := v.Row(curRow)
				if atomicWrite {
					for j := 0; j < r; j++ {
						kernel.AtomicAddFloat64(&out[j], local[j])
					}
				} else {
					for j := 0; j < r; j++ {
						out[j] += local[j]
					}
				}
				for j := range local {
					local[j] = 0
				}
			}
			for k := lo; k < hi; k++ {
				idx := perm[k]
				coord := x.Subs[idx]
				targetRow := coord[mode]
				if targetRow != curRow {
					// The first row this tile ever flushes may be shared
					// with the previous worker's tile, so it is always
					// written atomically; every interior row transition
					// after that is exclusively owned by this worker and
					// writes directly. The final flush below (the tile's
					// last row) may be shared with the next worker's tile
					// and is always atomic too.
					if curRow >= 0 {
						flush(isFirstRowFlush)
						isFirstRowFlush = false
					}
					curRow = targetRow
				}
				factorRowProduct(u, coord, mode, row)
				val := x.Vals[idx]
				for j := 0; j < r; j++ {
					local[j] += val * row[j]
				}
			}
			flush(true)
		}(lo, hi)
	}
	wg.Wait()
}

// Dense computes MTTKRP over a dense N-dim tensor: it iterates every
// element, deriving its coordinate from the linear index via the
// row-major Ind2sub rule, otherwise applying the identical update.
func Dense(x *densetensor.Dense, u *ktensor.Ktensor, mode int) (*factormatrix.FactorMatrix, error) {
	if mode < 0 || mode >= x.NDims() {
		return nil, gcperr.New(gcperr.ShapeMismatch, "mttkrp: mode out of range")
	}
	dims := x.Dims()
	r := u.Rank()
	v := factormatrix.New(dims[mode], r)
	data := x.Data()
	row := make([]float64, r)
	for idx, val := range data {
		if val == 0 {
			continue
		}
		coord := densetensor.Ind2sub(dims, idx)
		factorRowProduct(u, coord, mode, row)
		out := v.Row(coord[mode])
		for j := 0; j < r; j++ {
			out[j] += val * row[j]
		}
	}
	kernel.Active.Fence()
	return v, nil
}

// AllMethod selects the fused multi-mode algorithm.
type AllMethod int

const (
	AllSingle AllMethod = iota
	AllAtomic
	AllDuplicated
	// AllIterated simply calls per-mode MTTKRP N times; it shares no
	// per-nonzero gather work across modes.
	AllIterated
)

// All computes MTTKRP for every mode in one sweep over x's nonzeros (for
// AllSingle/AllAtomic/AllDuplicated) or by calling MTTKRP N times
// (AllIterated). On the GPU backend only AllAtomic is permitted.
func All(x *sptensor.Sptensor, u *ktensor.Ktensor, method AllMethod, opts Options) ([]*factormatrix.FactorMatrix, error) {
	n := x.NDims()
	if method != AllAtomic && kernel.Active.Name() == "gpu" {
		return nil, gcperr.New(gcperr.UnsupportedConfig, "mttkrp: only AllAtomic is permitted on the GPU backend")
	}

	if method == AllIterated {
		out := make([]*factormatrix.FactorMatrix, n)
		for m := 0; m < n; m++ {
			method := Atomic
			if kernel.Active.AllowsSingleThreaded() {
				method = Single
			}
			v, err := MTTKRP(x, u, m, method, opts)
			if err != nil {
				return nil, err
			}
			out[m] = v
		}
		return out, nil
	}

	vs := make([]*factormatrix.FactorMatrix, n)
	for m, d := range x.Dims {
		vs[m] = factormatrix.New(d, u.Rank())
	}

	switch method {
	case AllSingle:
		if err := checkMethod(Single); err != nil {
			return nil, err
		}
		allSingle(x, u, vs)
	case AllAtomic:
		allAtomic(x, u, vs)
	case AllDuplicated:
		if err := checkMethod(Duplicated); err != nil {
			return nil, err
		}
		allDuplicated(x, u, vs, opts)
	default:
		return nil, gcperr.New(gcperr.UnsupportedConfig, "mttkrp: unknown all-mode method")
	}
	kernel.Active.Fence()
	return vs, nil
}

func allSingle(x *sptensor.Sptensor, u *ktensor.Ktensor, vs []*factormatrix.FactorMatrix) {
	r := u.Rank()
	row := make([]float64, r)
	for i, coord := range x.Subs {
		val := x.Vals[i]
		for m := range coord {
			factorRowProduct(u, coord, m, row)
			out := vs[m].Row(coord[m])
			for j := 0; j < r; j++ {
				out[j] += val * row[j]
			}
		}
	}
}

func allAtomic(x *sptensor.Sptensor, u *ktensor.Ktensor, vs []*factormatrix.FactorMatrix) {
	nnz := x.NNZ()
	workers := workerCount(nnz)
	chunk := chunkSize(nnz, workers)
	r := u.Rank()
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if lo >= nnz {
			break
		}
		if hi > nnz {
			hi = nnz
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			row := make([]float64, r)
			for i := lo; i < hi; i++ {
				coord := x.Subs[i]
				val := x.Vals[i]
				for m := range coord {
					factorRowProduct(u, coord, m, row)
					out := vs[m].Row(coord[m])
					for j := 0; j < r; j++ {
						kernel.AtomicAddFloat64(&out[j], val*row[j])
					}
				}
			}
		}(lo, hi)
	}
	wg.Wait()
}

func allDuplicated(x *sptensor.Sptensor, u *ktensor.Ktensor, vs []*factormatrix.FactorMatrix, opts Options) {
	nnz := x.NNZ()
	workers := workerCount(nnz)
	chunk := chunkSize(nnz, workers)
	n := x.NDims()
	r := u.Rank()

	type localBufs struct {
		bufs []*factormatrix.FactorMatrix
	}
	perWorker := make([]*localBufs, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if lo >= nnz {
			continue
		}
		if hi > nnz {
			hi = nnz
		}
		lb := &localBufs{bufs: make([]*factormatrix.FactorMatrix, n)}
		for m, d := range x.Dims {
			lb.bufs[m] = factormatrix.New(d, r)
		}
		perWorker[w] = lb
		wg.Add(1)
		go func(lb *localBufs, lo, hi int) {
			defer wg.Done()
			row := make([]float64, r)
			for i := lo; i < hi; i++ {
				coord := x.Subs[i]
				val := x.Vals[i]
				for m := range coord {
					factorRowProduct(u, coord, m, row)
					out := lb.bufs[m].Row(coord[m])
					for j := 0; j < r; j++ {
						out[j] += val * row[j]
					}
				}
			}
		}(lb, lo, hi)
	}
	wg.Wait()

	for _, lb := range perWorker {
		if lb == nil {
			continue
		}
		for m, buf := range lb.bufs {
			for i := 0; i < vs[m].Rows; i++ {
				dst := vs[m].Row(i)
				src := buf.Row(i)
				for j := 0; j < r; j++ {
					dst[j] += src[j]
				}
			}
		}
	}
}

// Reference computes MTTKRP single-threaded and exactly (the host-side
// correctness check named in the spec's §6 CLI and §8 testable properties
// as the cross-check every other variant must match within 10^3 * eps).
func Reference(x *sptensor.Sptensor, u *ktensor.Ktensor, mode int) (*factormatrix.FactorMatrix, error) {
	if mode < 0 || mode >= x.NDims() {
		return nil, gcperr.New(gcperr.ShapeMismatch, "mttkrp: mode out of range")
	}
	v := factormatrix.New(x.Dims[mode], u.Rank())
	mttkrpSingle(x, u, mode, v)
	return v, nil
}
