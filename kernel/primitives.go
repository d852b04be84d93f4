package kernel

import (
	"math"

	"github.com/gentengo/gcp/internal/gcperr"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/lapack/lapack64"
)

// Triangle selects which half of a symmetric matrix a kernel fills/reads.
type Triangle int

const (
	Upper Triangle = iota
	Lower
)

func (tr Triangle) blasUplo() blas.Uplo {
	if tr == Upper {
		return blas.Upper
	}
	return blas.Lower
}

// Gramian computes C ← AᵀA for A stored row-major as an m×n matrix (m rows,
// n columns, n == R components). If full is true both triangles of C are
// written and equal; otherwise only the triangle selected by uplo is
// defined. Delegates to blas64.Dsyrk (a symmetric rank-k update), the CPU
// fallback used regardless of Backend — a real GPU backend would route
// this through a vendor BLAS call instead, the indirection point noted in
// DESIGN.md.
func Gramian(a []float64, m, n int, full bool, uplo Triangle) []float64 {
	c := make([]float64, n*n)
	general := blas64.General{Rows: m, Cols: n, Stride: n, Data: a}
	sym := blas64.Symmetric{N: n, Stride: n, Uplo: uplo.blasUplo(), Data: c}
	blas64.Implementation().Dsyrk(uplo.blasUplo(), blas.Trans, n, m, 1, general.Data, general.Stride, 0, sym.Data, sym.Stride)
	if full {
		mirrorTriangle(c, n, uplo)
	}
	return c
}

// mirrorTriangle copies the defined triangle of an n×n row-major symmetric
// matrix into the other, so that C(i,j) == C(j,i) everywhere.
func mirrorTriangle(c []float64, n int, uplo Triangle) {
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if uplo == Upper {
				c[j*n+i] = c[i*n+j]
			} else {
				c[i*n+j] = c[j*n+i]
			}
		}
	}
}

// BlockedGramian is the portable hand-rolled fallback required alongside
// the BLAS path: a column-blocked AᵀA that must match Gramian to within
// 10^3 * machine epsilon per element. It exists so a target with no BLAS
// available (or one being validated against) still has a correct kernel.
func BlockedGramian(a []float64, m, n int, full bool, uplo Triangle, blockSize int) []float64 {
	if blockSize <= 0 {
		blockSize = n
	}
	c := make([]float64, n*n)
	for jb := 0; jb < n; jb += blockSize {
		jend := min(jb+blockSize, n)
		for ib := 0; ib < n; ib += blockSize {
			iend := min(ib+blockSize, n)
			for i := ib; i < iend; i++ {
				loJ := jb
				if uplo == Upper && jb < i {
					loJ = i
				}
				hiJ := jend
				if uplo == Lower && jend > i+1 {
					hiJ = min(jend, i+1)
				}
				for j := loJ; j < hiJ; j++ {
					var sum float64
					for k := 0; k < m; k++ {
						sum += a[k*n+i] * a[k*n+j]
					}
					c[i*n+j] = sum
				}
			}
		}
	}
	if full {
		mirrorTriangle(c, n, uplo)
	}
	return c
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// SymSolveResult reports which factorization path solveTransposeRHS used.
type SymSolveResult struct {
	// SPD is true if the Cholesky path succeeded; false if it fell back
	// to the symmetric-indefinite solver (either because the caller
	// requested spd=false, or because Cholesky reported a non-positive-
	// definite leading minor).
	SPD bool
}

// SolveTransposeRHS solves X A = B for X, where B is the m×n row-major
// matrix overwritten with the solution, and A is the n×n row-major
// symmetric (or, if full, general) Gramian-like matrix. It is solved as
// the equivalent system Aᵀ Xᵀ = Bᵀ: gonum's LAPACK wrappers are row-major
// with one right-hand side per column, so B is transposed into an n×m
// scratch matrix before the solve and the solution transposed back into b.
// For a symmetric A, Aᵀ == A; the general (full) path solves with Aᵀ via
// Getrs's Trans flag.
func SolveTransposeRHS(a []float64, n int, b []float64, m int, full bool, uplo Triangle, spd bool) (SymSolveResult, error) {
	transpose := func(dst, src []float64, rows, cols int) {
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				dst[j*rows+i] = src[i*cols+j]
			}
		}
	}
	bt := make([]float64, n*m)
	transpose(bt, b, m, n)
	bGeneral := blas64.General{Rows: n, Cols: m, Stride: m, Data: bt}

	if full {
		acopy := append([]float64(nil), a...)
		ag := blas64.General{Rows: n, Cols: n, Stride: n, Data: acopy}
		ipiv := make([]int, n)
		ok := lapack64.Getrf(ag, ipiv)
		if !ok {
			return SymSolveResult{}, gcperr.New(gcperr.NumericalFailure, "solveTransposeRHS: singular matrix in general LU")
		}
		lapack64.Getrs(blas.Trans, ag, bGeneral, ipiv)
		transpose(b, bt, n, m)
		return SymSolveResult{}, nil
	}

	if spd {
		acopy := append([]float64(nil), a...)
		sym := blas64.Symmetric{N: n, Stride: n, Uplo: uplo.blasUplo(), Data: acopy}
		_, ok := lapack64.Potrf(sym)
		if ok {
			lapack64.Potrs(sym, bGeneral)
			transpose(b, bt, n, m)
			return SymSolveResult{SPD: true}, nil
		}
		// Non-positive-definite: fall back to the indefinite solver and
		// report spd=false, per the contract.
	}

	acopy := append([]float64(nil), a...)
	sym := blas64.Symmetric{N: n, Stride: n, Uplo: uplo.blasUplo(), Data: acopy}
	ipiv := make([]int, n)
	work := make([]float64, 1)
	lapack64.Sytrf(sym, ipiv, work, -1)
	lwork := int(work[0])
	if lwork < 1 {
		lwork = n
	}
	work = make([]float64, lwork)
	ok := lapack64.Sytrf(sym, ipiv, work, lwork)
	if !ok {
		return SymSolveResult{}, gcperr.New(gcperr.NumericalFailure, "solveTransposeRHS: singular matrix in symmetric indefinite factorization")
	}
	lapack64.Sytrs(sym, ipiv, bGeneral)
	transpose(b, bt, n, m)
	return SymSolveResult{SPD: false}, nil
}

// ColumnNorms computes the p-norm of every column of an m×n row-major
// matrix, clamping to minval if provided (minval <= 0 disables the floor).
// p must be one of math.Inf(1) (infinity norm), 1, or 2.
func ColumnNorms(a []float64, m, n int, p float64, minval float64) []float64 {
	norms := make([]float64, n)
	for j := 0; j < n; j++ {
		var acc float64
		for i := 0; i < m; i++ {
			v := a[i*n+j]
			switch {
			case math.IsInf(p, 1):
				if av := math.Abs(v); av > acc {
					acc = av
				}
			case p == 1:
				acc += math.Abs(v)
			default:
				acc += v * v
			}
		}
		if p == 2 {
			acc = math.Sqrt(acc)
		}
		if minval > 0 && acc < minval {
			acc = minval
		}
		norms[j] = acc
	}
	return norms
}

// ColumnScale multiplies every column j of an m×n row-major matrix by
// scale[j] (or 1/scale[j] if inverse is true). Fails if inverse is true
// and any scale[j] is exactly zero.
func ColumnScale(a []float64, m, n int, scale []float64, inverse bool) error {
	factors := scale
	if inverse {
		factors = make([]float64, n)
		for j, s := range scale {
			if s == 0 {
				return gcperr.New(gcperr.NumericalFailure, "columnScale: divide by zero")
			}
			factors[j] = 1 / s
		}
	}
	for i := 0; i < m; i++ {
		row := a[i*n : i*n+n]
		for j := range row {
			row[j] *= factors[j]
		}
	}
	return nil
}

// PermuteColumns reorders the columns of an m×n row-major matrix in place
// according to perm, so that result column j equals input column perm[j].
// Algorithm: in-place cycle decomposition using a single column of scratch;
// each cycle is walked once, column swaps expressed as a row-parallel
// stride across the matrix.
func PermuteColumns(a []float64, m, n int, perm []int) {
	visited := make([]bool, n)
	scratch := make([]float64, m)
	getCol := func(j int, dst []float64) {
		for i := 0; i < m; i++ {
			dst[i] = a[i*n+j]
		}
	}
	setCol := func(j int, src []float64) {
		for i := 0; i < m; i++ {
			a[i*n+j] = src[i]
		}
	}
	copyCol := func(dstJ, srcJ int) {
		for i := 0; i < m; i++ {
			a[i*n+dstJ] = a[i*n+srcJ]
		}
	}

	for start := 0; start < n; start++ {
		if visited[start] {
			continue
		}
		if perm[start] == start {
			visited[start] = true
			continue
		}
		getCol(start, scratch)
		cur := start
		for perm[cur] != start {
			copyCol(cur, perm[cur])
			visited[cur] = true
			cur = perm[cur]
		}
		setCol(cur, scratch)
		visited[cur] = true
	}
}
