// Package factormatrix implements FactorMatrix operations: Gramian, column
// norms, column scale, permute columns, and the symmetric
// solveTransposeRHS solve used by CP-ALS's per-mode update.
package factormatrix

import (
	"github.com/gentengo/gcp/internal/gcperr"
	"github.com/gentengo/gcp/kernel"
)

// FactorMatrix is a row-major [Rows x Cols] matrix. A padded leading
// dimension is permitted on CPU (to aid SIMD row access) but is never used
// here when the GPU backend is active, so host and device shapes stay
// identical for mirroring — enforced by NewPadded refusing a pad on a GPU
// build.
type FactorMatrix struct {
	Rows, Cols int
	Stride     int // elements per row; Stride >= Cols
	Data       []float64
}

// New allocates a zero-filled FactorMatrix with no row padding.
func New(rows, cols int) *FactorMatrix {
	return &FactorMatrix{Rows: rows, Cols: cols, Stride: cols, Data: make([]float64, rows*cols)}
}

// NewPadded allocates a FactorMatrix whose row stride is padStride (>=
// cols), for SIMD-friendly row access. Rejected when the active backend is
// GPU, since padded and unpadded shapes must match across host and device.
func NewPadded(rows, cols, padStride int) (*FactorMatrix, error) {
	if padStride < cols {
		return nil, gcperr.New(gcperr.ShapeMismatch, "factormatrix: padStride < cols")
	}
	if padStride != cols && kernel.Active.Name() == "gpu" {
		return nil, gcperr.New(gcperr.UnsupportedConfig, "factormatrix: padded leading dimension forbidden on GPU backend")
	}
	return &FactorMatrix{Rows: rows, Cols: cols, Stride: padStride, Data: make([]float64, rows*padStride)}, nil
}

// Row returns a view of row i (length Cols, even when Stride > Cols).
func (f *FactorMatrix) Row(i int) []float64 {
	start := i * f.Stride
	return f.Data[start : start+f.Cols]
}

// compact returns the matrix's data as an unpadded row-major [Rows x Cols]
// slice, copying only if Stride != Cols.
func (f *FactorMatrix) compact() []float64 {
	if f.Stride == f.Cols {
		return f.Data
	}
	out := make([]float64, f.Rows*f.Cols)
	for i := 0; i < f.Rows; i++ {
		copy(out[i*f.Cols:(i+1)*f.Cols], f.Row(i))
	}
	return out
}

func (f *FactorMatrix) scatterFromCompact(c []float64) {
	if f.Stride == f.Cols {
		copy(f.Data, c)
		return
	}
	for i := 0; i < f.Rows; i++ {
		copy(f.Row(i), c[i*f.Cols:(i+1)*f.Cols])
	}
}

// CopyFrom overwrites f's rows from src, row by row (shapes must match).
func (f *FactorMatrix) CopyFrom(src *FactorMatrix) {
	for i := 0; i < f.Rows; i++ {
		copy(f.Row(i), src.Row(i))
	}
}

// Clone returns a deep copy.
func (f *FactorMatrix) Clone() *FactorMatrix {
	out := &FactorMatrix{Rows: f.Rows, Cols: f.Cols, Stride: f.Stride, Data: append([]float64(nil), f.Data...)}
	return out
}

// Gramian computes C ← AᵀA by delegating to kernel.Gramian (blas64
// Dsyrk) on every backend. The hand-rolled kernel.BlockedGramian is not
// called from here; it is a separate fallback kernel that agrees with
// kernel.Gramian to within 10^3 * machine epsilon.
func (f *FactorMatrix) Gramian(full bool, uplo kernel.Triangle) *FactorMatrix {
	c := kernel.Gramian(f.compact(), f.Rows, f.Cols, full, uplo)
	return &FactorMatrix{Rows: f.Cols, Cols: f.Cols, Stride: f.Cols, Data: c}
}

// ColumnNorms computes the p-norm of every column (p = math.Inf(1), 1, or
// 2), clamped to minval if minval > 0.
func (f *FactorMatrix) ColumnNorms(p float64, minval float64) []float64 {
	return kernel.ColumnNorms(f.compact(), f.Rows, f.Cols, p, minval)
}

// ScaleColumns multiplies column j by scale[j] (or its reciprocal if
// inverse is true); fails on an exact-zero divisor in the inverse case.
func (f *FactorMatrix) ScaleColumns(scale []float64, inverse bool) error {
	if f.Stride == f.Cols {
		return kernel.ColumnScale(f.Data, f.Rows, f.Cols, scale, inverse)
	}
	c := f.compact()
	if err := kernel.ColumnScale(c, f.Rows, f.Cols, scale, inverse); err != nil {
		return err
	}
	f.scatterFromCompact(c)
	return nil
}

// PermuteColumns reorders columns in place so result column j equals input
// column perm[j].
func (f *FactorMatrix) PermuteColumns(perm []int) {
	if f.Stride == f.Cols {
		kernel.PermuteColumns(f.Data, f.Rows, f.Cols, perm)
		return
	}
	c := f.compact()
	kernel.PermuteColumns(c, f.Rows, f.Cols, perm)
	f.scatterFromCompact(c)
}

// SolveTransposeRHS solves X A = B where B is f (overwritten with the
// solution) and A is an n x n symmetric (or general, if full) matrix
// supplied as a FactorMatrix's Gramian-shaped Data. Returns whether the
// SPD (Cholesky) path succeeded; on a non-SPD report the caller receives
// SPD=false (indefinite solve was used instead) rather than an error.
func (f *FactorMatrix) SolveTransposeRHS(a *FactorMatrix, full bool, uplo kernel.Triangle, spd bool) (kernel.SymSolveResult, error) {
	if a.Rows != a.Cols || a.Cols != f.Cols {
		return kernel.SymSolveResult{}, gcperr.New(gcperr.ShapeMismatch, "solveTransposeRHS: A must be Cols x Cols")
	}
	c := f.compact()
	res, err := kernel.SolveTransposeRHS(a.compact(), a.Cols, c, f.Rows, full, uplo, spd)
	if err != nil {
		return res, err
	}
	f.scatterFromCompact(c)
	return res, nil
}

// RowDot returns the dot product of row i with the given vector (length
// Cols).
func (f *FactorMatrix) RowDot(i int, v []float64) float64 {
	row := f.Row(i)
	var sum float64
	for k, rv := range row {
		sum += rv * v[k]
	}
	return sum
}

// RowHadamard multiplies row i element-wise by v (length Cols), in place.
func (f *FactorMatrix) RowHadamard(i int, v []float64) {
	row := f.Row(i)
	for k := range row {
		row[k] *= v[k]
	}
}
