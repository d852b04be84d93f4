package ktensor

import (
	"github.com/gentengo/gcp/internal/gcperr"
	"github.com/gentengo/gcp/sptensor"
)

// Times returns a sparse tensor with the same sparsity pattern as x, whose
// value at each nonzero is x's value there multiplied by k's Kruskal
// reconstruction at that coordinate.
func Times(k *Ktensor, x *sptensor.Sptensor) (*sptensor.Sptensor, error) {
	if x.NDims() != k.NDims() {
		return nil, gcperr.New(gcperr.ShapeMismatch, "ktensor: times mode count mismatch")
	}
	vals := make([]float64, x.NNZ())
	for i, coord := range x.Subs {
		vals[i] = x.Vals[i] * k.Reconstruct(coord)
	}
	return sptensor.New(x.Dims, x.Subs, vals)
}

// Divide returns a sparse tensor with the same sparsity pattern as y,
// whose value at each nonzero is y's value there divided by k's Kruskal
// reconstruction at that coordinate, with entries whose |reconstruction|
// falls below tol zeroed instead of divided (guarding the divide-by-zero
// singularity Times would otherwise be non-invertible across).
func Divide(y *sptensor.Sptensor, k *Ktensor, tol float64) (*sptensor.Sptensor, error) {
	if y.NDims() != k.NDims() {
		return nil, gcperr.New(gcperr.ShapeMismatch, "ktensor: divide mode count mismatch")
	}
	vals := make([]float64, y.NNZ())
	for i, coord := range y.Subs {
		m := k.Reconstruct(coord)
		if m < tol && m > -tol {
			vals[i] = 0
			continue
		}
		vals[i] = y.Vals[i] / m
	}
	return sptensor.New(y.Dims, y.Subs, vals)
}
