// Package ktensor implements the Kruskal tensor: a weight vector plus N
// factor matrices sharing a common column count R.
package ktensor

import (
	"math"
	"sort"

	"github.com/gentengo/gcp/factormatrix"
	"github.com/gentengo/gcp/internal/gcperr"
	"github.com/gentengo/gcp/sptensor"
)

// Ktensor is a weighted sum of R rank-one outer products over N modes.
type Ktensor struct {
	Weights []float64                  // length R
	U       []*factormatrix.FactorMatrix // U[m] has shape [dims[m] x R]
}

// New allocates a Ktensor of the given per-mode sizes and rank R, with
// unit weights and zero-filled factors.
func New(dims []int, r int) *Ktensor {
	u := make([]*factormatrix.FactorMatrix, len(dims))
	for m, d := range dims {
		u[m] = factormatrix.New(d, r)
	}
	w := make([]float64, r)
	for i := range w {
		w[i] = 1
	}
	return &Ktensor{Weights: w, U: u}
}

// Rank returns R.
func (k *Ktensor) Rank() int { return len(k.Weights) }

// NDims returns N.
func (k *Ktensor) NDims() int { return len(k.U) }

// Dims returns the per-mode sizes.
func (k *Ktensor) Dims() []int {
	d := make([]int, len(k.U))
	for m, u := range k.U {
		d[m] = u.Rows
	}
	return d
}

// IsConsistent reports whether every factor matrix has Cols == R == len(Weights).
func (k *Ktensor) IsConsistent() bool {
	r := len(k.Weights)
	for _, u := range k.U {
		if u.Cols != r {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (k *Ktensor) Clone() *Ktensor {
	out := &Ktensor{Weights: append([]float64(nil), k.Weights...), U: make([]*factormatrix.FactorMatrix, len(k.U))}
	for m, u := range k.U {
		out.U[m] = u.Clone()
	}
	return out
}

// CopyFrom overwrites k's contents from src (same shape).
func (k *Ktensor) CopyFrom(src *Ktensor) {
	copy(k.Weights, src.Weights)
	for m := range k.U {
		copy(k.U[m].Data, src.U[m].Data)
	}
}

// p-norm identifiers for Normalize. NormInf is math.Inf(1); ColumnNorms
// treats it as the infinity norm rather than literally summing powers.
var NormInf = math.Inf(1)

const (
	NormOne = 1
	NormTwo = 2
)

// Normalize rescales each column of each factor matrix to unit p-norm and
// absorbs the removed scale into Weights (multiplicatively, across all
// modes, so the product of per-mode column norms for component r times
// Weights[r] equals the original weighted component norm).
func (k *Ktensor) Normalize(p float64) error {
	r := k.Rank()
	for _, u := range k.U {
		norms := u.ColumnNorms(p, 0)
		scale := make([]float64, r)
		for j, n := range norms {
			if n == 0 {
				scale[j] = 1
				continue
			}
			scale[j] = n
		}
		if err := u.ScaleColumns(scale, true); err != nil {
			return gcperr.Wrap(gcperr.NumericalFailure, "ktensor: normalize", err)
		}
		for j, n := range norms {
			k.Weights[j] *= n
		}
	}
	return nil
}

// Distribute spreads Weights uniformly into the first factor matrix's
// columns (U[0][:,r] *= Weights[r]) and resets Weights to all-ones.
func (k *Ktensor) Distribute() error {
	if len(k.U) == 0 {
		return nil
	}
	if err := k.U[0].ScaleColumns(k.Weights, false); err != nil {
		return gcperr.Wrap(gcperr.NumericalFailure, "ktensor: distribute", err)
	}
	for j := range k.Weights {
		k.Weights[j] = 1
	}
	return nil
}

// Arrange sorts components by decreasing |Weights[r]|, permuting every
// factor matrix's columns (and Weights) to match.
func (k *Ktensor) Arrange() {
	r := k.Rank()
	order := make([]int, r)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return math.Abs(k.Weights[order[a]]) > math.Abs(k.Weights[order[b]])
	})
	// order[j] = which original column should become column j.
	newW := make([]float64, r)
	for j, o := range order {
		newW[j] = k.Weights[o]
	}
	copy(k.Weights, newW)
	for _, u := range k.U {
		u.PermuteColumns(order)
	}
}

// InnerProd computes innerprod(X, u) = Σ_x x.value · Σ_r λ_r · ∏_m U[m][coord_m(x), r].
func (k *Ktensor) InnerProd(x *sptensor.Sptensor) (float64, error) {
	if x.NDims() != k.NDims() {
		return 0, gcperr.New(gcperr.ShapeMismatch, "ktensor: innerprod mode count mismatch")
	}
	r := k.Rank()
	acc := make([]float64, r)
	var total float64
	for i, coord := range x.Subs {
		for j := 0; j < r; j++ {
			acc[j] = k.Weights[j]
		}
		for m, c := range coord {
			row := k.U[m].Row(c)
			for j := 0; j < r; j++ {
				acc[j] *= row[j]
			}
		}
		var s float64
		for j := 0; j < r; j++ {
			s += acc[j]
		}
		total += x.Vals[i] * s
	}
	return total, nil
}

// Reconstruct evaluates the Ktensor at a single coordinate, i.e. the value
// the corresponding dense tensor would have there:
// Σ_r λ_r · ∏_m U[m][coord_m, r].
func (k *Ktensor) Reconstruct(coord []int) float64 {
	r := k.Rank()
	var total float64
	for j := 0; j < r; j++ {
		v := k.Weights[j]
		for m, c := range coord {
			v *= k.U[m].Row(c)[j]
		}
		total += v
	}
	return total
}
