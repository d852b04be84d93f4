// Package sptensor implements the coordinate-format sparse tensor: an
// ordered sequence of (coordinate, value) nonzeros plus per-mode auxiliary
// permutation and row-pointer indices built once by fillComplete and
// immutable thereafter.
package sptensor

import (
	"sort"

	"github.com/gentengo/gcp/internal/gcperr"
)

// Sptensor is an N-dimensional sparse tensor in coordinate format.
//
// Subscripts are stored row-major per nonzero: Subs[i] is the length-N
// coordinate of the i-th nonzero, Vals[i] its value. fillComplete does not
// deduplicate repeated coordinates; value ordering within Subs/Vals is
// whatever the caller supplied.
type Sptensor struct {
	Dims []int
	Subs [][]int
	Vals []float64

	// perm[m] is a permutation of [0,NNZ) that sorts nonzeros by their
	// m-th coordinate. Built by CreatePermutation, nil until then.
	perm [][]int
	// rowptr[m] has length Dims[m]+1; perm[m][rowptr[m][i]:rowptr[m][i+1]]
	// are exactly the nonzeros with coord_m == i. Built by CreateRowPtr.
	rowptr [][]int

	complete bool
}

// New builds an Sptensor from raw coordinate/value slices. The tensor is
// mutable (perm/rowptr unbuilt) until FillComplete is called.
func New(dims []int, subs [][]int, vals []float64) (*Sptensor, error) {
	if len(subs) != len(vals) {
		return nil, gcperr.New(gcperr.ShapeMismatch, "sptensor: len(subs) != len(vals)")
	}
	n := len(dims)
	for i, s := range subs {
		if len(s) != n {
			return nil, gcperr.New(gcperr.ShapeMismatch, "sptensor: coordinate arity mismatch")
		}
		for m, c := range s {
			if c < 0 || c >= dims[m] {
				return nil, gcperr.New(gcperr.ShapeMismatch, "sptensor: coordinate out of range")
			}
		}
		_ = i
	}
	return &Sptensor{Dims: append([]int(nil), dims...), Subs: subs, Vals: vals}, nil
}

// NDims returns the number of modes.
func (t *Sptensor) NDims() int { return len(t.Dims) }

// NNZ returns the number of stored nonzeros.
func (t *Sptensor) NNZ() int { return len(t.Vals) }

// Numel returns the product of all mode sizes (the size of the dense
// equivalent), i.e. ∏ dims[k].
func (t *Sptensor) Numel() int64 {
	n := int64(1)
	for _, d := range t.Dims {
		n *= int64(d)
	}
	return n
}

// FillComplete builds the permutation and row-pointer auxiliary indices
// for every mode and marks the tensor read-only. It is idempotent. No
// deduplication of coincident coordinates is performed, matching the
// original's contract.
func (t *Sptensor) FillComplete() {
	if t.complete {
		return
	}
	t.CreatePermutation()
	t.CreateRowPtr()
	t.complete = true
}

// IsComplete reports whether FillComplete has run.
func (t *Sptensor) IsComplete() bool { return t.complete }

// CreatePermutation builds, for every mode m, a permutation of [0,NNZ)
// that sorts nonzeros by coord_m. Any stable sort suffices; sort.SliceStable
// is used so ties break on original nonzero order.
func (t *Sptensor) CreatePermutation() {
	n := t.NDims()
	nnz := t.NNZ()
	t.perm = make([][]int, n)
	for m := 0; m < n; m++ {
		p := make([]int, nnz)
		for i := range p {
			p[i] = i
		}
		mm := m
		sort.SliceStable(p, func(a, b int) bool {
			return t.Subs[p[a]][mm] < t.Subs[p[b]][mm]
		})
		t.perm[m] = p
	}
}

// CreateRowPtr computes, for every mode m, the Dims[m]+1 offsets into
// perm[m] bounding each row's contiguous block. Must be called after
// CreatePermutation.
func (t *Sptensor) CreateRowPtr() {
	n := t.NDims()
	t.rowptr = make([][]int, n)
	for m := 0; m < n; m++ {
		rp := make([]int, t.Dims[m]+1)
		p := t.perm[m]
		for _, idx := range p {
			rp[t.Subs[idx][m]+1]++
		}
		for i := 1; i < len(rp); i++ {
			rp[i] += rp[i-1]
		}
		t.rowptr[m] = rp
	}
}

// HasPermutation reports whether CreatePermutation has been run (it
// builds the permutation for every mode at once).
func (t *Sptensor) HasPermutation() bool { return t.perm != nil }

// Perm returns the sort-by-coord_m permutation for mode m. Callers must
// check HasPermutation first.
func (t *Sptensor) Perm(m int) []int { return t.perm[m] }

// RowPtr returns the row-pointer offsets for mode m. Callers must check
// HasPermutation first (row pointers are built alongside the permutation).
func (t *Sptensor) RowPtr(m int) []int { return t.rowptr[m] }

// Row returns the slice of perm[m] indices for row i of mode m, i.e. the
// nonzeros whose m-th coordinate equals i.
func (t *Sptensor) Row(m, i int) []int {
	rp := t.rowptr[m]
	p := t.perm[m]
	return p[rp[i]:rp[i+1]]
}
