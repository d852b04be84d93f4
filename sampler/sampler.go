// Package sampler implements the stochastic (nonzero, zero) batch sampler
// that GCP-SGD draws its gradient and evaluation batches from.
package sampler

import (
	"math/rand"

	"github.com/gentengo/gcp/internal/gcperr"
	"github.com/gentengo/gcp/sptensor"
)

// Batch is a sampled (nonzero, zero) pair packaged as one sparse tensor
// (nonzero entries first, zero entries with Val==0 appended) plus a
// parallel per-entry weight so the expectation of the gradient computed
// from it equals the full-tensor gradient.
type Batch struct {
	X *sptensor.Sptensor
	W []float64
}

// nonzeroSet is a hash map from linearized coordinate to the nonzero's
// value, used by the Stratified sampler to reject zero draws that collide
// with a real nonzero, and by the Semi-Stratified sampler to recover the
// true value at a colliding draw instead of rejecting it.
type nonzeroSet struct {
	dims []int
	set  map[int64]float64
}

func newNonzeroSet(x *sptensor.Sptensor) *nonzeroSet {
	s := &nonzeroSet{dims: x.Dims, set: make(map[int64]float64, x.NNZ())}
	for i, c := range x.Subs {
		s.set[linearize(x.Dims, c)] = x.Vals[i]
	}
	return s
}

func (s *nonzeroSet) contains(coord []int) bool {
	_, ok := s.set[linearize(s.dims, coord)]
	return ok
}

// value returns the true nonzero value at coord and true, or (0, false) if
// coord is not a real nonzero.
func (s *nonzeroSet) value(coord []int) (float64, bool) {
	v, ok := s.set[linearize(s.dims, coord)]
	return v, ok
}

func linearize(dims, coord []int) int64 {
	var idx int64
	for k := range dims {
		idx = idx*int64(dims[k]) + int64(coord[k])
	}
	return idx
}

func randomCoord(r *rand.Rand, dims []int) []int {
	coord := make([]int, len(dims))
	for k, d := range dims {
		coord[k] = r.Intn(d)
	}
	return coord
}

// Stratified draws nnzSamples nonzeros uniformly with replacement from
// x.NNZ() and zSamples zero-coordinates uniformly from ∏dims, rejecting
// (and redrawing) any zero draw that collides with a real nonzero.
// Weights are nnz/nnzSamples for drawn nonzeros and
// (∏dims - nnz)/zSamples for drawn zeros.
func Stratified(x *sptensor.Sptensor, nnzSamples, zSamples int, rng *rand.Rand) (*Batch, error) {
	if nnzSamples < 0 || zSamples < 0 {
		return nil, gcperr.New(gcperr.InvalidArgument, "sampler: negative sample count")
	}
	nnz := x.NNZ()
	total := x.Numel()
	if nnzSamples > 0 && nnz == 0 {
		return nil, gcperr.New(gcperr.InvalidArgument, "sampler: cannot draw nonzeros from an empty tensor")
	}

	subs := make([][]int, 0, nnzSamples+zSamples)
	vals := make([]float64, 0, nnzSamples+zSamples)
	weights := make([]float64, 0, nnzSamples+zSamples)

	var nnzWeight float64
	if nnzSamples > 0 {
		nnzWeight = float64(nnz) / float64(nnzSamples)
	}
	for i := 0; i < nnzSamples; i++ {
		idx := rng.Intn(nnz)
		subs = append(subs, append([]int(nil), x.Subs[idx]...))
		vals = append(vals, x.Vals[idx])
		weights = append(weights, nnzWeight)
	}

	if zSamples > 0 {
		zWeight := (float64(total) - float64(nnz)) / float64(zSamples)
		nzSet := newNonzeroSet(x)
		for i := 0; i < zSamples; i++ {
			coord := randomCoord(rng, x.Dims)
			for nzSet.contains(coord) {
				coord = randomCoord(rng, x.Dims)
			}
			subs = append(subs, coord)
			vals = append(vals, 0)
			weights = append(weights, zWeight)
		}
	}

	xg, err := sptensor.New(x.Dims, subs, vals)
	if err != nil {
		return nil, err
	}
	return &Batch{X: xg, W: weights}, nil
}

// SemiStratified draws the same way as Stratified, but does not reject
// zero draws that coincide with a real nonzero; ZeroCollidesWithNonzero on
// each drawn zero entry tells the gradient kernel it must correct the
// contribution by subtracting the model's nonzero-evaluated derivative,
// avoiding any hash lookup on the hot (gradient-evaluation) path.
type SemiStratifiedBatch struct {
	Batch
	// Collision[i] is true for entry i of the zero portion (indices
	// [nnzSamples, nnzSamples+zSamples) of Batch.X) whose drawn
	// coordinate actually coincides with a real nonzero of x.
	Collision []bool
}

func SemiStratified(x *sptensor.Sptensor, nnzSamples, zSamples int, rng *rand.Rand) (*SemiStratifiedBatch, error) {
	if nnzSamples < 0 || zSamples < 0 {
		return nil, gcperr.New(gcperr.InvalidArgument, "sampler: negative sample count")
	}
	nnz := x.NNZ()
	total := x.Numel()
	if nnzSamples > 0 && nnz == 0 {
		return nil, gcperr.New(gcperr.InvalidArgument, "sampler: cannot draw nonzeros from an empty tensor")
	}

	subs := make([][]int, 0, nnzSamples+zSamples)
	vals := make([]float64, 0, nnzSamples+zSamples)
	weights := make([]float64, 0, nnzSamples+zSamples)
	collisions := make([]bool, 0, zSamples)

	var nnzWeight float64
	if nnzSamples > 0 {
		nnzWeight = float64(nnz) / float64(nnzSamples)
	}
	for i := 0; i < nnzSamples; i++ {
		idx := rng.Intn(nnz)
		subs = append(subs, append([]int(nil), x.Subs[idx]...))
		vals = append(vals, x.Vals[idx])
		weights = append(weights, nnzWeight)
	}

	if zSamples > 0 {
		zWeight := (float64(total) - float64(nnz)) / float64(zSamples)
		nzSet := newNonzeroSet(x)
		for i := 0; i < zSamples; i++ {
			coord := randomCoord(rng, x.Dims)
			// Every standard GCP loss has d/dm l(x,m) affine in x:
			// a(m) + x*b(m). Evaluating the derivative at the draw's true
			// value instead of 0 therefore reproduces exactly the "subtract
			// the zero-evaluated term, add back the nonzero-evaluated term"
			// correction in one step, with no extra gradient-kernel term.
			val := 0.0
			collides := false
			if v, ok := nzSet.value(coord); ok {
				val = v
				collides = true
			}
			subs = append(subs, coord)
			vals = append(vals, val)
			weights = append(weights, zWeight)
			collisions = append(collisions, collides)
		}
	}

	xg, err := sptensor.New(x.Dims, subs, vals)
	if err != nil {
		return nil, err
	}
	return &SemiStratifiedBatch{Batch: Batch{X: xg, W: weights}, Collision: collisions}, nil
}

// EvaluationBatch draws a single batch (typically smaller than a gradient
// batch) used to estimate the loss for epoch-acceptance decisions. It is
// drawn once per run and reused across epochs by the caller.
func EvaluationBatch(x *sptensor.Sptensor, nnzSamples, zSamples int, rng *rand.Rand) (*Batch, error) {
	return Stratified(x, nnzSamples, zSamples, rng)
}

// ScaleRandomElements scales nsamples elements of x, chosen uniformly at
// random without replacement, by factor. Only the per-element branch is
// implemented; a columnwise variant was never completed in the original
// and is intentionally not added here.
func ScaleRandomElements(x *sptensor.Sptensor, nsamples int, factor float64, rng *rand.Rand) error {
	nnz := x.NNZ()
	if nsamples > nnz {
		return gcperr.New(gcperr.InvalidArgument, "sampler: nsamples exceeds nnz")
	}
	perm := rng.Perm(nnz)
	for _, idx := range perm[:nsamples] {
		x.Vals[idx] *= factor
	}
	return nil
}
