// Package gentensor generates random sparse/dense tensors and synthetic
// low-rank Ktensors, for the benchmark CLI's `--input ""` path and for the
// GCP-SGD regression scenarios that need a ground-truth model to sample
// from.
package gentensor

import (
	"math/rand"

	"github.com/gentengo/gcp/densetensor"
	"github.com/gentengo/gcp/internal/gcperr"
	"github.com/gentengo/gcp/ktensor"
	"github.com/gentengo/gcp/sptensor"
)

// RandomKtensor builds a Ktensor of the given dims and rank with every
// factor entry drawn uniformly from [0,1) and unit weights. The benchmark
// CLI uses it for the Ktensor operand of its MTTKRP loop; the regression
// scenarios use it as the synthetic ground-truth model.
func RandomKtensor(rng *rand.Rand, dims []int, rank int) *ktensor.Ktensor {
	u := ktensor.New(dims, rank)
	for _, um := range u.U {
		for i := range um.Data {
			um.Data[i] = rng.Float64()
		}
	}
	return u
}

// SparseFromKtensor draws up to maxNNZ distinct coordinates uniformly from
// ∏dims and sets each nonzero's value to u.Reconstruct(coord), giving a
// sparse tensor that is exactly (on its sampled support) a noiseless
// realization of the ground-truth model u. Coordinates are resampled on
// collision, so the result may contain fewer than maxNNZ nonzeros only if
// maxNNZ exceeds ∏dims.
func SparseFromKtensor(rng *rand.Rand, u *ktensor.Ktensor, maxNNZ int) (*sptensor.Sptensor, error) {
	dims := u.Dims()
	total := int64(1)
	for _, d := range dims {
		total *= int64(d)
	}
	if int64(maxNNZ) > total {
		maxNNZ = int(total)
	}

	seen := make(map[int64]struct{}, maxNNZ)
	subs := make([][]int, 0, maxNNZ)
	vals := make([]float64, 0, maxNNZ)
	for len(subs) < maxNNZ {
		coord := make([]int, len(dims))
		var lin int64
		for k, d := range dims {
			coord[k] = rng.Intn(d)
			lin = lin*int64(d) + int64(coord[k])
		}
		if _, dup := seen[lin]; dup {
			continue
		}
		seen[lin] = struct{}{}
		subs = append(subs, coord)
		vals = append(vals, u.Reconstruct(coord))
	}
	return sptensor.New(dims, subs, vals)
}

// RandomSparse builds a tensor of the given dims with nnz nonzero
// coordinates drawn uniformly without replacement, values drawn uniformly
// from [0,1).
func RandomSparse(rng *rand.Rand, dims []int, nnz int) (*sptensor.Sptensor, error) {
	total := int64(1)
	for _, d := range dims {
		total *= int64(d)
	}
	if int64(nnz) > total {
		return nil, gcperr.New(gcperr.InvalidArgument, "gentensor: nnz exceeds tensor size")
	}

	seen := make(map[int64]struct{}, nnz)
	subs := make([][]int, 0, nnz)
	vals := make([]float64, 0, nnz)
	for len(subs) < nnz {
		coord := make([]int, len(dims))
		var lin int64
		for k, d := range dims {
			coord[k] = rng.Intn(d)
			lin = lin*int64(d) + int64(coord[k])
		}
		if _, dup := seen[lin]; dup {
			continue
		}
		seen[lin] = struct{}{}
		subs = append(subs, coord)
		vals = append(vals, rng.Float64())
	}
	return sptensor.New(dims, subs, vals)
}

// RandomDense builds a dims-shaped dense tensor with every entry drawn
// uniformly from [0,1).
func RandomDense(rng *rand.Rand, dims []int) *densetensor.Dense {
	d := densetensor.New(dims...)
	data := d.Data()
	for i := range data {
		data[i] = rng.Float64()
	}
	return d
}

// DensityNNZ returns the nonzero count implied by a density fraction over
// dims, capped at maxNNZ (the benchmark CLI's `--nnz` ceiling).
func DensityNNZ(dims []int, density float64, maxNNZ int) int {
	total := int64(1)
	for _, d := range dims {
		total *= int64(d)
	}
	n := int(float64(total) * density)
	if maxNNZ > 0 && n > maxNNZ {
		n = maxNNZ
	}
	if n < 1 {
		n = 1
	}
	return n
}
