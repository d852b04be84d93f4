// Package densetensor implements the dense N-dimensional tensor: a
// contiguous row-major value array over gorgonia.org/tensor.Dense, with the
// explicit ind2sub/sub2ind convention (rightmost index varies fastest).
package densetensor

import (
	"github.com/gentengo/gcp/internal/gcperr"
	"gorgonia.org/tensor"
)

// Dense is an N-dimensional dense tensor, row-major, rightmost index
// fastest-varying. The backing tensor.Dense carries the CPU/GPU engine
// used for any bulk linear algebra performed directly on it.
type Dense struct {
	t *tensor.Dense
}

// New allocates a zero-filled dense tensor of the given shape, with
// GCPEng installed as its engine.
func New(dims ...int) *Dense {
	return &Dense{t: tensor.New(tensor.WithShape(dims...), tensor.Of(tensor.Float64), tensor.WithEngine(NewEngine()))}
}

// FromSlice wraps an existing row-major value slice without copying, with
// GCPEng installed as its engine.
func FromSlice(dims []int, data []float64) (*Dense, error) {
	n := int64(1)
	for _, d := range dims {
		n *= int64(d)
	}
	if int64(len(data)) != n {
		return nil, gcperr.New(gcperr.ShapeMismatch, "densetensor: data length does not match dims product")
	}
	return &Dense{t: tensor.New(tensor.WithShape(dims...), tensor.WithBacking(data), tensor.WithEngine(NewEngine()))}, nil
}

// Raw returns the underlying gorgonia tensor, e.g. to install a different
// engine or feed it to a kernel.Engine-backed operation.
func (d *Dense) Raw() *tensor.Dense { return d.t }

// Dims returns the mode-size vector.
func (d *Dense) Dims() []int { return d.t.Shape().Clone() }

// NDims returns the number of modes.
func (d *Dense) NDims() int { return d.t.Dims() }

// Numel returns ∏ dims[k].
func (d *Dense) Numel() int { return d.t.Shape().TotalSize() }

// Data returns the backing row-major []float64, valid as long as the
// tensor is contiguous (true for every Dense created by New/FromSlice).
func (d *Dense) Data() []float64 { return d.t.Data().([]float64) }

// At returns the value at a coordinate.
func (d *Dense) At(coord ...int) float64 {
	return d.Data()[Sub2ind(d.Dims(), coord)]
}

// Set stores a value at a coordinate.
func (d *Dense) Set(v float64, coord ...int) {
	d.Data()[Sub2ind(d.Dims(), coord)] = v
}

// Sub2ind converts an N-dim coordinate to a linear row-major index with
// the rightmost index fastest-varying:
//
//	idx = coord[0]; for k := 1..N-1: idx = idx*dims[k] + coord[k]
func Sub2ind(dims, coord []int) int {
	idx := 0
	for k := 0; k < len(dims); k++ {
		idx = idx*dims[k] + coord[k]
	}
	return idx
}

// Ind2sub converts a linear row-major index back to an N-dim coordinate.
func Ind2sub(dims []int, idx int) []int {
	n := len(dims)
	coord := make([]int, n)
	for k := n - 1; k >= 0; k-- {
		coord[k] = idx % dims[k]
		idx /= dims[k]
	}
	return coord
}
