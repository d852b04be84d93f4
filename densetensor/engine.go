package densetensor

import (
	"github.com/gentengo/gcp/internal/gcperr"
	"gorgonia.org/tensor"
)

// GCPEng wraps tensor.StdEng so that a device-backed engine can later
// override individual operations (Sum, MatMul, ...) the way a real GPU
// build would, without touching the call sites that use it. This build
// carries no such override, so every call falls straight through to
// StdEng; the type exists to give dense-tensor construction a named,
// swappable engine rather than baking tensor.StdEng{} in directly.
type GCPEng struct {
	tensor.StdEng
}

// NewEngine constructs the engine installed on every Dense this package
// creates.
func NewEngine() *GCPEng {
	return &GCPEng{StdEng: tensor.StdEng{}}
}

var _ tensor.Engine = (*GCPEng)(nil)

// RowSum reduces a 2D dense tensor along its last axis via the Sum of a
// freshly constructed GCPEng (not whatever engine is installed on d), the
// dispatch point a GPU build would specialize (mirroring
// kernel.Active's role for the sparse kernels in the rest of this module).
func (d *Dense) RowSum() (*Dense, error) {
	if d.t.Dims() != 2 {
		return nil, gcperr.New(gcperr.ShapeMismatch, "densetensor: RowSum requires a 2D tensor")
	}
	eng := NewEngine()
	out, err := eng.Sum(d.t, d.t.Dims()-1)
	if err != nil {
		return nil, gcperr.Wrap(gcperr.NumericalFailure, "densetensor: RowSum", err)
	}
	dt, ok := out.(*tensor.Dense)
	if !ok {
		return nil, gcperr.New(gcperr.ShapeMismatch, "densetensor: RowSum: unexpected engine result type")
	}
	return &Dense{t: dt}, nil
}
