// Package cpals implements the CP-ALS (alternating least squares) fixed
// point: each mode's factor matrix is updated in turn from the other
// modes' Gramian product and that mode's MTTKRP, giving the kernel layer a
// second, independent caller to mttkrp/factormatrix/Gramian alongside
// gcpsgd.
package cpals

import (
	"math"

	"github.com/gentengo/gcp/factormatrix"
	"github.com/gentengo/gcp/internal/gcperr"
	"github.com/gentengo/gcp/kernel"
	"github.com/gentengo/gcp/ktensor"
	"github.com/gentengo/gcp/mttkrp"
	"github.com/gentengo/gcp/sptensor"
)

// Config configures the ALS fixed point.
type Config struct {
	MaxIters int
	Tol      float64 // convergence on the absolute change of the fit
	Method   mttkrp.Method
	Options  mttkrp.Options
}

// DefaultConfig returns reasonable defaults for a small-to-medium problem.
func DefaultConfig() Config {
	return Config{MaxIters: 100, Tol: 1e-8, Method: mttkrp.Atomic}
}

// Stats summarizes a completed ALS run.
type Stats struct {
	Iters     int
	Fit       float64
	Converged bool
}

// hadamard multiplies a and b element-wise into a new FactorMatrix.
func hadamard(a, b *factormatrix.FactorMatrix) *factormatrix.FactorMatrix {
	out := factormatrix.New(a.Rows, a.Cols)
	for i := range out.Data {
		out.Data[i] = a.Data[i] * b.Data[i]
	}
	return out
}

// weightMatrix returns the elementwise (Hadamard) product of the Gramians
// of every factor matrix except mode n.
func weightMatrix(u *ktensor.Ktensor, n int) *factormatrix.FactorMatrix {
	var w *factormatrix.FactorMatrix
	for m, um := range u.U {
		if m == n {
			continue
		}
		g := um.Gramian(true, kernel.Upper)
		if w == nil {
			w = g
			continue
		}
		w = hadamard(w, g)
	}
	return w
}

// updateMode solves for a new U[n] from V = MTTKRP(X,u,n) and
// W = Hadamard product of the other modes' Gramians, via
// U[n] = solveTransposeRHS(W, V), then normalizes the new columns into
// lambda.
func updateMode(x *sptensor.Sptensor, u *ktensor.Ktensor, n int, method mttkrp.Method, opts mttkrp.Options) error {
	v, err := mttkrp.MTTKRP(x, u, n, method, opts)
	if err != nil {
		return err
	}
	w := weightMatrix(u, n)
	if w == nil {
		// Single-mode tensor: nothing to solve against, V is already the
		// updated factor.
		u.U[n].CopyFrom(v)
	} else {
		if _, err := v.SolveTransposeRHS(w, false, kernel.Upper, true); err != nil {
			return err
		}
		u.U[n].CopyFrom(v)
	}
	norms := u.U[n].ColumnNorms(2, 1e-12)
	if err := u.U[n].ScaleColumns(norms, true); err != nil {
		return err
	}
	copy(u.Weights, norms)
	return nil
}

// fit computes 1 - ||X - model||/||X|| using the Frobenius-norm identity
// ||X-M||^2 = ||X||^2 - 2<X,M> + ||M||^2, with <X,M> = innerprod(X,u) and
// ||M||^2 computed from the Gramians and lambda (standard CP fit formula).
func fit(x *sptensor.Sptensor, u *ktensor.Ktensor, normXSq float64) (float64, error) {
	ip, err := u.InnerProd(x)
	if err != nil {
		return 0, err
	}
	r := u.Rank()
	var normUSq float64
	var gram *factormatrix.FactorMatrix
	for _, um := range u.U {
		g := um.Gramian(true, kernel.Upper)
		if gram == nil {
			gram = g
			continue
		}
		gram = hadamard(gram, g)
	}
	if gram != nil {
		for i := 0; i < r; i++ {
			for j := 0; j < r; j++ {
				normUSq += u.Weights[i] * u.Weights[j] * gram.Row(i)[j]
			}
		}
	}
	residSq := normXSq - 2*ip + normUSq
	if residSq < 0 {
		residSq = 0
	}
	if normXSq <= 0 {
		return 0, nil
	}
	return 1 - math.Sqrt(residSq)/math.Sqrt(normXSq), nil
}

func sumOfSquares(x *sptensor.Sptensor) float64 {
	var s float64
	for _, v := range x.Vals {
		s += v * v
	}
	return s
}

// Solve runs the ALS fixed point: cycle through every mode, updating its
// factor matrix from the others' Gramian product and that mode's MTTKRP,
// until the fit's change falls below cfg.Tol or cfg.MaxIters is reached.
func Solve(x *sptensor.Sptensor, u0 *ktensor.Ktensor, cfg Config) (*ktensor.Ktensor, Stats, error) {
	if x.NDims() != u0.NDims() {
		return nil, Stats{}, gcperr.New(gcperr.ShapeMismatch, "cpals: tensor/model mode mismatch")
	}
	u := u0.Clone()
	normXSq := sumOfSquares(x)

	stats := Stats{}
	prevFit := math.Inf(-1)
	for iter := 1; iter <= cfg.MaxIters; iter++ {
		for n := 0; n < u.NDims(); n++ {
			if err := updateMode(x, u, n, cfg.Method, cfg.Options); err != nil {
				return nil, stats, err
			}
		}
		f, err := fit(x, u, normXSq)
		if err != nil {
			return nil, stats, err
		}
		stats.Iters = iter
		stats.Fit = f
		if math.Abs(f-prevFit) < cfg.Tol {
			stats.Converged = true
			break
		}
		prevFit = f
	}

	u.Normalize(ktensor.NormTwo)
	u.Arrange()
	return u, stats, nil
}
