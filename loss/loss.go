// Package loss implements the elementwise loss functions GCP-SGD
// minimizes: Gaussian, Poisson, Bernoulli, Gamma, Rayleigh. Each is a
// small value type with inline value/deriv, finalized at dispatch so the
// inner SGD loop sees direct calls rather than virtual dispatch.
package loss

import (
	"math"

	"github.com/gentengo/gcp/internal/gcperr"
)

// eps guards log/divide singularities at m == 0, matching the reference
// engine's m + eps convention for Poisson/Bernoulli/Gamma/Rayleigh.
const eps = 1e-10

// Function is the closed set of loss variants GCP-SGD can be configured
// with.
type Function interface {
	// Value returns the elementwise loss for data x and model value m.
	Value(x, m float64) float64
	// Deriv returns d(Value)/dm.
	Deriv(x, m float64) float64
	// HasLowerBound/LowerBound and HasUpperBound/UpperBound describe the
	// feasible region the step rule must clip model values into.
	HasLowerBound() bool
	LowerBound() float64
	HasUpperBound() bool
	UpperBound() float64
	Name() string
}

// Gaussian is the unbounded sum-of-squares loss ½(x-m)².
type Gaussian struct{}

func (Gaussian) Value(x, m float64) float64 { d := x - m; return 0.5 * d * d }
func (Gaussian) Deriv(x, m float64) float64 { return m - x }
func (Gaussian) HasLowerBound() bool        { return false }
func (Gaussian) LowerBound() float64        { return math.Inf(-1) }
func (Gaussian) HasUpperBound() bool        { return false }
func (Gaussian) UpperBound() float64        { return math.Inf(1) }
func (Gaussian) Name() string               { return "Gaussian" }

// Poisson is m - x*log(m+eps), for count data with m >= 0.
type Poisson struct{}

func (Poisson) Value(x, m float64) float64 { return m - x*math.Log(m+eps) }
func (Poisson) Deriv(x, m float64) float64 { return 1 - x/(m+eps) }
func (Poisson) HasLowerBound() bool        { return true }
func (Poisson) LowerBound() float64        { return 0 }
func (Poisson) HasUpperBound() bool        { return false }
func (Poisson) UpperBound() float64        { return math.Inf(1) }
func (Poisson) Name() string               { return "Poisson" }

// Bernoulli is log(1+m) - x*log(m+eps), for binary data with m >= 0.
type Bernoulli struct{}

func (Bernoulli) Value(x, m float64) float64 { return math.Log(1+m) - x*math.Log(m+eps) }
func (Bernoulli) Deriv(x, m float64) float64 { return 1/(1+m) - x/(m+eps) }
func (Bernoulli) HasLowerBound() bool        { return true }
func (Bernoulli) LowerBound() float64        { return 0 }
func (Bernoulli) HasUpperBound() bool        { return false }
func (Bernoulli) UpperBound() float64        { return math.Inf(1) }
func (Bernoulli) Name() string               { return "Bernoulli" }

// Gamma is x/(m+eps) + log(m+eps), used for exponential/rate data with
// m >= 0.
type Gamma struct{}

func (Gamma) Value(x, m float64) float64 { return x/(m+eps) + math.Log(m+eps) }
func (Gamma) Deriv(x, m float64) float64 { return -x/((m+eps)*(m+eps)) + 1/(m+eps) }
func (Gamma) HasLowerBound() bool        { return true }
func (Gamma) LowerBound() float64        { return 0 }
func (Gamma) HasUpperBound() bool        { return false }
func (Gamma) UpperBound() float64        { return math.Inf(1) }
func (Gamma) Name() string               { return "Gamma" }

// Rayleigh is the GCP loss for Rayleigh-distributed data, m >= 0, in its
// elementwise negative log-likelihood form:
// value = 2*log(m+eps) + (π/4)*(x/(m+eps))².
type Rayleigh struct{}

func (Rayleigh) Value(x, m float64) float64 {
	r := x / (m + eps)
	return 2*math.Log(m+eps) + (math.Pi/4)*r*r
}
func (Rayleigh) Deriv(x, m float64) float64 {
	return 2/(m+eps) - (math.Pi/2)*x*x/((m+eps)*(m+eps)*(m+eps))
}
func (Rayleigh) HasLowerBound() bool { return true }
func (Rayleigh) LowerBound() float64 { return 0 }
func (Rayleigh) HasUpperBound() bool { return false }
func (Rayleigh) UpperBound() float64 { return math.Inf(1) }
func (Rayleigh) Name() string        { return "Rayleigh" }

// Clip restricts m into f's declared feasible region.
func Clip(f Function, m float64) float64 {
	if f.HasLowerBound() && m < f.LowerBound() {
		m = f.LowerBound()
	}
	if f.HasUpperBound() && m > f.UpperBound() {
		m = f.UpperBound()
	}
	return m
}

// ByName resolves the CLI/config loss-function name to a Function,
// failing loudly on an unknown name per the spec's unsupported-
// configuration error class.
func ByName(name string) (Function, error) {
	switch name {
	case "gaussian", "Gaussian":
		return Gaussian{}, nil
	case "poisson", "Poisson":
		return Poisson{}, nil
	case "bernoulli", "Bernoulli":
		return Bernoulli{}, nil
	case "gamma", "Gamma":
		return Gamma{}, nil
	case "rayleigh", "Rayleigh":
		return Rayleigh{}, nil
	default:
		return nil, gcperr.New(gcperr.UnsupportedConfig, "loss: unknown loss function "+name)
	}
}
