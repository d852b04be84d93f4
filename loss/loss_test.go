package loss

import (
	"math"
	"testing"
)

func TestGaussianValueDeriv(t *testing.T) {
	var g Gaussian
	if v := g.Value(3, 1); v != 2 {
		t.Fatalf("Value(3,1) = %v, want 2", v)
	}
	if d := g.Deriv(3, 1); d != -2 {
		t.Fatalf("Deriv(3,1) = %v, want -2", d)
	}
	if g.HasLowerBound() || g.HasUpperBound() {
		t.Fatal("Gaussian should be unbounded")
	}
}

func TestPoissonBounds(t *testing.T) {
	var p Poisson
	if !p.HasLowerBound() || p.LowerBound() != 0 {
		t.Fatal("Poisson should have lower bound 0")
	}
	if p.HasUpperBound() {
		t.Fatal("Poisson should be unbounded above")
	}
}

func TestClip(t *testing.T) {
	var p Poisson
	if got := Clip(p, -5); got != 0 {
		t.Fatalf("Clip(-5) = %v, want 0", got)
	}
	if got := Clip(p, 5); got != 5 {
		t.Fatalf("Clip(5) = %v, want 5", got)
	}
}

func TestGammaDerivMatchesFiniteDifference(t *testing.T) {
	var g Gamma
	const h = 1e-6
	x, m := 2.5, 1.3
	fd := (g.Value(x, m+h) - g.Value(x, m-h)) / (2 * h)
	d := g.Deriv(x, m)
	if diff := d - fd; diff > 1e-4 || diff < -1e-4 {
		t.Fatalf("Gamma.Deriv(%v,%v) = %v, finite difference gives %v", x, m, d, fd)
	}
}

func TestByNameUnknown(t *testing.T) {
	if _, err := ByName("not-a-loss"); err == nil {
		t.Fatal("expected error for unknown loss")
	}
}

func TestByNameRoundTrip(t *testing.T) {
	for _, name := range []string{"gaussian", "poisson", "bernoulli", "gamma", "rayleigh"} {
		f, err := ByName(name)
		if err != nil {
			t.Fatalf("ByName(%q): %v", name, err)
		}
		// value/deriv should not panic or NaN at a representative point.
		v := f.Value(1, 1)
		if math.IsNaN(v) {
			t.Fatalf("%s: Value(1,1) is NaN", name)
		}
	}
}
