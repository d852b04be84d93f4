package ktensor

import (
	"math"
	"testing"

	"github.com/gentengo/gcp/sptensor"
)

// buildScenario1 constructs the literal end-to-end inner-product scenario
// from the spec: a 4x2x3 sparse tensor and an R=2 Ktensor.
func buildScenario1(t *testing.T) (*sptensor.Sptensor, *Ktensor) {
	t.Helper()
	dims := []int{4, 2, 3}
	subs := [][]int{{2, 0, 0}, {1, 1, 1}, {3, 0, 2}, {0, 1, 2}}
	vals := []float64{1, 2, 3, 4}
	x, err := sptensor.New(dims, subs, vals)
	if err != nil {
		t.Fatalf("sptensor.New: %v", err)
	}
	x.FillComplete()

	u := New(dims, 2)
	u.Weights[0] = 1
	u.Weights[1] = 2
	u.U[0].Row(2)[0] = 1
	u.U[0].Row(1)[0] = -1
	u.U[0].Row(3)[1] = 0.3
	u.U[1].Row(0)[0] = 1
	u.U[1].Row(0)[1] = 0.3
	u.U[2].Row(0)[0] = 1
	u.U[2].Row(2)[1] = 0.3
	return x, u
}

func TestInnerProdScenario1(t *testing.T) {
	x, u := buildScenario1(t)
	got, err := u.InnerProd(x)
	if err != nil {
		t.Fatalf("InnerProd: %v", err)
	}
	if math.Abs(got-1.162) > 1e-9 {
		t.Fatalf("InnerProd = %v, want 1.162", got)
	}

	u.Weights[0] = 3
	u.Weights[1] = 1
	got2, err := u.InnerProd(x)
	if err != nil {
		t.Fatalf("InnerProd: %v", err)
	}
	if math.Abs(got2-3.081) > 1e-9 {
		t.Fatalf("InnerProd (lambda'=(3,1)) = %v, want 3.081", got2)
	}
}

func TestNormalizeRoundTripsReconstruction(t *testing.T) {
	dims := []int{2, 2}
	u := New(dims, 2)
	for m := range u.U {
		for i := 0; i < dims[m]; i++ {
			row := u.U[m].Row(i)
			row[0] = float64(i + 1)
			row[1] = float64(i + 2)
		}
	}
	coords := [][]int{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	pre := make([]float64, len(coords))
	for i, c := range coords {
		pre[i] = u.Reconstruct(c)
	}

	if err := u.Normalize(NormTwo); err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	for i, c := range coords {
		post := u.Reconstruct(c)
		if math.Abs(post-pre[i]) > 1e-9 {
			t.Fatalf("Reconstruct(%v) changed after Normalize: %v -> %v", c, pre[i], post)
		}
	}
}

func TestDistributeThenNormalizeIsConsistent(t *testing.T) {
	dims := []int{3}
	u := New(dims, 1)
	u.Weights[0] = 5
	if err := u.Distribute(); err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	if u.Weights[0] != 1 {
		t.Fatalf("Weights[0] = %v after Distribute, want 1", u.Weights[0])
	}
	if !u.IsConsistent() {
		t.Fatal("expected consistent Ktensor")
	}
}

func TestArrangeSortsByDecreasingWeight(t *testing.T) {
	dims := []int{2}
	u := New(dims, 3)
	u.Weights[0] = 1
	u.Weights[1] = -5
	u.Weights[2] = 2
	u.U[0].Row(0)[0] = 10
	u.U[0].Row(0)[1] = 20
	u.U[0].Row(0)[2] = 30
	u.Arrange()
	if math.Abs(u.Weights[0]) != 5 || math.Abs(u.Weights[1]) != 2 || math.Abs(u.Weights[2]) != 1 {
		t.Fatalf("Weights after Arrange = %v, want magnitudes [5 2 1]", u.Weights)
	}
	if u.U[0].Row(0)[0] != 20 {
		t.Fatalf("U[0] column 0 after Arrange = %v, want 20 (paired with weight -5)", u.U[0].Row(0)[0])
	}
}
