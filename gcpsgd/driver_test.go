package gcpsgd

import (
	"math/rand"
	"testing"

	"github.com/gentengo/gcp/ktensor"
	"github.com/gentengo/gcp/loss"
	"github.com/gentengo/gcp/mttkrp"
	"github.com/gentengo/gcp/sptensor"
)

func diagonalTensor(t *testing.T, n int) *sptensor.Sptensor {
	t.Helper()
	dims := []int{n, n, n}
	var subs [][]int
	var vals []float64
	for i := 0; i < n; i++ {
		subs = append(subs, []int{i, i, i})
		vals = append(vals, 2.0)
	}
	x, err := sptensor.New(dims, subs, vals)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	x.FillComplete()
	return x
}

func randomKtensor(rng *rand.Rand, dims []int, r int) *ktensor.Ktensor {
	u := ktensor.New(dims, r)
	for m := range u.U {
		for i := range u.U[m].Data {
			u.U[m].Data[i] = rng.Float64()
		}
	}
	return u
}

func TestSolvePlainStepRuns(t *testing.T) {
	x := diagonalTensor(t, 6)
	rng := rand.New(rand.NewSource(3))
	u0 := randomKtensor(rng, x.Dims, 2)

	cfg := DefaultConfig()
	cfg.MaxEpochs = 5
	cfg.EpochIters = 20
	cfg.NNZSamples = 4
	cfg.ZSamples = 4
	cfg.NNZSamplesEval = 6
	cfg.ZSamplesEval = 10
	cfg.MTTKRPAllMethod = mttkrp.AllAtomic

	_, stats, err := Solve(x, u0, loss.Gaussian{}, cfg)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if stats.Epochs == 0 {
		t.Fatal("expected at least one epoch to run")
	}
	if stats.Fails > cfg.MaxFails+1 {
		t.Fatalf("fails = %d, want <= %d", stats.Fails, cfg.MaxFails+1)
	}
}

func TestSolveADAMRuns(t *testing.T) {
	x := diagonalTensor(t, 6)
	rng := rand.New(rand.NewSource(3))
	u0 := randomKtensor(rng, x.Dims, 2)

	cfg := DefaultConfig()
	cfg.MaxEpochs = 5
	cfg.EpochIters = 20
	cfg.NNZSamples = 4
	cfg.ZSamples = 4
	cfg.NNZSamplesEval = 6
	cfg.ZSamplesEval = 10
	cfg.UseADAM = true
	cfg.MTTKRPAllMethod = mttkrp.AllAtomic

	u, stats, err := Solve(x, u0, loss.Gaussian{}, cfg)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if !u.IsConsistent() {
		t.Fatal("final Ktensor is not consistent")
	}
	if stats.Epochs == 0 {
		t.Fatal("expected at least one epoch to run")
	}
}

func TestSolveRejectsShapeMismatch(t *testing.T) {
	x := diagonalTensor(t, 4)
	u0 := ktensor.New([]int{4, 4}, 2)
	_, _, err := Solve(x, u0, loss.Gaussian{}, DefaultConfig())
	if err == nil {
		t.Fatal("expected shape mismatch error")
	}
}
