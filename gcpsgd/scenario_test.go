package gcpsgd

import (
	"math/rand"
	"testing"

	"github.com/gentengo/gcp/internal/gentensor"
	"github.com/gentengo/gcp/loss"
	"github.com/gentengo/gcp/mttkrp"
)

// TestScenario4Regression runs the literal end-to-end regression scenario:
// a 50x50x50 random sparse tensor at 1% density, a synthetic rank-5
// ground truth, Gaussian loss, plain step, rate=1e-3, epoch_iters=1000,
// maxEpochs=20, seed=1. The driver's acceptance rule keeps fest from
// increasing across accepted epochs; this test asserts that nfails stays
// within 5.
func TestScenario4Regression(t *testing.T) {
	if testing.Short() {
		t.Skip("scenario 4 runs the full 50x50x50/epoch_iters=1000 regression; skipped with -short")
	}
	dims := []int{50, 50, 50}
	rng := rand.New(rand.NewSource(1))
	truth := gentensor.RandomKtensor(rng, dims, 5)
	nnz := gentensor.DensityNNZ(dims, 0.01, 0)
	x, err := gentensor.SparseFromKtensor(rng, truth, nnz)
	if err != nil {
		t.Fatalf("SparseFromKtensor: %v", err)
	}
	x.FillComplete()

	u0 := gentensor.RandomKtensor(rng, dims, 5)

	cfg := DefaultConfig()
	cfg.MaxEpochs = 20
	cfg.EpochIters = 1000
	cfg.Rate = 1e-3
	cfg.Seed = 1
	cfg.MTTKRPAllMethod = mttkrp.AllAtomic

	_, stats, err := Solve(x, u0, loss.Gaussian{}, cfg)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if stats.Fails > 5 {
		t.Fatalf("nfails = %d, want <= 5", stats.Fails)
	}
}

// TestScenario5ADAMParity runs the same setup as scenario 4 with ADAM
// enabled and checks that, after 10 epochs (accepted or rejected), the
// final fest is strictly lower than the plain-step variant's after the
// same 10 epochs.
func TestScenario5ADAMParity(t *testing.T) {
	if testing.Short() {
		t.Skip("scenario 5 runs the full 50x50x50/epoch_iters=1000 regression; skipped with -short")
	}
	dims := []int{50, 50, 50}

	run := func(useADAM bool) float64 {
		rng := rand.New(rand.NewSource(1))
		truth := gentensor.RandomKtensor(rng, dims, 5)
		nnz := gentensor.DensityNNZ(dims, 0.01, 0)
		x, err := gentensor.SparseFromKtensor(rng, truth, nnz)
		if err != nil {
			t.Fatalf("SparseFromKtensor: %v", err)
		}
		x.FillComplete()
		u0 := gentensor.RandomKtensor(rng, dims, 5)

		cfg := DefaultConfig()
		cfg.MaxEpochs = 10
		cfg.EpochIters = 1000
		cfg.Rate = 1e-3
		cfg.Seed = 1
		cfg.MTTKRPAllMethod = mttkrp.AllAtomic
		cfg.UseADAM = useADAM
		cfg.Beta1, cfg.Beta2, cfg.AdamEps = 0.9, 0.999, 1e-8

		_, stats, err := Solve(x, u0, loss.Gaussian{}, cfg)
		if err != nil {
			t.Fatalf("Solve: %v", err)
		}
		return stats.FinalFest
	}

	plainFest := run(false)
	adamFest := run(true)
	if adamFest >= plainFest {
		t.Fatalf("adam fest = %v, want strictly less than plain fest = %v", adamFest, plainFest)
	}
}
