// Package gcpsgd implements the GCP-SGD driver: stochastic gradient descent
// over a Ktensor model against a user-selected elementwise loss, using the
// sampler package's stratified batches and mttkrp.All as the per-iteration
// gradient kernel.
package gcpsgd

import (
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/gentengo/gcp/internal/gcperr"
	"github.com/gentengo/gcp/ktensor"
	"github.com/gentengo/gcp/loss"
	"github.com/gentengo/gcp/mttkrp"
	"github.com/gentengo/gcp/sampler"
	"github.com/gentengo/gcp/sptensor"
)

// Stats summarizes a completed run for the caller and for the benchmark
// CLI's regression checks.
type Stats struct {
	Epochs   int
	Accepts  int
	Fails    int
	FinalFest float64
	Converged bool // true if the run ended because fest < Tol
}

// gradientTensor builds the sparse tensor whose "values" are the per-sample
// weighted loss derivative w[i] * dLoss/dm(x.val, model(coord)), so that
// mttkrp.All on it against the current model u directly yields the GCP
// gradient Ktensor.
func gradientTensor(b *sampler.Batch, u *ktensor.Ktensor, lf loss.Function) (*sptensor.Sptensor, error) {
	vals := make([]float64, len(b.W))
	for i, coord := range b.X.Subs {
		m := loss.Clip(lf, u.Reconstruct(coord))
		vals[i] = b.W[i] * lf.Deriv(b.X.Vals[i], m)
	}
	return sptensor.New(b.X.Dims, b.X.Subs, vals)
}

// value estimates the expected loss from a sampled (nonzero, zero) batch:
// Σ w[i] * lf.Value(x.val, model(coord)).
func value(b *sampler.Batch, u *ktensor.Ktensor, lf loss.Function) float64 {
	var total float64
	for i, coord := range b.X.Subs {
		m := loss.Clip(lf, u.Reconstruct(coord))
		total += b.W[i] * lf.Value(b.X.Vals[i], m)
	}
	return total
}

// gradient runs one MTTKRP-all sweep over the gradient batch against the
// current model u, producing a Ktensor g with the same shape as u and unit
// weights (the model's λ is already folded into the MTTKRP accumulation).
func gradient(b *sampler.Batch, u *ktensor.Ktensor, lf loss.Function, method mttkrp.AllMethod, opts mttkrp.Options) (*ktensor.Ktensor, error) {
	yg, err := gradientTensor(b, u, lf)
	if err != nil {
		return nil, err
	}
	vs, err := mttkrp.All(yg, u, method, opts)
	if err != nil {
		return nil, err
	}
	g := &ktensor.Ktensor{Weights: make([]float64, u.Rank()), U: vs}
	for i := range g.Weights {
		g.Weights[i] = 1
	}
	return g, nil
}

// Solve runs the GCP-SGD epoch loop described by the driver's algorithm:
// normalize/distribute the initial model, draw a fixed evaluation batch,
// then repeatedly take epoch_iters outer steps (each frozen_iters inner
// steps against the same gradient batch), accepting the epoch if the
// evaluation loss did not increase (a tie is accepted) and rolling back
// (with nuc decayed) otherwise.
func Solve(x *sptensor.Sptensor, u0 *ktensor.Ktensor, lf loss.Function, cfg Config) (*ktensor.Ktensor, Stats, error) {
	if x.NDims() != u0.NDims() {
		return nil, Stats{}, gcperr.New(gcperr.ShapeMismatch, "gcpsgd: tensor/model mode mismatch")
	}

	u := u0.Clone()
	if err := u.Normalize(ktensor.NormTwo); err != nil {
		return nil, Stats{}, err
	}
	if err := u.Distribute(); err != nil {
		return nil, Stats{}, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	evalBatch, err := sampler.EvaluationBatch(x, cfg.NNZSamplesEval, cfg.ZSamplesEval, rng)
	if err != nil {
		return nil, Stats{}, err
	}

	fest := value(evalBatch, u, lf)
	festPrev := fest

	var adam *adamState
	if cfg.UseADAM {
		adam = newAdamState(u.Dims(), u.Rank())
	}

	nuc := 1.0
	stats := Stats{}

	for epoch := 1; epoch <= cfg.MaxEpochs; epoch++ {
		uPrev := u.Clone()
		var adamPrev *adamState
		if cfg.UseADAM {
			adamPrev = adam.clone()
		}

		step := nuc * cfg.Rate
		for it := 0; it < cfg.EpochIters; it++ {
			var batch *sampler.Batch
			if cfg.SemiStratified {
				sb, err := sampler.SemiStratified(x, cfg.NNZSamples, cfg.ZSamples, rng)
				if err != nil {
					return nil, stats, err
				}
				batch = &sb.Batch
			} else {
				batch, err = sampler.Stratified(x, cfg.NNZSamples, cfg.ZSamples, rng)
				if err != nil {
					return nil, stats, err
				}
			}

			for fi := 0; fi < cfg.FrozenIters; fi++ {
				g, err := gradient(batch, u, lf, cfg.MTTKRPAllMethod, cfg.MTTKRPOptions)
				if err != nil {
					return nil, stats, err
				}
				if cfg.UseADAM {
					adamStep(adam, u, g, step, cfg.Beta1, cfg.Beta2, cfg.AdamEps)
				} else {
					plainStep(u, g, step)
				}
			}
		}

		fest = value(evalBatch, u, lf)
		stats.Epochs = epoch

		accepted := fest <= festPrev
		if accepted {
			stats.Accepts++
			festPrev = fest
		} else {
			stats.Fails++
			u.CopyFrom(uPrev)
			if cfg.UseADAM {
				adam.restore(adamPrev)
			}
			nuc *= cfg.Decay
		}

		if cfg.PrintItn > 0 && epoch%cfg.PrintItn == 0 {
			logrus.WithFields(logrus.Fields{
				"epoch":  epoch,
				"f-est":  fest,
				"step":   step,
				"nfails": stats.Fails,
			}).Info("gcpsgd: epoch complete")
		}

		if stats.Fails > cfg.MaxFails {
			break
		}
		tol := cfg.Tol
		if cfg.ToleranceIsRelative {
			tol *= festPrev
		}
		if festPrev < tol {
			stats.Converged = true
			break
		}
	}

	u.Normalize(ktensor.NormTwo)
	u.Arrange()

	stats.FinalFest = festPrev
	return u, stats, nil
}
