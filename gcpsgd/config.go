package gcpsgd

import "github.com/gentengo/gcp/mttkrp"

// Config collects every GCP-SGD hyperparameter named in the spec's driver
// section. Zero-value fields are filled in by DefaultConfig.
type Config struct {
	MaxEpochs   int
	EpochIters  int
	FrozenIters int
	MaxFails    int

	Rate  float64 // initial step size; step = nuc * Rate each epoch
	Decay float64 // nuc *= Decay on a rejected epoch

	Tol                 float64
	ToleranceIsRelative bool // Open Question: implemented as absolute by default

	NNZSamples     int
	ZSamples       int
	NNZSamplesEval int
	ZSamplesEval   int
	SemiStratified bool

	UseADAM bool
	Beta1   float64
	Beta2   float64
	AdamEps float64

	MTTKRPAllMethod mttkrp.AllMethod
	MTTKRPOptions   mttkrp.Options

	Seed int64

	// PrintItn is the epoch interval at which progress is logged; 0
	// disables progress logging.
	PrintItn int
}

// DefaultConfig returns the reference hyperparameters used by the spec's
// end-to-end regression scenarios (4) and (5).
func DefaultConfig() Config {
	return Config{
		MaxEpochs:      20,
		EpochIters:     1000,
		FrozenIters:    1,
		MaxFails:       5,
		Rate:           1e-3,
		Decay:          0.1,
		Tol:            1e-10,
		NNZSamples:     128,
		ZSamples:       128,
		NNZSamplesEval: 1000,
		ZSamplesEval:   1000,
		Beta1:          0.9,
		Beta2:          0.999,
		AdamEps:        1e-8,
		Seed:           1,
		PrintItn:       1,
	}
}
