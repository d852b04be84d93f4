package sampler

import "math/rand"

// RNGPool hands out an exclusive *rand.Rand to each worker goroutine for
// the duration of one sampling call and reclaims it afterward. No
// generator is ever read from concurrently by two goroutines — each
// worker checks one out at kernel entry and returns it at exit, mirroring
// the ownership discipline the design notes require of the RNG state.
type RNGPool struct {
	states chan *rand.Rand
}

// NewRNGPool seeds n independent generators, deterministically derived
// from seed so a run is reproducible regardless of how many workers
// happen to be scheduled.
func NewRNGPool(seed int64, n int) *RNGPool {
	if n < 1 {
		n = 1
	}
	root := rand.New(rand.NewSource(seed))
	p := &RNGPool{states: make(chan *rand.Rand, n)}
	for i := 0; i < n; i++ {
		p.states <- rand.New(rand.NewSource(root.Int63()))
	}
	return p
}

// Acquire checks out one generator, blocking if every generator is
// currently in use.
func (p *RNGPool) Acquire() *rand.Rand {
	return <-p.states
}

// Release returns a generator previously obtained from Acquire.
func (p *RNGPool) Release(r *rand.Rand) {
	p.states <- r
}
