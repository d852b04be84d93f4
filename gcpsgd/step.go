package gcpsgd

import (
	"math"

	"github.com/gentengo/gcp/factormatrix"
	"github.com/gentengo/gcp/ktensor"
)

// adamState carries the first and second raw moment estimates for every
// factor matrix entry, plus the global step count t used for the
// bias-correction terms.
type adamState struct {
	m, v []*factormatrix.FactorMatrix
	t    int
}

func newAdamState(dims []int, rank int) *adamState {
	s := &adamState{
		m: make([]*factormatrix.FactorMatrix, len(dims)),
		v: make([]*factormatrix.FactorMatrix, len(dims)),
	}
	for i, d := range dims {
		s.m[i] = factormatrix.New(d, rank)
		s.v[i] = factormatrix.New(d, rank)
	}
	return s
}

func (s *adamState) clone() *adamState {
	out := &adamState{m: make([]*factormatrix.FactorMatrix, len(s.m)), v: make([]*factormatrix.FactorMatrix, len(s.v)), t: s.t}
	for i := range s.m {
		out.m[i] = s.m[i].Clone()
		out.v[i] = s.v[i].Clone()
	}
	return out
}

func (s *adamState) restore(src *adamState) {
	s.t = src.t
	for i := range s.m {
		copy(s.m[i].Data, src.m[i].Data)
		copy(s.v[i].Data, src.v[i].Data)
	}
}

// plainStep applies u -= rate * g elementwise, mode by mode.
func plainStep(u, g *ktensor.Ktensor, rate float64) {
	for m := range u.U {
		dst := u.U[m].Data
		src := g.U[m].Data
		for i := range dst {
			dst[i] -= rate * src[i]
		}
	}
}

// adamStep applies one ADAM update to u in place using g as the gradient
// Ktensor, advancing s.t by one and updating the moment buffers. Follows
// adam_step = step * sqrt(1-beta2^t) / (1-beta1^t);
// u_i -= adam_step * m_i / sqrt(v_i + eps).
func adamStep(s *adamState, u, g *ktensor.Ktensor, rate, beta1, beta2, eps float64) {
	s.t++
	adamRate := rate * math.Sqrt(1-math.Pow(beta2, float64(s.t))) / (1 - math.Pow(beta1, float64(s.t)))
	for mode := range u.U {
		ud := u.U[mode].Data
		gd := g.U[mode].Data
		md := s.m[mode].Data
		vd := s.v[mode].Data
		for i := range ud {
			md[i] = beta1*md[i] + (1-beta1)*gd[i]
			vd[i] = beta2*vd[i] + (1-beta2)*gd[i]*gd[i]
			ud[i] -= adamRate * md[i] / math.Sqrt(vd[i]+eps)
		}
	}
}
