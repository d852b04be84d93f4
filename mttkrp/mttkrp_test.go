package mttkrp

import (
	"math"
	"runtime"
	"testing"

	"github.com/gentengo/gcp/ktensor"
	"github.com/gentengo/gcp/sptensor"
)

func buildScenario2(t *testing.T, extra bool) (*sptensor.Sptensor, *ktensor.Ktensor) {
	t.Helper()
	dims := []int{2, 3, 4}
	subs := [][]int{{0, 0, 0}}
	vals := []float64{1}
	if extra {
		subs = append(subs, []int{1, 2, 3})
		vals = append(vals, 1)
	}
	x, err := sptensor.New(dims, subs, vals)
	if err != nil {
		t.Fatalf("sptensor.New: %v", err)
	}
	x.FillComplete()

	u := ktensor.New(dims, 1)
	copy(u.U[0].Row(0), []float64{10})
	copy(u.U[0].Row(1), []float64{11})
	copy(u.U[1].Row(0), []float64{12})
	copy(u.U[1].Row(1), []float64{13})
	copy(u.U[1].Row(2), []float64{14})
	copy(u.U[2].Row(0), []float64{15})
	copy(u.U[2].Row(1), []float64{16})
	copy(u.U[2].Row(2), []float64{17})
	copy(u.U[2].Row(3), []float64{18})
	return x, u
}

func assertColumn(t *testing.T, got []float64, want []float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("V = %v, want %v", got, want)
		}
	}
}

func columnOf(v interface{ Row(int) []float64 }, rows int) []float64 {
	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = v.Row(i)[0]
	}
	return out
}

func TestMTTKRPScenario2SingleNonzero(t *testing.T) {
	x, u := buildScenario2(t, false)
	v, err := MTTKRP(x, u, 0, Single, Options{})
	if err != nil {
		t.Fatalf("MTTKRP: %v", err)
	}
	assertColumn(t, columnOf(v, 2), []float64{180, 0})
}

func TestMTTKRPScenario2TwoNonzeros(t *testing.T) {
	x, u := buildScenario2(t, true)

	v0, err := MTTKRP(x, u, 0, Single, Options{})
	if err != nil {
		t.Fatalf("mode0: %v", err)
	}
	assertColumn(t, columnOf(v0, 2), []float64{180, 252})

	v1, err := MTTKRP(x, u, 1, Single, Options{})
	if err != nil {
		t.Fatalf("mode1: %v", err)
	}
	assertColumn(t, columnOf(v1, 3), []float64{150, 0, 198})

	v2, err := MTTKRP(x, u, 2, Single, Options{})
	if err != nil {
		t.Fatalf("mode2: %v", err)
	}
	assertColumn(t, columnOf(v2, 4), []float64{120, 0, 0, 154})
}

func TestMTTKRPVariantsAgree(t *testing.T) {
	x, u := buildScenario2(t, true)
	x.FillComplete()

	ref, err := Reference(x, u, 0)
	if err != nil {
		t.Fatalf("Reference: %v", err)
	}

	for _, m := range []Method{Single, Atomic, Duplicated, Perm} {
		v, err := MTTKRP(x, u, 0, m, Options{})
		if err != nil {
			t.Fatalf("%v: %v", m, err)
		}
		for i := range ref.Data {
			if math.Abs(ref.Data[i]-v.Data[i]) > 1e3*2.220446049250313e-16*(1+math.Abs(ref.Data[i])) {
				t.Fatalf("%v MTTKRP result differs from reference at %d: got %v want %v", m, i, v.Data[i], ref.Data[i])
			}
		}
	}
}

// TestMTTKRPPermMultiRowTileMatchesReference exercises a worker tile that
// starts mid-row, accumulates several nonzeros of that row, then transitions
// to further rows strictly inside the tile (not at its last element) —
// the case mttkrpPerm's atomic-write bookkeeping must still get right.
func TestMTTKRPPermMultiRowTileMatchesReference(t *testing.T) {
	old := runtime.GOMAXPROCS(2)
	defer runtime.GOMAXPROCS(old)

	// 7 rows x 9 nonzeros = 63 nonzeros over 2 workers gives tiles of 32:
	// the second tile starts at nonzero 32, in the middle of row 3.
	dims := []int{7, 3, 3}
	var subs [][]int
	var vals []float64
	v := 1.0
	for row := 0; row < dims[0]; row++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				subs = append(subs, []int{row, j, k})
				vals = append(vals, v)
				v++
			}
		}
	}
	x, err := sptensor.New(dims, subs, vals)
	if err != nil {
		t.Fatalf("sptensor.New: %v", err)
	}
	x.FillComplete()

	u := ktensor.New(dims, 2)
	seed := 1.0
	for _, fm := range u.U {
		for i := 0; i < fm.Rows; i++ {
			row := fm.Row(i)
			for j := range row {
				row[j] = seed
				seed++
			}
		}
	}

	ref, err := Reference(x, u, 0)
	if err != nil {
		t.Fatalf("Reference: %v", err)
	}
	got, err := MTTKRP(x, u, 0, Perm, Options{})
	if err != nil {
		t.Fatalf("Perm: %v", err)
	}
	for i := range ref.Data {
		if math.Abs(ref.Data[i]-got.Data[i]) > 1e3*2.220446049250313e-16*(1+math.Abs(ref.Data[i])) {
			t.Fatalf("Perm result differs from reference at %d: got %v want %v", i, got.Data[i], ref.Data[i])
		}
	}
}

func TestMTTKRPPermWithoutPermutationErrors(t *testing.T) {
	dims := []int{2, 2}
	x, err := sptensor.New(dims, [][]int{{0, 0}}, []float64{1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	u := ktensor.New(dims, 1)
	_, err = MTTKRP(x, u, 0, Perm, Options{})
	if err == nil {
		t.Fatal("expected error requesting Perm without createPermutation")
	}
}

func TestMTTKRPPermFallsBackWhenConfigured(t *testing.T) {
	dims := []int{2, 2}
	x, err := sptensor.New(dims, [][]int{{0, 0}}, []float64{1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	u := ktensor.New(dims, 1)
	_, err = MTTKRP(x, u, 0, Perm, Options{FallbackOnMissingPerm: true})
	if err != nil {
		t.Fatalf("expected fallback to Atomic, got error: %v", err)
	}
}

func TestMTTKRPZeroNNZProducesZero(t *testing.T) {
	dims := []int{2, 2}
	x, err := sptensor.New(dims, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	x.FillComplete()
	u := ktensor.New(dims, 2)
	v, err := MTTKRP(x, u, 0, Atomic, Options{})
	if err != nil {
		t.Fatalf("MTTKRP: %v", err)
	}
	for _, d := range v.Data {
		if d != 0 {
			t.Fatalf("expected all-zero output on empty tensor, got %v", v.Data)
		}
	}
}
