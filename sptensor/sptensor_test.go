package sptensor

import "testing"

func fourByTwoByThree(t *testing.T) *Sptensor {
	t.Helper()
	dims := []int{4, 2, 3}
	subs := [][]int{
		{2, 0, 0},
		{1, 1, 1},
		{3, 0, 2},
		{0, 1, 2},
	}
	vals := []float64{1, 2, 3, 4}
	s, err := New(dims, subs, vals)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestFillCompleteRowPtrContract(t *testing.T) {
	s := fourByTwoByThree(t)
	s.FillComplete()

	for m := 0; m < s.NDims(); m++ {
		for i := 0; i < s.Dims[m]; i++ {
			for _, idx := range s.Row(m, i) {
				if s.Subs[idx][m] != i {
					t.Fatalf("mode %d row %d: nonzero %d has coord %d", m, i, idx, s.Subs[idx][m])
				}
			}
		}
		// Every nonzero index appears exactly once across all rows of mode m.
		seen := make(map[int]bool)
		for i := 0; i < s.Dims[m]; i++ {
			for _, idx := range s.Row(m, i) {
				if seen[idx] {
					t.Fatalf("mode %d: nonzero %d counted twice", m, idx)
				}
				seen[idx] = true
			}
		}
		if len(seen) != s.NNZ() {
			t.Fatalf("mode %d: row partition covers %d of %d nonzeros", m, len(seen), s.NNZ())
		}
	}
}

func TestNewRejectsOutOfRangeCoordinate(t *testing.T) {
	_, err := New([]int{2, 2}, [][]int{{0, 2}}, []float64{1})
	if err == nil {
		t.Fatal("expected error for out-of-range coordinate")
	}
}

func TestFillCompleteDoesNotDeduplicate(t *testing.T) {
	dims := []int{2, 2}
	subs := [][]int{{0, 0}, {0, 0}}
	vals := []float64{1, 2}
	s, err := New(dims, subs, vals)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.FillComplete()
	if s.NNZ() != 2 {
		t.Fatalf("expected duplicate coordinates preserved, got NNZ=%d", s.NNZ())
	}
	row := s.Row(0, 0)
	if len(row) != 2 {
		t.Fatalf("expected both duplicates in row 0 of mode 0, got %d", len(row))
	}
}

func TestNumel(t *testing.T) {
	s := fourByTwoByThree(t)
	if s.Numel() != 4*2*3 {
		t.Fatalf("Numel() = %d, want %d", s.Numel(), 4*2*3)
	}
}
