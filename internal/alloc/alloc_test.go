package alloc

import "testing"

func sum(xs []uint64) uint64 {
	var s uint64
	for _, x := range xs {
		s += x
	}
	return s
}

func TestProportionalScenarioS6(t *testing.T) {
	got := Proportional(10, []uint64{1, 1, 1})
	want := []uint64{4, 3, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestProportionalSumsToTotal(t *testing.T) {
	cases := [][]uint64{
		{1, 2, 3, 4},
		{0, 0, 5},
		{7},
		{0, 0, 0},
		{100, 1},
	}
	for _, weights := range cases {
		for _, total := range []uint64{0, 1, 10, 999} {
			got := Proportional(total, weights)
			if got := sum(got); got != total {
				t.Fatalf("weights=%v total=%d: sum=%d", weights, total, got)
			}
		}
	}
}

func TestProportionalEvenSplitWhenWeightsZero(t *testing.T) {
	got := Proportional(10, []uint64{0, 0, 0})
	want := []uint64{4, 3, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestProportionalEmptyWeights(t *testing.T) {
	if got := Proportional(10, nil); got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}

func TestProportionalDeterministic(t *testing.T) {
	weights := []uint64{3, 5, 2, 10}
	a := Proportional(37, weights)
	b := Proportional(37, weights)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("non-deterministic: %v vs %v", a, b)
		}
	}
}

func TestProportionalEachShareBoundedByCeil(t *testing.T) {
	total := uint64(37)
	weights := []uint64{3, 5, 2, 10}
	s := sum(weights)
	got := Proportional(total, weights)
	for i, w := range weights {
		ceilShare := (total*w + s - 1) / s
		if got[i] > ceilShare {
			t.Fatalf("index %d: %d exceeds ceil share %d", i, got[i], ceilShare)
		}
	}
}

func TestProportionalSigned(t *testing.T) {
	got := ProportionalSigned(-10, []uint64{1, 1, 1})
	want := []int64{-4, -3, -3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	zero := ProportionalSigned(0, []uint64{1, 2, 3})
	for _, v := range zero {
		if v != 0 {
			t.Fatalf("expected all zeros, got %v", zero)
		}
	}
}
