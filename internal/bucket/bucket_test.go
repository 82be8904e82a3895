package bucket

import "testing"

func TestKeyBucketization(t *testing.T) {
	cases := []struct {
		price      float64
		bucketSize float64
		multiplier int
		want       float64
	}{
		{100.10, 0.25, 1, 100.0},
		{100.24, 0.25, 1, 100.0},
		{100.25, 0.25, 1, 100.25},
		{100.49, 0.25, 1, 100.25},
		{100.0, 0.05, 100, 100.0}, // B = 5
		{101.0, 0.05, 100, 100.0},
		{104.999, 0.05, 100, 100.0},
		{105.0, 0.05, 100, 105.0},
	}
	for _, c := range cases {
		got := Key(c.price, c.bucketSize, c.multiplier)
		if !Equal(got, c.want) {
			t.Fatalf("Key(%v,%v,%v) = %v, want %v", c.price, c.bucketSize, c.multiplier, got, c.want)
		}
	}
}

func TestKeyNonPositiveWidthFallsBackToRound2(t *testing.T) {
	got := Key(123.456, 0, 1)
	if !Equal(got, 123.46) {
		t.Fatalf("got %v, want 123.46", got)
	}
}

func TestEqualTolerance(t *testing.T) {
	if !Equal(100.0, 100.0+5e-7) {
		t.Fatal("expected within tolerance")
	}
	if Equal(100.0, 100.1) {
		t.Fatal("expected not equal")
	}
}
