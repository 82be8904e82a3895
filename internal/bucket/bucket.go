// Package bucket implements the floor-based price quantization shared by
// the live aggregator's footprint map and the historical resampler.
package bucket

import "math"

// Tolerance is the absolute tolerance used wherever a bucket key produced
// by Key is looked up in a map that may also hold keys seeded from a
// different rounding path (spec.md §4.2, Open Question (b)).
const Tolerance = 1e-6

// Width returns the effective bucket width for a (bucketSize, multiplier)
// pair.
func Width(bucketSize float64, multiplier int) float64 {
	return bucketSize * float64(multiplier)
}

// Key quantizes price into its discrete price-level bucket: a single floor
// division by the bucket width followed by a single rounding to 2 decimals,
// to eliminate double-quantization bias (spec.md §4.2). If the bucket width
// is non-positive, price is simply rounded to 2 decimals.
func Key(price, bucketSize float64, multiplier int) float64 {
	width := Width(bucketSize, multiplier)
	if width <= 0 {
		return round2(price)
	}
	idx := math.Floor(price / width)
	return round2(idx * width)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Equal reports whether two bucket keys refer to the same price level
// within Tolerance.
func Equal(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < Tolerance
}
