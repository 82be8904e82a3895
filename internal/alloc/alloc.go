// Package alloc implements exact integer largest-remainder allocation,
// used to restore candle and footprint invariants without floating-point
// drift (spec.md §4.3, §9: "never implement via floats; use rationals or
// cross-multiplied comparisons").
package alloc

// Proportional allocates total as non-negative integers proportional to
// weights using the largest-remainder method. All arithmetic is exact
// integer arithmetic: since every weight shares the same allocation total
// and sum, each share's fractional remainder has the same denominator
// (sum(weights)), so remainders can be compared directly as integer
// numerators without needing cross-multiplication across denominators.
//
// If weights is empty, returns nil. If total is 0, returns zeros. If the
// weights all sum to 0, the total is split as evenly as possible with the
// remainder going to the lowest indices (deterministic).
func Proportional(total uint64, weights []uint64) []uint64 {
	n := len(weights)
	if n == 0 {
		return nil
	}
	out := make([]uint64, n)
	if total == 0 {
		return out
	}

	var sum uint64
	for _, w := range weights {
		sum += w
	}

	if sum == 0 {
		base := total / uint64(n)
		rem := total - base*uint64(n)
		for i := range out {
			out[i] = base
			if uint64(i) < rem {
				out[i]++
			}
		}
		return out
	}

	remainders := make([]uint64, n)
	var allocated uint64
	for i, w := range weights {
		prod := total * w
		out[i] = prod / sum
		remainders[i] = prod % sum
		allocated += out[i]
	}

	remaining := total - allocated
	// Distribute `remaining` units to the indices with the largest
	// remainder numerators (same denominator `sum` for every index, so
	// direct numerator comparison is exact), ties broken by lower index.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	// Simple stable selection: insertion-sort order by (remainder desc, index asc).
	for i := 1; i < n; i++ {
		j := i
		for j > 0 && less(order[j], order[j-1], remainders) {
			order[j], order[j-1] = order[j-1], order[j]
			j--
		}
	}

	for i := uint64(0); i < remaining; i++ {
		out[order[i]]++
	}

	return out
}

// less reports whether index a should sort before index b: larger
// remainder first, lower index breaking ties.
func less(a, b int, remainders []uint64) bool {
	if remainders[a] != remainders[b] {
		return remainders[a] > remainders[b]
	}
	return a < b
}

// ProportionalSigned distributes a possibly negative delta proportionally
// across weights: it allocates |delta| with Proportional and restores the
// sign on every element.
func ProportionalSigned(delta int64, weights []uint64) []int64 {
	if delta == 0 {
		return make([]int64, len(weights))
	}
	sign := int64(1)
	magnitude := delta
	if delta < 0 {
		sign = -1
		magnitude = -delta
	}
	unsigned := Proportional(uint64(magnitude), weights)
	out := make([]int64, len(unsigned))
	for i, v := range unsigned {
		out[i] = sign * int64(v)
	}
	return out
}
