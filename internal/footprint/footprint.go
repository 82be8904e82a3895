// Package footprint builds and reconciles the price-level buy/sell ladder
// attached to each candle (spec.md §4.7's footprint block and §4.8).
package footprint

import (
	"log"
	"math"
	"sort"

	"tickcandle/internal/alloc"
	"tickcandle/internal/bucket"
	"tickcandle/internal/candle"
)

// MaxLadderWidth caps the number of price levels emitted for one candle.
// Pathologically wide [low, high] ranges are centered into a window of
// this width instead of emitting every level.
const MaxLadderWidth = 5000

// LookupWithTolerance looks up key in m, first by exact match and then by
// scanning for any key within bucket.Tolerance. Exact match is attempted
// first since it is the common case and avoids an O(n) scan for keys
// produced by bucket.Key, which always compare exactly against themselves.
func LookupWithTolerance(m candle.FootprintMap, key float64) (candle.LevelTotals, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if bucket.Equal(k, key) {
			return v, true
		}
	}
	return candle.LevelTotals{}, false
}

// ReconcileMap restores invariant I2 (sum of footprint buy/sell equals the
// candle's buy_vol/sell_vol) after a candle's totals have changed. It
// applies any shortfall or surplus to the single bucket holding the most
// volume, preserving the footprint's shape instead of spraying the delta
// across every level (which would distort the point-of-control read).
func ReconcileMap(m candle.FootprintMap, buyVol, sellVol int64, closePrice, bucketSize float64, multiplier int) candle.FootprintMap {
	curBuy, curSell := m.BuySellTotals()
	dBuy := buyVol - curBuy
	dSell := sellVol - curSell

	if dBuy == 0 && dSell == 0 {
		if len(m) == 0 {
			key := bucket.Key(closePrice, bucketSize, multiplier)
			m[key] = candle.LevelTotals{Buy: buyVol, Sell: sellVol}
		}
		return m
	}

	if len(m) == 0 {
		key := bucket.Key(closePrice, bucketSize, multiplier)
		m[key] = candle.LevelTotals{Buy: buyVol, Sell: sellVol}
		return m
	}

	targetKey := maxVolumeKey(m)
	lvl := m[targetKey]
	lvl.Buy = clampNonNegative(lvl.Buy + dBuy)
	lvl.Sell = clampNonNegative(lvl.Sell + dSell)
	m[targetKey] = lvl
	return m
}

func maxVolumeKey(m candle.FootprintMap) float64 {
	var bestKey float64
	var bestVol int64 = -1
	first := true
	for k, v := range m {
		total := v.Buy + v.Sell
		if first || total > bestVol || (total == bestVol && k > bestKey) {
			bestKey = k
			bestVol = total
			first = false
		}
	}
	return bestKey
}

func clampNonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

// Build produces the sorted, reconciled price-level ladder for a candle
// spanning [low, high], looking up accumulated volume from m and
// distributing any residual against (buyVol, sellVol) via exact integer
// proportional allocation (spec.md §4.8).
func Build(low, high float64, buyVol, sellVol int64, closePrice, bucketSize float64, multiplier int, m candle.FootprintMap) []candle.PriceLevel {
	width := bucket.Width(bucketSize, multiplier)
	if width <= 0 || len(m) == 0 {
		return nil
	}

	minIdx := int64(math.Floor(low / width))
	maxIdx := int64(math.Floor(high / width))
	if maxIdx < minIdx {
		minIdx, maxIdx = maxIdx, minIdx
	}
	n := maxIdx - minIdx + 1

	if n > MaxLadderWidth {
		log.Printf("footprint: ladder width %d exceeds %d, emitting a centered window", n, MaxLadderWidth)
		mid := (minIdx + maxIdx) / 2
		half := int64(MaxLadderWidth / 2)
		minIdx = mid - half
		maxIdx = mid + half - 1
		n = MaxLadderWidth
	}

	levels := make([]candle.PriceLevel, 0, n)
	for idx := minIdx; idx <= maxIdx; idx++ {
		key := round2(float64(idx) * width)
		entry, _ := LookupWithTolerance(m, key)
		levels = append(levels, candle.PriceLevel{
			PriceLevel: key,
			BuyVolume:  entry.Buy,
			SellVolume: entry.Sell,
		})
	}

	sort.Slice(levels, func(i, j int) bool {
		return levels[i].PriceLevel > levels[j].PriceLevel
	})

	reconcileLadder(levels, buyVol, sellVol)
	return levels
}

// reconcileLadder adjusts levels in place so that the sums of BuyVolume and
// SellVolume exactly equal buyVol and sellVol, distributing the deltas
// proportionally to each level's existing volume share and pushing any
// final residual onto the single largest-volume level.
func reconcileLadder(levels []candle.PriceLevel, buyVol, sellVol int64) {
	if len(levels) == 0 {
		return
	}

	weights := make([]uint64, len(levels))
	var curBuy, curSell int64
	for i, lvl := range levels {
		weights[i] = uint64(lvl.BuyVolume + lvl.SellVolume)
		curBuy += lvl.BuyVolume
		curSell += lvl.SellVolume
	}

	dBuy := buyVol - curBuy
	dSell := sellVol - curSell

	buyAdj := alloc.ProportionalSigned(dBuy, weights)
	sellAdj := alloc.ProportionalSigned(dSell, weights)

	for i := range levels {
		levels[i].BuyVolume = clampNonNegative(levels[i].BuyVolume + buyAdj[i])
		levels[i].SellVolume = clampNonNegative(levels[i].SellVolume + sellAdj[i])
	}

	residualBuy := buyVol - sumBuy(levels)
	residualSell := sellVol - sumSell(levels)
	if residualBuy == 0 && residualSell == 0 {
		return
	}

	idx := largestVolumeIndex(levels)
	levels[idx].BuyVolume = clampNonNegative(levels[idx].BuyVolume + residualBuy)
	levels[idx].SellVolume = clampNonNegative(levels[idx].SellVolume + residualSell)
}

func sumBuy(levels []candle.PriceLevel) int64 {
	var s int64
	for _, l := range levels {
		s += l.BuyVolume
	}
	return s
}

func sumSell(levels []candle.PriceLevel) int64 {
	var s int64
	for _, l := range levels {
		s += l.SellVolume
	}
	return s
}

func largestVolumeIndex(levels []candle.PriceLevel) int {
	best := 0
	var bestVol int64 = -1
	for i, l := range levels {
		total := l.BuyVolume + l.SellVolume
		if total > bestVol {
			bestVol = total
			best = i
		}
	}
	return best
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
