package footprint

import (
	"testing"

	"tickcandle/internal/candle"
)

func TestLookupWithToleranceExactAndFuzzy(t *testing.T) {
	m := candle.FootprintMap{100.25: {Buy: 5, Sell: 3}}
	if v, ok := LookupWithTolerance(m, 100.25); !ok || v.Buy != 5 {
		t.Fatalf("exact lookup failed: %+v %v", v, ok)
	}
	if v, ok := LookupWithTolerance(m, 100.2500005); !ok || v.Buy != 5 {
		t.Fatalf("tolerant lookup failed: %+v %v", v, ok)
	}
	if _, ok := LookupWithTolerance(m, 101.0); ok {
		t.Fatal("expected miss")
	}
}

func TestReconcileMapAppliesDeltaToLargestLevel(t *testing.T) {
	m := candle.FootprintMap{
		100.0: {Buy: 10, Sell: 2},
		100.5: {Buy: 1, Sell: 1},
	}
	m = ReconcileMap(m, 15, 4, 100.25, 0.25, 1)
	buy, sell := m.BuySellTotals()
	if buy != 15 || sell != 4 {
		t.Fatalf("totals = %d/%d, want 15/4", buy, sell)
	}
	if m[100.0].Buy != 14 || m[100.0].Sell != 3 {
		t.Fatalf("expected delta applied to largest-volume level 100.0, got %+v", m[100.0])
	}
}

func TestReconcileMapEmptyMapSeedsAtCloseBucket(t *testing.T) {
	m := candle.FootprintMap{}
	m = ReconcileMap(m, 7, 3, 100.1, 0.25, 1)
	if len(m) != 1 {
		t.Fatalf("expected single seeded level, got %d", len(m))
	}
	buy, sell := m.BuySellTotals()
	if buy != 7 || sell != 3 {
		t.Fatalf("totals = %d/%d, want 7/3", buy, sell)
	}
}

func TestBuildSortedDescendingAndConserved(t *testing.T) {
	m := candle.FootprintMap{
		100.0: {Buy: 10, Sell: 5},
		100.5: {Buy: 3, Sell: 2},
	}
	levels := Build(99.9, 100.6, 13, 7, 100.5, 0.25, 1, m)
	if len(levels) == 0 {
		t.Fatal("expected non-empty ladder")
	}
	for i := 1; i < len(levels); i++ {
		if levels[i-1].PriceLevel < levels[i].PriceLevel {
			t.Fatalf("ladder not sorted descending: %v", levels)
		}
	}
	var buy, sell int64
	for _, l := range levels {
		buy += l.BuyVolume
		sell += l.SellVolume
	}
	if buy != 13 || sell != 7 {
		t.Fatalf("ladder totals = %d/%d, want 13/7", buy, sell)
	}
}

func TestBuildEmptyMapOrNonPositiveWidth(t *testing.T) {
	if got := Build(1, 2, 1, 1, 1.5, 0.25, 1, candle.FootprintMap{}); got != nil {
		t.Fatalf("expected nil for empty map, got %v", got)
	}
	m := candle.FootprintMap{1.0: {Buy: 1}}
	if got := Build(1, 2, 1, 0, 1.5, 0, 1, m); got != nil {
		t.Fatalf("expected nil for non-positive width, got %v", got)
	}
}

func TestBuildPathologicallyWideRangeIsCapped(t *testing.T) {
	m := candle.FootprintMap{0.0: {Buy: 1, Sell: 1}}
	levels := Build(0, 100000, 1, 1, 50000, 0.01, 1, m)
	if len(levels) > MaxLadderWidth {
		t.Fatalf("ladder width = %d, want <= %d", len(levels), MaxLadderWidth)
	}
}
