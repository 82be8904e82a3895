package candle

import "testing"

func TestFootprintMapCloneIsIndependent(t *testing.T) {
	m := FootprintMap{1.0: {Buy: 1, Sell: 2}}
	c := m.Clone()
	c[1.0] = LevelTotals{Buy: 99, Sell: 99}
	if m[1.0].Buy != 1 {
		t.Fatal("clone mutation leaked into original map")
	}
}

func TestFootprintMapBuySellTotals(t *testing.T) {
	m := FootprintMap{
		1.0: {Buy: 1, Sell: 2},
		2.0: {Buy: 3, Sell: 4},
	}
	buy, sell := m.BuySellTotals()
	if buy != 4 || sell != 6 {
		t.Fatalf("got %d/%d, want 4/6", buy, sell)
	}
}

func TestCandleCloneDeepCopiesFootprint(t *testing.T) {
	c := Candle{Footprint: []PriceLevel{{PriceLevel: 1.0, BuyVolume: 1}}}
	clone := c.Clone()
	clone.Footprint[0].BuyVolume = 99
	if c.Footprint[0].BuyVolume != 1 {
		t.Fatal("clone mutation leaked into original footprint slice")
	}
}
