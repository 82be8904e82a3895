// Package candle defines the shared in-memory data model produced by the
// live aggregator and the historical resampler: ticks, candles, and
// price-level footprints.
package candle

// Tick is a normalized market-data tick. Optional fields carry a presence
// flag alongside the value because "absent" and "zero" are semantically
// different throughout the aggressor and volume cascades.
type Tick struct {
	Symbol string
	LTP    float64

	// RawTimestamp is the feed's exch_feed_time/last_traded_time value in
	// whatever unit/representation the feed uses; session.NormalizeTimestampToSeconds
	// resolves it to unix seconds.
	RawTimestamp any

	HasLastTradedQty bool
	LastTradedQty    int64

	HasCumVolume bool
	CumVolume    int64

	HasBidAsk bool
	BidPrice  float64
	AskPrice  float64

	HasBookQty bool
	TotBuyQty  float64
	TotSellQty float64

	HasPriceChange bool
	PriceChange    float64

	HasOpenPrice bool
	OpenPrice    float64

	TradeID string
}

// PriceLevel is one row of a footprint ladder.
type PriceLevel struct {
	PriceLevel float64
	BuyVolume  int64
	SellVolume int64
}

// LevelTotals is the accumulator stored per bucket key in a FootprintMap.
type LevelTotals struct {
	Buy  int64
	Sell int64
}

// FootprintMap maps a bucket key (bucket.Key output, rounded to 2 decimals)
// to its accumulated buy/sell totals.
type FootprintMap map[float64]LevelTotals

// Clone returns a deep copy of m.
func (m FootprintMap) Clone() FootprintMap {
	out := make(FootprintMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// BuySellTotals sums buy and sell volume across every level in m.
func (m FootprintMap) BuySellTotals() (buy, sell int64) {
	for _, v := range m {
		buy += v.Buy
		sell += v.Sell
	}
	return buy, sell
}

// Candle is one OHLCV bar with its footprint and per-session cumulative
// bookkeeping.
type Candle struct {
	Symbol string
	Time   int64

	Open  float64
	High  float64
	Low   float64
	Close float64

	Volume  int64
	BuyVol  int64
	SellVol int64
	Delta   int64

	CumDelta  int64
	CumVolume int64

	Footprint []PriceLevel

	// PreOpenAligned reports whether Time was computed via the resampler's
	// epoch-aligned pre-open rule rather than session-anchored alignment.
	// Only set by the historical resampler; the live aggregator never sets
	// it since it anchors every post-open bin to session open directly.
	PreOpenAligned bool
}

// Clone returns a deep copy of c, including its footprint slice.
func (c Candle) Clone() Candle {
	out := c
	if c.Footprint != nil {
		out.Footprint = make([]PriceLevel, len(c.Footprint))
		copy(out.Footprint, c.Footprint)
	}
	return out
}
