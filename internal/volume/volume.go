// Package volume extracts a single trade's incremental volume from a
// tick's cumulative session volume, tolerating resets, rollovers, and
// implausible jumps by falling back to the tick's own last-traded quantity.
package volume

import "sync"

// MaxPlausibleDelta is the largest single-tick cumulative-volume delta
// accepted before falling back to the tick's own last-traded quantity.
const MaxPlausibleDelta = 2_000_000

// MaxTradeVolume caps the resulting trade volume; larger values are
// rejected by the caller rather than fed into the aggregator.
const MaxTradeVolume = 5_000_000

// Input carries the fields Extract needs from a tick.
type Input struct {
	LastTradedQty    int64
	HasLastTradedQty bool
	CumVolume        int64
	HasCumVolume     bool
}

// Extractor tracks, per symbol, the last cumulative session volume it has
// already converted into trade volume. It is safe for concurrent use.
type Extractor struct {
	mu                  sync.Mutex
	lastCumVolume       map[string]int64
	lastProcessedCumVol map[string]int64
}

// NewExtractor returns a ready-to-use Extractor.
func NewExtractor() *Extractor {
	return &Extractor{
		lastCumVolume:       make(map[string]int64),
		lastProcessedCumVol: make(map[string]int64),
	}
}

// Extract returns the incremental trade volume represented by in for
// symbol, updating the extractor's per-symbol cumulative-volume state.
//
// Precedence:
//  1. If the tick carries a cumulative session volume, prefer the delta
//     against the last cumulative volume seen for this symbol.
//  2. On the first observation, on a detected reset/rollover (cur < last),
//     or on an implausible delta (<=0 or > MaxPlausibleDelta), fall back to
//     the tick's own last-traded quantity, or 0 if that is absent too.
//  3. If the tick carries no cumulative volume at all, use the last-traded
//     quantity directly.
func (e *Extractor) Extract(symbol string, in Input) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	rawTrade := int64(0)
	if in.HasLastTradedQty && in.LastTradedQty > 0 {
		rawTrade = in.LastTradedQty
	}

	if !in.HasCumVolume || in.CumVolume < 0 {
		return rawTrade
	}

	cur := in.CumVolume
	e.lastCumVolume[symbol] = cur

	last, ok := e.lastProcessedCumVol[symbol]
	if !ok {
		e.lastProcessedCumVol[symbol] = cur
		return rawTrade
	}

	if cur < last {
		e.lastProcessedCumVol[symbol] = cur
		return rawTrade
	}

	delta := cur - last
	if delta <= 0 || delta > MaxPlausibleDelta {
		if rawTrade > 0 {
			e.lastProcessedCumVol[symbol] = cur
			return rawTrade
		}
		return 0
	}

	e.lastProcessedCumVol[symbol] = cur
	return delta
}

// LastCumVolume returns the last cumulative session volume observed for
// symbol, and whether any has been observed yet.
func (e *Extractor) LastCumVolume(symbol string) (int64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.lastCumVolume[symbol]
	return v, ok
}

// Reset clears all tracked state for symbol, used when a symbol's
// aggregator state is cleared.
func (e *Extractor) Reset(symbol string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.lastCumVolume, symbol)
	delete(e.lastProcessedCumVol, symbol)
}

// Seed directly sets the last-seen and last-processed cumulative volume for
// symbol, bypassing the normal delta computation. Used when a live
// aggregator is seeded from a historical candle that exposes a cumulative
// volume snapshot, so the next live tick's delta is computed against the
// seed rather than being misread as a huge jump from zero.
func (e *Extractor) Seed(symbol string, cumVolume int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastCumVolume[symbol] = cumVolume
	e.lastProcessedCumVol[symbol] = cumVolume
}
