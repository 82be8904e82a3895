// Package aggregator implements the per-(symbol, timeframe, bucket_size,
// multiplier) stateful tick-to-candle engine: the live aggregator, its
// process-wide registry, and the historical seeding bridge.
package aggregator

import (
	"math"
	"sync"

	"tickcandle/internal/aggressor"
	"tickcandle/internal/alloc"
	"tickcandle/internal/bucket"
	"tickcandle/internal/candle"
	"tickcandle/internal/footprint"
	"tickcandle/internal/session"
	"tickcandle/internal/volume"
)

// MaxTradeVolume is the hard per-tick cap enforced before classification.
const MaxTradeVolume = 5_000_000

// RecentTradeRingSize bounds the per-instance dedup ring.
const RecentTradeRingSize = 200

// Config describes one aggregator slot.
type Config struct {
	Timeframe  string
	BucketSize float64
	Multiplier int
}

func (c Config) intervalSeconds() int64 {
	return session.IntervalSeconds(c.Timeframe)
}

func (c Config) bucketWidth() float64 {
	return bucket.Width(c.BucketSize, c.Multiplier)
}

type dedupKey struct {
	ts      int64
	ltp     float64
	vol     int64
	buy     int64
	sell    int64
	tradeID string
}

// Instance is a single-symbol, single-timeframe tick-to-candle state
// machine. Its exported methods take an internal mutex, so calls for one
// slot are serialized even when made from several goroutines.
type Instance struct {
	mu sync.Mutex

	symbol string
	cfg    Config
	clock  *session.Clock
	vol    *volume.Extractor

	current      *candle.Candle
	footprintMap candle.FootprintMap

	ring      []dedupKey
	ringSet   map[dedupKey]int
	ringNext  int
	ringCount int

	sessionCumDelta   int64
	hasLastTradingDay bool
	lastTradingDay    int64
}

// NewInstance constructs an aggregator for one (symbol, timeframe,
// bucket_size, multiplier) slot.
func NewInstance(symbol string, cfg Config, clock *session.Clock) *Instance {
	return &Instance{
		symbol:  symbol,
		cfg:     cfg,
		clock:   clock,
		vol:     volume.NewExtractor(),
		ring:    make([]dedupKey, RecentTradeRingSize),
		ringSet: make(map[dedupKey]int),
	}
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// pushDedup reports whether key has already been seen (within the ring
// window) and records it if not.
func (inst *Instance) pushDedup(key dedupKey) bool {
	if n, ok := inst.ringSet[key]; ok && n > 0 {
		return true
	}
	if inst.ringCount == len(inst.ring) {
		old := inst.ring[inst.ringNext]
		inst.ringSet[old]--
		if inst.ringSet[old] <= 0 {
			delete(inst.ringSet, old)
		}
	} else {
		inst.ringCount++
	}
	inst.ring[inst.ringNext] = key
	inst.ringSet[key]++
	inst.ringNext = (inst.ringNext + 1) % len(inst.ring)
	return false
}

func (inst *Instance) clearRing() {
	inst.ring = make([]dedupKey, RecentTradeRingSize)
	inst.ringSet = make(map[dedupKey]int)
	inst.ringNext = 0
	inst.ringCount = 0
}

// ProcessTick ingests one tick, returning the updated candle, or (zero,
// false) if the tick was invalid, dropped as a duplicate, or carried no
// usable volume.
func (inst *Instance) ProcessTick(t candle.Tick) (candle.Candle, bool) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.processTickLocked(t)
}

func (inst *Instance) processTickLocked(t candle.Tick) (candle.Candle, bool) {
	if t.Symbol == "" || t.LTP <= 0 {
		return candle.Candle{}, false
	}
	ts, ok := session.NormalizeTimestampToSeconds(t.RawTimestamp)
	if !ok {
		return candle.Candle{}, false
	}

	interval := inst.cfg.intervalSeconds()
	bin := inst.clock.AlignedTimeBin(ts, interval)

	vol := inst.vol.Extract(inst.symbol, volume.Input{
		LastTradedQty:    t.LastTradedQty,
		HasLastTradedQty: t.HasLastTradedQty,
		CumVolume:        t.CumVolume,
		HasCumVolume:     t.HasCumVolume,
	})
	if vol <= 0 || vol > MaxTradeVolume {
		return candle.Candle{}, false
	}

	ag := aggressor.Tick{
		LTP:         t.LTP,
		Bid:         t.BidPrice,
		Ask:         t.AskPrice,
		HasBidAsk:   t.HasBidAsk,
		TotBuyQty:   t.TotBuyQty,
		TotSellQty:  t.TotSellQty,
		HasBookQty:  t.HasBookQty,
		PriceChange: t.PriceChange,
		HasPriceChg: t.HasPriceChange,
	}
	buy, sell := aggressor.Classify(ag, vol)

	key := dedupKey{ts: ts, ltp: round6(t.LTP), vol: vol, buy: buy, sell: sell, tradeID: t.TradeID}
	if inst.pushDedup(key) {
		return candle.Candle{}, false
	}

	bucketKey := bucket.Key(t.LTP, inst.cfg.BucketSize, inst.cfg.Multiplier)

	lastSeenCumVolume, hasLastSeenCumVolume := inst.vol.LastCumVolume(inst.symbol)

	if inst.current == nil || inst.current.Time != bin {
		inst.openNewCandle(bin, t, vol, buy, sell, bucketKey, lastSeenCumVolume, hasLastSeenCumVolume)
	} else {
		inst.updateCandle(t, vol, buy, sell, bucketKey, lastSeenCumVolume, hasLastSeenCumVolume)
	}

	inst.reconcile()

	out := inst.current.Clone()
	out.Symbol = inst.symbol
	return out, true
}

func (inst *Instance) openNewCandle(bin int64, t candle.Tick, vol, buy, sell int64, bucketKey float64, lastSeenCumVolume int64, hasLastSeenCumVolume bool) {
	tradingDay := inst.clock.MarketOpen(bin)
	if !inst.hasLastTradingDay || tradingDay != inst.lastTradingDay {
		inst.sessionCumDelta = 0
		inst.lastTradingDay = tradingDay
		inst.hasLastTradingDay = true
	}

	isFirst := inst.clock.IsFirstCandleOfDay(bin, inst.cfg.Timeframe)
	open := t.LTP
	if t.HasOpenPrice && isFirst {
		open = t.OpenPrice
	}

	delta := buy - sell
	inst.sessionCumDelta += delta

	cumVolume := vol
	if hasLastSeenCumVolume {
		cumVolume = lastSeenCumVolume
	}

	inst.footprintMap = candle.FootprintMap{bucketKey: {Buy: buy, Sell: sell}}

	inst.current = &candle.Candle{
		Time:      bin,
		Open:      open,
		High:      t.LTP,
		Low:       t.LTP,
		Close:     t.LTP,
		Volume:    vol,
		BuyVol:    buy,
		SellVol:   sell,
		Delta:     delta,
		CumDelta:  inst.sessionCumDelta,
		CumVolume: cumVolume,
	}
}

func (inst *Instance) updateCandle(t candle.Tick, vol, buy, sell int64, bucketKey float64, lastSeenCumVolume int64, hasLastSeenCumVolume bool) {
	c := inst.current
	oldDelta := c.Delta

	if t.LTP > c.High {
		c.High = t.LTP
	}
	if t.LTP < c.Low {
		c.Low = t.LTP
	}
	c.Close = t.LTP
	c.Volume += vol
	c.BuyVol += buy
	c.SellVol += sell

	newDelta := c.BuyVol - c.SellVol
	inst.sessionCumDelta += newDelta - oldDelta
	c.Delta = newDelta
	c.CumDelta = inst.sessionCumDelta

	if hasLastSeenCumVolume {
		c.CumVolume = lastSeenCumVolume
	} else {
		c.CumVolume += vol
	}

	lvl := inst.footprintMap[bucketKey]
	lvl.Buy += buy
	lvl.Sell += sell
	inst.footprintMap[bucketKey] = lvl
}

// ReconcileVolumeTotals restores invariant I1 (buy_vol + sell_vol == volume)
// given a candle's current totals, returning the adjusted (buy, sell) pair.
// Shared by the live aggregator and the historical resampler's per-row
// reconciliation step (spec.md §4.7, §4.9 step 5).
func ReconcileVolumeTotals(volume, buy, sell int64, open, close float64) (b, s int64) {
	b, s = buy, sell
	d := volume - (b + s)

	switch {
	case d == 0:
		// done
	case d < 0:
		if b+s > 0 {
			shares := alloc.Proportional(uint64(volume), []uint64{uint64(b), uint64(s)})
			b, s = int64(shares[0]), int64(shares[1])
		} else {
			b, s = 0, 0
		}
	default: // d > 0
		if b == 0 && s == 0 {
			switch {
			case close > open:
				b += d
			case close < open:
				s += d
			default:
				half := d / 2
				b += half
				s += d - half
			}
		} else {
			shares := alloc.Proportional(uint64(d), []uint64{uint64(b), uint64(s)})
			b += int64(shares[0])
			s += int64(shares[1])
		}
	}
	return b, s
}

// reconcile restores invariants I1 and I2 on the current candle and rebuilds
// its footprint ladder (spec.md §4.7/§4.8).
func (inst *Instance) reconcile() {
	c := inst.current
	preReconcileDelta := c.Delta

	c.BuyVol, c.SellVol = ReconcileVolumeTotals(c.Volume, c.BuyVol, c.SellVol, c.Open, c.Close)
	c.Delta = c.BuyVol - c.SellVol
	inst.sessionCumDelta += c.Delta - preReconcileDelta
	c.CumDelta = inst.sessionCumDelta

	inst.footprintMap = footprint.ReconcileMap(inst.footprintMap, c.BuyVol, c.SellVol, c.Close, inst.cfg.BucketSize, inst.cfg.Multiplier)
	c.Footprint = footprint.Build(c.Low, c.High, c.BuyVol, c.SellVol, c.Close, inst.cfg.BucketSize, inst.cfg.Multiplier, inst.footprintMap)
}

// Seed primes the instance from a historical candle so the live stream
// continues without double counting (spec.md §4.10). hasCumVolume reports
// whether hist exposes a cumulative-volume snapshot to seed the volume
// extractor with.
func (inst *Instance) Seed(hist candle.Candle, hasCumVolume bool) {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	if inst.current != nil && inst.current.Time == hist.Time {
		return
	}

	seeded := hist.Clone()
	inst.current = &seeded

	fpMap := make(candle.FootprintMap, len(hist.Footprint))
	for _, lvl := range hist.Footprint {
		fpMap[round2(lvl.PriceLevel)] = candle.LevelTotals{Buy: lvl.BuyVolume, Sell: lvl.SellVolume}
	}
	inst.footprintMap = fpMap

	inst.sessionCumDelta = hist.CumDelta
	inst.lastTradingDay = inst.clock.MarketOpen(hist.Time)
	inst.hasLastTradingDay = true

	if hasCumVolume {
		inst.vol.Seed(inst.symbol, hist.CumVolume)
		inst.clearRing()
	}
}

// IdempotentSeedMatch reports whether t is a harmless priming tick that
// merely re-announces the seeded candle's cumulative volume, per the
// idempotent-seed guard (spec.md §4.10).
func (inst *Instance) IdempotentSeedMatch(t candle.Tick) (candle.Candle, bool) {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	if inst.current == nil {
		return candle.Candle{}, false
	}
	if !t.HasCumVolume || t.HasLastTradedQty {
		return candle.Candle{}, false
	}
	if t.CumVolume != inst.current.CumVolume {
		return candle.Candle{}, false
	}
	out := inst.current.Clone()
	out.Symbol = inst.symbol
	return out, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
