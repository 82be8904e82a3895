// Package resample collapses fine-grained historical bars into
// target-timeframe candles with footprint and per-session cumulative
// columns, compatible with the live aggregator's output shape so a live
// aggregator can be seeded from the last historical candle.
package resample

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"tickcandle/internal/aggregator"
	"tickcandle/internal/bucket"
	"tickcandle/internal/candle"
	"tickcandle/internal/footprint"
	"tickcandle/internal/session"
)

// Bar is one fine-grained input bar (typically 5-second OHLCV).
type Bar struct {
	Timestamp int64
	Symbol    string // empty if the table carries no symbol column

	Open, High, Low, Close float64
	Volume                 int64

	HasBuySell bool
	BuyVol     int64
	SellVol    int64
}

// Options configures one resampling run.
type Options struct {
	Timeframe        string
	BucketSize       float64
	Multiplier       int
	Footprint        bool
	PreserveLiveData bool
}

// Resample groups bars per symbol and fans the per-symbol work out across
// goroutines (resampling one symbol never depends on another), bounded by
// errgroup's shared cancellation.
func Resample(ctx context.Context, bars []Bar, opts Options, clock *session.Clock) ([]candle.Candle, error) {
	bySymbol := make(map[string][]Bar)
	for _, b := range bars {
		bySymbol[b.Symbol] = append(bySymbol[b.Symbol], b)
	}

	symbols := make([]string, 0, len(bySymbol))
	for sym := range bySymbol {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	results := make([][]candle.Candle, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			out := resampleOneSymbol(sym, bySymbol[sym], opts, clock)
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]candle.Candle, 0, len(bars))
	for _, rows := range results {
		out = append(out, rows...)
	}
	return out, nil
}

func resampleOneSymbol(symbol string, bars []Bar, opts Options, clock *session.Clock) []candle.Candle {
	bars = dedupeByTimestamp(bars)
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp < bars[j].Timestamp })
	synthesizeBuySell(bars, opts.PreserveLiveData)

	interval := session.IntervalSeconds(opts.Timeframe)
	groups, order := groupByBin(bars, interval)

	rows := make([]candle.Candle, 0, len(order))
	var sessionCumDelta, sessionCumVolume int64
	var lastTradingDay int64
	hasLastTradingDay := false

	for _, binTime := range order {
		g := groups[binTime]
		c := aggregateGroup(symbol, binTime, g)

		b, s := aggregator.ReconcileVolumeTotals(c.Volume, c.BuyVol, c.SellVol, c.Open, c.Close)
		c.BuyVol = b
		c.SellVol = s
		c.Delta = b - s

		tradingDay := clock.MarketOpen(binTime)
		if !hasLastTradingDay || tradingDay != lastTradingDay {
			sessionCumDelta = 0
			sessionCumVolume = 0
			lastTradingDay = tradingDay
			hasLastTradingDay = true
		}
		sessionCumDelta += c.Delta
		sessionCumVolume += c.Volume
		c.CumDelta = sessionCumDelta
		c.CumVolume = sessionCumVolume

		c.PreOpenAligned = binTime < tradingDay

		if opts.Footprint {
			fpMap := buildGroupFootprint(g, opts.BucketSize, opts.Multiplier)
			fpMap = footprint.ReconcileMap(fpMap, c.BuyVol, c.SellVol, c.Close, opts.BucketSize, opts.Multiplier)
			c.Footprint = footprint.Build(c.Low, c.High, c.BuyVol, c.SellVol, c.Close, opts.BucketSize, opts.Multiplier, fpMap)
		}

		cleanCandle(&c)
		rows = append(rows, c)
	}

	return rows
}

func dedupeByTimestamp(bars []Bar) []Bar {
	seen := make(map[int64]bool, len(bars))
	out := make([]Bar, 0, len(bars))
	for _, b := range bars {
		if seen[b.Timestamp] {
			continue
		}
		seen[b.Timestamp] = true
		out = append(out, b)
	}
	return out
}

func synthesizeBuySell(bars []Bar, preserveLiveData bool) {
	var hasPrevClose bool
	var prevClose float64
	for i := range bars {
		b := &bars[i]
		if b.HasBuySell && preserveLiveData {
			hasPrevClose = true
			prevClose = b.Close
			continue
		}
		switch {
		case b.Close > b.Open, hasPrevClose && b.Close == b.Open && b.Close > prevClose:
			b.BuyVol = b.Volume
			b.SellVol = 0
		case b.Close < b.Open, hasPrevClose && b.Close == b.Open && b.Close < prevClose:
			b.BuyVol = 0
			b.SellVol = b.Volume
		default:
			b.BuyVol = 0
			b.SellVol = 0
		}
		b.HasBuySell = true
		hasPrevClose = true
		prevClose = b.Close
	}
}

func groupByBin(bars []Bar, interval int64) (map[int64][]Bar, []int64) {
	groups := make(map[int64][]Bar)
	var order []int64
	for _, b := range bars {
		binTime := session.EpochAlignedBin(b.Timestamp, interval)
		if _, ok := groups[binTime]; !ok {
			order = append(order, binTime)
		}
		groups[binTime] = append(groups[binTime], b)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	return groups, order
}

func aggregateGroup(symbol string, binTime int64, g []Bar) candle.Candle {
	c := candle.Candle{
		Symbol: symbol,
		Time:   binTime,
		Open:   g[0].Open,
		High:   g[0].High,
		Low:    g[0].Low,
		Close:  g[len(g)-1].Close,
	}
	for _, b := range g {
		if b.High > c.High {
			c.High = b.High
		}
		if b.Low < c.Low {
			c.Low = b.Low
		}
		c.Volume += b.Volume
		c.BuyVol += b.BuyVol
		c.SellVol += b.SellVol
	}
	return c
}

func buildGroupFootprint(g []Bar, bucketSize float64, multiplier int) candle.FootprintMap {
	m := make(candle.FootprintMap)
	for _, b := range g {
		key := bucket.Key(b.Close, bucketSize, multiplier)
		lvl := m[key]
		lvl.Buy += b.BuyVol
		lvl.Sell += b.SellVol
		m[key] = lvl
	}
	return m
}

func cleanCandle(c *candle.Candle) {
	c.Open = cleanFloat(c.Open)
	c.High = cleanFloat(c.High)
	c.Low = cleanFloat(c.Low)
	c.Close = cleanFloat(c.Close)
}

func cleanFloat(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
