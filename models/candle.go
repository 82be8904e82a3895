package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tickcandle/internal/candle"
)

// FootprintLevelRow is one price-level entry of a persisted footprint
// ladder. Prices are decimal.Decimal rather than float64 because this type
// crosses the JSONB boundary and round-trips through Postgres; the in-memory
// engine (internal/candle.PriceLevel) stays float64 since it never leaves
// the process.
type FootprintLevelRow struct {
	PriceLevel decimal.Decimal `json:"priceLevel"`
	BuyVolume  int64           `json:"buyVolume"`
	SellVolume int64           `json:"sellVolume"`
}

// CandleRow is the persisted representation of one aggregator or resampler
// candle, keyed by (symbol, timeframe, bucket_size, multiplier, bin_time).
type CandleRow struct {
	ID         int64
	Symbol     string
	Timeframe  string
	BucketSize float64
	Multiplier int
	BinTime    int64

	Open  decimal.Decimal
	High  decimal.Decimal
	Low   decimal.Decimal
	Close decimal.Decimal

	Volume    int64
	BuyVolume int64
	SellVol   int64
	Delta     int64
	CumDelta  int64
	CumVolume int64

	PreOpenAligned bool
	Footprint      []FootprintLevelRow

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FromCandle converts one engine candle into its persisted row shape.
func FromCandle(symbol, timeframe string, bucketSize float64, multiplier int, c candle.Candle) CandleRow {
	levels := make([]FootprintLevelRow, len(c.Footprint))
	for i, lvl := range c.Footprint {
		levels[i] = FootprintLevelRow{
			PriceLevel: decimal.NewFromFloat(lvl.PriceLevel),
			BuyVolume:  lvl.BuyVolume,
			SellVolume: lvl.SellVolume,
		}
	}
	return CandleRow{
		Symbol:         symbol,
		Timeframe:      timeframe,
		BucketSize:     bucketSize,
		Multiplier:     multiplier,
		BinTime:        c.Time,
		Open:           decimal.NewFromFloat(c.Open),
		High:           decimal.NewFromFloat(c.High),
		Low:            decimal.NewFromFloat(c.Low),
		Close:          decimal.NewFromFloat(c.Close),
		Volume:         c.Volume,
		BuyVolume:      c.BuyVol,
		SellVol:        c.SellVol,
		Delta:          c.Delta,
		CumDelta:       c.CumDelta,
		CumVolume:      c.CumVolume,
		PreOpenAligned: c.PreOpenAligned,
		Footprint:      levels,
	}
}

// ToCandle reconstructs the engine-native candle from its persisted row,
// used by the historical seeding bridge when the last row predates the
// process (spec.md §4.10).
func (r CandleRow) ToCandle() candle.Candle {
	levels := make([]candle.PriceLevel, len(r.Footprint))
	for i, lvl := range r.Footprint {
		price, _ := lvl.PriceLevel.Float64()
		levels[i] = candle.PriceLevel{
			PriceLevel: price,
			BuyVolume:  lvl.BuyVolume,
			SellVolume: lvl.SellVolume,
		}
	}
	open, _ := r.Open.Float64()
	high, _ := r.High.Float64()
	low, _ := r.Low.Float64()
	closePx, _ := r.Close.Float64()
	return candle.Candle{
		Symbol:         r.Symbol,
		Time:           r.BinTime,
		Open:           open,
		High:           high,
		Low:            low,
		Close:          closePx,
		Volume:         r.Volume,
		BuyVol:         r.BuyVolume,
		SellVol:        r.SellVol,
		Delta:          r.Delta,
		CumDelta:       r.CumDelta,
		CumVolume:      r.CumVolume,
		PreOpenAligned: r.PreOpenAligned,
		Footprint:      levels,
	}
}

// MarshalFootprint encodes the footprint ladder for the JSONB column.
func (r CandleRow) MarshalFootprint() ([]byte, error) {
	return json.Marshal(r.Footprint)
}

// UnmarshalFootprint decodes the JSONB column into the row's ladder.
func (r *CandleRow) UnmarshalFootprint(raw []byte) error {
	if len(raw) == 0 {
		r.Footprint = nil
		return nil
	}
	return json.Unmarshal(raw, &r.Footprint)
}

// CandleResponse is the compact wire shape served by the HTTP surface,
// trading decimal.Decimal's precision for JSON numbers sized for chart
// rendering.
type CandleResponse struct {
	Symbol    string                     `json:"symbol"`
	Timeframe string                     `json:"timeframe"`
	Time      int64                      `json:"t"`
	O         float64                    `json:"o"`
	H         float64                    `json:"h"`
	L         float64                    `json:"l"`
	C         float64                    `json:"c"`
	Volume    int64                      `json:"v"`
	BuyVol    int64                      `json:"bv"`
	SellVol   int64                      `json:"sv"`
	Delta     int64                      `json:"delta"`
	CumDelta  int64                      `json:"cumDelta"`
	CumVolume int64                      `json:"cumVolume"`
	PreOpen   bool                       `json:"preOpenAligned,omitempty"`
	Footprint []CandleFootprintLevelResp `json:"footprint,omitempty"`
}

// CandleFootprintLevelResp is one wire-shape footprint entry.
type CandleFootprintLevelResp struct {
	Price float64 `json:"price"`
	Buy   int64   `json:"buy"`
	Sell  int64   `json:"sell"`
}

// NewCandleResponse builds the wire shape from an engine candle, omitting
// the footprint ladder unless includeFootprint is set.
func NewCandleResponse(symbol, timeframe string, c candle.Candle, includeFootprint bool) CandleResponse {
	resp := CandleResponse{
		Symbol:    symbol,
		Timeframe: timeframe,
		Time:      c.Time,
		O:         c.Open,
		H:         c.High,
		L:         c.Low,
		C:         c.Close,
		Volume:    c.Volume,
		BuyVol:    c.BuyVol,
		SellVol:   c.SellVol,
		Delta:     c.Delta,
		CumDelta:  c.CumDelta,
		CumVolume: c.CumVolume,
		PreOpen:   c.PreOpenAligned,
	}
	if includeFootprint {
		resp.Footprint = make([]CandleFootprintLevelResp, len(c.Footprint))
		for i, lvl := range c.Footprint {
			resp.Footprint[i] = CandleFootprintLevelResp{Price: lvl.PriceLevel, Buy: lvl.BuyVolume, Sell: lvl.SellVolume}
		}
	}
	return resp
}

// CacheKey is the Redis key used for the latest-candle cache entry of one
// aggregator slot.
func CacheKey(symbol, timeframe string, bucketSize float64, multiplier int) string {
	return fmt.Sprintf("candle:%s:%s:%v:%d:latest", symbol, timeframe, bucketSize, multiplier)
}

// IngestTickRequest is the JSON body accepted by POST /api/v1/ingest/tick.
type IngestTickRequest struct {
	Symbol        string   `json:"symbol"`
	LTP           float64  `json:"ltp"`
	Timestamp     any      `json:"timestamp"`
	LastTradedQty *int64   `json:"lastTradedQty,omitempty"`
	CumVolume     *int64   `json:"cumVolume,omitempty"`
	BidPrice      *float64 `json:"bidPrice,omitempty"`
	AskPrice      *float64 `json:"askPrice,omitempty"`
	TotBuyQty     *float64 `json:"totBuyQty,omitempty"`
	TotSellQty    *float64 `json:"totSellQty,omitempty"`
	PriceChange   *float64 `json:"priceChange,omitempty"`
	OpenPrice     *float64 `json:"openPrice,omitempty"`
	TradeID       string   `json:"tradeId,omitempty"`
	Timeframe     string   `json:"timeframe"`
	BucketSize    float64  `json:"bucketSize"`
	Multiplier    int      `json:"multiplier"`
}

// ToTick converts the wire request into the engine's presence-flagged Tick.
func (req IngestTickRequest) ToTick() candle.Tick {
	t := candle.Tick{Symbol: req.Symbol, LTP: req.LTP, RawTimestamp: req.Timestamp, TradeID: req.TradeID}
	if req.LastTradedQty != nil {
		t.LastTradedQty, t.HasLastTradedQty = *req.LastTradedQty, true
	}
	if req.CumVolume != nil {
		t.CumVolume, t.HasCumVolume = *req.CumVolume, true
	}
	if req.BidPrice != nil && req.AskPrice != nil {
		t.BidPrice, t.AskPrice, t.HasBidAsk = *req.BidPrice, *req.AskPrice, true
	}
	if req.TotBuyQty != nil && req.TotSellQty != nil {
		t.TotBuyQty, t.TotSellQty, t.HasBookQty = *req.TotBuyQty, *req.TotSellQty, true
	}
	if req.PriceChange != nil {
		t.PriceChange, t.HasPriceChange = *req.PriceChange, true
	}
	if req.OpenPrice != nil {
		t.OpenPrice, t.HasOpenPrice = *req.OpenPrice, true
	}
	return t
}
