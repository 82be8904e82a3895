// Package aggressor classifies a trade's volume into buy/sell aggressor
// splits using bid/ask spread analysis, falling back to order-book pressure
// and then price-change direction when the spread is unavailable or
// ambiguous.
package aggressor

import "math"

// Epsilon is the tolerance used when comparing a trade price against the
// best bid/ask to decide whether the trade printed at or through the touch.
const Epsilon = 1e-6

// Tick carries the fields Classify needs. Each optional group has a Has*
// flag; a group whose flag is false is treated as absent and Classify falls
// through to the next method in the cascade.
type Tick struct {
	LTP         float64
	Bid         float64
	Ask         float64
	HasBidAsk   bool
	TotBuyQty   float64
	TotSellQty  float64
	HasBookQty  bool
	PriceChange float64
	HasPriceChg bool
}

// Classify splits vol into (buy, sell) aggressor volume using the cascade:
//  1. bid/ask spread analysis (trade at/above ask -> buy, at/below bid ->
//     sell, inside the spread -> order-book pressure)
//  2. order-book pressure (tot_buy_qty vs tot_sell_qty), if method 1 could
//     not classify
//  3. price-change direction, if methods 1 and 2 could not classify
//  4. even split as the last resort
//
// A final reconciliation step pushes any rounding remainder onto whichever
// side already holds the larger share, guaranteeing buy+sell == vol exactly.
func Classify(t Tick, vol int64) (buy, sell int64) {
	if vol <= 0 {
		return 0, 0
	}

	if t.HasBidAsk && t.Ask >= t.Bid {
		switch {
		case t.LTP >= t.Ask-Epsilon:
			buy = vol
		case t.LTP <= t.Bid+Epsilon:
			sell = vol
		default:
			buy, sell = bookPressure(t, vol)
		}
	} else if t.HasBidAsk {
		// Invalid spread (ask < bid): fall back to book pressure.
		buy, sell = bookPressure(t, vol)
	}

	if buy+sell == 0 {
		buy, sell = bookPressure(t, vol)
	}

	if buy+sell == 0 && t.HasPriceChg {
		switch {
		case t.PriceChange > 0:
			buy = vol
		case t.PriceChange < 0:
			sell = vol
		default:
			buy = vol / 2
			sell = vol - buy
		}
	}

	if buy+sell == 0 {
		buy = vol / 2
		sell = vol - buy
	}

	if buy+sell != vol {
		rem := vol - (buy + sell)
		if buy >= sell {
			buy += rem
		} else {
			sell += rem
		}
	}

	if buy < 0 {
		buy = 0
	}
	if sell < 0 {
		sell = 0
	}
	return buy, sell
}

// bookPressure splits vol in proportion to resting order-book quantities,
// falling back to an even split when the book is empty. It returns (0, 0)
// when the book is absent, leaving the split to the next cascade step.
func bookPressure(t Tick, vol int64) (buy, sell int64) {
	if !t.HasBookQty {
		return 0, 0
	}
	total := t.TotBuyQty + t.TotSellQty
	if total <= 0 {
		buy = vol / 2
		sell = vol - buy
		return buy, sell
	}
	buy = int64(math.Round(float64(vol) * (t.TotBuyQty / total)))
	if buy < 0 {
		buy = 0
	}
	if buy > vol {
		buy = vol
	}
	sell = vol - buy
	return buy, sell
}
