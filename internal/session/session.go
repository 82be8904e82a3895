// Package session provides timestamp normalization and trading-session
// anchored time-bin alignment shared by the live aggregator and the
// historical resampler.
package session

import (
	"fmt"
	"time"
)

// Interval tokens recognized by the engine. Unknown tokens default to 300s.
const (
	Timeframe1m  = "1m"
	Timeframe5m  = "5m"
	Timeframe15m = "15m"
	Timeframe1d  = "1d"

	defaultIntervalSeconds = 300
)

var intervalSeconds = map[string]int64{
	Timeframe1m:  60,
	Timeframe5m:  300,
	Timeframe15m: 900,
	Timeframe1d:  86400,
}

// IntervalSeconds resolves a timeframe token to its width in seconds.
// Unknown tokens default to 300s rather than erroring (spec: "do not error").
func IntervalSeconds(timeframe string) int64 {
	if s, ok := intervalSeconds[timeframe]; ok {
		return s
	}
	return defaultIntervalSeconds
}

// Timestamp magnitude thresholds used to detect the unit of a raw numeric
// timestamp (ns/us/ms/s).
const (
	nsThreshold = 1e18
	usThreshold = 1e15
	msThreshold = 1e12
)

// Clock describes the session window and anchoring time zone. The zero
// value is invalid; use NewClock or DefaultClock.
type Clock struct {
	loc         *time.Location
	openHour    int
	openMinute  int
	closeHour   int
	closeMinute int
}

// DefaultClock returns the Asia/Kolkata 09:15-15:30 session clock.
func DefaultClock() (*Clock, error) {
	return NewClock("Asia/Kolkata", 9, 15, 15, 30)
}

// NewClock builds a session Clock for an arbitrary single time zone. The
// abstraction intentionally accepts any IANA zone name (spec.md §9: "the
// abstraction must accept any single-zone session").
func NewClock(zone string, openHour, openMinute, closeHour, closeMinute int) (*Clock, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("session: load location %q: %w", zone, err)
	}
	return &Clock{
		loc:         loc,
		openHour:    openHour,
		openMinute:  openMinute,
		closeHour:   closeHour,
		closeMinute: closeMinute,
	}, nil
}

// NormalizeTimestampToSeconds accepts a time.Time, an ISO-8601 string, or a
// numeric value (in ns, us, ms, or s, detected by magnitude) and returns the
// equivalent unix second. Returns (0, false) for anything invalid, including
// non-positive numeric values.
func NormalizeTimestampToSeconds(raw any) (int64, bool) {
	switch v := raw.(type) {
	case time.Time:
		return v.Unix(), true
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t.Unix(), true
		}
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t.Unix(), true
		}
		// Fall through: try it as a bare numeric string.
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err == nil {
			return normalizeNumeric(f)
		}
		return 0, false
	case int:
		return normalizeNumeric(float64(v))
	case int32:
		return normalizeNumeric(float64(v))
	case int64:
		return normalizeNumeric(float64(v))
	case float32:
		return normalizeNumeric(float64(v))
	case float64:
		return normalizeNumeric(v)
	default:
		return 0, false
	}
}

func normalizeNumeric(t float64) (int64, bool) {
	if t <= 0 {
		return 0, false
	}
	switch {
	case t >= nsThreshold:
		return int64(t / 1e9), true
	case t >= usThreshold:
		return int64(t / 1e6), true
	case t >= msThreshold:
		return int64(t / 1e3), true
	default:
		return int64(t), true
	}
}

// MarketOpen returns the unix second of the session open (e.g. 09:15) on
// the calendar day containing ts, in the clock's time zone.
func (c *Clock) MarketOpen(ts int64) int64 {
	dt := time.Unix(ts, 0).In(c.loc)
	open := time.Date(dt.Year(), dt.Month(), dt.Day(), c.openHour, c.openMinute, 0, 0, c.loc)
	return open.Unix()
}

// IsSameTradingDay reports whether a and b share the same session open.
func (c *Clock) IsSameTradingDay(a, b int64) bool {
	return c.MarketOpen(a) == c.MarketOpen(b)
}

// AlignedTimeBin returns the session-anchored bin start containing ts for
// the given interval width. Ticks at or after the session open align to
// market-open + k*interval; ticks before session open align to the epoch
// (pre-open alignment is intentionally epoch-based, not session-based —
// spec.md §4.1).
func (c *Clock) AlignedTimeBin(ts int64, intervalSeconds int64) int64 {
	if intervalSeconds <= 0 {
		return ts
	}
	open := c.MarketOpen(ts)
	if ts >= open {
		elapsed := ts - open
		periods := floorDiv(elapsed, intervalSeconds)
		return open + periods*intervalSeconds
	}
	periods := floorDiv(ts, intervalSeconds)
	return periods * intervalSeconds
}

// IsFirstCandleOfDay reports whether bin is the session's first candle for
// the given timeframe: exactly 09:15 for intraday timeframes, or within the
// first five minutes after open for 1d bars.
func (c *Clock) IsFirstCandleOfDay(bin int64, timeframe string) bool {
	dt := time.Unix(bin, 0).In(c.loc)
	if timeframe == Timeframe1d {
		sinceOpen := bin - c.MarketOpen(bin)
		return sinceOpen >= 0 && sinceOpen < 5*60
	}
	return dt.Hour() == c.openHour && dt.Minute() == c.openMinute
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// EpochAlignedBin is the historical resampler's vectorized (non-session
// -anchored) bin computation: plain epoch floor division, no timezone
// lookup. Used for every bar on the historical path; AlignedTimeBin applies
// the same floor division to pre-open ticks on the live path.
func EpochAlignedBin(ts int64, intervalSeconds int64) int64 {
	if intervalSeconds <= 0 {
		return ts
	}
	return floorDiv(ts, intervalSeconds) * intervalSeconds
}
