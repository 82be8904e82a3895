package session

import "testing"

func TestNormalizeTimestampToSeconds(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want int64
		ok   bool
	}{
		{"seconds", float64(1723618500), 1723618500, true},
		{"millis", float64(1723618500) * 1e3, 1723618500, true},
		{"micros", float64(1723618500) * 1e6, 1723618500, true},
		{"nanos", float64(1723618500) * 1e9, 1723618500, true},
		{"zero invalid", float64(0), 0, false},
		{"negative invalid", float64(-5), 0, false},
		{"int", int(1723618500), 1723618500, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := NormalizeTimestampToSeconds(c.in)
			if ok != c.ok {
				t.Fatalf("ok = %v, want %v", ok, c.ok)
			}
			if ok && got != c.want {
				t.Fatalf("got %d, want %d", got, c.want)
			}
		})
	}
}

func TestAlignedTimeBinSessionAnchored(t *testing.T) {
	clk, err := DefaultClock()
	if err != nil {
		t.Fatal(err)
	}
	open := clk.MarketOpen(1723618500) // some day's timestamp
	cases := []struct {
		ts       int64
		interval int64
		want     int64
	}{
		{open, 300, open},
		{open + 299, 300, open},
		{open + 300, 300, open + 300},
		{open + 301, 300, open + 300},
		{open - 1, 300, EpochAlignedBin(open-1, 300)},
	}
	for _, c := range cases {
		got := clk.AlignedTimeBin(c.ts, c.interval)
		if got != c.want {
			t.Fatalf("AlignedTimeBin(%d,%d) = %d, want %d", c.ts, c.interval, got, c.want)
		}
	}
}

func TestIsSameTradingDay(t *testing.T) {
	clk, err := DefaultClock()
	if err != nil {
		t.Fatal(err)
	}
	open := clk.MarketOpen(1723618500)
	if !clk.IsSameTradingDay(open, open+3600) {
		t.Fatal("expected same trading day")
	}
	if clk.IsSameTradingDay(open, open+86400) {
		t.Fatal("expected different trading day across a full day")
	}
}

func TestIntervalSecondsUnknownDefaultsTo300(t *testing.T) {
	if got := IntervalSeconds("bogus"); got != 300 {
		t.Fatalf("got %d, want 300", got)
	}
	if got := IntervalSeconds(Timeframe1d); got != 86400 {
		t.Fatalf("got %d, want 86400", got)
	}
}

func TestIsFirstCandleOfDay(t *testing.T) {
	clk, err := DefaultClock()
	if err != nil {
		t.Fatal(err)
	}
	open := clk.MarketOpen(1723618500)
	if !clk.IsFirstCandleOfDay(open, Timeframe5m) {
		t.Fatal("expected first candle of day at open")
	}
	if clk.IsFirstCandleOfDay(open+300, Timeframe5m) {
		t.Fatal("expected false one bin after open")
	}
	if !clk.IsFirstCandleOfDay(open+120, Timeframe1d) {
		t.Fatal("expected true within 5 minutes of open for 1d")
	}
}
