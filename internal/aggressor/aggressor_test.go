package aggressor

import "testing"

func TestClassifyAtAskIsBuy(t *testing.T) {
	tk := Tick{LTP: 100.25, Bid: 100.0, Ask: 100.25, HasBidAsk: true}
	buy, sell := Classify(tk, 50)
	if buy != 50 || sell != 0 {
		t.Fatalf("buy=%d sell=%d, want 50/0", buy, sell)
	}
}

func TestClassifyAtBidIsSell(t *testing.T) {
	tk := Tick{LTP: 100.0, Bid: 100.0, Ask: 100.25, HasBidAsk: true}
	buy, sell := Classify(tk, 50)
	if buy != 0 || sell != 50 {
		t.Fatalf("buy=%d sell=%d, want 0/50", buy, sell)
	}
}

func TestClassifyInsideSpreadUsesBookPressure(t *testing.T) {
	tk := Tick{
		LTP: 100.12, Bid: 100.0, Ask: 100.25, HasBidAsk: true,
		TotBuyQty: 300, TotSellQty: 100, HasBookQty: true,
	}
	buy, sell := Classify(tk, 40)
	if buy+sell != 40 {
		t.Fatalf("buy+sell=%d, want 40", buy+sell)
	}
	if buy != 30 || sell != 10 {
		t.Fatalf("buy=%d sell=%d, want 30/10", buy, sell)
	}
}

func TestClassifyInvalidSpreadFallsBackToBookPressure(t *testing.T) {
	tk := Tick{
		LTP: 100.0, Bid: 100.25, Ask: 100.0, HasBidAsk: true,
		TotBuyQty: 1, TotSellQty: 3, HasBookQty: true,
	}
	buy, sell := Classify(tk, 40)
	if buy+sell != 40 {
		t.Fatalf("buy+sell=%d, want 40", buy+sell)
	}
	if buy != 10 || sell != 30 {
		t.Fatalf("buy=%d sell=%d, want 10/30", buy, sell)
	}
}

func TestClassifyNoBidAskFallsBackToPriceChange(t *testing.T) {
	tk := Tick{HasPriceChg: true, PriceChange: 0.5}
	buy, sell := Classify(tk, 20)
	if buy != 20 || sell != 0 {
		t.Fatalf("buy=%d sell=%d, want 20/0", buy, sell)
	}

	tk2 := Tick{HasPriceChg: true, PriceChange: -0.5}
	buy2, sell2 := Classify(tk2, 20)
	if buy2 != 0 || sell2 != 20 {
		t.Fatalf("buy=%d sell=%d, want 0/20", buy2, sell2)
	}
}

func TestClassifyNoSignalEvenSplit(t *testing.T) {
	buy, sell := Classify(Tick{}, 7)
	if buy+sell != 7 {
		t.Fatalf("buy+sell=%d, want 7", buy+sell)
	}
	if buy != 3 || sell != 4 {
		t.Fatalf("buy=%d sell=%d, want 3/4 (floor to buy, remainder to sell)", buy, sell)
	}
}

func TestClassifyZeroVolume(t *testing.T) {
	buy, sell := Classify(Tick{LTP: 10, Bid: 9, Ask: 11, HasBidAsk: true}, 0)
	if buy != 0 || sell != 0 {
		t.Fatalf("expected 0/0 for non-positive volume, got %d/%d", buy, sell)
	}
}

func TestClassifyConservation(t *testing.T) {
	vols := []int64{1, 2, 3, 7, 40, 999, 1000000}
	ticks := []Tick{
		{LTP: 100.25, Bid: 100.0, Ask: 100.25, HasBidAsk: true},
		{LTP: 100.12, Bid: 100.0, Ask: 100.25, HasBidAsk: true, TotBuyQty: 7, TotSellQty: 11, HasBookQty: true},
		{HasPriceChg: true, PriceChange: -1},
		{},
	}
	for _, tk := range ticks {
		for _, v := range vols {
			buy, sell := Classify(tk, v)
			if buy+sell != v {
				t.Fatalf("tick=%+v vol=%d: buy+sell=%d, want %d", tk, v, buy+sell, v)
			}
			if buy < 0 || sell < 0 {
				t.Fatalf("tick=%+v vol=%d: negative split buy=%d sell=%d", tk, v, buy, sell)
			}
		}
	}
}
