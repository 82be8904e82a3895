package volume

import "testing"

func TestExtractFirstObservationUsesRawTrade(t *testing.T) {
	e := NewExtractor()
	got := e.Extract("NSE:SBIN", Input{HasCumVolume: true, CumVolume: 100000, HasLastTradedQty: true, LastTradedQty: 50})
	if got != 50 {
		t.Fatalf("got %d, want 50", got)
	}
}

func TestExtractDeltaAgainstLastCumVolume(t *testing.T) {
	e := NewExtractor()
	e.Extract("NSE:SBIN", Input{HasCumVolume: true, CumVolume: 100000})
	got := e.Extract("NSE:SBIN", Input{HasCumVolume: true, CumVolume: 100075})
	if got != 75 {
		t.Fatalf("got %d, want 75", got)
	}
}

func TestExtractRolloverFallsBackToRawTrade(t *testing.T) {
	e := NewExtractor()
	e.Extract("NSE:SBIN", Input{HasCumVolume: true, CumVolume: 100000})
	got := e.Extract("NSE:SBIN", Input{HasCumVolume: true, CumVolume: 500, HasLastTradedQty: true, LastTradedQty: 20})
	if got != 20 {
		t.Fatalf("got %d, want 20 (rollover fallback)", got)
	}
}

func TestExtractImplausibleDeltaFallsBackToRawTrade(t *testing.T) {
	e := NewExtractor()
	e.Extract("NSE:SBIN", Input{HasCumVolume: true, CumVolume: 100000})
	got := e.Extract("NSE:SBIN", Input{HasCumVolume: true, CumVolume: 100000 + MaxPlausibleDelta + 1, HasLastTradedQty: true, LastTradedQty: 30})
	if got != 30 {
		t.Fatalf("got %d, want 30 (implausible delta fallback)", got)
	}
}

func TestExtractImplausibleDeltaNoRawTradeReturnsZero(t *testing.T) {
	e := NewExtractor()
	e.Extract("NSE:SBIN", Input{HasCumVolume: true, CumVolume: 100000})
	got := e.Extract("NSE:SBIN", Input{HasCumVolume: true, CumVolume: 100000 + MaxPlausibleDelta + 1})
	if got != 0 {
		t.Fatalf("got %d, want 0", got)
	}
}

func TestExtractZeroDeltaFallsBackToRawTrade(t *testing.T) {
	e := NewExtractor()
	e.Extract("NSE:SBIN", Input{HasCumVolume: true, CumVolume: 100000})
	got := e.Extract("NSE:SBIN", Input{HasCumVolume: true, CumVolume: 100000, HasLastTradedQty: true, LastTradedQty: 5})
	if got != 5 {
		t.Fatalf("got %d, want 5", got)
	}
}

func TestExtractNoCumVolumeUsesRawTrade(t *testing.T) {
	e := NewExtractor()
	got := e.Extract("NSE:SBIN", Input{HasLastTradedQty: true, LastTradedQty: 10})
	if got != 10 {
		t.Fatalf("got %d, want 10", got)
	}
}

func TestExtractNoSignalReturnsZero(t *testing.T) {
	e := NewExtractor()
	got := e.Extract("NSE:SBIN", Input{})
	if got != 0 {
		t.Fatalf("got %d, want 0", got)
	}
}

func TestExtractPerSymbolIsolation(t *testing.T) {
	e := NewExtractor()
	e.Extract("A", Input{HasCumVolume: true, CumVolume: 1000})
	e.Extract("B", Input{HasCumVolume: true, CumVolume: 5000})
	gotA := e.Extract("A", Input{HasCumVolume: true, CumVolume: 1010})
	gotB := e.Extract("B", Input{HasCumVolume: true, CumVolume: 5030})
	if gotA != 10 {
		t.Fatalf("symbol A: got %d, want 10", gotA)
	}
	if gotB != 30 {
		t.Fatalf("symbol B: got %d, want 30", gotB)
	}
}

func TestResetClearsState(t *testing.T) {
	e := NewExtractor()
	e.Extract("A", Input{HasCumVolume: true, CumVolume: 1000})
	e.Reset("A")
	got := e.Extract("A", Input{HasCumVolume: true, CumVolume: 1050, HasLastTradedQty: true, LastTradedQty: 7})
	if got != 7 {
		t.Fatalf("got %d, want 7 (state should have been reset to first-observation behavior)", got)
	}
}
