package risk

import (
	"errors"
	"math"
	"sync"
	"testing"

	"squeeze-trader/src/helpers"
	"squeeze-trader/src/models"
)

func testStrategyConfig() models.MStrategyConfig {
	return models.MStrategyConfig{
		RiskPerTrade:              0.01,
		Leverage:                  3,
		StopLossATRMultiplier:     2.0,
		TrailingStopATRMultiplier: 1.5,
	}
}

func entry(t models.SignalType, price float64) models.MSignal {
	return models.MSignal{Type: t, Symbol: "BTCUSDT", Timestamp: 1000, Price: price}
}

func newTestManager() *Manager {
	return NewManager("BTCUSDT", testStrategyConfig(), nil).WithClock(func() int64 { return 5000 })
}

func TestSizeRiskIsFixedFraction(t *testing.T) {
	cfg := testStrategyConfig()
	for _, atr := range []float64{10, 250, 1234.5} {
		s := Size(10000, 50000, atr, cfg)
		if math.Abs(s.Quantity*s.StopLossDistance-100) > 1e-9 {
			t.Fatalf("atr=%v: loss at stop = %v, want 100", atr, s.Quantity*s.StopLossDistance)
		}
	}
	if s := Size(10000, 50000, 0, cfg); s.Quantity != 0 || s.StopLossDistance != 0 {
		t.Fatalf("zero atr should size to zero: %+v", s)
	}
}

func TestTrailingStopNeverLoosens(t *testing.T) {
	cfg := testStrategyConfig()
	long := models.MPosition{Side: models.SideLong, TrailingStop: 100}
	short := models.MPosition{Side: models.SideShort, TrailingStop: 100}

	tests := []struct {
		name     string
		position models.MPosition
		price    float64
		want     float64
	}{
		{"long rises", long, 120, 105},
		{"long falls", long, 90, 100},
		{"short falls", short, 80, 95},
		{"short rises", short, 130, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrailingStop(tt.position, tt.price, 10, cfg); got != tt.want {
				t.Fatalf("TrailingStop = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOpenPosition(t *testing.T) {
	m := newTestManager()
	p, err := m.OpenPosition(entry(models.SignalLongEntry, 50000), 10000, 500)
	if err != nil {
		t.Fatal(err)
	}
	if p.Side != models.SideLong || p.StopLoss != 49000 || p.TrailingStop != 49000 || p.Quantity != 0.1 {
		t.Fatalf("unexpected long position %+v", p)
	}
	if p.Leverage != 3 || p.EntryTime != 1000 || p.ID == "" {
		t.Fatalf("metadata missing %+v", p)
	}
	if !m.HasActivePosition("BTCUSDT") {
		t.Fatal("position not registered")
	}

	m2 := newTestManager()
	s, _ := m2.OpenPosition(entry(models.SignalShortEntry, 50000), 10000, 500)
	if s.Side != models.SideShort || s.StopLoss != 51000 {
		t.Fatalf("unexpected short position %+v", s)
	}
}

func TestOpenPositionRejectsNonEntry(t *testing.T) {
	m := newTestManager()
	_, err := m.OpenPosition(entry(models.SignalExit, 50000), 10000, 500)
	if !errors.Is(err, helpers.ErrInvalidSignalType) {
		t.Fatalf("expected invalid signal type, got %v", err)
	}
	if m.HasActivePosition("BTCUSDT") {
		t.Fatal("failed open must not register a position")
	}
}

func TestUpdateStopsRatchetsAndMarks(t *testing.T) {
	m := newTestManager()
	m.OpenPosition(entry(models.SignalLongEntry, 50000), 10000, 500)

	p, err := m.UpdateStops("BTCUSDT", 52000, 500)
	if err != nil {
		t.Fatal(err)
	}
	if p.TrailingStop != 51250 || math.Abs(p.UnrealizedPnL-200) > 1e-9 {
		t.Fatalf("after rally: %+v", p)
	}

	p, _ = m.UpdateStops("BTCUSDT", 50500, 500)
	if p.TrailingStop != 51250 {
		t.Fatalf("stop loosened to %v", p.TrailingStop)
	}
	if p.StopLoss != 49000 {
		t.Fatalf("initial stop changed to %v", p.StopLoss)
	}

	if _, err := m.UpdateStops("ETHUSDT", 1, 1); !errors.Is(err, helpers.ErrNoActivePosition) {
		t.Fatalf("expected no active position, got %v", err)
	}
}

func TestCheckStopHitBoundary(t *testing.T) {
	long := models.MPosition{Side: models.SideLong, TrailingStop: 100}
	short := models.MPosition{Side: models.SideShort, TrailingStop: 100}
	if !CheckStopHit(long, 100) || CheckStopHit(long, 100.01) || !CheckStopHit(long, 99) {
		t.Fatal("long stop boundary wrong")
	}
	if !CheckStopHit(short, 100) || CheckStopHit(short, 99.99) || !CheckStopHit(short, 101) {
		t.Fatal("short stop boundary wrong")
	}
}

func TestClosePosition(t *testing.T) {
	m := newTestManager()
	m.OpenPosition(entry(models.SignalShortEntry, 50000), 10000, 500)

	trade, err := m.ClosePosition("BTCUSDT", 49000, models.ExitTrailingStop)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(trade.PnL-100) > 1e-9 || math.Abs(trade.PnLPercent-2) > 1e-9 {
		t.Fatalf("short pnl wrong: %+v", trade)
	}
	if trade.ExitTime != 5000 || trade.ExitReason != models.ExitTrailingStop {
		t.Fatalf("trade metadata wrong: %+v", trade)
	}
	if m.HasActivePosition("BTCUSDT") || len(m.ClosedTrades()) != 1 {
		t.Fatal("position not moved to trade log")
	}
}

func TestClosePositionValidationLeavesStateUntouched(t *testing.T) {
	tests := []struct {
		name   string
		price  float64
		reason models.ExitReason
		want   error
	}{
		{"bad reason", 49000, "TAKE_PROFIT", helpers.ErrInvalidExitReason},
		{"zero price", 0, models.ExitStopLoss, helpers.ErrNonPositivePrice},
		{"negative price", -5, models.ExitPanic, helpers.ErrNonPositivePrice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager()
			m.OpenPosition(entry(models.SignalLongEntry, 50000), 10000, 500)
			_, err := m.ClosePosition("BTCUSDT", tt.price, tt.reason)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if !m.HasActivePosition("BTCUSDT") || len(m.ClosedTrades()) != 0 {
				t.Fatal("failed close mutated state")
			}
		})
	}
}

func TestCloseAllPositionsLatches(t *testing.T) {
	m := newTestManager()
	m.OpenPosition(entry(models.SignalLongEntry, 50000), 10000, 500)

	if _, err := m.CloseAllPositions(0); !errors.Is(err, helpers.ErrNonPositivePrice) {
		t.Fatalf("expected price error, got %v", err)
	}
	if !m.IsSignalGenerationEnabled() || !m.HasActivePosition("BTCUSDT") {
		t.Fatal("rejected panic must not change state")
	}

	trades, err := m.CloseAllPositions(48000)
	if err != nil {
		t.Fatal(err)
	}
	if len(trades) != 1 || trades[0].ExitReason != models.ExitPanic {
		t.Fatalf("unexpected panic trades %+v", trades)
	}
	if m.IsSignalGenerationEnabled() {
		t.Fatal("latch not set")
	}
	if len(m.ActivePositions()) != 0 {
		t.Fatal("positions remain after panic")
	}

	// The latch survives further activity.
	m.OpenPosition(entry(models.SignalLongEntry, 50000), 10000, 500)
	m.ClosePosition("BTCUSDT", 50100, models.ExitSignal)
	if m.IsSignalGenerationEnabled() {
		t.Fatal("latch was reset")
	}
}

func TestClosedTradesIsACopy(t *testing.T) {
	m := newTestManager()
	m.OpenPosition(entry(models.SignalLongEntry, 50000), 10000, 500)
	m.ClosePosition("BTCUSDT", 51000, models.ExitSignal)

	trades := m.ClosedTrades()
	trades[0].PnL = -1
	if m.ClosedTrades()[0].PnL == -1 {
		t.Fatal("caller mutated internal trade log")
	}
}

func TestPanicRacesWithMainLoop(t *testing.T) {
	for round := 0; round < 50; round++ {
		m := newTestManager()
		m.OpenPosition(entry(models.SignalLongEntry, 50000), 10000, 500)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.WithLock(func(tx *Tx) error {
				p, ok := tx.ActivePosition("BTCUSDT")
				if !ok {
					return nil
				}
				p, _ = tx.UpdateStops(p.Symbol, 48000, 500)
				if CheckStopHit(p, 48000) {
					_, err := tx.ClosePosition(p.Symbol, 48000, models.ExitTrailingStop)
					return err
				}
				return nil
			})
		}()
		go func() {
			defer wg.Done()
			m.CloseAllPositions(48000)
		}()
		wg.Wait()

		if n := len(m.ClosedTrades()); n != 1 {
			t.Fatalf("round %d: %d trades recorded, want exactly 1", round, n)
		}
		if m.HasActivePosition("BTCUSDT") {
			t.Fatalf("round %d: orphaned position", round)
		}
	}
}

func TestEntryAllowed(t *testing.T) {
	m := newTestManager()
	check := func() error {
		var got error
		m.WithLock(func(tx *Tx) error {
			got = tx.EntryAllowed("BTCUSDT")
			return nil
		})
		return got
	}

	if err := check(); err != nil {
		t.Fatalf("fresh manager: %v", err)
	}
	if _, err := m.OpenPosition(entry(models.SignalLongEntry, 100), 10000, 5); err != nil {
		t.Fatal(err)
	}
	if err := check(); !errors.Is(err, helpers.ErrPositionExists) {
		t.Fatalf("open position: got %v, want ErrPositionExists", err)
	}
	if _, err := m.CloseAllPositions(101); err != nil {
		t.Fatal(err)
	}
	err := check()
	if !errors.Is(err, helpers.ErrSignalsDisabled) || !helpers.IsInputError(err) {
		t.Fatalf("after panic: got %v, want ErrSignalsDisabled", err)
	}
}
