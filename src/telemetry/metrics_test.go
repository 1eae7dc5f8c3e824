package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"squeeze-trader/src/models"
)

func TestMetricsObserveTrade(t *testing.T) {
	m := NewMetrics("BTCUSDT", models.ModePaper)

	m.ObserveTrade(models.MTrade{PnL: 30, ExitReason: models.ExitTrailingStop})
	m.ObserveTrade(models.MTrade{PnL: -10, ExitReason: models.ExitTrailingStop})
	m.ObserveTrade(models.MTrade{PnL: 5, ExitReason: models.ExitPanic})

	labels := m.with("reason", string(models.ExitTrailingStop))
	if got := testutil.ToFloat64(m.trades.With(labels)); got != 2 {
		t.Errorf("trailing stop trades = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.pnl.With(m.with("outcome", "win"))); got != 35 {
		t.Errorf("win pnl = %v, want 35", got)
	}
	if got := testutil.ToFloat64(m.pnl.With(m.with("outcome", "loss"))); got != 10 {
		t.Errorf("loss pnl = %v, want 10", got)
	}
}

func TestMetricsGauges(t *testing.T) {
	m := NewMetrics("ETHUSDT", models.ModeBacktest)

	m.SetBalance(10100)
	m.SetPosition(&models.MPosition{Side: models.SideShort, Quantity: 2})
	m.SetPanicked(true)

	if got := testutil.ToFloat64(m.balance.With(m.labels)); got != 10100 {
		t.Errorf("balance = %v", got)
	}
	if got := testutil.ToFloat64(m.position.With(m.labels)); got != -2 {
		t.Errorf("position = %v, want -2", got)
	}
	if got := testutil.ToFloat64(m.panicked.With(m.labels)); got != 1 {
		t.Errorf("panic gauge = %v", got)
	}

	m.SetPosition(nil)
	if got := testutil.ToFloat64(m.position.With(m.labels)); got != 0 {
		t.Errorf("flat position = %v", got)
	}
}

func TestMetricsRegistryGathers(t *testing.T) {
	m := NewMetrics("BTCUSDT", models.ModePaper)
	m.ObserveCandle("15m")
	m.ObserveSignal(models.MSignal{Type: models.SignalLongEntry})
	m.ObserveIndicators(models.NewIndicatorSnapshot())

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{"squeeze_candles_processed_total", "squeeze_signals_total", "squeeze_indicator"} {
		if !names[want] {
			t.Errorf("missing metric family %s", want)
		}
	}
}
