package trader

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"squeeze-trader/src/analysis"
	datasource "squeeze-trader/src/data_source"
	"squeeze-trader/src/models"
	"squeeze-trader/src/telemetry"
)

var monday = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

const quarterMillis = int64(15 * 60 * 1000)

func testConfig() *models.MConfig {
	return &models.MConfig{
		Symbol:  "BTCUSDT",
		RunMode: models.ModePaper,
		Strategy: models.MStrategyConfig{
			PrimaryTimeframe:          "15m",
			SecondaryTimeframe:        "1h",
			RiskPerTrade:              0.01,
			Leverage:                  3,
			StopLossATRMultiplier:     2,
			TrailingStopATRMultiplier: 1.5,
			ATRPeriod:                 14,
			ADXPeriod:                 14,
			ADXThreshold:              20,
			RVOLPeriod:                20,
			RVOLThreshold:             1.2,
		},
		Backtest: models.MBacktestConfig{InitialBalance: 10000},
	}
}

// scenario is a steady uptrend with a volume spike on spikeBar and an
// optional selloff after crashFrom.
func scenario(n, spikeBar, crashFrom int) []models.MCandle {
	out := make([]models.MCandle, n)
	price := 100.0
	for i := range out {
		delta := 0.5
		if crashFrom > 0 && i > crashFrom {
			delta = -5
		}
		if i > 0 {
			price += delta
		}
		vol := 100.0
		if i == spikeBar {
			vol = 300
		}
		open := price - delta/2
		out[i] = models.MCandle{
			Timestamp: monday + int64(i)*quarterMillis,
			Open:      open,
			High:      math.Max(open, price) + 1,
			Low:       math.Min(open, price) - 1,
			Close:     price,
			Volume:    vol,
		}
	}
	return out
}

// replay orders both timeframes by close time like the replay feed does.
func replay(c15 []models.MCandle) []models.MCandleEvent {
	c1h := analysis.ResampleCandles(c15, 4*quarterMillis, false)
	var out []models.MCandleEvent
	next := 0
	for _, c := range c15 {
		for next < len(c1h) && c1h[next].Timestamp+4*quarterMillis <= c.Timestamp+quarterMillis {
			out = append(out, models.MCandleEvent{Timeframe: "1h", Candle: c1h[next]})
			next++
		}
		out = append(out, models.MCandleEvent{Timeframe: "15m", Candle: c})
	}
	return out
}

// feedUntil handles events up to and including the primary candle at index last.
func feedUntil(t *testing.T, r *Runner, events []models.MCandleEvent, last int) []models.MCandleEvent {
	t.Helper()
	seen := -1
	for i, ev := range events {
		if err := r.HandleCandle(context.Background(), ev); err != nil {
			t.Fatalf("HandleCandle: %v", err)
		}
		if ev.Timeframe == "15m" {
			seen++
			if seen == last {
				return events[i+1:]
			}
		}
	}
	return nil
}

type recordingJournal struct {
	mu       sync.Mutex
	runs     []models.MRun
	signals  []models.MSignal
	trades   []models.MTrade
	equity   []float64
	metrics  *models.MPerformanceMetrics
	finalBal float64
}

func (j *recordingJournal) Initialize() error { return nil }
func (j *recordingJournal) Close() error      { return nil }

func (j *recordingJournal) StartRun(run models.MRun) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.runs = append(j.runs, run)
	return nil
}

func (j *recordingJournal) SaveSignal(_ string, s models.MSignal) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.signals = append(j.signals, s)
	return nil
}

func (j *recordingJournal) SaveTrades(_ string, trades []models.MTrade) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.trades = append(j.trades, trades...)
	return nil
}

func (j *recordingJournal) SaveEquityCurve(_ string, equity []float64) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.equity = equity
	return nil
}

func (j *recordingJournal) SaveMetrics(_ string, m models.MPerformanceMetrics, final float64) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.metrics = &m
	j.finalBal = final
	return nil
}

func (j *recordingJournal) LoadTrades(string) ([]models.MTrade, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]models.MTrade(nil), j.trades...), nil
}

type failingJournal struct {
	recordingJournal
}

func (j *failingJournal) SaveEquityCurve(string, []float64) error {
	return errors.New("disk full")
}

func (j *failingJournal) SaveMetrics(string, models.MPerformanceMetrics, float64) error {
	return errors.New("disk full")
}

type recordingExchanger struct {
	mu     sync.Mutex
	events []models.MEvent
	status models.MStatus
}

func (x *recordingExchanger) Broadcast(ev models.MEvent) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.events = append(x.events, ev)
}

func (x *recordingExchanger) UpdateStatus(s models.MStatus) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.status = s
}

func (x *recordingExchanger) Start() error { return nil }
func (x *recordingExchanger) Stop() error  { return nil }

func (x *recordingExchanger) count(kind string) int {
	x.mu.Lock()
	defer x.mu.Unlock()
	n := 0
	for _, ev := range x.events {
		if ev.Type == kind {
			n++
		}
	}
	return n
}

type rejectingGateway struct{ PaperGateway }

func (g *rejectingGateway) PlaceMarketOrder(ctx context.Context, symbol string, side models.OrderSide, qty, price float64) (float64, error) {
	if side == models.OrderBuy {
		return 0, errors.New("insufficient margin")
	}
	return g.PaperGateway.PlaceMarketOrder(ctx, symbol, side, qty, price)
}

func newTestRunner(gw *PaperGateway) (*Runner, *recordingJournal, *recordingExchanger) {
	journal := &recordingJournal{}
	exchanger := &recordingExchanger{}
	r := NewRunner(testConfig(), gw, journal, nil).
		WithExchanger(exchanger).
		WithMetrics(telemetry.NewMetrics("BTCUSDT", models.ModePaper)).
		WithClock(func() int64 { return 7 })
	return r, journal, exchanger
}

func TestRunnerReplayTrailingStop(t *testing.T) {
	c15 := scenario(230, 150, 200)
	c1h := analysis.ResampleCandles(c15, 4*quarterMillis, false)
	gw := NewPaperGateway()
	r, journal, exchanger := newTestRunner(gw)

	feed := datasource.NewReplayFeed(c15, c1h, 0, r.Logger)
	if err := r.Run(context.Background(), feed); err != nil {
		t.Fatalf("Run: %v", err)
	}

	trades := r.Risk.ClosedTrades()
	if len(trades) != 1 {
		t.Fatalf("expected one trade, got %+v", trades)
	}
	tr := trades[0]
	if tr.Side != models.SideLong || tr.ExitReason != models.ExitTrailingStop {
		t.Fatalf("unexpected trade %+v", tr)
	}
	if tr.EntryPrice != c15[150].Close {
		t.Errorf("entry %v, want close of the spike bar %v", tr.EntryPrice, c15[150].Close)
	}
	if tr.ExitPrice >= c15[200].Close {
		t.Errorf("exit %v should be inside the selloff", tr.ExitPrice)
	}
	if math.Abs(r.Balance()-(10000+tr.PnL)) > 1e-9 {
		t.Errorf("balance %v does not include pnl %v", r.Balance(), tr.PnL)
	}

	orders := gw.Orders()
	if len(orders) != 2 || orders[0].Side != models.OrderBuy || orders[1].Side != models.OrderSell {
		t.Errorf("unexpected orders %+v", orders)
	}

	if len(journal.runs) != 1 || journal.runs[0].ID != r.RunID() {
		t.Errorf("run not journaled: %+v", journal.runs)
	}
	if len(journal.signals) != 1 || len(journal.trades) != 1 {
		t.Errorf("journal signals=%d trades=%d", len(journal.signals), len(journal.trades))
	}
	if journal.metrics == nil || journal.metrics.TotalTrades != 1 || journal.finalBal != r.Balance() {
		t.Errorf("metrics not journaled: %+v", journal.metrics)
	}
	if len(journal.equity) < 2 {
		t.Errorf("equity curve too short: %d", len(journal.equity))
	}

	for _, kind := range []string{models.EventSignal, models.EventOpen, models.EventClose} {
		if exchanger.count(kind) != 1 {
			t.Errorf("%s events = %d, want 1", kind, exchanger.count(kind))
		}
	}
	if exchanger.status.ClosedTradeCount != 1 || exchanger.status.Running {
		t.Errorf("final status %+v", exchanger.status)
	}
	if !r.Risk.IsSignalGenerationEnabled() {
		t.Error("a normal stop-out must not latch signal generation")
	}
}

func TestRunnerWarmup(t *testing.T) {
	r, _, _ := newTestRunner(NewPaperGateway())
	feedUntil(t, r, replay(scenario(100, -1, 0)), 99)

	status := r.Status()
	if status.CandlesProcessed != 100 || status.LastCandleTime != monday+99*quarterMillis {
		t.Errorf("status %+v", status)
	}
	// fewer than 30 hourly candles so far, indicators stay neutral
	if status.Indicators.CurrentPrice != 0 {
		t.Errorf("indicators updated during warm-up: %+v", status.Indicators)
	}
}

func TestRunnerPanicClosesOpenPosition(t *testing.T) {
	c15 := scenario(180, 150, 0)
	r, journal, exchanger := newTestRunner(NewPaperGateway())
	feedUntil(t, r, replay(c15), 160)

	if !r.Risk.HasActivePosition("BTCUSDT") {
		t.Fatal("expected an open position before the panic")
	}

	trades, err := r.Panic(context.Background())
	if err != nil {
		t.Fatalf("Panic: %v", err)
	}
	if len(trades) != 1 || trades[0].ExitReason != models.ExitPanic || trades[0].ExitPrice != c15[160].Close {
		t.Fatalf("panic trades %+v", trades)
	}
	if r.Risk.IsSignalGenerationEnabled() || r.Risk.HasActivePosition("BTCUSDT") {
		t.Fatal("panic must close everything and latch signals")
	}
	if exchanger.count(models.EventPanic) != 1 || len(journal.trades) != 1 {
		t.Errorf("panic not published: events=%d journal=%d", exchanger.count(models.EventPanic), len(journal.trades))
	}
	if math.Abs(r.Balance()-(10000+trades[0].PnL)) > 1e-9 {
		t.Errorf("balance %v after panic", r.Balance())
	}
}

func TestRunnerPanicBeforeEntryBlocksSignals(t *testing.T) {
	c15 := scenario(180, 150, 0)
	r, _, exchanger := newTestRunner(NewPaperGateway())
	rest := feedUntil(t, r, replay(c15), 140)

	trades, err := r.Panic(context.Background())
	if err != nil || len(trades) != 0 {
		t.Fatalf("Panic = %v, %v", trades, err)
	}

	for _, ev := range rest {
		if err := r.HandleCandle(context.Background(), ev); err != nil {
			t.Fatal(err)
		}
	}
	if r.Risk.HasActivePosition("BTCUSDT") || exchanger.count(models.EventSignal) != 0 {
		t.Fatal("signal generation resumed after panic")
	}
}

func TestRunnerPanicWithoutPrice(t *testing.T) {
	r, _, _ := newTestRunner(NewPaperGateway())
	trades, err := r.Panic(context.Background())
	if err != nil || len(trades) != 0 {
		t.Fatalf("Panic = %v, %v", trades, err)
	}
	if r.Risk.IsSignalGenerationEnabled() {
		t.Fatal("latch not set")
	}
}

func TestRunnerShutdownClosesOpenPosition(t *testing.T) {
	c15 := scenario(180, 150, 0)
	c1h := analysis.ResampleCandles(c15, 4*quarterMillis, false)
	r, journal, _ := newTestRunner(NewPaperGateway())

	if err := r.Run(context.Background(), datasource.NewReplayFeed(c15, c1h, 0, r.Logger)); err != nil {
		t.Fatal(err)
	}
	trades := r.Risk.ClosedTrades()
	if len(trades) != 1 || trades[0].ExitReason != models.ExitPanic || trades[0].ExitPrice != c15[179].Close {
		t.Fatalf("shutdown trades %+v", trades)
	}
	if len(journal.trades) != 1 {
		t.Errorf("shutdown close not journaled")
	}
}

func TestRunnerUnwindsRejectedEntry(t *testing.T) {
	c15 := scenario(160, 150, 0)
	journal := &recordingJournal{}
	r := NewRunner(testConfig(), &rejectingGateway{}, journal, nil)
	feedUntil(t, r, replay(c15), 150)

	trades := r.Risk.ClosedTrades()
	if len(trades) != 1 || trades[0].ExitReason != models.ExitSignal || trades[0].PnL != 0 {
		t.Fatalf("expected a flat unwind, got %+v", trades)
	}
	if r.Risk.HasActivePosition("BTCUSDT") || r.Balance() != 10000 {
		t.Fatal("rejected entry left state behind")
	}
}

func TestRunnerRejectsConcurrentRun(t *testing.T) {
	c15 := scenario(60, -1, 0)
	c1h := analysis.ResampleCandles(c15, 4*quarterMillis, false)
	r, _, _ := newTestRunner(NewPaperGateway())

	feed := datasource.NewReplayFeed(c15, c1h, time.Hour, r.Logger)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, feed) }()

	deadline := time.Now().Add(2 * time.Second)
	for !r.running.Load() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if err := r.Run(ctx, feed); err == nil {
		t.Error("second Run should fail")
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run: %v", err)
	}
}

func TestPaperGatewayValidates(t *testing.T) {
	gw := NewPaperGateway()
	if _, err := gw.PlaceMarketOrder(context.Background(), "BTCUSDT", models.OrderSide("HOLD"), 1, 100); err == nil {
		t.Error("invalid side accepted")
	}
	if _, err := gw.PlaceMarketOrder(context.Background(), "BTCUSDT", models.OrderBuy, 1, 0); err == nil {
		t.Error("zero price accepted")
	}
	fill, err := gw.PlaceMarketOrder(context.Background(), "BTCUSDT", models.OrderSell, 1, 101)
	if err != nil || fill != 101 || len(gw.Orders()) != 1 {
		t.Errorf("fill = %v, %v", fill, err)
	}
}

func TestRunnerStatusReportsJournalHealth(t *testing.T) {
	c15 := scenario(60, 0, 0)
	c1h := analysis.ResampleCandles(c15, 4*quarterMillis, false)

	healthy, _, _ := newTestRunner(NewPaperGateway())
	if !healthy.Status().JournalHealthy {
		t.Fatal("fresh runner should report a healthy journal")
	}

	r := NewRunner(testConfig(), NewPaperGateway(), &failingJournal{}, nil)
	r.errorHandler.BaseDelay = 0
	r.errorHandler.MaxErrorsBeforeRestart = 2
	if err := r.Run(context.Background(), datasource.NewReplayFeed(c15, c1h, 0, r.Logger)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if r.Status().JournalHealthy {
		t.Fatal("failed equity and metrics writes should mark the journal unhealthy")
	}
}
