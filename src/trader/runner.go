package trader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"squeeze-trader/src/backtest"
	"squeeze-trader/src/helpers"
	"squeeze-trader/src/interfaces"
	"squeeze-trader/src/logger"
	"squeeze-trader/src/models"
	"squeeze-trader/src/risk"
	"squeeze-trader/src/strategy"
	"squeeze-trader/src/telemetry"
	"squeeze-trader/src/utils"
)

const (
	// Buffer15m and Buffer1h bound the history kept per timeframe.
	Buffer15m = 200
	Buffer1h  = 100

	// WarmupCandles15m and WarmupCandles1h must be buffered before indicators are evaluated.
	WarmupCandles15m = 50
	WarmupCandles1h  = 30

	journalRetries = 3
)

// -----------------------------------------------------------------------------

// Runner drives the strategy from a live or replayed candle feed.
// Position decisions run under the risk manager lock so an operator panic
// can never interleave with an entry or a stop-out.
type Runner struct {
	Config    *models.MConfig
	Logger    *logger.Logger
	Strategy  *strategy.Engine
	Risk      *risk.Manager
	Gateway   interfaces.IExecutionGateway
	Journal   interfaces.IJournal
	Exchanger interfaces.IDataExchanger
	Metrics   *telemetry.Metrics

	runID string
	clock models.Clock

	mu               sync.RWMutex
	buf15m           *utils.CandleRingBuffer
	buf1h            *utils.CandleRingBuffer
	balance          float64
	initialBalance   float64
	equity           []float64
	lastPrice        float64
	candlesProcessed int64
	lastCandleTime   int64
	cancel           context.CancelFunc

	journalMu    sync.Mutex
	errorHandler *helpers.ErrorHandler

	running  atomic.Bool
	panicked atomic.Bool
}

// -----------------------------------------------------------------------------

func NewRunner(cfg *models.MConfig, gateway interfaces.IExecutionGateway, journal interfaces.IJournal, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.NewNopLogger()
	}
	balance := cfg.Backtest.InitialBalance
	return &Runner{
		Config:         cfg,
		Logger:         log,
		Strategy:       strategy.NewEngine(cfg.Strategy, cfg.Symbol, log.Named("strategy")),
		Risk:           risk.NewManager(cfg.Symbol, cfg.Strategy, log.Named("risk")),
		Gateway:        gateway,
		Journal:        journal,
		runID:          uuid.NewString(),
		clock:          models.NowMillis,
		buf15m:         utils.NewCandleRingBuffer(Buffer15m),
		buf1h:          utils.NewCandleRingBuffer(Buffer1h),
		balance:        balance,
		initialBalance: balance,
		equity:         []float64{balance},
		errorHandler:   helpers.NewErrorHandler(log.Named("journal")),
	}
}

// -----------------------------------------------------------------------------

// WithExchanger attaches the REST/websocket broadcaster.
func (r *Runner) WithExchanger(x interfaces.IDataExchanger) *Runner {
	r.Exchanger = x
	return r
}

// WithMetrics attaches prometheus collectors.
func (r *Runner) WithMetrics(m *telemetry.Metrics) *Runner {
	r.Metrics = m
	return r
}

// WithClock replaces the wall clock for exit times and event stamps.
func (r *Runner) WithClock(c models.Clock) *Runner {
	r.clock = c
	r.Risk.WithClock(c)
	r.Strategy.WithClock(c)
	return r
}

// -----------------------------------------------------------------------------

func (r *Runner) RunID() string {
	return r.runID
}

// -----------------------------------------------------------------------------

// Run consumes the feed until it is exhausted, ctx is cancelled or Panic is called.
// Open positions are closed on the way out.
func (r *Runner) Run(ctx context.Context, feed interfaces.ICandleFeed) error {
	if !r.running.CompareAndSwap(false, true) {
		return fmt.Errorf("runner for %s is already running", r.Config.Symbol)
	}
	defer r.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()
	defer cancel()

	r.journal("start run", func() error {
		return r.Journal.StartRun(models.MRun{
			ID:             r.runID,
			Mode:           r.Config.RunMode,
			Symbol:         r.Config.Symbol,
			StartedAt:      r.clock(),
			InitialBalance: r.initialBalance,
		})
	})

	events := make(chan models.MCandleEvent, 64)
	var wg sync.WaitGroup
	if err := feed.Start(ctx, events, &wg); err != nil {
		return helpers.NewDataSourceError(err, "start feed %s", feed.Name())
	}
	r.Logger.Info("Runner %s started on %s (%s)", r.runID, r.Config.Symbol, feed.Name())

	var loopErr error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case ev, ok := <-events:
			if !ok {
				break loop
			}
			if err := r.HandleCandle(ctx, ev); err != nil {
				loopErr = err
				break loop
			}
		}
	}

	cancel()
	for range events {
	}
	wg.Wait()

	r.running.Store(false)
	r.shutdown()
	return loopErr
}

// -----------------------------------------------------------------------------

// HandleCandle processes one closed candle. Secondary candles only fill the
// buffer; primary candles drive the stop management and entry decision.
func (r *Runner) HandleCandle(ctx context.Context, ev models.MCandleEvent) error {
	if r.Metrics != nil {
		r.Metrics.ObserveCandle(ev.Timeframe)
	}

	if ev.Timeframe == r.Config.Strategy.SecondaryTimeframe {
		r.mu.Lock()
		r.buf1h.Append(ev.Candle)
		r.mu.Unlock()
		return nil
	}
	if ev.Timeframe != r.Config.Strategy.PrimaryTimeframe {
		r.Logger.Debug("Ignoring %s candle", ev.Timeframe)
		return nil
	}

	r.mu.Lock()
	r.buf15m.Append(ev.Candle)
	r.candlesProcessed++
	r.lastCandleTime = ev.Candle.Timestamp
	r.lastPrice = ev.Candle.Close
	c15m := r.buf15m.GetAll()
	c1h := r.buf1h.GetAll()
	r.mu.Unlock()

	if len(c15m) < WarmupCandles15m || len(c1h) < WarmupCandles1h {
		return nil
	}
	if !r.Strategy.UpdateIndicators(c15m, c1h) {
		return nil
	}

	snapshot := r.Strategy.Indicators()
	if r.Metrics != nil {
		r.Metrics.ObserveIndicators(snapshot)
	}

	price := ev.Candle.Close
	atr := snapshot.ATR15m
	var out outcome

	err := r.Risk.WithLock(func(tx *risk.Tx) error {
		err := tx.EntryAllowed(r.Config.Symbol)
		switch {
		case errors.Is(err, helpers.ErrPositionExists):
			return r.manageOpenPosition(ctx, tx, price, atr, &out)
		case errors.Is(err, helpers.ErrSignalsDisabled):
			return nil
		case err != nil:
			return err
		}
		return r.tryEntry(ctx, tx, atr, &out)
	})
	if err != nil {
		return err
	}

	r.publish(ev.Candle.Timestamp, snapshot, out)
	return nil
}

// -----------------------------------------------------------------------------

// outcome collects what happened under the lock so journaling and
// broadcasting can run after it is released.
type outcome struct {
	signal   *models.MSignal
	opened   *models.MPosition
	stops    *models.MPosition
	trades   []models.MTrade
	panicked bool
}

// -----------------------------------------------------------------------------

func (r *Runner) manageOpenPosition(ctx context.Context, tx *risk.Tx, price, atr float64, out *outcome) error {
	position, err := tx.UpdateStops(r.Config.Symbol, price, atr)
	if err != nil {
		return err
	}
	out.stops = &position

	if !risk.CheckStopHit(position, price) {
		return nil
	}

	fill := r.execute(ctx, position.Symbol, exitSide(position.Side), position.Quantity, price)
	trade, err := tx.ClosePosition(position.Symbol, fill, models.ExitTrailingStop)
	if err != nil {
		return err
	}
	r.realize(trade)
	out.trades = append(out.trades, trade)
	out.stops = nil
	return nil
}

// -----------------------------------------------------------------------------

func (r *Runner) tryEntry(ctx context.Context, tx *risk.Tx, atr float64, out *outcome) error {
	signal := r.Strategy.CheckLongEntry()
	if signal == nil {
		signal = r.Strategy.CheckShortEntry()
	}
	if signal == nil {
		return nil
	}
	out.signal = signal

	position, err := tx.OpenPosition(*signal, r.Balance(), atr)
	if err != nil {
		return err
	}

	side := models.OrderBuy
	if position.Side == models.SideShort {
		side = models.OrderSell
	}
	if _, err := r.Gateway.PlaceMarketOrder(ctx, position.Symbol, side, position.Quantity, position.EntryPrice); err != nil {
		r.Logger.Error("Entry order for %s rejected, unwinding position: %v", position.Symbol, err)
		trade, closeErr := tx.ClosePosition(position.Symbol, position.EntryPrice, models.ExitSignal)
		if closeErr != nil {
			return closeErr
		}
		r.realize(trade)
		out.trades = append(out.trades, trade)
		return nil
	}

	out.opened = &position
	return nil
}

// -----------------------------------------------------------------------------

// realize books a closed trade into the balance. It runs under the risk lock
// so the next entry is always sized from the settled balance.
func (r *Runner) realize(trade models.MTrade) {
	r.mu.Lock()
	r.balance += trade.PnL
	r.mu.Unlock()
}

// -----------------------------------------------------------------------------

// execute sends an exit order and falls back to the reference price when the
// gateway fails; the internal position is closed either way.
func (r *Runner) execute(ctx context.Context, symbol string, side models.OrderSide, quantity, price float64) float64 {
	fill, err := r.Gateway.PlaceMarketOrder(ctx, symbol, side, quantity, price)
	if err != nil || fill <= 0 {
		r.Logger.Error("Exit order for %s failed, using %.4f: %v", symbol, price, err)
		return price
	}
	return fill
}

// -----------------------------------------------------------------------------

// Panic closes every open position at the last close price, disables signal
// generation for good and stops the run loop.
func (r *Runner) Panic(ctx context.Context) ([]models.MTrade, error) {
	r.mu.RLock()
	price := r.lastPrice
	cancel := r.cancel
	r.mu.RUnlock()

	trades, err := r.closeAll(ctx, price)
	if err != nil {
		return nil, err
	}

	if cancel != nil {
		cancel()
	}
	return trades, nil
}

// -----------------------------------------------------------------------------

func (r *Runner) closeAll(ctx context.Context, price float64) ([]models.MTrade, error) {
	var out outcome
	out.panicked = true

	err := r.Risk.WithLock(func(tx *risk.Tx) error {
		position, ok := tx.ActivePosition(r.Config.Symbol)
		if price <= 0 {
			if ok {
				return helpers.NewValidationError(helpers.ErrNonPositivePrice, "no price known to close %s", r.Config.Symbol)
			}
			tx.DisableSignals()
			return nil
		}
		if ok {
			price = r.execute(ctx, position.Symbol, exitSide(position.Side), position.Quantity, price)
		}
		trades, err := tx.CloseAllPositions(price)
		for _, trade := range trades {
			r.realize(trade)
		}
		out.trades = trades
		return err
	})
	if err != nil {
		return nil, err
	}

	r.panicked.Store(true)
	r.Logger.Warning("Panic: %d position(s) closed at %.4f", len(out.trades), price)

	r.mu.RLock()
	ts := r.lastCandleTime
	r.mu.RUnlock()
	r.publish(ts, r.Strategy.Indicators(), out)
	return out.trades, nil
}

// -----------------------------------------------------------------------------

func (r *Runner) publish(ts int64, snapshot models.MIndicatorSnapshot, out outcome) {
	symbol := r.Config.Symbol

	if r.Metrics != nil {
		for _, trade := range out.trades {
			r.Metrics.ObserveTrade(trade)
		}
	}

	position, open := r.Risk.ActivePosition(symbol)

	r.mu.Lock()
	point := r.balance
	if open {
		point += position.UnrealizedPnL
	}
	if !out.panicked {
		r.equity = append(r.equity, point)
	}
	balance := r.balance
	r.mu.Unlock()

	if r.Metrics != nil {
		r.Metrics.SetBalance(balance)
		if open {
			r.Metrics.SetPosition(&position)
		} else {
			r.Metrics.SetPosition(nil)
		}
		r.Metrics.SetPanicked(!r.Risk.IsSignalGenerationEnabled())
	}

	if out.signal != nil {
		signal := *out.signal
		if r.Metrics != nil {
			r.Metrics.ObserveSignal(signal)
		}
		r.journal("save signal", func() error { return r.Journal.SaveSignal(r.runID, signal) })
		r.broadcast(models.EventSignal, ts, signal)
	}
	if out.opened != nil {
		r.broadcast(models.EventOpen, ts, *out.opened)
	}
	if out.stops != nil {
		r.broadcast(models.EventStops, ts, *out.stops)
	}
	if len(out.trades) > 0 {
		trades := out.trades
		r.journal("save trades", func() error { return r.Journal.SaveTrades(r.runID, trades) })
		for _, trade := range trades {
			r.broadcast(models.EventClose, ts, trade)
		}
	}
	if out.panicked {
		r.broadcast(models.EventPanic, ts, out.trades)
	} else {
		r.broadcast(models.EventSnapshot, ts, snapshot)
	}

	if r.Exchanger != nil {
		r.Exchanger.UpdateStatus(r.Status())
	}
}

// -----------------------------------------------------------------------------

func (r *Runner) broadcast(kind string, ts int64, payload interface{}) {
	if r.Exchanger == nil {
		return
	}
	r.Exchanger.Broadcast(models.MEvent{Type: kind, Symbol: r.Config.Symbol, Timestamp: ts, Payload: payload})
}

// -----------------------------------------------------------------------------

// journal writes with retries; a failing journal never stops trading.
func (r *Runner) journal(operation string, fn func() error) {
	if r.Journal == nil {
		return
	}
	r.journalMu.Lock()
	defer r.journalMu.Unlock()
	if err := r.errorHandler.ExecuteWithRetry(operation, fn, journalRetries); err != nil {
		r.errorHandler.Handle(err, operation)
	}
}

// -----------------------------------------------------------------------------

// shutdown closes anything still open and writes the run summary.
func (r *Runner) shutdown() {
	if !r.panicked.Load() && len(r.Risk.ActivePositions()) > 0 {
		r.mu.RLock()
		price := r.lastPrice
		r.mu.RUnlock()
		if _, err := r.closeAll(context.Background(), price); err != nil {
			r.Logger.Error("Failed to close positions on shutdown: %v", err)
		}
	}

	metrics := r.PerformanceMetrics()
	r.mu.RLock()
	equity := append([]float64(nil), r.equity...)
	balance := r.balance
	r.mu.RUnlock()

	r.journal("save equity curve", func() error { return r.Journal.SaveEquityCurve(r.runID, equity) })
	r.journal("save metrics", func() error { return r.Journal.SaveMetrics(r.runID, metrics, balance) })

	if r.Exchanger != nil {
		r.Exchanger.UpdateStatus(r.Status())
	}
	r.Logger.Info("Runner %s stopped: balance=%.2f trades=%d", r.runID, balance, metrics.TotalTrades)
}

// -----------------------------------------------------------------------------
// Readers
// -----------------------------------------------------------------------------

func (r *Runner) Balance() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.balance
}

// Trades returns the closed trades of this run.
func (r *Runner) Trades() []models.MTrade {
	return r.Risk.ClosedTrades()
}

// PerformanceMetrics summarizes the closed trades against the equity curve.
func (r *Runner) PerformanceMetrics() models.MPerformanceMetrics {
	trades := r.Risk.ClosedTrades()
	r.mu.RLock()
	equity := append([]float64(nil), r.equity...)
	r.mu.RUnlock()
	return backtest.CalculateMetrics(trades, equity, r.initialBalance)
}

// Status is a consistent-enough view for operators; risk state is read
// before the runner lock so the two locks are never nested.
func (r *Runner) Status() models.MStatus {
	positions := r.Risk.ActivePositions()
	trades := r.Risk.ClosedTrades()
	enabled := r.Risk.IsSignalGenerationEnabled()
	metrics := r.PerformanceMetrics()

	r.journalMu.Lock()
	journalHealthy := r.errorHandler.Healthy()
	r.journalMu.Unlock()

	r.mu.RLock()
	defer r.mu.RUnlock()
	return models.MStatus{
		Symbol:           r.Config.Symbol,
		RunMode:          r.Config.RunMode,
		Balance:          r.balance,
		SignalsEnabled:   enabled,
		Running:          r.running.Load(),
		CandlesProcessed: r.candlesProcessed,
		LastCandleTime:   r.lastCandleTime,
		ActivePositions:  positions,
		ClosedTradeCount: len(trades),
		Indicators:       r.Strategy.Indicators(),
		Metrics:          metrics,
		JournalHealthy:   journalHealthy,
	}
}

// -----------------------------------------------------------------------------

func exitSide(side models.Side) models.OrderSide {
	if side == models.SideLong {
		return models.OrderSell
	}
	return models.OrderBuy
}
