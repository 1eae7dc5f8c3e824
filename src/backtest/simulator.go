package backtest

import (
	"fmt"

	"squeeze-trader/src/helpers"
	"squeeze-trader/src/logger"
	"squeeze-trader/src/models"
	"squeeze-trader/src/risk"
	"squeeze-trader/src/strategy"
)

// Window sizes handed to the strategy on each bar.
const (
	Window15m      = 200
	Window1h       = 100
	BarsPerHour    = 4
	DefaultWarmup  = 50
	DefaultMin1h   = 30
	DefaultBalance = 10000.0
)

// -----------------------------------------------------------------------------

// Result is the outcome of one replay.
type Result struct {
	Metrics        models.MPerformanceMetrics `json:"metrics"`
	Trades         []models.MTrade            `json:"trades"`
	EquityCurve    []float64                  `json:"equity_curve"`
	InitialBalance float64                    `json:"initial_balance"`
	FinalBalance   float64                    `json:"final_balance"`
	BarsEvaluated  int                        `json:"bars_evaluated"`
}

// Summary is a one-line human readable digest.
func (r Result) Summary() string {
	m := r.Metrics
	return fmt.Sprintf("trades=%d win_rate=%.2f%% pnl=%.2f roi=%.2f%% max_dd=%.2f pf=%.2f sharpe=%.2f final=%.2f",
		m.TotalTrades, m.WinRate, m.TotalPnL, m.ROI, m.MaxDrawdown, m.ProfitFactor, m.SharpeRatio, r.FinalBalance)
}

// -----------------------------------------------------------------------------

// Simulator replays history through a strategy engine and risk manager with
// simulated fills and execution costs.
type Simulator struct {
	Symbol   string
	Fee      float64
	Slippage float64
	Warmup   int
	Min1h    int

	Strategy *strategy.Engine
	Risk     *risk.Manager
	Logger   *logger.Logger
}

// -----------------------------------------------------------------------------

// NewSimulator wires a fresh strategy engine and risk manager from cfg.
func NewSimulator(cfg *models.MConfig, log *logger.Logger) *Simulator {
	if log == nil {
		log = logger.NewNopLogger()
	}
	warmup := cfg.Backtest.WarmupBars
	if warmup <= 0 {
		warmup = DefaultWarmup
	}
	min1h := cfg.Backtest.Min1hCandles
	if min1h <= 0 {
		min1h = DefaultMin1h
	}
	return &Simulator{
		Symbol:   cfg.Symbol,
		Fee:      cfg.Backtest.TradingFee,
		Slippage: cfg.Backtest.Slippage,
		Warmup:   warmup,
		Min1h:    min1h,
		Strategy: strategy.NewEngine(cfg.Strategy, cfg.Symbol, log.Named("strategy")),
		Risk:     risk.NewManager(cfg.Symbol, cfg.Strategy, log.Named("risk")),
		Logger:   log,
	}
}

// -----------------------------------------------------------------------------

// ApplyFeesAndSlippage uses the simulator's configured costs.
func (s *Simulator) ApplyFeesAndSlippage(price float64, side models.OrderSide) (float64, error) {
	return ApplyFeesAndSlippage(price, side, s.Fee, s.Slippage)
}

// -----------------------------------------------------------------------------

// Run replays c15m bar by bar from the warm-up offset. The 1h slice for bar i
// ends at index i/4. Any position still open after the last bar is closed at
// its close with SIGNAL_EXIT.
func (s *Simulator) Run(c15m, c1h []models.MCandle, initialBalance float64) (Result, error) {
	if initialBalance <= 0 {
		return Result{}, helpers.NewValidationError(helpers.ErrNonPositiveBalance, "initial balance %v", initialBalance)
	}
	if len(c15m) == 0 || len(c1h) == 0 {
		return Result{}, helpers.NewValidationError(helpers.ErrEmptyCandles, "backtest needs both timeframes (15m=%d, 1h=%d)", len(c15m), len(c1h))
	}

	balance := initialBalance
	equity := []float64{initialBalance}
	var trades []models.MTrade
	evaluated := 0

	for i := s.Warmup; i < len(c15m); i++ {
		w15 := c15m[maxInt(0, i-Window15m) : i+1]
		idx1h := minInt(i/BarsPerHour, len(c1h)-1)
		w1h := c1h[maxInt(0, idx1h-Window1h) : idx1h+1]
		if len(w1h) < s.Min1h {
			continue
		}
		evaluated++

		s.Strategy.UpdateIndicators(w15, w1h)
		bar := c15m[i]
		atr := s.Strategy.Indicators().ATR15m

		if s.Risk.HasActivePosition(s.Symbol) {
			position, err := s.Risk.UpdateStops(s.Symbol, bar.Close, atr)
			if err != nil {
				return Result{}, err
			}
			if stopHitInBar(position, bar) {
				trade, err := s.exit(position, bar)
				if err != nil {
					return Result{}, err
				}
				balance += trade.PnL
				trades = append(trades, trade)
			}
		} else {
			signal := s.Strategy.CheckLongEntry()
			if signal == nil {
				signal = s.Strategy.CheckShortEntry()
			}
			if signal != nil {
				if err := s.enter(*signal, bar, balance, atr); err != nil {
					return Result{}, err
				}
			}
		}

		point := balance
		if open, ok := s.Risk.ActivePosition(s.Symbol); ok {
			point += open.UnrealizedPnL
		}
		equity = append(equity, point)
	}

	if open, ok := s.Risk.ActivePosition(s.Symbol); ok {
		last := c15m[len(c15m)-1]
		price, err := s.ApplyFeesAndSlippage(last.Close, exitSide(open.Side))
		if err != nil {
			return Result{}, err
		}
		trade, err := s.Risk.ClosePosition(s.Symbol, price, models.ExitSignal)
		if err != nil {
			return Result{}, err
		}
		balance += trade.PnL
		trades = append(trades, trade)
	}

	result := Result{
		Metrics:        CalculateMetrics(trades, equity, initialBalance),
		Trades:         trades,
		EquityCurve:    equity,
		InitialBalance: initialBalance,
		FinalBalance:   balance,
		BarsEvaluated:  evaluated,
	}
	s.Logger.Info("Backtest finished: %s", result.Summary())
	return result, nil
}

// -----------------------------------------------------------------------------

func (s *Simulator) enter(signal models.MSignal, bar models.MCandle, balance, atr float64) error {
	isLong := signal.Type == models.SignalLongEntry
	fill, err := SimulateTradeExecution(signal.Type, bar, isLong)
	if err != nil {
		return err
	}
	side := models.SideShort
	if isLong {
		side = models.SideLong
	}
	price, err := s.ApplyFeesAndSlippage(fill, entrySide(side))
	if err != nil {
		return err
	}
	_, err = s.Risk.OpenPosition(signal.WithPrice(price), balance, atr)
	return err
}

// -----------------------------------------------------------------------------

func (s *Simulator) exit(position models.MPosition, bar models.MCandle) (models.MTrade, error) {
	fill, err := SimulateTradeExecution(models.SignalExit, bar, position.Side == models.SideLong)
	if err != nil {
		return models.MTrade{}, err
	}
	price, err := s.ApplyFeesAndSlippage(fill, exitSide(position.Side))
	if err != nil {
		return models.MTrade{}, err
	}
	return s.Risk.ClosePosition(position.Symbol, price, models.ExitTrailingStop)
}

// -----------------------------------------------------------------------------

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
