package strategy

import (
	"sync"

	"squeeze-trader/src/analysis"
	"squeeze-trader/src/logger"
	"squeeze-trader/src/models"
)

const (
	minSqueezeCandles = 20
	minTrendCandles   = 3
)

// -----------------------------------------------------------------------------

// Engine turns candle windows into an indicator snapshot and entry signals.
type Engine struct {
	mu sync.RWMutex

	cfg    models.MStrategyConfig
	symbol string
	clock  models.Clock
	Logger *logger.Logger

	snapshot models.MIndicatorSnapshot
	// colour of the last computed bar, carried into the next update
	lastColor models.SqueezeColor
}

// -----------------------------------------------------------------------------

func NewEngine(cfg models.MStrategyConfig, symbol string, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Engine{
		cfg:       cfg,
		symbol:    symbol,
		clock:     models.NowMillis,
		Logger:    log,
		snapshot:  models.NewIndicatorSnapshot(),
		lastColor: models.ColorGray,
	}
}

// -----------------------------------------------------------------------------

// WithClock replaces the clock used to stamp signals.
func (e *Engine) WithClock(c models.Clock) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock = c
	return e
}

// -----------------------------------------------------------------------------

// MinCandles15m is the smallest primary window UpdateIndicators accepts.
func MinCandles15m(cfg models.MStrategyConfig) int {
	return maxInt(2*cfg.ATRPeriod, 2*cfg.ADXPeriod, cfg.RVOLPeriod+1, minSqueezeCandles)
}

// MinCandles1h is the smallest secondary window UpdateIndicators accepts.
func MinCandles1h(cfg models.MStrategyConfig) int {
	return maxInt(2*cfg.ATRPeriod, minTrendCandles)
}

// -----------------------------------------------------------------------------

// ComputeSnapshot derives a full snapshot from both windows. previousColor
// becomes the snapshot's PreviousSqueezeColor. The windows are only read.
func ComputeSnapshot(c15m, c1h []models.MCandle, cfg models.MStrategyConfig, previousColor models.SqueezeColor) models.MIndicatorSnapshot {
	last := c15m[len(c15m)-1]
	anchor := analysis.WeeklyAnchor(last.Timestamp)

	s := models.MIndicatorSnapshot{
		CurrentPrice:         last.Close,
		WeeklyAnchorTime:     anchor,
		VWAP15m:              analysis.VWAP(c15m, anchor),
		VWAP1h:               analysis.VWAP(c1h, anchor),
		ATR15m:               analysis.ATR(c15m, cfg.ATRPeriod),
		ATR1h:                analysis.ATR(c1h, cfg.ATRPeriod),
		ADX:                  analysis.ADX(c15m, cfg.ADXPeriod),
		RVOL:                 analysis.RVOL(c15m, cfg.RVOLPeriod),
		PreviousSqueezeColor: previousColor,
	}

	sq := analysis.SqueezeMomentum(c15m)
	s.SqueezeValue = sq.Value
	s.IsSqueezed = sq.IsSqueezed
	s.SqueezeColor = sq.Color

	s.Trend15m = analysis.DetermineTrend(c15m, s.VWAP15m)
	s.Trend1h = analysis.DetermineTrend(c1h, s.VWAP1h)

	if s.CurrentPrice > s.VWAP15m {
		s.PriceVsVWAP = models.PriceAbove
	} else {
		s.PriceVsVWAP = models.PriceBelow
	}
	return s
}

// -----------------------------------------------------------------------------

// UpdateIndicators recomputes the snapshot. It reports false and leaves the
// state untouched when either window is below its minimum size.
func (e *Engine) UpdateIndicators(c15m, c1h []models.MCandle) bool {
	if len(c15m) < MinCandles15m(e.cfg) || len(c1h) < MinCandles1h(e.cfg) {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := ComputeSnapshot(c15m, c1h, e.cfg, e.lastColor)
	e.snapshot = next
	e.lastColor = next.SqueezeColor

	e.Logger.Debug("price=%.4f vwap15=%.4f adx=%.2f rvol=%.2f squeeze=%s trend1h=%s",
		next.CurrentPrice, next.VWAP15m, next.ADX, next.RVOL, next.SqueezeColor, next.Trend1h)
	return true
}

// -----------------------------------------------------------------------------

// Indicators returns a copy of the current snapshot.
func (e *Engine) Indicators() models.MIndicatorSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot
}

// -----------------------------------------------------------------------------

// CheckLongEntry returns a LONG_ENTRY signal when price is above the 15m VWAP,
// the 1h trend is bullish, squeeze momentum is green, and ADX and RVOL clear their thresholds.
func (e *Engine) CheckLongEntry() *models.MSignal {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := e.snapshot
	if s.PriceVsVWAP != models.PriceAbove ||
		s.Trend1h != models.TrendBullish ||
		s.SqueezeColor != models.ColorGreen ||
		!(s.ADX > e.cfg.ADXThreshold) ||
		!(s.RVOL > e.cfg.RVOLThreshold) {
		return nil
	}
	return e.signal(models.SignalLongEntry)
}

// -----------------------------------------------------------------------------

// CheckShortEntry mirrors CheckLongEntry: below VWAP, bearish 1h, maroon momentum.
func (e *Engine) CheckShortEntry() *models.MSignal {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := e.snapshot
	if s.PriceVsVWAP != models.PriceBelow ||
		s.Trend1h != models.TrendBearish ||
		s.SqueezeColor != models.ColorMaroon ||
		!(s.ADX > e.cfg.ADXThreshold) ||
		!(s.RVOL > e.cfg.RVOLThreshold) {
		return nil
	}
	return e.signal(models.SignalShortEntry)
}

// -----------------------------------------------------------------------------

func (e *Engine) signal(t models.SignalType) *models.MSignal {
	sig := &models.MSignal{
		Type:       t,
		Symbol:     e.symbol,
		Timestamp:  e.clock(),
		Price:      e.snapshot.CurrentPrice,
		Indicators: e.snapshot,
	}
	e.Logger.Info("%s signal at %.4f (adx=%.2f rvol=%.2f)", t, sig.Price, e.snapshot.ADX, e.snapshot.RVOL)
	return sig
}

// -----------------------------------------------------------------------------

func maxInt(first int, rest ...int) int {
	m := first
	for _, v := range rest {
		if v > m {
			m = v
		}
	}
	return m
}
