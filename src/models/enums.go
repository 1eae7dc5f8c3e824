package models

// -----------------------------------------------------------------------------
// Squeeze colours
// -----------------------------------------------------------------------------

type SqueezeColor string

const (
	ColorGreen  SqueezeColor = "green"
	ColorMaroon SqueezeColor = "maroon"
	ColorBlue   SqueezeColor = "blue"
	ColorGray   SqueezeColor = "gray"
)

// -----------------------------------------------------------------------------
// Trend / VWAP relation
// -----------------------------------------------------------------------------

type Trend string

const (
	TrendBullish Trend = "BULLISH"
	TrendBearish Trend = "BEARISH"
	TrendNeutral Trend = "NEUTRAL"
)

type PriceVsVWAP string

const (
	PriceAbove PriceVsVWAP = "ABOVE"
	PriceBelow PriceVsVWAP = "BELOW"
)

// -----------------------------------------------------------------------------
// Signals and sides
// -----------------------------------------------------------------------------

type SignalType string

const (
	SignalLongEntry  SignalType = "LONG_ENTRY"
	SignalShortEntry SignalType = "SHORT_ENTRY"
	SignalExit       SignalType = "EXIT"
)

// Valid reports whether t is a known signal type.
func (t SignalType) Valid() bool {
	switch t {
	case SignalLongEntry, SignalShortEntry, SignalExit:
		return true
	}
	return false
}

// IsEntry reports whether t opens a position.
func (t SignalType) IsEntry() bool {
	return t == SignalLongEntry || t == SignalShortEntry
}

type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

func (s Side) Valid() bool {
	return s == SideLong || s == SideShort
}

// OrderSide is the direction of an individual fill.
type OrderSide string

const (
	OrderBuy  OrderSide = "BUY"
	OrderSell OrderSide = "SELL"
)

func (s OrderSide) Valid() bool {
	return s == OrderBuy || s == OrderSell
}

// -----------------------------------------------------------------------------
// Exit reasons
// -----------------------------------------------------------------------------

type ExitReason string

const (
	ExitStopLoss     ExitReason = "STOP_LOSS"
	ExitTrailingStop ExitReason = "TRAILING_STOP"
	ExitSignal       ExitReason = "SIGNAL_EXIT"
	ExitPanic        ExitReason = "PANIC"
)

func (r ExitReason) Valid() bool {
	switch r {
	case ExitStopLoss, ExitTrailingStop, ExitSignal, ExitPanic:
		return true
	}
	return false
}

// -----------------------------------------------------------------------------
// Run modes
// -----------------------------------------------------------------------------

type RunMode string

const (
	ModeBacktest RunMode = "BACKTEST"
	ModePaper    RunMode = "PAPER"
	ModeLive     RunMode = "LIVE"
)

func (m RunMode) Valid() bool {
	switch m {
	case ModeBacktest, ModePaper, ModeLive:
		return true
	}
	return false
}
