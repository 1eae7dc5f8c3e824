package backtest

import (
	"squeeze-trader/src/helpers"
	"squeeze-trader/src/models"
)

// Where inside the bar a stop fills, measured from the adverse extreme.
const (
	longStopFillRatio  = 0.3
	shortStopFillRatio = 0.7
)

// -----------------------------------------------------------------------------

// SimulateTradeExecution returns the simulated fill price inside candle.
// Entries fill at the open. Exits fill between the close and the adverse extreme.
func SimulateTradeExecution(signalType models.SignalType, candle models.MCandle, isLong bool) (float64, error) {
	switch signalType {
	case models.SignalLongEntry, models.SignalShortEntry:
		return candle.Open, nil
	case models.SignalExit:
		if isLong {
			return candle.Low + (candle.Close-candle.Low)*longStopFillRatio, nil
		}
		return candle.Close + (candle.High-candle.Close)*shortStopFillRatio, nil
	default:
		return 0, helpers.NewValidationError(helpers.ErrInvalidSignalType, "simulate fill for %q", signalType)
	}
}

// -----------------------------------------------------------------------------

// ApplyFeesAndSlippage moves price against the trader by fee+slippage.
func ApplyFeesAndSlippage(price float64, side models.OrderSide, fee, slippage float64) (float64, error) {
	if price <= 0 {
		return 0, helpers.NewValidationError(helpers.ErrNonPositivePrice, "fill price %v", price)
	}
	cost := fee + slippage
	switch side {
	case models.OrderBuy:
		return price * (1 + cost), nil
	case models.OrderSell:
		return price * (1 - cost), nil
	default:
		return 0, helpers.NewValidationError(helpers.ErrInvalidSide, "side %q", side)
	}
}

// -----------------------------------------------------------------------------

// entrySide and exitSide map a position side onto the order that opens or closes it.
func entrySide(side models.Side) models.OrderSide {
	if side == models.SideLong {
		return models.OrderBuy
	}
	return models.OrderSell
}

func exitSide(side models.Side) models.OrderSide {
	if side == models.SideLong {
		return models.OrderSell
	}
	return models.OrderBuy
}

// stopHitInBar reports whether the bar's range reached the trailing stop.
func stopHitInBar(position models.MPosition, candle models.MCandle) bool {
	if position.Side == models.SideLong {
		return candle.Low <= position.TrailingStop
	}
	return candle.High >= position.TrailingStop
}
