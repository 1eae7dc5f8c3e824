package risk

import (
	"math"

	"squeeze-trader/src/models"
)

// -----------------------------------------------------------------------------

// Size applies fixed-fractional risk: a stop-out at entry minus
// atr*StopLossATRMultiplier loses exactly RiskPerTrade of balance.
func Size(balance, entry, atr float64, cfg models.MStrategyConfig) models.MSizing {
	stopDistance := atr * cfg.StopLossATRMultiplier
	riskAmount := balance * cfg.RiskPerTrade

	quantity := 0.0
	if stopDistance != 0 {
		quantity = riskAmount / stopDistance
	}
	return models.MSizing{Quantity: quantity, StopLossDistance: stopDistance}
}

// -----------------------------------------------------------------------------

// TrailingStop returns the ratcheted stop for position at price.
// It never loosens: max for LONG, min for SHORT.
func TrailingStop(position models.MPosition, price, atr float64, cfg models.MStrategyConfig) float64 {
	offset := cfg.TrailingStopATRMultiplier * atr
	if position.Side == models.SideLong {
		return math.Max(position.TrailingStop, price-offset)
	}
	return math.Min(position.TrailingStop, price+offset)
}
