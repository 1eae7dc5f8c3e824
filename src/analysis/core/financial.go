package core

import (
	"math"

	"squeeze-trader/src/models"
)

// -----------------------------------------------------------------------------

// TypicalPrice is (high + low + close) / 3.
func TypicalPrice(c models.MCandle) float64 {
	return (c.High + c.Low + c.Close) / 3
}

// -----------------------------------------------------------------------------

// TrueRange of a bar given the previous close.
func TrueRange(c models.MCandle, prevClose float64) float64 {
	return math.Max(c.High-c.Low, math.Max(math.Abs(c.High-prevClose), math.Abs(c.Low-prevClose)))
}

// -----------------------------------------------------------------------------

// TrueRanges returns one value per candle. The first bar has no previous
// close, so its range is high - low.
func TrueRanges(candles []models.MCandle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		if i == 0 {
			out[i] = c.High - c.Low
			continue
		}
		out[i] = TrueRange(c, candles[i-1].Close)
	}
	return out
}

// -----------------------------------------------------------------------------

// Closes extracts close prices.
func Closes(candles []models.MCandle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// -----------------------------------------------------------------------------

// HighestHigh returns the maximum high, 0 for no candles.
func HighestHigh(candles []models.MCandle) float64 {
	if len(candles) == 0 {
		return 0
	}
	h := candles[0].High
	for _, c := range candles[1:] {
		if c.High > h {
			h = c.High
		}
	}
	return h
}

// -----------------------------------------------------------------------------

// LowestLow returns the minimum low, 0 for no candles.
func LowestLow(candles []models.MCandle) float64 {
	if len(candles) == 0 {
		return 0
	}
	l := candles[0].Low
	for _, c := range candles[1:] {
		if c.Low < l {
			l = c.Low
		}
	}
	return l
}
