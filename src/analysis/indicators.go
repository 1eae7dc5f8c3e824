package analysis

import (
	"math"
	"time"

	"squeeze-trader/src/analysis/core"
	"squeeze-trader/src/models"
)

const (
	squeezeLength = 20
	bbMultiplier  = 2.0
	kcMultiplier  = 1.5
	trendLookback = 3
	millisPerDay  = int64(24 * time.Hour / time.Millisecond)
)

// SqueezeResult is the squeeze momentum reading on the latest bar.
type SqueezeResult struct {
	Value      float64             `json:"value"`
	IsSqueezed bool                `json:"is_squeezed"`
	Color      models.SqueezeColor `json:"color"`
}

// -----------------------------------------------------------------------------

// VWAP returns the volume weighted typical price of candles at or after anchor (ms).
func VWAP(candles []models.MCandle, anchor int64) float64 {
	var pv, vol float64
	for _, c := range candles {
		if c.Timestamp < anchor {
			continue
		}
		pv += core.TypicalPrice(c) * c.Volume
		vol += c.Volume
	}
	if vol == 0 {
		return 0
	}
	return pv / vol
}

// -----------------------------------------------------------------------------

// ATR is the average true range: SMA seed over the first period ranges,
// then exponential smoothing with alpha 2/(period+1).
func ATR(candles []models.MCandle, period int) float64 {
	if period < 1 || len(candles) < period+1 {
		return 0
	}
	ranges := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		ranges = append(ranges, core.TrueRange(candles[i], candles[i-1].Close))
	}
	return core.SeededEMA(ranges, period)
}

// -----------------------------------------------------------------------------

// ADX is Wilder's average directional index. Non-finite results collapse to 0.
func ADX(candles []models.MCandle, period int) float64 {
	if period < 1 || len(candles) < 2*period {
		return 0
	}

	n := len(candles)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := candles[i].High - candles[i-1].High
		down := candles[i-1].Low - candles[i].Low
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	alpha := 1.0 / float64(period)
	trSmooth := core.RecursiveEWM(core.TrueRanges(candles), alpha)
	plusSmooth := core.RecursiveEWM(plusDM, alpha)
	minusSmooth := core.RecursiveEWM(minusDM, alpha)

	dx := make([]float64, n)
	for i := 0; i < n; i++ {
		plusDI := 100 * plusSmooth[i] / trSmooth[i]
		minusDI := 100 * minusSmooth[i] / trSmooth[i]
		dx[i] = 100 * math.Abs(plusDI-minusDI) / (plusDI + minusDI)
	}

	adx := core.RecursiveEWM(dx, alpha)
	return core.Finite(adx[n-1])
}

// -----------------------------------------------------------------------------

// RVOL is the latest volume relative to the mean of the period bars before it.
func RVOL(candles []models.MCandle, period int) float64 {
	if period < 1 || len(candles) < period+1 {
		return 0
	}
	last := len(candles) - 1
	sum := 0.0
	for _, c := range candles[last-period : last] {
		sum += c.Volume
	}
	avg := sum / float64(period)
	if avg == 0 {
		return 0
	}
	return candles[last].Volume / avg
}

// -----------------------------------------------------------------------------

// SqueezeMomentum compares 20-bar Bollinger Bands against Keltner Channels
// and measures close distance from the 20-bar high/low midline.
// Keltner width uses a simple mean of true range, not the smoothed ATR.
func SqueezeMomentum(candles []models.MCandle) SqueezeResult {
	if len(candles) < squeezeLength {
		return SqueezeResult{Color: models.ColorGray}
	}

	window := candles[len(candles)-squeezeLength:]
	closes := core.Closes(window)

	basis := core.Mean(closes)
	dev := core.CalculateSampleStd(closes)
	bbUpper := basis + bbMultiplier*dev
	bbLower := basis - bbMultiplier*dev

	ranges := core.TrueRanges(candles)
	rangeMA := core.SMA(ranges, squeezeLength)
	kcUpper := basis + kcMultiplier*rangeMA
	kcLower := basis - kcMultiplier*rangeMA

	midline := (core.HighestHigh(window) + core.LowestLow(window)) / 2
	momentum := candles[len(candles)-1].Close - midline

	var color models.SqueezeColor
	if len(candles) > 1 {
		// previous bar is measured against the current midline
		prev := candles[len(candles)-2].Close - midline
		color = squeezeColor(momentum, prev)
	} else if momentum > 0 {
		color = models.ColorGreen
	} else {
		color = models.ColorMaroon
	}

	return SqueezeResult{
		Value:      momentum,
		IsSqueezed: bbUpper < kcUpper && bbLower > kcLower,
		Color:      color,
	}
}

// -----------------------------------------------------------------------------

func squeezeColor(momentum, previous float64) models.SqueezeColor {
	if momentum > 0 {
		if momentum > previous {
			return models.ColorGreen
		}
		return models.ColorBlue
	}
	if momentum < previous {
		return models.ColorMaroon
	}
	return models.ColorGray
}

// -----------------------------------------------------------------------------

// DetermineTrend classifies the latest close against vwap.
func DetermineTrend(candles []models.MCandle, vwap float64) models.Trend {
	if len(candles) == 0 || vwap == 0 {
		return models.TrendNeutral
	}
	last := candles[len(candles)-1].Close

	switch {
	case last > vwap:
		// confirmation only; the verdict is the same either way
		if recentMove(candles) > 0 {
			return models.TrendBullish
		}
		return models.TrendBullish
	case last < vwap:
		if recentMove(candles) < 0 {
			return models.TrendBearish
		}
		return models.TrendBearish
	default:
		return models.TrendNeutral
	}
}

// -----------------------------------------------------------------------------

// recentMove is the close change over the last three bars, 0 with fewer bars.
func recentMove(candles []models.MCandle) float64 {
	if len(candles) < trendLookback {
		return 0
	}
	return candles[len(candles)-1].Close - candles[len(candles)-trendLookback].Close
}

// -----------------------------------------------------------------------------

// WeeklyAnchor returns Monday 00:00 UTC of the week containing ts (ms).
func WeeklyAnchor(ts int64) int64 {
	t := time.UnixMilli(ts).UTC()
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.UnixMilli() - int64(daysSinceMonday)*millisPerDay
}
