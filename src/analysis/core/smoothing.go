package core

import "math"

// -----------------------------------------------------------------------------

// SeededEMA seeds with the mean of the first period values and then applies
// ema = v*alpha + ema*(1-alpha), alpha = 2/(period+1), over the rest.
// Returns 0 when fewer than period values are available.
func SeededEMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}
	alpha := 2.0 / float64(period+1)
	ema := Mean(values[:period])
	for _, v := range values[period:] {
		ema = v*alpha + ema*(1-alpha)
	}
	return ema
}

// -----------------------------------------------------------------------------

// RecursiveEWM is a non-adjusted exponentially weighted mean with smoothing
// factor alpha, evaluated over the whole series.
//
// NaN inputs are treated as missing: output stays NaN until the first real
// observation, and a gap decays the weight of the running value so the next
// observation counts for more.
func RecursiveEWM(values []float64, alpha float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	decay := 1 - alpha
	weighted := values[0]
	oldWeight := 1.0
	out[0] = weighted

	for i := 1; i < len(values); i++ {
		cur := values[i]
		observed := !math.IsNaN(cur)

		if !math.IsNaN(weighted) {
			oldWeight *= decay
			if observed {
				if weighted != cur {
					weighted = (oldWeight*weighted + alpha*cur) / (oldWeight + alpha)
				}
				oldWeight = 1
			}
		} else if observed {
			weighted = cur
		}
		out[i] = weighted
	}
	return out
}
