package analysis

import (
	"sort"

	"squeeze-trader/src/models"
)

// TimeSeriesResampler groups timestamped rows into fixed, epoch-aligned windows.
type TimeSeriesResampler struct{}

// Window is one group of row indices sharing an aligned window.
type Window struct {
	Indices   []int
	StartTime int64
	EndTime   int64
}

// -----------------------------------------------------------------------------

// ResampleIndices returns window groupings for ascending timestamps. Windows
// are aligned on multiples of window; empty windows are skipped.
func (r *TimeSeriesResampler) ResampleIndices(timestamps []int64, window int64) []Window {
	if len(timestamps) == 0 || window <= 0 {
		return []Window{}
	}

	sorted := sort.SliceIsSorted(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })
	if !sorted {
		return []Window{}
	}

	first, _ := CalculateWindowBoundaries(timestamps[0], window)
	last := timestamps[len(timestamps)-1]

	var results []Window
	for start := first; start <= last; start += window {
		end := start + window

		startIdx := SearchSorted(timestamps, start, "left")
		endIdx := SearchSorted(timestamps, end, "left")

		if startIdx < endIdx {
			indices := make([]int, endIdx-startIdx)
			for idx := startIdx; idx < endIdx; idx++ {
				indices[idx-startIdx] = idx
			}
			results = append(results, Window{Indices: indices, StartTime: start, EndTime: end})
		}
	}

	return results
}

// -----------------------------------------------------------------------------

// ResampleCandles aggregates candles into window-sized bars (window in ms).
// Open is the first open, close the last close, high/low the extremes, volume the sum.
// The bar timestamp is the aligned window start. A trailing partial window
// is dropped unless includePartial is set.
func ResampleCandles(candles []models.MCandle, window int64, includePartial bool) []models.MCandle {
	if len(candles) == 0 {
		return nil
	}

	timestamps := make([]int64, len(candles))
	for i, c := range candles {
		timestamps[i] = c.Timestamp
	}

	r := &TimeSeriesResampler{}
	groups := r.ResampleIndices(timestamps, window)

	var step int64
	if len(candles) > 1 {
		step = candles[1].Timestamp - candles[0].Timestamp
	}

	out := make([]models.MCandle, 0, len(groups))
	for gi, g := range groups {
		if gi == len(groups)-1 && !includePartial && step > 0 {
			lastTs := timestamps[g.Indices[len(g.Indices)-1]]
			if lastTs+step < g.EndTime {
				continue
			}
		}

		firstC := candles[g.Indices[0]]
		bar := models.MCandle{
			Timestamp: g.StartTime,
			Open:      firstC.Open,
			High:      firstC.High,
			Low:       firstC.Low,
		}
		for _, idx := range g.Indices {
			c := candles[idx]
			if c.High > bar.High {
				bar.High = c.High
			}
			if c.Low < bar.Low {
				bar.Low = c.Low
			}
			bar.Volume += c.Volume
			bar.Close = c.Close
		}
		out = append(out, bar)
	}
	return out
}

// -----------------------------------------------------------------------------

// SearchSorted mirrors a left/right binary search over ascending values.
func SearchSorted(arr []int64, value int64, side string) int {
	if side == "left" {
		return sort.Search(len(arr), func(i int) bool {
			return arr[i] >= value
		})
	}
	return sort.Search(len(arr), func(i int) bool {
		return arr[i] > value
	})
}

// -----------------------------------------------------------------------------

// CalculateWindowBoundaries returns the aligned window containing ts.
func CalculateWindowBoundaries(ts int64, window int64) (int64, int64) {
	start := ts - (ts % window)
	return start, start + window
}
