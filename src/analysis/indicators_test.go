package analysis

import (
	"math"
	"testing"
	"time"

	"squeeze-trader/src/models"
)

func bar(ts int64, o, h, l, c, v float64) models.MCandle {
	return models.MCandle{Timestamp: ts, Open: o, High: h, Low: l, Close: c, Volume: v}
}

// linear builds n candles with close = start + step*i and a range of +-1.
func linear(n int, start, step float64) []models.MCandle {
	out := make([]models.MCandle, n)
	for i := range out {
		c := start + step*float64(i)
		out[i] = bar(int64(i)*900_000, c, c+1, c-1, c, 100)
	}
	return out
}

func TestVWAP(t *testing.T) {
	candles := []models.MCandle{
		bar(0, 50, 60, 40, 50, 5),
		bar(1, 10, 12, 8, 10, 1),
		bar(2, 20, 22, 18, 20, 3),
	}
	tests := []struct {
		name    string
		candles []models.MCandle
		anchor  int64
		want    float64
	}{
		{"anchored", candles, 1, 17.5},
		{"empty", nil, 0, 0},
		{"anchor after all bars", candles, 10, 0},
		{"zero volume", []models.MCandle{bar(0, 1, 2, 0, 1, 0)}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VWAP(tt.candles, tt.anchor); math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("VWAP = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestATR(t *testing.T) {
	candles := []models.MCandle{
		bar(0, 9, 10, 8, 9, 1),
		bar(1, 9, 11, 9, 10, 1),
		bar(2, 10, 14, 10, 13, 1),
		bar(3, 13, 13, 12, 12, 1),
	}
	if got := ATR(candles, 2); math.Abs(got-(1.0+2.0/3.0)) > 1e-9 {
		t.Fatalf("ATR = %v", got)
	}
	if got := ATR(candles[:2], 2); got != 0 {
		t.Fatalf("insufficient data should give 0, got %v", got)
	}
}

func TestADX(t *testing.T) {
	if got := ADX(linear(28, 100, 1), 14); got != 100 {
		t.Fatalf("pure uptrend ADX = %v, want 100", got)
	}
	if got := ADX(linear(28, 200, -1), 14); got != 100 {
		t.Fatalf("pure downtrend ADX = %v, want 100", got)
	}
	if got := ADX(linear(27, 100, 1), 14); got != 0 {
		t.Fatalf("insufficient data ADX = %v", got)
	}

	flat := make([]models.MCandle, 30)
	for i := range flat {
		flat[i] = bar(int64(i), 5, 5, 5, 5, 1)
	}
	if got := ADX(flat, 14); got != 0 {
		t.Fatalf("flat market ADX = %v, want 0", got)
	}
}

func TestADXBounded(t *testing.T) {
	candles := make([]models.MCandle, 60)
	for i := range candles {
		c := 100 + 5*math.Sin(float64(i)/3)
		candles[i] = bar(int64(i), c, c+1.5, c-1, c, 10)
	}
	got := ADX(candles, 14)
	if got < 0 || got > 100 || math.IsNaN(got) {
		t.Fatalf("ADX out of range: %v", got)
	}
}

func TestRVOL(t *testing.T) {
	vols := func(v ...float64) []models.MCandle {
		out := make([]models.MCandle, len(v))
		for i, x := range v {
			out[i] = bar(int64(i), 1, 1, 1, 1, x)
		}
		return out
	}
	tests := []struct {
		name    string
		candles []models.MCandle
		want    float64
	}{
		{"double average", vols(99, 10, 10, 10, 20), 2},
		{"zero average", vols(0, 0, 0, 5), 0},
		{"insufficient", vols(10, 10, 20), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RVOL(tt.candles, 3); got != tt.want {
				t.Fatalf("RVOL = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSqueezeMomentum(t *testing.T) {
	flat := make([]models.MCandle, 20)
	for i := range flat {
		flat[i] = bar(int64(i), 100, 101, 99, 100, 1)
	}

	blue := linear(20, 100, 1)
	blue[19] = bar(blue[19].Timestamp, 115, 116, 114, 115, 100)

	tests := []struct {
		name     string
		candles  []models.MCandle
		value    float64
		squeezed bool
		color    models.SqueezeColor
	}{
		{"insufficient", linear(19, 100, 1), 0, false, models.ColorGray},
		{"flat is squeezed", flat, 0, true, models.ColorGray},
		{"rising momentum", linear(20, 100, 1), 9.5, false, models.ColorGreen},
		{"fading positive momentum", blue, 6, false, models.ColorBlue},
		{"falling momentum", linear(20, 119, -1), -9.5, false, models.ColorMaroon},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SqueezeMomentum(tt.candles)
			if math.Abs(got.Value-tt.value) > 1e-9 || got.IsSqueezed != tt.squeezed || got.Color != tt.color {
				t.Fatalf("got %+v, want value=%v squeezed=%v color=%v", got, tt.value, tt.squeezed, tt.color)
			}
		})
	}
}

func TestDetermineTrend(t *testing.T) {
	up := linear(5, 100, 1)
	down := linear(5, 100, -1)
	tests := []struct {
		name    string
		candles []models.MCandle
		vwap    float64
		want    models.Trend
	}{
		{"no candles", nil, 100, models.TrendNeutral},
		{"zero vwap", up, 0, models.TrendNeutral},
		{"above rising", up, 100, models.TrendBullish},
		{"above falling", down, 90, models.TrendBullish},
		{"below falling", down, 100, models.TrendBearish},
		{"below rising", up, 110, models.TrendBearish},
		{"at vwap", up, 104, models.TrendNeutral},
		{"single bar above", up[:1], 50, models.TrendBullish},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetermineTrend(tt.candles, tt.vwap); got != tt.want {
				t.Fatalf("DetermineTrend = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWeeklyAnchor(t *testing.T) {
	monday := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	tests := []struct {
		name string
		at   time.Time
	}{
		{"monday midnight", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"wednesday afternoon", time.Date(2024, 1, 3, 15, 30, 0, 0, time.UTC)},
		{"sunday late", time.Date(2024, 1, 7, 23, 59, 59, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeeklyAnchor(tt.at.UnixMilli()); got != monday {
				t.Fatalf("WeeklyAnchor = %v, want %v", time.UnixMilli(got).UTC(), time.UnixMilli(monday).UTC())
			}
		})
	}
	next := time.Date(2024, 1, 8, 0, 0, 0, 1_000_000, time.UTC).UnixMilli()
	if got := WeeklyAnchor(next); got != monday+7*millisPerDay {
		t.Fatalf("next week anchor = %v", got)
	}
}
