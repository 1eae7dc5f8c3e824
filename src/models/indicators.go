package models

// MIndicatorSnapshot is the full indicator state at one instant.
// It is replaced wholesale on every update and copied by value to readers.
type MIndicatorSnapshot struct {
	CurrentPrice         float64      `json:"current_price"`
	VWAP15m              float64      `json:"vwap_15m"`
	VWAP1h               float64      `json:"vwap_1h"`
	ATR15m               float64      `json:"atr_15m"`
	ATR1h                float64      `json:"atr_1h"`
	ADX                  float64      `json:"adx"`
	RVOL                 float64      `json:"rvol"`
	SqueezeValue         float64      `json:"squeeze_value"`
	SqueezeColor         SqueezeColor `json:"squeeze_color"`
	PreviousSqueezeColor SqueezeColor `json:"previous_squeeze_color"`
	IsSqueezed           bool         `json:"is_squeezed"`
	Trend15m             Trend        `json:"trend_15m"`
	Trend1h              Trend        `json:"trend_1h"`
	PriceVsVWAP          PriceVsVWAP  `json:"price_vs_vwap"`
	WeeklyAnchorTime     int64        `json:"weekly_anchor_time"`
}

// NewIndicatorSnapshot returns the neutral snapshot a fresh engine starts with.
func NewIndicatorSnapshot() MIndicatorSnapshot {
	return MIndicatorSnapshot{
		SqueezeColor:         ColorGray,
		PreviousSqueezeColor: ColorGray,
		Trend15m:             TrendNeutral,
		Trend1h:              TrendNeutral,
		PriceVsVWAP:          PriceBelow,
	}
}
