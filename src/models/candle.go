package models

// MCandle is one OHLCV bar. Timestamp is the bar open time in Unix milliseconds.
type MCandle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// MCandleEvent is a closed candle delivered by a feed for one timeframe.
type MCandleEvent struct {
	Timeframe string  `json:"timeframe"`
	Candle    MCandle `json:"candle"`
}
