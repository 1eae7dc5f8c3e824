package models

// MPosition is an open position. StopLoss is set once at open,
// TrailingStop only ever moves in the position's favour.
type MPosition struct {
	ID            string  `json:"id"`
	Symbol        string  `json:"symbol"`
	Side          Side    `json:"side"`
	EntryPrice    float64 `json:"entry_price"`
	Quantity      float64 `json:"quantity"`
	Leverage      int     `json:"leverage"`
	StopLoss      float64 `json:"stop_loss"`
	TrailingStop  float64 `json:"trailing_stop"`
	EntryTime     int64   `json:"entry_time"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

// PnLAt returns the profit of the position if it were closed at price.
func (p MPosition) PnLAt(price float64) float64 {
	if p.Side == SideLong {
		return (price - p.EntryPrice) * p.Quantity
	}
	return (p.EntryPrice - price) * p.Quantity
}

// MTrade is the immutable record of a closed position.
type MTrade struct {
	ID         string     `json:"id"`
	Symbol     string     `json:"symbol"`
	Side       Side       `json:"side"`
	EntryPrice float64    `json:"entry_price"`
	ExitPrice  float64    `json:"exit_price"`
	Quantity   float64    `json:"quantity"`
	PnL        float64    `json:"pnl"`
	PnLPercent float64    `json:"pnl_percent"`
	EntryTime  int64      `json:"entry_time"`
	ExitTime   int64      `json:"exit_time"`
	ExitReason ExitReason `json:"exit_reason"`
}

// MSizing is the position sizer's output.
type MSizing struct {
	Quantity         float64 `json:"quantity"`
	StopLossDistance float64 `json:"stop_loss_distance"`
}
