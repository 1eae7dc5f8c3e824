package models

// MPerformanceMetrics is the backtest summary. The field set is fixed.
type MPerformanceMetrics struct {
	TotalTrades          int     `json:"total_trades"`
	WinningTrades        int     `json:"winning_trades"`
	LosingTrades         int     `json:"losing_trades"`
	WinRate              float64 `json:"win_rate"`
	TotalPnL             float64 `json:"total_pnl"`
	ROI                  float64 `json:"roi"`
	AverageWin           float64 `json:"average_win"`
	AverageLoss          float64 `json:"average_loss"`
	LargestWin           float64 `json:"largest_win"`
	LargestLoss          float64 `json:"largest_loss"`
	ProfitFactor         float64 `json:"profit_factor"`
	MaxDrawdown          float64 `json:"max_drawdown"`
	SharpeRatio          float64 `json:"sharpe_ratio"`
	AverageTradeDuration int64   `json:"average_trade_duration"`
}

// MetricKeys lists the metric names in report order.
var MetricKeys = []string{
	"total_trades", "winning_trades", "losing_trades", "win_rate",
	"total_pnl", "roi", "average_win", "average_loss", "largest_win",
	"largest_loss", "profit_factor", "max_drawdown", "sharpe_ratio",
	"average_trade_duration",
}

// ToMap flattens the metrics into the fixed key set.
func (m MPerformanceMetrics) ToMap() map[string]float64 {
	return map[string]float64{
		"total_trades":           float64(m.TotalTrades),
		"winning_trades":         float64(m.WinningTrades),
		"losing_trades":          float64(m.LosingTrades),
		"win_rate":               m.WinRate,
		"total_pnl":              m.TotalPnL,
		"roi":                    m.ROI,
		"average_win":            m.AverageWin,
		"average_loss":           m.AverageLoss,
		"largest_win":            m.LargestWin,
		"largest_loss":           m.LargestLoss,
		"profit_factor":          m.ProfitFactor,
		"max_drawdown":           m.MaxDrawdown,
		"sharpe_ratio":           m.SharpeRatio,
		"average_trade_duration": float64(m.AverageTradeDuration),
	}
}
