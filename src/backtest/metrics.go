package backtest

import (
	"math"

	"squeeze-trader/src/analysis/core"
	"squeeze-trader/src/models"
)

// Trading periods per year used to annualize the per-trade Sharpe ratio.
const annualizationPeriods = 250

// -----------------------------------------------------------------------------

// CalculateMetrics summarizes a trade log and equity curve. No trades gives all zeros.
func CalculateMetrics(trades []models.MTrade, equity []float64, initialBalance float64) models.MPerformanceMetrics {
	if len(trades) == 0 {
		return models.MPerformanceMetrics{}
	}

	m := models.MPerformanceMetrics{TotalTrades: len(trades)}

	var grossProfit, grossLoss float64
	var wins, losses int
	var durationSum int64
	for _, t := range trades {
		m.TotalPnL += t.PnL
		durationSum += t.ExitTime - t.EntryTime

		if t.PnL > 0 {
			m.WinningTrades++
			wins++
			grossProfit += t.PnL
			if t.PnL > m.LargestWin {
				m.LargestWin = t.PnL
			}
		} else {
			// break-even trades count as losing
			m.LosingTrades++
		}
		if t.PnL < 0 {
			losses++
			grossLoss += t.PnL
			if t.PnL < m.LargestLoss {
				m.LargestLoss = t.PnL
			}
		}
	}

	m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
	if initialBalance > 0 {
		m.ROI = m.TotalPnL / initialBalance * 100
	}
	if wins > 0 {
		m.AverageWin = grossProfit / float64(wins)
	}
	if losses > 0 {
		m.AverageLoss = grossLoss / float64(losses)
	}
	if grossLoss != 0 {
		m.ProfitFactor = grossProfit / math.Abs(grossLoss)
	}
	m.MaxDrawdown = MaxDrawdown(equity)
	m.SharpeRatio = SharpeRatio(trades)
	m.AverageTradeDuration = durationSum / int64(len(trades))

	return m
}

// -----------------------------------------------------------------------------

// MaxDrawdown is the largest absolute drop from a running peak.
func MaxDrawdown(equity []float64) float64 {
	if len(equity) == 0 {
		return 0
	}
	peak := equity[0]
	maxDD := 0.0
	for _, e := range equity {
		if e > peak {
			peak = e
		}
		if dd := peak - e; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// -----------------------------------------------------------------------------

// SharpeRatio uses per-trade fractional returns and population deviation,
// scaled by sqrt(250). Fewer than two trades or zero deviation gives 0.
func SharpeRatio(trades []models.MTrade) float64 {
	if len(trades) < 2 {
		return 0
	}
	returns := make([]float64, len(trades))
	for i, t := range trades {
		returns[i] = t.PnLPercent / 100
	}
	mean, std := core.CalculateMeanStd(returns)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(annualizationPeriods)
}
