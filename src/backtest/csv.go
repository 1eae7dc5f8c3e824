package backtest

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"squeeze-trader/src/models"
)

var tradeCSVHeader = []string{
	"id", "symbol", "side", "entry_time", "exit_time", "entry", "exit", "qty",
	"pnl", "pnl_percent", "exit_reason",
}

// -----------------------------------------------------------------------------

// WriteTradesCSV writes one row per trade with RFC3339 UTC timestamps.
func WriteTradesCSV(w io.Writer, trades []models.MTrade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tradeCSVHeader); err != nil {
		return err
	}
	for _, t := range trades {
		row := []string{
			t.ID, t.Symbol, string(t.Side),
			formatMillis(t.EntryTime), formatMillis(t.ExitTime),
			formatF(t.EntryPrice), formatF(t.ExitPrice), formatF(t.Quantity),
			formatF(t.PnL), formatF(t.PnLPercent), string(t.ExitReason),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// -----------------------------------------------------------------------------

// WriteTradesCSVFile creates path and writes the trades into it.
func WriteTradesCSVFile(path string, trades []models.MTrade) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteTradesCSV(f, trades)
}

func formatF(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
