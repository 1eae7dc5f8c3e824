package main

import (
	"encoding/json"
	"fmt"

	"squeeze-trader/src/analysis"
	"squeeze-trader/src/backtest"
	datasource "squeeze-trader/src/data_source"
	"squeeze-trader/src/logger"
	"squeeze-trader/src/models"
	"squeeze-trader/src/storage"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// -----------------------------------------------------------------------------

func backtestCmd() *cobra.Command {
	var (
		candles15m string
		candles1h  string
		balance    float64
		csvPath    string
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay recorded candles through the simulator",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg, "backtest")

			c15m, err := datasource.LoadCandlesCSV(candles15m)
			if err != nil {
				return err
			}

			var c1h []models.MCandle
			if candles1h != "" {
				if c1h, err = datasource.LoadCandlesCSV(candles1h); err != nil {
					return err
				}
			} else {
				window := datasource.TimeframeMillis(cfg.Strategy.SecondaryTimeframe)
				c1h = analysis.ResampleCandles(c15m, window, false)
				log.Info("Resampled %d %s candles into %d %s candles", len(c15m),
					cfg.Strategy.PrimaryTimeframe, len(c1h), cfg.Strategy.SecondaryTimeframe)
			}

			if balance <= 0 {
				balance = cfg.Backtest.InitialBalance
			}

			sim := backtest.NewSimulator(cfg.MConfig, log)
			result, err := sim.Run(c15m, c1h, balance)
			if err != nil {
				return err
			}

			if err := journalBacktest(cfg.MConfig, result, log); err != nil {
				log.Error("Failed to journal backtest: %v", err)
			}

			if csvPath != "" {
				if err := backtest.WriteTradesCSVFile(csvPath, result.Trades); err != nil {
					return err
				}
				log.Info("Wrote %d trades to %s", len(result.Trades), csvPath)
			}

			summary := map[string]interface{}{
				"symbol":          cfg.Symbol,
				"initial_balance": result.InitialBalance,
				"final_balance":   result.FinalBalance,
				"bars_evaluated":  result.BarsEvaluated,
				"metrics":         result.Metrics.ToMap(),
			}
			out, err := json.MarshalIndent(summary, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&candles15m, "candles-15m", "", "CSV of primary timeframe candles (required)")
	cmd.Flags().StringVar(&candles1h, "candles-1h", "", "CSV of secondary timeframe candles (resampled from --candles-15m when empty)")
	cmd.Flags().Float64Var(&balance, "balance", 0, "initial balance (config value when zero)")
	cmd.Flags().StringVar(&csvPath, "csv", "", "write the trade log to this CSV file")
	cmd.MarkFlagRequired("candles-15m")
	return cmd
}

// -----------------------------------------------------------------------------

func journalBacktest(cfg *models.MConfig, result backtest.Result, log *logger.Logger) error {
	journal, err := storage.NewJournal(cfg, log.Named("journal"))
	if err != nil {
		return err
	}
	if err := journal.Initialize(); err != nil {
		return err
	}
	defer journal.Close()

	runID := uuid.NewString()
	run := models.MRun{
		ID:             runID,
		Mode:           models.ModeBacktest,
		Symbol:         cfg.Symbol,
		StartedAt:      models.NowMillis(),
		InitialBalance: result.InitialBalance,
	}
	if err := journal.StartRun(run); err != nil {
		return err
	}
	if err := journal.SaveTrades(runID, result.Trades); err != nil {
		return err
	}
	if err := journal.SaveEquityCurve(runID, result.EquityCurve); err != nil {
		return err
	}
	if err := journal.SaveMetrics(runID, result.Metrics, result.FinalBalance); err != nil {
		return err
	}
	log.Info("Journaled backtest run %s (%s)", runID, cfg.Storage.DBType)
	return nil
}
