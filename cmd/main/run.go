package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"squeeze-trader/src/analysis"
	datasource "squeeze-trader/src/data_source"
	"squeeze-trader/src/grpc_control"
	"squeeze-trader/src/models"
	"squeeze-trader/src/server"
	"squeeze-trader/src/storage"
	"squeeze-trader/src/telemetry"
	"squeeze-trader/src/trader"

	"github.com/spf13/cobra"
)

// -----------------------------------------------------------------------------

func runCmd() *cobra.Command {
	var (
		candles15m string
		interval   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Paper trade by replaying recorded candles as a live feed",
		Long: `run streams recorded candles into the live runner with a paper gateway.
SIGINT/SIGTERM stop gracefully and SIGUSR1 triggers the panic close.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.RunMode == models.ModeLive {
				return errors.New("LIVE mode needs an exchange gateway; use PAPER")
			}
			if cfg.RunMode == models.ModeBacktest {
				cfg.RunMode = models.ModePaper
			}
			log := newLogger(cfg, "runner")

			c15m, err := datasource.LoadCandlesCSV(candles15m)
			if err != nil {
				return err
			}
			c1h := analysis.ResampleCandles(c15m, datasource.TimeframeMillis(cfg.Strategy.SecondaryTimeframe), false)

			// 1. Journal
			journal, err := storage.NewJournal(cfg.MConfig, log.Named("journal"))
			if err != nil {
				return err
			}
			if err := journal.Initialize(); err != nil {
				return err
			}
			defer journal.Close()

			// 2. Runner
			metrics := telemetry.NewMetrics(cfg.Symbol, cfg.RunMode)
			runner := trader.NewRunner(cfg.MConfig, trader.NewPaperGateway(), journal, log).WithMetrics(metrics)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			// 3. Control plane
			if cfg.Server.Enabled {
				api := server.NewAPIServer(cfg.MConfig, runner, metrics.Registry, log.Named("api"))
				runner.WithExchanger(api)
				go func() {
					if err := api.Start(); err != nil {
						log.Error("API server failed: %v", err)
					}
				}()
				defer api.Stop()

				grpcSrv := grpc_control.NewGrpcServer(cfg.MConfig, grpc_control.NewControlService(runner, log.Named("grpc")), log.Named("grpc"))
				go func() {
					if err := grpcSrv.Start(); err != nil {
						log.Error("gRPC server failed: %v", err)
					}
				}()
				defer grpcSrv.Stop()
			}

			// 4. Operator panic on SIGUSR1
			panicSignal := make(chan os.Signal, 1)
			signal.Notify(panicSignal, syscall.SIGUSR1)
			defer signal.Stop(panicSignal)
			go func() {
				select {
				case <-panicSignal:
					log.Warning("SIGUSR1 received, closing all positions")
					if _, err := runner.Panic(ctx); err != nil {
						log.Error("Panic failed: %v", err)
					}
				case <-ctx.Done():
				}
			}()

			feed := datasource.NewReplayFeed(c15m, c1h, interval, log.Named("feed"))
			feed.PrimaryTimeframe = cfg.Strategy.PrimaryTimeframe
			feed.SecondaryTimeframe = cfg.Strategy.SecondaryTimeframe

			if err := runner.Run(ctx, feed); err != nil {
				return err
			}
			status := runner.Status()
			log.Info("Session %s finished: balance=%.2f trades=%d signals_enabled=%v",
				runner.RunID(), status.Balance, status.ClosedTradeCount, status.SignalsEnabled)
			return nil
		},
	}

	cmd.Flags().StringVar(&candles15m, "candles-15m", "", "CSV of primary timeframe candles to replay (required)")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "delay between replayed primary candles")
	cmd.MarkFlagRequired("candles-15m")
	return cmd
}
