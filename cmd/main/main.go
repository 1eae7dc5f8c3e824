package main

import (
	"fmt"
	"os"

	"squeeze-trader/src/config"
	"squeeze-trader/src/logger"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	configPath string
	logLevel   string
)

// -----------------------------------------------------------------------------

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// -----------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "squeeze-trader",
		Short: "Squeeze momentum futures trader",
		Long: `squeeze-trader evaluates a squeeze-momentum strategy on 15m/1h candles.
It backtests recorded history or replays it as a paper session with a
REST, websocket and gRPC control plane.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config (defaults are used when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")

	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(backtestCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(configCmd())
	return rootCmd
}

// -----------------------------------------------------------------------------

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "squeeze-trader version %s\n", version)
		},
	}
}

// -----------------------------------------------------------------------------

// loadConfig reads --config when set, otherwise starts from the defaults.
// Environment overrides apply in both cases.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if configPath != "" {
		loaded, err := config.NewConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
		cfg.ApplyEnv(os.Getenv)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

// -----------------------------------------------------------------------------

func newLogger(cfg *config.Config, name string) *logger.Logger {
	log := logger.NewLogger(cfg.LogLevel, name)
	for _, key := range cfg.AppliedDefaults() {
		log.Debug("config key %s not set, using default", key)
	}
	return log
}
