package config

import (
	"fmt"
	"os"
	"strings"

	"squeeze-trader/src/helpers"
	"squeeze-trader/src/models"

	"gopkg.in/yaml.v3"
)

// ValidTimeframes lists the candle intervals accepted for the two strategy timeframes.
var ValidTimeframes = []string{"1m", "3m", "5m", "15m", "30m", "1h", "2h", "4h", "6h", "8h", "12h", "1d"}

// Environment variables that override file values.
const (
	EnvAPIKey     = "BINANCE_API_KEY"
	EnvAPISecret  = "BINANCE_API_SECRET"
	EnvSymbol     = "TRADING_SYMBOL"
	EnvRunMode    = "RUN_MODE"
	EnvLogLevel   = "LOG_LEVEL"
	EnvDBConnInfo = "DB_CONNECTION_STRING"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
	appliedDefaults []string
}

// -----------------------------------------------------------------------------

// Default returns the stock configuration.
func Default() *Config {
	return &Config{MConfig: &models.MConfig{
		Name:     "squeeze-trader",
		Symbol:   "BTCUSDT",
		RunMode:  models.ModeBacktest,
		LogLevel: "INFO",
		Strategy: models.MStrategyConfig{
			PrimaryTimeframe:          "15m",
			SecondaryTimeframe:        "1h",
			RiskPerTrade:              0.01,
			Leverage:                  3,
			StopLossATRMultiplier:     2.0,
			TrailingStopATRMultiplier: 1.5,
			ATRPeriod:                 14,
			ADXPeriod:                 14,
			ADXThreshold:              20.0,
			RVOLPeriod:                20,
			RVOLThreshold:             1.2,
		},
		Backtest: models.MBacktestConfig{
			Days:           90,
			InitialBalance: 10000,
			TradingFee:     0.0005,
			Slippage:       0.0002,
			WarmupBars:     50,
			Min1hCandles:   30,
		},
		Storage: models.MStorageConfig{
			DBType: "sqlite",
			DBPath: "squeeze-trader.db",
		},
		Server: models.MServerConfig{
			Enabled:  true,
			Host:     "127.0.0.1",
			Port:     8090,
			GrpcHost: "127.0.0.1",
			GrpcPort: 50051,
		},
	}}
}

// -----------------------------------------------------------------------------

// NewConfig loads a YAML file on top of the defaults, applies environment
// overrides and validates the result.
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	config, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// 2. Environment takes priority over the file
	config.ApplyEnv(os.Getenv)

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// Parse decodes YAML over the defaults and records which keys were missing.
func Parse(data []byte) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal(data, config.MConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	var present map[string]interface{}
	if err := yaml.Unmarshal(data, &present); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}
	config.appliedDefaults = missingKeys(present)

	return config, nil
}

// -----------------------------------------------------------------------------

// ApplyEnv overrides credentials, symbol, run mode, log level and the database DSN from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvAPIKey); v != "" {
		c.APIKey = v
	}
	if v := getenv(EnvAPISecret); v != "" {
		c.APISecret = v
	}
	if v := getenv(EnvSymbol); v != "" {
		c.Symbol = v
	}
	if v := getenv(EnvRunMode); v != "" {
		c.RunMode = models.RunMode(strings.ToUpper(v))
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := getenv(EnvDBConnInfo); v != "" {
		c.Storage.DBConnectionString = v
	}
}

// -----------------------------------------------------------------------------

// Validate checks every parameter and reports all problems at once.
func (c *Config) Validate() error {
	var errs []string
	add := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if c.Symbol == "" {
		add("symbol cannot be empty")
	}
	if !c.RunMode.Valid() {
		add("invalid run_mode '%s' (must be one of BACKTEST, PAPER, LIVE)", c.RunMode)
	}
	if c.RunMode == models.ModeLive {
		if c.APIKey == "" {
			add("api_key is required for LIVE mode")
		}
		if c.APISecret == "" {
			add("api_secret is required for LIVE mode")
		}
	}

	s := c.Strategy
	if s.RiskPerTrade <= 0 || s.RiskPerTrade > 1.0 {
		add("invalid risk_per_trade %v (must be in (0, 1])", s.RiskPerTrade)
	}
	if s.Leverage < 1 || s.Leverage > 125 {
		add("invalid leverage %d (must be between 1 and 125)", s.Leverage)
	}
	if s.StopLossATRMultiplier <= 0 {
		add("invalid stop_loss_atr_multiplier %v (must be positive)", s.StopLossATRMultiplier)
	}
	if s.TrailingStopATRMultiplier <= 0 {
		add("invalid trailing_stop_atr_multiplier %v (must be positive)", s.TrailingStopATRMultiplier)
	}
	if s.ATRPeriod < 1 {
		add("invalid atr_period %d (must be at least 1)", s.ATRPeriod)
	}
	if s.ADXPeriod < 1 {
		add("invalid adx_period %d (must be at least 1)", s.ADXPeriod)
	}
	if s.ADXThreshold < 0 || s.ADXThreshold > 100 {
		add("invalid adx_threshold %v (must be between 0 and 100)", s.ADXThreshold)
	}
	if s.RVOLPeriod < 1 {
		add("invalid rvol_period %d (must be at least 1)", s.RVOLPeriod)
	}
	if s.RVOLThreshold <= 0 {
		add("invalid rvol_threshold %v (must be positive)", s.RVOLThreshold)
	}
	if !validTimeframe(s.PrimaryTimeframe) {
		add("invalid primary_timeframe '%s'", s.PrimaryTimeframe)
	}
	if !validTimeframe(s.SecondaryTimeframe) {
		add("invalid secondary_timeframe '%s'", s.SecondaryTimeframe)
	}

	b := c.Backtest
	if b.Days < 1 {
		add("invalid backtest days %d (must be at least 1)", b.Days)
	}
	if b.TradingFee < 0 || b.TradingFee > 0.01 {
		add("invalid trading_fee %v (must be between 0 and 0.01)", b.TradingFee)
	}
	if b.Slippage < 0 || b.Slippage > 0.01 {
		add("invalid slippage %v (must be between 0 and 0.01)", b.Slippage)
	}
	if b.InitialBalance <= 0 {
		add("invalid initial_balance %v (must be positive)", b.InitialBalance)
	}
	if b.WarmupBars < 0 {
		add("invalid warmup_bars %d (cannot be negative)", b.WarmupBars)
	}
	if b.Min1hCandles < 0 {
		add("invalid min_1h_candles %d (cannot be negative)", b.Min1hCandles)
	}

	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" {
			add("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			add("db_connection_string cannot be empty for postgres")
		}
	case "none":
	default:
		add("invalid db_type '%s' (must be sqlite, postgres or none)", c.Storage.DBType)
	}

	if c.Server.Enabled {
		if c.Server.Host == "" {
			add("server host cannot be empty")
		}
		if c.Server.Port <= 1024 || c.Server.Port > 65535 {
			add("invalid server port number: %d (must be between 1025 and 65535)", c.Server.Port)
		}
		if c.Server.GrpcPort < 0 || c.Server.GrpcPort > 65535 {
			add("invalid grpc port number: %d", c.Server.GrpcPort)
		}
	}

	if len(errs) > 0 {
		return helpers.NewConfigurationError(nil, "%d invalid parameter(s):\n  - %s", len(errs), strings.Join(errs, "\n  - "))
	}
	return nil
}

// -----------------------------------------------------------------------------

// AppliedDefaults lists the keys that were absent from the loaded file.
func (c *Config) AppliedDefaults() []string {
	out := make([]string, len(c.appliedDefaults))
	copy(out, c.appliedDefaults)
	return out
}

// -----------------------------------------------------------------------------

// RedactedAPIKey is the API key safe for logs.
func (c *Config) RedactedAPIKey() string {
	return RedactKey(c.APIKey)
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}

// -----------------------------------------------------------------------------

// RedactKey keeps the first and last four characters of a secret.
func RedactKey(key string) string {
	if len(key) < 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// -----------------------------------------------------------------------------

func validTimeframe(tf string) bool {
	for _, v := range ValidTimeframes {
		if v == tf {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------

// trackedKeys are the dotted YAML paths reported by AppliedDefaults.
var trackedKeys = []string{
	"symbol", "run_mode", "log_level", "api_key", "api_secret",
	"strategy.primary_timeframe", "strategy.secondary_timeframe",
	"strategy.risk_per_trade", "strategy.leverage",
	"strategy.stop_loss_atr_multiplier", "strategy.trailing_stop_atr_multiplier",
	"strategy.atr_period", "strategy.adx_period", "strategy.adx_threshold",
	"strategy.rvol_period", "strategy.rvol_threshold",
	"backtest.days", "backtest.initial_balance", "backtest.trading_fee",
	"backtest.slippage", "backtest.warmup_bars", "backtest.min_1h_candles",
	"storage.db_type", "storage.db_path",
}

func missingKeys(present map[string]interface{}) []string {
	var missing []string
	for _, path := range trackedKeys {
		parts := strings.SplitN(path, ".", 2)
		node, ok := present[parts[0]]
		if ok && len(parts) == 2 {
			section, isMap := node.(map[string]interface{})
			_, ok = section[parts[1]]
			ok = ok && isMap
		}
		if !ok {
			missing = append(missing, path)
		}
	}
	return missing
}
