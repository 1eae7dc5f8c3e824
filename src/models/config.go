package models

// MConfig Structure
type MConfig struct {
	Name      string          `yaml:"name" json:"name"`
	Symbol    string          `yaml:"symbol" json:"symbol"`
	RunMode   RunMode         `yaml:"run_mode" json:"run_mode"`
	LogLevel  string          `yaml:"log_level" json:"log_level"`
	APIKey    string          `yaml:"api_key" json:"-"`
	APISecret string          `yaml:"api_secret" json:"-"`
	Strategy  MStrategyConfig `yaml:"strategy" json:"strategy"`
	Backtest  MBacktestConfig `yaml:"backtest" json:"backtest"`
	Storage   MStorageConfig  `yaml:"storage" json:"storage"`
	Server    MServerConfig   `yaml:"server" json:"server"`
}

type MStrategyConfig struct {
	PrimaryTimeframe          string  `yaml:"primary_timeframe" json:"primary_timeframe"`
	SecondaryTimeframe        string  `yaml:"secondary_timeframe" json:"secondary_timeframe"`
	RiskPerTrade              float64 `yaml:"risk_per_trade" json:"risk_per_trade"`
	Leverage                  int     `yaml:"leverage" json:"leverage"`
	StopLossATRMultiplier     float64 `yaml:"stop_loss_atr_multiplier" json:"stop_loss_atr_multiplier"`
	TrailingStopATRMultiplier float64 `yaml:"trailing_stop_atr_multiplier" json:"trailing_stop_atr_multiplier"`
	ATRPeriod                 int     `yaml:"atr_period" json:"atr_period"`
	ADXPeriod                 int     `yaml:"adx_period" json:"adx_period"`
	ADXThreshold              float64 `yaml:"adx_threshold" json:"adx_threshold"`
	RVOLPeriod                int     `yaml:"rvol_period" json:"rvol_period"`
	RVOLThreshold             float64 `yaml:"rvol_threshold" json:"rvol_threshold"`
}

type MBacktestConfig struct {
	Days           int     `yaml:"days" json:"days"`
	InitialBalance float64 `yaml:"initial_balance" json:"initial_balance"`
	TradingFee     float64 `yaml:"trading_fee" json:"trading_fee"`
	Slippage       float64 `yaml:"slippage" json:"slippage"`
	WarmupBars     int     `yaml:"warmup_bars" json:"warmup_bars"`
	Min1hCandles   int     `yaml:"min_1h_candles" json:"min_1h_candles"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type" json:"db_type"`
	DBPath             string `yaml:"db_path" json:"db_path"`
	DBConnectionString string `yaml:"db_connection_string" json:"-"`
}

type MServerConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	GrpcHost string `yaml:"grpc_host" json:"grpc_host"`
	GrpcPort int    `yaml:"grpc_port" json:"grpc_port"`
}
