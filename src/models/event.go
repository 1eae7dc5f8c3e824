package models

// Event types pushed to stream subscribers.
const (
	EventSignal   = "SIGNAL"
	EventOpen     = "POSITION_OPENED"
	EventStops    = "STOPS_UPDATED"
	EventClose    = "POSITION_CLOSED"
	EventPanic    = "PANIC"
	EventSnapshot = "INDICATORS"
)

// MEvent is one message on the runner's outbound stream.
type MEvent struct {
	Type      string      `json:"type"`
	Symbol    string      `json:"symbol"`
	Timestamp int64       `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// MStatus is the runner state exposed to operators.
type MStatus struct {
	Symbol           string              `json:"symbol"`
	RunMode          RunMode             `json:"run_mode"`
	Balance          float64             `json:"balance"`
	SignalsEnabled   bool                `json:"signals_enabled"`
	Running          bool                `json:"running"`
	CandlesProcessed int64               `json:"candles_processed"`
	LastCandleTime   int64               `json:"last_candle_time"`
	ActivePositions  []MPosition         `json:"active_positions"`
	ClosedTradeCount int                 `json:"closed_trade_count"`
	Indicators       MIndicatorSnapshot  `json:"indicators"`
	Metrics          MPerformanceMetrics `json:"metrics"`
	JournalHealthy   bool                `json:"journal_healthy"`
}

// MRun identifies one backtest or paper session in the journal.
type MRun struct {
	ID             string  `json:"id"`
	Mode           RunMode `json:"mode"`
	Symbol         string  `json:"symbol"`
	StartedAt      int64   `json:"started_at"`
	InitialBalance float64 `json:"initial_balance"`
}
