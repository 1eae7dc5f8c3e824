package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"squeeze-trader/src/models"
)

// Metrics groups the prometheus collectors of one trading process.
// Every collector carries the symbol and run mode labels.
type Metrics struct {
	Registry *prometheus.Registry
	labels   prometheus.Labels

	candles   *prometheus.CounterVec
	signals   *prometheus.CounterVec
	trades    *prometheus.CounterVec
	pnl       *prometheus.CounterVec
	balance   *prometheus.GaugeVec
	position  *prometheus.GaugeVec
	panicked  *prometheus.GaugeVec
	indicator *prometheus.GaugeVec
}

// -----------------------------------------------------------------------------

// NewMetrics registers the collectors on a private registry so tests and
// several runners in one process do not collide.
func NewMetrics(symbol string, mode models.RunMode) *Metrics {
	labelNames := []string{"symbol", "mode"}
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		labels: prometheus.Labels{
			"symbol": symbol,
			"mode":   string(mode),
		},
		candles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "squeeze",
			Name:      "candles_processed_total",
			Help:      "Closed candles consumed by the runner.",
		}, append(labelNames, "timeframe")),
		signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "squeeze",
			Name:      "signals_total",
			Help:      "Entry signals generated.",
		}, append(labelNames, "type")),
		trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "squeeze",
			Name:      "trades_closed_total",
			Help:      "Closed trades by exit reason.",
		}, append(labelNames, "reason")),
		pnl: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "squeeze",
			Name:      "realized_pnl_abs_total",
			Help:      "Absolute realized PnL split by outcome.",
		}, append(labelNames, "outcome")),
		balance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "squeeze",
			Name:      "balance",
			Help:      "Account balance after realized PnL.",
		}, labelNames),
		position: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "squeeze",
			Name:      "position_quantity",
			Help:      "Signed open position quantity; negative when short.",
		}, labelNames),
		panicked: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "squeeze",
			Name:      "panic_latched",
			Help:      "1 once the panic close has disabled signal generation.",
		}, labelNames),
		indicator: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "squeeze",
			Name:      "indicator",
			Help:      "Latest indicator snapshot values.",
		}, append(labelNames, "name")),
	}

	m.Registry.MustRegister(m.candles, m.signals, m.trades, m.pnl, m.balance, m.position, m.panicked, m.indicator)
	return m
}

// -----------------------------------------------------------------------------

func (m *Metrics) with(key, value string) prometheus.Labels {
	l := prometheus.Labels{key: value}
	for k, v := range m.labels {
		l[k] = v
	}
	return l
}

// -----------------------------------------------------------------------------

func (m *Metrics) ObserveCandle(timeframe string) {
	m.candles.With(m.with("timeframe", timeframe)).Inc()
}

// -----------------------------------------------------------------------------

func (m *Metrics) ObserveSignal(signal models.MSignal) {
	m.signals.With(m.with("type", string(signal.Type))).Inc()
}

// -----------------------------------------------------------------------------

func (m *Metrics) ObserveTrade(trade models.MTrade) {
	m.trades.With(m.with("reason", string(trade.ExitReason))).Inc()
	if trade.PnL >= 0 {
		m.pnl.With(m.with("outcome", "win")).Add(trade.PnL)
	} else {
		m.pnl.With(m.with("outcome", "loss")).Add(-trade.PnL)
	}
}

// -----------------------------------------------------------------------------

func (m *Metrics) SetBalance(balance float64) {
	m.balance.With(m.labels).Set(balance)
}

// -----------------------------------------------------------------------------

// SetPosition records the open position, or zero when flat.
func (m *Metrics) SetPosition(position *models.MPosition) {
	qty := 0.0
	if position != nil {
		qty = position.Quantity
		if position.Side == models.SideShort {
			qty = -qty
		}
	}
	m.position.With(m.labels).Set(qty)
}

// -----------------------------------------------------------------------------

func (m *Metrics) SetPanicked(latched bool) {
	v := 0.0
	if latched {
		v = 1
	}
	m.panicked.With(m.labels).Set(v)
}

// -----------------------------------------------------------------------------

func (m *Metrics) ObserveIndicators(s models.MIndicatorSnapshot) {
	for name, v := range map[string]float64{
		"price":    s.CurrentPrice,
		"vwap_15m": s.VWAP15m,
		"vwap_1h":  s.VWAP1h,
		"atr_15m":  s.ATR15m,
		"atr_1h":   s.ATR1h,
		"adx":      s.ADX,
		"rvol":     s.RVOL,
		"squeeze":  s.SqueezeValue,
	} {
		m.indicator.With(m.with("name", name)).Set(v)
	}
}
