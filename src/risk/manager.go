package risk

import (
	"sort"
	"sync"

	"squeeze-trader/src/helpers"
	"squeeze-trader/src/logger"
	"squeeze-trader/src/models"

	"github.com/google/uuid"
)

// Manager owns the active position set and the closed-trade log.
// Every exported method is atomic with respect to the others.
type Manager struct {
	mu sync.Mutex

	symbol   string
	leverage int
	cfg      models.MStrategyConfig
	clock    models.Clock
	Logger   *logger.Logger

	active         map[string]*models.MPosition
	closed         []models.MTrade
	signalsEnabled bool
}

// -----------------------------------------------------------------------------

func NewManager(symbol string, cfg models.MStrategyConfig, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Manager{
		symbol:         symbol,
		leverage:       cfg.Leverage,
		cfg:            cfg,
		clock:          models.NowMillis,
		Logger:         log,
		active:         make(map[string]*models.MPosition),
		signalsEnabled: true,
	}
}

// -----------------------------------------------------------------------------

// WithClock replaces the exit-time clock.
func (m *Manager) WithClock(c models.Clock) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = c
	return m
}

// -----------------------------------------------------------------------------
// Atomic sequences
// -----------------------------------------------------------------------------

// Tx exposes the mutators without re-locking. It is only valid inside WithLock.
type Tx struct {
	m *Manager
}

// WithLock runs fn while holding the manager lock, so a
// read-decide-mutate sequence cannot interleave with a panic close.
func (m *Manager) WithLock(fn func(tx *Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&Tx{m: m})
}

func (tx *Tx) OpenPosition(signal models.MSignal, balance, atr float64) (models.MPosition, error) {
	return tx.m.openPosition(signal, balance, atr)
}

func (tx *Tx) UpdateStops(symbol string, price, atr float64) (models.MPosition, error) {
	return tx.m.updateStops(symbol, price, atr)
}

func (tx *Tx) ClosePosition(symbol string, exitPrice float64, reason models.ExitReason) (models.MTrade, error) {
	return tx.m.closePosition(symbol, exitPrice, reason)
}

func (tx *Tx) CloseAllPositions(price float64) ([]models.MTrade, error) {
	return tx.m.closeAll(price)
}

func (tx *Tx) ActivePosition(symbol string) (models.MPosition, bool) {
	p, ok := tx.m.active[symbol]
	if !ok {
		return models.MPosition{}, false
	}
	return *p, true
}

// EntryAllowed reports why a new position cannot be opened for symbol:
// ErrPositionExists while one is active, ErrSignalsDisabled once the panic
// latch is set.
func (tx *Tx) EntryAllowed(symbol string) error {
	if _, ok := tx.m.active[symbol]; ok {
		return helpers.NewInvariantError(helpers.ErrPositionExists, "%s already has an open position", symbol)
	}
	if !tx.m.signalsEnabled {
		return helpers.NewValidationError(helpers.ErrSignalsDisabled, "entries for %s are latched off", symbol)
	}
	return nil
}

// DisableSignals sets the panic latch without closing anything. It is used
// when a panic arrives before any price is known and no position can exist.
func (tx *Tx) DisableSignals() {
	tx.m.signalsEnabled = false
}

// -----------------------------------------------------------------------------
// Mutators
// -----------------------------------------------------------------------------

// OpenPosition sizes and registers a position from an entry signal.
// An existing position for the symbol is replaced; callers check HasActivePosition first.
func (m *Manager) OpenPosition(signal models.MSignal, balance, atr float64) (models.MPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openPosition(signal, balance, atr)
}

func (m *Manager) openPosition(signal models.MSignal, balance, atr float64) (models.MPosition, error) {
	if !signal.Type.IsEntry() {
		return models.MPosition{}, helpers.NewInvariantError(helpers.ErrInvalidSignalType,
			"cannot open position from signal type %q", signal.Type)
	}

	side := models.SideLong
	if signal.Type == models.SignalShortEntry {
		side = models.SideShort
	}

	sizing := Size(balance, signal.Price, atr, m.cfg)
	stop := signal.Price - sizing.StopLossDistance
	if side == models.SideShort {
		stop = signal.Price + sizing.StopLossDistance
	}

	if _, exists := m.active[m.symbol]; exists {
		m.Logger.Warning("Replacing open %s position", m.symbol)
	}

	position := &models.MPosition{
		ID:           uuid.NewString(),
		Symbol:       m.symbol,
		Side:         side,
		EntryPrice:   signal.Price,
		Quantity:     sizing.Quantity,
		Leverage:     m.leverage,
		StopLoss:     stop,
		TrailingStop: stop,
		EntryTime:    signal.Timestamp,
	}
	m.active[m.symbol] = position

	m.Logger.Info("Opened %s %s qty=%.6f entry=%.4f stop=%.4f", side, m.symbol, position.Quantity, position.EntryPrice, stop)
	return *position, nil
}

// -----------------------------------------------------------------------------

// UpdateStops ratchets the trailing stop and refreshes unrealized PnL.
func (m *Manager) UpdateStops(symbol string, price, atr float64) (models.MPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateStops(symbol, price, atr)
}

func (m *Manager) updateStops(symbol string, price, atr float64) (models.MPosition, error) {
	position, ok := m.active[symbol]
	if !ok {
		return models.MPosition{}, helpers.NewValidationError(helpers.ErrNoActivePosition, "update stops for %s", symbol)
	}
	position.TrailingStop = TrailingStop(*position, price, atr, m.cfg)
	position.UnrealizedPnL = position.PnLAt(price)
	return *position, nil
}

// -----------------------------------------------------------------------------

// CheckStopHit reports whether price has reached the trailing stop. Touching counts.
func CheckStopHit(position models.MPosition, price float64) bool {
	if position.Side == models.SideLong {
		return price <= position.TrailingStop
	}
	return price >= position.TrailingStop
}

// -----------------------------------------------------------------------------

// ClosePosition realizes the position for symbol at exitPrice.
// Validation happens before any state change.
func (m *Manager) ClosePosition(symbol string, exitPrice float64, reason models.ExitReason) (models.MTrade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closePosition(symbol, exitPrice, reason)
}

func (m *Manager) closePosition(symbol string, exitPrice float64, reason models.ExitReason) (models.MTrade, error) {
	if !reason.Valid() {
		return models.MTrade{}, helpers.NewInvariantError(helpers.ErrInvalidExitReason, "exit reason %q", reason)
	}
	if exitPrice <= 0 {
		return models.MTrade{}, helpers.NewValidationError(helpers.ErrNonPositivePrice, "exit price %v", exitPrice)
	}
	position, ok := m.active[symbol]
	if !ok {
		return models.MTrade{}, helpers.NewValidationError(helpers.ErrNoActivePosition, "close %s", symbol)
	}

	pnl := position.PnLAt(exitPrice)
	value := position.EntryPrice * position.Quantity
	pnlPercent := 0.0
	if value > 0 {
		pnlPercent = pnl / value * 100
	}

	trade := models.MTrade{
		ID:         position.ID,
		Symbol:     position.Symbol,
		Side:       position.Side,
		EntryPrice: position.EntryPrice,
		ExitPrice:  exitPrice,
		Quantity:   position.Quantity,
		PnL:        pnl,
		PnLPercent: pnlPercent,
		EntryTime:  position.EntryTime,
		ExitTime:   m.clock(),
		ExitReason: reason,
	}
	m.closed = append(m.closed, trade)
	delete(m.active, symbol)

	m.Logger.Info("Closed %s %s at %.4f (%s) pnl=%.4f", trade.Side, symbol, exitPrice, reason, pnl)
	return trade, nil
}

// -----------------------------------------------------------------------------

// CloseAllPositions is the panic path: everything is closed at price with
// reason PANIC and signal generation is disabled for good.
func (m *Manager) CloseAllPositions(price float64) ([]models.MTrade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeAll(price)
}

func (m *Manager) closeAll(price float64) ([]models.MTrade, error) {
	if price <= 0 {
		return nil, helpers.NewValidationError(helpers.ErrNonPositivePrice, "panic close price %v", price)
	}

	symbols := make([]string, 0, len(m.active))
	for s := range m.active {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	trades := make([]models.MTrade, 0, len(symbols))
	for _, s := range symbols {
		trade, err := m.closePosition(s, price, models.ExitPanic)
		if err != nil {
			return trades, err
		}
		trades = append(trades, trade)
	}

	m.signalsEnabled = false
	m.Logger.Warning("Panic close: %d position(s) closed, signal generation disabled", len(trades))
	return trades, nil
}

// -----------------------------------------------------------------------------
// Readers
// -----------------------------------------------------------------------------

func (m *Manager) IsSignalGenerationEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signalsEnabled
}

func (m *Manager) HasActivePosition(symbol string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[symbol]
	return ok
}

// ActivePosition returns a copy of the open position for symbol.
func (m *Manager) ActivePosition(symbol string) (models.MPosition, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.active[symbol]
	if !ok {
		return models.MPosition{}, false
	}
	return *p, true
}

// ActivePositions returns copies of all open positions ordered by symbol.
func (m *Manager) ActivePositions() []models.MPosition {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.MPosition, 0, len(m.active))
	for _, p := range m.active {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// ClosedTrades returns a copy of the trade log.
func (m *Manager) ClosedTrades() []models.MTrade {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.MTrade, len(m.closed))
	copy(out, m.closed)
	return out
}

func (m *Manager) Symbol() string {
	return m.symbol
}
