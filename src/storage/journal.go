package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"squeeze-trader/src/logger"
	"squeeze-trader/src/models"
)

// dialect hides the differences between sqlite and postgres SQL.
type dialect struct {
	// table returns the qualified table name
	table func(name string) string
	// placeholder returns the n-th (1-based) bind parameter
	placeholder func(n int) string
	realType    string
	bigintType  string
}

// -----------------------------------------------------------------------------

// sqlJournal implements the journal on top of database/sql.
type sqlJournal struct {
	DB      *sql.DB
	Logger  *logger.Logger
	dialect dialect
}

// -----------------------------------------------------------------------------

func (j *sqlJournal) params(n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = j.dialect.placeholder(i + 1)
	}
	return strings.Join(ps, ", ")
}

// -----------------------------------------------------------------------------

func (j *sqlJournal) createTables() error {
	d := j.dialect
	statements := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id TEXT PRIMARY KEY,
				mode TEXT,
				symbol TEXT,
				started_at %s,
				initial_balance %s,
				final_balance %s,
				total_trades INTEGER,
				winning_trades INTEGER,
				losing_trades INTEGER,
				win_rate %s,
				total_pnl %s,
				roi %s,
				average_win %s,
				average_loss %s,
				largest_win %s,
				largest_loss %s,
				profit_factor %s,
				max_drawdown %s,
				sharpe_ratio %s,
				average_trade_duration %s
			);`, d.table("runs"), d.bigintType, d.realType, d.realType,
			d.realType, d.realType, d.realType, d.realType, d.realType, d.realType,
			d.realType, d.realType, d.realType, d.realType, d.bigintType),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id TEXT,
				trade_id TEXT,
				symbol TEXT,
				side TEXT,
				entry_price %s,
				exit_price %s,
				quantity %s,
				pnl %s,
				pnl_percent %s,
				entry_time %s,
				exit_time %s,
				exit_reason TEXT,
				PRIMARY KEY (run_id, trade_id)
			);`, d.table("trades"), d.realType, d.realType, d.realType, d.realType,
			d.realType, d.bigintType, d.bigintType),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id TEXT,
				signal_type TEXT,
				symbol TEXT,
				timestamp %s,
				price %s,
				indicators TEXT
			);`, d.table("signals"), d.bigintType, d.realType),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id TEXT,
				seq INTEGER,
				equity %s,
				PRIMARY KEY (run_id, seq)
			);`, d.table("equity_curve"), d.realType),
	}

	for _, stmt := range statements {
		if _, err := j.DB.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create journal tables: %w", err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

func (j *sqlJournal) StartRun(run models.MRun) error {
	query := fmt.Sprintf(`INSERT INTO %s (run_id, mode, symbol, started_at, initial_balance) VALUES (%s)`,
		j.dialect.table("runs"), j.params(5))
	_, err := j.DB.Exec(query, run.ID, string(run.Mode), run.Symbol, run.StartedAt, run.InitialBalance)
	return err
}

// -----------------------------------------------------------------------------

func (j *sqlJournal) SaveSignal(runID string, signal models.MSignal) error {
	snapshot, err := json.Marshal(signal.Indicators)
	if err != nil {
		return fmt.Errorf("failed to encode indicator snapshot: %w", err)
	}
	query := fmt.Sprintf(`INSERT INTO %s (run_id, signal_type, symbol, timestamp, price, indicators) VALUES (%s)`,
		j.dialect.table("signals"), j.params(6))
	_, err = j.DB.Exec(query, runID, string(signal.Type), signal.Symbol, signal.Timestamp, signal.Price, string(snapshot))
	return err
}

// -----------------------------------------------------------------------------

func (j *sqlJournal) SaveTrades(runID string, trades []models.MTrade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := j.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(fmt.Sprintf(`
		INSERT INTO %s (run_id, trade_id, symbol, side, entry_price, exit_price, quantity, pnl, pnl_percent, entry_time, exit_time, exit_reason)
		VALUES (%s)
	`, j.dialect.table("trades"), j.params(12)))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range trades {
		_, err := stmt.Exec(runID, t.ID, t.Symbol, string(t.Side), t.EntryPrice, t.ExitPrice, t.Quantity,
			t.PnL, t.PnLPercent, t.EntryTime, t.ExitTime, string(t.ExitReason))
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (j *sqlJournal) SaveEquityCurve(runID string, equity []float64) error {
	tx, err := j.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	table := j.dialect.table("equity_curve")
	if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM %s WHERE run_id = %s`, table, j.dialect.placeholder(1)), runID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(fmt.Sprintf(`INSERT INTO %s (run_id, seq, equity) VALUES (%s)`, table, j.params(3)))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range equity {
		if _, err := stmt.Exec(runID, i, e); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (j *sqlJournal) SaveMetrics(runID string, m models.MPerformanceMetrics, finalBalance float64) error {
	p := j.dialect.placeholder
	query := fmt.Sprintf(`
		UPDATE %s SET
			final_balance = %s, total_trades = %s, winning_trades = %s, losing_trades = %s,
			win_rate = %s, total_pnl = %s, roi = %s, average_win = %s, average_loss = %s,
			largest_win = %s, largest_loss = %s, profit_factor = %s, max_drawdown = %s,
			sharpe_ratio = %s, average_trade_duration = %s
		WHERE run_id = %s
	`, j.dialect.table("runs"), p(1), p(2), p(3), p(4), p(5), p(6), p(7), p(8), p(9),
		p(10), p(11), p(12), p(13), p(14), p(15), p(16))

	res, err := j.DB.Exec(query, finalBalance, m.TotalTrades, m.WinningTrades, m.LosingTrades,
		m.WinRate, m.TotalPnL, m.ROI, m.AverageWin, m.AverageLoss, m.LargestWin, m.LargestLoss,
		m.ProfitFactor, m.MaxDrawdown, m.SharpeRatio, m.AverageTradeDuration, runID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (j *sqlJournal) LoadTrades(runID string) ([]models.MTrade, error) {
	rows, err := j.DB.Query(fmt.Sprintf(`
		SELECT trade_id, symbol, side, entry_price, exit_price, quantity, pnl, pnl_percent, entry_time, exit_time, exit_reason
		FROM %s WHERE run_id = %s ORDER BY exit_time, trade_id
	`, j.dialect.table("trades"), j.dialect.placeholder(1)), runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []models.MTrade
	for rows.Next() {
		var t models.MTrade
		var side, reason string
		if err := rows.Scan(&t.ID, &t.Symbol, &side, &t.EntryPrice, &t.ExitPrice, &t.Quantity,
			&t.PnL, &t.PnLPercent, &t.EntryTime, &t.ExitTime, &reason); err != nil {
			return nil, err
		}
		t.Side = models.Side(side)
		t.ExitReason = models.ExitReason(reason)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// -----------------------------------------------------------------------------

func (j *sqlJournal) Close() error {
	if j.DB != nil {
		return j.DB.Close()
	}
	return nil
}
