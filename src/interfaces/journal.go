package interfaces

import "squeeze-trader/src/models"

// -----------------------------------------------------------------------------
// IJournal persists runs, signals, trades, equity and metrics.
// -----------------------------------------------------------------------------

type IJournal interface {

	// Initialize opens the connection and creates missing tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// StartRun registers a run before anything is recorded against it.
	StartRun(run models.MRun) error

	// -----------------------------------------------------------------------------

	// SaveSignal records an entry signal together with its indicator snapshot.
	SaveSignal(runID string, signal models.MSignal) error

	// -----------------------------------------------------------------------------

	// SaveTrades inserts closed trades.
	SaveTrades(runID string, trades []models.MTrade) error

	// -----------------------------------------------------------------------------

	// SaveEquityCurve replaces the stored curve for the run.
	SaveEquityCurve(runID string, equity []float64) error

	// -----------------------------------------------------------------------------

	// SaveMetrics stores the run summary.
	SaveMetrics(runID string, metrics models.MPerformanceMetrics, finalBalance float64) error

	// -----------------------------------------------------------------------------

	// LoadTrades returns the trades of a run in exit order.
	LoadTrades(runID string) ([]models.MTrade, error)

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
