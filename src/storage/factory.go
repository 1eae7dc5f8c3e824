package storage

import (
	"fmt"

	"squeeze-trader/src/interfaces"
	"squeeze-trader/src/logger"
	"squeeze-trader/src/models"
)

// -----------------------------------------------------------------------------

// NewJournal picks the journal backend from the storage config. It is not initialized yet.
func NewJournal(cfg *models.MConfig, log *logger.Logger) (interfaces.IJournal, error) {
	switch cfg.Storage.DBType {
	case "postgres":
		return NewPostgresJournal(cfg, log), nil
	case "sqlite", "":
		return NewSQLiteJournal(cfg, log), nil
	case "none":
		return NopJournal{}, nil
	default:
		return nil, fmt.Errorf("unsupported db_type %q", cfg.Storage.DBType)
	}
}

// -----------------------------------------------------------------------------

// NopJournal discards everything.
type NopJournal struct{}

func (NopJournal) Initialize() error                                             { return nil }
func (NopJournal) StartRun(models.MRun) error                                    { return nil }
func (NopJournal) SaveSignal(string, models.MSignal) error                       { return nil }
func (NopJournal) SaveTrades(string, []models.MTrade) error                      { return nil }
func (NopJournal) SaveEquityCurve(string, []float64) error                       { return nil }
func (NopJournal) SaveMetrics(string, models.MPerformanceMetrics, float64) error { return nil }
func (NopJournal) LoadTrades(string) ([]models.MTrade, error)                    { return nil, nil }
func (NopJournal) Close() error                                                  { return nil }
