package storage

import (
	"database/sql"

	"squeeze-trader/src/logger"
	"squeeze-trader/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type SQLiteJournal struct {
	sqlJournal
	Config *models.MConfig
}

// -----------------------------------------------------------------------------

func NewSQLiteJournal(cfg *models.MConfig, log *logger.Logger) *SQLiteJournal {
	return &SQLiteJournal{
		Config: cfg,
		sqlJournal: sqlJournal{
			Logger: log,
			dialect: dialect{
				table:       func(name string) string { return name },
				placeholder: func(int) string { return "?" },
				realType:    "REAL",
				bigintType:  "INTEGER",
			},
		},
	}
}

// -----------------------------------------------------------------------------

func (d *SQLiteJournal) Initialize() error {
	db, err := sql.Open("sqlite", d.Config.Storage.DBPath)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	// a single connection keeps in-memory databases shared across calls
	db.SetMaxOpenConns(1)
	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	if err := d.createTables(); err != nil {
		return err
	}
	d.Logger.Info("SQLite journal ready at %s", d.Config.Storage.DBPath)
	return nil
}
