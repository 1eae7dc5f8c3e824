package storage

import (
	"database/sql"
	"fmt"

	"squeeze-trader/src/logger"
	"squeeze-trader/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresJournal struct {
	sqlJournal
	Config *models.MConfig
	Schema string
}

// -----------------------------------------------------------------------------

// NewPostgresJournal keeps all tables in a schema named after the application.
func NewPostgresJournal(cfg *models.MConfig, log *logger.Logger) *PostgresJournal {
	schema := cfg.Name
	if schema == "" {
		schema = "squeeze_trader"
	}
	return &PostgresJournal{
		Config: cfg,
		Schema: schema,
		sqlJournal: sqlJournal{
			Logger: log,
			dialect: dialect{
				table:       func(name string) string { return fmt.Sprintf(`"%s"."%s"`, schema, name) },
				placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
				realType:    "DOUBLE PRECISION",
				bigintType:  "BIGINT",
			},
		},
	}
}

// -----------------------------------------------------------------------------

func (d *PostgresJournal) Initialize() error {
	db, err := sql.Open("postgres", d.Config.Storage.DBConnectionString)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	d.DB = db

	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresJournal initialized successfully (Schema: %s)", d.Schema)
	return nil
}
