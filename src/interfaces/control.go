package interfaces

import (
	"context"

	"squeeze-trader/src/models"
)

// -----------------------------------------------------------------------------
// ITraderControl is the operator surface shared by the REST and gRPC servers.
// -----------------------------------------------------------------------------

type ITraderControl interface {

	// Status returns a snapshot of the runner state.
	Status() models.MStatus

	// -----------------------------------------------------------------------------

	// Trades returns the closed trades of the current run.
	Trades() []models.MTrade

	// -----------------------------------------------------------------------------

	// Panic closes every position and disables signal generation for good.
	Panic(ctx context.Context) ([]models.MTrade, error)
}
