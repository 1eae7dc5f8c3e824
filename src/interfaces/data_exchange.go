package interfaces

import "squeeze-trader/src/models"

// -----------------------------------------------------------------------------
// IDataExchanger shares runner state with external systems (REST/websocket).
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// -----------------------------------------------------------------------------
	// Broadcast pushes an event to connected listeners.
	Broadcast(event models.MEvent)

	// -----------------------------------------------------------------------------
	// UpdateStatus replaces the cached status without broadcasting.
	UpdateStatus(status models.MStatus)

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}
