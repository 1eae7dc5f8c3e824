package interfaces

import (
	"context"
	"sync"

	"squeeze-trader/src/models"
)

// -----------------------------------------------------------------------------
// ICandleFeed delivers closed candles for the primary and secondary timeframes.
// -----------------------------------------------------------------------------

type ICandleFeed interface {

	// Name returns the unique identifier of the feed
	Name() string

	// -----------------------------------------------------------------------------

	// Start pushes closed candles to out until the history is exhausted or ctx is cancelled.
	// out is closed when the feed stops; wg is released at the same time.
	Start(ctx context.Context, out chan<- models.MCandleEvent, wg *sync.WaitGroup) error
}

// -----------------------------------------------------------------------------
// IExecutionGateway places market orders on behalf of the runner.
// -----------------------------------------------------------------------------

type IExecutionGateway interface {

	// PlaceMarketOrder fills quantity at roughly price and returns the fill price.
	PlaceMarketOrder(ctx context.Context, symbol string, side models.OrderSide, quantity, price float64) (float64, error)
}
