package trader

import (
	"context"
	"sync"

	"squeeze-trader/src/helpers"
	"squeeze-trader/src/models"
)

// MOrder is a fill recorded by the paper gateway.
type MOrder struct {
	Symbol   string
	Side     models.OrderSide
	Quantity float64
	Price    float64
}

// -----------------------------------------------------------------------------

// PaperGateway fills every order at the requested price.
type PaperGateway struct {
	mu     sync.Mutex
	orders []MOrder
}

func NewPaperGateway() *PaperGateway {
	return &PaperGateway{}
}

// -----------------------------------------------------------------------------

func (g *PaperGateway) PlaceMarketOrder(ctx context.Context, symbol string, side models.OrderSide, quantity, price float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if !side.Valid() {
		return 0, helpers.NewValidationError(helpers.ErrInvalidSide, "order side %q", side)
	}
	if price <= 0 {
		return 0, helpers.NewValidationError(helpers.ErrNonPositivePrice, "order price %v", price)
	}

	g.mu.Lock()
	g.orders = append(g.orders, MOrder{Symbol: symbol, Side: side, Quantity: quantity, Price: price})
	g.mu.Unlock()
	return price, nil
}

// -----------------------------------------------------------------------------

// Orders returns a copy of the fills so far.
func (g *PaperGateway) Orders() []MOrder {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]MOrder, len(g.orders))
	copy(out, g.orders)
	return out
}
