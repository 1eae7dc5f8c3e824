package models

// MSignal is an entry (or exit) recommendation produced by the strategy.
type MSignal struct {
	Type       SignalType         `json:"type"`
	Symbol     string             `json:"symbol"`
	Timestamp  int64              `json:"timestamp"`
	Price      float64            `json:"price"`
	Indicators MIndicatorSnapshot `json:"indicators"`
}

// WithPrice returns a copy of the signal carrying a different price.
func (s MSignal) WithPrice(price float64) MSignal {
	s.Price = price
	return s
}
