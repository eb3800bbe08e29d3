package domain

import (
	"fmt"
	"time"
)

// Order is an intent to trade one instrument. Quantity decrements as the
// matching engine fills it; a fully-filled order is removed from the book,
// never left at zero quantity.
type Order struct {
	OrderID     string
	PortfolioID string
	Ticker      string
	Side        Side
	Kind        Kind
	LimitPrice  float64 // ignored but retained for market orders
	Quantity    float64
	Timestamp   time.Time
}

// SyntheticPortfolioID marks orders generated by a simulator rather than a
// real portfolio.
const SyntheticPortfolioID = "synthetic"

// New validates and constructs an Order. Side and Kind are always valid by
// construction (typed enums), so only quantity/price are checked here.
func New(orderID, portfolioID, ticker string, side Side, kind Kind, limitPrice, quantity float64, ts time.Time) (Order, error) {
	if quantity <= 0 {
		return Order{}, fmt.Errorf("%w: quantity %v must be positive", ErrInvalidOrder, quantity)
	}
	if kind == Limit && limitPrice <= 0 {
		return Order{}, fmt.Errorf("%w: limit price %v must be positive", ErrInvalidOrder, limitPrice)
	}
	return Order{
		OrderID:     orderID,
		PortfolioID: portfolioID,
		Ticker:      ticker,
		Side:        side,
		Kind:        kind,
		LimitPrice:  limitPrice,
		Quantity:    quantity,
		Timestamp:   ts,
	}, nil
}
