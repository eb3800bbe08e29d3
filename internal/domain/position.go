package domain

import "time"

// Position is one instrument's net directional exposure for a portfolio.
type Position struct {
	Ticker     string
	Type       PositionType
	EntryPrice float64 // volume-weighted average of opens at the current direction
	Quantity   float64
}

// PositionRequest is a portfolio's intent to open or close a long/short,
// later realized by the trade service as an Order. TradeRequestID is a
// portfolio-local monotone id used for the request history.
type PositionRequest struct {
	TradeRequestID string
	Ticker         string
	Action         RequestAction
	PositionType   PositionType
	Side           Side
	Quantity       float64
	Price          float64
	Commission     float64
	Timestamp      time.Time
}
