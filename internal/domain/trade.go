package domain

import "time"

// Trade is an immutable execution record. Appended once to a book's trade
// log; never mutated.
type Trade struct {
	TradeID       uint64
	BuyerOrderID  string
	SellerOrderID string
	Price         float64
	Quantity      float64
	Instrument    string
	Timestamp     time.Time
}
