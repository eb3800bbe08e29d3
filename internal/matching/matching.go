// Package matching implements the price-time priority matching algorithm
// as a free function over a *book.Book, keeping the matching engine
// stateless and driving a book's exported lock rather than owning one
// itself.
package matching

import (
	"fmt"
	"time"

	"venue/internal/book"
	"venue/internal/domain"
)

// opposite returns the side an incoming order of side crosses against.
func opposite(side domain.Side) domain.Side {
	if side == domain.Bid {
		return domain.Ask
	}
	return domain.Bid
}

// crosses reports whether incoming can trade against restBest, the
// opposite side's best resting order: a market order always crosses if
// any resting order exists; a limit bid crosses a resting ask priced at
// or below it; a limit ask crosses a resting bid priced at or above it.
func crosses(incoming *domain.Order, restBest *domain.Order) bool {
	if incoming.Kind == domain.Market {
		return true
	}
	if incoming.Side == domain.Bid {
		return incoming.LimitPrice >= restBest.LimitPrice
	}
	return incoming.LimitPrice <= restBest.LimitPrice
}

// tradePrice is the execution price for a cross between incoming and
// resting: the earlier-timestamped order is the maker and its price
// governs, since it was quoted first and must not be moved against by a
// later marketable order (the price-improvement rule). If the two carry
// the same timestamp, the bid's price governs. A market order carries no
// usable limit price, so the resting side's price is the only candidate
// whenever incoming is a market order, regardless of timestamps.
func tradePrice(incoming, resting *domain.Order) float64 {
	if incoming.Kind == domain.Market {
		return resting.LimitPrice
	}
	switch {
	case incoming.Timestamp.Before(resting.Timestamp):
		return incoming.LimitPrice
	case resting.Timestamp.Before(incoming.Timestamp):
		return resting.LimitPrice
	default:
		if incoming.Side == domain.Bid {
			return incoming.LimitPrice
		}
		return resting.LimitPrice
	}
}

// Process runs order against b: it repeatedly crosses order against the
// opposite side's best price-time priority order, recording a Trade per
// fill, until order is exhausted, the book side empties, or the two no
// longer cross. A market order's unfilled residual is discarded; a limit
// order's unfilled residual rests on the book.
//
// Process takes b's lock for the duration of the call, so a single
// incoming order's whole match-and-rest sequence is atomic with respect to
// any other order on the same book.
func Process(order *domain.Order, b *book.Book, now time.Time) ([]domain.Trade, error) {
	if order.Ticker != b.Ticker {
		return nil, fmt.Errorf("%w: order for %s submitted to book %s", domain.ErrInvalidOrder, order.Ticker, b.Ticker)
	}

	b.Lock()
	defer b.Unlock()

	restingSide := opposite(order.Side)

	var trades []domain.Trade
	for order.Quantity > 0 {
		level := b.BestLevelLocked(restingSide)
		if level == nil {
			break
		}
		restBest := level.Orders.Front().Value.(*domain.Order)
		if !crosses(order, restBest) {
			break
		}

		price := tradePrice(order, restBest)
		fillQty := min(order.Quantity, restBest.Quantity)

		trade := domain.Trade{
			Price:      price,
			Quantity:   fillQty,
			Instrument: b.Ticker,
			Timestamp:  now,
		}
		if order.Side == domain.Bid {
			trade.BuyerOrderID, trade.SellerOrderID = order.OrderID, restBest.OrderID
		} else {
			trade.BuyerOrderID, trade.SellerOrderID = restBest.OrderID, order.OrderID
		}
		trades = append(trades, b.RecordTradeLocked(trade))

		order.Quantity -= fillQty
		restBest.Quantity -= fillQty
		if restBest.Quantity <= 0 {
			b.PopFrontLocked(restingSide, level)
		}
	}

	if order.Quantity > 0 && order.Kind == domain.Limit {
		b.RestLocked(order)
	}

	return trades, nil
}
