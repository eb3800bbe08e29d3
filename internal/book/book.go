// Package book implements a single instrument's order book: two price-time
// priority sides plus the append-only trade log produced by matching against
// them.
package book

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"venue/internal/domain"
	"venue/internal/priceindex"
)

// location is where a resting order lives, so Cancel can find and remove it
// without scanning either side.
type location struct {
	side   domain.Side
	order  *domain.Order
	handle priceindex.Handle
}

// Book is one instrument's order book. Every exported method except
// Lock/Unlock and the *Locked family takes the book's lock itself, so its
// callers need not lock externally — one mutex per Book, never a global lock.
type Book struct {
	mu sync.Mutex

	Ticker string
	bids   *priceindex.Index
	asks   *priceindex.Index

	resting map[string]location // orderID -> location, for O(1) cancel
	trades  []domain.Trade
	nextTID uint64
}

// New returns an empty book for ticker.
func New(ticker string) *Book {
	return &Book{
		Ticker:  ticker,
		bids:    priceindex.NewBidIndex(),
		asks:    priceindex.NewAskIndex(),
		resting: make(map[string]location),
	}
}

// indexFor returns the side's index. It is unexported; the matching engine
// reaches the indices through the *Locked methods below.
func (b *Book) indexFor(side domain.Side) *priceindex.Index {
	if side == domain.Bid {
		return b.bids
	}
	return b.asks
}

// rest inserts order onto its side's index and records its location for
// O(1) cancellation. Callers must already hold b.mu (Add and addLocked do;
// the matching package reaches it through RestLocked under Lock/Unlock).
func (b *Book) rest(order *domain.Order) {
	idx := b.indexFor(order.Side)
	handle := idx.Insert(order.LimitPrice, order)
	b.resting[order.OrderID] = location{side: order.Side, order: order, handle: handle}
}

// unrest removes order's location bookkeeping without touching the index
// (used once a resting order has been fully consumed by a match).
func (b *Book) unrest(orderID string) {
	delete(b.resting, orderID)
}

// Add places order on the book without matching it. Matching is the
// responsibility of the matching package, which operates on a locked Book
// via Lock/Unlock plus the *Locked accessors below; Add exists for placing
// orders directly (tests, seeding a book). The matching engine rests the
// unfilled remainder of a limit order through RestLocked, not Add.
func (b *Book) Add(order domain.Order) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addLocked(order)
}

func (b *Book) addLocked(order domain.Order) error {
	if _, exists := b.resting[order.OrderID]; exists {
		log.Warn().Str("ticker", b.Ticker).Str("order_id", order.OrderID).Msg("rejected duplicate order id")
		return fmt.Errorf("%w: %s", domain.ErrDuplicateOrderID, order.OrderID)
	}
	o := order
	b.rest(&o)
	return nil
}

// Cancel removes a resting order. Returns domain.ErrUnknownEntity if no such
// order is resting (already filled, cancelled, or never placed).
func (b *Book) Cancel(orderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	loc, ok := b.resting[orderID]
	if !ok {
		log.Warn().Str("ticker", b.Ticker).Str("order_id", orderID).Msg("cancel requested for unknown order")
		return fmt.Errorf("%w: order %s", domain.ErrUnknownEntity, orderID)
	}
	b.indexFor(loc.side).Remove(loc.handle)
	b.unrest(orderID)
	return nil
}

// BestBid returns the highest resting bid, or ok=false if the bid side is
// empty.
func (b *Book) BestBid() (domain.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.bids.Best()
	if o == nil {
		return domain.Order{}, false
	}
	return *o, true
}

// BestAsk returns the lowest resting ask, or ok=false if the ask side is
// empty.
func (b *Book) BestAsk() (domain.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.asks.Best()
	if o == nil {
		return domain.Order{}, false
	}
	return *o, true
}

// Spread returns bestAsk - bestBid, or ok=false if either side is empty.
func (b *Book) Spread() (float64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	bid, ok := b.bids.PeekPrice()
	if !ok {
		return 0, false
	}
	ask, ok := b.asks.PeekPrice()
	if !ok {
		return 0, false
	}
	return ask - bid, true
}

// Trades returns a copy of the book's execution log, in execution order.
func (b *Book) Trades() []domain.Trade {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Trade, len(b.trades))
	copy(out, b.trades)
	return out
}

// Lock and Unlock expose the book's mutex to the matching package, which
// must hold it across the whole check-cross/fill/rest sequence for a single
// incoming order. No other package may call these.
func (b *Book) Lock()   { b.mu.Lock() }
func (b *Book) Unlock() { b.mu.Unlock() }

// BestLevelLocked, PopFrontLocked, RestLocked and RecordTradeLocked are the
// package-private surface the matching engine drives while holding the
// book's lock. They are unexported from the module's perspective in
// intent — Go only enforces package-level unexported names, so these are
// capitalized (cross-package within the module, via the matching package)
// but documented as "Locked" to signal the locking contract to callers.

// BestLevelLocked returns the extreme level on side, or nil if empty.
func (b *Book) BestLevelLocked(side domain.Side) *priceindex.PriceLevel {
	return b.indexFor(side).BestLevel()
}

// PopFrontLocked removes and returns the head order of level, updating the
// resting-order index. Call only while b.mu is held.
func (b *Book) PopFrontLocked(side domain.Side, level *priceindex.PriceLevel) *domain.Order {
	order := b.indexFor(side).PopFront(level)
	if order == nil {
		return nil
	}
	b.unrest(order.OrderID)
	return order
}

// RestLocked inserts order onto its side. Call only while b.mu is held.
func (b *Book) RestLocked(order *domain.Order) {
	b.rest(order)
}

// RecordTradeLocked appends t to the execution log, assigning the book's
// next trade id. Call only while b.mu is held.
func (b *Book) RecordTradeLocked(t domain.Trade) domain.Trade {
	b.nextTID++
	t.TradeID = b.nextTID
	b.trades = append(b.trades, t)
	return t
}
