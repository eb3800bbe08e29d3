package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"venue/internal/book"
	"venue/internal/domain"
)

func mustOrder(id string, side domain.Side, kind domain.Kind, price, qty float64) *domain.Order {
	o, err := domain.New(id, "p1", "ACME", side, kind, price, qty, time.Unix(0, 0))
	if err != nil {
		panic(err)
	}
	return &o
}

func TestProcessNoCrossRestsLimitOrder(t *testing.T) {
	b := book.New("ACME")
	trades, err := Process(mustOrder("ask1", domain.Ask, domain.Limit, 11, 5), b, time.Now())
	assert.NoError(t, err)
	assert.Empty(t, trades)

	ask, ok := b.BestAsk()
	assert.True(t, ok)
	assert.Equal(t, "ask1", ask.OrderID)
}

func TestProcessFullCrossExactQuantity(t *testing.T) {
	b := book.New("ACME")
	_, err := Process(mustOrder("ask1", domain.Ask, domain.Limit, 10, 5), b, time.Now())
	assert.NoError(t, err)

	trades, err := Process(mustOrder("bid1", domain.Bid, domain.Limit, 10, 5), b, time.Now())
	assert.NoError(t, err)
	assert.Len(t, trades, 1)
	assert.Equal(t, 10.0, trades[0].Price)
	assert.Equal(t, 5.0, trades[0].Quantity)
	assert.Equal(t, "bid1", trades[0].BuyerOrderID)
	assert.Equal(t, "ask1", trades[0].SellerOrderID)

	_, ok := b.BestAsk()
	assert.False(t, ok)
	_, ok = b.BestBid()
	assert.False(t, ok)
}

func TestProcessPartialFillRestsRemainder(t *testing.T) {
	b := book.New("ACME")
	_, err := Process(mustOrder("ask1", domain.Ask, domain.Limit, 10, 3), b, time.Now())
	assert.NoError(t, err)

	trades, err := Process(mustOrder("bid1", domain.Bid, domain.Limit, 10, 5), b, time.Now())
	assert.NoError(t, err)
	assert.Len(t, trades, 1)
	assert.Equal(t, 3.0, trades[0].Quantity)

	bid, ok := b.BestBid()
	assert.True(t, ok)
	assert.Equal(t, 2.0, bid.Quantity)
}

func TestProcessTimestampTieUsesBidPrice(t *testing.T) {
	b := book.New("ACME")
	_, err := Process(mustOrder("ask1", domain.Ask, domain.Limit, 9, 5), b, time.Now())
	assert.NoError(t, err)

	// mustOrder stamps every order with the same timestamp, so this is a
	// tie: the bid's price governs, not whichever order happens to rest.
	trades, err := Process(mustOrder("bid1", domain.Bid, domain.Limit, 10, 5), b, time.Now())
	assert.NoError(t, err)
	assert.Len(t, trades, 1)
	assert.Equal(t, 10.0, trades[0].Price, "timestamps tie; the bid's price governs")
}

func TestProcessUsesEarlierMakerPriceOnDistinctTimestamps(t *testing.T) {
	b := book.New("ACME")
	restingAsk, err := domain.New("ask1", "p1", "ACME", domain.Ask, domain.Limit, 9, 5, time.Unix(0, 0))
	assert.NoError(t, err)
	assert.NoError(t, b.Add(restingAsk))

	incomingBid, err := domain.New("bid1", "p1", "ACME", domain.Bid, domain.Limit, 10, 5, time.Unix(1, 0))
	assert.NoError(t, err)

	trades, err := Process(&incomingBid, b, time.Now())
	assert.NoError(t, err)
	assert.Len(t, trades, 1)
	assert.Equal(t, 9.0, trades[0].Price, "the earlier-timestamped resting ask is the maker")
}

func TestProcessMarketOrderSweepsMultipleLevels(t *testing.T) {
	b := book.New("ACME")
	_, err := Process(mustOrder("ask1", domain.Ask, domain.Limit, 10, 2), b, time.Now())
	assert.NoError(t, err)
	_, err = Process(mustOrder("ask2", domain.Ask, domain.Limit, 11, 3), b, time.Now())
	assert.NoError(t, err)

	trades, err := Process(mustOrder("bid1", domain.Bid, domain.Market, 0, 5), b, time.Now())
	assert.NoError(t, err)
	assert.Len(t, trades, 2)
	assert.Equal(t, 10.0, trades[0].Price)
	assert.Equal(t, 11.0, trades[1].Price)
}

func TestProcessMarketOrderResidualDiscardedNotRested(t *testing.T) {
	b := book.New("ACME")
	_, err := Process(mustOrder("ask1", domain.Ask, domain.Limit, 10, 2), b, time.Now())
	assert.NoError(t, err)

	trades, err := Process(mustOrder("bid1", domain.Bid, domain.Market, 0, 5), b, time.Now())
	assert.NoError(t, err)
	assert.Len(t, trades, 1)

	_, ok := b.BestBid()
	assert.False(t, ok, "unfilled market residual must not rest on the book")
}

func TestProcessWrongTickerRejected(t *testing.T) {
	b := book.New("ACME")
	o, err := domain.New("o1", "p1", "OTHER", domain.Bid, domain.Limit, 10, 1, time.Now())
	assert.NoError(t, err)

	_, err = Process(&o, b, time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)
}
