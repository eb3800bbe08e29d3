package portfolio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"venue/internal/domain"
)

func TestOpenPositionNewLongDebitsCash(t *testing.T) {
	p := New("p1", 10000)
	req := p.CreatePositionRequest("ACME", domain.Long, domain.Open, 10, 100, 1, time.Now())

	err := p.OpenPosition(req, nil)
	assert.NoError(t, err)
	assert.Equal(t, 10000-1000-1.0, p.Cash())

	pos, ok := p.Position("ACME")
	assert.True(t, ok)
	assert.Equal(t, 10.0, pos.Quantity)
	assert.Equal(t, domain.Long, pos.Type)
	assert.Equal(t, 100.0, pos.EntryPrice)
}

func TestOpenPositionAveragesSameDirection(t *testing.T) {
	p := New("p1", 100000)
	first := p.CreatePositionRequest("ACME", domain.Long, domain.Open, 10, 100, 0, time.Now())
	assert.NoError(t, p.OpenPosition(first, nil))

	second := p.CreatePositionRequest("ACME", domain.Long, domain.Open, 10, 200, 0, time.Now())
	assert.NoError(t, p.OpenPosition(second, nil))

	pos, ok := p.Position("ACME")
	assert.True(t, ok)
	assert.Equal(t, 20.0, pos.Quantity)
	assert.Equal(t, 150.0, pos.EntryPrice)
}

func TestOpenPositionNetsDownOpposingDirection(t *testing.T) {
	p := New("p1", 100000)
	long := p.CreatePositionRequest("ACME", domain.Long, domain.Open, 10, 100, 0, time.Now())
	assert.NoError(t, p.OpenPosition(long, nil))

	opposing := domain.PositionRequest{TradeRequestID: "x", Ticker: "ACME", PositionType: domain.Short, Quantity: 4, Price: 100}
	assert.NoError(t, p.OpenPosition(opposing, nil))

	pos, ok := p.Position("ACME")
	assert.True(t, ok)
	assert.Equal(t, domain.Long, pos.Type)
	assert.Equal(t, 6.0, pos.Quantity)
}

func TestOpenPositionReversesWhenOpposingExceeds(t *testing.T) {
	p := New("p1", 100000)
	long := p.CreatePositionRequest("ACME", domain.Long, domain.Open, 4, 100, 0, time.Now())
	assert.NoError(t, p.OpenPosition(long, nil))

	opposing := domain.PositionRequest{TradeRequestID: "x", Ticker: "ACME", PositionType: domain.Short, Quantity: 10, Price: 50}
	assert.NoError(t, p.OpenPosition(opposing, nil))

	pos, ok := p.Position("ACME")
	assert.True(t, ok)
	assert.Equal(t, domain.Short, pos.Type)
	assert.Equal(t, 6.0, pos.Quantity)
	assert.Equal(t, 50.0, pos.EntryPrice)
}

func TestOpenPositionExactOffsetDeletesPosition(t *testing.T) {
	p := New("p1", 100000)
	long := p.CreatePositionRequest("ACME", domain.Long, domain.Open, 10, 100, 0, time.Now())
	assert.NoError(t, p.OpenPosition(long, nil))

	opposing := domain.PositionRequest{TradeRequestID: "x", Ticker: "ACME", PositionType: domain.Short, Quantity: 10, Price: 100}
	assert.NoError(t, p.OpenPosition(opposing, nil))

	_, ok := p.Position("ACME")
	assert.False(t, ok)
}

func TestOpenPositionRejectedWhenUnaffordable(t *testing.T) {
	p := New("p1", 50)
	req := p.CreatePositionRequest("ACME", domain.Long, domain.Open, 10, 100, 0, time.Now())

	err := p.OpenPosition(req, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidPositionOp)
	assert.Equal(t, 50.0, p.Cash())
	_, ok := p.Position("ACME")
	assert.False(t, ok, "a rejected request must not touch cash or positions")
}

func TestOpenPositionDoesNotDuplicateHistoryEntry(t *testing.T) {
	p := New("p1", 10000)
	req := p.CreatePositionRequest("ACME", domain.Long, domain.Open, 10, 100, 0, time.Now())
	assert.NoError(t, p.OpenPosition(req, nil))

	history := p.History()
	assert.Len(t, history, 1, "OpenPosition must not append a second entry for a request already recorded by CreatePositionRequest")
	assert.Equal(t, req.TradeRequestID, history[0].TradeRequestID)
}

func TestClosePositionFullyCreditsLongProceeds(t *testing.T) {
	p := New("p1", 10000)
	req := p.CreatePositionRequest("ACME", domain.Long, domain.Open, 10, 100, 0, time.Now())
	assert.NoError(t, p.OpenPosition(req, nil))

	assert.NoError(t, p.ClosePosition("ACME", 0, 120))
	_, ok := p.Position("ACME")
	assert.False(t, ok)

	wantCash := 10000.0 - 1000.0 + (1200.0 - 1200.0*defaultCommissionRate)
	assert.InDelta(t, wantCash, p.Cash(), 0.0001)
}

func TestClosePositionPartialReducesQuantity(t *testing.T) {
	p := New("p1", 10000)
	req := p.CreatePositionRequest("ACME", domain.Long, domain.Open, 10, 100, 0, time.Now())
	assert.NoError(t, p.OpenPosition(req, nil))

	assert.NoError(t, p.ClosePosition("ACME", 4, 120))
	pos, ok := p.Position("ACME")
	assert.True(t, ok)
	assert.Equal(t, 6.0, pos.Quantity)
}

func TestClosePositionExceedingQuantityRejected(t *testing.T) {
	p := New("p1", 10000)
	req := p.CreatePositionRequest("ACME", domain.Long, domain.Open, 10, 100, 0, time.Now())
	assert.NoError(t, p.OpenPosition(req, nil))

	err := p.ClosePosition("ACME", 20, 120)
	assert.ErrorIs(t, err, domain.ErrInvalidPositionOp)
}

func TestClosePositionUnknownTicker(t *testing.T) {
	p := New("p1", 10000)
	err := p.ClosePosition("NOPE", 1, 100)
	assert.ErrorIs(t, err, domain.ErrInvalidPositionOp)
}

func TestRequestTradeEnqueuesAndPopsFIFO(t *testing.T) {
	p := New("p1", 10000)
	depth := p.RequestTrade("ACME", domain.Long, domain.Open, 1, 100, 0, time.Now())
	assert.Equal(t, 1, depth)
	depth = p.RequestTrade("ACME", domain.Long, domain.Open, 2, 100, 0, time.Now())
	assert.Equal(t, 2, depth)

	first, ok := p.PopPending()
	assert.True(t, ok)
	assert.Equal(t, 1.0, first.Quantity)

	second, ok := p.PopPending()
	assert.True(t, ok)
	assert.Equal(t, 2.0, second.Quantity)

	_, ok = p.PopPending()
	assert.False(t, ok)
}

func TestPolicyMaxPositionSizeFractionRejectsOversizedPosition(t *testing.T) {
	p := New("p1", 10000)
	p.WithPolicy(PolicyOptions{MaxPositionSizeFraction: 0.1})

	req := p.CreatePositionRequest("ACME", domain.Long, domain.Open, 50, 100, 0, time.Now())
	err := p.OpenPosition(req, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidPositionOp)
}

func TestTotalPortfolioValueUsesSuppliedPrices(t *testing.T) {
	p := New("p1", 2000)
	req := p.CreatePositionRequest("ACME", domain.Long, domain.Open, 10, 100, 0, time.Now())
	assert.NoError(t, p.OpenPosition(req, nil))

	value := p.TotalPortfolioValue(map[string]float64{"ACME": 150})
	assert.Equal(t, (2000.0-1000.0)+1500.0, value)
}
