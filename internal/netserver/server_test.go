package netserver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"venue/internal/domain"
	"venue/internal/repository"
	"venue/internal/tradingsystem"
	"venue/internal/wire"
)

func TestDispatchSubmitOrderMatches(t *testing.T) {
	sys := tradingsystem.New(repository.NewInMemory())
	s := New("127.0.0.1:0", sys)

	makerReq := wire.SubmitOrderRequest{PortfolioID: "maker", Ticker: "ACME", Side: domain.Ask, Kind: domain.Limit, LimitPrice: 10, Quantity: 5}
	resp := s.dispatch(makerReq.Encode())
	assert.Equal(t, wire.StatusOK, resp.Status)

	takerReq := wire.SubmitOrderRequest{PortfolioID: "taker", Ticker: "ACME", Side: domain.Bid, Kind: domain.Limit, LimitPrice: 10, Quantity: 5}
	resp = s.dispatch(takerReq.Encode())
	assert.Equal(t, wire.StatusOK, resp.Status)
	assert.Len(t, resp.Trades, 1)
}

func TestDispatchGetBookSnapshot(t *testing.T) {
	sys := tradingsystem.New(repository.NewInMemory())
	s := New("127.0.0.1:0", sys)

	placeReq := wire.SubmitOrderRequest{PortfolioID: "maker", Ticker: "ACME", Side: domain.Bid, Kind: domain.Limit, LimitPrice: 9, Quantity: 5}
	s.dispatch(placeReq.Encode())

	resp := s.dispatch(wire.GetBookRequest{Ticker: "ACME"}.Encode())
	assert.Equal(t, wire.StatusOK, resp.Status)
	assert.True(t, resp.HasBid)
	assert.Equal(t, 9.0, resp.BestBid)
	assert.False(t, resp.HasAsk)
}

func TestDispatchUnknownMessageReturnsError(t *testing.T) {
	sys := tradingsystem.New(repository.NewInMemory())
	s := New("127.0.0.1:0", sys)

	resp := s.dispatch([]byte{0xFF, 0xFF})
	assert.Equal(t, wire.StatusError, resp.Status)
	assert.NotEmpty(t, resp.ErrMsg)
}

func TestDispatchSubmitTradeRequestQueuesOnly(t *testing.T) {
	sys := tradingsystem.New(repository.NewInMemory())
	s := New("127.0.0.1:0", sys)

	req := wire.SubmitTradeRequestRequest{PortfolioID: "p1", Ticker: "ACME", PositionType: domain.Long, Action: domain.Open, Quantity: 1, Price: 10, Commission: 0}
	resp := s.dispatch(req.Encode())
	assert.Equal(t, wire.StatusOK, resp.Status)
	assert.Equal(t, 1, resp.Depth)
}
