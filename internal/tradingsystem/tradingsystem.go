// Package tradingsystem is the facade composing order book and portfolio
// managers with the trade service into the six operations a caller (a demo
// CLI, a wire-protocol server, a test) actually drives: direct order
// submission, queued trade-request submission, and draining either one
// portfolio or every portfolio's queue.
package tradingsystem

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"venue/internal/book"
	"venue/internal/domain"
	"venue/internal/managers"
	"venue/internal/matching"
	"venue/internal/portfolio"
	"venue/internal/repository"
	"venue/internal/tradeservice"
)

// Clock returns the current time; overridable in tests.
type Clock func() time.Time

// OrderRequest is the input to SubmitOrder: everything needed to synthesize
// and immediately match an order, without going through the pending-request
// queue.
type OrderRequest struct {
	Ticker     string
	Side       domain.Side
	Kind       domain.Kind
	LimitPrice float64
	Quantity   float64
}

// System composes the order book and portfolio managers with a trade
// service, tracking how many orders each portfolio has submitted directly
// (for synthesizing SubmitOrder's order ids).
type System struct {
	books      *managers.OrderBookManager
	portfolios *managers.PortfolioManager
	trades     *tradeservice.TradeService
	now        Clock

	mu          sync.Mutex
	orderCounts map[string]int
}

// New returns a trading system backed by repo for both books and
// portfolios.
func New(repo repository.Repository) *System {
	books := managers.NewOrderBookManager(repo)
	return &System{
		books:       books,
		portfolios:  managers.NewPortfolioManager(repo),
		trades:      tradeservice.New(books),
		now:         time.Now,
		orderCounts: make(map[string]int),
	}
}

// WithClock overrides the system's time source, for deterministic tests.
func (s *System) WithClock(clock Clock) *System {
	s.now = clock
	s.trades.WithClock(clock)
	return s
}

// GetPortfolio returns the portfolio for id, creating one with zero cash on
// first access.
func (s *System) GetPortfolio(id string) (*portfolio.Portfolio, error) {
	return s.portfolios.Get(id)
}

// SeedPortfolio registers a pre-built portfolio, e.g. one with starting
// cash, before any trading begins.
func (s *System) SeedPortfolio(p *portfolio.Portfolio) error {
	return s.portfolios.Seed(p.ID, p)
}

// GetBook returns the order book for ticker, creating an empty one on
// first access.
func (s *System) GetBook(ticker string) (*book.Book, error) {
	return s.books.Get(ticker)
}

// SubmitOrder synthesizes an order id "{portfolioID}_{n}" (n counting this
// portfolio's direct submissions) and matches it against ticker's book
// immediately, bypassing the pending-request queue entirely — this is the
// direct-order path, distinct from SubmitTradeRequest/ProcessTrades'
// queued path.
func (s *System) SubmitOrder(portfolioID string, req OrderRequest) ([]domain.Trade, error) {
	if _, err := s.portfolios.Get(portfolioID); err != nil {
		log.Error().Err(err).Str("portfolio", portfolioID).Msg("submit order: unknown portfolio")
		return nil, err
	}
	b, err := s.books.Get(req.Ticker)
	if err != nil {
		log.Error().Err(err).Str("ticker", req.Ticker).Msg("submit order: resolving book failed")
		return nil, err
	}

	orderID := s.nextOrderID(portfolioID)
	order, err := domain.New(orderID, portfolioID, req.Ticker, req.Side, req.Kind, req.LimitPrice, req.Quantity, s.now())
	if err != nil {
		log.Warn().Err(err).Str("portfolio", portfolioID).Str("ticker", req.Ticker).Msg("submit order: rejected invalid order")
		return nil, err
	}

	return matching.Process(&order, b, s.now())
}

func (s *System) nextOrderID(portfolioID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.orderCounts[portfolioID]
	s.orderCounts[portfolioID] = n + 1
	return fmt.Sprintf("%s_%d", portfolioID, n)
}

// SubmitTradeRequest enqueues a position request onto portfolioID's pending
// queue, returning the new queue depth. Nothing matches until
// ProcessTrades or ProcessAllTrades drains the queue.
func (s *System) SubmitTradeRequest(portfolioID string, ticker string, positionType domain.PositionType, action domain.RequestAction, quantity, price, commission float64) (int, error) {
	p, err := s.portfolios.Get(portfolioID)
	if err != nil {
		return 0, err
	}
	return p.RequestTrade(ticker, positionType, action, quantity, price, commission, s.now()), nil
}

// ProcessTrades drains portfolioID's pending queue, returning how many
// requests were drained and how many filled. Each request names its own
// ticker, so consecutive requests in the queue may trade against different
// books.
func (s *System) ProcessTrades(portfolioID string) (drained, filled int, err error) {
	p, err := s.portfolios.Get(portfolioID)
	if err != nil {
		log.Error().Err(err).Str("portfolio", portfolioID).Msg("process trades: unknown portfolio")
		return 0, 0, err
	}
	return s.trades.ProcessAll(p)
}

// ProcessAllTrades drains every named portfolio's pending queue concurrently
// across a bounded worker pool, returning aggregate drained/filled counts.
func (s *System) ProcessAllTrades(portfolioIDs []string, poolSize int) (drained, filled int, err error) {
	portfolios := make([]*portfolio.Portfolio, 0, len(portfolioIDs))
	for _, id := range portfolioIDs {
		p, getErr := s.portfolios.Get(id)
		if getErr != nil {
			return 0, 0, getErr
		}
		portfolios = append(portfolios, p)
	}
	return s.trades.ProcessAllConcurrent(portfolios, poolSize)
}
