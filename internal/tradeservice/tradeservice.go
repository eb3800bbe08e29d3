// Package tradeservice drains a portfolio's pending position requests,
// synthesizes an order per request, matches it against the relevant order
// book, and applies whatever fills result back to the portfolio.
package tradeservice

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"venue/internal/domain"
	"venue/internal/managers"
	"venue/internal/matching"
	"venue/internal/portfolio"
	"venue/internal/workerpool"
)

// Clock returns the current time; overridable in tests.
type Clock func() time.Time

// TradeService processes one portfolio's pending trade requests, resolving
// each request's book through an OrderBookManager so consecutive requests
// in the same queue may trade against different instruments.
type TradeService struct {
	books   *managers.OrderBookManager
	now     Clock
	counter *orderCounter
}

// New returns a trade service that matches requests against books.
func New(books *managers.OrderBookManager) *TradeService {
	return &TradeService{books: books, now: time.Now, counter: newOrderCounter()}
}

// WithClock overrides the service's time source, for deterministic tests.
func (s *TradeService) WithClock(clock Clock) *TradeService {
	s.now = clock
	return s
}

// orderCounter names orders synthesized for a portfolio: "{portfolioID}_{n}"
// where n increments per order the service has synthesized so far for that
// portfolio.
type orderCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func newOrderCounter() *orderCounter { return &orderCounter{counts: make(map[string]int)} }

func (c *orderCounter) next(portfolioID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.counts[portfolioID]
	c.counts[portfolioID] = n + 1
	return fmt.Sprintf("%s_%d", portfolioID, n)
}

// ProcessOne pops and processes a single pending request from p, resolving
// its book by ticker, matching the synthesized order against it, and
// applying the resulting fill to p. Reports processed=false if the queue
// was empty. Each portfolio call (pop, open/close) takes p's lock itself;
// p's lock is not held while matching.Process holds the book's lock.
func (s *TradeService) ProcessOne(p *portfolio.Portfolio) (processed bool, fullyFilled bool, err error) {
	req, ok := p.PopPending()
	if !ok {
		return false, false, nil
	}

	b, err := s.books.Get(req.Ticker)
	if err != nil {
		return true, false, fmt.Errorf("resolving book for request %s: %w", req.TradeRequestID, err)
	}

	orderID := s.counter.next(p.ID)
	order, err := domain.New(orderID, p.ID, req.Ticker, req.Side, domain.Limit, req.Price, req.Quantity, s.now())
	if err != nil {
		return true, false, fmt.Errorf("synthesizing order for request %s: %w", req.TradeRequestID, err)
	}

	trades, err := matching.Process(&order, b, s.now())
	if err != nil {
		return true, false, fmt.Errorf("matching request %s: %w", req.TradeRequestID, err)
	}
	if len(trades) == 0 {
		log.Warn().Str("portfolio", p.ID).Str("request", req.TradeRequestID).Str("ticker", req.Ticker).Msg("trade request went unserved")
		return true, false, fmt.Errorf("request %s: %w", req.TradeRequestID, domain.ErrNoMatch)
	}

	var filledQty float64
	for _, t := range trades {
		filledQty += t.Quantity
	}
	lastPrice := trades[len(trades)-1].Price

	applyReq := req
	applyReq.Quantity = filledQty
	applyReq.Price = lastPrice

	if req.Action == domain.Open {
		if err := p.OpenPosition(applyReq, nil); err != nil {
			return true, false, fmt.Errorf("applying fill for request %s: %w", req.TradeRequestID, err)
		}
	} else {
		if err := p.ClosePosition(req.Ticker, filledQty, lastPrice); err != nil {
			return true, false, fmt.Errorf("applying fill for request %s: %w", req.TradeRequestID, err)
		}
	}

	return true, order.Quantity == 0, nil
}

// ProcessAll drains pending requests for p, in FIFO order, returning how
// many requests were drained and how many of them were completely filled.
// It stops at the first request that fails (including ErrNoMatch) and
// returns that error; the failed request is popped but not counted.
func (s *TradeService) ProcessAll(p *portfolio.Portfolio) (drained, filled int, err error) {
	for {
		processed, didFill, procErr := s.ProcessOne(p)
		if procErr != nil {
			return drained, filled, procErr
		}
		if !processed {
			return drained, filled, nil
		}
		drained++
		if didFill {
			filled++
		}
	}
}

// ProcessAllConcurrent drains pending requests for every portfolio using a
// bounded worker pool, returning aggregate drained/filled counts. Each
// portfolio is only ever touched by the worker that owns its task, so the
// pool adds concurrency across portfolios without adding contention within
// one.
func (s *TradeService) ProcessAllConcurrent(portfolios []*portfolio.Portfolio, poolSize int) (drained, filled int, err error) {
	type result struct {
		drained, filled int
		err             error
	}
	results := make(chan result, len(portfolios))

	pool := workerpool.New(poolSize)
	var t tomb.Tomb
	for _, p := range portfolios {
		pool.AddTask(p)
	}

	remaining := len(portfolios)
	t.Go(func() error {
		pool.Setup(&t, func(_ *tomb.Tomb, raw any) error {
			p := raw.(*portfolio.Portfolio)
			d, f, procErr := s.ProcessAll(p)
			results <- result{drained: d, filled: f, err: procErr}
			return nil
		})
		return nil
	})

	for remaining > 0 {
		r := <-results
		drained += r.drained
		filled += r.filled
		if r.err != nil && err == nil {
			err = r.err
		}
		remaining--
	}
	t.Kill(nil)

	return drained, filled, err
}
