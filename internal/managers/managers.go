// Package managers implements lazy load-or-create, write-through access to
// order books and portfolios.
package managers

import (
	"fmt"
	"sync"

	"venue/internal/book"
	"venue/internal/portfolio"
	"venue/internal/repository"
)

func orderBookKey(ticker string) string { return fmt.Sprintf("orderbook:%s", ticker) }
func portfolioKey(id string) string     { return fmt.Sprintf("portfolio:%s", id) }

// OrderBookManager hands out *book.Book instances per ticker, creating one
// on first access and keeping an in-process cache in front of the
// repository write-through to avoid a round trip per lookup.
type OrderBookManager struct {
	repo repository.Repository

	mu    sync.Mutex
	cache map[string]*book.Book
}

// NewOrderBookManager returns a manager backed by repo.
func NewOrderBookManager(repo repository.Repository) *OrderBookManager {
	return &OrderBookManager{repo: repo, cache: make(map[string]*book.Book)}
}

// Get returns the book for ticker, loading it from the repository or
// creating a new empty one on first access, and writing it through.
func (m *OrderBookManager) Get(ticker string) (*book.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b, ok := m.cache[ticker]; ok {
		return b, nil
	}

	key := orderBookKey(ticker)
	stored, found, err := m.repo.Load(key)
	if err != nil {
		return nil, err
	}

	var b *book.Book
	if found {
		b, ok := stored.(*book.Book)
		if !ok {
			return nil, fmt.Errorf("repository value at %s is not a *book.Book", key)
		}
		m.cache[ticker] = b
		return b, nil
	}

	b = book.New(ticker)
	if err := m.repo.Save(key, b); err != nil {
		return nil, err
	}
	m.cache[ticker] = b
	return b, nil
}

// PortfolioManager hands out *portfolio.Portfolio instances per portfolio
// id, creating one with zero cash on first access if none exists.
type PortfolioManager struct {
	repo repository.Repository

	mu    sync.Mutex
	cache map[string]*portfolio.Portfolio
}

// NewPortfolioManager returns a manager backed by repo.
func NewPortfolioManager(repo repository.Repository) *PortfolioManager {
	return &PortfolioManager{repo: repo, cache: make(map[string]*portfolio.Portfolio)}
}

// Get returns the portfolio for id, loading it from the repository or
// creating a new zero-cash one on first access, and writing it through.
func (m *PortfolioManager) Get(id string) (*portfolio.Portfolio, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.cache[id]; ok {
		return p, nil
	}

	key := portfolioKey(id)
	stored, found, err := m.repo.Load(key)
	if err != nil {
		return nil, err
	}

	var p *portfolio.Portfolio
	if found {
		p, ok := stored.(*portfolio.Portfolio)
		if !ok {
			return nil, fmt.Errorf("repository value at %s is not a *portfolio.Portfolio", key)
		}
		m.cache[id] = p
		return p, nil
	}

	p = portfolio.New(id, 0)
	if err := m.repo.Save(key, p); err != nil {
		return nil, err
	}
	m.cache[id] = p
	return p, nil
}

// Seed registers a pre-built portfolio (e.g. one constructed with starting
// cash via portfolio.New) under id, for use before any trading begins.
func (m *PortfolioManager) Seed(id string, p *portfolio.Portfolio) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.repo.Save(portfolioKey(id), p); err != nil {
		return err
	}
	m.cache[id] = p
	return nil
}
