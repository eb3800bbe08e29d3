package managers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"venue/internal/portfolio"
	"venue/internal/repository"
)

func TestOrderBookManagerCreatesOnFirstAccess(t *testing.T) {
	m := NewOrderBookManager(repository.NewInMemory())

	b, err := m.Get("ACME")
	assert.NoError(t, err)
	assert.Equal(t, "ACME", b.Ticker)
}

func TestOrderBookManagerReturnsSameInstance(t *testing.T) {
	m := NewOrderBookManager(repository.NewInMemory())

	first, err := m.Get("ACME")
	assert.NoError(t, err)
	second, err := m.Get("ACME")
	assert.NoError(t, err)
	assert.Same(t, first, second)
}

func TestPortfolioManagerCreatesZeroCashOnFirstAccess(t *testing.T) {
	m := NewPortfolioManager(repository.NewInMemory())

	p, err := m.Get("acct-1")
	assert.NoError(t, err)
	assert.Equal(t, 0.0, p.Cash())
}

func TestPortfolioManagerSeedIsVisibleOnGet(t *testing.T) {
	m := NewPortfolioManager(repository.NewInMemory())
	seeded := portfolio.New("acct-1", 5000)
	assert.NoError(t, m.Seed("acct-1", seeded))

	got, err := m.Get("acct-1")
	assert.NoError(t, err)
	assert.Same(t, seeded, got)
	assert.Equal(t, 5000.0, got.Cash())
}
