// Package portfolio implements per-portfolio cash and position accounting:
// affordability checks, position open/close with averaging and reversal,
// and the pending trade-request queue a trade service drains.
package portfolio

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"venue/internal/domain"
)

// PolicyOptions are the optional affordability caps a portfolio enforces on
// top of plain cash availability. The zero value disables both, matching
// the baseline behavior where only cash is checked.
type PolicyOptions struct {
	// MaxPositionSizeFraction caps a single position's notional value as a
	// fraction of total portfolio value. Zero means no cap.
	MaxPositionSizeFraction float64
	// RequireNonZeroTotalValue rejects any position request while total
	// portfolio value is zero, even if cash alone would cover it.
	RequireNonZeroTotalValue bool
}

// Portfolio holds one account's cash, positions, and pending trade-request
// queue. Every exported method takes the portfolio's lock — one mutex per
// Portfolio, never a global lock.
type Portfolio struct {
	mu sync.Mutex

	ID             string
	cash           float64
	commissionRate float64
	policy         PolicyOptions

	positions map[string]domain.Position // ticker -> position
	pending   []domain.PositionRequest
	history   []domain.PositionRequest
}

// defaultCommissionRate is applied to a portfolio created without an
// explicit rate.
const defaultCommissionRate = 0.001

// New returns a portfolio seeded with cash and the default commission rate.
func New(id string, cash float64) *Portfolio {
	return &Portfolio{
		ID:             id,
		cash:           cash,
		commissionRate: defaultCommissionRate,
		positions:      make(map[string]domain.Position),
	}
}

// WithPolicy sets the affordability policy and returns the portfolio for
// chaining at construction time.
func (p *Portfolio) WithPolicy(policy PolicyOptions) *Portfolio {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.policy = policy
	return p
}

// WithCommissionRate overrides the default commission rate.
func (p *Portfolio) WithCommissionRate(rate float64) *Portfolio {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.commissionRate = rate
	return p
}

// Cash returns the portfolio's free cash balance.
func (p *Portfolio) Cash() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash
}

// Position returns a copy of the position held in ticker, if any.
func (p *Portfolio) Position(ticker string) (domain.Position, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos, ok := p.positions[ticker]
	return pos, ok
}

// Positions returns a copy of every position currently held, keyed by
// ticker.
func (p *Portfolio) Positions() map[string]domain.Position {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]domain.Position, len(p.positions))
	for ticker, pos := range p.positions {
		out[ticker] = pos
	}
	return out
}

// CommissionRate returns the fraction of notional value used to estimate
// commission in the affordability check and charged as commission on every
// close. An open charges the request's own Commission amount instead.
func (p *Portfolio) CommissionRate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.commissionRate
}

// History returns the append-only log of every position request this
// portfolio has ever created, in creation order.
func (p *Portfolio) History() []domain.PositionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.PositionRequest, len(p.history))
	copy(out, p.history)
	return out
}

// PendingCount returns the number of trade requests still queued.
func (p *Portfolio) PendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// buyingPowerLocked is cash floored at zero; negative cash never frees up
// buying power.
func (p *Portfolio) buyingPowerLocked() float64 {
	return max(0, p.cash)
}

// BuyingPower returns free cash, floored at zero.
func (p *Portfolio) BuyingPower() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buyingPowerLocked()
}

// TotalMarketValue sums quantity * current price across every position,
// using prices for the lookup; a ticker missing from prices falls back to
// the position's entry price. Current price is deliberately never stored
// on Position itself — it must always come from a fresh market-data
// snapshot supplied by the caller.
func (p *Portfolio) TotalMarketValue(prices map[string]float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalMarketValueLocked(prices)
}

func (p *Portfolio) totalMarketValueLocked(prices map[string]float64) float64 {
	var total float64
	for ticker, pos := range p.positions {
		price, ok := prices[ticker]
		if !ok {
			price = pos.EntryPrice
		}
		total += price * pos.Quantity
	}
	return total
}

// TotalPortfolioValue is cash plus total market value.
func (p *Portfolio) TotalPortfolioValue(prices map[string]float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash + p.totalMarketValueLocked(prices)
}

// CanAffordPosition reports whether opening a position of quantity at price
// is affordable: cash (after commission) must cover it, total portfolio
// value must be non-zero when the policy requires it, and — when a max
// position size fraction is configured — the position's notional value
// must not exceed that fraction of total portfolio value.
func (p *Portfolio) CanAffordPosition(quantity, price float64, prices map[string]float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.canAffordPositionLocked(quantity, price, prices)
}

func (p *Portfolio) canAffordPositionLocked(quantity, price float64, prices map[string]float64) bool {
	if quantity < 0 || price < 0 {
		return false
	}

	positionValue := quantity * price
	commission := positionValue * p.commissionRate
	totalCost := positionValue + commission

	if totalCost > p.buyingPowerLocked() {
		return false
	}

	totalValue := p.cash + p.totalMarketValueLocked(prices)
	if p.policy.RequireNonZeroTotalValue && totalValue == 0 {
		return false
	}
	if p.policy.MaxPositionSizeFraction > 0 && totalValue > 0 {
		if positionValue/totalValue > p.policy.MaxPositionSizeFraction {
			return false
		}
	}

	return true
}

// OpenPosition applies a fill opening or adding to exposure: averaging the
// entry price when the fill agrees with the existing position's direction,
// netting down or reversing when it opposes it, deleting the position
// entirely when the two exactly cancel. Cash is debited (long) or credited
// (short) for the position's notional value plus commission only after the
// position mutation succeeds, so a rejected request never touches cash.
func (p *Portfolio) OpenPosition(req domain.PositionRequest, prices map[string]float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.canAffordPositionLocked(req.Quantity, req.Price, prices) {
		log.Warn().Str("portfolio", p.ID).Str("ticker", req.Ticker).Float64("quantity", req.Quantity).Float64("price", req.Price).Msg("rejected unaffordable position request")
		return fmt.Errorf("%w: portfolio %s cannot afford %v %s @ %v", domain.ErrInvalidPositionOp, p.ID, req.Quantity, req.Ticker, req.Price)
	}

	positionType := req.PositionType
	positionValue := req.Quantity * req.Price

	existing, hasExisting := p.positions[req.Ticker]
	deletePosition := false

	switch {
	case !hasExisting:
		p.positions[req.Ticker] = domain.Position{
			Ticker:     req.Ticker,
			Type:       positionType,
			EntryPrice: req.Price,
			Quantity:   req.Quantity,
		}
	case existing.Type == positionType:
		totalQty := existing.Quantity + req.Quantity
		weighted := (existing.EntryPrice*existing.Quantity + req.Price*req.Quantity) / totalQty
		existing.Quantity = totalQty
		existing.EntryPrice = weighted
		p.positions[req.Ticker] = existing
	default:
		remaining := existing.Quantity - req.Quantity
		switch {
		case remaining > 0:
			existing.Quantity = remaining
			p.positions[req.Ticker] = existing
		case remaining < 0:
			existing.Quantity = -remaining
			existing.Type = positionType
			existing.EntryPrice = req.Price
			p.positions[req.Ticker] = existing
		default:
			deletePosition = true
		}
	}

	if positionType == domain.Long {
		p.cash -= positionValue + req.Commission
	} else {
		p.cash += positionValue - req.Commission
	}

	if deletePosition {
		delete(p.positions, req.Ticker)
	}

	return nil
}

// ClosePosition reduces or removes a position, crediting (long) or debiting
// (short) cash for the proceeds minus commission. currentPrice is the
// execution price realizing the close — Position never stores a "current
// price" field, since that value is only known at the moment of a fill.
// quantity of zero closes the whole position.
func (p *Portfolio) ClosePosition(ticker string, quantity, currentPrice float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	pos, ok := p.positions[ticker]
	if !ok {
		log.Warn().Str("portfolio", p.ID).Str("ticker", ticker).Msg("rejected close request for unknown position")
		return fmt.Errorf("%w: no open position in %s for portfolio %s", domain.ErrInvalidPositionOp, ticker, p.ID)
	}
	closeQty := quantity
	if closeQty == 0 {
		closeQty = pos.Quantity
	}
	if closeQty > pos.Quantity {
		log.Warn().Str("portfolio", p.ID).Str("ticker", ticker).Float64("requested", closeQty).Float64("held", pos.Quantity).Msg("rejected close request exceeding position size")
		return fmt.Errorf("%w: close quantity %v exceeds position quantity %v", domain.ErrInvalidPositionOp, closeQty, pos.Quantity)
	}

	proceeds := closeQty * currentPrice
	commission := proceeds * p.commissionRate

	if closeQty == pos.Quantity {
		delete(p.positions, ticker)
	} else {
		pos.Quantity -= closeQty
		p.positions[ticker] = pos
	}

	if pos.Type == domain.Long {
		p.cash += proceeds - commission
	} else {
		p.cash -= proceeds + commission
	}

	return nil
}

// CreatePositionRequest builds a PositionRequest with a portfolio-local
// monotone id ("T{n}") and appends it to the request history, but does
// not enqueue it — see RequestTrade.
func (p *Portfolio) CreatePositionRequest(ticker string, positionType domain.PositionType, action domain.RequestAction, quantity, price, commission float64, now time.Time) domain.PositionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.createPositionRequestLocked(ticker, positionType, action, quantity, price, commission, now)
}

func (p *Portfolio) createPositionRequestLocked(ticker string, positionType domain.PositionType, action domain.RequestAction, quantity, price, commission float64, now time.Time) domain.PositionRequest {
	req := domain.PositionRequest{
		TradeRequestID: fmt.Sprintf("T%d", len(p.history)+1),
		Ticker:         ticker,
		Action:         action,
		PositionType:   positionType,
		Side:           domain.SideFor(action, positionType),
		Quantity:       quantity,
		Price:          price,
		Commission:     commission,
		Timestamp:      now,
	}
	p.history = append(p.history, req)
	return req
}

// RequestTrade creates a position request and enqueues it for later
// processing by a trade service. Returns the new queue depth.
func (p *Portfolio) RequestTrade(ticker string, positionType domain.PositionType, action domain.RequestAction, quantity, price, commission float64, now time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	req := p.createPositionRequestLocked(ticker, positionType, action, quantity, price, commission, now)
	p.pending = append(p.pending, req)
	return len(p.pending)
}

// PopPending removes and returns the oldest queued trade request, in FIFO
// order. ok is false if the queue is empty.
func (p *Portfolio) PopPending() (domain.PositionRequest, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pending) == 0 {
		return domain.PositionRequest{}, false
	}
	req := p.pending[0]
	p.pending = p.pending[1:]
	return req, true
}

// Lock and Unlock expose the portfolio's mutex. Every other exported method
// takes the same mutex, so none of them may be called while it is held.
func (p *Portfolio) Lock()   { p.mu.Lock() }
func (p *Portfolio) Unlock() { p.mu.Unlock() }
