// Package netserver runs the TCP listener that carries wire-protocol
// frames to a tradingsystem.System: a bounded worker pool reads one
// frame per connection task and re-queues the connection for its next
// frame, supervised by a tomb.Tomb.
package netserver

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"venue/internal/domain"
	"venue/internal/tradingsystem"
	"venue/internal/wire"
	"venue/internal/workerpool"
)

const (
	maxFrameSize       = 4 * 1024
	defaultWorkers     = 10
	defaultConnTimeout = 5 * time.Second
)

// Server listens for TCP connections and dispatches decoded wire frames to
// a tradingsystem.System.
type Server struct {
	address string
	system  *tradingsystem.System
	pool    workerpool.Pool
	cancel  context.CancelFunc
}

// New returns a server listening on address (e.g. "0.0.0.0:9001") that
// drives system.
func New(address string, system *tradingsystem.System) *Server {
	return &Server{
		address: address,
		system:  system,
		pool:    workerpool.New(defaultWorkers),
	}
}

// Shutdown cancels the server's run context.
func (s *Server) Shutdown() {
	if s.cancel != nil {
		log.Info().Msg("netserver shutting down")
		s.cancel()
	}
}

// Run listens and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	defer s.Shutdown()

	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.address)
	if err != nil {
		return fmt.Errorf("starting listener: %w", err)
	}
	defer func() {
		if cerr := listener.Close(); cerr != nil {
			log.Error().Err(cerr).Msg("closing listener")
		}
	}()

	t.Go(func() error {
		s.pool.Setup(t, s.handleConnection)
		return nil
	})

	log.Info().Str("address", s.address).Msg("netserver listening")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			conn, err := listener.Accept()
			if err != nil {
				log.Error().Err(err).Msg("accepting connection")
				continue
			}
			sess := session{conn: conn, id: uuid.New().String()}
			log.Debug().Str("session", sess.id).Str("remote", conn.RemoteAddr().String()).Msg("accepted connection")
			s.pool.AddTask(sess)
		}
	}
}

// session pairs a connection with the id assigned to it at accept time, so
// log lines from unrelated requests on different connections can be told
// apart.
type session struct {
	conn net.Conn
	id   string
}

// handleConnection reads one frame from sess's connection, dispatches it,
// writes the response, and re-queues the connection for its next frame.
// Any error returned here kills the pool's tomb, and with it every worker,
// per workerpool's contract, so connection-level errors (read/write
// failures) are swallowed and logged instead of propagated.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	sess, ok := task.(session)
	if !ok {
		return fmt.Errorf("netserver: unexpected task type %T", task)
	}

	if err := sess.conn.SetDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		log.Error().Err(err).Str("session", sess.id).Msg("setting connection deadline")
		sess.conn.Close()
		return nil
	}

	buf := make([]byte, maxFrameSize)
	n, err := sess.conn.Read(buf)
	if err != nil {
		sess.conn.Close()
		return nil
	}

	resp := s.dispatch(buf[:n])
	if _, err := sess.conn.Write(resp.Encode()); err != nil {
		log.Error().Err(err).Str("session", sess.id).Msg("writing response")
		sess.conn.Close()
		return nil
	}

	s.pool.AddTask(sess)
	return nil
}

// dispatch decodes frame and runs the corresponding tradingsystem.System
// operation, translating its result or error into a wire.Response.
func (s *Server) dispatch(frame []byte) wire.Response {
	req, err := wire.Decode(frame)
	if err != nil {
		return errorResponse(err)
	}

	switch r := req.(type) {
	case wire.SubmitOrderRequest:
		trades, err := s.system.SubmitOrder(r.PortfolioID, tradingsystem.OrderRequest{
			Ticker:     r.Ticker,
			Side:       r.Side,
			Kind:       r.Kind,
			LimitPrice: r.LimitPrice,
			Quantity:   r.Quantity,
		})
		if err != nil {
			return errorResponse(err)
		}
		return wire.Response{Status: wire.StatusOK, Trades: summarize(trades)}

	case wire.SubmitTradeRequestRequest:
		depth, err := s.system.SubmitTradeRequest(r.PortfolioID, r.Ticker, r.PositionType, r.Action, r.Quantity, r.Price, r.Commission)
		if err != nil {
			return errorResponse(err)
		}
		return wire.Response{Status: wire.StatusOK, Depth: depth}

	case wire.ProcessTradesRequest:
		drained, filled, err := s.system.ProcessTrades(r.PortfolioID)
		if err != nil {
			return errorResponse(err)
		}
		return wire.Response{Status: wire.StatusOK, Drained: drained, Filled: filled}

	case wire.ProcessAllTradesRequest:
		drained, filled, err := s.system.ProcessAllTrades(r.PortfolioIDs, int(r.PoolSize))
		if err != nil {
			return errorResponse(err)
		}
		return wire.Response{Status: wire.StatusOK, Drained: drained, Filled: filled}

	case wire.GetPortfolioRequest:
		p, err := s.system.GetPortfolio(r.PortfolioID)
		if err != nil {
			return errorResponse(err)
		}
		positions := make(map[string]float64, len(p.Positions()))
		for ticker, pos := range p.Positions() {
			positions[ticker] = pos.Quantity
		}
		return wire.Response{
			Status:         wire.StatusOK,
			Cash:           p.Cash(),
			PendingCount:   p.PendingCount(),
			CommissionRate: p.CommissionRate(),
			TotalValue:     p.TotalPortfolioValue(nil),
			Positions:      positions,
		}

	case wire.GetBookRequest:
		b, err := s.system.GetBook(r.Ticker)
		if err != nil {
			return errorResponse(err)
		}
		resp := wire.Response{Status: wire.StatusOK}
		if bid, ok := b.BestBid(); ok {
			resp.BestBid, resp.HasBid = bid.LimitPrice, true
		}
		if ask, ok := b.BestAsk(); ok {
			resp.BestAsk, resp.HasAsk = ask.LimitPrice, true
		}
		if spread, ok := b.Spread(); ok {
			resp.Spread, resp.HasSpread = spread, true
		}
		return resp

	default:
		return errorResponse(fmt.Errorf("%w: unhandled request type %T", domain.ErrInvalidOrder, req))
	}
}

func errorResponse(err error) wire.Response {
	return wire.Response{Status: wire.StatusError, ErrMsg: err.Error()}
}

func summarize(trades []domain.Trade) []wire.TradeSummary {
	if len(trades) == 0 {
		return nil
	}
	out := make([]wire.TradeSummary, len(trades))
	for i, t := range trades {
		out[i] = wire.TradeSummary{
			Price:         t.Price,
			Quantity:      t.Quantity,
			BuyerOrderID:  t.BuyerOrderID,
			SellerOrderID: t.SellerOrderID,
		}
	}
	return out
}
