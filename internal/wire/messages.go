// Package wire implements the binary protocol venued and venuectl speak
// over TCP: big-endian frames, one per tradingsystem.System operation, each
// a 2-byte message type followed by its fields, with strings carried behind
// a 1-byte length prefix. Frames themselves carry no length prefix.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"venue/internal/domain"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMessageTooShort    = errors.New("message too short for declared field lengths")
)

// MessageType identifies which tradingsystem.System operation a request
// frame carries.
type MessageType uint16

const (
	Heartbeat MessageType = iota
	SubmitOrder
	SubmitTradeRequest
	ProcessTrades
	ProcessAllTrades
	GetPortfolio
	GetBook
)

// StatusType identifies whether a response frame carries a result or an
// error. One response shape covers every operation's result.
type StatusType uint8

const (
	StatusOK StatusType = iota
	StatusError
)

// baseHeaderLen is the 2-byte message type prefix on every request frame.
const baseHeaderLen = 2

// putString appends a length-prefixed (1-byte length, so callers must keep
// ids and tickers under 256 bytes) string to buf.
func putString(buf []byte, s string) []byte {
	buf = append(buf, byte(len(s)))
	return append(buf, s...)
}

func getString(msg []byte) (s string, rest []byte, err error) {
	if len(msg) < 1 {
		return "", nil, ErrMessageTooShort
	}
	n := int(msg[0])
	if len(msg) < 1+n {
		return "", nil, ErrMessageTooShort
	}
	return string(msg[1 : 1+n]), msg[1+n:], nil
}

// SubmitOrderRequest carries tradingsystem.OrderRequest plus the portfolio
// it's submitted for.
type SubmitOrderRequest struct {
	PortfolioID string
	Ticker      string
	Side        domain.Side
	Kind        domain.Kind
	LimitPrice  float64
	Quantity    float64
}

// Encode serializes r as a full request frame (type prefix included).
func (r SubmitOrderRequest) Encode() []byte {
	buf := make([]byte, 2, 32)
	binary.BigEndian.PutUint16(buf, uint16(SubmitOrder))
	buf = putString(buf, r.PortfolioID)
	buf = putString(buf, r.Ticker)
	buf = append(buf, byte(r.Side), byte(r.Kind))
	buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(r.LimitPrice))
	buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(r.Quantity))
	return buf
}

func decodeSubmitOrder(body []byte) (SubmitOrderRequest, error) {
	var r SubmitOrderRequest
	var err error
	r.PortfolioID, body, err = getString(body)
	if err != nil {
		return r, err
	}
	r.Ticker, body, err = getString(body)
	if err != nil {
		return r, err
	}
	if len(body) < 18 {
		return r, ErrMessageTooShort
	}
	r.Side = domain.Side(body[0])
	r.Kind = domain.Kind(body[1])
	r.LimitPrice = math.Float64frombits(binary.BigEndian.Uint64(body[2:10]))
	r.Quantity = math.Float64frombits(binary.BigEndian.Uint64(body[10:18]))
	return r, nil
}

// SubmitTradeRequestRequest carries a position request's fields.
type SubmitTradeRequestRequest struct {
	PortfolioID  string
	Ticker       string
	PositionType domain.PositionType
	Action       domain.RequestAction
	Quantity     float64
	Price        float64
	Commission   float64
}

func (r SubmitTradeRequestRequest) Encode() []byte {
	buf := make([]byte, 2, 48)
	binary.BigEndian.PutUint16(buf, uint16(SubmitTradeRequest))
	buf = putString(buf, r.PortfolioID)
	buf = putString(buf, r.Ticker)
	buf = append(buf, byte(r.PositionType), byte(r.Action))
	buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(r.Quantity))
	buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(r.Price))
	buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(r.Commission))
	return buf
}

func decodeSubmitTradeRequest(body []byte) (SubmitTradeRequestRequest, error) {
	var r SubmitTradeRequestRequest
	var err error
	r.PortfolioID, body, err = getString(body)
	if err != nil {
		return r, err
	}
	r.Ticker, body, err = getString(body)
	if err != nil {
		return r, err
	}
	if len(body) < 26 {
		return r, ErrMessageTooShort
	}
	r.PositionType = domain.PositionType(body[0])
	r.Action = domain.RequestAction(body[1])
	r.Quantity = math.Float64frombits(binary.BigEndian.Uint64(body[2:10]))
	r.Price = math.Float64frombits(binary.BigEndian.Uint64(body[10:18]))
	r.Commission = math.Float64frombits(binary.BigEndian.Uint64(body[18:26]))
	return r, nil
}

// ProcessTradesRequest drains one portfolio's queue.
type ProcessTradesRequest struct {
	PortfolioID string
}

func (r ProcessTradesRequest) Encode() []byte {
	buf := make([]byte, 2, 16)
	binary.BigEndian.PutUint16(buf, uint16(ProcessTrades))
	return putString(buf, r.PortfolioID)
}

func decodeProcessTrades(body []byte) (ProcessTradesRequest, error) {
	id, _, err := getString(body)
	return ProcessTradesRequest{PortfolioID: id}, err
}

// ProcessAllTradesRequest drains every listed portfolio's queue.
type ProcessAllTradesRequest struct {
	PortfolioIDs []string
	PoolSize     uint16
}

func (r ProcessAllTradesRequest) Encode() []byte {
	buf := make([]byte, 2, 32)
	binary.BigEndian.PutUint16(buf, uint16(ProcessAllTrades))
	buf = binary.BigEndian.AppendUint16(buf, r.PoolSize)
	buf = append(buf, byte(len(r.PortfolioIDs)))
	for _, id := range r.PortfolioIDs {
		buf = putString(buf, id)
	}
	return buf
}

func decodeProcessAllTrades(body []byte) (ProcessAllTradesRequest, error) {
	if len(body) < 3 {
		return ProcessAllTradesRequest{}, ErrMessageTooShort
	}
	poolSize := binary.BigEndian.Uint16(body[0:2])
	count := int(body[2])
	body = body[3:]

	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		var id string
		var err error
		id, body, err = getString(body)
		if err != nil {
			return ProcessAllTradesRequest{}, err
		}
		ids = append(ids, id)
	}
	return ProcessAllTradesRequest{PortfolioIDs: ids, PoolSize: poolSize}, nil
}

// GetPortfolioRequest fetches a portfolio's cash and position snapshot.
type GetPortfolioRequest struct {
	PortfolioID string
}

func (r GetPortfolioRequest) Encode() []byte {
	buf := make([]byte, 2, 16)
	binary.BigEndian.PutUint16(buf, uint16(GetPortfolio))
	return putString(buf, r.PortfolioID)
}

func decodeGetPortfolio(body []byte) (GetPortfolioRequest, error) {
	id, _, err := getString(body)
	return GetPortfolioRequest{PortfolioID: id}, err
}

// GetBookRequest fetches a book's best-bid/best-ask/spread snapshot.
type GetBookRequest struct {
	Ticker string
}

func (r GetBookRequest) Encode() []byte {
	buf := make([]byte, 2, 16)
	binary.BigEndian.PutUint16(buf, uint16(GetBook))
	return putString(buf, r.Ticker)
}

func decodeGetBook(body []byte) (GetBookRequest, error) {
	ticker, _, err := getString(body)
	return GetBookRequest{Ticker: ticker}, err
}

// Request is any decoded request frame; handlers type-switch on the
// concrete type.
type Request interface {
	isRequest()
}

func (SubmitOrderRequest) isRequest()        {}
func (SubmitTradeRequestRequest) isRequest() {}
func (ProcessTradesRequest) isRequest()      {}
func (ProcessAllTradesRequest) isRequest()   {}
func (GetPortfolioRequest) isRequest()       {}
func (GetBookRequest) isRequest()            {}

// Decode parses a full frame (type prefix included) into its concrete
// Request type.
func Decode(frame []byte) (Request, error) {
	if len(frame) < baseHeaderLen {
		return nil, ErrMessageTooShort
	}
	typeOf := MessageType(binary.BigEndian.Uint16(frame[0:2]))
	body := frame[2:]
	switch typeOf {
	case SubmitOrder:
		return decodeSubmitOrder(body)
	case SubmitTradeRequest:
		return decodeSubmitTradeRequest(body)
	case ProcessTrades:
		return decodeProcessTrades(body)
	case ProcessAllTrades:
		return decodeProcessAllTrades(body)
	case GetPortfolio:
		return decodeGetPortfolio(body)
	case GetBook:
		return decodeGetBook(body)
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidMessageType, typeOf)
	}
}
