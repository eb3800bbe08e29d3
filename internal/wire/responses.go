package wire

import (
	"encoding/binary"
	"math"
)

// TradeSummary is one fill reported back after a SubmitOrder request.
type TradeSummary struct {
	Price         float64
	Quantity      float64
	BuyerOrderID  string
	SellerOrderID string
}

// Response is the single frame shape covering every operation's result —
// most fields are zero-valued for any given operation, since only the
// fields relevant to that operation get populated.
type Response struct {
	Status StatusType
	ErrMsg string

	Trades []TradeSummary // SubmitOrder

	Depth int // SubmitTradeRequest

	Drained int // ProcessTrades, ProcessAllTrades
	Filled  int

	Cash           float64 // GetPortfolio
	PendingCount   int
	CommissionRate float64
	TotalValue     float64
	Positions      map[string]float64 // ticker -> quantity

	BestBid, BestAsk, Spread  float64 // GetBook
	HasBid, HasAsk, HasSpread bool
}

func putBool(buf []byte, b bool) []byte {
	if b {
		return append(buf, 1)
	}
	return append(buf, 0)
}

func putFloat(buf []byte, f float64) []byte {
	return binary.BigEndian.AppendUint64(buf, math.Float64bits(f))
}

// Encode serializes r as a full response frame.
func (r Response) Encode() []byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, byte(r.Status))
	buf = putString(buf, r.ErrMsg)

	buf = append(buf, byte(len(r.Trades)))
	for _, t := range r.Trades {
		buf = putFloat(buf, t.Price)
		buf = putFloat(buf, t.Quantity)
		buf = putString(buf, t.BuyerOrderID)
		buf = putString(buf, t.SellerOrderID)
	}

	buf = binary.BigEndian.AppendUint32(buf, uint32(r.Depth))
	buf = binary.BigEndian.AppendUint32(buf, uint32(r.Drained))
	buf = binary.BigEndian.AppendUint32(buf, uint32(r.Filled))
	buf = putFloat(buf, r.Cash)
	buf = binary.BigEndian.AppendUint32(buf, uint32(r.PendingCount))
	buf = putFloat(buf, r.BestBid)
	buf = putFloat(buf, r.BestAsk)
	buf = putFloat(buf, r.Spread)
	buf = putBool(buf, r.HasBid)
	buf = putBool(buf, r.HasAsk)
	buf = putBool(buf, r.HasSpread)

	buf = putFloat(buf, r.CommissionRate)
	buf = putFloat(buf, r.TotalValue)
	buf = append(buf, byte(len(r.Positions)))
	for ticker, qty := range r.Positions {
		buf = putString(buf, ticker)
		buf = putFloat(buf, qty)
	}
	return buf
}

// DecodeResponse parses a full response frame produced by Encode.
func DecodeResponse(frame []byte) (Response, error) {
	var r Response
	if len(frame) < 1 {
		return r, ErrMessageTooShort
	}
	r.Status = StatusType(frame[0])
	body := frame[1:]

	var err error
	r.ErrMsg, body, err = getString(body)
	if err != nil {
		return r, err
	}

	if len(body) < 1 {
		return r, ErrMessageTooShort
	}
	tradeCount := int(body[0])
	body = body[1:]
	if tradeCount > 0 {
		r.Trades = make([]TradeSummary, 0, tradeCount)
	}
	for i := 0; i < tradeCount; i++ {
		if len(body) < 16 {
			return r, ErrMessageTooShort
		}
		var t TradeSummary
		t.Price = math.Float64frombits(binary.BigEndian.Uint64(body[0:8]))
		t.Quantity = math.Float64frombits(binary.BigEndian.Uint64(body[8:16]))
		body = body[16:]
		t.BuyerOrderID, body, err = getString(body)
		if err != nil {
			return r, err
		}
		t.SellerOrderID, body, err = getString(body)
		if err != nil {
			return r, err
		}
		r.Trades = append(r.Trades, t)
	}

	if len(body) < 4+4+4+8+4+8+8+8+1+1+1 {
		return r, ErrMessageTooShort
	}
	r.Depth = int(binary.BigEndian.Uint32(body[0:4]))
	r.Drained = int(binary.BigEndian.Uint32(body[4:8]))
	r.Filled = int(binary.BigEndian.Uint32(body[8:12]))
	r.Cash = math.Float64frombits(binary.BigEndian.Uint64(body[12:20]))
	r.PendingCount = int(binary.BigEndian.Uint32(body[20:24]))
	r.BestBid = math.Float64frombits(binary.BigEndian.Uint64(body[24:32]))
	r.BestAsk = math.Float64frombits(binary.BigEndian.Uint64(body[32:40]))
	r.Spread = math.Float64frombits(binary.BigEndian.Uint64(body[40:48]))
	r.HasBid = body[48] != 0
	r.HasAsk = body[49] != 0
	r.HasSpread = body[50] != 0
	body = body[51:]

	if len(body) < 8+8+1 {
		return r, ErrMessageTooShort
	}
	r.CommissionRate = math.Float64frombits(binary.BigEndian.Uint64(body[0:8]))
	r.TotalValue = math.Float64frombits(binary.BigEndian.Uint64(body[8:16]))
	posCount := int(body[16])
	body = body[17:]

	if posCount > 0 {
		r.Positions = make(map[string]float64, posCount)
	}
	for i := 0; i < posCount; i++ {
		var ticker string
		var err error
		ticker, body, err = getString(body)
		if err != nil {
			return r, err
		}
		if len(body) < 8 {
			return r, ErrMessageTooShort
		}
		r.Positions[ticker] = math.Float64frombits(binary.BigEndian.Uint64(body[0:8]))
		body = body[8:]
	}

	return r, nil
}
