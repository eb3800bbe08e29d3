package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"strings"

	"venue/internal/domain"
	"venue/internal/wire"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "address of the venued server")
	action := flag.String("action", "submit-order", "action to perform: [submit-order, submit-trade-request, process-trades, process-all-trades, get-portfolio, get-book]")

	portfolioID := flag.String("portfolio", "", "portfolio id")
	ticker := flag.String("ticker", "AAPL", "ticker symbol")
	sideStr := flag.String("side", "bid", "order side: 'bid' or 'ask'")
	kindStr := flag.String("kind", "limit", "order kind: 'limit' or 'market'")
	price := flag.Float64("price", 100.0, "limit price")
	qty := flag.Float64("qty", 10, "quantity")
	commission := flag.Float64("commission", 0, "commission for a trade request")
	positionTypeStr := flag.String("position-type", "long", "'long' or 'short'")
	requestActionStr := flag.String("request-action", "open", "'open' or 'close'")
	poolSize := flag.Int("pool-size", 4, "worker pool size for process-all-trades")
	portfolioIDs := flag.String("portfolios", "", "comma-separated portfolio ids for process-all-trades")

	flag.Parse()

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("connecting to %s: %v", *serverAddr, err)
	}
	defer conn.Close()

	var frame []byte
	switch strings.ToLower(*action) {
	case "submit-order":
		frame = wire.SubmitOrderRequest{
			PortfolioID: *portfolioID,
			Ticker:      *ticker,
			Side:        parseSide(*sideStr),
			Kind:        parseKind(*kindStr),
			LimitPrice:  *price,
			Quantity:    *qty,
		}.Encode()

	case "submit-trade-request":
		frame = wire.SubmitTradeRequestRequest{
			PortfolioID:  *portfolioID,
			Ticker:       *ticker,
			PositionType: parsePositionType(*positionTypeStr),
			Action:       parseRequestAction(*requestActionStr),
			Quantity:     *qty,
			Price:        *price,
			Commission:   *commission,
		}.Encode()

	case "process-trades":
		frame = wire.ProcessTradesRequest{PortfolioID: *portfolioID}.Encode()

	case "process-all-trades":
		var ids []string
		if *portfolioIDs != "" {
			ids = strings.Split(*portfolioIDs, ",")
		}
		frame = wire.ProcessAllTradesRequest{PortfolioIDs: ids, PoolSize: uint16(*poolSize)}.Encode()

	case "get-portfolio":
		frame = wire.GetPortfolioRequest{PortfolioID: *portfolioID}.Encode()

	case "get-book":
		frame = wire.GetBookRequest{Ticker: *ticker}.Encode()

	default:
		log.Fatalf("unknown action: %s", *action)
	}

	if _, err := conn.Write(frame); err != nil {
		log.Fatalf("sending request: %v", err)
	}

	buf := make([]byte, 4*1024)
	n, err := conn.Read(buf)
	if err != nil {
		log.Fatalf("reading response: %v", err)
	}

	resp, err := wire.DecodeResponse(buf[:n])
	if err != nil {
		log.Fatalf("decoding response: %v", err)
	}

	printResponse(resp)
}

func printResponse(resp wire.Response) {
	if resp.Status == wire.StatusError {
		fmt.Printf("error: %s\n", resp.ErrMsg)
		return
	}
	if len(resp.Trades) > 0 {
		for _, t := range resp.Trades {
			fmt.Printf("trade: %.2f @ %.2f (buyer=%s seller=%s)\n", t.Quantity, t.Price, t.BuyerOrderID, t.SellerOrderID)
		}
	}
	if resp.Depth > 0 {
		fmt.Printf("queue depth: %d\n", resp.Depth)
	}
	if resp.Drained > 0 || resp.Filled > 0 {
		fmt.Printf("drained: %d filled: %d\n", resp.Drained, resp.Filled)
	}
	if resp.HasBid {
		fmt.Printf("best bid: %.2f\n", resp.BestBid)
	}
	if resp.HasAsk {
		fmt.Printf("best ask: %.2f\n", resp.BestAsk)
	}
	if resp.HasSpread {
		fmt.Printf("spread: %.2f\n", resp.Spread)
	}
	fmt.Printf("cash: %.2f pending: %d\n", resp.Cash, resp.PendingCount)
	if resp.CommissionRate > 0 || resp.TotalValue > 0 || len(resp.Positions) > 0 {
		fmt.Printf("commission rate: %.4f total value: %.2f\n", resp.CommissionRate, resp.TotalValue)
		for ticker, qty := range resp.Positions {
			fmt.Printf("  %s: %.2f\n", ticker, qty)
		}
	}
}

func parseSide(s string) domain.Side {
	if strings.EqualFold(s, "ask") {
		return domain.Ask
	}
	return domain.Bid
}

func parseKind(s string) domain.Kind {
	if strings.EqualFold(s, "market") {
		return domain.Market
	}
	return domain.Limit
}

func parsePositionType(s string) domain.PositionType {
	if strings.EqualFold(s, "short") {
		return domain.Short
	}
	return domain.Long
}

func parseRequestAction(s string) domain.RequestAction {
	if strings.EqualFold(s, "close") {
		return domain.Close
	}
	return domain.Open
}
