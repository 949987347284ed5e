package binance

import "strings"

const (
	// Futures REST endpoint listing every contract and its trading status
	exchangeInfoPath = "/fapi/v1/exchangeInfo"

	// Contract status accepted for subscription
	StatusTrading = "TRADING"

	tradeStream = "trade"
)

// StreamName returns the trade stream name for a symbol, e.g. "btcusdt@trade".
func StreamName(symbol string) string {
	return strings.ToLower(symbol) + "@" + tradeStream
}

// StreamURL joins the WebSocket base URL with the symbol's trade stream,
// e.g. "wss://fstream.binance.com/ws/btcusdt@trade".
func StreamURL(baseURL, symbol string) string {
	return strings.TrimRight(baseURL, "/") + "/" + StreamName(symbol)
}
