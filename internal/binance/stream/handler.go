package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"quantfeed/internal/binance/memorystore"
	"quantfeed/internal/metrics"
	"quantfeed/pkg/market"

	"go.uber.org/zap"
)

const tradeEvent = "trade"

// ErrNotTrade marks a well-formed message that is not a trade event
// (subscription acks, other event types). Callers skip it silently.
var ErrNotTrade = errors.New("not a trade event")

// MakeMessageHandler returns a function that handles incoming WebSocket messages
// for one symbol by normalizing trade events and appending them to the buffer.
func MakeMessageHandler(logger *zap.Logger, symbol string, buffer memorystore.Appender) func(msg []byte) {
	received := metrics.TicksReceived.WithLabelValues(symbol)
	malformed := metrics.MalformedMessages.WithLabelValues(symbol)

	return func(msg []byte) {
		tick, err := NormalizeTrade(msg, symbol)
		if errors.Is(err, ErrNotTrade) {
			return
		}
		if err != nil {
			malformed.Inc()
			logger.Warn("skipping malformed message", zap.String("symbol", symbol), zap.Error(err))
			return
		}

		buffer.Append(tick)
		received.Inc()
	}
}

// NormalizeTrade parses a raw trade payload for symbol's stream into a
// canonical Tick. Trade time is used when present, otherwise event time.
// Price must be finite and positive, qty finite and non-negative.
func NormalizeTrade(msg []byte, symbol string) (market.Tick, error) {
	var parsed TradeMessage
	if err := json.Unmarshal(msg, &parsed); err != nil {
		return market.Tick{}, fmt.Errorf("decode trade: %w", err)
	}
	if parsed.EventType != tradeEvent {
		return market.Tick{}, ErrNotTrade
	}

	if parsed.Symbol == "" {
		return market.Tick{}, errors.New("trade without symbol")
	}
	if !strings.EqualFold(parsed.Symbol, symbol) {
		return market.Tick{}, fmt.Errorf("trade for %q on %s stream", parsed.Symbol, symbol)
	}

	ts := parsed.TradeTime
	if ts == 0 {
		ts = parsed.EventTime
	}
	if ts <= 0 {
		return market.Tick{}, fmt.Errorf("trade %d without timestamp", parsed.TradeID)
	}

	price, err := strconv.ParseFloat(parsed.Price, 64)
	if err != nil {
		return market.Tick{}, fmt.Errorf("parse price %q: %w", parsed.Price, err)
	}
	qty, err := strconv.ParseFloat(parsed.Quantity, 64)
	if err != nil {
		return market.Tick{}, fmt.Errorf("parse qty %q: %w", parsed.Quantity, err)
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return market.Tick{}, fmt.Errorf("invalid price %q", parsed.Price)
	}
	if math.IsNaN(qty) || math.IsInf(qty, 0) || qty < 0 {
		return market.Tick{}, fmt.Errorf("invalid qty %q", parsed.Quantity)
	}

	return market.Tick{
		Symbol:    strings.ToUpper(symbol),
		Timestamp: time.UnixMilli(ts).UTC(),
		Price:     price,
		Qty:       qty,
	}, nil
}
