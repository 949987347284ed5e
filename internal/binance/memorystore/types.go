package memorystore

import "quantfeed/pkg/market"

// Appender is the write side of the hot buffer used by stream connectors.
type Appender interface {
	Append(t market.Tick)
}

// Reader is the read side used by the flush scheduler and query callers.
type Reader interface {
	Symbols() []string
	Since(symbol string, watermark uint64) (ticks []market.Tick, next uint64, lost uint64)
	Recent(symbol string, n int) []market.Tick
	Last(symbol string) (market.Tick, bool)
	Size(symbol string) int
}

var (
	_ Appender = (*TickBuffer)(nil)
	_ Reader   = (*TickBuffer)(nil)
)
