package market

import "time"

// Tick is a single observed trade on one instrument.
type Tick struct {
	Symbol    string    `json:"symbol"`    // Trading symbol (e.g., "BTCUSDT")
	Timestamp time.Time `json:"timestamp"` // Trade time, millisecond precision, UTC
	Price     float64   `json:"price"`     // Executed price
	Qty       float64   `json:"qty"`       // Executed quantity (base asset units)
}

// Bar is an OHLCV+VWAP aggregate over one aligned bucket.
type Bar struct {
	Symbol      string    `json:"symbol"`
	Timeframe   Timeframe `json:"timeframe"`
	BucketStart time.Time `json:"bucket_start"` // Aligned to a multiple of the timeframe width
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	Volume      float64   `json:"volume"` // Sum of tick quantities
	VWAP        float64   `json:"vwap"`   // Sum(price*qty) / Sum(qty)
}
