package stream

// TradeMessage is a Binance futures "<symbol>@trade" stream payload.
type TradeMessage struct {
	EventType    string `json:"e"` // Event type, "trade" for trade events
	EventTime    int64  `json:"E"` // Event time (ms since epoch)
	TradeTime    int64  `json:"T"` // Trade time (ms since epoch)
	Symbol       string `json:"s"` // e.g., "BTCUSDT"
	TradeID      int64  `json:"t"`
	Price        string `json:"p"` // Decimal string
	Quantity     string `json:"q"` // Decimal string
	IsBuyerMaker bool   `json:"m"`
}
