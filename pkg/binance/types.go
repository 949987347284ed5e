package binance

// ErrorResponse is the body Binance returns with a non-2xx status.
type ErrorResponse struct {
	Code int    `json:"code"` // Negative Binance error code, e.g. -1121
	Msg  string `json:"msg"`  // Human-readable message
}

// ExchangeInfoResponse is the subset of /fapi/v1/exchangeInfo used here.
type ExchangeInfoResponse struct {
	Timezone   string `json:"timezone"`
	ServerTime int64  `json:"serverTime"` // Server timestamp (in milliseconds since epoch)
	Symbols    []struct {
		Symbol       string `json:"symbol"`       // e.g., "BTCUSDT"
		Status       string `json:"status"`       // e.g., "TRADING", "SETTLING"
		ContractType string `json:"contractType"` // e.g., "PERPETUAL"
		BaseAsset    string `json:"baseAsset"`    // e.g., "BTC"
		QuoteAsset   string `json:"quoteAsset"`   // e.g., "USDT"
	} `json:"symbols"`
}
