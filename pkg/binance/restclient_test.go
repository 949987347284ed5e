package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exchangeInfoBody = `{
  "timezone": "UTC",
  "serverTime": 1704153600000,
  "symbols": [
    {"symbol": "BTCUSDT", "status": "TRADING", "contractType": "PERPETUAL", "baseAsset": "BTC", "quoteAsset": "USDT"},
    {"symbol": "ETHUSDT", "status": "TRADING", "contractType": "PERPETUAL", "baseAsset": "ETH", "quoteAsset": "USDT"},
    {"symbol": "LUNAUSDT", "status": "SETTLING", "contractType": "PERPETUAL", "baseAsset": "LUNA", "quoteAsset": "USDT"}
  ]
}`

// go test -v --run TestGetSymbolStatuses
func TestGetSymbolStatuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v1/exchangeInfo", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(exchangeInfoBody))
	}))
	defer srv.Close()

	client := NewRESTClient(srv.URL, 5*time.Second)

	// Context with timeout for safety
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	statuses, err := client.GetSymbolStatuses(ctx)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"BTCUSDT":  StatusTrading,
		"ETHUSDT":  StatusTrading,
		"LUNAUSDT": "SETTLING",
	}, statuses)
}

// go test -v --run TestGetSymbolStatusesAPIError
func TestGetSymbolStatusesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"code":-1003,"msg":"Too many requests."}`))
	}))
	defer srv.Close()

	client := NewRESTClient(srv.URL, 5*time.Second)

	_, err := client.GetSymbolStatuses(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-1003")
}

// go test -v --run TestGetSymbolStatusesBadBody
func TestGetSymbolStatusesBadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	_, err := NewRESTClient(srv.URL, 5*time.Second).GetSymbolStatuses(context.Background())
	assert.Error(t, err)
}
