package stream

import (
	"testing"
	"time"

	"quantfeed/internal/binance/memorystore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// go test -v --run TestNormalizeTrade
func TestNormalizeTrade(t *testing.T) {
	raw := `{"e":"trade","E":1704153605123,"T":1704153605120,"s":"BTCUSDT","t":42,"p":"42000.50","q":"0.003","X":"MARKET","m":true}`

	tick, err := NormalizeTrade([]byte(raw), "BTCUSDT")
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", tick.Symbol)
	assert.Equal(t, time.UnixMilli(1704153605120).UTC(), tick.Timestamp)
	assert.Equal(t, 42000.50, tick.Price)
	assert.Equal(t, 0.003, tick.Qty)
}

// go test -v --run TestNormalizeTradeFallsBackToEventTime
func TestNormalizeTradeFallsBackToEventTime(t *testing.T) {
	tick, err := NormalizeTrade([]byte(`{"e":"trade","E":1704153605123,"s":"ethusdt","p":"2300","q":"1"}`), "ETHUSDT")
	require.NoError(t, err)
	assert.Equal(t, time.UnixMilli(1704153605123).UTC(), tick.Timestamp)
	assert.Equal(t, "ETHUSDT", tick.Symbol)
}

// go test -v --run TestNormalizeTradeRejects
func TestNormalizeTradeRejects(t *testing.T) {
	cases := map[string]string{
		"not json":     `{"e":`,
		"bad price":    `{"e":"trade","T":1,"s":"BTCUSDT","p":"abc","q":"1"}`,
		"bad qty":      `{"e":"trade","T":1,"s":"BTCUSDT","p":"1","q":""}`,
		"no timestamp": `{"e":"trade","s":"BTCUSDT","p":"1","q":"1"}`,
		"no symbol":    `{"e":"trade","T":1,"p":"1","q":"1"}`,
		"nan price":    `{"e":"trade","T":1,"s":"BTCUSDT","p":"NaN","q":"1"}`,
		"inf price":    `{"e":"trade","T":1,"s":"BTCUSDT","p":"+Inf","q":"1"}`,
		"zero price":   `{"e":"trade","T":1,"s":"BTCUSDT","p":"0","q":"1"}`,
		"neg price":    `{"e":"trade","T":1,"s":"BTCUSDT","p":"-100","q":"1"}`,
		"neg qty":      `{"e":"trade","T":1,"s":"BTCUSDT","p":"100","q":"-5"}`,
		"nan qty":      `{"e":"trade","T":1,"s":"BTCUSDT","p":"100","q":"NaN"}`,
		"inf qty":      `{"e":"trade","T":1,"s":"BTCUSDT","p":"100","q":"Inf"}`,
		"other symbol": `{"e":"trade","T":1,"s":"ETHUSDT","p":"100","q":"1"}`,
		"long symbol":  `{"e":"trade","T":1,"s":"BTCUSDTBTCUSDTBTCUSDTBTCUSDTBTCUSDT","p":"100","q":"1"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NormalizeTrade([]byte(raw), "BTCUSDT")
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrNotTrade)
		})
	}

	_, err := NormalizeTrade([]byte(`{"result":null,"id":1}`), "BTCUSDT")
	assert.ErrorIs(t, err, ErrNotTrade)

	_, err = NormalizeTrade([]byte(`{"e":"aggTrade","T":1,"s":"BTCUSDT","p":"1","q":"1"}`), "BTCUSDT")
	assert.ErrorIs(t, err, ErrNotTrade)
}

// go test -v --run TestMessageHandlerAppendsTrades
func TestMessageHandlerAppendsTrades(t *testing.T) {
	buf := memorystore.NewTickBuffer(10)
	handle := MakeMessageHandler(zap.NewNop(), "BTCUSDT", buf)

	handle([]byte(`{"e":"trade","T":1000,"s":"BTCUSDT","p":"100","q":"1"}`))
	handle([]byte(`garbage`))
	handle([]byte(`{"e":"depthUpdate","s":"BTCUSDT"}`))
	handle([]byte(`{"e":"trade","T":1500,"s":"BTCUSDT","p":"NaN","q":"1"}`))
	handle([]byte(`{"e":"trade","T":1600,"s":"ETHUSDT","p":"10","q":"1"}`))
	handle([]byte(`{"e":"trade","T":2000,"s":"btcusdt","p":"101","q":"2"}`))
	handle([]byte(`{"e":"trade","T":3000,"s":"BTCUSDT","p":"102","q":"0"}`))

	ticks := buf.Recent("BTCUSDT", 10)
	require.Len(t, ticks, 3)
	assert.Equal(t, 100.0, ticks[0].Price)
	assert.Equal(t, 101.0, ticks[1].Price)
	assert.Equal(t, "BTCUSDT", ticks[1].Symbol)
	assert.Equal(t, 0.0, ticks[2].Qty)
	assert.Zero(t, buf.Size("ETHUSDT"))
}
