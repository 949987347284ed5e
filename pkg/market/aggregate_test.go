package market

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func tick(offset time.Duration, price, qty float64) Tick {
	return Tick{Symbol: "BTCUSDT", Timestamp: day.Add(offset), Price: price, Qty: qty}
}

// go test -v --run TestResampleOneMinuteBar
func TestResampleOneMinuteBar(t *testing.T) {
	ticks := []Tick{
		tick(5*time.Second, 100, 1),
		tick(30*time.Second, 102, 2),
		tick(59*time.Second, 101, 1),
	}

	bars := Resample("BTCUSDT", Timeframe1m, ticks)
	require.Len(t, bars, 1)

	b := bars[0]
	assert.Equal(t, day, b.BucketStart)
	assert.Equal(t, Timeframe1m, b.Timeframe)
	assert.Equal(t, 100.0, b.Open)
	assert.Equal(t, 102.0, b.High)
	assert.Equal(t, 100.0, b.Low)
	assert.Equal(t, 101.0, b.Close)
	assert.Equal(t, 4.0, b.Volume)
	assert.InDelta(t, 101.25, b.VWAP, 1e-12)
}

// go test -v --run TestResampleSkipsEmptyBuckets
func TestResampleSkipsEmptyBuckets(t *testing.T) {
	ticks := []Tick{
		tick(10*time.Second, 10, 1),
		tick(3*time.Minute+1*time.Second, 12, 1),
		tick(3*time.Minute+2*time.Second, 11, 3),
	}

	bars := Resample("BTCUSDT", Timeframe1m, ticks)
	require.Len(t, bars, 2)
	assert.Equal(t, day, bars[0].BucketStart)
	assert.Equal(t, day.Add(3*time.Minute), bars[1].BucketStart)
	assert.Equal(t, 4.0, bars[1].Volume)

	five := Resample("BTCUSDT", Timeframe5m, ticks)
	require.Len(t, five, 1)
	assert.Equal(t, 10.0, five[0].Open)
	assert.Equal(t, 11.0, five[0].Close)
	assert.Equal(t, 5.0, five[0].Volume)
}

// go test -v --run TestResampleBucketBoundary
func TestResampleBucketBoundary(t *testing.T) {
	ticks := []Tick{
		tick(999*time.Millisecond, 1, 1),
		tick(time.Second, 2, 1),
	}

	bars := Resample("BTCUSDT", Timeframe1s, ticks)
	require.Len(t, bars, 2)
	assert.Equal(t, day, bars[0].BucketStart)
	assert.Equal(t, day.Add(time.Second), bars[1].BucketStart)
}

// go test -v --run TestResampleEmpty
func TestResampleEmpty(t *testing.T) {
	assert.Empty(t, Resample("ETHUSDT", Timeframe1m, nil))
	assert.Empty(t, Resample("ETHUSDT", Timeframe("2h"), []Tick{tick(0, 1, 1)}))
}

// go test -v --run TestResampleZeroQty
func TestResampleZeroQty(t *testing.T) {
	bars := Resample("BTCUSDT", Timeframe1m, []Tick{tick(0, 50, 0)})
	require.Len(t, bars, 1)
	assert.Equal(t, 50.0, bars[0].VWAP)
}

// go test -v --run TestResampleInvariants
func TestResampleInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	var ticks []Tick
	offset := time.Duration(0)
	for i := 0; i < 2000; i++ {
		offset += time.Duration(rng.Intn(900)) * time.Millisecond
		ticks = append(ticks, tick(offset, 100+rng.Float64()*10, rng.Float64()*3))
	}

	for _, tf := range AllTimeframes {
		bars := Resample("BTCUSDT", tf, ticks)
		require.NotEmpty(t, bars)

		var total int
		for i, b := range bars {
			assert.Equal(t, b.BucketStart, tf.BucketStart(b.BucketStart), "unaligned bucket")
			if i > 0 {
				assert.True(t, bars[i-1].BucketStart.Before(b.BucketStart))
			}

			var vol, notional float64
			var n int
			for _, tk := range ticks {
				start, end := BucketRange(tf, tk.Timestamp)
				if start.Equal(b.BucketStart) && tk.Timestamp.Before(end) {
					vol += tk.Qty
					notional += tk.Price * tk.Qty
					n++
				}
			}
			total += n

			assert.LessOrEqual(t, b.Low, b.Open)
			assert.LessOrEqual(t, b.Low, b.Close)
			assert.GreaterOrEqual(t, b.High, b.Open)
			assert.GreaterOrEqual(t, b.High, b.Close)
			assert.InDelta(t, vol, b.Volume, 1e-9)
			assert.InDelta(t, notional/vol, b.VWAP, 1e-9)
		}
		assert.Equal(t, len(ticks), total)

		// Recomputing the same input yields identical bars.
		assert.Equal(t, bars, Resample("BTCUSDT", tf, ticks))
	}
}
