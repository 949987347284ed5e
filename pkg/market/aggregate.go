package market

import "time"

// Resample partitions ticks into aligned buckets of the given timeframe and
// returns one Bar per non-empty bucket, ordered by bucket start.
// Ticks must be ordered by time; open and close follow that order.
func Resample(symbol string, tf Timeframe, ticks []Tick) []Bar {
	if len(ticks) == 0 || !tf.IsValid() {
		return nil
	}

	var (
		bars     []Bar
		cur      *Bar
		notional float64
	)

	for _, t := range ticks {
		bucket := tf.BucketStart(t.Timestamp)
		if cur == nil || !cur.BucketStart.Equal(bucket) {
			if cur != nil {
				bars = append(bars, finalize(*cur, notional))
			}
			cur = &Bar{
				Symbol:      symbol,
				Timeframe:   tf,
				BucketStart: bucket,
				Open:        t.Price,
				High:        t.Price,
				Low:         t.Price,
			}
			notional = 0
		}

		if t.Price > cur.High {
			cur.High = t.Price
		}
		if t.Price < cur.Low {
			cur.Low = t.Price
		}
		cur.Close = t.Price
		cur.Volume += t.Qty
		notional += t.Price * t.Qty
	}
	bars = append(bars, finalize(*cur, notional))

	return bars
}

// finalize fills VWAP. A bucket whose quantities sum to zero falls back to close.
func finalize(b Bar, notional float64) Bar {
	if b.Volume != 0 {
		b.VWAP = notional / b.Volume
	} else {
		b.VWAP = b.Close
	}
	return b
}

// BucketRange returns the half-open interval [start, end) covering ts.
func BucketRange(tf Timeframe, ts time.Time) (start, end time.Time) {
	start = tf.BucketStart(ts)
	return start, start.Add(tf.Width())
}
