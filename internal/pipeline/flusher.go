package pipeline

import (
	"context"
	"fmt"
	"time"

	"quantfeed/internal/binance/memorystore"
	"quantfeed/internal/metrics"
	"quantfeed/pkg/market"

	"go.uber.org/zap"
)

// TickWriter is the part of the tick store the flusher needs.
type TickWriter interface {
	InsertTicks(ctx context.Context, ticks []market.Tick) error
	CountTicks(ctx context.Context) (int64, error)
}

// Flusher copies ticks from the hot buffer into the tick store. It owns the
// per-symbol watermarks; nothing else reads or writes them.
type Flusher struct {
	buffer   memorystore.Reader
	store    TickWriter
	interval time.Duration
	logger   *zap.Logger

	watermarks map[string]uint64
}

func NewFlusher(buffer memorystore.Reader, store TickWriter, interval time.Duration, logger *zap.Logger) *Flusher {
	return &Flusher{
		buffer:     buffer,
		store:      store,
		interval:   interval,
		logger:     logger.Named("flusher"),
		watermarks: make(map[string]uint64),
	}
}

// Watermark returns how many ticks of symbol have been written so far.
func (f *Flusher) Watermark(symbol string) uint64 {
	return f.watermarks[symbol]
}

// Run flushes every interval until ctx is cancelled. Store errors are logged
// and retried on the next tick; Run itself only returns on cancellation.
func (f *Flusher) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := f.FlushOnce(ctx); err != nil && ctx.Err() == nil {
				f.logger.Error("flush failed", zap.Error(err))
			}
		}
	}
}

// FlushOnce writes every retained tick past each symbol's watermark in a
// single insert and returns how many were written. Watermarks advance only
// when the insert succeeds.
func (f *Flusher) FlushOnce(ctx context.Context) (int, error) {
	var (
		batch []market.Tick
		next  = make(map[string]uint64)
	)

	for _, symbol := range f.buffer.Symbols() {
		ticks, seq, lost := f.buffer.Since(symbol, f.watermarks[symbol])
		if lost > 0 {
			f.logger.Warn("ticks evicted before flush",
				zap.String("symbol", symbol),
				zap.Uint64("lost", lost),
			)
			metrics.TicksLost.WithLabelValues(symbol).Add(float64(lost))
			// Count each gap once even if the insert below fails.
			f.watermarks[symbol] += lost
		}
		if seq != f.watermarks[symbol] {
			next[symbol] = seq
		}
		batch = append(batch, ticks...)
	}

	if len(batch) == 0 {
		for symbol, seq := range next {
			f.watermarks[symbol] = seq
		}
		return 0, nil
	}

	start := time.Now()
	if err := f.store.InsertTicks(ctx, batch); err != nil {
		metrics.FlushErrors.Inc()
		return 0, fmt.Errorf("insert batch of %d ticks: %w", len(batch), err)
	}
	metrics.FlushLatency.Observe(time.Since(start).Seconds())
	metrics.TicksFlushed.Add(float64(len(batch)))

	for symbol, seq := range next {
		f.watermarks[symbol] = seq
	}

	fields := []zap.Field{zap.Int("inserted", len(batch))}
	if total, err := f.store.CountTicks(ctx); err == nil {
		fields = append(fields, zap.Int64("total", total))
	}
	f.logger.Debug("flushed ticks", fields...)

	return len(batch), nil
}
