package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quantfeed/internal/metrics"
	"quantfeed/pkg/market"

	"go.uber.org/zap"
)

// BarStore is the part of the store the resampler reads ticks from and
// writes bars to.
type BarStore interface {
	LoadTicks(ctx context.Context, symbol string) ([]market.Tick, error)
	ReplaceBars(ctx context.Context, tf market.Timeframe, symbol string, bars []market.Bar) error
}

// Resampler rebuilds the bars tables from the full tick history of each symbol.
type Resampler struct {
	store      BarStore
	symbols    []string
	timeframes []market.Timeframe
	interval   time.Duration
	logger     *zap.Logger
}

func NewResampler(store BarStore, symbols []string, timeframes []market.Timeframe, interval time.Duration, logger *zap.Logger) *Resampler {
	return &Resampler{
		store:      store,
		symbols:    symbols,
		timeframes: timeframes,
		interval:   interval,
		logger:     logger.Named("resampler"),
	}
}

// Run resamples every interval until ctx is cancelled.
func (r *Resampler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.ResampleAll(ctx)
		}
	}
}

// ResampleAll resamples every configured (symbol, timeframe) pair and returns
// how many pairs failed. One failure does not stop the others.
func (r *Resampler) ResampleAll(ctx context.Context) int {
	start := time.Now()
	defer func() { metrics.ResampleLatency.Observe(time.Since(start).Seconds()) }()

	failed := 0
	for _, symbol := range r.symbols {
		if ctx.Err() != nil {
			return failed
		}
		if err := r.ResampleSymbol(ctx, symbol); err != nil {
			failed++
			// Interrupted by shutdown; the final drain reruns it.
			if ctx.Err() != nil {
				return failed
			}
			r.logger.Error("resample failed", zap.String("symbol", symbol), zap.Error(err))
		}
	}
	return failed
}

// ResampleSymbol loads symbol's ticks once and replaces its bars in every
// timeframe. A symbol without ticks is left untouched.
func (r *Resampler) ResampleSymbol(ctx context.Context, symbol string) error {
	ticks, err := r.store.LoadTicks(ctx, symbol)
	if err != nil {
		for _, tf := range r.timeframes {
			metrics.ResampleErrors.WithLabelValues(symbol, string(tf)).Inc()
		}
		return fmt.Errorf("load ticks: %w", err)
	}
	if len(ticks) == 0 {
		r.logger.Debug("no ticks to resample", zap.String("symbol", symbol))
		return nil
	}

	var errs []error
	for _, tf := range r.timeframes {
		bars := market.Resample(symbol, tf, ticks)
		if err := r.store.ReplaceBars(ctx, tf, symbol, bars); err != nil {
			metrics.ResampleErrors.WithLabelValues(symbol, string(tf)).Inc()
			errs = append(errs, fmt.Errorf("replace %d %s bars: %w", len(bars), tf, err))
			continue
		}
		metrics.BarsWritten.WithLabelValues(symbol, string(tf)).Set(float64(len(bars)))
		r.logger.Debug("resampled",
			zap.String("symbol", symbol),
			zap.String("timeframe", string(tf)),
			zap.Int("ticks", len(ticks)),
			zap.Int("bars", len(bars)),
		)
	}
	return errors.Join(errs...)
}
