package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quantfeed/config"
	"quantfeed/internal/binance/memorystore"
	"quantfeed/internal/binance/snapshot"
	"quantfeed/internal/binance/stream"
	"quantfeed/internal/metrics"
	"quantfeed/internal/pipeline"
	"quantfeed/pkg/binance"
	"quantfeed/pkg/market"
	"quantfeed/pkg/storage/postgres"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultShutdownTimeout = 10 * time.Second

// Store is everything the pipeline needs from persistence.
// *postgres.PostgresClient implements it.
type Store interface {
	pipeline.TickWriter
	pipeline.BarStore
}

// Collector owns the hot buffer, one stream connector per symbol, the
// flusher and the resampler, and runs them until its context ends.
type Collector struct {
	cfg     *config.Config
	symbols []string
	buffer  *memorystore.TickBuffer
	logger  *zap.Logger

	flusher   *pipeline.Flusher
	resampler *pipeline.Resampler
}

// Run is the process entry point: it prepares the database, resolves the
// symbol set and runs the pipeline until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	metrics.InitMetrics()

	timeframes, err := market.ParseTimeframes(cfg.Pipeline.Timeframes)
	if err != nil {
		return fmt.Errorf("invalid timeframes: %w", err)
	}

	// Initialize PostgreSQL Client
	postgresClient, err := postgres.InitializeAndMigrate(cfg.Postgres, cfg.Log.Environment, true, timeframes)
	if err != nil {
		return fmt.Errorf("failed to connect to DB: %w", err)
	}
	defer func() {
		if err := postgresClient.Close(); err != nil {
			logger.Warn("failed to close DB", zap.Error(err))
		}
	}()

	symbols := cfg.Pipeline.SymbolSet()
	if cfg.Binance.REST.ValidateSymbols {
		loader := &snapshot.SymbolLoader{
			RestClient: binance.NewRESTClient(cfg.Binance.REST.BaseURL, cfg.Binance.REST.Timeout),
			Timeout:    cfg.Binance.REST.Timeout,
			Logger:     logger,
		}
		symbols = loader.Resolve(ctx, symbols)
	}

	c, err := New(cfg, postgresClient, symbols, timeframes, logger)
	if err != nil {
		return err
	}
	return c.Run(ctx)
}

// New builds a collector over store for the given symbols and timeframes.
func New(cfg *config.Config, store Store, symbols []string, timeframes []market.Timeframe, logger *zap.Logger) (*Collector, error) {
	if len(symbols) == 0 {
		return nil, errors.New("no symbols to collect")
	}
	if len(timeframes) == 0 {
		return nil, errors.New("no timeframes to resample")
	}

	buffer := memorystore.NewTickBuffer(cfg.Pipeline.BufferCapacity)
	return &Collector{
		cfg:       cfg,
		symbols:   symbols,
		buffer:    buffer,
		logger:    logger,
		flusher:   pipeline.NewFlusher(buffer, store, cfg.Pipeline.FlushInterval, logger),
		resampler: pipeline.NewResampler(store, symbols, timeframes, cfg.Pipeline.ResampleInterval, logger),
	}, nil
}

// Buffer exposes the hot buffer for latest-tick reads.
func (c *Collector) Buffer() memorystore.Reader {
	return c.buffer
}

// Run starts every unit and blocks until ctx is cancelled or a unit fails.
// It then drains one last flush and resample before returning.
func (c *Collector) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if c.cfg.Metrics.Addr != "" {
		g.Go(func() error { return c.serveMetrics(gctx) })
	}

	for _, symbol := range c.symbols {
		ws := binance.NewWSClient(c.cfg.Binance.WS, symbol, c.logger)
		ws.SetMessageHandler(stream.MakeMessageHandler(c.logger, symbol, c.buffer))
		g.Go(func() error { return ws.Run(gctx) })
	}

	g.Go(func() error { return c.flusher.Run(gctx) })
	g.Go(func() error { return c.resampler.Run(gctx) })
	if c.cfg.Pipeline.StatusInterval > 0 {
		g.Go(func() error { return c.reportStatus(gctx) })
	}

	c.logger.Info("collector started",
		zap.Strings("symbols", c.symbols),
		zap.Int("buffer_capacity", c.buffer.Capacity()),
		zap.Duration("flush_interval", c.cfg.Pipeline.FlushInterval),
		zap.Duration("resample_interval", c.cfg.Pipeline.ResampleInterval),
	)

	err := g.Wait()
	c.drain()
	return err
}

// serveMetrics exposes /metrics until ctx ends. A listener failure is logged
// and leaves the rest of the pipeline running.
func (c *Collector) serveMetrics(ctx context.Context) error {
	if err := metrics.Serve(ctx, c.cfg.Metrics.Addr, c.logger); err != nil {
		c.logger.Error("metrics server failed", zap.String("addr", c.cfg.Metrics.Addr), zap.Error(err))
	}
	return nil
}

// drain runs a final flush and resample with a fresh deadline so ticks still
// in memory reach the bars tables.
func (c *Collector) drain() {
	timeout := c.cfg.Pipeline.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	n, err := c.flusher.FlushOnce(ctx)
	if err != nil {
		c.logger.Error("final flush failed", zap.Error(err))
	}
	failed := c.resampler.ResampleAll(ctx)
	c.logger.Info("collector stopped", zap.Int("final_flush", n), zap.Int("resample_failures", failed))
}

// reportStatus periodically logs and exports how many ticks each symbol holds in memory.
func (c *Collector) reportStatus(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.Pipeline.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fields := make([]zap.Field, 0, len(c.symbols)+1)
			fields = append(fields, zap.Int("total", c.buffer.CountAll()))
			for _, symbol := range c.symbols {
				size := c.buffer.Size(symbol)
				metrics.BufferedTicks.WithLabelValues(symbol).Set(float64(size))
				fields = append(fields, zap.Int(symbol, size))
			}
			c.logger.Info("current buffered ticks", fields...)
		}
	}
}
