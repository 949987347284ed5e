package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	BufferEvictions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quantfeed_buffer_evictions_total",
		Help: "Ticks dropped from the hot buffer because the per-symbol ring was full.",
	}, []string{"symbol"})

	TicksLost = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quantfeed_ticks_lost_total",
		Help: "Ticks evicted from the hot buffer before they could be flushed.",
	}, []string{"symbol"})

	BufferedTicks = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "quantfeed_buffer_ticks",
		Help: "Ticks currently held in the hot buffer.",
	}, []string{"symbol"})

	TicksReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quantfeed_ticks_received_total",
		Help: "Trade ticks normalized from the feed.",
	}, []string{"symbol"})

	MalformedMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quantfeed_malformed_messages_total",
		Help: "Feed messages skipped because they could not be parsed.",
	}, []string{"symbol"})

	Reconnects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quantfeed_ws_reconnects_total",
		Help: "WebSocket reconnect attempts after a connection failure.",
	}, []string{"symbol"})

	TicksFlushed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quantfeed_ticks_flushed_total",
		Help: "Ticks written to the ticks table.",
	})

	FlushErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quantfeed_flush_errors_total",
		Help: "Flush cycles that failed to write to the tick store.",
	})

	FlushLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "quantfeed_flush_duration_seconds",
		Help:    "Time spent writing one flush batch.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	})

	BarsWritten = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "quantfeed_bars",
		Help: "Bars written by the most recent resample of a symbol and timeframe.",
	}, []string{"symbol", "timeframe"})

	ResampleErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quantfeed_resample_errors_total",
		Help: "Resample runs that failed for a symbol and timeframe.",
	}, []string{"symbol", "timeframe"})

	ResampleLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "quantfeed_resample_duration_seconds",
		Help:    "Time spent on one full resample cycle.",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
	})
)

var registerOnce sync.Once

// InitMetrics registers all collectors with the default registry. Safe to call
// more than once.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			BufferEvictions,
			TicksLost,
			BufferedTicks,
			TicksReceived,
			MalformedMessages,
			Reconnects,
			TicksFlushed,
			FlushErrors,
			FlushLatency,
			BarsWritten,
			ResampleErrors,
			ResampleLatency,
		)
	})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
