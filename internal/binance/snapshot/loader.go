package snapshot

import (
	"context"
	"time"

	"quantfeed/pkg/binance"

	"go.uber.org/zap"
)

// SymbolStatusFetcher is implemented by binance.RESTClient.
type SymbolStatusFetcher interface {
	GetSymbolStatuses(ctx context.Context) (map[string]string, error)
}

type SymbolLoader struct {
	RestClient SymbolStatusFetcher
	Timeout    time.Duration
	Logger     *zap.Logger
}

// Resolve returns the configured symbols that the exchange lists as trading,
// in configuration order. Symbols that are unknown or not trading are logged
// and dropped. If the exchange cannot be reached the configured set is
// returned unchanged: a wrong symbol only yields a silent stream.
func (l *SymbolLoader) Resolve(ctx context.Context, configured []string) []string {
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	statuses, err := l.RestClient.GetSymbolStatuses(ctx)
	if err != nil {
		l.Logger.Warn("failed to load exchange symbols, subscribing to configured set",
			zap.Strings("symbols", configured), zap.Error(err))
		return configured
	}
	l.Logger.Info("loaded exchange symbols", zap.Int("count", len(statuses)))

	resolved := make([]string, 0, len(configured))
	for _, symbol := range configured {
		status, ok := statuses[symbol]
		switch {
		case !ok:
			l.Logger.Warn("dropping unknown symbol", zap.String("symbol", symbol))
		case status != binance.StatusTrading:
			l.Logger.Warn("dropping symbol that is not trading",
				zap.String("symbol", symbol), zap.String("status", status))
		default:
			resolved = append(resolved, symbol)
		}
	}
	return resolved
}
