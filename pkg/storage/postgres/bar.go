package postgres

import (
	"context"
	"fmt"
	"time"

	"quantfeed/pkg/market"

	"gorm.io/gorm"
)

// ReplaceBars deletes every bar of symbol in the timeframe's table and inserts
// bars in its place, in one transaction: readers see either the old or the new set.
func (p *PostgresClient) ReplaceBars(ctx context.Context, tf market.Timeframe, symbol string, bars []market.Bar) error {
	table, err := barTable(tf)
	if err != nil {
		return err
	}

	records := make([]BarRecord, len(bars))
	for i, b := range bars {
		records[i] = ToBarRecord(b)
	}

	return p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(table).Where("symbol = ?", symbol).Delete(&BarRecord{}).Error; err != nil {
			return fmt.Errorf("delete %s bars for %s: %w", table, symbol, err)
		}
		if len(records) == 0 {
			return nil
		}
		if err := tx.Table(table).CreateInBatches(&records, insertBatchSize).Error; err != nil {
			return fmt.Errorf("insert %d %s bars for %s: %w", len(records), table, symbol, err)
		}
		return nil
	})
}

// DeleteBars removes every bar of symbol in the timeframe's table.
func (p *PostgresClient) DeleteBars(ctx context.Context, tf market.Timeframe, symbol string) error {
	table, err := barTable(tf)
	if err != nil {
		return err
	}
	if err := p.DB.WithContext(ctx).Table(table).Where("symbol = ?", symbol).Delete(&BarRecord{}).Error; err != nil {
		return fmt.Errorf("delete %s bars for %s: %w", table, symbol, err)
	}
	return nil
}

// QueryBars returns bars of symbol with from <= bucket start < to, ordered by
// time. A zero from or to leaves that side open.
func (p *PostgresClient) QueryBars(ctx context.Context, tf market.Timeframe, symbol string, from, to time.Time) ([]market.Bar, error) {
	table, err := barTable(tf)
	if err != nil {
		return nil, err
	}

	var records []BarRecord
	q := orderByTime(timeRange(p.DB.WithContext(ctx).Table(table).Where("symbol = ?", symbol), from, to))
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("query %s bars for %s: %w", table, symbol, err)
	}
	return toBars(tf, records), nil
}

// QueryBarsForSymbols returns the bars of every given symbol ordered by time,
// the input expected by market.PivotBySymbol.
func (p *PostgresClient) QueryBarsForSymbols(ctx context.Context, tf market.Timeframe, symbols []string) ([]market.Bar, error) {
	table, err := barTable(tf)
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, nil
	}

	var records []BarRecord
	q := orderByTime(p.DB.WithContext(ctx).Table(table).Where("symbol IN ?", symbols))
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("query %s bars for %v: %w", table, symbols, err)
	}
	return toBars(tf, records), nil
}

func toBars(tf market.Timeframe, records []BarRecord) []market.Bar {
	bars := make([]market.Bar, len(records))
	for i, r := range records {
		bars[i] = r.ToBar(tf)
	}
	return bars
}
