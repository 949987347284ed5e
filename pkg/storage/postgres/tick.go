package postgres

import (
	"context"
	"fmt"
	"time"

	"quantfeed/pkg/market"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	timestampColumn = clause.Column{Name: "timestamp"}
	byTimeThenID    = []clause.OrderByColumn{
		{Column: timestampColumn},
		{Column: clause.Column{Name: "id"}},
	}
)

// InsertTicks appends ticks to the ticks table in batches. An empty slice is a no-op.
func (p *PostgresClient) InsertTicks(ctx context.Context, ticks []market.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	records := make([]TickRecord, len(ticks))
	for i, t := range ticks {
		records[i] = ToTickRecord(t)
	}

	if err := p.DB.WithContext(ctx).CreateInBatches(&records, insertBatchSize).Error; err != nil {
		return fmt.Errorf("insert %d ticks: %w", len(ticks), err)
	}
	return nil
}

// LoadTicks returns every stored tick for symbol ordered by time, ties in
// insertion order.
func (p *PostgresClient) LoadTicks(ctx context.Context, symbol string) ([]market.Tick, error) {
	return p.QueryTicks(ctx, symbol, time.Time{}, time.Time{})
}

// QueryTicks returns ticks for symbol with from <= timestamp < to, ordered by
// time. A zero from or to leaves that side open.
func (p *PostgresClient) QueryTicks(ctx context.Context, symbol string, from, to time.Time) ([]market.Tick, error) {
	var records []TickRecord
	q := orderByTime(timeRange(p.DB.WithContext(ctx).Where("symbol = ?", symbol), from, to))
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("query ticks for %s: %w", symbol, err)
	}

	ticks := make([]market.Tick, len(records))
	for i, r := range records {
		ticks[i] = r.ToTick()
	}
	return ticks, nil
}

// CountTicks returns the number of rows in the ticks table.
func (p *PostgresClient) CountTicks(ctx context.Context) (int64, error) {
	var n int64
	if err := p.DB.WithContext(ctx).Model(&TickRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count ticks: %w", err)
	}
	return n, nil
}

// DeleteTicksBefore removes ticks older than before and returns how many were deleted.
func (p *PostgresClient) DeleteTicksBefore(ctx context.Context, before time.Time) (int64, error) {
	tx := p.DB.WithContext(ctx).
		Where(clause.Lt{Column: timestampColumn, Value: before.UTC()}).
		Delete(&TickRecord{})
	if tx.Error != nil {
		return 0, fmt.Errorf("delete ticks before %s: %w", before.Format(time.RFC3339), tx.Error)
	}
	return tx.RowsAffected, nil
}

func timeRange(q *gorm.DB, from, to time.Time) *gorm.DB {
	if !from.IsZero() {
		q = q.Where(clause.Gte{Column: timestampColumn, Value: from.UTC()})
	}
	if !to.IsZero() {
		q = q.Where(clause.Lt{Column: timestampColumn, Value: to.UTC()})
	}
	return q
}

func orderByTime(q *gorm.DB) *gorm.DB {
	for _, col := range byTimeThenID {
		q = q.Order(col)
	}
	return q
}
