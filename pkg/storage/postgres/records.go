package postgres

import (
	"time"

	"quantfeed/pkg/market"
)

// TickRecord is one trade in the ticks table. ID preserves insertion order
// for ticks sharing a millisecond.
type TickRecord struct {
	ID        uint64    `gorm:"primaryKey"`
	Timestamp time.Time `gorm:"column:timestamp;not null;index:idx_ticks_symbol_timestamp,priority:2"`
	Symbol    string    `gorm:"type:varchar(32);not null;index:idx_ticks_symbol_timestamp,priority:1"`
	Price     float64   `gorm:"not null"`
	Qty       float64   `gorm:"not null"`
}

// TableName overrides the default table name for GORM.
func (TickRecord) TableName() string {
	return "ticks"
}

// BarRecord is one row of a bars_<timeframe> table. The table is chosen per
// call with db.Table, so the record carries no timeframe column.
type BarRecord struct {
	ID        uint64    `gorm:"primaryKey"`
	Timestamp time.Time `gorm:"column:timestamp;not null"` // bucket start
	Symbol    string    `gorm:"type:varchar(32);not null"`
	Open      float64   `gorm:"not null"`
	High      float64   `gorm:"not null"`
	Low       float64   `gorm:"not null"`
	Close     float64   `gorm:"not null"`
	Volume    float64   `gorm:"not null"`
	VWAP      float64   `gorm:"column:vwap;not null"`
}

// ToTickRecord converts a Tick for DB insertion.
func ToTickRecord(t market.Tick) TickRecord {
	return TickRecord{
		Timestamp: t.Timestamp.UTC(),
		Symbol:    t.Symbol,
		Price:     t.Price,
		Qty:       t.Qty,
	}
}

func (r TickRecord) ToTick() market.Tick {
	return market.Tick{
		Symbol:    r.Symbol,
		Timestamp: r.Timestamp.UTC(),
		Price:     r.Price,
		Qty:       r.Qty,
	}
}

// ToBarRecord converts a Bar for DB insertion.
func ToBarRecord(b market.Bar) BarRecord {
	return BarRecord{
		Timestamp: b.BucketStart.UTC(),
		Symbol:    b.Symbol,
		Open:      b.Open,
		High:      b.High,
		Low:       b.Low,
		Close:     b.Close,
		Volume:    b.Volume,
		VWAP:      b.VWAP,
	}
}

func (r BarRecord) ToBar(tf market.Timeframe) market.Bar {
	return market.Bar{
		Symbol:      r.Symbol,
		Timeframe:   tf,
		BucketStart: r.Timestamp.UTC(),
		Open:        r.Open,
		High:        r.High,
		Low:         r.Low,
		Close:       r.Close,
		Volume:      r.Volume,
		VWAP:        r.VWAP,
	}
}
