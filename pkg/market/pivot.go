package market

import (
	"sort"
	"time"
)

// PivotRow holds the close of every requested symbol at one bucket start.
type PivotRow struct {
	Timestamp time.Time
	Closes    map[string]float64
}

// PivotBySymbol groups bars by bucket start into one row per timestamp with a
// close column per symbol. Timestamps missing any of the symbols are dropped,
// so every returned row is aligned across all symbols. Rows are ordered by time.
func PivotBySymbol(bars []Bar, symbols []string) []PivotRow {
	if len(bars) == 0 || len(symbols) == 0 {
		return nil
	}

	wanted := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		wanted[s] = struct{}{}
	}

	byTime := make(map[int64]map[string]float64)
	for _, b := range bars {
		if _, ok := wanted[b.Symbol]; !ok {
			continue
		}
		key := b.BucketStart.UnixNano()
		row, ok := byTime[key]
		if !ok {
			row = make(map[string]float64, len(wanted))
			byTime[key] = row
		}
		row[b.Symbol] = b.Close
	}

	out := make([]PivotRow, 0, len(byTime))
	for key, closes := range byTime {
		if len(closes) != len(wanted) {
			continue
		}
		out = append(out, PivotRow{Timestamp: time.Unix(0, key).UTC(), Closes: closes})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })

	return out
}
