package market

import (
	"fmt"
	"time"
)

// Timeframe is the bar resolution used in config and table names.
type Timeframe string

// TimeframeMeta holds the bucket width and table name for a Timeframe
type TimeframeMeta struct {
	Width     time.Duration
	TableName string
}

const (
	Timeframe1s Timeframe = "1s"
	Timeframe1m Timeframe = "1m"
	Timeframe5m Timeframe = "5m"
)

// AllTimeframes lists supported timeframes from finest to coarsest.
var AllTimeframes = []Timeframe{Timeframe1s, Timeframe1m, Timeframe5m}

var validTimeframes = map[Timeframe]TimeframeMeta{
	Timeframe1s: {Width: time.Second, TableName: "bars_1s"},
	Timeframe1m: {Width: time.Minute, TableName: "bars_1m"},
	Timeframe5m: {Width: 5 * time.Minute, TableName: "bars_5m"},
}

// IsValid checks if the Timeframe is a supported resolution
func (tf Timeframe) IsValid() bool {
	_, ok := validTimeframes[tf]
	return ok
}

// Width returns the bucket width, or zero for an unsupported timeframe.
func (tf Timeframe) Width() time.Duration {
	return validTimeframes[tf].Width
}

// TableName returns the bars table backing this timeframe, e.g. "bars_1m".
func (tf Timeframe) TableName() string {
	return validTimeframes[tf].TableName
}

// BucketStart aligns ts to the epoch boundary of the timeframe in UTC.
func (tf Timeframe) BucketStart(ts time.Time) time.Time {
	return ts.UTC().Truncate(tf.Width())
}

// ParseTimeframe parses a string into a supported Timeframe
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if !tf.IsValid() {
		return "", fmt.Errorf("invalid timeframe: %s", s)
	}
	return tf, nil
}

// ParseTimeframes parses every entry, failing on the first unsupported one.
func ParseTimeframes(names []string) ([]Timeframe, error) {
	out := make([]Timeframe, 0, len(names))
	for _, name := range names {
		tf, err := ParseTimeframe(name)
		if err != nil {
			return nil, err
		}
		out = append(out, tf)
	}
	return out, nil
}
