package market

import "time"

// Bar represents one fixed-interval OHLCV record.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Green reports whether the bar closed at or above its open.
func (b Bar) Green() bool {
	return b.Close >= b.Open
}
