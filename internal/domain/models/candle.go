package models

import "time"

// Candle is one OHLCV bar of a ratio such as BTC-USD.
type Candle struct {
	Time   time.Time
	Symbol string
	Low    float64
	High   float64
	Open   float64
	Close  float64
	Volume float64
}

// Unix returns the bar timestamp in seconds, the join key of the wide table.
func (c Candle) Unix() int64 { return c.Time.Unix() }
