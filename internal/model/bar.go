package model

import (
	"time"
)

// Bar represents one OHLCV bar for an asset-pair at a fixed interval.
// Prices are float64 — the venue quotes fractional prices and quantities.
type Bar struct {
	TS     time.Time `json:"ts"` // bar open time (UTC)
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Series is an ordered sequence of bars with strictly increasing timestamps.
type Series []Bar

// Closes returns the close prices in bar order.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i := range s {
		out[i] = s[i].Close
	}
	return out
}

// Valid reports whether timestamps strictly increase and closes are non-negative.
func (s Series) Valid() bool {
	for i := range s {
		if s[i].Close < 0 {
			return false
		}
		if i > 0 && !s[i].TS.After(s[i-1].TS) {
			return false
		}
	}
	return true
}
