// Package indicator provides technical indicator calculations over close
// prices.
//
// All indicators implement the Indicator interface, receiving closes one at
// a time and producing float64 values. Updates are O(1) — no history scans —
// so replaying a full lookback window each cycle stays cheap.
package indicator

// Indicator is the interface for all technical indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "SMA_50", "RSI_14").
	Name() string

	// Update feeds a new close price and recalculates.
	Update(close float64)

	// Value returns the current calculated value. Returns 0 if not enough data.
	Value() float64

	// Ready returns true when enough data has been accumulated.
	Ready() bool
}
