package indicator

import "fmt"

// MACD calculates Moving Average Convergence Divergence: the difference of
// a fast and a slow EMA, plus a signal line (an EMA of the MACD value).
// Standard parameters are 12/26/9.
//
// The signal EMA is fed only once the slow EMA is seeded, so the signal
// becomes ready slowPeriod+signalPeriod-1 closes in.
type MACD struct {
	fast   *EMA
	slow   *EMA
	signal *EMA

	current float64
}

// NewMACD creates a MACD indicator from fast/slow EMA periods and a signal
// line period.
func NewMACD(fastPeriod, slowPeriod, signalPeriod int) *MACD {
	return &MACD{
		fast:   NewEMA(fastPeriod),
		slow:   NewEMA(slowPeriod),
		signal: NewEMA(signalPeriod),
	}
}

func (m *MACD) Name() string { return fmt.Sprintf("MACD_%d_%d", m.fast.period, m.slow.period) }

func (m *MACD) Update(close float64) {
	m.fast.Update(close)
	m.slow.Update(close)

	if !m.slow.Ready() {
		return
	}
	m.current = m.fast.Value() - m.slow.Value()
	m.signal.Update(m.current)
}

// Value returns the MACD line (fast EMA − slow EMA).
func (m *MACD) Value() float64 { return m.current }

// Signal returns the signal line value.
func (m *MACD) Signal() float64 { return m.signal.Value() }

// Ready reports whether both the MACD line and its signal line are seeded.
func (m *MACD) Ready() bool { return m.slow.Ready() && m.signal.Ready() }
