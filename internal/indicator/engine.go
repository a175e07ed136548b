package indicator

import "rotorbot/internal/model"

// Lookbacks used by the trading strategy. The long SMA is the longest —
// a series shorter than that yields a not-ready snapshot.
const (
	ShortSMAPeriod   = 50
	LongSMAPeriod    = 200
	FastEMAPeriod    = 20
	RSIPeriod        = 14
	MACDFastPeriod   = 12
	MACDSlowPeriod   = 26
	MACDSignalPeriod = 9
)

// Engine derives an indicator snapshot from a price series. Each Compute
// call replays the series through fresh indicator instances — the series is
// refetched every cycle, so there is no cross-cycle state to keep.
// Designed for single-goroutine usage — no locks needed.
type Engine struct{}

// NewEngine creates an indicator engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Compute replays the series causally (oldest bar first) and returns the
// snapshot attached to the latest bar. Snapshot.Ready is false when the
// series is shorter than the longest lookback; downstream must treat that
// as insufficient data rather than guessing.
func (e *Engine) Compute(series model.Series) model.Snapshot {
	smaShort := NewSMA(ShortSMAPeriod)
	smaLong := NewSMA(LongSMAPeriod)
	emaFast := NewEMA(FastEMAPeriod)
	rsi := NewRSI(RSIPeriod)
	macd := NewMACD(MACDFastPeriod, MACDSlowPeriod, MACDSignalPeriod)

	for _, price := range series.Closes() {
		smaShort.Update(price)
		smaLong.Update(price)
		emaFast.Update(price)
		rsi.Update(price)
		macd.Update(price)
	}

	ready := smaShort.Ready() && smaLong.Ready() && emaFast.Ready() &&
		rsi.Ready() && macd.Ready()
	if !ready {
		return model.Snapshot{}
	}

	return model.Snapshot{
		SMA50:      smaShort.Value(),
		SMA200:     smaLong.Value(),
		EMA20:      emaFast.Value(),
		RSI:        rsi.Value(),
		MACD:       macd.Value(),
		MACDSignal: macd.Signal(),
		Ready:      true,
	}
}
