package model

// Action represents a trading action decided for an asset-pair.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Decision is the outcome of one signal evaluation.
type Decision struct {
	Action Action `json:"action"`
	Reason string `json:"reason"`
}

// Proposal is a concrete rotation the orchestrator wants to execute.
// Gates receive it between the decision and the trade.
type Proposal struct {
	FromAsset string   `json:"from_asset"`
	ToAsset   string   `json:"to_asset"`
	Pair      string   `json:"pair"` // e.g. "BTCUSDT"
	Action    Action   `json:"action"`
	Reason    string   `json:"reason"`
	Balance   float64  `json:"balance"`
	Price     float64  `json:"price"`
	Snapshot  Snapshot `json:"snapshot"`
}

// Snapshot holds the indicator values derived for the latest bar of a series.
// Ready is false when the series is shorter than the longest lookback; all
// other fields are undefined in that case and no decision may be made on them.
type Snapshot struct {
	SMA50      float64 `json:"sma_50"`
	SMA200     float64 `json:"sma_200"`
	EMA20      float64 `json:"ema_20"`
	RSI        float64 `json:"rsi"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	Ready      bool    `json:"ready"`
}

// Fill is the result of a filled market order.
type Fill struct {
	Price float64 `json:"price"` // average fill price
	Qty   float64 `json:"qty"`
}
