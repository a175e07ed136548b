// Package signal maps an indicator snapshot to a discrete trade action.
//
// The rules combine a trend filter (SMA cross), a momentum trigger (RSI),
// and a momentum cross (MACD vs signal line) so that no single indicator
// fires a trade alone.
package signal

import "rotorbot/internal/model"

// RSI thresholds for the oversold/overbought triggers.
const (
	OversoldRSI   = 30.0
	OverboughtRSI = 70.0
)

// Evaluator turns indicator snapshots into buy/sell/hold decisions.
// Stateless — decisions are recomputed every cycle, never persisted.
type Evaluator struct{}

// NewEvaluator creates a signal evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate applies the decision rules in order, first match wins:
//
//  1. Bullish trend (SMA50 > SMA200) + oversold (RSI < 30) + bullish MACD
//     cross (MACD > signal) → Buy.
//  2. Overbought (RSI > 70) + bearish MACD cross (MACD < signal) → Sell.
//  3. Otherwise → Hold.
//
// A not-ready snapshot always yields Hold: too few bars means no decision.
func (e *Evaluator) Evaluate(snap model.Snapshot) model.Decision {
	if !snap.Ready {
		return model.Decision{Action: model.ActionHold, Reason: "insufficient history"}
	}

	if snap.SMA50 > snap.SMA200 && snap.RSI < OversoldRSI && snap.MACD > snap.MACDSignal {
		return model.Decision{
			Action: model.ActionBuy,
			Reason: "bullish trend, oversold RSI, MACD above signal",
		}
	}

	if snap.RSI > OverboughtRSI && snap.MACD < snap.MACDSignal {
		return model.Decision{
			Action: model.ActionSell,
			Reason: "overbought RSI, MACD below signal",
		}
	}

	return model.Decision{Action: model.ActionHold, Reason: "no signal"}
}
