// Package risk enforces the portfolio's risk limits each cycle: target
// allocation, stop-loss, and take-profit. Each check iterates the tracked
// positions and issues corrective rotations through the executor.
package risk

import (
	"context"
	"fmt"
	"log"

	"rotorbot/internal/execution"
	"rotorbot/internal/market"
	"rotorbot/internal/model"
)

// Limits defines the configurable risk thresholds.
type Limits struct {
	StopLoss   float64 // fractional drop from cost basis forcing an exit (boundary inclusive)
	TakeProfit float64 // fractional gain from cost basis forcing an exit (boundary inclusive)

	// RebalanceBand is the tolerance around each allocation target before a
	// rebalance trade fires. Zero means any deviation trades — that matches
	// the historical behavior but over-trades, so it is a knob, not a
	// constant.
	RebalanceBand float64
}

// DefaultLimits returns the standard thresholds: 5% stop-loss, 10%
// take-profit, no rebalance tolerance.
func DefaultLimits() Limits {
	return Limits{
		StopLoss:   0.05,
		TakeProfit: 0.10,
	}
}

// Manager runs the three per-cycle risk checks.
type Manager struct {
	market     *market.Client
	exec       *execution.Executor
	universe   []string
	stable     string
	allocation map[string]float64
	limits     Limits

	// OnTrigger is called for every issued corrective trade (optional).
	// kind is one of "rebalance_buy", "rebalance_sell", "stop_loss",
	// "take_profit".
	OnTrigger func(kind, asset string)
}

// NewManager creates a risk manager over the given asset universe.
func NewManager(m *market.Client, exec *execution.Executor, universe []string, stable string,
	allocation map[string]float64, limits Limits) *Manager {
	return &Manager{
		market:     m,
		exec:       exec,
		universe:   universe,
		stable:     stable,
		allocation: allocation,
		limits:     limits,
	}
}

// RunChecks evaluates all three checks in their fixed order:
// Rebalance → StopLoss → TakeProfit.
func (m *Manager) RunChecks(ctx context.Context, book model.Book) {
	m.Rebalance(ctx)
	m.StopLoss(ctx, book)
	m.TakeProfit(ctx, book)
}

// Rebalance compares each allocated asset's share of the total portfolio
// value (in stable terms) against its target and rotates toward the target.
// Assets without an allocation entry are untouched.
func (m *Manager) Rebalance(ctx context.Context) {
	total := 0.0
	values := make(map[string]float64, len(m.universe))
	for _, asset := range m.universe {
		value := m.market.Balance(ctx, asset) * m.market.Price(ctx, m.exec.Pair(asset))
		values[asset] = value
		total += value
	}
	if total <= 0 {
		log.Printf("[risk] rebalance skipped: total portfolio value is zero")
		return
	}

	for _, asset := range m.universe {
		target, ok := m.allocation[asset]
		if !ok {
			continue
		}
		frac := values[asset] / total
		switch {
		case frac < target-m.limits.RebalanceBand:
			log.Printf("[risk] rebalancing: buying more %s (%.4f < %.4f)", asset, frac, target)
			if m.exec.Rotate(ctx, m.stable, asset).Success {
				m.trigger("rebalance_buy", asset)
			}
		case frac > target+m.limits.RebalanceBand:
			log.Printf("[risk] rebalancing: selling some %s (%.4f > %.4f)", asset, frac, target)
			if m.exec.Rotate(ctx, asset, m.stable).Success {
				m.trigger("rebalance_sell", asset)
			}
		}
	}
}

// StopLoss force-exits any position whose drawdown from cost basis reached
// the threshold. Equality triggers.
func (m *Manager) StopLoss(ctx context.Context, book model.Book) {
	for _, asset := range m.universe {
		basis := book.CostBasis(asset)
		if basis <= 0 {
			continue
		}
		price := m.market.Price(ctx, m.exec.Pair(asset))
		if price <= 0 {
			continue
		}
		drop := (basis - price) / basis
		if drop >= m.limits.StopLoss {
			log.Printf("[risk] stop-loss triggered for %s: basis=%.8f price=%.8f (%.2f%% drop)",
				asset, basis, price, drop*100)
			if m.exec.Rotate(ctx, asset, m.stable).Success {
				m.trigger("stop_loss", asset)
			}
		}
	}
}

// TakeProfit force-exits any position whose gain from cost basis reached
// the threshold. Equality triggers.
func (m *Manager) TakeProfit(ctx context.Context, book model.Book) {
	for _, asset := range m.universe {
		basis := book.CostBasis(asset)
		if basis <= 0 {
			continue
		}
		price := m.market.Price(ctx, m.exec.Pair(asset))
		if price <= 0 {
			continue
		}
		gain := (price - basis) / basis
		if gain >= m.limits.TakeProfit {
			log.Printf("[risk] take-profit triggered for %s: basis=%.8f price=%.8f (%.2f%% gain)",
				asset, basis, price, gain*100)
			if m.exec.Rotate(ctx, asset, m.stable).Success {
				m.trigger("take_profit", asset)
			}
		}
	}
}

// Describe summarizes the configured limits for startup logging.
func (l Limits) Describe() string {
	return fmt.Sprintf("stop-loss=%.2f%% take-profit=%.2f%% rebalance-band=%.2f%%",
		l.StopLoss*100, l.TakeProfit*100, l.RebalanceBand*100)
}

func (m *Manager) trigger(kind, asset string) {
	if m.OnTrigger != nil {
		m.OnTrigger(kind, asset)
	}
}
