// Package gate implements the approval chain consulted between a trade
// decision and its execution.
//
// A gate inspects the proposed rotation and answers proceed or hold. Gates
// compose into an ordered chain; the empty chain is the identity (always
// proceeds). Gate errors are treated as "hold" by callers — an unreachable
// advisor must never force a trade through.
package gate

import (
	"context"
	"log"

	"rotorbot/internal/model"
)

// Gate approves or holds a proposed rotation.
type Gate interface {
	// Name identifies the gate in logs.
	Name() string

	// Approve returns whether the trade may proceed, with a human-readable
	// reason either way.
	Approve(ctx context.Context, p model.Proposal) (bool, string, error)
}

// Chain queries gates in order; the first negative (or failing) gate stops
// the trade.
type Chain []Gate

// Approve runs the chain. An empty chain always proceeds.
func (c Chain) Approve(ctx context.Context, p model.Proposal) (bool, string) {
	for _, g := range c {
		ok, reason, err := g.Approve(ctx, p)
		if err != nil {
			log.Printf("[gate] %s failed, holding trade: %v", g.Name(), err)
			return false, g.Name() + " unavailable"
		}
		if !ok {
			return false, g.Name() + ": " + reason
		}
	}
	return true, ""
}
