// Package execution converts trade decisions into concrete asset rotations
// on the venue.
//
// A rotation always routes through the stable reference asset: sell the
// source asset for stable, then spend the proceeds on the target asset.
// That avoids needing a direct market between every pair, at the cost of
// double fee exposure and a window where capital sits in the stable asset.
// The two legs are not atomic — a failure after the sell leg leaves the
// position in stable, and no rollback is attempted.
package execution

import (
	"context"
	"fmt"
	"log"
	"time"

	"rotorbot/internal/market"
	"rotorbot/internal/notification"
	"rotorbot/internal/venue"
)

// DefaultTakerFee is used when the venue's fee schedule is unavailable.
const DefaultTakerFee = 0.001

// Result describes the outcome of one rotation for journaling and metrics.
type Result struct {
	FromAsset string
	ToAsset   string
	SoldQty   float64
	Proceeds  float64 // stable-asset amount after fee
	BoughtQty float64
	BuyPrice  float64 // buy-leg fill price, zero when the target is the stable asset
	Fee       float64
	Success   bool
	Reason    string
	At        time.Time
}

// Executor places the two market-order legs of a rotation.
type Executor struct {
	market   *market.Client
	notifier notification.Notifier
	journal  *Journal // optional
	stable   string

	// OnTrade is called after every attempted rotation (optional).
	OnTrade func(Result)
}

// NewExecutor creates an executor rotating through the given stable asset.
// notifier and journal may be nil.
func NewExecutor(m *market.Client, notifier notification.Notifier, journal *Journal, stable string) *Executor {
	return &Executor{
		market:   m,
		notifier: notifier,
		journal:  journal,
		stable:   stable,
	}
}

// Pair returns the venue symbol quoting asset against the stable asset.
func (e *Executor) Pair(asset string) string {
	return asset + e.stable
}

// Rotate sells the entire free balance of fromAsset into the stable asset
// and buys toAsset with the proceeds. Success is set only if every needed
// leg filled; BuyPrice carries the buy-leg fill price so callers track the
// entry at the executed price rather than an earlier quote. A zero source
// balance fails without touching the venue's order endpoints. Either leg
// rejected: logged, notified, failed — the position stays wherever the
// completed legs left it.
func (e *Executor) Rotate(ctx context.Context, fromAsset, toAsset string) Result {
	res := e.rotate(ctx, fromAsset, toAsset)
	if e.journal != nil {
		if err := e.journal.RecordTrade(res); err != nil {
			log.Printf("[executor] journal write failed: %v", err)
		}
	}
	if e.OnTrade != nil {
		e.OnTrade(res)
	}
	return res
}

func (e *Executor) rotate(ctx context.Context, fromAsset, toAsset string) Result {
	res := Result{FromAsset: fromAsset, ToAsset: toAsset, At: time.Now().UTC()}

	balance := e.market.Balance(ctx, fromAsset)
	if balance <= 0 {
		// Not an error: the caller simply has nothing to rotate.
		log.Printf("[executor] no %s balance to trade", fromAsset)
		res.Reason = "no balance"
		return res
	}
	res.SoldQty = balance

	fee := e.market.TakerFee(ctx)
	if fee <= 0 {
		fee = DefaultTakerFee
	}
	res.Fee = fee

	// Leg 1: sell fromAsset into the stable asset. Skipped when the source
	// already is the stable asset (rebalance buys start from stable).
	proceeds := balance
	if fromAsset != e.stable {
		fill, err := e.market.Sell(ctx, e.Pair(fromAsset), balance)
		if err != nil {
			return e.failed(ctx, res, legFailure("sell", e.Pair(fromAsset), err))
		}
		proceeds = fill.Price * fill.Qty * (1 - fee)
	}
	res.Proceeds = proceeds

	// Leg 2: spend the proceeds on toAsset. Skipped when the target is the
	// stable asset (stop-loss/take-profit exits stop here).
	if toAsset != e.stable {
		price := e.market.Price(ctx, e.Pair(toAsset))
		if price <= 0 {
			return e.failed(ctx, res, fmt.Sprintf("no price for %s, buy leg aborted", e.Pair(toAsset)))
		}
		qty := proceeds / price
		fill, err := e.market.Buy(ctx, e.Pair(toAsset), qty)
		if err != nil {
			return e.failed(ctx, res, legFailure("buy", e.Pair(toAsset), err))
		}
		res.BoughtQty = fill.Qty
		res.BuyPrice = fill.Price
	}

	res.Success = true
	log.Printf("[executor] rotated %s -> %s: sold %.8f, bought %.8f (fee %.4f)",
		fromAsset, toAsset, res.SoldQty, res.BoughtQty, fee)
	notification.Post(ctx, e.notifier,
		fmt.Sprintf("Trade executed: %s → %s, amount: %.8f", fromAsset, toAsset, res.BoughtQty))
	return res
}

// legFailure formats an order-leg failure, singling out venue rejections
// so the journal and notifications show why the order was refused.
func legFailure(leg, pair string, err error) string {
	if venue.IsRejection(err) {
		return fmt.Sprintf("%s leg %s rejected: %v", leg, pair, err)
	}
	return fmt.Sprintf("%s leg %s: %v", leg, pair, err)
}

func (e *Executor) failed(ctx context.Context, res Result, reason string) Result {
	res.Reason = reason
	log.Printf("[executor] trade %s -> %s failed: %s", res.FromAsset, res.ToAsset, reason)
	notification.Post(ctx, e.notifier,
		fmt.Sprintf("Trade failed: %s → %s. %s", res.FromAsset, res.ToAsset, reason))
	return res
}
