// Package orchestrator drives the trading loop: one pass over the asset
// universe per cycle (signal, gates, rotation), then the risk checks, then a
// fixed sleep. Every failure is contained here; the loop survives anything
// short of process shutdown.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"rotorbot/internal/execution"
	"rotorbot/internal/gate"
	"rotorbot/internal/logger"
	"rotorbot/internal/market"
	"rotorbot/internal/model"
	"rotorbot/internal/notification"
	"rotorbot/internal/risk"
)

// Rotation pairs a source asset with its fixed rotation target.
type Rotation struct {
	From string
	To   string
}

// RotationTable pairs each universe asset with its cyclic successor:
// universe[i] rotates into universe[(i+1) mod N]. Computed once; the pairing
// never changes while the process runs.
func RotationTable(universe []string) []Rotation {
	table := make([]Rotation, 0, len(universe))
	for i, asset := range universe {
		table = append(table, Rotation{
			From: asset,
			To:   universe[(i+1)%len(universe)],
		})
	}
	return table
}

// BookStore persists cost-basis snapshots across restarts. *redis.Store
// satisfies it.
type BookStore interface {
	SaveBook(ctx context.Context, book model.Book) error
	LoadBook(ctx context.Context) (model.Book, bool, error)
}

// SnapshotEngine computes the indicator snapshot for a price series.
// *indicator.Engine satisfies it.
type SnapshotEngine interface {
	Compute(series model.Series) model.Snapshot
}

// DecisionEvaluator turns a snapshot into a trade decision.
// *signal.Evaluator satisfies it.
type DecisionEvaluator interface {
	Evaluate(snap model.Snapshot) model.Decision
}

// Config holds the loop timing and the portfolio definition.
type Config struct {
	Universe      []string
	Stable        string
	CycleInterval time.Duration // default 60s
	ErrorCooldown time.Duration // default 300s after a failed cycle
}

func (c Config) withDefaults() Config {
	if c.CycleInterval == 0 {
		c.CycleInterval = 60 * time.Second
	}
	if c.ErrorCooldown == 0 {
		c.ErrorCooldown = 300 * time.Second
	}
	return c
}

// Deps are the collaborators the orchestrator sequences. Journal and
// Snapshots may be nil.
type Deps struct {
	Market    *market.Client
	Engine    SnapshotEngine
	Evaluator DecisionEvaluator
	Executor  *execution.Executor
	Risk      *risk.Manager
	Gates     gate.Chain
	Notifier  notification.Notifier
	Journal   *execution.Journal
	Snapshots BookStore
}

// Orchestrator owns the position book and runs the cycle loop. It is
// single-threaded: assets are processed strictly in order within a cycle,
// and cycles strictly in order over time.
type Orchestrator struct {
	cfg   Config
	deps  Deps
	table []Rotation
	seq   uint64
	log   *slog.Logger

	// book is mutated only by the loop goroutine; the mutex exists for
	// concurrent readers like the HTTP API.
	mu   sync.RWMutex
	book model.Book

	// pause is swapped out by tests.
	pause func(ctx context.Context, d time.Duration) bool

	// Optional instrumentation hooks.
	OnCycle    func(elapsed time.Duration, failed bool)
	OnDecision func(action model.Action)
	OnGateHold func()
}

// New creates an orchestrator. The universe must be non-empty.
func New(cfg Config, deps Deps) *Orchestrator {
	cfg = cfg.withDefaults()
	o := &Orchestrator{
		cfg:   cfg,
		deps:  deps,
		table: RotationTable(cfg.Universe),
		log:   slog.Default(),
	}
	o.pause = o.sleep
	return o
}

// Book returns a copy of the position book.
func (o *Orchestrator) Book() model.Book {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.book.Clone()
}

func (o *Orchestrator) setBasis(asset string, price float64) {
	o.mu.Lock()
	o.book.SetCostBasis(asset, price)
	o.mu.Unlock()
}

// Run blocks until ctx is cancelled. Trading errors never end the loop; they
// trigger the error cooldown and the next cycle proceeds.
func (o *Orchestrator) Run(ctx context.Context) {
	o.initBook(ctx)

	o.log.Info("loop starting",
		"universe", strings.Join(o.cfg.Universe, ","),
		"stable", o.cfg.Stable,
		"cycle_interval", o.cfg.CycleInterval.String())
	notification.Post(ctx, o.deps.Notifier,
		fmt.Sprintf("Rotation bot started. Universe: %s (via %s).",
			strings.Join(o.cfg.Universe, ", "), o.cfg.Stable))

	for ctx.Err() == nil {
		o.seq++
		start := time.Now()
		cctx := logger.WithCycleID(ctx, logger.GenerateCycleID(o.seq, start))

		failed := o.runCycle(cctx)

		if o.OnCycle != nil {
			o.OnCycle(time.Since(start), failed)
		}

		wait := o.cfg.CycleInterval
		if failed {
			wait = o.cfg.ErrorCooldown
			o.log.Warn("cycle failed, cooling down", append(logger.WithCycle(cctx),
				"cooldown", wait.String())...)
		}
		if !o.pause(ctx, wait) {
			break
		}
	}

	// ctx is already done; give the farewell its own deadline.
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	notification.Post(sctx, o.deps.Notifier, "Rotation bot shutting down.")
	o.log.Info("loop stopped")
}

// runCycle does one pass over the rotation table plus the risk checks. A
// panic anywhere inside is contained and reported as a failed cycle.
func (o *Orchestrator) runCycle(ctx context.Context) (failed bool) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("cycle panicked", append(logger.WithCycle(ctx),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))...)
			notification.Post(ctx, o.deps.Notifier,
				fmt.Sprintf("Cycle error: %v. Resuming after cooldown.", r))
			failed = true
		}
	}()

	for _, rot := range o.table {
		o.processAsset(ctx, rot)
	}
	o.deps.Risk.RunChecks(ctx, o.book)
	return false
}

// processAsset evaluates one universe asset and, on a gated Buy, rotates it
// into its successor. Sell and Hold are logged only; forced exits belong to
// the risk checks.
func (o *Orchestrator) processAsset(ctx context.Context, rot Rotation) {
	balance := o.deps.Market.Balance(ctx, rot.From)
	if balance <= 0 {
		o.log.Debug("skipping asset, no balance", append(logger.WithCycle(ctx),
			"asset", rot.From)...)
		return
	}

	pair := o.deps.Executor.Pair(rot.From)
	series := o.deps.Market.History(ctx, pair)
	snap := o.deps.Engine.Compute(series)
	dec := o.deps.Evaluator.Evaluate(snap)

	if o.OnDecision != nil {
		o.OnDecision(dec.Action)
	}
	o.log.Info("decision", append(logger.WithCycle(ctx),
		"pair", pair,
		"action", string(dec.Action),
		"reason", dec.Reason)...)

	if dec.Action != model.ActionBuy {
		o.recordDecision(ctx, pair, dec, false)
		return
	}

	targetPair := o.deps.Executor.Pair(rot.To)
	price := o.deps.Market.Price(ctx, targetPair)

	proposal := model.Proposal{
		FromAsset: rot.From,
		ToAsset:   rot.To,
		Pair:      pair,
		Action:    dec.Action,
		Reason:    dec.Reason,
		Balance:   balance,
		Price:     price,
		Snapshot:  snap,
	}
	if ok, holdReason := o.deps.Gates.Approve(ctx, proposal); !ok {
		o.log.Info("trade held", append(logger.WithCycle(ctx),
			"pair", pair,
			"held_by", holdReason)...)
		if o.OnGateHold != nil {
			o.OnGateHold()
		}
		o.recordDecision(ctx, pair, dec, false)
		return
	}

	res := o.deps.Executor.Rotate(ctx, rot.From, rot.To)
	if res.Success {
		// The gate chain may have stalled on an operator for minutes, so
		// the entry price is the buy-leg fill, not the pre-gate quote.
		basis := res.BuyPrice
		if basis <= 0 {
			basis = o.deps.Market.Price(ctx, targetPair)
		}
		if basis > 0 {
			o.setBasis(rot.To, basis)
			o.saveBook(ctx)
		}
	}
	o.recordDecision(ctx, pair, dec, res.Success)
}

// initBook restores the book from the snapshot store when one exists,
// otherwise seeds every universe asset's cost basis from its live price.
func (o *Orchestrator) initBook(ctx context.Context) {
	if o.deps.Snapshots != nil {
		book, found, err := o.deps.Snapshots.LoadBook(ctx)
		if err != nil {
			o.log.Warn("book restore failed", "err", err)
		} else if found {
			o.mu.Lock()
			o.book = book
			o.mu.Unlock()
			o.log.Info("book restored from snapshot", "positions", len(book))
			return
		}
	}

	seeded := make(model.Book, len(o.cfg.Universe))
	for _, asset := range o.cfg.Universe {
		price := o.deps.Market.Price(ctx, o.deps.Executor.Pair(asset))
		if price > 0 {
			seeded.SetCostBasis(asset, price)
		}
	}
	o.mu.Lock()
	o.book = seeded
	o.mu.Unlock()
	o.log.Info("book seeded from live prices", "positions", len(seeded))
	o.saveBook(ctx)
}

func (o *Orchestrator) saveBook(ctx context.Context) {
	if o.deps.Snapshots == nil {
		return
	}
	if err := o.deps.Snapshots.SaveBook(ctx, o.Book()); err != nil {
		o.log.Warn("book snapshot failed", append(logger.WithCycle(ctx), "err", err)...)
	}
}

func (o *Orchestrator) recordDecision(ctx context.Context, pair string, dec model.Decision, executed bool) {
	if o.deps.Journal == nil {
		return
	}
	if err := o.deps.Journal.RecordDecision(logger.CycleID(ctx), pair, dec, executed); err != nil {
		o.log.Warn("journal write failed", append(logger.WithCycle(ctx), "err", err)...)
	}
}

func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
