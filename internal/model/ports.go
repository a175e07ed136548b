package model

import "context"

// ── Venue Port Interface ──
// Venue decouples the trading loop from the concrete exchange client so the
// loop, the risk checks, and the executor can be driven by fakes in tests.

// Venue is the raw capability surface of the trading venue. All calls are
// synchronous and may fail with a venue error class (transient, fatal, or
// order rejection); classification lives in internal/venue.
type Venue interface {
	// GetHistory returns up to limit bars of OHLCV history for a pair.
	GetHistory(ctx context.Context, pair, interval string, limit int) (Series, error)

	// GetPrice returns the current price of a pair.
	GetPrice(ctx context.Context, pair string) (float64, error)

	// GetBalance returns the free balance of an asset.
	GetBalance(ctx context.Context, asset string) (float64, error)

	// GetTakerFee returns the taker fee as a fraction (e.g. 0.001).
	GetTakerFee(ctx context.Context) (float64, error)

	// MarketSell sells qty of the pair's base asset at market.
	MarketSell(ctx context.Context, pair string, qty float64) (Fill, error)

	// MarketBuy buys qty of the pair's base asset at market.
	MarketBuy(ctx context.Context, pair string, qty float64) (Fill, error)
}
