// Package market wraps the raw venue client with the retry/backoff policy
// and degraded defaults the trading loop relies on.
//
// Data reads (history, price, balance, fee) never return an error: transient
// failures are retried with exponential backoff, and an exhausted call
// degrades to an empty/zero result with exactly one notification. Order
// placement is different — venue errors pass through untouched so the
// executor can report rejections, and orders are never retried (a retried
// market order risks a double fill).
package market

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"rotorbot/internal/model"
	"rotorbot/internal/notification"
	"rotorbot/internal/venue"
)

// Config holds retry and lookback settings for the market client.
type Config struct {
	MaxAttempts int           // retry budget per data call, default 5
	BaseDelay   time.Duration // first backoff delay, doubles per attempt, default 1s
	CallTimeout time.Duration // wall-clock bound per data call, default 90s
	Interval    string        // history bar interval, default "1h"
	HistoryBars int           // history lookback bar count, default 250

	BreakerMaxFailures int           // exhausted calls before the breaker opens, default 5
	BreakerResetAfter  time.Duration // open→half-open probe delay, default 30s
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 5
	}
	if c.BaseDelay == 0 {
		c.BaseDelay = time.Second
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = 90 * time.Second
	}
	if c.Interval == "" {
		c.Interval = "1h"
	}
	if c.HistoryBars == 0 {
		c.HistoryBars = 250
	}
	if c.BreakerMaxFailures == 0 {
		c.BreakerMaxFailures = 5
	}
	if c.BreakerResetAfter == 0 {
		c.BreakerResetAfter = 30 * time.Second
	}
	return c
}

// Client is the retrying market data client.
// Designed for single-goroutine usage by the trading loop.
type Client struct {
	venue    model.Venue
	notifier notification.Notifier
	cfg      Config
	breaker  *Breaker

	// Hooks for instrumentation (optional).
	OnRetry    func(op string)
	OnDegraded func(op string)

	// Injectable for tests.
	sleep  func(ctx context.Context, d time.Duration)
	jitter func() float64
}

// errMalformedSeries marks a kline response with out-of-order timestamps
// or a negative close.
var errMalformedSeries = errors.New("series timestamps out of order or negative close")

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// NewClient wraps a venue with the retry policy. notifier may be nil.
func NewClient(v model.Venue, notifier notification.Notifier, cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		venue:    v,
		notifier: notifier,
		cfg:      cfg,
		breaker:  NewBreaker(cfg.BreakerMaxFailures, cfg.BreakerResetAfter),
		sleep:    sleepCtx,
		jitter:   rand.Float64,
	}
}

// Breaker exposes the circuit breaker for state inspection.
func (c *Client) Breaker() *Breaker { return c.breaker }

// retried runs fn under the breaker with up to MaxAttempts tries and a
// per-call wall-clock bound. Only transient venue errors are retried; a
// fatal error degrades immediately and an open breaker short-circuits.
// Every transient degradation — retry budget exhausted or the call
// deadline expiring mid-retry — emits exactly one notification. The
// returned error is only used to feed the breaker; callers receive
// degraded zero values instead.
func (c *Client) retried(ctx context.Context, op string, fn func(context.Context) error) bool {
	err := c.breaker.Execute(func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
		defer cancel()

		var last error
		for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
			if attempt > 0 {
				if c.OnRetry != nil {
					c.OnRetry(op)
				}
				delay := c.cfg.BaseDelay<<(attempt-1) + time.Duration(c.jitter()*float64(time.Second))
				c.sleep(callCtx, delay)
			}
			if callCtx.Err() != nil {
				return &venue.TransientError{Op: op, Err: callCtx.Err()}
			}

			last = fn(callCtx)
			if last == nil {
				return nil
			}
			if !venue.IsTransient(last) {
				// Fatal: retrying cannot fix it. Log and degrade.
				log.Printf("[market] %s failed (not retried): %v", op, last)
				return last
			}
			log.Printf("[market] %s attempt %d/%d failed: %v", op, attempt+1, c.cfg.MaxAttempts, last)
		}
		return last
	})

	if err != nil {
		switch {
		case err == ErrCircuitOpen:
			log.Printf("[market] %s short-circuited: breaker open", op)
		case venue.IsTransient(err):
			notification.Post(ctx, c.notifier,
				fmt.Sprintf("Failed to %s after %d retries.", op, c.cfg.MaxAttempts))
		}
		if c.OnDegraded != nil {
			c.OnDegraded(op)
		}
		return false
	}
	return true
}

// History fetches the OHLCV lookback window for a pair. A malformed
// response (out-of-order timestamps, negative closes) counts as a failed
// fetch. Degrades to an empty series.
func (c *Client) History(ctx context.Context, pair string) model.Series {
	var series model.Series
	c.retried(ctx, "fetch history for "+pair, func(ctx context.Context) error {
		got, err := c.venue.GetHistory(ctx, pair, c.cfg.Interval, c.cfg.HistoryBars)
		if err != nil {
			return err
		}
		if !got.Valid() {
			return &venue.TransientError{Op: "history " + pair, Err: errMalformedSeries}
		}
		series = got
		return nil
	})
	return series
}

// Price fetches the live price of a pair. Degrades to zero.
func (c *Client) Price(ctx context.Context, pair string) float64 {
	var price float64
	c.retried(ctx, "fetch price for "+pair, func(ctx context.Context) error {
		var err error
		price, err = c.venue.GetPrice(ctx, pair)
		return err
	})
	return price
}

// Balance fetches the free balance of an asset. Degrades to zero.
func (c *Client) Balance(ctx context.Context, asset string) float64 {
	var balance float64
	c.retried(ctx, "fetch balance for "+asset, func(ctx context.Context) error {
		var err error
		balance, err = c.venue.GetBalance(ctx, asset)
		return err
	})
	return balance
}

// TakerFee fetches the taker fee fraction. Degrades to zero; the executor
// applies its own fallback.
func (c *Client) TakerFee(ctx context.Context) float64 {
	var fee float64
	c.retried(ctx, "fetch taker fee", func(ctx context.Context) error {
		var err error
		fee, err = c.venue.GetTakerFee(ctx)
		return err
	})
	return fee
}

// Sell places a market sell. Venue errors pass through — never retried.
func (c *Client) Sell(ctx context.Context, pair string, qty float64) (model.Fill, error) {
	return c.venue.MarketSell(ctx, pair, qty)
}

// Buy places a market buy. Venue errors pass through — never retried.
func (c *Client) Buy(ctx context.Context, pair string, qty float64) (model.Fill, error) {
	return c.venue.MarketBuy(ctx, pair, qty)
}
