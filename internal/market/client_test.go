package market

import (
	"context"
	"testing"
	"time"

	"rotorbot/internal/model"
	"rotorbot/internal/venue"
)

// fakeVenue fails a call a configurable number of times before succeeding.
type fakeVenue struct {
	priceFailures int
	priceErr      error
	price         float64
	priceCalls    int

	history      model.Series
	historyCalls int
}

func (f *fakeVenue) GetHistory(ctx context.Context, pair, interval string, limit int) (model.Series, error) {
	f.historyCalls++
	return f.history, nil
}

func (f *fakeVenue) GetPrice(ctx context.Context, pair string) (float64, error) {
	f.priceCalls++
	if f.priceCalls <= f.priceFailures {
		return 0, f.priceErr
	}
	return f.price, nil
}

func (f *fakeVenue) GetBalance(ctx context.Context, asset string) (float64, error) {
	return 0, nil
}
func (f *fakeVenue) GetTakerFee(ctx context.Context) (float64, error) { return 0.001, nil }
func (f *fakeVenue) MarketSell(ctx context.Context, pair string, qty float64) (model.Fill, error) {
	return model.Fill{}, nil
}
func (f *fakeVenue) MarketBuy(ctx context.Context, pair string, qty float64) (model.Fill, error) {
	return model.Fill{}, nil
}

// countingNotifier records every message sent.
type countingNotifier struct {
	messages []string
}

func (n *countingNotifier) Send(ctx context.Context, text string) error {
	n.messages = append(n.messages, text)
	return nil
}

func newTestClient(v model.Venue, n *countingNotifier) *Client {
	c := NewClient(v, n, Config{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
	})
	c.sleep = func(context.Context, time.Duration) {}
	c.jitter = func() float64 { return 0 }
	return c
}

func transientErr() error {
	return &venue.TransientError{Op: "test", Err: context.DeadlineExceeded}
}

func TestPrice_RecoversWithinRetryBudget(t *testing.T) {
	fv := &fakeVenue{priceFailures: 4, priceErr: transientErr(), price: 42.5}
	notifier := &countingNotifier{}
	client := newTestClient(fv, notifier)

	price := client.Price(context.Background(), "BTCUSDT")

	if price != 42.5 {
		t.Errorf("expected 42.5, got %v", price)
	}
	if fv.priceCalls != 5 {
		t.Errorf("expected 5 attempts, got %d", fv.priceCalls)
	}
	if len(notifier.messages) != 0 {
		t.Errorf("expected no notifications on eventual success, got %v", notifier.messages)
	}
}

func TestPrice_ExhaustedRetriesDegradeWithOneNotification(t *testing.T) {
	fv := &fakeVenue{priceFailures: 10, priceErr: transientErr(), price: 42.5}
	notifier := &countingNotifier{}
	client := newTestClient(fv, notifier)

	price := client.Price(context.Background(), "BTCUSDT")

	if price != 0 {
		t.Errorf("expected degraded zero price, got %v", price)
	}
	if fv.priceCalls != 5 {
		t.Errorf("expected exactly 5 attempts, got %d", fv.priceCalls)
	}
	if len(notifier.messages) != 1 {
		t.Fatalf("expected exactly 1 notification, got %d", len(notifier.messages))
	}
}

func TestPrice_CallTimeoutDegradesWithOneNotification(t *testing.T) {
	// The deadline expires during the first backoff, cutting the retry
	// budget short. The degradation must still notify exactly once.
	fv := &fakeVenue{priceFailures: 1 << 30, priceErr: transientErr()}
	notifier := &countingNotifier{}
	client := NewClient(fv, notifier, Config{
		MaxAttempts: 5,
		BaseDelay:   50 * time.Millisecond,
		CallTimeout: 5 * time.Millisecond,
	})
	client.jitter = func() float64 { return 0 }

	price := client.Price(context.Background(), "BTCUSDT")

	if price != 0 {
		t.Errorf("expected degraded zero price, got %v", price)
	}
	if fv.priceCalls >= 5 {
		t.Errorf("expected the deadline to cut retries short, got %d attempts", fv.priceCalls)
	}
	if len(notifier.messages) != 1 {
		t.Fatalf("expected exactly 1 notification, got %d: %v",
			len(notifier.messages), notifier.messages)
	}
}

func TestHistory_MalformedSeriesDegradesEmpty(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fv := &fakeVenue{history: model.Series{
		{TS: base.Add(time.Hour), Close: 100},
		{TS: base, Close: 101}, // out of order
	}}
	notifier := &countingNotifier{}
	client := newTestClient(fv, notifier)

	series := client.History(context.Background(), "BTCUSDT")

	if len(series) != 0 {
		t.Errorf("expected empty series for out-of-order bars, got %d bars", len(series))
	}
	if fv.historyCalls != 5 {
		t.Errorf("expected the full retry budget, got %d fetches", fv.historyCalls)
	}
	if len(notifier.messages) != 1 {
		t.Fatalf("expected exactly 1 notification, got %d", len(notifier.messages))
	}
}

func TestPrice_FatalNotRetried(t *testing.T) {
	fv := &fakeVenue{
		priceFailures: 10,
		priceErr:      &venue.FatalError{Op: "test", Err: context.Canceled},
		price:         42.5,
	}
	notifier := &countingNotifier{}
	client := newTestClient(fv, notifier)

	price := client.Price(context.Background(), "BTCUSDT")

	if price != 0 {
		t.Errorf("expected degraded zero price, got %v", price)
	}
	if fv.priceCalls != 1 {
		t.Errorf("fatal errors must not be retried, got %d attempts", fv.priceCalls)
	}
	if len(notifier.messages) != 0 {
		t.Errorf("fatal degradation logs but does not notify, got %v", notifier.messages)
	}
}

func TestBreaker_OpensAfterConsecutiveExhaustedCalls(t *testing.T) {
	fv := &fakeVenue{priceFailures: 1 << 30, priceErr: transientErr()}
	client := NewClient(fv, nil, Config{
		MaxAttempts:        2,
		BaseDelay:          time.Millisecond,
		BreakerMaxFailures: 3,
		BreakerResetAfter:  time.Hour,
	})
	client.sleep = func(context.Context, time.Duration) {}
	client.jitter = func() float64 { return 0 }

	for i := 0; i < 3; i++ {
		client.Price(context.Background(), "BTCUSDT")
	}
	if got := client.Breaker().CurrentState(); got != StateOpen {
		t.Fatalf("expected breaker open after 3 exhausted calls, got %s", got)
	}

	attemptsBefore := fv.priceCalls
	client.Price(context.Background(), "BTCUSDT")
	if fv.priceCalls != attemptsBefore {
		t.Errorf("open breaker must short-circuit without venue calls, got %d extra",
			fv.priceCalls-attemptsBefore)
	}
}

func TestBreaker_HalfOpenProbeCloses(t *testing.T) {
	b := NewBreaker(1, time.Millisecond)

	if err := b.Execute(func() error { return transientErr() }); err == nil {
		t.Fatal("expected error from failing call")
	}
	if b.CurrentState() != StateOpen {
		t.Fatalf("expected open after 1 failure, got %s", b.CurrentState())
	}

	time.Sleep(5 * time.Millisecond)

	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("expected half-open probe to pass, got %v", err)
	}
	if b.CurrentState() != StateClosed {
		t.Errorf("expected closed after successful probe, got %s", b.CurrentState())
	}
}
