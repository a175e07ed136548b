package risk

import (
	"context"
	"testing"
	"time"

	"rotorbot/internal/execution"
	"rotorbot/internal/market"
	"rotorbot/internal/model"
)

// fakeVenue serves canned balances/prices and records orders.
type fakeVenue struct {
	balances map[string]float64
	prices   map[string]float64

	sells []string
	buys  []string
}

func (f *fakeVenue) GetHistory(ctx context.Context, pair, interval string, limit int) (model.Series, error) {
	return nil, nil
}
func (f *fakeVenue) GetPrice(ctx context.Context, pair string) (float64, error) {
	return f.prices[pair], nil
}
func (f *fakeVenue) GetBalance(ctx context.Context, asset string) (float64, error) {
	return f.balances[asset], nil
}
func (f *fakeVenue) GetTakerFee(ctx context.Context) (float64, error) { return 0.001, nil }
func (f *fakeVenue) MarketSell(ctx context.Context, pair string, qty float64) (model.Fill, error) {
	f.sells = append(f.sells, pair)
	return model.Fill{Price: f.prices[pair], Qty: qty}, nil
}
func (f *fakeVenue) MarketBuy(ctx context.Context, pair string, qty float64) (model.Fill, error) {
	f.buys = append(f.buys, pair)
	return model.Fill{Price: f.prices[pair], Qty: qty}, nil
}

type trigger struct {
	kind  string
	asset string
}

func newTestManager(fv *fakeVenue, universe []string, allocation map[string]float64, limits Limits) (*Manager, *[]trigger) {
	client := market.NewClient(fv, nil, market.Config{MaxAttempts: 1, BaseDelay: time.Millisecond})
	exec := execution.NewExecutor(client, nil, nil, "USDT")
	mgr := NewManager(client, exec, universe, "USDT", allocation, limits)
	var triggers []trigger
	mgr.OnTrigger = func(kind, asset string) { triggers = append(triggers, trigger{kind, asset}) }
	return mgr, &triggers
}

func TestRebalance_BuysUnderweightAsset(t *testing.T) {
	// Total value 1000, A worth 300 against a 0.5 target → buy A.
	fv := &fakeVenue{
		balances: map[string]float64{"A": 3, "B": 7, "USDT": 200},
		prices:   map[string]float64{"AUSDT": 100, "BUSDT": 100},
	}
	mgr, triggers := newTestManager(fv, []string{"A", "B"}, map[string]float64{"A": 0.5}, DefaultLimits())

	mgr.Rebalance(context.Background())

	if len(*triggers) != 1 || (*triggers)[0].kind != "rebalance_buy" || (*triggers)[0].asset != "A" {
		t.Fatalf("expected one rebalance_buy of A, got %v", *triggers)
	}
	if len(fv.buys) != 1 || fv.buys[0] != "AUSDT" {
		t.Errorf("expected a buy of AUSDT, got %v", fv.buys)
	}
}

func TestRebalance_SellsOverweightAsset(t *testing.T) {
	// Total value 1000, A worth 600 against a 0.5 target → sell A.
	fv := &fakeVenue{
		balances: map[string]float64{"A": 6, "B": 4},
		prices:   map[string]float64{"AUSDT": 100, "BUSDT": 100},
	}
	mgr, triggers := newTestManager(fv, []string{"A", "B"}, map[string]float64{"A": 0.5}, DefaultLimits())

	mgr.Rebalance(context.Background())

	if len(*triggers) != 1 || (*triggers)[0].kind != "rebalance_sell" || (*triggers)[0].asset != "A" {
		t.Fatalf("expected one rebalance_sell of A, got %v", *triggers)
	}
	if len(fv.sells) != 1 || fv.sells[0] != "AUSDT" {
		t.Errorf("expected a sell of AUSDT, got %v", fv.sells)
	}
}

func TestRebalance_BandSuppressesSmallDeviation(t *testing.T) {
	// A is at 48% against a 50% target; a 5% band must not trade.
	fv := &fakeVenue{
		balances: map[string]float64{"A": 48, "B": 52},
		prices:   map[string]float64{"AUSDT": 10, "BUSDT": 10},
	}
	limits := DefaultLimits()
	limits.RebalanceBand = 0.05
	mgr, triggers := newTestManager(fv, []string{"A", "B"}, map[string]float64{"A": 0.5}, limits)

	mgr.Rebalance(context.Background())

	if len(*triggers) != 0 {
		t.Errorf("expected no trades within the tolerance band, got %v", *triggers)
	}
}

func TestRebalance_UnallocatedAssetsUntouched(t *testing.T) {
	fv := &fakeVenue{
		balances: map[string]float64{"A": 1, "B": 99},
		prices:   map[string]float64{"AUSDT": 10, "BUSDT": 10},
	}
	mgr, _ := newTestManager(fv, []string{"A", "B"}, map[string]float64{}, DefaultLimits())

	mgr.Rebalance(context.Background())

	if len(fv.sells)+len(fv.buys) != 0 {
		t.Errorf("expected no trades without allocation entries, got sells=%v buys=%v", fv.sells, fv.buys)
	}
}

func TestStopLoss_BoundaryInclusive(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		want  bool
	}{
		{"above threshold drop", 94.0, true},  // 6% drop
		{"exactly at threshold", 95.0, true},  // 5% drop — equality triggers
		{"below threshold", 95.01, false},     // 4.99% drop
		{"price unchanged", 100.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fv := &fakeVenue{
				balances: map[string]float64{"A": 10},
				prices:   map[string]float64{"AUSDT": tt.price},
			}
			mgr, triggers := newTestManager(fv, []string{"A"}, nil, DefaultLimits())
			book := model.Book{"A": 100.0}

			mgr.StopLoss(context.Background(), book)

			triggered := len(*triggers) == 1
			if triggered != tt.want {
				t.Errorf("price=%.2f: triggered=%v, want %v", tt.price, triggered, tt.want)
			}
		})
	}
}

func TestTakeProfit_BoundaryInclusive(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		want  bool
	}{
		{"above threshold gain", 111.0, true},  // 11% gain
		{"exactly at threshold", 110.0, true},  // 10% gain — equality triggers
		{"below threshold", 109.99, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fv := &fakeVenue{
				balances: map[string]float64{"A": 10},
				prices:   map[string]float64{"AUSDT": tt.price},
			}
			mgr, triggers := newTestManager(fv, []string{"A"}, nil, DefaultLimits())
			book := model.Book{"A": 100.0}

			mgr.TakeProfit(context.Background(), book)

			triggered := len(*triggers) == 1
			if triggered != tt.want {
				t.Errorf("price=%.2f: triggered=%v, want %v", tt.price, triggered, tt.want)
			}
		})
	}
}

func TestStopLoss_SkipsZeroCostBasis(t *testing.T) {
	fv := &fakeVenue{
		balances: map[string]float64{"A": 10},
		prices:   map[string]float64{"AUSDT": 1},
	}
	mgr, triggers := newTestManager(fv, []string{"A"}, nil, DefaultLimits())
	book := model.Book{"A": 0}

	mgr.StopLoss(context.Background(), book)

	if len(*triggers) != 0 {
		t.Errorf("zero cost basis must never trigger, got %v", *triggers)
	}
}
