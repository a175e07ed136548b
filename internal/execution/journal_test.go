package execution

import (
	"path/filepath"
	"testing"
	"time"

	"rotorbot/internal/model"
)

func TestJournal_TradeRoundTrip(t *testing.T) {
	j, err := NewJournal(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer j.Close()

	res := Result{
		FromAsset: "BTC",
		ToAsset:   "ETH",
		SoldQty:   1.5,
		Proceeds:  1200.5,
		BoughtQty: 24.01,
		Fee:       0.001,
		Success:   true,
		At:        time.Now().UTC(),
	}
	if err := j.RecordTrade(res); err != nil {
		t.Fatalf("record trade: %v", err)
	}
	if err := j.RecordTrade(Result{FromAsset: "ETH", ToAsset: "USDT", Reason: "sell leg rejected", At: time.Now().UTC()}); err != nil {
		t.Fatalf("record trade: %v", err)
	}

	trades, err := j.GetTrades(10)
	if err != nil {
		t.Fatalf("get trades: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	// Newest first
	if trades[0].FromAsset != "ETH" || trades[0].Success {
		t.Errorf("unexpected newest trade: %+v", trades[0])
	}
	if trades[1].BoughtQty != 24.01 || !trades[1].Success {
		t.Errorf("unexpected oldest trade: %+v", trades[1])
	}
}

func TestJournal_RecordDecision(t *testing.T) {
	j, err := NewJournal(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer j.Close()

	dec := model.Decision{Action: model.ActionBuy, Reason: "bullish trend"}
	if err := j.RecordDecision("cycle-1-42", "BTCUSDT", dec, true); err != nil {
		t.Fatalf("record decision: %v", err)
	}
}
