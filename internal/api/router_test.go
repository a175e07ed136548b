package api

import (
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"rotorbot/internal/execution"
	"rotorbot/internal/model"
)

func newTestRouter(t *testing.T) (*execution.Journal, func() model.Book) {
	t.Helper()
	journal, err := execution.NewJournal(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("NewJournal: %v", err)
	}
	t.Cleanup(func() { journal.Close() })

	book := model.Book{"BTC": 43000}
	return journal, func() model.Book { return book.Clone() }
}

func TestTradesEndpoint(t *testing.T) {
	journal, book := newTestRouter(t)
	if err := journal.RecordTrade(execution.Result{
		FromAsset: "BTC",
		ToAsset:   "ETH",
		SoldQty:   1,
		Proceeds:  42958,
		BoughtQty: 18.6,
		Fee:       0.001,
		Success:   true,
		At:        time.Now().UTC(),
	}); err != nil {
		t.Fatalf("RecordTrade: %v", err)
	}

	mux := NewRouter(journal, book)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/trades", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var trades []execution.TradeRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &trades); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(trades) != 1 || trades[0].ToAsset != "ETH" {
		t.Errorf("trades = %+v", trades)
	}
}

func TestTradesEndpointBadLimit(t *testing.T) {
	journal, book := newTestRouter(t)
	mux := NewRouter(journal, book)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/trades?limit=abc", nil))
	if rec.Code != 400 {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestBookEndpoint(t *testing.T) {
	journal, book := newTestRouter(t)
	mux := NewRouter(journal, book)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/book", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	var got map[string]float64
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["BTC"] != 43000 {
		t.Errorf("book = %v", got)
	}
}
