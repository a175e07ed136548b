// Package api provides the read-only HTTP surface of the bot: recent trades
// from the journal and the current position book.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"rotorbot/internal/execution"
	"rotorbot/internal/model"
)

const defaultTradeLimit = 50

// NewRouter sets up HTTP routes. book is read on every request so the
// response reflects the live loop state; it must return a copy.
func NewRouter(journal *execution.Journal, book func() model.Book) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("/api/v1/trades", func(w http.ResponseWriter, r *http.Request) {
		limit := defaultTradeLimit
		if q := r.URL.Query().Get("limit"); q != "" {
			n, err := strconv.Atoi(q)
			if err != nil || n <= 0 {
				http.Error(w, `{"error":"invalid limit"}`, http.StatusBadRequest)
				return
			}
			limit = n
		}

		trades, err := journal.GetTrades(limit)
		if err != nil {
			http.Error(w, `{"error":"journal read failed"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(trades)
	})

	mux.HandleFunc("/api/v1/book", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(book())
	})

	return mux
}
