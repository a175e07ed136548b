package execution

import (
	"database/sql"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"rotorbot/internal/model"
)

// Journal persists the append-only audit record to SQLite: every decision
// the loop takes and every trade attempt with its outcome.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// NewJournal opens (or creates) a SQLite journal database.
func NewJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_sync=NORMAL")
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS decisions (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		cycle_id    TEXT NOT NULL,
		pair        TEXT NOT NULL,
		action      TEXT NOT NULL,
		reason      TEXT,
		executed    INTEGER NOT NULL DEFAULT 0,
		decided_at  DATETIME NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_decisions_pair ON decisions(pair);
	CREATE INDEX IF NOT EXISTS idx_decisions_decided_at ON decisions(decided_at);

	CREATE TABLE IF NOT EXISTS trades (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		from_asset  TEXT NOT NULL,
		to_asset    TEXT NOT NULL,
		sold_qty    REAL NOT NULL,
		proceeds    REAL NOT NULL,
		bought_qty  REAL NOT NULL,
		fee         REAL NOT NULL,
		success     INTEGER NOT NULL,
		reason      TEXT,
		filled_at   DATETIME NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_trades_assets ON trades(from_asset, to_asset);
	CREATE INDEX IF NOT EXISTS idx_trades_filled_at ON trades(filled_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[journal] opened trade journal at %s", dbPath)
	return &Journal{db: db}, nil
}

// DB exposes the underlying handle for health checks.
func (j *Journal) DB() *sql.DB { return j.db }

// RecordDecision persists one signal evaluation outcome.
func (j *Journal) RecordDecision(cycleID, pair string, decision model.Decision, executed bool) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		`INSERT INTO decisions (cycle_id, pair, action, reason, executed, decided_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		cycleID,
		pair,
		string(decision.Action),
		decision.Reason,
		boolToInt(executed),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// RecordTrade persists a rotation attempt and its outcome.
func (j *Journal) RecordTrade(res Result) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		`INSERT INTO trades (from_asset, to_asset, sold_qty, proceeds, bought_qty, fee, success, reason, filled_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.FromAsset,
		res.ToAsset,
		res.SoldQty,
		res.Proceeds,
		res.BoughtQty,
		res.Fee,
		boolToInt(res.Success),
		res.Reason,
		res.At.Format(time.RFC3339),
	)
	return err
}

// TradeRecord represents a row from the trades table.
type TradeRecord struct {
	ID        int64   `json:"id"`
	FromAsset string  `json:"from_asset"`
	ToAsset   string  `json:"to_asset"`
	SoldQty   float64 `json:"sold_qty"`
	Proceeds  float64 `json:"proceeds"`
	BoughtQty float64 `json:"bought_qty"`
	Fee       float64 `json:"fee"`
	Success   bool    `json:"success"`
	Reason    string  `json:"reason"`
	FilledAt  string  `json:"filled_at"`
}

// GetTrades returns the last N trade attempts, newest first.
func (j *Journal) GetTrades(limit int) ([]TradeRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT id, from_asset, to_asset, sold_qty, proceeds, bought_qty, fee, success, reason, filled_at
		 FROM trades ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []TradeRecord
	for rows.Next() {
		var t TradeRecord
		var success int
		if err := rows.Scan(&t.ID, &t.FromAsset, &t.ToAsset, &t.SoldQty, &t.Proceeds,
			&t.BoughtQty, &t.Fee, &success, &t.Reason, &t.FilledAt); err != nil {
			continue
		}
		t.Success = success != 0
		trades = append(trades, t)
	}
	return trades, nil
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
