// Package indexdb keeps a queryable SQLite index of terminal orders and
// raised alerts. Writes are funneled through a single async goroutine so
// the simulation loop never blocks on disk; the zstd flight logs remain
// the source of truth if the index drops rows under load.
package indexdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"skyfleet.ai/internal/sim/world"
)

const writeQueueSize = 262144

type reqKind int

const (
	reqOrder reqKind = iota
	reqAlert
)

type writeReq struct {
	kind  reqKind
	order *orderRow
	alert *alertRow
}

type orderRow struct {
	ID           string
	Status       string
	Priority     string
	RestaurantID string
	CustomerID   string
	DroneID      string
	TotalWeight  float64
	TotalPrice   float64
	CreatedAt    time.Time
	DeliveredAt  time.Time
	ETAMinutes   float64
	FailReason   string
	RawJSON      []byte
}

type alertRow struct {
	ID        string
	Kind      string
	Severity  string
	Message   string
	CreatedAt time.Time
	RawJSON   []byte
}

// SQLiteIndex stores closed orders and alerts in a single SQLite file.
type SQLiteIndex struct {
	db *sql.DB

	ch      chan writeReq
	wg      sync.WaitGroup
	once    sync.Once
	closed  atomic.Bool
	dropped atomic.Uint64
}

// OpenSQLite opens (creating if needed) the index database at path.
func OpenSQLite(path string) (*SQLiteIndex, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("indexdb: mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("indexdb: open %s: %w", path, err)
	}
	// modernc sqlite is happiest with one connection.
	db.SetMaxOpenConns(1)
	if err := initPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	s := &SQLiteIndex{
		db: db,
		ch: make(chan writeReq, writeQueueSize),
	}
	s.wg.Add(1)
	go s.loop()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("indexdb: %s: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id            TEXT PRIMARY KEY,
			status        TEXT NOT NULL,
			priority      TEXT NOT NULL,
			restaurant_id TEXT NOT NULL,
			customer_id   TEXT NOT NULL,
			drone_id      TEXT NOT NULL DEFAULT '',
			total_weight  REAL NOT NULL,
			total_price   REAL NOT NULL,
			created_at    INTEGER NOT NULL,
			delivered_at  INTEGER,
			eta_minutes   REAL NOT NULL,
			fail_reason   TEXT NOT NULL DEFAULT '',
			raw_json      BLOB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_created ON orders(created_at)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id         TEXT PRIMARY KEY,
			kind       TEXT NOT NULL,
			severity   TEXT NOT NULL,
			message    TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			raw_json   BLOB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_created ON alerts(created_at)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("indexdb: schema: %w", err)
		}
	}
	return nil
}

// RecordOrder enqueues a terminal order. Never blocks; rows are dropped
// when the queue is full.
func (s *SQLiteIndex) RecordOrder(o *world.Order) error {
	if s.closed.Load() {
		return nil
	}
	raw, err := json.Marshal(orderJSON(o))
	if err != nil {
		return fmt.Errorf("indexdb: marshal order %s: %w", o.ID, err)
	}
	row := &orderRow{
		ID:           o.ID,
		Status:       string(o.Status),
		Priority:     string(o.Priority),
		RestaurantID: o.RestaurantID,
		CustomerID:   o.CustomerID,
		DroneID:      o.DroneID,
		TotalWeight:  o.TotalWeight,
		TotalPrice:   o.TotalPrice,
		CreatedAt:    o.CreatedAt,
		DeliveredAt:  o.DeliveredAt,
		ETAMinutes:   o.ETAMinutes,
		FailReason:   o.FailReason,
		RawJSON:      raw,
	}
	select {
	case s.ch <- writeReq{kind: reqOrder, order: row}:
	default:
		s.dropped.Add(1)
	}
	return nil
}

// RecordAlert enqueues an alert. Same drop semantics as RecordOrder.
func (s *SQLiteIndex) RecordAlert(a *world.Alert) error {
	if s.closed.Load() {
		return nil
	}
	raw, err := json.Marshal(alertJSON(a))
	if err != nil {
		return fmt.Errorf("indexdb: marshal alert %s: %w", a.ID, err)
	}
	row := &alertRow{
		ID:        a.ID,
		Kind:      a.Kind,
		Severity:  a.Severity,
		Message:   a.Message,
		CreatedAt: a.CreatedAt,
		RawJSON:   raw,
	}
	select {
	case s.ch <- writeReq{kind: reqAlert, alert: row}:
	default:
		s.dropped.Add(1)
	}
	return nil
}

// Dropped reports how many rows were discarded due to queue pressure.
func (s *SQLiteIndex) Dropped() uint64 { return s.dropped.Load() }

func (s *SQLiteIndex) loop() {
	defer s.wg.Done()
	for req := range s.ch {
		switch req.kind {
		case reqOrder:
			s.insertOrder(req.order)
		case reqAlert:
			s.insertAlert(req.alert)
		}
	}
}

func (s *SQLiteIndex) insertOrder(r *orderRow) {
	var delivered any
	if !r.DeliveredAt.IsZero() {
		delivered = r.DeliveredAt.UnixMilli()
	}
	_, _ = s.db.Exec(
		`INSERT OR REPLACE INTO orders
		 (id, status, priority, restaurant_id, customer_id, drone_id,
		  total_weight, total_price, created_at, delivered_at, eta_minutes,
		  fail_reason, raw_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Status, r.Priority, r.RestaurantID, r.CustomerID, r.DroneID,
		r.TotalWeight, r.TotalPrice, r.CreatedAt.UnixMilli(), delivered,
		r.ETAMinutes, r.FailReason, r.RawJSON,
	)
}

func (s *SQLiteIndex) insertAlert(r *alertRow) {
	_, _ = s.db.Exec(
		`INSERT OR REPLACE INTO alerts
		 (id, kind, severity, message, created_at, raw_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.Kind, r.Severity, r.Message, r.CreatedAt.UnixMilli(), r.RawJSON,
	)
}

// Close drains the queue, waits for the writer, and closes the database.
func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}
