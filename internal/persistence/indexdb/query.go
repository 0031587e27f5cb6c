package indexdb

import (
	"database/sql"
	"fmt"
	"time"

	"skyfleet.ai/internal/sim/world"
)

// rawOrder is the JSON blob stored alongside the indexed columns. It
// carries the full item list and timeline that the columns flatten away.
type rawOrder struct {
	ID           string        `json:"id"`
	Status       string        `json:"status"`
	Priority     string        `json:"priority"`
	RestaurantID string        `json:"restaurant_id"`
	CustomerID   string        `json:"customer_id"`
	DroneID      string        `json:"drone_id,omitempty"`
	Items        []rawItem     `json:"items"`
	TotalWeight  float64       `json:"total_weight_kg"`
	TotalPrice   float64       `json:"total_price"`
	CreatedAt    time.Time     `json:"created_at"`
	DeliveredAt  *time.Time    `json:"delivered_at,omitempty"`
	ETAMinutes   float64       `json:"eta_minutes"`
	FailReason   string        `json:"fail_reason,omitempty"`
	Timeline     []rawTimeline `json:"timeline"`
}

type rawItem struct {
	ItemID   string  `json:"item_id"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	WeightKg float64 `json:"weight_kg"`
	Price    float64 `json:"price"`
}

type rawTimeline struct {
	Status string    `json:"status"`
	At     time.Time `json:"at"`
}

type rawAlert struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	DroneIDs  []string  `json:"drone_ids,omitempty"`
	OrderID   string    `json:"order_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func orderJSON(o *world.Order) rawOrder {
	r := rawOrder{
		ID:           o.ID,
		Status:       string(o.Status),
		Priority:     string(o.Priority),
		RestaurantID: o.RestaurantID,
		CustomerID:   o.CustomerID,
		DroneID:      o.DroneID,
		TotalWeight:  o.TotalWeight,
		TotalPrice:   o.TotalPrice,
		CreatedAt:    o.CreatedAt,
		ETAMinutes:   o.ETAMinutes,
		FailReason:   o.FailReason,
	}
	if !o.DeliveredAt.IsZero() {
		t := o.DeliveredAt
		r.DeliveredAt = &t
	}
	for _, it := range o.Items {
		r.Items = append(r.Items, rawItem{
			ItemID:   it.ItemID,
			Name:     it.Name,
			Quantity: it.Quantity,
			WeightKg: it.WeightKg,
			Price:    it.Price,
		})
	}
	for _, tl := range o.Timeline {
		r.Timeline = append(r.Timeline, rawTimeline{Status: string(tl.Status), At: tl.At})
	}
	return r
}

func alertJSON(a *world.Alert) rawAlert {
	return rawAlert{
		ID:        a.ID,
		Kind:      a.Kind,
		Severity:  a.Severity,
		Message:   a.Message,
		DroneIDs:  a.DroneIDs,
		OrderID:   a.OrderID,
		CreatedAt: a.CreatedAt,
	}
}

// OrderRecord is a flattened row returned by queries.
type OrderRecord struct {
	ID           string    `json:"id"`
	Status       string    `json:"status"`
	Priority     string    `json:"priority"`
	RestaurantID string    `json:"restaurant_id"`
	CustomerID   string    `json:"customer_id"`
	DroneID      string    `json:"drone_id,omitempty"`
	TotalWeight  float64   `json:"total_weight_kg"`
	TotalPrice   float64   `json:"total_price"`
	CreatedAt    time.Time `json:"created_at"`
	DeliveredAt  time.Time `json:"delivered_at,omitempty"`
	ETAMinutes   float64   `json:"eta_minutes"`
	FailReason   string    `json:"fail_reason,omitempty"`
}

// AlertRecord is a flattened alert row.
type AlertRecord struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Orders returns indexed orders newest first, optionally filtered by
// status. limit <= 0 means 100.
func (s *SQLiteIndex) Orders(status string, limit int) ([]OrderRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var (
		rows *sql.Rows
		err  error
	)
	const cols = `id, status, priority, restaurant_id, customer_id, drone_id,
		total_weight, total_price, created_at, delivered_at, eta_minutes, fail_reason`
	if status != "" {
		rows, err = s.db.Query(
			`SELECT `+cols+` FROM orders WHERE status = ? ORDER BY created_at DESC LIMIT ?`,
			status, limit)
	} else {
		rows, err = s.db.Query(
			`SELECT `+cols+` FROM orders ORDER BY created_at DESC LIMIT ?`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("indexdb: query orders: %w", err)
	}
	defer rows.Close()

	var out []OrderRecord
	for rows.Next() {
		var (
			r         OrderRecord
			created   int64
			delivered sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.Status, &r.Priority, &r.RestaurantID,
			&r.CustomerID, &r.DroneID, &r.TotalWeight, &r.TotalPrice,
			&created, &delivered, &r.ETAMinutes, &r.FailReason); err != nil {
			return nil, fmt.Errorf("indexdb: scan order: %w", err)
		}
		r.CreatedAt = time.UnixMilli(created).UTC()
		if delivered.Valid {
			r.DeliveredAt = time.UnixMilli(delivered.Int64).UTC()
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Alerts returns indexed alerts newest first. limit <= 0 means 100.
func (s *SQLiteIndex) Alerts(limit int) ([]AlertRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT id, kind, severity, message, created_at
		 FROM alerts ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("indexdb: query alerts: %w", err)
	}
	defer rows.Close()

	var out []AlertRecord
	for rows.Next() {
		var (
			r       AlertRecord
			created int64
		)
		if err := rows.Scan(&r.ID, &r.Kind, &r.Severity, &r.Message, &created); err != nil {
			return nil, fmt.Errorf("indexdb: scan alert: %w", err)
		}
		r.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// OrderCount reports rows in the orders table, for health reporting.
func (s *SQLiteIndex) OrderCount() (int64, error) {
	var n int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&n)
	return n, err
}
