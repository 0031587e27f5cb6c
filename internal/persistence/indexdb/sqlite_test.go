package indexdb

import (
	"path/filepath"
	"testing"
	"time"

	"skyfleet.ai/internal/sim/world"
)

func testOrder(id string, status world.OrderStatus) *world.Order {
	created := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	o := &world.Order{
		ID:           id,
		Status:       status,
		Priority:     world.PriorityNormal,
		RestaurantID: "rest-1",
		CustomerID:   "customer-1",
		DroneID:      "drone-01",
		Items: []world.OrderItem{
			{ItemID: "rest-1-item-1", Name: "Butter Chicken", Quantity: 2, WeightKg: 0.5, Price: 10},
		},
		TotalWeight: 1.0,
		TotalPrice:  20,
		CreatedAt:   created,
		ETAMinutes:  18,
		Timeline: []world.TimelineEntry{
			{Status: world.OrderPending, At: created},
			{Status: status, At: created.Add(10 * time.Minute)},
		},
	}
	if status == world.OrderDelivered {
		o.DeliveredAt = created.Add(15 * time.Minute)
	}
	if status == world.OrderFailed {
		o.FailReason = "LOW_BATTERY_RETURN"
	}
	return o
}

func TestRecordAndQueryOrders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := idx.RecordOrder(testOrder("order-000001", world.OrderDelivered)); err != nil {
		t.Fatalf("RecordOrder: %v", err)
	}
	if err := idx.RecordOrder(testOrder("order-000002", world.OrderFailed)); err != nil {
		t.Fatalf("RecordOrder: %v", err)
	}
	// Close drains the async queue, so a reopen sees every row.
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	idx, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()

	all, err := idx.Orders("", 0)
	if err != nil {
		t.Fatalf("Orders: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(all))
	}

	delivered, err := idx.Orders("DELIVERED", 10)
	if err != nil {
		t.Fatalf("Orders(DELIVERED): %v", err)
	}
	if len(delivered) != 1 || delivered[0].ID != "order-000001" {
		t.Fatalf("unexpected delivered rows %+v", delivered)
	}
	if delivered[0].DeliveredAt.IsZero() {
		t.Fatal("delivered_at not round-tripped")
	}
	if delivered[0].TotalPrice != 20 {
		t.Fatalf("total_price = %v", delivered[0].TotalPrice)
	}

	failed, err := idx.Orders("FAILED", 10)
	if err != nil {
		t.Fatalf("Orders(FAILED): %v", err)
	}
	if len(failed) != 1 || failed[0].FailReason != "LOW_BATTERY_RETURN" {
		t.Fatalf("unexpected failed rows %+v", failed)
	}

	n, err := idx.OrderCount()
	if err != nil || n != 2 {
		t.Fatalf("OrderCount = %d, %v", n, err)
	}
}

func TestRecordOrderUpsert(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := idx.RecordOrder(testOrder("order-000001", world.OrderFailed)); err != nil {
		t.Fatalf("RecordOrder: %v", err)
	}
	if err := idx.RecordOrder(testOrder("order-000001", world.OrderDelivered)); err != nil {
		t.Fatalf("RecordOrder: %v", err)
	}
	idx.Close()

	idx, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()
	all, err := idx.Orders("", 0)
	if err != nil {
		t.Fatalf("Orders: %v", err)
	}
	if len(all) != 1 || all[0].Status != "DELIVERED" {
		t.Fatalf("expected single upserted row, got %+v", all)
	}
}

func TestRecordAndQueryAlerts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	a := &world.Alert{
		ID:        "alert-000001",
		Kind:      "COLLISION_RISK",
		Severity:  "CRITICAL",
		Message:   "drones drone-01 and drone-02 within 100m",
		DroneIDs:  []string{"drone-01", "drone-02"},
		CreatedAt: time.Date(2026, 1, 1, 9, 5, 0, 0, time.UTC),
	}
	if err := idx.RecordAlert(a); err != nil {
		t.Fatalf("RecordAlert: %v", err)
	}
	idx.Close()

	idx, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()
	alerts, err := idx.Alerts(0)
	if err != nil {
		t.Fatalf("Alerts: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Kind != "COLLISION_RISK" || alerts[0].Severity != "CRITICAL" {
		t.Fatalf("unexpected alerts %+v", alerts)
	}
}

func TestRecordAfterCloseIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	idx.Close()
	if err := idx.RecordOrder(testOrder("order-000009", world.OrderDelivered)); err != nil {
		t.Fatalf("RecordOrder after close: %v", err)
	}
	if err := idx.RecordAlert(&world.Alert{ID: "alert-000009"}); err != nil {
		t.Fatalf("RecordAlert after close: %v", err)
	}
}
