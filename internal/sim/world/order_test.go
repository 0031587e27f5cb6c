package world

import (
	"testing"

	"skyfleet.ai/internal/protocol"
)

func TestPlaceOrder_Validation(t *testing.T) {
	w := newTestWorld(t, 61)

	cases := []struct {
		name string
		req  CreateOrderRequest
		code string
	}{
		{"unknown restaurant", CreateOrderRequest{
			RestaurantID: "rest-99", CustomerID: "customer-1",
			Items: []CreateOrderItem{{ItemID: "x", Quantity: 1}},
		}, protocol.ErrInvalidReference},
		{"unknown customer", CreateOrderRequest{
			RestaurantID: "rest-1", CustomerID: "customer-99",
			Items: []CreateOrderItem{{ItemID: "rest-1-item-1", Quantity: 1}},
		}, protocol.ErrInvalidReference},
		{"unknown item", CreateOrderRequest{
			RestaurantID: "rest-1", CustomerID: "customer-1",
			Items: []CreateOrderItem{{ItemID: "rest-2-item-1", Quantity: 1}},
		}, protocol.ErrInvalidReference},
		{"no items", CreateOrderRequest{
			RestaurantID: "rest-1", CustomerID: "customer-1",
		}, protocol.ErrBadRequest},
		{"zero quantity", CreateOrderRequest{
			RestaurantID: "rest-1", CustomerID: "customer-1",
			Items: []CreateOrderItem{{ItemID: "rest-1-item-1", Quantity: 0}},
		}, protocol.ErrBadRequest},
		{"bad priority", CreateOrderRequest{
			RestaurantID: "rest-1", CustomerID: "customer-1",
			Items:    []CreateOrderItem{{ItemID: "rest-1-item-1", Quantity: 1}},
			Priority: "WHENEVER",
		}, protocol.ErrBadRequest},
		{"overweight", CreateOrderRequest{
			RestaurantID: "rest-1", CustomerID: "customer-1",
			Items: []CreateOrderItem{{ItemID: "rest-1-item-1", Quantity: 9}},
		}, protocol.ErrBadRequest},
	}

	for _, tc := range cases {
		_, err := w.placeOrder(tc.req)
		if err == nil {
			t.Fatalf("%s: accepted", tc.name)
		}
		if got := ErrCode(err); got != tc.code {
			t.Fatalf("%s: code = %s, want %s", tc.name, got, tc.code)
		}
	}

	if len(w.orders) != 0 {
		t.Fatalf("%d orders created by rejected requests", len(w.orders))
	}
}

func TestPlaceOrder_TotalsAndETA(t *testing.T) {
	w := newTestWorld(t, 62)

	id, err := w.placeOrder(CreateOrderRequest{
		RestaurantID: "rest-1",
		CustomerID:   "customer-1",
		Items: []CreateOrderItem{
			{ItemID: "rest-1-item-1", Quantity: 2},
			{ItemID: "rest-1-item-2", Quantity: 1},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	o := w.orders[id]

	if o.TotalWeight != 1.5 {
		t.Fatalf("weight = %v, want 1.5", o.TotalWeight)
	}
	if o.TotalPrice != 30 {
		t.Fatalf("price = %v, want 30", o.TotalPrice)
	}
	if o.Priority != PriorityNormal {
		t.Fatalf("default priority = %s", o.Priority)
	}
	if o.ETAMinutes <= etaPrepMinutes {
		t.Fatalf("eta = %v, want above prep time", o.ETAMinutes)
	}
	if o.ID != "order-000001" {
		t.Fatalf("id = %s", o.ID)
	}
}

func TestCancelOrder_States(t *testing.T) {
	w := newTestWorld(t, 63)

	pending := placeTest(t, w, "rest-1", "customer-1", PriorityNormal)
	if err := w.cancelOrder(pending.ID); err != nil {
		t.Fatalf("cancel pending: %v", err)
	}
	if pending.Status != OrderCancelled {
		t.Fatalf("status = %s", pending.Status)
	}

	d, assigned := launchMission(t, w)
	if err := w.cancelOrder(assigned.ID); err != nil {
		t.Fatalf("cancel assigned: %v", err)
	}
	if assigned.Status != OrderCancelled || assigned.DroneID != "" {
		t.Fatalf("order = %s drone=%q", assigned.Status, assigned.DroneID)
	}
	if d.State != StateReturningToKiosk || d.OrderID != "" {
		t.Fatalf("drone = %s order=%q", d.State, d.OrderID)
	}

	// Terminal and picked-up orders refuse cancellation.
	if err := w.cancelOrder(assigned.ID); err == nil {
		t.Fatal("cancelled order cancelled again")
	}
	if err := w.cancelOrder("order-999999"); err == nil {
		t.Fatal("unknown order cancelled")
	}
}

func TestSpawnOrders_FollowsFrequency(t *testing.T) {
	w := newTestWorld(t, 64)

	// NORMAL runs 0.5 orders/min: 120s interval. Feed 10 minutes of time.
	w.spawnOrders(600)
	if got := len(w.orders); got != 5 {
		t.Fatalf("spawned %d orders over 10 minutes, want 5", got)
	}
	for _, id := range w.orderIDs {
		o := w.orders[id]
		if o.TotalWeight > w.cat.Fleet.Drone.MaxPayloadKg {
			t.Fatalf("generated order %s weighs %v", o.ID, o.TotalWeight)
		}
	}
}

func TestDelayedOrder_AlertOncePerOrder(t *testing.T) {
	w := newTestWorld(t, 65)
	o := placeTest(t, w, "rest-1", "customer-1", PriorityNormal)
	o.setStatus(OrderAssigned, w.simTime)

	// Pending orders past their ETA are not delayed, they are unassigned.
	idle := placeTest(t, w, "rest-2", "customer-2", PriorityNormal)

	w.simTime = w.simTime.Add(minutesDuration(o.ETAMinutes + 1))
	w.checkDelayedOrders()
	w.checkDelayedOrders()

	got := alertsOfKind(w, AlertOrderDelayed)
	if len(got) != 1 {
		t.Fatalf("delayed alerts = %d, want 1", len(got))
	}
	if got[0].Severity != "WARNING" || got[0].OrderID != o.ID {
		t.Fatalf("alert = %+v", got[0])
	}
	if idle.Status != OrderPending {
		t.Fatalf("pending order became %s", idle.Status)
	}

	// Delivery resolves the alert; the next scan stays quiet.
	o.setStatus(OrderDelivered, w.simTime)
	w.closeOrder(o)
	if !got[0].Resolved {
		t.Fatal("alert not resolved at order close")
	}
	w.checkDelayedOrders()
	if n := len(alertsOfKind(w, AlertOrderDelayed)); n != 1 {
		t.Fatalf("delayed alerts after close = %d, want 1", n)
	}
}
