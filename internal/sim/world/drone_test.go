package world

import (
	"testing"

	"skyfleet.ai/internal/energy"
	"skyfleet.ai/internal/geo"
)

// launchMission places a manual order and assigns it to the returned drone.
func launchMission(t *testing.T, w *World) (*Drone, *Order) {
	t.Helper()
	id, err := w.placeOrder(CreateOrderRequest{
		RestaurantID: "rest-1",
		CustomerID:   "customer-10",
		Items:        []CreateOrderItem{{ItemID: "rest-1-item-1", Quantity: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	o := w.orders[id]
	d := w.bestDroneFor(o)
	if d == nil {
		t.Fatal("no eligible drone")
	}
	w.assignOrder(d, o)
	if d.State != StateFlyingToRestaurant || o.Status != OrderAssigned {
		t.Fatalf("after assign: drone %s, order %s", d.State, o.Status)
	}
	return d, o
}

func TestFlying_LowBatteryReturnFiresBeforeMovement(t *testing.T) {
	w := newTestWorld(t, 21)
	d, o := launchMission(t, w)

	// Below the return floor but above the emergency floor: the drone must
	// abort before covering any further distance this tick.
	d.Battery = 12
	flownBefore := d.DistanceFlown
	pos := d.Position

	w.updateDrone(d, w.dt())

	if d.State != StateReturningToKiosk {
		t.Fatalf("state = %s, want RETURNING_TO_KIOSK", d.State)
	}
	if o.Status != OrderFailed {
		t.Fatalf("order = %s, want FAILED", o.Status)
	}
	if d.OrderID != "" {
		t.Fatalf("drone still holds order %s", d.OrderID)
	}
	if d.DistanceFlown != flownBefore {
		t.Fatal("drone moved before the return check")
	}
	if d.Position.Lat != pos.Lat || d.Position.Lng != pos.Lng {
		t.Fatal("position changed in the abort tick")
	}
}

func TestFlying_CriticalBatteryForcesReturn(t *testing.T) {
	w := newTestWorld(t, 22)
	d, o := launchMission(t, w)

	d.Battery = 5
	w.updateDrone(d, w.dt())

	if d.State != StateReturningToKiosk {
		t.Fatalf("state = %s, want RETURNING_TO_KIOSK", d.State)
	}
	if o.Status != OrderFailed {
		t.Fatalf("order = %s, want FAILED", o.Status)
	}

	// The next tick must not re-trigger the abort: the drone keeps flying
	// home on whatever charge remains.
	w.updateDrone(d, w.dt())
	if d.State != StateReturningToKiosk {
		t.Fatalf("state after second tick = %s, want RETURNING_TO_KIOSK", d.State)
	}
}

func TestFlight_ActivatedZoneForcesReplan(t *testing.T) {
	w := newTestWorld(t, 28)

	// Straight two-point route through the airport zone, as if the zone
	// activated after planning.
	d := w.drones[w.droneIDs[0]]
	start := geo.Position{Lat: 28.5612, Lng: 77.0970, Altitude: 100}
	dest := geo.Position{Lat: 28.5612, Lng: 77.1300, Altitude: 100}
	d.State = StateFlyingToCustomer
	d.Battery = 100
	d.Position = start
	d.Route = []geo.Position{start, dest}
	d.RouteLeg = 0

	// 30 seconds at cruise would carry the drone across the zone boundary.
	w.updateDrone(d, 30)

	if d.Position != start {
		t.Fatalf("position moved to %+v during replan tick", d.Position)
	}
	if d.SpeedKmh != 0 {
		t.Fatalf("speed = %v, want 0 while replanning", d.SpeedKmh)
	}
	if d.RouteLeg != 0 {
		t.Fatalf("route leg = %d, want 0", d.RouteLeg)
	}
	if last := d.Route[len(d.Route)-1]; last.Lat != dest.Lat || last.Lng != dest.Lng {
		t.Fatalf("final waypoint changed: %+v", last)
	}
	if len(d.Route) < 3 {
		t.Fatalf("replanned route has %d points, want a detour", len(d.Route))
	}
	for leg := 0; leg < len(d.Route)-1; leg++ {
		if z := geo.PathIntersectsZone(d.Route[leg], d.Route[leg+1], w.zones); z != nil {
			t.Fatalf("replanned leg %d still crosses zone %s", leg, z.ID)
		}
	}
}

func TestWaiting_HoverDrainsBattery(t *testing.T) {
	w := newTestWorld(t, 29)

	d := w.drones[w.droneIDs[0]]
	d.State = StateWaitingForPickup
	d.Battery = 80

	w.updateDrone(d, 10)

	want := 80 - hoverDrainFactor*energy.IdleDrain(10)
	if d.Battery != want {
		t.Fatalf("battery = %v, want %v", d.Battery, want)
	}
}

func TestEmergencyLanding_DescendsToMaintenance(t *testing.T) {
	w := newTestWorld(t, 23)
	d := w.drones[w.droneIDs[0]]
	d.State = StateEmergencyLanding
	d.Position.Altitude = 80

	// 10 m/s descent: 8 seconds to the ground.
	for i := 0; i < 70; i++ {
		w.updateDrone(d, 0.1)
	}
	if d.State != StateEmergencyLanding {
		t.Fatalf("landed too early: %s", d.State)
	}
	for i := 0; i < 20; i++ {
		w.updateDrone(d, 0.1)
	}
	if d.State != StateMaintenance {
		t.Fatalf("state = %s, want MAINTENANCE", d.State)
	}
	if d.Position.Altitude != 0 {
		t.Fatalf("altitude = %v", d.Position.Altitude)
	}

	// Maintenance drones stay put and get no work.
	w.updateDrone(d, 0.1)
	if d.State != StateMaintenance {
		t.Fatalf("maintenance drone transitioned to %s", d.State)
	}
}

func TestDelivering_CompletesAtBusyUntil(t *testing.T) {
	w := newTestWorld(t, 24)
	d, o := launchMission(t, w)

	// Fast-forward the mission to the handoff phase.
	o.setStatus(OrderPickedUp, w.simTime)
	cust := w.customers[o.CustomerID]
	d.State = StateDelivering
	d.Position = cust.Position
	d.PayloadKg = o.TotalWeight
	d.Route = nil
	d.BusyUntil = w.simTime.Add(minutesDuration(0.5))

	w.updateDrone(d, w.dt())
	if o.Status != OrderPickedUp {
		t.Fatalf("handoff completed early: %s", o.Status)
	}

	w.simTime = d.BusyUntil
	w.updateDrone(d, w.dt())

	if o.Status != OrderDelivered {
		t.Fatalf("order = %s, want DELIVERED", o.Status)
	}
	if d.State != StateReturningToKiosk {
		t.Fatalf("state = %s, want RETURNING_TO_KIOSK", d.State)
	}
	if d.OrderID != "" || d.PayloadKg != 0 {
		t.Fatalf("drone not released: order=%q payload=%v", d.OrderID, d.PayloadKg)
	}
	if d.DeliveriesDone != 1 {
		t.Fatalf("deliveries = %d", d.DeliveriesDone)
	}
	if w.kpi.TotalRevenue != deliveryRevenue {
		t.Fatalf("revenue = %v", w.kpi.TotalRevenue)
	}
}

func TestCharging_QueueAndRelease(t *testing.T) {
	w := newTestWorld(t, 25)

	k := w.kiosks["kiosk-1"]
	var parked []*Drone
	for _, id := range w.droneIDs {
		d := w.drones[id]
		if d.KioskID == "kiosk-1" {
			parked = append(parked, d)
		}
	}
	if len(parked) < 2 {
		t.Fatalf("kiosk-1 has %d drones", len(parked))
	}

	// Exhaust the pads so the last drone queues.
	k.AvailablePads = 1
	first, second := parked[0], parked[1]
	first.Battery = 30
	second.Battery = 35

	w.updateDrone(first, 0.1)
	if first.State != StateCharging {
		t.Fatalf("first = %s, want CHARGING", first.State)
	}
	w.updateDrone(second, 0.1)
	if second.State != StateIdle || !second.InChargeQueue {
		t.Fatalf("second = %s queued=%v, want queued IDLE", second.State, second.InChargeQueue)
	}
	if k.AvailablePads != 0 {
		t.Fatalf("pads = %d", k.AvailablePads)
	}

	// Finish the first charge; the pad hands over to the queued drone.
	first.Battery = 99
	w.updateDrone(first, 0.1)
	if first.State != StateIdle {
		t.Fatalf("first after charge = %s", first.State)
	}
	if second.State != StateCharging || second.InChargeQueue {
		t.Fatalf("second = %s queued=%v, want CHARGING", second.State, second.InChargeQueue)
	}
	if k.AvailablePads != 0 {
		t.Fatalf("pads after handover = %d", k.AvailablePads)
	}
}

func TestOperatorCommands(t *testing.T) {
	w := newTestWorld(t, 26)
	d, o := launchMission(t, w)

	if err := w.forceReturn(d); err != nil {
		t.Fatalf("force return: %v", err)
	}
	if d.State != StateReturningToKiosk || o.Status != OrderFailed {
		t.Fatalf("after recall: drone %s, order %s", d.State, o.Status)
	}
	// Recalling a returning drone is a no-op error.
	if err := w.forceReturn(d); err == nil {
		t.Fatal("recall of returning drone accepted")
	}

	var idle *Drone
	for _, id := range w.droneIDs {
		if cand := w.drones[id]; cand.State == StateIdle {
			idle = cand
			break
		}
	}
	if idle == nil {
		t.Fatal("no idle drone in fresh world")
	}
	if err := w.forceReturn(idle); err == nil {
		t.Fatal("recall of idle drone accepted")
	}

	if err := w.emergencyLand(d, "test"); err != nil {
		t.Fatalf("emergency land: %v", err)
	}
	if d.State != StateEmergencyLanding {
		t.Fatalf("state = %s", d.State)
	}
	if err := w.emergencyLand(d, "test"); err == nil {
		t.Fatal("double emergency land accepted")
	}
}

func TestFlight_MovesTowardDestinationAndDrains(t *testing.T) {
	w := newTestWorld(t, 27)
	d, o := launchMission(t, w)

	rest := w.restaurants[o.RestaurantID]
	startDist := geo.Distance(d.Position, rest.Position)
	startBattery := d.Battery

	for i := 0; i < 50; i++ {
		w.updateDrone(d, 1.0)
		if d.State != StateFlyingToRestaurant {
			break
		}
	}

	if d.State == StateFlyingToRestaurant {
		if got := geo.Distance(d.Position, rest.Position); got >= startDist {
			t.Fatalf("distance grew: %v -> %v", startDist, got)
		}
	} else if d.State != StateWaitingForPickup {
		t.Fatalf("unexpected state %s", d.State)
	}
	if d.Battery >= startBattery {
		t.Fatal("flight did not drain battery")
	}
	if d.DistanceFlown == 0 {
		t.Fatal("no distance recorded")
	}
	if d.FlightTimeHours <= 0 {
		t.Fatal("no flight time recorded")
	}
}
