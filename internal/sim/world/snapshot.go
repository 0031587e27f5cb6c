package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"time"

	"skyfleet.ai/internal/geo"
)

// Snapshot is the immutable read model published after every tick. REST
// handlers and tests read it without touching the loop.
type Snapshot struct {
	WorldID  string
	Tick     uint64
	SimTime  time.Time
	Status   string
	Scenario string
	Speed    float64
	Seed     int64
	Weather  WeatherState

	Drones      []Drone
	Orders      []Order
	Kiosks      []Kiosk
	Restaurants []Restaurant
	Customers   []Customer
	Alerts      []Alert
	Events      []Event
	KPI         KPI
}

// Snapshot returns the most recently published state. Never nil after New.
func (w *World) Snapshot() *Snapshot {
	return w.latest.Load().(*Snapshot)
}

func (w *World) publishSnapshot() {
	s := &Snapshot{
		WorldID:  w.cfg.ID,
		Tick:     w.tick.Load(),
		SimTime:  w.simTime,
		Status:   w.status(),
		Scenario: w.scenario.Name,
		Speed:    w.speed,
		Seed:     w.cfg.Seed,
		Weather:  w.weather,
		KPI:      w.kpi,
	}

	s.Drones = make([]Drone, 0, len(w.droneIDs))
	for _, id := range w.droneIDs {
		d := *w.drones[id]
		d.Route = append([]geo.Position(nil), d.Route...)
		s.Drones = append(s.Drones, d)
	}

	s.Orders = make([]Order, 0, len(w.orderIDs))
	for _, id := range w.orderIDs {
		o := *w.orders[id]
		o.Items = append([]OrderItem(nil), o.Items...)
		o.Timeline = append([]TimelineEntry(nil), o.Timeline...)
		s.Orders = append(s.Orders, o)
	}

	s.Kiosks = make([]Kiosk, 0, len(w.kioskIDs))
	for _, id := range w.kioskIDs {
		k := *w.kiosks[id]
		k.ChargeQueue = append([]string(nil), k.ChargeQueue...)
		s.Kiosks = append(s.Kiosks, k)
	}

	for _, r := range w.cat.Fleet.Restaurants {
		s.Restaurants = append(s.Restaurants, *w.restaurants[r.ID])
	}
	for _, c := range w.cat.Fleet.Customers {
		s.Customers = append(s.Customers, *w.customers[c.ID])
	}

	s.Alerts = make([]Alert, 0, len(w.alerts))
	for _, a := range w.alerts {
		s.Alerts = append(s.Alerts, *a)
	}
	s.Events = w.events.list()

	w.latest.Store(s)
}

// stateDigest hashes the simulation state that must match between two runs
// with the same seed and inputs. Iteration is over sorted ids.
func (w *World) stateDigest() string {
	h := sha256.New()
	var tmp [8]byte

	writeU64 := func(v uint64) {
		binary.BigEndian.PutUint64(tmp[:], v)
		h.Write(tmp[:])
	}
	writeF64 := func(v float64) { writeU64(math.Float64bits(v)) }
	writeStr := func(s string) {
		writeU64(uint64(len(s)))
		h.Write([]byte(s))
	}

	writeU64(w.tick.Load())
	writeU64(uint64(w.cfg.Seed))
	writeU64(uint64(w.simTime.UnixNano()))
	writeStr(string(w.weather.Condition))
	writeF64(w.weather.Impact)
	writeStr(w.scenario.Name)
	writeF64(w.speed)

	for _, id := range w.droneIDs {
		d := w.drones[id]
		writeStr(d.ID)
		writeStr(string(d.State))
		writeF64(d.Battery)
		writeF64(d.Position.Lat)
		writeF64(d.Position.Lng)
		writeF64(d.Position.Altitude)
		writeF64(d.PayloadKg)
		writeF64(d.DistanceFlown)
		writeStr(d.OrderID)
		writeU64(uint64(d.DeliveriesDone))
	}

	for _, id := range w.orderIDs {
		o := w.orders[id]
		writeStr(o.ID)
		writeStr(string(o.Status))
		writeStr(string(o.Priority))
		writeStr(o.DroneID)
		writeF64(o.TotalWeight)
		writeU64(uint64(len(o.Timeline)))
	}

	k := w.kpi
	writeU64(uint64(k.TotalOrders))
	writeU64(uint64(k.DeliveredOrders))
	writeU64(uint64(k.FailedOrders))
	writeU64(uint64(k.CancelledOrders))
	writeF64(k.TotalRevenue)
	writeF64(k.TotalDistanceKm)
	writeU64(uint64(k.CollisionAlerts))
	writeU64(uint64(k.ZoneViolations))

	return hex.EncodeToString(h.Sum(nil))
}
