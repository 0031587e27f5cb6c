package world

import (
	"fmt"
	"math/rand"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"skyfleet.ai/internal/energy"
	"skyfleet.ai/internal/geo"
	"skyfleet.ai/internal/sim/catalog"
)

// Router plans a flight path around restricted airspace. The default is the
// geometric detour router; the route optimizer can be swapped in.
type Router interface {
	Route(start, end geo.Position, zones []geo.NoFlyZone) []geo.Position
}

// RouterFunc adapts a plain function to Router.
type RouterFunc func(start, end geo.Position, zones []geo.NoFlyZone) []geo.Position

func (f RouterFunc) Route(start, end geo.Position, zones []geo.NoFlyZone) []geo.Position {
	return f(start, end, zones)
}

// TickLogger receives one entry per simulation tick. Implemented by the
// flight log writer; may be nil.
type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

// TickLogEntry is the per-tick flight record streamed to the log.
type TickLogEntry struct {
	Tick    uint64          `json:"tick"`
	SimTime time.Time       `json:"sim_time"`
	Drones  []DroneLogState `json:"drones"`
}

type DroneLogState struct {
	ID       string       `json:"id"`
	State    DroneState   `json:"state"`
	Battery  float64      `json:"battery"`
	Position geo.Position `json:"position"`
	OrderID  string       `json:"order_id,omitempty"`
}

// Index receives terminal orders and alerts for later querying. Implemented
// by the sqlite index; may be nil.
type Index interface {
	RecordOrder(o *Order) error
	RecordAlert(a *Alert) error
}

// MetricsRecorder receives simulation metrics. Implemented by the Prometheus
// collector; may be nil.
type MetricsRecorder interface {
	OrderCreated(priority string)
	OrderClosed(status string, deliveryMinutes float64)
	AlertRaised(kind string)
	ObserveTick(drones int, avgBattery float64, utilization float64, elapsed time.Duration)
}

// Subscriber is one push client. Out carries marshaled protocol frames; a
// slow client loses the oldest frame rather than stalling the loop.
type Subscriber struct {
	ID     string
	Out    chan []byte
	Topics map[string]bool // empty means all topics
}

func (s *Subscriber) wants(topic string) bool {
	if len(s.Topics) == 0 {
		return true
	}
	return s.Topics[topic]
}

// World is a single-threaded authoritative simulation. All state must be
// accessed only from the world loop goroutine; outside callers go through
// the request channels or the published snapshot.
type World struct {
	cfg WorldConfig
	cat *catalog.Catalog
	log zerolog.Logger

	rng  *rand.Rand
	tick atomic.Uint64

	simTime  time.Time
	running  bool
	paused   bool
	scenario catalog.Scenario
	speed    float64
	weather  WeatherState

	drones      map[string]*Drone
	droneIDs    []string
	orders      map[string]*Order
	orderIDs    []string
	kiosks      map[string]*Kiosk
	kioskIDs    []string
	restaurants map[string]*Restaurant
	customers   map[string]*Customer
	zones       []geo.NoFlyZone

	alerts []*Alert
	events *eventRing
	kpi    KPI

	// Delivery stats feeding the KPI averages.
	deliverySumMin  float64
	deliveredOnTime int

	orderSpawnAccum float64
	collisionSeen   map[string]time.Time

	nextOrderNum uint64
	nextAlertNum uint64
	nextEventNum uint64

	ctrl        chan ctrlReq
	createOrder chan createOrderReq
	cancelOrd   chan cancelOrderReq
	command     chan commandReq
	subscribe   chan *Subscriber
	unsubscribe chan string
	stop        chan struct{}

	subs map[string]*Subscriber

	latest atomic.Value // *Snapshot

	router     Router
	tickLogger TickLogger
	index      Index
	metrics    MetricsRecorder
}

// Option configures optional world collaborators.
type Option func(*World)

func WithRouter(r Router) Option           { return func(w *World) { w.router = r } }
func WithTickLogger(l TickLogger) Option   { return func(w *World) { w.tickLogger = l } }
func WithIndex(ix Index) Option            { return func(w *World) { w.index = ix } }
func WithMetrics(m MetricsRecorder) Option { return func(w *World) { w.metrics = m } }
func WithLogger(log zerolog.Logger) Option { return func(w *World) { w.log = log } }

// New builds a world from the catalog: one drone fleet spread across the
// kiosks, no orders, clock at the configured start time, stopped.
func New(cfg WorldConfig, cat *catalog.Catalog, opts ...Option) (*World, error) {
	cfg.applyDefaults()

	scenario, ok := cat.Scenario(cfg.Scenario)
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q", cfg.Scenario)
	}

	w := &World{
		cfg:      cfg,
		cat:      cat,
		log:      zerolog.Nop(),
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		simTime:  cfg.StartTime,
		scenario: scenario,
		speed:    cfg.SpeedMultiplier,
		weather: WeatherState{
			Condition: scenario.Weather,
			Impact:    DefaultImpact(scenario.Weather),
		},
		drones:      map[string]*Drone{},
		orders:      map[string]*Order{},
		kiosks:      map[string]*Kiosk{},
		restaurants: map[string]*Restaurant{},
		customers:   map[string]*Customer{},
		zones:       cat.Zones,

		events:        newEventRing(cfg.EventRingSize),
		collisionSeen: map[string]time.Time{},

		ctrl:        make(chan ctrlReq),
		createOrder: make(chan createOrderReq),
		cancelOrd:   make(chan cancelOrderReq),
		command:     make(chan commandReq),
		subscribe:   make(chan *Subscriber),
		unsubscribe: make(chan string),
		stop:        make(chan struct{}),
		subs:        map[string]*Subscriber{},

		router: RouterFunc(geo.Route),
	}

	for _, k := range cat.Fleet.Kiosks {
		w.kiosks[k.ID] = &Kiosk{
			ID:            k.ID,
			Name:          k.Name,
			Position:      k.Position,
			ChargingPads:  k.ChargingPads,
			AvailablePads: k.ChargingPads,
		}
		w.kioskIDs = append(w.kioskIDs, k.ID)
	}
	sort.Strings(w.kioskIDs)

	for _, r := range cat.Fleet.Restaurants {
		menu := make([]OrderItem, 0, len(r.Menu))
		for _, m := range r.Menu {
			menu = append(menu, OrderItem{ItemID: m.ID, Name: m.Name, WeightKg: m.WeightKg, Price: m.Price})
		}
		w.restaurants[r.ID] = &Restaurant{ID: r.ID, Name: r.Name, Position: r.Position, Menu: menu}
	}
	for _, c := range cat.Fleet.Customers {
		w.customers[c.ID] = &Customer{ID: c.ID, Name: c.Name, Position: c.Position}
	}

	spec := cat.Fleet.Drone
	n := 0
	for _, kid := range w.kioskIDs {
		seed := cat.Fleet.Kiosks
		var count int
		for _, k := range seed {
			if k.ID == kid {
				count = k.DroneCount
			}
		}
		for i := 0; i < count; i++ {
			n++
			d := &Drone{
				ID:           fmt.Sprintf("drone-%02d", n),
				State:        StateIdle,
				Battery:      80 + w.rng.Float64()*20,
				Position:     w.kiosks[kid].Position,
				MaxSpeedKmh:  spec.MaxSpeedKmh,
				MaxRangeKm:   spec.MaxRangeKm,
				MaxPayloadKg: spec.MaxPayloadKg,
				KioskID:      kid,
			}
			w.drones[d.ID] = d
			w.droneIDs = append(w.droneIDs, d.ID)
		}
	}
	sort.Strings(w.droneIDs)

	for _, opt := range opts {
		opt(w)
	}

	w.recomputeKPI()
	w.publishSnapshot()
	return w, nil
}

// DefaultImpact maps a condition to the impact used when no explicit value
// is given: worse weather starts at a higher impact.
func DefaultImpact(c energy.Condition) float64 {
	switch c {
	case energy.ConditionClear:
		return 0
	case energy.ConditionLightRain:
		return 30
	case energy.ConditionHeavyRain:
		return 60
	case energy.ConditionStrongWind:
		return 50
	case energy.ConditionStorm:
		return 90
	default:
		return 0
	}
}

func (w *World) ID() string      { return w.cfg.ID }
func (w *World) Seed() int64     { return w.cfg.Seed }
func (w *World) TickRateHz() int { return w.cfg.TickRateHz }

func (w *World) newOrderID() string {
	w.nextOrderNum++
	return fmt.Sprintf("order-%06d", w.nextOrderNum)
}

func (w *World) newAlertID() string {
	w.nextAlertNum++
	return fmt.Sprintf("alert-%06d", w.nextAlertNum)
}

func (w *World) newEventID() string {
	w.nextEventNum++
	return fmt.Sprintf("event-%06d", w.nextEventNum)
}

// dt is the simulated seconds covered by one tick at the current speed.
func (w *World) dt() float64 {
	return 1.0 / float64(w.cfg.TickRateHz) * w.speed
}

func (w *World) status() string {
	switch {
	case !w.running:
		return "STOPPED"
	case w.paused:
		return "PAUSED"
	default:
		return "RUNNING"
	}
}

func (w *World) addEvent(kind, message, entityID string) {
	w.events.add(Event{
		ID:       w.newEventID(),
		Tick:     w.tick.Load(),
		Kind:     kind,
		Message:  message,
		EntityID: entityID,
		At:       w.simTime,
	})
}

func sortedOrderIDs(orders map[string]*Order) []string {
	ids := make([]string, 0, len(orders))
	for id := range orders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
