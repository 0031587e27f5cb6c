package world

import (
	"time"

	"skyfleet.ai/internal/energy"
	"skyfleet.ai/internal/geo"
)

// DroneState is the flight controller state machine.
type DroneState string

const (
	StateIdle               DroneState = "IDLE"
	StateCharging           DroneState = "CHARGING"
	StateFlyingToRestaurant DroneState = "FLYING_TO_RESTAURANT"
	StateWaitingForPickup   DroneState = "WAITING_FOR_PICKUP"
	StateFlyingToCustomer   DroneState = "FLYING_TO_CUSTOMER"
	StateDelivering         DroneState = "DELIVERING"
	StateReturningToKiosk   DroneState = "RETURNING_TO_KIOSK"
	StateEmergencyLanding   DroneState = "EMERGENCY_LANDING"
	StateMaintenance        DroneState = "MAINTENANCE"
)

// Flying reports whether the drone is airborne and moving along a route.
func (s DroneState) Flying() bool {
	switch s {
	case StateFlyingToRestaurant, StateFlyingToCustomer, StateReturningToKiosk:
		return true
	}
	return false
}

// Busy reports whether the drone counts toward fleet utilization.
func (s DroneState) Busy() bool {
	switch s {
	case StateIdle, StateCharging, StateMaintenance:
		return false
	}
	return true
}

type Drone struct {
	ID       string
	State    DroneState
	Battery  float64 // percent
	Position geo.Position
	Heading  float64
	SpeedKmh float64

	MaxSpeedKmh  float64
	MaxRangeKm   float64
	MaxPayloadKg float64

	KioskID string
	OrderID string

	// Route the drone is flying, including current position interpolation
	// state. RouteLeg indexes the segment being flown.
	Route    []geo.Position
	RouteLeg int

	// BusyUntil holds the sim time a timed ground phase (delivery handoff)
	// completes. Zero when not in such a phase.
	BusyUntil time.Time

	PayloadKg       float64
	DistanceFlown   float64
	FlightTimeHours float64
	DeliveriesDone  int

	// InChargeQueue marks a drone parked at its kiosk waiting for a pad.
	InChargeQueue bool
}

// OrderStatus is the delivery lifecycle.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderAssigned  OrderStatus = "ASSIGNED"
	OrderPickedUp  OrderStatus = "PICKED_UP"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderFailed    OrderStatus = "FAILED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// Terminal reports whether the status ends the lifecycle.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderFailed || s == OrderCancelled
}

// Order priorities, highest first in assignment.
type Priority string

const (
	PriorityUrgent Priority = "URGENT"
	PriorityHigh   Priority = "HIGH"
	PriorityNormal Priority = "NORMAL"
	PriorityLow    Priority = "LOW"
)

func (p Priority) rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityNormal:
		return 2
	default:
		return 3
	}
}

type OrderItem struct {
	ItemID   string
	Name     string
	Quantity int
	WeightKg float64
	Price    float64
}

type TimelineEntry struct {
	Status OrderStatus
	At     time.Time
}

type Order struct {
	ID           string
	Status       OrderStatus
	Priority     Priority
	RestaurantID string
	CustomerID   string
	DroneID      string
	Items        []OrderItem
	TotalWeight  float64
	TotalPrice   float64
	CreatedAt    time.Time
	DeliveredAt  time.Time
	ETAMinutes   float64
	FailReason   string

	// Timeline is append-only; every status change adds an entry.
	Timeline []TimelineEntry
}

func minutesDuration(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}

var zeroTime time.Time

func (o *Order) setStatus(s OrderStatus, at time.Time) {
	o.Status = s
	o.Timeline = append(o.Timeline, TimelineEntry{Status: s, At: at})
}

type Kiosk struct {
	ID       string
	Name     string
	Position geo.Position

	ChargingPads  int
	AvailablePads int
	ChargeQueue   []string // drone ids waiting for a pad, FIFO
}

type Restaurant struct {
	ID       string
	Name     string
	Position geo.Position
	Menu     []OrderItem // quantity unused, serves as the item template
}

type Customer struct {
	ID       string
	Name     string
	Position geo.Position
}

// Alert kinds.
const (
	AlertCollisionRisk = "COLLISION_RISK"
	AlertZoneViolation = "ZONE_VIOLATION"
	AlertLowBattery    = "LOW_BATTERY"
	AlertEmergency     = "EMERGENCY_LANDING"
	AlertOrderFailed   = "ORDER_FAILED"
	AlertOrderDelayed  = "DELAYED_ORDER"
)

type Alert struct {
	ID        string
	Kind      string
	Severity  string
	Message   string
	DroneIDs  []string
	OrderID   string
	Position  *geo.Position
	CreatedAt time.Time
	Resolved  bool
}

// mentions reports whether the alert concerns the given drone or order id.
func (a *Alert) mentions(entityID string) bool {
	if a.OrderID == entityID {
		return true
	}
	for _, id := range a.DroneIDs {
		if id == entityID {
			return true
		}
	}
	return false
}

type Event struct {
	ID       string
	Tick     uint64
	Kind     string
	Message  string
	EntityID string
	At       time.Time
}

// WeatherState is the sim weather the whole fleet flies under.
type WeatherState struct {
	Condition energy.Condition
	Impact    float64 // 0..100
	Manual    bool    // set by operator, scenario changes no longer touch it
}

// KPI is the rolled-up fleet and order statistics, recomputed every tick.
type KPI struct {
	TotalOrders     int
	DeliveredOrders int
	FailedOrders    int
	CancelledOrders int
	PendingOrders   int
	ActiveOrders    int

	AvgDeliveryMinutes float64
	OnTimeRate         float64
	TotalRevenue       float64

	FleetUtilization  float64
	AvgBattery        float64
	ActiveDrones      int
	ChargingDrones    int
	MaintenanceDrones int
	TotalDistanceKm   float64

	CollisionAlerts int
	ZoneViolations  int

	UnresolvedCritical int
	UnresolvedWarning  int
	UnresolvedInfo     int
}
