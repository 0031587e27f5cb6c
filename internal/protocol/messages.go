package protocol

import (
	"time"

	"skyfleet.ai/internal/geo"
)

// HELLO (client -> server)
type HelloMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	ClientName      string   `json:"client_name,omitempty"`
	Subscriptions   []string `json:"subscriptions,omitempty"` // message types to push, empty means all
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	SessionID       string    `json:"session_id"`
	Seed            int64     `json:"seed"`
	TickRateHz      int       `json:"tick_rate_hz"`
	Scenario        string    `json:"scenario"`
	SimTime         time.Time `json:"sim_time"`
}

// CONTROL (client -> server): start/pause/resume and parameter changes.
// Speed must be present for set_speed, Scenario for set_scenario and
// Weather for set_weather.
type ControlMsg struct {
	Type      string        `json:"type"`
	RequestID string        `json:"request_id,omitempty"`
	Action    string        `json:"action"`
	Speed     *float64      `json:"speed,omitempty"`
	Scenario  string        `json:"scenario,omitempty"`
	Weather   *WeatherPatch `json:"weather,omitempty"`
}

// WeatherPatch is a manual weather override. Impact is 0..100.
type WeatherPatch struct {
	Condition string   `json:"condition"`
	Impact    *float64 `json:"impact,omitempty"`
}

// CREATE_ORDER (client -> server)
type CreateOrderMsg struct {
	Type         string         `json:"type"`
	RequestID    string         `json:"request_id,omitempty"`
	RestaurantID string         `json:"restaurant_id"`
	CustomerID   string         `json:"customer_id"`
	Items        []OrderItemRef `json:"items"`
	Priority     string         `json:"priority,omitempty"`
}

type OrderItemRef struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// VEHICLE_COMMAND (client -> server): operator override for one drone.
type VehicleCommandMsg struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	VehicleID string `json:"vehicle_id"`
	Command   string `json:"command"`
}

type AckMsg struct {
	Type      string `json:"type"`
	AckFor    string `json:"ack_for"`
	RequestID string `json:"request_id,omitempty"`
	Accepted  bool   `json:"accepted"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
	EntityID  string `json:"entity_id,omitempty"` // id of a created order etc.
}

type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// VEHICLES (server -> client): full fleet state, pushed every broadcast tick.
type VehiclesMsg struct {
	Type     string        `json:"type"`
	Tick     uint64        `json:"tick"`
	SimTime  time.Time     `json:"sim_time"`
	Vehicles []VehicleBody `json:"vehicles"`
}

type VehicleBody struct {
	ID              string         `json:"id"`
	State           string         `json:"state"`
	Battery         float64        `json:"battery"`
	Position        geo.Position   `json:"position"`
	SpeedKmh        float64        `json:"speed_kmh"`
	Heading         float64        `json:"heading"`
	PayloadKg       float64        `json:"payload_kg"`
	KioskID         string         `json:"kiosk_id"`
	OrderID         string         `json:"order_id,omitempty"`
	Route           []geo.Position `json:"route,omitempty"`
	DistanceFlown   float64        `json:"distance_flown_km"`
	FlightTimeHours float64        `json:"flight_time_hours"`
	DeliveriesDone  int            `json:"deliveries_done"`
}

// ORDERS (server -> client)
type OrdersMsg struct {
	Type    string      `json:"type"`
	Tick    uint64      `json:"tick"`
	SimTime time.Time   `json:"sim_time"`
	Orders  []OrderBody `json:"orders"`
}

type OrderBody struct {
	ID           string          `json:"id"`
	Status       string          `json:"status"`
	Priority     string          `json:"priority"`
	RestaurantID string          `json:"restaurant_id"`
	CustomerID   string          `json:"customer_id"`
	DroneID      string          `json:"drone_id,omitempty"`
	Items        []OrderItem     `json:"items"`
	TotalWeight  float64         `json:"total_weight_kg"`
	TotalPrice   float64         `json:"total_price"`
	CreatedAt    time.Time       `json:"created_at"`
	ETAMinutes   float64         `json:"eta_minutes,omitempty"`
	Timeline     []TimelineEntry `json:"timeline"`
}

type OrderItem struct {
	ItemID   string  `json:"item_id"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	WeightKg float64 `json:"weight_kg"`
	Price    float64 `json:"price"`
}

type TimelineEntry struct {
	Status string    `json:"status"`
	At     time.Time `json:"at"`
}

// KPI (server -> client)
type KPIMsg struct {
	Type    string    `json:"type"`
	Tick    uint64    `json:"tick"`
	SimTime time.Time `json:"sim_time"`
	KPI     KPIBody   `json:"kpi"`
}

type KPIBody struct {
	TotalOrders        int     `json:"total_orders"`
	DeliveredOrders    int     `json:"delivered_orders"`
	FailedOrders       int     `json:"failed_orders"`
	CancelledOrders    int     `json:"cancelled_orders"`
	PendingOrders      int     `json:"pending_orders"`
	ActiveOrders       int     `json:"active_orders"`
	AvgDeliveryMinutes float64 `json:"avg_delivery_minutes"`
	OnTimeRate         float64 `json:"on_time_rate"`
	TotalRevenue       float64 `json:"total_revenue"`
	FleetUtilization   float64 `json:"fleet_utilization"`
	AvgBattery         float64 `json:"avg_battery"`
	ActiveDrones       int     `json:"active_drones"`
	ChargingDrones     int     `json:"charging_drones"`
	MaintenanceDrones  int     `json:"maintenance_drones"`
	TotalDistanceKm    float64 `json:"total_distance_km"`
	CollisionAlerts    int     `json:"collision_alerts"`
	ZoneViolations     int     `json:"zone_violations"`
	UnresolvedCritical int     `json:"unresolved_critical"`
	UnresolvedWarning  int     `json:"unresolved_warning"`
	UnresolvedInfo     int     `json:"unresolved_info"`
}

// ALERT (server -> client): pushed as alerts fire, not batched.
type AlertMsg struct {
	Type  string    `json:"type"`
	Alert AlertBody `json:"alert"`
}

type AlertBody struct {
	ID        string        `json:"id"`
	Kind      string        `json:"kind"`
	Severity  string        `json:"severity"`
	Message   string        `json:"message"`
	DroneIDs  []string      `json:"drone_ids,omitempty"`
	OrderID   string        `json:"order_id,omitempty"`
	Position  *geo.Position `json:"position,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	Resolved  bool          `json:"resolved"`
}

// WORLD_STATE (server -> client)
type WorldStateMsg struct {
	Type  string         `json:"type"`
	State WorldStateBody `json:"state"`
}

type WorldStateBody struct {
	Status          string      `json:"status"` // RUNNING, PAUSED, STOPPED
	Tick            uint64      `json:"tick"`
	SimTime         time.Time   `json:"sim_time"`
	Scenario        string      `json:"scenario"`
	SpeedMultiplier float64     `json:"speed_multiplier"`
	Seed            int64       `json:"seed"`
	Weather         WeatherBody `json:"weather"`
}

type WeatherBody struct {
	Condition string  `json:"condition"`
	Impact    float64 `json:"impact"`
}
