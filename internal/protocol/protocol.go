package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	// client -> server
	TypeHello          = "HELLO"
	TypeControl        = "CONTROL"
	TypeCreateOrder    = "CREATE_ORDER"
	TypeVehicleCommand = "VEHICLE_COMMAND"

	// server -> client
	TypeWelcome    = "WELCOME"
	TypeVehicles   = "VEHICLES"
	TypeOrders     = "ORDERS"
	TypeKPI        = "KPI"
	TypeAlert      = "ALERT"
	TypeWorldState = "WORLD_STATE"
	TypeAck        = "ACK"
	TypeError      = "ERROR"
)

// Control actions carried by a CONTROL message.
const (
	ActionStart       = "start"
	ActionPause       = "pause"
	ActionResume      = "resume"
	ActionSetSpeed    = "set_speed"
	ActionSetScenario = "set_scenario"
	ActionSetWeather  = "set_weather"
)

// Vehicle commands carried by a VEHICLE_COMMAND message.
const (
	CommandReturn        = "return"
	CommandEmergencyLand = "emergency_land"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
