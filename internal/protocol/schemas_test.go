package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	reject := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err == nil {
			t.Fatal("invalid sample accepted")
		}
	}

	decode := func(raw string) any {
		t.Helper()
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			t.Fatalf("sample json: %v", err)
		}
		return v
	}

	helloSchema := compile("hello.schema.json")
	controlSchema := compile("control.schema.json")
	createOrderSchema := compile("create_order.schema.json")
	vehicleCommandSchema := compile("vehicle_command.schema.json")
	welcomeSchema := compile("welcome.schema.json")
	errorSchema := compile("error.schema.json")

	validate(helloSchema, decode(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "client_name":"dashboard",
	  "subscriptions":["VEHICLES","KPI"]
	}`))

	validate(controlSchema, decode(`{
	  "type":"CONTROL",
	  "request_id":"r1",
	  "action":"set_speed",
	  "speed":2.0
	}`))
	// set_speed without a speed value must fail.
	reject(controlSchema, decode(`{
	  "type":"CONTROL",
	  "action":"set_speed"
	}`))
	validate(controlSchema, decode(`{
	  "type":"CONTROL",
	  "action":"set_weather",
	  "weather":{"condition":"STORM","impact":80}
	}`))
	reject(controlSchema, decode(`{
	  "type":"CONTROL",
	  "action":"set_weather",
	  "weather":{"condition":"SIDEWAYS_HAIL"}
	}`))

	validate(createOrderSchema, decode(`{
	  "type":"CREATE_ORDER",
	  "request_id":"r2",
	  "restaurant_id":"rest-1",
	  "customer_id":"customer-4",
	  "items":[{"item_id":"rest-1-item-1","quantity":2}],
	  "priority":"HIGH"
	}`))
	reject(createOrderSchema, decode(`{
	  "type":"CREATE_ORDER",
	  "restaurant_id":"rest-1",
	  "customer_id":"customer-4",
	  "items":[]
	}`))

	validate(vehicleCommandSchema, decode(`{
	  "type":"VEHICLE_COMMAND",
	  "vehicle_id":"drone-03",
	  "command":"return"
	}`))
	reject(vehicleCommandSchema, decode(`{
	  "type":"VEHICLE_COMMAND",
	  "vehicle_id":"drone-03",
	  "command":"self_destruct"
	}`))

	validate(welcomeSchema, decode(`{
	  "type":"WELCOME",
	  "protocol_version":"1.0",
	  "session_id":"s-1",
	  "seed":1337,
	  "tick_rate_hz":10,
	  "scenario":"NORMAL",
	  "sim_time":"2026-01-01T00:00:00Z"
	}`))

	validate(errorSchema, decode(`{
	  "type":"ERROR",
	  "code":"E_INVALID_REFERENCE",
	  "message":"unknown restaurant rest-99"
	}`))
}
