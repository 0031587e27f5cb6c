package world

import (
	"errors"
	"fmt"

	"skyfleet.ai/internal/energy"
	"skyfleet.ai/internal/protocol"
)

// RequestError carries a protocol error code alongside the message so
// transports can map failures without string matching.
type RequestError struct {
	Code string
	Msg  string
}

func (e *RequestError) Error() string { return e.Msg }

func reqErr(code, format string, args ...any) *RequestError {
	return &RequestError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// ErrCode extracts the protocol code from an error, E_INTERNAL otherwise.
func ErrCode(err error) string {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Code
	}
	return protocol.ErrInternal
}

type ctrlAction int

const (
	ctrlStart ctrlAction = iota
	ctrlPause
	ctrlResume
	ctrlSetSpeed
	ctrlSetScenario
	ctrlSetWeather
)

type ctrlReq struct {
	action   ctrlAction
	speed    float64
	scenario string
	weather  WeatherState
	resp     chan error
}

// CreateOrderRequest is a manual order placed from outside the loop.
type CreateOrderRequest struct {
	RestaurantID string
	CustomerID   string
	Items        []CreateOrderItem
	Priority     Priority
}

type CreateOrderItem struct {
	ItemID   string
	Quantity int
}

type createOrderReq struct {
	req  CreateOrderRequest
	resp chan createOrderResp
}

type createOrderResp struct {
	orderID string
	err     error
}

type cancelOrderReq struct {
	orderID string
	resp    chan error
}

type commandReq struct {
	droneID string
	command string
	resp    chan error
}

// Start begins advancing the simulation. Starting a running world is an error.
func (w *World) Start() error { return w.control(ctrlReq{action: ctrlStart}) }

// Pause freezes the clock; state is retained.
func (w *World) Pause() error { return w.control(ctrlReq{action: ctrlPause}) }

// Resume continues a paused world.
func (w *World) Resume() error { return w.control(ctrlReq{action: ctrlResume}) }

// SetSpeed changes the time multiplier. Out-of-range values are rejected.
func (w *World) SetSpeed(mult float64) error {
	return w.control(ctrlReq{action: ctrlSetSpeed, speed: mult})
}

// SetScenario switches the active scenario preset mid-run.
func (w *World) SetScenario(name string) error {
	return w.control(ctrlReq{action: ctrlSetScenario, scenario: name})
}

// SetWeather manually overrides the sim weather until the next SetScenario.
func (w *World) SetWeather(condition energy.Condition, impact float64) error {
	return w.control(ctrlReq{action: ctrlSetWeather, weather: WeatherState{
		Condition: condition,
		Impact:    impact,
		Manual:    true,
	}})
}

func (w *World) control(req ctrlReq) error {
	req.resp = make(chan error, 1)
	select {
	case w.ctrl <- req:
		return <-req.resp
	case <-w.stop:
		return reqErr(protocol.ErrNotRunning, "world stopped")
	}
}

// CreateOrder validates and enqueues a manual order, returning its id.
func (w *World) CreateOrder(req CreateOrderRequest) (string, error) {
	r := createOrderReq{req: req, resp: make(chan createOrderResp, 1)}
	select {
	case w.createOrder <- r:
		out := <-r.resp
		return out.orderID, out.err
	case <-w.stop:
		return "", reqErr(protocol.ErrNotRunning, "world stopped")
	}
}

// CancelOrder cancels a pending or assigned order.
func (w *World) CancelOrder(orderID string) error {
	r := cancelOrderReq{orderID: orderID, resp: make(chan error, 1)}
	select {
	case w.cancelOrd <- r:
		return <-r.resp
	case <-w.stop:
		return reqErr(protocol.ErrNotRunning, "world stopped")
	}
}

// CommandVehicle applies an operator override to one drone.
func (w *World) CommandVehicle(droneID, command string) error {
	r := commandReq{droneID: droneID, command: command, resp: make(chan error, 1)}
	select {
	case w.command <- r:
		return <-r.resp
	case <-w.stop:
		return reqErr(protocol.ErrNotRunning, "world stopped")
	}
}

// Subscribe registers a push client. The returned channel is owned by the
// world until Unsubscribe.
func (w *World) Subscribe(id string, topics []string) *Subscriber {
	sub := &Subscriber{
		ID:     id,
		Out:    make(chan []byte, w.cfg.SubscriberBuffer),
		Topics: map[string]bool{},
	}
	for _, t := range topics {
		sub.Topics[t] = true
	}
	select {
	case w.subscribe <- sub:
	case <-w.stop:
	}
	return sub
}

func (w *World) Unsubscribe(id string) {
	select {
	case w.unsubscribe <- id:
	case <-w.stop:
	}
}

func (w *World) handleControl(req ctrlReq) {
	var err error
	switch req.action {
	case ctrlStart:
		if w.running {
			err = reqErr(protocol.ErrInvalidState, "simulation already running")
			break
		}
		w.running = true
		w.paused = false
		w.addEvent("SIM_STARTED", "simulation started", "")
		w.log.Info().Str("scenario", w.scenario.Name).Msg("simulation started")
	case ctrlPause:
		if !w.running || w.paused {
			err = reqErr(protocol.ErrInvalidState, "simulation not running")
			break
		}
		w.paused = true
		w.addEvent("SIM_PAUSED", "simulation paused", "")
	case ctrlResume:
		if !w.running || !w.paused {
			err = reqErr(protocol.ErrInvalidState, "simulation not paused")
			break
		}
		w.paused = false
		w.addEvent("SIM_RESUMED", "simulation resumed", "")
	case ctrlSetSpeed:
		if req.speed < MinSpeedMultiplier || req.speed > MaxSpeedMultiplier {
			err = reqErr(protocol.ErrOutOfRange, "speed %.2f outside [%.1f, %.1f]",
				req.speed, MinSpeedMultiplier, MaxSpeedMultiplier)
			break
		}
		w.speed = req.speed
		w.addEvent("SPEED_CHANGED", fmt.Sprintf("speed multiplier set to %.2f", req.speed), "")
	case ctrlSetScenario:
		s, ok := w.cat.Scenario(req.scenario)
		if !ok {
			err = reqErr(protocol.ErrUnknownScenario, "unknown scenario %q", req.scenario)
			break
		}
		w.scenario = s
		w.weather = WeatherState{Condition: s.Weather, Impact: DefaultImpact(s.Weather)}
		w.addEvent("SCENARIO_CHANGED", "scenario set to "+s.Name, "")
		w.log.Info().Str("scenario", s.Name).Msg("scenario changed")
	case ctrlSetWeather:
		if !req.weather.Condition.Valid() {
			err = reqErr(protocol.ErrBadRequest, "unknown weather condition %q", req.weather.Condition)
			break
		}
		if req.weather.Impact < 0 || req.weather.Impact > 100 {
			err = reqErr(protocol.ErrOutOfRange, "weather impact %.1f outside [0, 100]", req.weather.Impact)
			break
		}
		w.weather = req.weather
		w.addEvent("WEATHER_CHANGED",
			fmt.Sprintf("weather set to %s impact %.0f", req.weather.Condition, req.weather.Impact), "")
	}
	if err == nil {
		w.publishSnapshot()
		w.broadcastWorldState()
	}
	req.resp <- err
}

func (w *World) handleCommand(req commandReq) {
	d, ok := w.drones[req.droneID]
	if !ok {
		req.resp <- reqErr(protocol.ErrInvalidReference, "unknown drone %s", req.droneID)
		return
	}
	var err error
	switch req.command {
	case protocol.CommandReturn:
		err = w.forceReturn(d)
	case protocol.CommandEmergencyLand:
		err = w.emergencyLand(d, "operator command")
	default:
		err = reqErr(protocol.ErrBadRequest, "unknown command %q", req.command)
	}
	req.resp <- err
}
