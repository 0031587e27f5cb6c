package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"skyfleet.ai/internal/energy"
	"skyfleet.ai/internal/geo"
	"skyfleet.ai/internal/persistence/indexdb"
	"skyfleet.ai/internal/protocol"
	"skyfleet.ai/internal/routeopt"
	"skyfleet.ai/internal/sim/catalog"
	"skyfleet.ai/internal/sim/world"
	"skyfleet.ai/internal/weather"
)

// Default query location, central Delhi.
const (
	defaultLat = 28.6139
	defaultLng = 77.2090
)

type api struct {
	world *world.World
	opt   *routeopt.Optimizer
	idx   *indexdb.SQLiteIndex
	cat   *catalog.Catalog
	log   zerolog.Logger
}

func (a *api) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/drones", a.handleDrones)
	mux.HandleFunc("GET /api/drones/{id}", a.handleDrone)
	mux.HandleFunc("POST /api/drones/{id}/command", a.handleDroneCommand)
	mux.HandleFunc("GET /api/kiosks", a.handleKiosks)
	mux.HandleFunc("GET /api/restaurants", a.handleRestaurants)
	mux.HandleFunc("GET /api/customers", a.handleCustomers)
	mux.HandleFunc("GET /api/orders", a.handleOrders)
	mux.HandleFunc("GET /api/orders/{id}", a.handleOrder)
	mux.HandleFunc("POST /api/orders", a.handleCreateOrder)
	mux.HandleFunc("DELETE /api/orders/{id}", a.handleCancelOrder)
	mux.HandleFunc("GET /api/zones", a.handleZones)
	mux.HandleFunc("GET /api/alerts", a.handleAlerts)
	mux.HandleFunc("GET /api/events", a.handleEvents)
	mux.HandleFunc("GET /api/kpi", a.handleKPI)
	mux.HandleFunc("GET /api/state", a.handleState)
	mux.HandleFunc("GET /api/scenarios", a.handleScenarios)
	mux.HandleFunc("GET /api/weather", a.handleWeather)
	mux.HandleFunc("GET /api/weather/restrictions", a.handleWeatherRestrictions)
	mux.HandleFunc("GET /api/routes/compare", a.handleRouteCompare)
	mux.HandleFunc("POST /api/routes/train", a.handleRouteTrain)
	mux.HandleFunc("GET /api/routes/status", a.handleRouteStatus)
	mux.HandleFunc("POST /api/simulation/start", a.control(func() error { return a.world.Start() }))
	mux.HandleFunc("POST /api/simulation/pause", a.control(func() error { return a.world.Pause() }))
	mux.HandleFunc("POST /api/simulation/resume", a.control(func() error { return a.world.Resume() }))
	mux.HandleFunc("POST /api/simulation/speed", a.handleSetSpeed)
	mux.HandleFunc("POST /api/simulation/scenario", a.handleSetScenario)
	mux.HandleFunc("POST /api/simulation/weather", a.handleSetWeather)
	if a.idx != nil {
		mux.HandleFunc("GET /api/history/orders", a.handleOrderHistory)
		mux.HandleFunc("GET /api/history/alerts", a.handleAlertHistory)
	}
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeErr maps protocol error codes onto HTTP statuses.
func writeErr(rw http.ResponseWriter, err error) {
	code := world.ErrCode(err)
	status := http.StatusBadRequest
	switch code {
	case protocol.ErrInvalidReference:
		status = http.StatusNotFound
	case protocol.ErrInvalidState, protocol.ErrNotRunning:
		status = http.StatusConflict
	case protocol.ErrOverloaded:
		status = http.StatusServiceUnavailable
	case protocol.ErrInternal:
		status = http.StatusInternalServerError
	}
	writeJSON(rw, status, apiError{Code: code, Message: err.Error()})
}

func (a *api) handleDrones(rw http.ResponseWriter, r *http.Request) {
	snap := a.world.Snapshot()
	out := make([]protocol.VehicleBody, 0, len(snap.Drones))
	for i := range snap.Drones {
		out = append(out, vehicleBody(&snap.Drones[i]))
	}
	writeJSON(rw, http.StatusOK, out)
}

func (a *api) handleDrone(rw http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snap := a.world.Snapshot()
	for i := range snap.Drones {
		if snap.Drones[i].ID == id {
			writeJSON(rw, http.StatusOK, vehicleBody(&snap.Drones[i]))
			return
		}
	}
	writeErr(rw, &world.RequestError{Code: protocol.ErrInvalidReference, Msg: "unknown drone " + id})
}

func (a *api) handleDroneCommand(rw http.ResponseWriter, r *http.Request) {
	var body struct {
		Command string `json:"command"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(rw, &world.RequestError{Code: protocol.ErrBadRequest, Msg: "malformed body"})
		return
	}
	if err := a.world.CommandVehicle(r.PathValue("id"), body.Command); err != nil {
		writeErr(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]bool{"ok": true})
}

func (a *api) handleKiosks(rw http.ResponseWriter, r *http.Request) {
	snap := a.world.Snapshot()
	type kioskBody struct {
		ID            string       `json:"id"`
		Name          string       `json:"name"`
		Position      geo.Position `json:"position"`
		ChargingPads  int          `json:"charging_pads"`
		AvailablePads int          `json:"available_pads"`
		ChargeQueue   []string     `json:"charge_queue"`
	}
	out := make([]kioskBody, 0, len(snap.Kiosks))
	for _, k := range snap.Kiosks {
		out = append(out, kioskBody{
			ID:            k.ID,
			Name:          k.Name,
			Position:      k.Position,
			ChargingPads:  k.ChargingPads,
			AvailablePads: k.AvailablePads,
			ChargeQueue:   k.ChargeQueue,
		})
	}
	writeJSON(rw, http.StatusOK, out)
}

func (a *api) handleRestaurants(rw http.ResponseWriter, r *http.Request) {
	snap := a.world.Snapshot()
	type restaurantBody struct {
		ID       string               `json:"id"`
		Name     string               `json:"name"`
		Position geo.Position         `json:"position"`
		Menu     []protocol.OrderItem `json:"menu"`
	}
	out := make([]restaurantBody, 0, len(snap.Restaurants))
	for _, rest := range snap.Restaurants {
		b := restaurantBody{ID: rest.ID, Name: rest.Name, Position: rest.Position}
		for _, it := range rest.Menu {
			b.Menu = append(b.Menu, protocol.OrderItem{
				ItemID:   it.ItemID,
				Name:     it.Name,
				WeightKg: it.WeightKg,
				Price:    it.Price,
			})
		}
		out = append(out, b)
	}
	writeJSON(rw, http.StatusOK, out)
}

func (a *api) handleCustomers(rw http.ResponseWriter, r *http.Request) {
	snap := a.world.Snapshot()
	type customerBody struct {
		ID       string       `json:"id"`
		Name     string       `json:"name"`
		Position geo.Position `json:"position"`
	}
	out := make([]customerBody, 0, len(snap.Customers))
	for _, c := range snap.Customers {
		out = append(out, customerBody{ID: c.ID, Name: c.Name, Position: c.Position})
	}
	writeJSON(rw, http.StatusOK, out)
}

func (a *api) handleOrders(rw http.ResponseWriter, r *http.Request) {
	snap := a.world.Snapshot()
	status := r.URL.Query().Get("status")
	out := make([]protocol.OrderBody, 0, len(snap.Orders))
	for i := range snap.Orders {
		if status != "" && string(snap.Orders[i].Status) != status {
			continue
		}
		out = append(out, orderBody(&snap.Orders[i]))
	}
	writeJSON(rw, http.StatusOK, out)
}

func (a *api) handleOrder(rw http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snap := a.world.Snapshot()
	for i := range snap.Orders {
		if snap.Orders[i].ID == id {
			writeJSON(rw, http.StatusOK, orderBody(&snap.Orders[i]))
			return
		}
	}
	writeErr(rw, &world.RequestError{Code: protocol.ErrInvalidReference, Msg: "unknown order " + id})
}

func (a *api) handleCreateOrder(rw http.ResponseWriter, r *http.Request) {
	var body struct {
		RestaurantID string `json:"restaurant_id"`
		CustomerID   string `json:"customer_id"`
		Items        []struct {
			ItemID   string `json:"item_id"`
			Quantity int    `json:"quantity"`
		} `json:"items"`
		Priority string `json:"priority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(rw, &world.RequestError{Code: protocol.ErrBadRequest, Msg: "malformed body"})
		return
	}
	req := world.CreateOrderRequest{
		RestaurantID: body.RestaurantID,
		CustomerID:   body.CustomerID,
		Priority:     world.Priority(body.Priority),
	}
	for _, it := range body.Items {
		req.Items = append(req.Items, world.CreateOrderItem{ItemID: it.ItemID, Quantity: it.Quantity})
	}
	orderID, err := a.world.CreateOrder(req)
	if err != nil {
		writeErr(rw, err)
		return
	}
	writeJSON(rw, http.StatusCreated, map[string]string{"id": orderID})
}

func (a *api) handleCancelOrder(rw http.ResponseWriter, r *http.Request) {
	if err := a.world.CancelOrder(r.PathValue("id")); err != nil {
		writeErr(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]bool{"ok": true})
}

func (a *api) handleZones(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, a.cat.Zones)
}

func (a *api) handleAlerts(rw http.ResponseWriter, r *http.Request) {
	snap := a.world.Snapshot()
	out := make([]protocol.AlertBody, 0, len(snap.Alerts))
	for _, al := range snap.Alerts {
		out = append(out, protocol.AlertBody{
			ID:        al.ID,
			Kind:      al.Kind,
			Severity:  al.Severity,
			Message:   al.Message,
			DroneIDs:  al.DroneIDs,
			OrderID:   al.OrderID,
			Position:  al.Position,
			CreatedAt: al.CreatedAt,
			Resolved:  al.Resolved,
		})
	}
	writeJSON(rw, http.StatusOK, out)
}

func (a *api) handleEvents(rw http.ResponseWriter, r *http.Request) {
	snap := a.world.Snapshot()
	type eventBody struct {
		ID       string `json:"id"`
		Tick     uint64 `json:"tick"`
		Kind     string `json:"kind"`
		Message  string `json:"message"`
		EntityID string `json:"entity_id,omitempty"`
		At       string `json:"at"`
	}
	out := make([]eventBody, 0, len(snap.Events))
	for _, e := range snap.Events {
		out = append(out, eventBody{
			ID:       e.ID,
			Tick:     e.Tick,
			Kind:     e.Kind,
			Message:  e.Message,
			EntityID: e.EntityID,
			At:       e.At.Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}
	writeJSON(rw, http.StatusOK, out)
}

func (a *api) handleKPI(rw http.ResponseWriter, r *http.Request) {
	snap := a.world.Snapshot()
	writeJSON(rw, http.StatusOK, kpiBody(snap.KPI))
}

func (a *api) handleState(rw http.ResponseWriter, r *http.Request) {
	snap := a.world.Snapshot()
	writeJSON(rw, http.StatusOK, protocol.WorldStateBody{
		Status:          snap.Status,
		Tick:            snap.Tick,
		SimTime:         snap.SimTime,
		Scenario:        snap.Scenario,
		SpeedMultiplier: snap.Speed,
		Seed:            snap.Seed,
		Weather: protocol.WeatherBody{
			Condition: string(snap.Weather.Condition),
			Impact:    snap.Weather.Impact,
		},
	})
}

func (a *api) handleScenarios(rw http.ResponseWriter, r *http.Request) {
	names := a.cat.ScenarioNames()
	out := make([]catalog.Scenario, 0, len(names))
	for _, n := range names {
		s, _ := a.cat.Scenario(n)
		out = append(out, s)
	}
	writeJSON(rw, http.StatusOK, out)
}

func (a *api) simWeather(r *http.Request) (weather.Data, float64) {
	snap := a.world.Snapshot()
	lat := queryFloat(r, "lat", defaultLat)
	lng := queryFloat(r, "lng", defaultLng)
	return weather.FromCondition(snap.Weather.Condition, snap.Weather.Impact, lat, lng, snap.SimTime), snap.Weather.Impact
}

func (a *api) handleWeather(rw http.ResponseWriter, r *http.Request) {
	data, _ := a.simWeather(r)
	writeJSON(rw, http.StatusOK, data)
}

func (a *api) handleWeatherRestrictions(rw http.ResponseWriter, r *http.Request) {
	data, impact := a.simWeather(r)
	writeJSON(rw, http.StatusOK, map[string]any{
		"weather":      data,
		"restrictions": weather.ForRestrictions(data, impact),
		"impact":       weather.Analyze(data, impact),
	})
}

func (a *api) handleRouteCompare(rw http.ResponseWriter, r *http.Request) {
	from, to, err := routeEndpoints(r)
	if err != nil {
		writeErr(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, a.opt.Compare(from, to, a.cat.Zones))
}

func (a *api) handleRouteTrain(rw http.ResponseWriter, r *http.Request) {
	var body struct {
		Epochs int `json:"epochs"`
	}
	// Body is optional; a bare POST trains with defaults.
	_ = json.NewDecoder(r.Body).Decode(&body)
	if !a.opt.Train(body.Epochs, a.cat.Zones) {
		writeErr(rw, &world.RequestError{Code: protocol.ErrInvalidState, Msg: "training already in progress"})
		return
	}
	writeJSON(rw, http.StatusAccepted, map[string]any{"message": "training started"})
}

func (a *api) handleRouteStatus(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, a.opt.Status())
}

func (a *api) control(f func() error) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if err := f(); err != nil {
			writeErr(rw, err)
			return
		}
		writeJSON(rw, http.StatusOK, map[string]bool{"ok": true})
	}
}

func (a *api) handleSetSpeed(rw http.ResponseWriter, r *http.Request) {
	var body struct {
		Speed float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(rw, &world.RequestError{Code: protocol.ErrBadRequest, Msg: "malformed body"})
		return
	}
	if err := a.world.SetSpeed(body.Speed); err != nil {
		writeErr(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]bool{"ok": true})
}

func (a *api) handleSetScenario(rw http.ResponseWriter, r *http.Request) {
	var body struct {
		Scenario string `json:"scenario"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(rw, &world.RequestError{Code: protocol.ErrBadRequest, Msg: "malformed body"})
		return
	}
	if err := a.world.SetScenario(body.Scenario); err != nil {
		writeErr(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]bool{"ok": true})
}

func (a *api) handleSetWeather(rw http.ResponseWriter, r *http.Request) {
	var body struct {
		Condition string   `json:"condition"`
		Impact    *float64 `json:"impact"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(rw, &world.RequestError{Code: protocol.ErrBadRequest, Msg: "malformed body"})
		return
	}
	cond := energy.Condition(body.Condition)
	impact := world.DefaultImpact(cond)
	if body.Impact != nil {
		impact = *body.Impact
	}
	if err := a.world.SetWeather(cond, impact); err != nil {
		writeErr(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]bool{"ok": true})
}

func (a *api) handleOrderHistory(rw http.ResponseWriter, r *http.Request) {
	rows, err := a.idx.Orders(r.URL.Query().Get("status"), queryInt(r, "limit", 0))
	if err != nil {
		writeErr(rw, err)
		return
	}
	if rows == nil {
		rows = []indexdb.OrderRecord{}
	}
	writeJSON(rw, http.StatusOK, rows)
}

func (a *api) handleAlertHistory(rw http.ResponseWriter, r *http.Request) {
	rows, err := a.idx.Alerts(queryInt(r, "limit", 0))
	if err != nil {
		writeErr(rw, err)
		return
	}
	if rows == nil {
		rows = []indexdb.AlertRecord{}
	}
	writeJSON(rw, http.StatusOK, rows)
}

func routeEndpoints(r *http.Request) (from, to geo.Position, err error) {
	q := r.URL.Query()
	for _, key := range []string{"from_lat", "from_lng", "to_lat", "to_lng"} {
		if q.Get(key) == "" {
			return from, to, &world.RequestError{Code: protocol.ErrBadRequest, Msg: "missing " + key}
		}
	}
	from = geo.Position{Lat: queryFloat(r, "from_lat", 0), Lng: queryFloat(r, "from_lng", 0)}
	to = geo.Position{Lat: queryFloat(r, "to_lat", 0), Lng: queryFloat(r, "to_lng", 0)}
	return from, to, nil
}

func queryFloat(r *http.Request, key string, def float64) float64 {
	if s := r.URL.Query().Get(key); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v
		}
	}
	return def
}

func queryInt(r *http.Request, key string, def int) int {
	if s := r.URL.Query().Get(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			return v
		}
	}
	return def
}

func vehicleBody(d *world.Drone) protocol.VehicleBody {
	return protocol.VehicleBody{
		ID:              d.ID,
		State:           string(d.State),
		Battery:         d.Battery,
		Position:        d.Position,
		SpeedKmh:        d.SpeedKmh,
		Heading:         d.Heading,
		PayloadKg:       d.PayloadKg,
		KioskID:         d.KioskID,
		OrderID:         d.OrderID,
		Route:           d.Route,
		DistanceFlown:   d.DistanceFlown,
		FlightTimeHours: d.FlightTimeHours,
		DeliveriesDone:  d.DeliveriesDone,
	}
}

func orderBody(o *world.Order) protocol.OrderBody {
	body := protocol.OrderBody{
		ID:           o.ID,
		Status:       string(o.Status),
		Priority:     string(o.Priority),
		RestaurantID: o.RestaurantID,
		CustomerID:   o.CustomerID,
		DroneID:      o.DroneID,
		TotalWeight:  o.TotalWeight,
		TotalPrice:   o.TotalPrice,
		CreatedAt:    o.CreatedAt,
		ETAMinutes:   o.ETAMinutes,
	}
	for _, it := range o.Items {
		body.Items = append(body.Items, protocol.OrderItem{
			ItemID:   it.ItemID,
			Name:     it.Name,
			Quantity: it.Quantity,
			WeightKg: it.WeightKg,
			Price:    it.Price,
		})
	}
	for _, entry := range o.Timeline {
		body.Timeline = append(body.Timeline, protocol.TimelineEntry{
			Status: string(entry.Status),
			At:     entry.At,
		})
	}
	return body
}

func kpiBody(k world.KPI) protocol.KPIBody {
	return protocol.KPIBody{
		TotalOrders:        k.TotalOrders,
		DeliveredOrders:    k.DeliveredOrders,
		FailedOrders:       k.FailedOrders,
		CancelledOrders:    k.CancelledOrders,
		PendingOrders:      k.PendingOrders,
		ActiveOrders:       k.ActiveOrders,
		AvgDeliveryMinutes: k.AvgDeliveryMinutes,
		OnTimeRate:         k.OnTimeRate,
		TotalRevenue:       k.TotalRevenue,
		FleetUtilization:   k.FleetUtilization,
		AvgBattery:         k.AvgBattery,
		ActiveDrones:       k.ActiveDrones,
		ChargingDrones:     k.ChargingDrones,
		MaintenanceDrones:  k.MaintenanceDrones,
		TotalDistanceKm:    k.TotalDistanceKm,
		CollisionAlerts:    k.CollisionAlerts,
		ZoneViolations:     k.ZoneViolations,
		UnresolvedCritical: k.UnresolvedCritical,
		UnresolvedWarning:  k.UnresolvedWarning,
		UnresolvedInfo:     k.UnresolvedInfo,
	}
}
