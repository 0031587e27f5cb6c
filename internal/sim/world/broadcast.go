package world

import (
	"encoding/json"

	"skyfleet.ai/internal/protocol"
)

// greet sends WELCOME and an immediate WORLD_STATE to a new subscriber.
func (w *World) greet(sub *Subscriber) {
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sub.ID,
		Seed:            w.cfg.Seed,
		TickRateHz:      w.cfg.TickRateHz,
		Scenario:        w.scenario.Name,
		SimTime:         w.simTime,
	}
	if b, err := json.Marshal(welcome); err == nil {
		sendLatest(sub.Out, b)
	}
	if b, err := json.Marshal(w.worldStateMsg()); err == nil {
		sendLatest(sub.Out, b)
	}
}

// broadcastState pushes the periodic fleet, order and KPI frames.
func (w *World) broadcastState(tick uint64) {
	if len(w.subs) == 0 {
		return
	}

	frames := map[string][]byte{}
	marshal := func(topic string, v any) {
		b, err := json.Marshal(v)
		if err != nil {
			w.log.Error().Err(err).Str("topic", topic).Msg("marshal push frame")
			return
		}
		frames[topic] = b
	}

	marshal(protocol.TypeVehicles, w.vehiclesMsg(tick))
	marshal(protocol.TypeOrders, w.ordersMsg(tick))
	marshal(protocol.TypeKPI, w.kpiMsg(tick))
	marshal(protocol.TypeWorldState, w.worldStateMsg())

	for _, sub := range w.subs {
		for topic, b := range frames {
			if sub.wants(topic) {
				sendLatest(sub.Out, b)
			}
		}
	}
}

// broadcastWorldState pushes just the control-plane state, used after
// control changes so clients see pause/speed/weather updates immediately.
func (w *World) broadcastWorldState() {
	b, err := json.Marshal(w.worldStateMsg())
	if err != nil {
		return
	}
	for _, sub := range w.subs {
		if sub.wants(protocol.TypeWorldState) {
			sendLatest(sub.Out, b)
		}
	}
}

func (w *World) broadcastAlert(a *Alert) {
	msg := protocol.AlertMsg{
		Type: protocol.TypeAlert,
		Alert: protocol.AlertBody{
			ID:        a.ID,
			Kind:      a.Kind,
			Severity:  a.Severity,
			Message:   a.Message,
			DroneIDs:  a.DroneIDs,
			OrderID:   a.OrderID,
			Position:  a.Position,
			CreatedAt: a.CreatedAt,
			Resolved:  a.Resolved,
		},
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	for _, sub := range w.subs {
		if sub.wants(protocol.TypeAlert) {
			sendLatest(sub.Out, b)
		}
	}
}

func (w *World) vehiclesMsg(tick uint64) protocol.VehiclesMsg {
	msg := protocol.VehiclesMsg{
		Type:     protocol.TypeVehicles,
		Tick:     tick,
		SimTime:  w.simTime,
		Vehicles: make([]protocol.VehicleBody, 0, len(w.droneIDs)),
	}
	for _, id := range w.droneIDs {
		d := w.drones[id]
		msg.Vehicles = append(msg.Vehicles, protocol.VehicleBody{
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
		})
	}
	return msg
}

func (w *World) ordersMsg(tick uint64) protocol.OrdersMsg {
	msg := protocol.OrdersMsg{
		Type:    protocol.TypeOrders,
		Tick:    tick,
		SimTime: w.simTime,
		Orders:  make([]protocol.OrderBody, 0, len(w.orderIDs)),
	}
	for _, id := range w.orderIDs {
		o := w.orders[id]
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
		msg.Orders = append(msg.Orders, body)
	}
	return msg
}

func (w *World) kpiMsg(tick uint64) protocol.KPIMsg {
	k := w.kpi
	return protocol.KPIMsg{
		Type:    protocol.TypeKPI,
		Tick:    tick,
		SimTime: w.simTime,
		KPI: protocol.KPIBody{
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
		},
	}
}

func (w *World) worldStateMsg() protocol.WorldStateMsg {
	return protocol.WorldStateMsg{
		Type: protocol.TypeWorldState,
		State: protocol.WorldStateBody{
			Status:          w.status(),
			Tick:            w.tick.Load(),
			SimTime:         w.simTime,
			Scenario:        w.scenario.Name,
			SpeedMultiplier: w.speed,
			Seed:            w.cfg.Seed,
			Weather: protocol.WeatherBody{
				Condition: string(w.weather.Condition),
				Impact:    w.weather.Impact,
			},
		},
	}
}
