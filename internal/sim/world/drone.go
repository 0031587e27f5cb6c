package world

import (
	"fmt"

	"skyfleet.ai/internal/energy"
	"skyfleet.ai/internal/geo"
	"skyfleet.ai/internal/protocol"
)

const (
	emergencyBatteryFloor = 10.0 // percent, below this an airborne drone aborts and heads home
	chargeRequestBelow    = 40.0 // percent, ground drones under this ask for a pad
	chargeReleaseAt       = 98.0 // percent, pad is freed at this level

	pickupReadyChance  = 0.02 // per-tick chance the kitchen hands over the bag
	hoverDrainFactor   = 1.5  // hover drain relative to idle drain
	deliverySeconds    = 30.0 // handoff time at the customer
	descentRateMps     = 10.0 // emergency descent
	weatherSpeedFactor = 0.5  // fraction of speed lost at impact 100
)

// updateDrone advances one drone by dt simulated seconds.
func (w *World) updateDrone(d *Drone, dt float64) {
	switch d.State {
	case StateIdle:
		w.handleIdle(d, dt)
	case StateCharging:
		w.handleCharging(d, dt)
	case StateFlyingToRestaurant, StateFlyingToCustomer, StateReturningToKiosk:
		w.handleFlying(d, dt)
	case StateWaitingForPickup:
		w.handleWaiting(d, dt)
	case StateDelivering:
		w.handleDelivering(d)
	case StateEmergencyLanding:
		w.handleEmergencyLanding(d, dt)
	case StateMaintenance:
		// Grounded until operations clears it. Nothing moves.
	}
}

func (w *World) handleIdle(d *Drone, dt float64) {
	d.Battery -= energy.IdleDrain(dt)
	if d.Battery < 0 {
		d.Battery = 0
	}
	if d.Battery < chargeRequestBelow && !d.InChargeQueue {
		w.requestCharging(d)
	}
}

func (w *World) handleCharging(d *Drone, dt float64) {
	d.Battery += energy.ChargeAmount(dt)
	if d.Battery >= chargeReleaseAt {
		if d.Battery > 100 {
			d.Battery = 100
		}
		w.finishCharging(d)
	}
}

func (w *World) handleFlying(d *Drone, dt float64) {
	// Safety checks run before any movement this tick. A drone already
	// heading home keeps flying on whatever charge is left.
	if d.State != StateReturningToKiosk {
		if d.Battery < emergencyBatteryFloor {
			w.initiateEmergencyReturn(d, "battery critically low")
			return
		}
		home := w.kiosks[d.KioskID].Position
		if energy.ShouldReturn(d.Battery, geo.Distance(d.Position, home), d.PayloadKg,
			w.weather.Condition, w.weather.Impact) {
			w.initiateEmergencyReturn(d, "insufficient battery for mission")
			return
		}
	}

	// Random in-flight failures per scenario failure rate.
	if w.scenario.FailureRate > 0 {
		p := w.scenario.FailureRate * dt / 3600
		if w.rng.Float64() < p {
			_ = w.emergencyLand(d, "in-flight failure")
			return
		}
	}

	arrived := w.moveAlongRoute(d, dt)
	d.FlightTimeHours += dt / 3600
	if arrived {
		w.arrived(d)
	}
}

// flyingSpeed is the ground speed under the current weather and scenario.
func (w *World) flyingSpeed(d *Drone) float64 {
	speed := d.MaxSpeedKmh * (1 - w.weather.Impact/100*weatherSpeedFactor)
	return speed * w.scenario.SpeedMultiplier
}

// moveAlongRoute advances the drone along its route and drains the battery
// for the distance covered. Returns true when the final waypoint is reached.
func (w *World) moveAlongRoute(d *Drone, dt float64) bool {
	if len(d.Route) < 2 {
		return true
	}
	speed := w.flyingSpeed(d)
	d.SpeedKmh = speed
	remaining := speed * dt / 3600 // km this tick

	for remaining > 0 && d.RouteLeg < len(d.Route)-1 {
		from := d.Position
		to := d.Route[d.RouteLeg+1]
		legLeft := geo.Distance(from, to)

		if legLeft <= remaining {
			// A zone may have activated since the route was planned.
			// Hold position this tick and replan around it.
			if geo.ZoneViolation(to, w.zones) != nil {
				d.SpeedKmh = 0
				w.recalculateRoute(d)
				return false
			}
			d.Position = to
			d.RouteLeg++
			w.drainFlight(d, legLeft, speed)
			remaining -= legLeft
			continue
		}

		frac := remaining / legLeft
		next := geo.Interpolate(from, to, frac)
		if geo.ZoneViolation(next, w.zones) != nil {
			d.SpeedKmh = 0
			w.recalculateRoute(d)
			return false
		}
		d.Heading = geo.Bearing(from, to)
		d.Position = next
		w.drainFlight(d, remaining, speed)
		remaining = 0
	}

	return d.RouteLeg >= len(d.Route)-1
}

// recalculateRoute replans from the drone's current position to its original
// final waypoint, which stays fixed across replans.
func (w *World) recalculateRoute(d *Drone) {
	dest := d.Route[len(d.Route)-1]
	d.Route = w.router.Route(d.Position, dest, w.zones)
	d.RouteLeg = 0
}

func (w *World) drainFlight(d *Drone, distanceKm, speed float64) {
	drain := energy.Drain(energy.DrainParams{
		DistanceKm:  distanceKm,
		PayloadKg:   d.PayloadKg,
		AltitudeM:   d.Position.Altitude,
		SpeedKmh:    speed,
		MaxSpeedKmh: d.MaxSpeedKmh,
		Condition:   w.weather.Condition,
		Impact:      w.weather.Impact,
		Multiplier:  w.scenario.DrainMultiplier,
	})
	d.Battery -= drain
	if d.Battery < 0 {
		d.Battery = 0
	}
	d.DistanceFlown += distanceKm
}

func (w *World) arrived(d *Drone) {
	d.SpeedKmh = 0
	d.Route = nil
	d.RouteLeg = 0

	switch d.State {
	case StateFlyingToRestaurant:
		d.State = StateWaitingForPickup
		w.addEvent("DRONE_AT_RESTAURANT", d.ID+" waiting for pickup", d.ID)
	case StateFlyingToCustomer:
		d.State = StateDelivering
		d.BusyUntil = w.simTime.Add(minutesDuration(deliverySeconds / 60))
	case StateReturningToKiosk:
		d.State = StateIdle
		d.Position = w.kiosks[d.KioskID].Position
		d.Heading = 0
		if d.Battery < chargeRequestBelow {
			w.requestCharging(d)
		}
	}
}

// handleWaiting models kitchen prep as a per-tick readiness draw. Hovering
// at the restaurant costs more than sitting on the ground.
func (w *World) handleWaiting(d *Drone, dt float64) {
	d.SpeedKmh = 0
	d.Battery -= hoverDrainFactor * energy.IdleDrain(dt)
	if d.Battery < 0 {
		d.Battery = 0
	}
	if w.rng.Float64() < pickupReadyChance {
		w.pickupOrder(d)
	}
}

func (w *World) pickupOrder(d *Drone) {
	o := w.orders[d.OrderID]
	if o == nil {
		w.sendHome(d)
		return
	}
	o.setStatus(OrderPickedUp, w.simTime)
	d.PayloadKg = o.TotalWeight

	cust := w.customers[o.CustomerID]
	w.startFlight(d, cust.Position, StateFlyingToCustomer)
	w.addEvent("ORDER_PICKED_UP", fmt.Sprintf("%s picked up %s", d.ID, o.ID), o.ID)
}

func (w *World) handleDelivering(d *Drone) {
	if w.simTime.Before(d.BusyUntil) {
		return
	}
	d.BusyUntil = zeroTime
	w.completeDelivery(d)
}

func (w *World) completeDelivery(d *Drone) {
	o := w.orders[d.OrderID]
	if o != nil {
		o.DeliveredAt = w.simTime
		o.setStatus(OrderDelivered, w.simTime)
		o.DroneID = ""

		minutes := o.DeliveredAt.Sub(o.CreatedAt).Minutes()
		w.deliverySumMin += minutes
		if minutes <= o.ETAMinutes {
			w.deliveredOnTime++
		}
		w.kpi.TotalRevenue += deliveryRevenue
		w.addEvent("ORDER_DELIVERED",
			fmt.Sprintf("%s delivered %s in %.1f minutes", d.ID, o.ID, minutes), o.ID)
		w.closeOrder(o)
	}

	d.OrderID = ""
	d.PayloadKg = 0
	d.DeliveriesDone++
	w.sendHome(d)
}

func (w *World) handleEmergencyLanding(d *Drone, dt float64) {
	d.Position.Altitude -= descentRateMps * dt
	if d.Position.Altitude <= 0 {
		d.Position.Altitude = 0
		d.State = StateMaintenance
		d.SpeedKmh = 0
		w.addEvent("DRONE_MAINTENANCE", d.ID+" grounded for maintenance", d.ID)
	}
}

// startFlight routes the drone to dest and puts it in the given flying state.
func (w *World) startFlight(d *Drone, dest geo.Position, state DroneState) {
	cruise := geo.FlightAltitude(d.Position, dest)
	start := d.Position
	start.Altitude = cruise
	dest.Altitude = cruise

	d.Route = w.router.Route(start, dest, w.zones)
	d.RouteLeg = 0
	d.Position = start
	d.State = state
	if len(d.Route) > 1 {
		d.Heading = geo.Bearing(d.Route[0], d.Route[1])
	}
}

func (w *World) sendHome(d *Drone) {
	home := w.kiosks[d.KioskID].Position
	w.startFlight(d, home, StateReturningToKiosk)
}

// releaseDrone detaches the drone from its order without failing the order.
func (w *World) releaseDrone(d *Drone) {
	d.OrderID = ""
	d.PayloadKg = 0
}

// initiateEmergencyReturn aborts the mission and heads home. The order fails.
// A drone already returning is left alone.
func (w *World) initiateEmergencyReturn(d *Drone, reason string) {
	if d.State == StateReturningToKiosk {
		return
	}
	if o := w.orders[d.OrderID]; o != nil {
		w.failOrder(o, reason)
	}
	w.releaseDrone(d)
	w.addEvent("EMERGENCY_RETURN",
		fmt.Sprintf("%s returning: %s (battery %.1f%%)", d.ID, reason, d.Battery), d.ID)
	w.sendHome(d)
}

// forceReturn is the operator return command.
func (w *World) forceReturn(d *Drone) error {
	switch d.State {
	case StateIdle, StateCharging, StateMaintenance, StateEmergencyLanding, StateReturningToKiosk:
		return reqErr(protocol.ErrInvalidState, "%s is %s", d.ID, d.State)
	}
	if o := w.orders[d.OrderID]; o != nil {
		w.failOrder(o, "recalled by operator")
	}
	w.releaseDrone(d)
	w.addEvent("DRONE_RECALLED", d.ID+" recalled by operator", d.ID)
	w.sendHome(d)
	return nil
}

// emergencyLand drops the drone where it is. Any carried order fails.
func (w *World) emergencyLand(d *Drone, reason string) error {
	switch d.State {
	case StateEmergencyLanding, StateMaintenance:
		return reqErr(protocol.ErrInvalidState, "%s is %s", d.ID, d.State)
	}
	if o := w.orders[d.OrderID]; o != nil {
		w.failOrder(o, "emergency landing: "+reason)
	}
	w.releaseDrone(d)
	d.State = StateEmergencyLanding
	d.Route = nil
	d.RouteLeg = 0
	d.SpeedKmh = 0
	d.BusyUntil = zeroTime

	pos := d.Position
	w.raiseAlert(AlertEmergency, "CRITICAL",
		fmt.Sprintf("%s emergency landing: %s", d.ID, reason), []string{d.ID}, "", &pos)
	w.log.Warn().Str("drone", d.ID).Str("reason", reason).Msg("emergency landing")
	return nil
}

func (w *World) requestCharging(d *Drone) {
	k := w.kiosks[d.KioskID]
	if k.AvailablePads > 0 {
		k.AvailablePads--
		d.State = StateCharging
		d.InChargeQueue = false
		return
	}
	if !d.InChargeQueue {
		k.ChargeQueue = append(k.ChargeQueue, d.ID)
		d.InChargeQueue = true
	}
}

func (w *World) finishCharging(d *Drone) {
	k := w.kiosks[d.KioskID]
	k.AvailablePads++
	d.State = StateIdle
	// Hand the pad to the next queued drone.
	for len(k.ChargeQueue) > 0 {
		next := w.drones[k.ChargeQueue[0]]
		k.ChargeQueue = k.ChargeQueue[1:]
		if next == nil || next.State != StateIdle {
			continue
		}
		next.InChargeQueue = false
		k.AvailablePads--
		next.State = StateCharging
		break
	}
}
