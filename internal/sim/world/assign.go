package world

import (
	"fmt"
	"sort"

	"skyfleet.ai/internal/energy"
	"skyfleet.ai/internal/geo"
)

const (
	// Mission feasibility: the estimated drain gets a safety margin, and a
	// drone never launches below the hard battery floor regardless.
	missionDrainMargin   = 1.5
	missionBatteryFloor  = 60.0
	hoverMarginSeconds   = 5 * 60.0 // expected wait at the restaurant
	handoffMarginSeconds = 30.0
)

// assignPendingOrders matches pending orders to eligible drones each tick.
// Higher priority first, then older orders; the nearest feasible drone wins.
func (w *World) assignPendingOrders() {
	pending := w.pendingOrders()
	if len(pending) == 0 {
		return
	}
	for _, o := range pending {
		d := w.bestDroneFor(o)
		if d == nil {
			continue
		}
		w.assignOrder(d, o)
	}
}

func (w *World) pendingOrders() []*Order {
	var out []*Order
	for _, id := range w.orderIDs {
		o := w.orders[id]
		if o.Status == OrderPending {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority.rank() != out[j].Priority.rank() {
			return out[i].Priority.rank() < out[j].Priority.rank()
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// bestDroneFor returns the closest eligible drone that can feasibly complete
// the order's full mission, or nil.
func (w *World) bestDroneFor(o *Order) *Drone {
	rest := w.restaurants[o.RestaurantID]
	var best *Drone
	var bestDist float64

	for _, id := range w.droneIDs {
		d := w.drones[id]
		if !w.droneEligible(d, o) {
			continue
		}
		dist := geo.Distance(d.Position, rest.Position)
		if best == nil || dist < bestDist {
			best = d
			bestDist = dist
		}
	}
	return best
}

func (w *World) droneEligible(d *Drone, o *Order) bool {
	if d.State != StateIdle || d.InChargeQueue {
		return false
	}
	if d.Battery < missionBatteryFloor {
		return false
	}
	if o.TotalWeight > d.MaxPayloadKg {
		return false
	}
	return w.missionFeasible(d, o)
}

// missionFeasible estimates the battery needed for the three-leg mission
// plus hover and handoff time, with margin. The drone must also stay above
// a hard floor of its capacity for the trip.
func (w *World) missionFeasible(d *Drone, o *Order) bool {
	rest := w.restaurants[o.RestaurantID]
	cust := w.customers[o.CustomerID]
	home := w.kiosks[d.KioskID].Position

	toRest := geo.Distance(d.Position, rest.Position)
	toCust := geo.Distance(rest.Position, cust.Position)
	toHome := geo.Distance(cust.Position, home)

	cond, impact := w.weather.Condition, w.weather.Impact
	mult := w.scenario.DrainMultiplier

	drain := energy.Drain(energy.DrainParams{
		DistanceKm: toRest, Condition: cond, Impact: impact, Multiplier: mult,
	})
	drain += energy.Drain(energy.DrainParams{
		DistanceKm: toCust, PayloadKg: o.TotalWeight, Condition: cond, Impact: impact, Multiplier: mult,
	})
	drain += energy.Drain(energy.DrainParams{
		DistanceKm: toHome, Condition: cond, Impact: impact, Multiplier: mult,
	})
	drain += energy.IdleDrain(hoverMarginSeconds) * hoverDrainFactor
	drain += energy.IdleDrain(handoffMarginSeconds)

	return d.Battery >= drain*missionDrainMargin
}

func (w *World) assignOrder(d *Drone, o *Order) {
	o.DroneID = d.ID
	o.setStatus(OrderAssigned, w.simTime)
	d.OrderID = o.ID

	rest := w.restaurants[o.RestaurantID]
	cust := w.customers[o.CustomerID]

	// Refine the ETA now that the full mission is known.
	total := geo.Distance(d.Position, rest.Position) + geo.Distance(rest.Position, cust.Position)
	waited := w.simTime.Sub(o.CreatedAt).Minutes()
	o.ETAMinutes = waited + geo.ETAMinutes(total, etaSpeedKmh) + etaPrepMinutes

	w.startFlight(d, rest.Position, StateFlyingToRestaurant)
	w.addEvent("ORDER_ASSIGNED", fmt.Sprintf("%s assigned to %s", o.ID, d.ID), o.ID)
	w.log.Debug().Str("order", o.ID).Str("drone", d.ID).Msg("order assigned")
}
