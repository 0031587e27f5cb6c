package world

import "time"

// stepInternal advances the simulation by one tick. Ordering is fixed:
// clock, flight, safety scans, dispatch, demand, bookkeeping. Any
// reordering changes digests for seeded runs.
func (w *World) stepInternal() {
	started := time.Now()
	dt := w.dt()
	w.simTime = w.simTime.Add(time.Duration(dt * float64(time.Second)))
	tick := w.tick.Add(1)

	// Drones move first; safety scans see the post-move world; dispatch and
	// demand generation close out the tick so fresh orders wait one tick
	// before assignment.
	for _, id := range w.droneIDs {
		w.updateDrone(w.drones[id], dt)
	}

	w.detectZoneViolations()
	w.detectCollisions()
	w.checkLowBattery()
	w.checkDelayedOrders()

	w.assignPendingOrders()
	w.spawnOrders(dt)

	if tick%600 == 0 {
		w.pruneCollisionSeen()
	}

	w.recomputeKPI()

	if w.tickLogger != nil {
		if err := w.tickLogger.WriteTick(w.tickLogEntry(tick)); err != nil {
			w.log.Warn().Err(err).Msg("tick log write failed")
		}
	}
	if w.metrics != nil {
		w.metrics.ObserveTick(len(w.droneIDs), w.kpi.AvgBattery, w.kpi.FleetUtilization, time.Since(started))
	}

	w.publishSnapshot()

	if tick%uint64(w.cfg.BroadcastEveryTicks) == 0 {
		w.broadcastState(tick)
	}
}

func (w *World) tickLogEntry(tick uint64) TickLogEntry {
	entry := TickLogEntry{
		Tick:    tick,
		SimTime: w.simTime,
		Drones:  make([]DroneLogState, 0, len(w.droneIDs)),
	}
	for _, id := range w.droneIDs {
		d := w.drones[id]
		entry.Drones = append(entry.Drones, DroneLogState{
			ID:       d.ID,
			State:    d.State,
			Battery:  d.Battery,
			Position: d.Position,
			OrderID:  d.OrderID,
		})
	}
	return entry
}
