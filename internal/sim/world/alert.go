package world

import (
	"fmt"
	"time"

	"skyfleet.ai/internal/geo"
)

const (
	collisionDistanceKm   = 0.1
	collisionAltSepM      = 10.0 // vertical gap considered safe
	collisionClimbM       = 20.0 // evasive climb applied to one drone
	collisionDedupeWindow = 5 * time.Second

	maxRetainedAlerts = 200
)

func (w *World) raiseAlert(kind, severity, message string, droneIDs []string, orderID string, pos *geo.Position) {
	a := &Alert{
		ID:        w.newAlertID(),
		Kind:      kind,
		Severity:  severity,
		Message:   message,
		DroneIDs:  droneIDs,
		OrderID:   orderID,
		Position:  pos,
		CreatedAt: w.simTime,
	}
	w.alerts = append(w.alerts, a)
	if len(w.alerts) > maxRetainedAlerts {
		w.alerts = w.alerts[len(w.alerts)-maxRetainedAlerts:]
	}

	switch kind {
	case AlertCollisionRisk:
		w.kpi.CollisionAlerts++
	case AlertZoneViolation:
		w.kpi.ZoneViolations++
	}

	if w.index != nil {
		if err := w.index.RecordAlert(a); err != nil {
			w.log.Warn().Err(err).Str("alert", a.ID).Msg("index write failed")
		}
	}
	if w.metrics != nil {
		w.metrics.AlertRaised(kind)
	}
	w.broadcastAlert(a)
}

// detectCollisions flags busy pairs closer than the horizontal threshold.
// Hovering and delivering drones share airspace too, so any non-grounded
// pair counts. When the pair is also vertically close, the lexicographically
// smaller drone climbs to restore separation. One alert per pair per dedupe
// window.
func (w *World) detectCollisions() {
	for i := 0; i < len(w.droneIDs); i++ {
		a := w.drones[w.droneIDs[i]]
		if !a.State.Busy() {
			continue
		}
		for j := i + 1; j < len(w.droneIDs); j++ {
			b := w.drones[w.droneIDs[j]]
			if !b.State.Busy() {
				continue
			}
			if geo.Distance(a.Position, b.Position) >= collisionDistanceKm {
				continue
			}

			key := a.ID + "|" + b.ID
			if last, ok := w.collisionSeen[key]; ok && w.simTime.Sub(last) < collisionDedupeWindow {
				continue
			}
			w.collisionSeen[key] = w.simTime

			altDiff := a.Position.Altitude - b.Position.Altitude
			if altDiff < 0 {
				altDiff = -altDiff
			}
			if altDiff < collisionAltSepM {
				// a.ID < b.ID by construction of droneIDs.
				a.Position.Altitude += collisionClimbM
			}

			mid := geo.Interpolate(a.Position, b.Position, 0.5)
			w.raiseAlert(AlertCollisionRisk, "CRITICAL",
				fmt.Sprintf("collision risk between %s and %s", a.ID, b.ID),
				[]string{a.ID, b.ID}, "", &mid)
		}
	}
}

// detectZoneViolations catches drones that end a tick inside active
// restricted airspace despite routing around it.
func (w *World) detectZoneViolations() {
	for _, id := range w.droneIDs {
		d := w.drones[id]
		if !d.State.Flying() {
			continue
		}
		z := geo.ZoneViolation(d.Position, w.zones)
		if z == nil {
			continue
		}
		key := "zone|" + d.ID + "|" + z.ID
		if last, ok := w.collisionSeen[key]; ok && w.simTime.Sub(last) < collisionDedupeWindow {
			continue
		}
		w.collisionSeen[key] = w.simTime

		pos := d.Position
		w.raiseAlert(AlertZoneViolation, z.Severity,
			fmt.Sprintf("%s inside restricted zone %s", d.ID, z.Name), []string{d.ID}, "", &pos)
	}
}

// hasUnresolvedAlert reports whether an open alert of the given kind already
// mentions the entity.
func (w *World) hasUnresolvedAlert(kind, entityID string) bool {
	for _, a := range w.alerts {
		if !a.Resolved && a.Kind == kind && a.mentions(entityID) {
			return true
		}
	}
	return false
}

// resolveAlerts closes every open alert of the given kind mentioning the
// entity.
func (w *World) resolveAlerts(kind, entityID string) {
	for _, a := range w.alerts {
		if !a.Resolved && a.Kind == kind && a.mentions(entityID) {
			a.Resolved = true
		}
	}
}

// checkLowBattery raises one alert per drone that is low but not yet flat
// and not on a pad. Recovering past the threshold resolves the alert so a
// later dip alerts again.
func (w *World) checkLowBattery() {
	for _, id := range w.droneIDs {
		d := w.drones[id]
		if d.Battery < emergencyBatteryFloor && d.Battery > 0 && d.State != StateCharging {
			if !w.hasUnresolvedAlert(AlertLowBattery, d.ID) {
				pos := d.Position
				w.raiseAlert(AlertLowBattery, "CRITICAL",
					fmt.Sprintf("%s battery at %.1f%%", d.ID, d.Battery),
					[]string{d.ID}, "", &pos)
			}
			continue
		}
		w.resolveAlerts(AlertLowBattery, d.ID)
	}
}

// pruneCollisionSeen drops dedupe entries old enough to never match again.
func (w *World) pruneCollisionSeen() {
	for k, at := range w.collisionSeen {
		if w.simTime.Sub(at) > 10*collisionDedupeWindow {
			delete(w.collisionSeen, k)
		}
	}
}
