package world

// recomputeKPI rebuilds the fleet and order statistics from current state.
// Revenue and alert counters accumulate elsewhere and are preserved.
func (w *World) recomputeKPI() {
	k := KPI{
		TotalRevenue:    w.kpi.TotalRevenue,
		CollisionAlerts: w.kpi.CollisionAlerts,
		ZoneViolations:  w.kpi.ZoneViolations,
	}

	for _, id := range w.orderIDs {
		o := w.orders[id]
		k.TotalOrders++
		switch o.Status {
		case OrderDelivered:
			k.DeliveredOrders++
		case OrderFailed:
			k.FailedOrders++
		case OrderCancelled:
			k.CancelledOrders++
		case OrderPending:
			k.PendingOrders++
		default:
			k.ActiveOrders++
		}
	}

	var batterySum, distSum float64
	busy := 0
	for _, id := range w.droneIDs {
		d := w.drones[id]
		batterySum += d.Battery
		distSum += d.DistanceFlown
		if d.State.Busy() {
			busy++
		}
		switch d.State {
		case StateCharging:
			k.ChargingDrones++
		case StateMaintenance:
			k.MaintenanceDrones++
		default:
			if d.State.Busy() {
				k.ActiveDrones++
			}
		}
	}
	if n := len(w.droneIDs); n > 0 {
		k.AvgBattery = batterySum / float64(n)
		k.FleetUtilization = float64(busy) / float64(n)
	}
	k.TotalDistanceKm = distSum

	if k.DeliveredOrders > 0 {
		k.AvgDeliveryMinutes = w.deliverySumMin / float64(k.DeliveredOrders)
		k.OnTimeRate = float64(w.deliveredOnTime) / float64(k.DeliveredOrders)
	}

	for _, a := range w.alerts {
		if a.Resolved {
			continue
		}
		switch a.Severity {
		case "CRITICAL":
			k.UnresolvedCritical++
		case "WARNING":
			k.UnresolvedWarning++
		default:
			k.UnresolvedInfo++
		}
	}

	w.kpi = k
}
