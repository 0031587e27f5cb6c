package world

import (
	"fmt"

	"skyfleet.ai/internal/geo"
	"skyfleet.ai/internal/protocol"
)

const (
	// Flat payout per completed delivery.
	deliveryRevenue = 50.0

	// ETA adds restaurant prep time on top of the flight estimate.
	etaPrepMinutes = 5.0
	etaSpeedKmh    = 60.0
)

var priorityPool = []Priority{PriorityNormal, PriorityNormal, PriorityHigh, PriorityLow}

func (w *World) handleCreateOrder(req createOrderReq) {
	id, err := w.placeOrder(req.req)
	if err == nil {
		w.publishSnapshot()
	}
	req.resp <- createOrderResp{orderID: id, err: err}
}

func (w *World) placeOrder(req CreateOrderRequest) (string, error) {
	rest, ok := w.restaurants[req.RestaurantID]
	if !ok {
		return "", reqErr(protocol.ErrInvalidReference, "unknown restaurant %s", req.RestaurantID)
	}
	cust, ok := w.customers[req.CustomerID]
	if !ok {
		return "", reqErr(protocol.ErrInvalidReference, "unknown customer %s", req.CustomerID)
	}
	if len(req.Items) == 0 {
		return "", reqErr(protocol.ErrBadRequest, "order has no items")
	}

	items := make([]OrderItem, 0, len(req.Items))
	for _, ref := range req.Items {
		if ref.Quantity < 1 {
			return "", reqErr(protocol.ErrBadRequest, "item %s: quantity %d", ref.ItemID, ref.Quantity)
		}
		tmpl, ok := menuItem(rest, ref.ItemID)
		if !ok {
			return "", reqErr(protocol.ErrInvalidReference, "restaurant %s has no item %s", rest.ID, ref.ItemID)
		}
		tmpl.Quantity = ref.Quantity
		items = append(items, tmpl)
	}

	prio := req.Priority
	if prio == "" {
		prio = PriorityNormal
	}
	switch prio {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
	default:
		return "", reqErr(protocol.ErrBadRequest, "unknown priority %q", prio)
	}

	o := w.buildOrder(rest, cust, items, prio)
	if o.TotalWeight > w.cat.Fleet.Drone.MaxPayloadKg {
		return "", reqErr(protocol.ErrBadRequest,
			"order weighs %.2fkg, fleet payload limit is %.2fkg", o.TotalWeight, w.cat.Fleet.Drone.MaxPayloadKg)
	}

	w.admitOrder(o)
	return o.ID, nil
}

func menuItem(r *Restaurant, itemID string) (OrderItem, bool) {
	for _, m := range r.Menu {
		if m.ItemID == itemID {
			return m, true
		}
	}
	return OrderItem{}, false
}

func (w *World) buildOrder(rest *Restaurant, cust *Customer, items []OrderItem, prio Priority) *Order {
	var weight, price float64
	for _, it := range items {
		weight += it.WeightKg * float64(it.Quantity)
		price += it.Price * float64(it.Quantity)
	}
	dist := geo.Distance(rest.Position, cust.Position)

	o := &Order{
		ID:           w.newOrderID(),
		Priority:     prio,
		RestaurantID: rest.ID,
		CustomerID:   cust.ID,
		Items:        items,
		TotalWeight:  weight,
		TotalPrice:   price,
		CreatedAt:    w.simTime,
		ETAMinutes:   geo.ETAMinutes(dist, etaSpeedKmh) + etaPrepMinutes,
	}
	o.setStatus(OrderPending, w.simTime)
	return o
}

func (w *World) admitOrder(o *Order) {
	w.orders[o.ID] = o
	w.orderIDs = sortedOrderIDs(w.orders)
	w.addEvent("ORDER_CREATED",
		fmt.Sprintf("order %s: %s -> %s (%s)", o.ID, o.RestaurantID, o.CustomerID, o.Priority), o.ID)
	if w.metrics != nil {
		w.metrics.OrderCreated(string(o.Priority))
	}
}

// spawnOrders generates demand at the scenario's order frequency. The
// accumulator carries fractional progress so low frequencies still emit.
func (w *World) spawnOrders(dt float64) {
	if w.scenario.OrderFrequency <= 0 {
		return
	}
	interval := 60.0 / w.scenario.OrderFrequency
	w.orderSpawnAccum += dt
	for w.orderSpawnAccum >= interval {
		w.orderSpawnAccum -= interval
		w.spawnOneOrder()
	}
}

func (w *World) spawnOneOrder() {
	rest := w.restaurants[w.cat.Fleet.Restaurants[w.rng.Intn(len(w.cat.Fleet.Restaurants))].ID]
	cust := w.customers[w.cat.Fleet.Customers[w.rng.Intn(len(w.cat.Fleet.Customers))].ID]

	count := 1 + w.rng.Intn(3)
	if count > len(rest.Menu) {
		count = len(rest.Menu)
	}
	items := make([]OrderItem, 0, count)
	for i := 0; i < count; i++ {
		it := rest.Menu[w.rng.Intn(len(rest.Menu))]
		it.Quantity = 1 + w.rng.Intn(2)
		items = append(items, it)
	}

	prio := priorityPool[w.rng.Intn(len(priorityPool))]
	o := w.buildOrder(rest, cust, items, prio)
	if o.TotalWeight > w.cat.Fleet.Drone.MaxPayloadKg {
		// Oversized generated orders are shrunk to a single item.
		o.Items = o.Items[:1]
		o.Items[0].Quantity = 1
		o.TotalWeight = o.Items[0].WeightKg
		o.TotalPrice = o.Items[0].Price
	}
	w.admitOrder(o)
}

func (w *World) cancelOrder(orderID string) error {
	o, ok := w.orders[orderID]
	if !ok {
		return reqErr(protocol.ErrInvalidReference, "unknown order %s", orderID)
	}
	switch o.Status {
	case OrderPending:
		o.setStatus(OrderCancelled, w.simTime)
	case OrderAssigned:
		if d := w.drones[o.DroneID]; d != nil && d.OrderID == o.ID {
			w.releaseDrone(d)
			w.sendHome(d)
		}
		o.DroneID = ""
		o.setStatus(OrderCancelled, w.simTime)
	default:
		return reqErr(protocol.ErrInvalidState, "order %s is %s", orderID, o.Status)
	}
	w.addEvent("ORDER_CANCELLED", "order "+o.ID+" cancelled", o.ID)
	w.closeOrder(o)
	return nil
}

// failOrder marks an in-progress order FAILED, typically on emergency return.
func (w *World) failOrder(o *Order, reason string) {
	if o == nil || o.Status.Terminal() {
		return
	}
	o.FailReason = reason
	o.DroneID = ""
	o.setStatus(OrderFailed, w.simTime)
	w.addEvent("ORDER_FAILED", fmt.Sprintf("order %s failed: %s", o.ID, reason), o.ID)
	w.raiseAlert(AlertOrderFailed, "WARNING", fmt.Sprintf("order %s failed: %s", o.ID, reason), nil, o.ID, nil)
	w.closeOrder(o)
}

// closeOrder runs terminal bookkeeping: index write and metrics.
func (w *World) closeOrder(o *Order) {
	w.resolveAlerts(AlertOrderDelayed, o.ID)
	if w.index != nil {
		if err := w.index.RecordOrder(o); err != nil {
			w.log.Warn().Err(err).Str("order", o.ID).Msg("index write failed")
		}
	}
	if w.metrics != nil {
		var minutes float64
		if o.Status == OrderDelivered {
			minutes = o.DeliveredAt.Sub(o.CreatedAt).Minutes()
		}
		w.metrics.OrderClosed(string(o.Status), minutes)
	}
}

// checkDelayedOrders raises one warning per in-flight order past its ETA.
// Closing the order resolves the alert; dedupe is by unresolved alert.
func (w *World) checkDelayedOrders() {
	for _, id := range w.orderIDs {
		o := w.orders[id]
		if o.Status != OrderAssigned && o.Status != OrderPickedUp {
			continue
		}
		deadline := o.CreatedAt.Add(minutesDuration(o.ETAMinutes))
		if !w.simTime.After(deadline) {
			continue
		}
		if w.hasUnresolvedAlert(AlertOrderDelayed, o.ID) {
			continue
		}
		w.raiseAlert(AlertOrderDelayed, "WARNING",
			fmt.Sprintf("order %s delayed, ETA was %.0f minutes", o.ID, o.ETAMinutes),
			nil, o.ID, nil)
	}
}
