// Package observability exposes fleet simulation metrics over Prometheus.
package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// FleetCollector bundles the Prometheus metrics driven by the world engine
// and provides the /metrics handler. It satisfies the engine's metrics
// recorder interface.
type FleetCollector struct {
	gatherer prometheus.Gatherer

	OrdersCreated   *prometheus.CounterVec
	OrdersClosed    *prometheus.CounterVec
	DeliveryMinutes prometheus.Histogram
	AlertsRaised    *prometheus.CounterVec
	TickSeconds     prometheus.Histogram

	FleetDrones      prometheus.Gauge
	FleetAvgBattery  prometheus.Gauge
	FleetUtilization prometheus.Gauge
}

// NewFleetCollector registers fleet metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewFleetCollector(reg prometheus.Registerer) (*FleetCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_orders_created_total",
		Help: "Total orders accepted into the simulation, labeled by priority.",
	}, []string{"priority"})
	created, err := registerCounterVec(reg, created, "fleet_orders_created_total")
	if err != nil {
		return nil, err
	}

	closed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_orders_closed_total",
		Help: "Total orders reaching a terminal status, labeled by status.",
	}, []string{"status"})
	closed, err = registerCounterVec(reg, closed, "fleet_orders_closed_total")
	if err != nil {
		return nil, err
	}

	minutes := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fleet_delivery_minutes",
		Help:    "Wall-to-wall delivery duration in simulated minutes.",
		Buckets: []float64{5, 10, 15, 20, 30, 45, 60, 90, 120},
	})
	minutes, err = registerHistogram(reg, minutes, "fleet_delivery_minutes")
	if err != nil {
		return nil, err
	}

	alerts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_alerts_total",
		Help: "Total safety alerts raised, labeled by kind.",
	}, []string{"kind"})
	alerts, err = registerCounterVec(reg, alerts, "fleet_alerts_total")
	if err != nil {
		return nil, err
	}

	tickSeconds := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fleet_tick_seconds",
		Help:    "Wall-clock duration of one simulation tick.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
	})
	tickSeconds, err = registerHistogram(reg, tickSeconds, "fleet_tick_seconds")
	if err != nil {
		return nil, err
	}

	drones, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fleet_drones",
		Help: "Number of drones in the fleet.",
	}), "fleet_drones")
	if err != nil {
		return nil, err
	}
	battery, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fleet_avg_battery_pct",
		Help: "Average battery level across the fleet.",
	}), "fleet_avg_battery_pct")
	if err != nil {
		return nil, err
	}
	utilization, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fleet_utilization_ratio",
		Help: "Fraction of the fleet currently on a mission.",
	}), "fleet_utilization_ratio")
	if err != nil {
		return nil, err
	}

	return &FleetCollector{
		gatherer:         gatherer,
		OrdersCreated:    created,
		OrdersClosed:     closed,
		DeliveryMinutes:  minutes,
		AlertsRaised:     alerts,
		TickSeconds:      tickSeconds,
		FleetDrones:      drones,
		FleetAvgBattery:  battery,
		FleetUtilization: utilization,
	}, nil
}

func (c *FleetCollector) OrderCreated(priority string) {
	if c == nil {
		return
	}
	c.OrdersCreated.WithLabelValues(priority).Inc()
}

func (c *FleetCollector) OrderClosed(status string, deliveryMinutes float64) {
	if c == nil {
		return
	}
	c.OrdersClosed.WithLabelValues(status).Inc()
	if status == "DELIVERED" {
		c.DeliveryMinutes.Observe(deliveryMinutes)
	}
}

func (c *FleetCollector) AlertRaised(kind string) {
	if c == nil {
		return
	}
	c.AlertsRaised.WithLabelValues(kind).Inc()
}

func (c *FleetCollector) ObserveTick(drones int, avgBattery, utilization float64, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.FleetDrones.Set(float64(drones))
	c.FleetAvgBattery.Set(avgBattery)
	c.FleetUtilization.Set(utilization)
	c.TickSeconds.Observe(elapsed.Seconds())
}

// Handler exposes a ready-to-use /metrics handler.
func (c *FleetCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
