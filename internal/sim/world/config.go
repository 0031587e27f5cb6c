package world

import "time"

type WorldConfig struct {
	ID         string
	Seed       int64
	TickRateHz int

	// Scenario selected at startup. Must name a catalog scenario.
	Scenario string

	// SpeedMultiplier scales simulated time per wall tick. 1.0 is realtime.
	SpeedMultiplier float64

	// StartTime anchors the simulated clock. Zero means a fixed epoch so
	// two worlds with the same seed produce identical timestamps.
	StartTime time.Time

	// BroadcastEveryTicks throttles fleet/order/KPI pushes to subscribers.
	// The default broadcasts after every tick.
	BroadcastEveryTicks int

	// EventRingSize bounds the in-memory event history.
	EventRingSize int

	// SubscriberBuffer is the per-client outbound queue length.
	SubscriberBuffer int
}

func (c *WorldConfig) applyDefaults() {
	if c.ID == "" {
		c.ID = "world-1"
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 10
	}
	if c.Scenario == "" {
		c.Scenario = "NORMAL"
	}
	if c.SpeedMultiplier <= 0 {
		c.SpeedMultiplier = 1.0
	}
	if c.StartTime.IsZero() {
		c.StartTime = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	}
	if c.BroadcastEveryTicks <= 0 {
		c.BroadcastEveryTicks = 1
	}
	if c.EventRingSize <= 0 {
		c.EventRingSize = 1000
	}
	if c.SubscriberBuffer <= 0 {
		c.SubscriberBuffer = 64
	}
}

// Speed bounds accepted by SetSpeed. Values outside are rejected, not clamped.
const (
	MinSpeedMultiplier = 0.1
	MaxSpeedMultiplier = 10.0
)
