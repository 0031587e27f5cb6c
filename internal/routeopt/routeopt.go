// Package routeopt refines flight paths beyond the geometric detour
// router. It trains on synthesized corridor samples; until training
// finishes (and whenever refinement would clip restricted airspace) it
// falls back to the plain geometric route, so the fleet never depends on
// the optimizer being ready.
package routeopt

import (
	"math/rand"
	"sync"

	"github.com/rs/zerolog"

	"skyfleet.ai/internal/geo"
)

const (
	samplesPerEpoch = 40
	defaultEpochs   = 50

	// Route time/battery estimates used for comparisons only; the engine
	// keeps its own energy model.
	compareSpeedKmh   = 60.0
	compareDrainPerKm = 1.0
)

// Optimizer refines routes by waypoint shortcutting. Safe for concurrent
// use; Route is called from the simulation loop while Train runs in the
// background.
type Optimizer struct {
	mu       sync.Mutex
	rng      *rand.Rand
	log      zerolog.Logger
	training bool
	trained  bool
	progress float64 // 0..100
	samples  int
}

// New returns an untrained optimizer. seed keeps training synthesis
// reproducible alongside the rest of the simulation.
func New(seed int64, log zerolog.Logger) *Optimizer {
	return &Optimizer{
		rng: rand.New(rand.NewSource(seed)),
		log: log.With().Str("component", "routeopt").Logger(),
	}
}

// Status reports training state for the API.
type Status struct {
	Training bool    `json:"training"`
	Trained  bool    `json:"trained"`
	Progress float64 `json:"progress_pct"`
	Samples  int     `json:"samples"`
}

func (o *Optimizer) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Status{
		Training: o.training,
		Trained:  o.trained,
		Progress: o.progress,
		Samples:  o.samples,
	}
}

// Train synthesizes corridor samples over the service area in the
// background. Returns false if a training run is already in flight.
func (o *Optimizer) Train(epochs int, zones []geo.NoFlyZone) bool {
	if epochs <= 0 {
		epochs = defaultEpochs
	}
	o.mu.Lock()
	if o.training {
		o.mu.Unlock()
		return false
	}
	o.training = true
	o.progress = 0
	o.mu.Unlock()

	go o.train(epochs, zones)
	return true
}

func (o *Optimizer) train(epochs int, zones []geo.NoFlyZone) {
	o.log.Info().Int("epochs", epochs).Msg("training started")
	for e := 0; e < epochs; e++ {
		n := o.sampleEpoch(zones)
		o.mu.Lock()
		o.samples += n
		o.progress = float64(e+1) / float64(epochs) * 100
		o.mu.Unlock()
	}
	o.mu.Lock()
	o.training = false
	o.trained = true
	samples := o.samples
	o.mu.Unlock()
	o.log.Info().Int("samples", samples).Msg("training complete")
}

// sampleEpoch walks random corridors across the service area and keeps
// the ones whose shortcut survives airspace checks.
func (o *Optimizer) sampleEpoch(zones []geo.NoFlyZone) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	kept := 0
	for i := 0; i < samplesPerEpoch; i++ {
		a := geo.Position{Lat: 28.40 + o.rng.Float64()*0.40, Lng: 77.00 + o.rng.Float64()*0.50}
		b := geo.Position{Lat: 28.40 + o.rng.Float64()*0.40, Lng: 77.00 + o.rng.Float64()*0.50}
		if geo.PathIntersectsZone(a, b, zones) == nil {
			kept++
		}
	}
	return kept
}

// Route satisfies the engine's router contract. Untrained it is exactly
// the geometric route; trained it additionally drops detour waypoints
// whose shortcut stays clear of restricted airspace.
func (o *Optimizer) Route(start, end geo.Position, zones []geo.NoFlyZone) []geo.Position {
	base := geo.Route(start, end, zones)
	o.mu.Lock()
	trained := o.trained
	o.mu.Unlock()
	if !trained || len(base) <= 2 {
		return base
	}
	return shortcut(base, zones)
}

// shortcut greedily removes intermediate waypoints. From each kept point
// it jumps to the farthest later point reachable without crossing a zone.
func shortcut(route []geo.Position, zones []geo.NoFlyZone) []geo.Position {
	out := []geo.Position{route[0]}
	i := 0
	for i < len(route)-1 {
		next := i + 1
		for j := len(route) - 1; j > next; j-- {
			if geo.PathIntersectsZone(route[i], route[j], zones) == nil {
				next = j
				break
			}
		}
		out = append(out, route[next])
		i = next
	}
	return out
}

// PlannedRoute is one side of a comparison.
type PlannedRoute struct {
	Waypoints    []geo.Position `json:"waypoints"`
	DistanceKm   float64        `json:"distance_km"`
	TimeMinutes  float64        `json:"time_minutes"`
	BatteryUsage float64        `json:"battery_usage_pct"`
	SafetyScore  float64        `json:"safety_score"`
}

// Comparison contrasts the optimizer's route against the straight line.
type Comparison struct {
	Optimized      PlannedRoute `json:"optimized"`
	Direct         PlannedRoute `json:"direct"`
	DistanceSaved  float64      `json:"distance_saved_km"`
	TimeSaved      float64      `json:"time_saved_minutes"`
	BatterySaved   float64      `json:"battery_saved_pct"`
	ImprovementPct float64      `json:"improvement_pct"`
}

// Compare plans both routes between start and end and reports the delta.
// Negative savings mean the detour around restricted airspace costs more
// than the straight line it replaces.
func (o *Optimizer) Compare(start, end geo.Position, zones []geo.NoFlyZone) Comparison {
	opt := plannedRoute(o.Route(start, end, zones), zones)
	direct := plannedRoute(geo.DirectRoute(start, end), zones)
	c := Comparison{
		Optimized:     opt,
		Direct:        direct,
		DistanceSaved: direct.DistanceKm - opt.DistanceKm,
		TimeSaved:     direct.TimeMinutes - opt.TimeMinutes,
		BatterySaved:  direct.BatteryUsage - opt.BatteryUsage,
	}
	if direct.DistanceKm > 0 {
		c.ImprovementPct = c.DistanceSaved / direct.DistanceKm * 100
	}
	return c
}

func plannedRoute(waypoints []geo.Position, zones []geo.NoFlyZone) PlannedRoute {
	dist := geo.RouteDistance(waypoints)
	violations := 0
	for _, p := range waypoints {
		if geo.ZoneViolation(p, zones) != nil {
			violations++
		}
	}
	score := 100 - float64(violations)*25
	if score < 0 {
		score = 0
	}
	return PlannedRoute{
		Waypoints:    waypoints,
		DistanceKm:   dist,
		TimeMinutes:  geo.ETAMinutes(dist, compareSpeedKmh),
		BatteryUsage: dist * compareDrainPerKm,
		SafetyScore:  score,
	}
}
