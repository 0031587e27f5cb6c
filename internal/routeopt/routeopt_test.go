package routeopt

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"skyfleet.ai/internal/geo"
)

var testZones = []geo.NoFlyZone{
	{
		ID:   "nfz-test",
		Name: "Test Zone",
		Polygon: []geo.Position{
			{Lat: 28.55, Lng: 77.10},
			{Lat: 28.55, Lng: 77.14},
			{Lat: 28.59, Lng: 77.14},
			{Lat: 28.59, Lng: 77.10},
		},
		Severity: "CRITICAL",
		Active:   true,
	},
}

func waitTrained(t *testing.T, o *Optimizer) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if s := o.Status(); s.Trained && !s.Training {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("training did not finish")
}

func TestUntrainedFallsBackToGeometricRoute(t *testing.T) {
	o := New(1, zerolog.Nop())
	start := geo.Position{Lat: 28.50, Lng: 77.05}
	end := geo.Position{Lat: 28.64, Lng: 77.20}

	got := o.Route(start, end, testZones)
	want := geo.Route(start, end, testZones)
	if len(got) != len(want) {
		t.Fatalf("untrained route has %d waypoints, geometric has %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("waypoint %d differs: %+v vs %+v", i, got[i], want[i])
		}
	}
}

func TestTrainReportsProgressAndCompletes(t *testing.T) {
	o := New(1, zerolog.Nop())
	if s := o.Status(); s.Trained || s.Training {
		t.Fatalf("fresh optimizer status %+v", s)
	}
	if !o.Train(10, testZones) {
		t.Fatal("Train refused on idle optimizer")
	}
	waitTrained(t, o)
	s := o.Status()
	if s.Progress != 100 || s.Samples == 0 {
		t.Fatalf("post-training status %+v", s)
	}
}

func TestTrainRejectsConcurrentRun(t *testing.T) {
	o := New(1, zerolog.Nop())
	o.mu.Lock()
	o.training = true
	o.mu.Unlock()
	if o.Train(10, testZones) {
		t.Fatal("concurrent Train accepted")
	}
	o.mu.Lock()
	o.training = false
	o.mu.Unlock()
	if !o.Train(10, testZones) {
		t.Fatal("Train refused on idle optimizer")
	}
	waitTrained(t, o)
}

func TestTrainedRouteNeverCrossesZonesAndNeverLonger(t *testing.T) {
	o := New(7, zerolog.Nop())
	o.Train(5, testZones)
	waitTrained(t, o)

	start := geo.Position{Lat: 28.50, Lng: 77.05}
	end := geo.Position{Lat: 28.64, Lng: 77.20}
	base := geo.Route(start, end, testZones)
	got := o.Route(start, end, testZones)

	if got[0] != start || got[len(got)-1] != end {
		t.Fatal("route endpoints changed")
	}
	for i := 0; i < len(got)-1; i++ {
		if z := geo.PathIntersectsZone(got[i], got[i+1], testZones); z != nil {
			t.Fatalf("refined leg %d crosses zone %s", i, z.ID)
		}
	}
	if geo.RouteDistance(got) > geo.RouteDistance(base)+1e-9 {
		t.Fatalf("refined route longer than geometric: %v > %v",
			geo.RouteDistance(got), geo.RouteDistance(base))
	}
}

func TestCompare(t *testing.T) {
	o := New(1, zerolog.Nop())
	start := geo.Position{Lat: 28.50, Lng: 77.05}
	end := geo.Position{Lat: 28.64, Lng: 77.20}

	c := o.Compare(start, end, nil)
	if c.Optimized.DistanceKm != c.Direct.DistanceKm {
		t.Fatalf("with no zones both routes should match: %+v", c)
	}
	if c.DistanceSaved != 0 || c.ImprovementPct != 0 {
		t.Fatalf("no-zone comparison should show zero savings: %+v", c)
	}
	if c.Direct.TimeMinutes <= 0 || c.Direct.BatteryUsage <= 0 {
		t.Fatalf("direct route metrics empty: %+v", c.Direct)
	}

	// A detour around the zone costs distance relative to the straight line.
	c = o.Compare(start, end, testZones)
	if c.Optimized.DistanceKm < c.Direct.DistanceKm {
		t.Fatalf("detour should not be shorter than straight line: %+v", c)
	}
	if c.DistanceSaved > 0 {
		t.Fatalf("savings should be non-positive when detouring: %v", c.DistanceSaved)
	}
	if c.Direct.SafetyScore != 100 {
		t.Fatalf("direct endpoints are outside the zone, score = %v", c.Direct.SafetyScore)
	}
}
