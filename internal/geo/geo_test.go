package geo

import (
	"math"
	"testing"
)

var (
	hubPos    = Position{Lat: 28.6139, Lng: 77.2090, Altitude: 0}
	northPos  = Position{Lat: 28.7041, Lng: 77.1025, Altitude: 0}
	squareNFZ = NoFlyZone{
		ID:   "nfz-test",
		Name: "Test Zone",
		Polygon: []Position{
			{Lat: 28.64, Lng: 77.14},
			{Lat: 28.68, Lng: 77.14},
			{Lat: 28.68, Lng: 77.18},
			{Lat: 28.64, Lng: 77.18},
		},
		Severity: "CRITICAL",
		Active:   true,
	}
)

func TestDistance_SymmetricAndZero(t *testing.T) {
	if d := Distance(hubPos, hubPos); d != 0 {
		t.Fatalf("distance to self = %v, want 0", d)
	}
	ab := Distance(hubPos, northPos)
	ba := Distance(northPos, hubPos)
	if math.Abs(ab-ba) > 1e-12 {
		t.Fatalf("distance not symmetric: %v vs %v", ab, ba)
	}
	// Delhi CP to Rohini is roughly 14-15km.
	if ab < 13 || ab > 16 {
		t.Fatalf("distance = %vkm, want ~14.5km", ab)
	}
}

func TestBearing_Quadrants(t *testing.T) {
	cases := []struct {
		name     string
		from, to Position
		min, max float64
	}{
		{"due north", Position{Lat: 28.0, Lng: 77.0}, Position{Lat: 29.0, Lng: 77.0}, 359.9, 0.1},
		{"due east", Position{Lat: 28.0, Lng: 77.0}, Position{Lat: 28.0, Lng: 78.0}, 89, 91},
		{"due south", Position{Lat: 29.0, Lng: 77.0}, Position{Lat: 28.0, Lng: 77.0}, 179.9, 180.1},
		{"due west", Position{Lat: 28.0, Lng: 78.0}, Position{Lat: 28.0, Lng: 77.0}, 269, 271},
	}
	for _, tc := range cases {
		b := Bearing(tc.from, tc.to)
		if b < 0 || b >= 360 {
			t.Fatalf("%s: bearing %v out of [0,360)", tc.name, b)
		}
		if tc.min < tc.max {
			if b < tc.min || b > tc.max {
				t.Fatalf("%s: bearing = %v, want in [%v,%v]", tc.name, b, tc.min, tc.max)
			}
		} else if b < tc.min && b > tc.max { // wraparound near 0
			t.Fatalf("%s: bearing = %v, want near 0/360", tc.name, b)
		}
	}
}

func TestInterpolate_Endpoints(t *testing.T) {
	a := Position{Lat: 28.0, Lng: 77.0, Altitude: 0}
	b := Position{Lat: 29.0, Lng: 78.0, Altitude: 100}

	if got := Interpolate(a, b, 0); got != a {
		t.Fatalf("fraction 0 = %+v, want start", got)
	}
	if got := Interpolate(a, b, 1); got != b {
		t.Fatalf("fraction 1 = %+v, want end", got)
	}
	mid := Interpolate(a, b, 0.5)
	if mid.Lat != 28.5 || mid.Lng != 77.5 || mid.Altitude != 50 {
		t.Fatalf("midpoint = %+v", mid)
	}
}

func TestPointInPolygon(t *testing.T) {
	inside := Position{Lat: 28.66, Lng: 77.16}
	outside := Position{Lat: 28.60, Lng: 77.16}

	if !PointInPolygon(inside, squareNFZ.Polygon) {
		t.Fatal("inside point not detected")
	}
	if PointInPolygon(outside, squareNFZ.Polygon) {
		t.Fatal("outside point detected as inside")
	}
}

func TestZoneViolation_ActiveOnly(t *testing.T) {
	inside := Position{Lat: 28.66, Lng: 77.16}

	if v := ZoneViolation(inside, []NoFlyZone{squareNFZ}); v == nil || v.ID != squareNFZ.ID {
		t.Fatalf("violation = %v, want %s", v, squareNFZ.ID)
	}

	inactive := squareNFZ
	inactive.Active = false
	if v := ZoneViolation(inside, []NoFlyZone{inactive}); v != nil {
		t.Fatalf("inactive zone reported violation %v", v)
	}
}

func TestPathIntersectsZone(t *testing.T) {
	// Segment passes straight through the square.
	start := Position{Lat: 28.66, Lng: 77.10}
	end := Position{Lat: 28.66, Lng: 77.22}
	if v := PathIntersectsZone(start, end, []NoFlyZone{squareNFZ}); v == nil {
		t.Fatal("crossing path not detected")
	}

	// Segment well south of the square.
	clearEnd := Position{Lat: 28.55, Lng: 77.22}
	clearStart := Position{Lat: 28.55, Lng: 77.10}
	if v := PathIntersectsZone(clearStart, clearEnd, []NoFlyZone{squareNFZ}); v != nil {
		t.Fatalf("clear path flagged against %s", v.ID)
	}
}

func TestRoute_EndpointsAndBudget(t *testing.T) {
	start := Position{Lat: 28.66, Lng: 77.10, Altitude: 80}
	end := Position{Lat: 28.66, Lng: 77.22, Altitude: 80}

	route := Route(start, end, []NoFlyZone{squareNFZ})
	if len(route) < 2 || len(route) > 2+maxAvoidanceWaypoints {
		t.Fatalf("route has %d waypoints, want 2..%d", len(route), 2+maxAvoidanceWaypoints)
	}
	if route[0] != start {
		t.Fatalf("route starts at %+v, want %+v", route[0], start)
	}
	if route[len(route)-1] != end {
		t.Fatalf("route ends at %+v, want %+v", route[len(route)-1], end)
	}
	// The detour must have inserted at least one waypoint.
	if len(route) == 2 {
		t.Fatal("route through active zone gained no avoidance waypoint")
	}
}

func TestRoute_NoZonesIsDirect(t *testing.T) {
	start := Position{Lat: 28.60, Lng: 77.10}
	end := Position{Lat: 28.62, Lng: 77.30}
	route := Route(start, end, nil)
	if len(route) != 2 {
		t.Fatalf("unobstructed route has %d waypoints, want 2", len(route))
	}
}

func TestRouteDistance(t *testing.T) {
	a := Position{Lat: 28.0, Lng: 77.0}
	b := Position{Lat: 28.1, Lng: 77.0}
	c := Position{Lat: 28.2, Lng: 77.0}

	sum := Distance(a, b) + Distance(b, c)
	if got := RouteDistance([]Position{a, b, c}); math.Abs(got-sum) > 1e-9 {
		t.Fatalf("route distance = %v, want %v", got, sum)
	}
	if got := RouteDistance([]Position{a}); got != 0 {
		t.Fatalf("single-point route distance = %v, want 0", got)
	}
}

func TestFlightAltitude_Bands(t *testing.T) {
	south := Position{Lat: 28.0, Lng: 77.0}
	north := Position{Lat: 29.0, Lng: 77.0}
	east := Position{Lat: 28.0, Lng: 78.0}

	if alt := FlightAltitude(south, north); alt != 80 {
		t.Fatalf("northbound altitude = %v, want 80", alt)
	}
	if alt := FlightAltitude(north, south); alt != 80 {
		t.Fatalf("southbound altitude = %v, want 80", alt)
	}
	if alt := FlightAltitude(south, east); alt != 100 {
		t.Fatalf("eastbound altitude = %v, want 100", alt)
	}
}

func TestETAMinutes(t *testing.T) {
	if got := ETAMinutes(30, 60); got != 30 {
		t.Fatalf("ETA = %v, want 30", got)
	}
	if got := ETAMinutes(10, 0); got != 0 {
		t.Fatalf("zero-speed ETA = %v, want 0", got)
	}
}
