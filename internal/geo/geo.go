// Package geo holds the flat-earth-free flight geometry used by the
// simulator: great-circle distances, bearings, point-in-polygon tests
// against restricted airspace, and the heuristic detour router.
//
// Everything here is a pure function over value types so the world loop
// can call into it without synchronization.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used by the haversine distance.
const EarthRadiusKm = 6371.0

// Position is a point in the service area. Altitude is meters above ground.
type Position struct {
	Lat      float64 `json:"lat" yaml:"lat"`
	Lng      float64 `json:"lng" yaml:"lng"`
	Altitude float64 `json:"altitude" yaml:"altitude"`
}

// NoFlyZone is a closed polygon of restricted airspace. Only zones with
// Active set participate in violation checks and routing.
type NoFlyZone struct {
	ID       string     `json:"id" yaml:"id"`
	Name     string     `json:"name" yaml:"name"`
	Polygon  []Position `json:"polygon" yaml:"polygon"`
	Severity string     `json:"severity" yaml:"severity"`
	Reason   string     `json:"reason" yaml:"reason"`
	Active   bool       `json:"active" yaml:"active"`
}

func toRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// Distance returns the great-circle distance between two positions in
// kilometers (haversine on a spherical earth). Altitude is ignored.
func Distance(a, b Position) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// Bearing returns the initial heading from a to b in degrees [0, 360).
func Bearing(a, b Position) float64 {
	dLng := toRad(b.Lng - a.Lng)
	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)

	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)

	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// Interpolate returns the linear blend of a and b at the given fraction.
// Callers are expected to pass fractions in [0, 1].
func Interpolate(a, b Position, fraction float64) Position {
	return Position{
		Lat:      a.Lat + (b.Lat-a.Lat)*fraction,
		Lng:      a.Lng + (b.Lng-a.Lng)*fraction,
		Altitude: a.Altitude + (b.Altitude-a.Altitude)*fraction,
	}
}

// PointInPolygon reports whether p lies inside the polygon's lat/lng ring,
// using the standard even-odd ray cast.
func PointInPolygon(p Position, polygon []Position) bool {
	inside := false
	for i, j := 0, len(polygon)-1; i < len(polygon); j, i = i, i+1 {
		xi, yi := polygon[i].Lng, polygon[i].Lat
		xj, yj := polygon[j].Lng, polygon[j].Lat

		if (yi > p.Lat) != (yj > p.Lat) &&
			p.Lng < (xj-xi)*(p.Lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// ZoneViolation returns the first active zone containing p, or nil.
func ZoneViolation(p Position, zones []NoFlyZone) *NoFlyZone {
	for i := range zones {
		if zones[i].Active && PointInPolygon(p, zones[i].Polygon) {
			return &zones[i]
		}
	}
	return nil
}

// PathIntersectsZone samples the segment from start to end at 5% steps and
// returns the first zone violated by a sample, or nil. Zones thinner than
// the sampling interval can slip through; that is an accepted trade-off of
// keeping the check cheap enough to run on every route leg.
func PathIntersectsZone(start, end Position, zones []NoFlyZone) *NoFlyZone {
	for fraction := 0.0; fraction <= 1.0; fraction += 0.05 {
		point := Interpolate(start, end, fraction)
		if violation := ZoneViolation(point, zones); violation != nil {
			return violation
		}
	}
	return nil
}

// maxAvoidanceWaypoints caps route complexity; beyond it the router gives
// up and returns its best effort.
const maxAvoidanceWaypoints = 5

// avoidanceOffsetDeg is roughly 3km expressed in degrees, the lateral
// clearance the router aims for when stepping around a zone.
const avoidanceOffsetDeg = 0.03

func polygonCentroid(polygon []Position) (lat, lng float64) {
	for _, p := range polygon {
		lat += p.Lat
		lng += p.Lng
	}
	n := float64(len(polygon))
	return lat / n, lng / n
}

// Route plans a path from start to end that detours around active no-fly
// zones by inserting up to 5 perpendicular-offset waypoints. It is a
// best-effort heuristic: pathological zone layouts can exhaust the
// waypoint budget, in which case the remaining straight segment is
// accepted as-is. The result always begins with start and ends with end.
func Route(start, end Position, zones []NoFlyZone) []Position {
	route := []Position{start}
	current := start

	for added := 0; added < maxAvoidanceWaypoints; added++ {
		violation := PathIntersectsZone(current, end, zones)
		if violation == nil {
			break
		}

		centerLat, centerLng := polygonCentroid(violation.Polygon)

		perpBearing := math.Mod(Bearing(start, end)+90, 360)
		offsetLat := math.Cos(toRad(perpBearing)) * avoidanceOffsetDeg
		offsetLng := math.Sin(toRad(perpBearing)) * avoidanceOffsetDeg

		waypoint := Position{Lat: centerLat + offsetLat, Lng: centerLng + offsetLng, Altitude: 100}
		if PointInPolygon(waypoint, violation.Polygon) {
			waypoint = Position{Lat: centerLat - offsetLat, Lng: centerLng - offsetLng, Altitude: 100}
		}

		if ZoneViolation(waypoint, zones) == nil {
			route = append(route, waypoint)
			current = waypoint
			continue
		}

		// Opposite perpendicular side.
		altBearing := math.Mod(Bearing(start, end)-90+360, 360)
		altOffsetLat := math.Cos(toRad(altBearing)) * avoidanceOffsetDeg
		altOffsetLng := math.Sin(toRad(altBearing)) * avoidanceOffsetDeg

		altWaypoint := Position{Lat: centerLat + altOffsetLat, Lng: centerLng + altOffsetLng, Altitude: 100}
		if ZoneViolation(altWaypoint, zones) == nil {
			route = append(route, altWaypoint)
			current = altWaypoint
			continue
		}

		// Both sides blocked: push farther out on the alternate side and
		// climb. Accepted without re-validation; the waypoint budget keeps
		// this from looping.
		farWaypoint := Position{
			Lat:      centerLat + altOffsetLat*2,
			Lng:      centerLng + altOffsetLng*2,
			Altitude: 120,
		}
		route = append(route, farWaypoint)
		current = farWaypoint
	}

	return append(route, end)
}

// DirectRoute is the trivial two-point route, used as the comparison
// baseline by the route optimizer.
func DirectRoute(start, end Position) []Position {
	return []Position{start, end}
}

// RouteDistance sums the leg distances of a route in kilometers.
func RouteDistance(route []Position) float64 {
	var total float64
	for i := 0; i+1 < len(route); i++ {
		total += Distance(route[i], route[i+1])
	}
	return total
}

// ETAMinutes converts a distance in km and a speed in km/h to minutes.
func ETAMinutes(distanceKm, speedKmh float64) float64 {
	if speedKmh == 0 {
		return 0
	}
	return distanceKm / speedKmh * 60
}

// FlightAltitude picks the cruise altitude band for a leg based on its
// bearing quadrant: north/south traffic flies at 80m, east/west at 100m.
// Crossing routes therefore tend to be vertically separated.
func FlightAltitude(start, end Position) float64 {
	bearing := Bearing(start, end)
	if bearing >= 315 || bearing < 45 || (bearing >= 135 && bearing < 225) {
		return 80
	}
	return 100
}
