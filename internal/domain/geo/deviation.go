package geo

import "math"

// earthRadiusMeters is the mean Earth radius used by the haversine formula.
const earthRadiusMeters = 6371000.0

// DefaultDeviationThresholdMeters is the tolerance used by live sessions when
// deciding whether a reported location is still on the current path.
const DefaultDeviationThresholdMeters = 10.0

// Haversine returns the great-circle distance between two points in meters.
func Haversine(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

// DistanceToSegment returns the distance in meters from p to the segment
// (a, b). The projection parameter is computed by clamped planar projection in
// degree space and the resulting distance is measured with the haversine
// formula. This is an approximation: at city-scale segment lengths and the
// ~10 m tolerances used here the error is negligible, but it is not a true
// geodesic projection.
func DistanceToSegment(p, a, b Point) float64 {
	dLat := b.Lat - a.Lat
	dLon := b.Lon - a.Lon

	// degenerate segment: both endpoints coincide
	lenSq := dLat*dLat + dLon*dLon
	if lenSq == 0 {
		return Haversine(p, a)
	}

	t := ((p.Lat-a.Lat)*dLat + (p.Lon-a.Lon)*dLon) / lenSq
	t = math.Max(0, math.Min(1, t))

	projected := Point{
		Lat: a.Lat + t*dLat,
		Lon: a.Lon + t*dLon,
	}

	return Haversine(p, projected)
}

// IsPointOnRoute reports whether p lies strictly within thresholdMeters of at
// least one segment of path. A path with fewer than two points never matches.
func IsPointOnRoute(p Point, path []Point, thresholdMeters float64) bool {
	for i := 0; i+1 < len(path); i++ {
		if DistanceToSegment(p, path[i], path[i+1]) < thresholdMeters {
			return true
		}
	}
	return false
}

// MinDistanceToRoute returns the minimum distance in meters from p to any
// segment of path, or +Inf for a path with fewer than two points.
func MinDistanceToRoute(p Point, path []Point) float64 {
	min := math.Inf(1)
	for i := 0; i+1 < len(path); i++ {
		if d := DistanceToSegment(p, path[i], path[i+1]); d < min {
			min = d
		}
	}
	return min
}
