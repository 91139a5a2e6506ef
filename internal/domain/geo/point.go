package geo

import "errors"

// Point is a geographic coordinate. Session-internal order is (lat, lon);
// storage and the routing engine use (lon, lat), with explicit conversions.
type Point struct {
	Lat float64
	Lon float64
}

var (
	ErrInvalidLatitude  = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180")
)

// NewPoint validates coordinate ranges and returns a Point.
func NewPoint(lat, lon float64) (Point, error) {
	p := Point{Lat: lat, Lon: lon}
	if err := p.Validate(); err != nil {
		return Point{}, err
	}
	return p, nil
}

// Validate checks coordinate ranges.
func (p Point) Validate() error {
	if p.Lat < -90 || p.Lat > 90 {
		return ErrInvalidLatitude
	}
	if p.Lon < -180 || p.Lon > 180 {
		return ErrInvalidLongitude
	}
	return nil
}

// LonLat returns the point as a [lon, lat] pair for the routing engine.
func (p Point) LonLat() []float64 { return []float64{p.Lon, p.Lat} }
