package route

import (
	"errors"

	"github.com/twpayne/go-polyline"

	"live-nav/internal/domain/geo"
)

// Path is one concrete polyline alternative belonging to a Route. Points is
// the encoded polyline in storage order, i.e. (lon, lat) pairs.
type Path struct {
	Points         string  `json:"points"`
	DistanceMeters float64 `json:"distance_meters"`
	DurationMs     int64   `json:"duration_ms"`
}

var (
	ErrEmptyPolyline    = errors.New("path polyline cannot be empty")
	ErrNegativeDistance = errors.New("path distance cannot be negative")
	ErrNegativeDuration = errors.New("path duration cannot be negative")
)

// Validate checks invariants of a stored Path.
func (path *Path) Validate() error {
	if path.Points == "" {
		return ErrEmptyPolyline
	}
	if path.DistanceMeters < 0 {
		return ErrNegativeDistance
	}
	if path.DurationMs < 0 {
		return ErrNegativeDuration
	}
	return nil
}

// Decode unpacks the stored polyline into session-order (lat, lon) points.
// Storage keeps (lon, lat) pairs, so each decoded pair is swapped.
func (path *Path) Decode() ([]geo.Point, error) {
	coords, remaining, err := polyline.DecodeCoords([]byte(path.Points))
	if err != nil {
		return nil, err
	}
	if len(remaining) != 0 {
		return nil, errors.New("trailing bytes after polyline")
	}

	points := make([]geo.Point, 0, len(coords))
	for _, c := range coords {
		p, err := geo.NewPoint(c[1], c[0])
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}

// EncodePoints packs session-order (lat, lon) points into a storage-order
// (lon, lat) polyline string. Used when routes are seeded and in tests.
func EncodePoints(points []geo.Point) string {
	coords := make([][]float64, 0, len(points))
	for _, p := range points {
		coords = append(coords, []float64{p.Lon, p.Lat})
	}
	return string(polyline.EncodeCoords(coords))
}
