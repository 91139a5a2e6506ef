package incident

import (
	"errors"
	"time"

	"live-nav/internal/domain/geo"
)

// Incident is the domain entity corresponding to the `incidents` table. It is
// written by the incident-management service; the navigation service only
// reads incidents to build hazard zones and nearby-incident reports.
type Incident struct {
	ID         int64     `json:"id"`
	Type       Type      `json:"type"`
	Longitude  float64   `json:"longitude"`
	Latitude   float64   `json:"latitude"`
	ReportedBy int64     `json:"reported_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

var (
	ErrInvalidID       = errors.New("incident id must be positive")
	ErrInvalidReporter = errors.New("incident reporter id must be positive")
	ErrBadTimestamps   = errors.New("updated_at cannot be before created_at")
)

// Validate checks invariants of the Incident entity.
func (inc *Incident) Validate() error {
	if inc.ID <= 0 {
		return ErrInvalidID
	}
	if !inc.Type.Valid() {
		return ErrInvalidType
	}
	if _, err := geo.NewPoint(inc.Latitude, inc.Longitude); err != nil {
		return err
	}
	if inc.ReportedBy <= 0 {
		return ErrInvalidReporter
	}
	if !inc.CreatedAt.IsZero() && !inc.UpdatedAt.IsZero() && inc.UpdatedAt.Before(inc.CreatedAt) {
		return ErrBadTimestamps
	}
	return nil
}

// Location returns the incident point in session order (lat, lon).
func (inc *Incident) Location() geo.Point {
	return geo.Point{Lat: inc.Latitude, Lon: inc.Longitude}
}
