package contracts

import (
	"time"

	"live-nav/internal/domain/incident"
)

// IncidentReportedEvent is published by the incident-management service on the
// fanout exchange whenever an incident is created or updated.
type IncidentReportedEvent struct {
	Incident incident.Incident `json:"incident"`
	Envelope
}

// SessionEvent is the navigation telemetry message published on the topic
// exchange with the nav.session.* routing keys.
type SessionEvent struct {
	SessionID string    `json:"session_id"`
	UserID    int64     `json:"user_id"`
	RouteID   int64     `json:"route_id"`
	PathIndex int       `json:"path_index"`
	Location  *GeoPoint `json:"location,omitempty"`
	// DeviationMeters is set on deviation and reroute events.
	DeviationMeters float64   `json:"deviation_meters,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
	Envelope
}
