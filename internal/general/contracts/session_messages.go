package contracts

import (
	"encoding/json"

	"live-nav/internal/domain/incident"
)

// LocationMessage is the inbound session frame:
// { "location": [lon, lat], "profile": "car" }.
type LocationMessage struct {
	Location []float64 `json:"location"`
	Profile  string    `json:"profile"`
}

// NavigationUpdate is the outbound frame sent once per inbound message.
// GraphHopperResponse is the raw engine body, present only when a reroute
// happened.
type NavigationUpdate struct {
	Type                string              `json:"type"`
	GraphHopperResponse json.RawMessage     `json:"graphhopper_response,omitempty"`
	NearIncidents       []incident.Incident `json:"nearIncidents"`
}

// ErrorFrame tells the client a message could not be served; the connection
// stays open and the client may retry or keep following its last known path.
type ErrorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// IncidentAlert is pushed to sessions near a freshly reported incident.
type IncidentAlert struct {
	Type           string            `json:"type"`
	Incident       incident.Incident `json:"incident"`
	DistanceMeters float64           `json:"distance_meters"`
}

// Frame type tags.
const (
	FrameNavigationUpdate = "navigation_update"
	FrameError            = "error"
	FrameIncidentAlert    = "incident_alert"
)

// NewErrorFrame builds a typed error frame.
func NewErrorFrame(msg string) ErrorFrame {
	return ErrorFrame{Type: FrameError, Error: msg}
}
