package graphhopper

import (
	"encoding/json"
	"fmt"
)

// RouteRequest is the body of POST /route. Points are (lon, lat) pairs, the
// engine's native order.
type RouteRequest struct {
	Profile       string       `json:"profile"`
	Points        [][]float64  `json:"points"`
	Locale        string       `json:"locale,omitempty"`
	CustomModel   *CustomModel `json:"custom_model,omitempty"`
	CHDisable     bool         `json:"ch.disable"`
	PointsEncoded bool         `json:"points_encoded"`
}

// RouteResponse is the decoded engine response. Raw preserves the exact body
// so the live session can forward it to the client untouched.
type RouteResponse struct {
	Paths []EnginePath    `json:"paths"`
	Raw   json.RawMessage `json:"-"`
}

// EnginePath is one computed path alternative.
type EnginePath struct {
	DistanceMeters float64    `json:"distance"`
	TimeMs         int64      `json:"time"`
	Points         LineString `json:"points"`
}

// LineString is a GeoJSON line geometry; coordinates are (lon, lat) pairs.
type LineString struct {
	Type        string      `json:"type"`
	Coordinates [][]float64 `json:"coordinates"`
}

// EngineError carries a non-success answer from the routing engine. The
// message is the engine's own, surfaced verbatim to the caller's logs.
type EngineError struct {
	StatusCode int
	Message    string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("graphhopper: status %d: %s", e.StatusCode, e.Message)
}

// Retryable reports whether the failure is worth retrying: request-credit
// exhaustion (429) and server-side errors are transient.
func (e *EngineError) Retryable() bool {
	switch e.StatusCode {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
