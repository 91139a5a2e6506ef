package graphhopper

// DefaultDistanceInfluence is the engine's planned default weight of distance
// against time in the cost function.
const DefaultDistanceInfluence = 70.0

// CustomModel biases the engine's cost function. Custom models require the
// contraction-hierarchies speedup to be disabled on the request.
type CustomModel struct {
	Speed             []SpeedRule        `json:"speed,omitempty"`
	Areas             *FeatureCollection `json:"areas,omitempty"`
	DistanceInfluence float64            `json:"distance_influence"`
}

// SpeedRule is a conditional speed statement, e.g.
// {"if": "in_incident_42", "multiply_by": 0.5}.
type SpeedRule struct {
	If         string  `json:"if"`
	MultiplyBy float64 `json:"multiply_by"`
}

// FeatureCollection holds the named area polygons a custom model can
// reference. Feature IDs become `in_<id>` variables in rule conditions.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is a GeoJSON feature wrapping one area polygon.
type Feature struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Properties map[string]any `json:"properties,omitempty"`
	Geometry   Polygon        `json:"geometry"`
}

// Polygon is a GeoJSON polygon; the outer ring is closed (first point
// repeated last) and coordinates are (lon, lat) pairs.
type Polygon struct {
	Type        string        `json:"type"`
	Coordinates [][][]float64 `json:"coordinates"`
}

// NewFeatureCollection wraps features in a GeoJSON collection.
func NewFeatureCollection(features []Feature) *FeatureCollection {
	return &FeatureCollection{Type: "FeatureCollection", Features: features}
}

// NewAreaFeature builds a named polygon feature from a closed ring.
func NewAreaFeature(id string, ring [][]float64) Feature {
	return Feature{
		Type: "Feature",
		ID:   id,
		Geometry: Polygon{
			Type:        "Polygon",
			Coordinates: [][][]float64{ring},
		},
	}
}
