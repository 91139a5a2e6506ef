package service

import (
	"fmt"
	"math"

	"live-nav/internal/domain/incident"
	"live-nav/internal/general/graphhopper"
)

// Half-width of the avoidance square around an incident, in degrees of
// latitude. Roughly 15 meters; the longitude half-width is widened by
// 1/cos(lat) so the square keeps its metric size away from the equator.
const hazardHalfWidthDeg = 0.000135

// SpeedMultiplier maps an incident type to the factor applied to edge speeds
// inside its avoidance zone. road_closed zeroes the speed, which the engine
// treats as impassable.
func SpeedMultiplier(t incident.Type) float64 {
	switch t {
	case incident.TypeAccident:
		return 0.8
	case incident.TypeTrafficJam:
		return 0.5
	case incident.TypeRoadClosed:
		return 0.0
	case incident.TypePoliceControl:
		return 0.9
	case incident.TypeRoadblock:
		return 0.7
	default:
		return 1.0
	}
}

// hazardRing builds the closed square ring around an incident location as
// [lon, lat] pairs, first corner repeated last.
func hazardRing(inc incident.Incident) [][]float64 {
	dLat := hazardHalfWidthDeg
	dLon := hazardHalfWidthDeg / math.Cos(inc.Latitude*math.Pi/180)

	sw := []float64{inc.Longitude - dLon, inc.Latitude - dLat}
	se := []float64{inc.Longitude + dLon, inc.Latitude - dLat}
	ne := []float64{inc.Longitude + dLon, inc.Latitude + dLat}
	nw := []float64{inc.Longitude - dLon, inc.Latitude + dLat}

	return [][]float64{sw, se, ne, nw, sw}
}

// BuildCustomModel translates recent incidents into a routing custom model:
// one area and one speed rule per incident. A nil model is returned when
// there is nothing to avoid.
func BuildCustomModel(incidents []incident.Incident) *graphhopper.CustomModel {
	if len(incidents) == 0 {
		return nil
	}

	features := make([]graphhopper.Feature, 0, len(incidents))
	rules := make([]graphhopper.SpeedRule, 0, len(incidents))
	for _, inc := range incidents {
		id := fmt.Sprintf("incident_%d", inc.ID)
		features = append(features, graphhopper.NewAreaFeature(id, hazardRing(inc)))
		rules = append(rules, graphhopper.SpeedRule{
			If:         "in_" + id,
			MultiplyBy: SpeedMultiplier(inc.Type),
		})
	}

	return &graphhopper.CustomModel{
		Speed:             rules,
		Areas:             graphhopper.NewFeatureCollection(features),
		DistanceInfluence: graphhopper.DefaultDistanceInfluence,
	}
}
