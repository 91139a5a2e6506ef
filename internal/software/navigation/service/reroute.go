package service

import (
	"context"
	"fmt"

	"live-nav/internal/domain/geo"
	"live-nav/internal/domain/incident"
	"live-nav/internal/general/contracts"
	"live-nav/internal/general/graphhopper"
	"live-nav/internal/general/websocket"
)

// reroute asks the routing engine for a fresh path from the deviated position
// to the session's original destination, steering around recent incidents,
// and installs the result as the session's current path.
func (s *NavigationService) reroute(ctx context.Context, sess *websocket.Session, loc geo.Point, profile string, recent []incident.Incident) (*graphhopper.RouteResponse, error) {
	dest, ok := sess.LastPathPoint()
	if !ok {
		return nil, fmt.Errorf("session has no destination")
	}

	// the engine rejects custom models unless ch.disable is set
	req := graphhopper.RouteRequest{
		Profile:       profile,
		Points:        [][]float64{loc.LonLat(), dest.LonLat()},
		Locale:        s.locale,
		CustomModel:   BuildCustomModel(recent),
		CHDisable:     true,
		PointsEncoded: false,
	}

	resp, err := s.engine.Route(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Paths) == 0 {
		return nil, fmt.Errorf("engine returned no paths")
	}

	fresh, err := pathPoints(resp.Paths[0])
	if err != nil {
		return nil, err
	}
	sess.ReplacePath(fresh)

	s.logger.Info(ctx, "session_rerouted", "Installed recomputed path for session", map[string]any{
		"distance_meters": resp.Paths[0].DistanceMeters,
		"time_ms":         resp.Paths[0].TimeMs,
		"points":          len(fresh),
		"avoided":         len(recent),
	})
	s.publishSessionEvent(ctx, contracts.RouteRerouted, sess, &loc, 0)

	return resp, nil
}

// pathPoints converts the engine's (lon, lat) line geometry into the
// session's (lat, lon) point order.
func pathPoints(p graphhopper.EnginePath) ([]geo.Point, error) {
	coords := p.Points.Coordinates
	if len(coords) < 2 {
		return nil, fmt.Errorf("engine path has %d coordinates", len(coords))
	}
	points := make([]geo.Point, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			return nil, fmt.Errorf("engine coordinate has %d values", len(c))
		}
		points = append(points, geo.Point{Lat: c[1], Lon: c[0]})
	}
	return points, nil
}
