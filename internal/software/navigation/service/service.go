package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"live-nav/internal/domain/geo"
	"live-nav/internal/domain/incident"
	"live-nav/internal/general/cache"
	"live-nav/internal/general/contracts"
	"live-nav/internal/general/logger"
	"live-nav/internal/general/websocket"
	"live-nav/internal/ports"
)

const (
	// window and cap for incidents folded into the avoidance model
	recentIncidentWindow = 30 * time.Minute
	recentIncidentCap    = 200

	// radius for the advisory incident list attached to every update
	nearIncidentRadiusMeters = 500.0

	// radius for pushed incident alerts on live sessions
	alertRadiusMeters = 1000.0

	defaultProfile = "car"
)

// NavigationService turns inbound location frames into navigation updates.
// One instance serves all live sessions.
type NavigationService struct {
	logger    *logger.Logger
	uow       ports.UnitOfWork
	incidents ports.IncidentRepository
	engine    ports.RoutingEngine
	publisher ports.EventPublisher
	cache     *cache.IncidentCache
	locale    string
}

func NewNavigationService(
	logger *logger.Logger,
	uow ports.UnitOfWork,
	incidents ports.IncidentRepository,
	engine ports.RoutingEngine,
	publisher ports.EventPublisher,
	incidentCache *cache.IncidentCache,
	locale string,
) *NavigationService {
	if locale == "" {
		locale = "en"
	}
	return &NavigationService{
		logger:    logger,
		uow:       uow,
		incidents: incidents,
		engine:    engine,
		publisher: publisher,
		cache:     incidentCache,
		locale:    locale,
	}
}

// HandleLocation processes a single reported position for a live session.
//
// The reported point is tested against the session's current path; a
// deviation triggers a recomputation that steers around recently reported
// incidents. Every response carries the incidents within advisory range of
// the reported point, deviated or not.
func (s *NavigationService) HandleLocation(ctx context.Context, sess *websocket.Session, msg contracts.LocationMessage) (*contracts.NavigationUpdate, error) {
	loc, err := parseLocation(msg.Location)
	if err != nil {
		return nil, err
	}
	sess.SetLastLocation(loc)

	profile := msg.Profile
	if profile == "" {
		profile = defaultProfile
	}

	recent, err := s.recentIncidents(ctx)
	if err != nil {
		return nil, fmt.Errorf("load recent incidents: %w", err)
	}

	update := &contracts.NavigationUpdate{Type: contracts.FrameNavigationUpdate}

	path := sess.CurrentPath()
	if !geo.IsPointOnRoute(loc, path, geo.DefaultDeviationThresholdMeters) {
		deviation := geo.MinDistanceToRoute(loc, path)
		s.logger.Info(ctx, "route_deviation", "Session deviated from route", map[string]any{
			"deviation_meters": deviation,
			"lat":              loc.Lat,
			"lng":              loc.Lon,
		})
		s.publishSessionEvent(ctx, contracts.RouteDeviation, sess, &loc, deviation)

		resp, err := s.reroute(ctx, sess, loc, profile, recent)
		if err != nil {
			return nil, fmt.Errorf("reroute: %w", err)
		}
		update.GraphHopperResponse = resp.Raw
	}

	near, err := s.nearbyIncidents(ctx, loc)
	if err != nil {
		return nil, fmt.Errorf("load nearby incidents: %w", err)
	}
	update.NearIncidents = near

	return update, nil
}

// SessionStarted publishes a lifecycle event for a newly admitted session.
func (s *NavigationService) SessionStarted(ctx context.Context, sess *websocket.Session) {
	s.publishSessionEvent(ctx, contracts.RouteSessionStarted, sess, nil, 0)
}

// SessionClosed publishes a lifecycle event when a session's connection ends.
func (s *NavigationService) SessionClosed(ctx context.Context, sess *websocket.Session) {
	var last *geo.Point
	if loc, ok := sess.LastLocation(); ok {
		last = &loc
	}
	s.publishSessionEvent(ctx, contracts.RouteSessionClosed, sess, last, 0)
}

// recentIncidents loads incidents reported or updated inside the avoidance
// window. Runs in its own transaction so the routing-engine call that may
// follow never holds a database connection.
func (s *NavigationService) recentIncidents(ctx context.Context) ([]incident.Incident, error) {
	var out []incident.Incident
	err := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		out, err = s.incidents.ListRecent(txCtx, time.Now().UTC().Add(-recentIncidentWindow), recentIncidentCap)
		return err
	})
	return out, err
}

func (s *NavigationService) nearbyIncidents(ctx context.Context, loc geo.Point) ([]incident.Incident, error) {
	var out []incident.Incident
	err := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		out, err = s.incidents.ListNear(txCtx, loc.Lat, loc.Lon, nearIncidentRadiusMeters)
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		// the advisory list is always present on the wire, even when empty
		out = []incident.Incident{}
	}
	return out, nil
}

func (s *NavigationService) publishSessionEvent(ctx context.Context, routingKey string, sess *websocket.Session, loc *geo.Point, deviation float64) {
	if s.publisher == nil {
		return
	}
	evt := contracts.SessionEvent{
		SessionID:       sess.ID,
		UserID:          sess.UserID,
		RouteID:         sess.RouteID,
		PathIndex:       sess.PathIndex,
		DeviationMeters: deviation,
		OccurredAt:      time.Now().UTC(),
		Envelope:        contracts.NewEnvelope("navigation-service"),
	}
	if loc != nil {
		evt.Location = &contracts.GeoPoint{Lat: loc.Lat, Lng: loc.Lon}
	}
	body, err := json.Marshal(evt)
	if err != nil {
		s.logger.Error(ctx, "event_marshal_failed", "Failed to marshal session event", err, nil)
		return
	}
	// telemetry is best effort; a broker hiccup must not fail the update
	if err := s.publisher.Publish(contracts.ExchangeNavTopic, routingKey, body); err != nil {
		s.logger.Error(ctx, "event_publish_failed", "Failed to publish session event", err, map[string]any{
			"routing_key": routingKey,
		})
	}
}

// parseLocation validates a raw [longitude, latitude] pair. Failures count
// as parse errors for the transport, not processing errors.
func parseLocation(raw []float64) (geo.Point, error) {
	if len(raw) != 2 {
		return geo.Point{}, fmt.Errorf("%w: location must be [longitude, latitude], got %d values", websocket.ErrBadMessage, len(raw))
	}
	p, err := geo.NewPoint(raw[1], raw[0])
	if err != nil {
		return geo.Point{}, fmt.Errorf("%w: %v", websocket.ErrBadMessage, err)
	}
	return p, nil
}
