package service

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"live-nav/internal/domain/geo"
	"live-nav/internal/general/contracts"
	"live-nav/internal/general/rabbitmq"
	"live-nav/internal/general/websocket"
)

// StartIncidentAlerts consumes incident-report fanout messages and pushes an
// alert to every live session currently within range of the new incident.
// Blocks until ctx is cancelled; run it in its own goroutine.
func (s *NavigationService) StartIncidentAlerts(ctx context.Context, client *rabbitmq.Client, registry *websocket.Registry, prefetch int) error {
	return client.Consume(ctx, contracts.QueueIncidentAlerts, "navigation-service-alerts", prefetch,
		func(msgCtx context.Context, d amqp.Delivery) error {
			return s.handleIncidentReported(msgCtx, registry, d.Body)
		})
}

func (s *NavigationService) handleIncidentReported(ctx context.Context, registry *websocket.Registry, body []byte) error {
	var evt contracts.IncidentReportedEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return fmt.Errorf("decode incident event: %w", err)
	}
	if err := evt.Incident.Validate(); err != nil {
		return fmt.Errorf("invalid incident in event: %w", err)
	}

	// fresh incident changes what the avoidance model should see
	if s.cache != nil {
		s.cache.Invalidate(ctx, recentIncidentCap)
	}

	origin := evt.Incident.Location()
	alerted := 0
	registry.Range(func(sess *websocket.Session) bool {
		loc, ok := sess.LastLocation()
		if !ok {
			return true
		}
		dist := geo.Haversine(origin, loc)
		if dist > alertRadiusMeters {
			return true
		}
		alert := contracts.IncidentAlert{
			Type:           contracts.FrameIncidentAlert,
			Incident:       evt.Incident,
			DistanceMeters: dist,
		}
		if err := sess.WriteJSON(alert); err != nil {
			s.logger.Error(ctx, "incident_alert_failed", "Failed to push incident alert", err, map[string]any{
				"session_id": sess.ID,
			})
			return true
		}
		alerted++
		return true
	})

	s.logger.Info(ctx, "incident_alert_fanout", "Processed incident report", map[string]any{
		"incident_id":   evt.Incident.ID,
		"incident_type": string(evt.Incident.Type),
		"alerted":       alerted,
	})
	return nil
}
