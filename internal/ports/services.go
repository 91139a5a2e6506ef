package ports

import (
	"context"

	"live-nav/internal/general/graphhopper"
)

// RoutingEngine abstracts the remote routing service consumed by the reroute
// orchestrator. The production implementation is the GraphHopper HTTP client;
// tests substitute a stub.
type RoutingEngine interface {
	Route(ctx context.Context, req graphhopper.RouteRequest) (*graphhopper.RouteResponse, error)
}

// EventPublisher abstracts the message-bus publisher used for navigation telemetry.
type EventPublisher interface {
	Publish(exchange, routingKey string, body []byte) error
}
