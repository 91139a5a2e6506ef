package contracts

// Exchanges
const (
	ExchangeNavTopic       = "nav_topic"
	ExchangeIncidentFanout = "incident_fanout"
)

// Queues
const (
	QueueNavEvents      = "nav_events"
	QueueIncidentAlerts = "incident_alerts"
)

// Routing patterns
const (
	RouteSessionStarted = "nav.session.started"
	RouteSessionClosed  = "nav.session.closed"
	RouteDeviation      = "nav.session.deviated"
	RouteRerouted       = "nav.session.rerouted"
)
