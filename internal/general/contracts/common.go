package contracts

import (
	"time"

	"github.com/google/uuid"
)

// Envelope adds cross-cutting headers all bus messages may carry.
type Envelope struct {
	CorrelationID string    `json:"correlation_id,omitempty"` // Correlation for tracing across services
	Producer      string    `json:"producer,omitempty"`       // Producer service name, e.g. "navigation-service"
	SentAt        time.Time `json:"sent_at,omitempty"`        // ISO-8601 send time (UTC)
}

// NewEnvelope stamps a message with a fresh correlation id and send time.
func NewEnvelope(producer string) Envelope {
	return Envelope{
		CorrelationID: uuid.NewString(),
		Producer:      producer,
		SentAt:        time.Now().UTC(),
	}
}

// GeoPoint is the wire form of a coordinate on the message bus.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
