package ports

import (
	"context"
	"time"

	"live-nav/internal/domain/incident"
	"live-nav/internal/domain/route"
	"live-nav/internal/domain/user"
)

// UnitOfWork interface is used to manage transactions across multiple repository operations.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository defines read access to user data. Account management is
// owned by the account service; the navigation service only resolves users
// during the admission handshake.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}

// RouteRepository defines read access to stored routes and their alternative paths.
type RouteRepository interface {
	GetByIDForUser(ctx context.Context, id, userID int64) (*route.Route, error)
}

// IncidentRepository defines the incident lookups the live session performs
// per inbound message.
type IncidentRepository interface {
	// ListRecent returns incidents created or modified since the given time,
	// newest first, bounded by limit.
	ListRecent(ctx context.Context, since time.Time, limit int) ([]incident.Incident, error)
	// ListNear returns all incidents within radiusMeters of (lat, lon).
	ListNear(ctx context.Context, lat, lon, radiusMeters float64) ([]incident.Incident, error)
}
