package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"live-nav/internal/domain/incident"
	"live-nav/internal/ports"
)

// IncidentRepo reads incidents using pgx and plain SQL. Incident writes are
// owned by the incident-management service.
type IncidentRepo struct{}

// NewIncidentRepo constructs a new IncidentRepo.
func NewIncidentRepo() ports.IncidentRepository {
	return &IncidentRepo{}
}

// ListRecent returns incidents created or modified since the given time,
// newest first, bounded by limit.
func (repo *IncidentRepo) ListRecent(ctx context.Context, since time.Time, limit int) ([]incident.Incident, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, type, longitude, latitude, reported_by, created_at, updated_at
		FROM incidents
		WHERE created_at >= $1
		   OR updated_at >= $1
		ORDER BY updated_at DESC
		LIMIT $2
	`, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanIncidents(rows)
}

// ListNear returns all incidents within radiusMeters of (lat, lon), nearest
// first. Distance is computed on the PostGIS geography type so the radius is
// in meters regardless of latitude.
func (repo *IncidentRepo) ListNear(ctx context.Context, lat, lon, radiusMeters float64) ([]incident.Incident, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, type, longitude, latitude, reported_by, created_at, updated_at
		FROM incidents
		WHERE ST_DWithin(
				ST_MakePoint(longitude, latitude)::geography,
				ST_MakePoint($2, $1)::geography,
				$3
			  )
		ORDER BY ST_Distance(
				ST_MakePoint(longitude, latitude)::geography,
				ST_MakePoint($2, $1)::geography
			  )
	`, lat, lon, radiusMeters)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanIncidents(rows)
}

func scanIncidents(rows pgx.Rows) ([]incident.Incident, error) {
	var out []incident.Incident
	for rows.Next() {
		var (
			inc      incident.Incident
			typeText string
		)
		if err := rows.Scan(
			&inc.ID, &typeText, &inc.Longitude, &inc.Latitude,
			&inc.ReportedBy, &inc.CreatedAt, &inc.UpdatedAt,
		); err != nil {
			return nil, err
		}
		inc.Type = incident.Type(typeText)
		out = append(out, inc)
	}
	return out, rows.Err()
}
