package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"live-nav/internal/domain/route"
	"live-nav/internal/ports"
)

// RouteRepo reads routes using pgx and plain SQL. The alternative paths are
// stored as a JSONB array of {points, distance_meters, duration_ms} objects,
// `points` being the encoded (lon, lat) polyline.
type RouteRepo struct{}

// NewRouteRepo constructs a new RouteRepo.
func NewRouteRepo() ports.RouteRepository {
	return &RouteRepo{}
}

// GetByIDForUser returns the route only when it is owned by userID; a route
// owned by someone else behaves exactly like a missing route.
func (repo *RouteRepo) GetByIDForUser(ctx context.Context, id, userID int64) (*route.Route, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		SELECT id, user_id, name, paths, created_at, updated_at
		FROM routes
		WHERE id = $1
		  AND user_id = $2
	`, id, userID)

	return scanRoute(row)
}

func scanRoute(row pgx.Row) (*route.Route, error) {
	var (
		out      route.Route
		pathsRaw []byte
	)

	err := row.Scan(
		&out.ID, &out.UserID, &out.Name, &pathsRaw,
		&out.CreatedAt, &out.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if len(pathsRaw) > 0 {
		if err := json.Unmarshal(pathsRaw, &out.Paths); err != nil {
			return nil, fmt.Errorf("decode route paths: %w", err)
		}
	}

	return &out, nil
}
