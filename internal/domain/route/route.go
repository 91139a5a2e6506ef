package route

import (
	"errors"
	"strings"
	"time"
)

// Route is the domain entity corresponding to the `routes` table. A route is
// created once with up to three alternative paths returned by the routing
// engine; the alternatives are immutable afterwards.
type Route struct {
	ID        int64
	UserID    int64
	Name      string
	Paths     []Path
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MaxAlternatives is the number of alternative paths stored per route.
const MaxAlternatives = 3

var (
	ErrInvalidID     = errors.New("route id must be positive")
	ErrInvalidOwner  = errors.New("route owner id must be positive")
	ErrEmptyName     = errors.New("route name cannot be empty")
	ErrNoPaths       = errors.New("route must have at least one path")
	ErrTooManyPaths  = errors.New("route cannot have more than three alternative paths")
	ErrPathIndexOOB  = errors.New("path index out of range")
	ErrBadTimestamps = errors.New("updated_at cannot be before created_at")
)

// Validate checks invariants of the Route entity.
func (route *Route) Validate() error {
	if route.ID <= 0 {
		return ErrInvalidID
	}
	if route.UserID <= 0 {
		return ErrInvalidOwner
	}
	if strings.TrimSpace(route.Name) == "" {
		return ErrEmptyName
	}
	if len(route.Paths) == 0 {
		return ErrNoPaths
	}
	if len(route.Paths) > MaxAlternatives {
		return ErrTooManyPaths
	}
	for i := range route.Paths {
		if err := route.Paths[i].Validate(); err != nil {
			return err
		}
	}
	if !route.CreatedAt.IsZero() && !route.UpdatedAt.IsZero() && route.UpdatedAt.Before(route.CreatedAt) {
		return ErrBadTimestamps
	}
	return nil
}

// PathAt returns the alternative at index or ErrPathIndexOOB.
func (route *Route) PathAt(index int) (*Path, error) {
	if index < 0 || index >= len(route.Paths) {
		return nil, ErrPathIndexOOB
	}
	return &route.Paths[index], nil
}
