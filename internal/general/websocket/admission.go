package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"live-nav/internal/domain/geo"
	"live-nav/internal/domain/route"
	"live-nav/internal/domain/user"
	"live-nav/internal/general/jwt"
	"live-nav/internal/general/postgres"
	"live-nav/internal/ports"
)

// Admission failure reasons. Callers never forward these to the client, since
// a refused upgrade destroys the transport without explanation; the taxonomy
// keeps refusals testable and the logs precise.
var (
	ErrBadTarget      = errors.New("target does not match the navigate pattern")
	ErrUnknownCaller  = errors.New("token subject does not resolve to a user")
	ErrForbidden      = errors.New("caller is neither the target user nor an admin")
	ErrUnknownUser    = errors.New("target user does not exist")
	ErrUnknownRoute   = errors.New("route does not exist or is not owned by the target user")
	ErrPathIndexRange = errors.New("path index exceeds stored alternatives")
)

// Admission is the result of a successful handshake: everything a live
// session needs before the first frame arrives.
type Admission struct {
	User        *user.User
	Route       *route.Route
	PathIndex   int
	InitialPath []geo.Point
}

// Authorizer decides, at connection-upgrade time, whether to admit a live
// session. There is no per-message middleware once the duplex connection
// exists, so every check happens here.
type Authorizer struct {
	jwtMgr *jwt.Manager
	uow    ports.UnitOfWork
	users  ports.UserRepository
	routes ports.RouteRepository
}

// NewAuthorizer constructs an Authorizer.
func NewAuthorizer(jwtMgr *jwt.Manager, uow ports.UnitOfWork, users ports.UserRepository, routes ports.RouteRepository) *Authorizer {
	return &Authorizer{jwtMgr: jwtMgr, uow: uow, users: users, routes: routes}
}

// Authorize runs the admission checks in order against the raw upgrade
// request. Any failure refuses admission; there is no partial result.
func (a *Authorizer) Authorize(ctx context.Context, r *http.Request) (*Admission, error) {
	// 1-2) bearer token present, well-formed, signed and unexpired
	raw, err := jwt.FromAuthorization(r)
	if err != nil {
		return nil, err
	}
	_, claims, err := a.jwtMgr.ParseAndValidate(raw)
	if err != nil {
		return nil, err
	}
	callerID, err := jwt.SubjectID(claims)
	if err != nil {
		return nil, err
	}

	var adm *Admission

	err = a.uow.WithinTx(ctx, func(ctx context.Context) error {
		// 3) token subject resolves to an existing user
		caller, err := a.users.GetByID(ctx, callerID)
		if errors.Is(err, postgres.ErrNotFound) {
			return ErrUnknownCaller
		}
		if err != nil {
			return err
		}

		// 4) target path params pass schema validation
		targetUserID, routeID, pathIndex, err := parseTarget(r)
		if err != nil {
			return err
		}

		// 5) caller owns the target or is an admin
		if callerID != targetUserID && !caller.IsAdmin() {
			return ErrForbidden
		}

		// 6) target user exists
		target := caller
		if targetUserID != callerID {
			target, err = a.users.GetByID(ctx, targetUserID)
			if errors.Is(err, postgres.ErrNotFound) {
				return ErrUnknownUser
			}
			if err != nil {
				return err
			}
		}

		// 7) route exists and belongs to the target user
		rt, err := a.routes.GetByIDForUser(ctx, routeID, targetUserID)
		if errors.Is(err, postgres.ErrNotFound) {
			return ErrUnknownRoute
		}
		if err != nil {
			return err
		}

		// 8) requested alternative is stored on the route
		path, err := rt.PathAt(pathIndex)
		if err != nil {
			return ErrPathIndexRange
		}

		// 9) decode the selected polyline into session-order points
		points, err := path.Decode()
		if err != nil {
			return fmt.Errorf("decode stored path: %w", err)
		}

		adm = &Admission{
			User:        target,
			Route:       rt,
			PathIndex:   pathIndex,
			InitialPath: points,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return adm, nil
}

// parseTarget validates the navigate target: positive int64 user and route
// ids from the path, pathIndex in {0,1,2} from the query.
func parseTarget(r *http.Request) (userID, routeID int64, pathIndex int, err error) {
	userID, err = parsePositiveID(r.PathValue("user_id"))
	if err != nil {
		return 0, 0, 0, ErrBadTarget
	}
	routeID, err = parsePositiveID(r.PathValue("route_id"))
	if err != nil {
		return 0, 0, 0, ErrBadTarget
	}

	switch r.URL.Query().Get("pathIndex") {
	case "0":
		pathIndex = 0
	case "1":
		pathIndex = 1
	case "2":
		pathIndex = 2
	default:
		return 0, 0, 0, ErrBadTarget
	}

	return userID, routeID, pathIndex, nil
}

func parsePositiveID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrBadTarget
	}
	return id, nil
}
