package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"live-nav/internal/domain/user"
	"live-nav/internal/ports"
)

// ErrNotFound is returned by lookups when no row matches.
var ErrNotFound = errors.New("not found")

// UserRepo reads users using pgx and plain SQL. Writes belong to the account
// service; this repo exists for the admission handshake only.
type UserRepo struct{}

// NewUserRepo constructs a new UserRepo.
func NewUserRepo() ports.UserRepository {
	return &UserRepo{}
}

// GetByID returns one user by id, or ErrNotFound.
func (repo *UserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var (
		out        user.User
		roleText   string
		statusText string
	)

	err = tx.QueryRow(ctx, `
		SELECT
			id, created_at, updated_at,
			email, username, role, status
		FROM users
		WHERE id = $1
	`, id).Scan(
		&out.ID, &out.CreatedAt, &out.UpdatedAt,
		&out.Email, &out.Username, &roleText, &statusText,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	out.Role = user.Role(roleText)
	out.Status = user.Status(statusText)

	return &out, nil
}
