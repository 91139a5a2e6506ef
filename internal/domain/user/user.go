package user

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

// User is the domain entity corresponding to the `users` table.
// Account creation, credentials and the CRUD surface live in the account
// service; the navigation service only reads users for admission checks.
type User struct {
	ID        int64
	CreatedAt time.Time
	UpdatedAt time.Time
	Email     string
	Username  string
	Role      Role
	Status    Status
}

var (
	ErrInvalidID     = errors.New("user id must be positive")
	ErrInvalidEmail  = errors.New("invalid email address")
	ErrEmptyUsername = errors.New("username cannot be empty")
	ErrBadTimestamps = errors.New("updated_at cannot be before created_at")
)

// Validate checks invariants of the User entity.
func (user *User) Validate() error {
	if user.ID <= 0 {
		return ErrInvalidID
	}
	if _, err := mail.ParseAddress(user.Email); err != nil {
		return ErrInvalidEmail
	}
	if strings.TrimSpace(user.Username) == "" {
		return ErrEmptyUsername
	}
	if !user.Role.Valid() {
		return ErrInvalidRole
	}
	if !user.Status.Valid() {
		return ErrInvalidStatus
	}
	if !user.CreatedAt.IsZero() && !user.UpdatedAt.IsZero() && user.UpdatedAt.Before(user.CreatedAt) {
		return ErrBadTimestamps
	}
	return nil
}

// Convenience helpers.
func (user *User) IsActive() bool { return user.Status.IsActive() }
func (user *User) IsAdmin() bool  { return user.Role.IsAdmin() }
