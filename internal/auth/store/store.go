package store

import (
	"context"
	"errors"

	"conectasat/internal/auth/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when a uniqueness constraint would be violated.
var ErrAlreadyExists = errors.New("already exists")

// TokenStore persists API tokens.
type TokenStore interface {
	Create(ctx context.Context, token *models.APIToken) error
	GetByID(ctx context.Context, id int64) (*models.APIToken, error)
	GetByValue(ctx context.Context, value string) (*models.APIToken, error)
	List(ctx context.Context, skip, limit int) ([]*models.APIToken, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, token *models.APIToken) error
	Delete(ctx context.Context, id int64) error
}

// AdminStore persists superadmin accounts. Usernames are unique,
// case-insensitively.
type AdminStore interface {
	CreateAdmin(ctx context.Context, admin *models.SuperAdmin) error
	GetAdminByUsername(ctx context.Context, username string) (*models.SuperAdmin, error)
	UpdateAdmin(ctx context.Context, admin *models.SuperAdmin) error
}

// UserStore persists the principals history entries are attributed to.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
}
