package user

import (
	"context"

	"ddd-users/domain/shared"
)

// Repository User repository interface
// Implementations rebuild users with the registry marker so that behaviour
// methods called on a loaded user still mark it for dispatch.
type Repository interface {
	Exists(ctx context.Context, email Email) (bool, error)
	FindByID(ctx context.Context, id shared.UniqueEntityID) (*User, error)
	FindByEmail(ctx context.Context, email Email) (*User, error)
	FindByUsername(ctx context.Context, username Username) (*User, error)
	// Save creates or updates the user. Version checks are the
	// implementation's concern.
	Save(ctx context.Context, u *User) error
}
