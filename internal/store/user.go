package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/feedcore/internal/domain"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user to the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by its unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByIDs retrieves the users with the given IDs in no particular
	// order. Unknown IDs are skipped.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.User, error)
}
