package repositories

import (
	"context"

	"taskboard/internal/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	// GetByEmail looks a user up by normalized email. The password hash is
	// only populated when withPassword is true.
	GetByEmail(ctx context.Context, email string, withPassword bool) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.User, error)
}
