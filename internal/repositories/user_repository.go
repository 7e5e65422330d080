package repositories

import (
	"context"

	"github.com/nextscene/backend/internal/models"
)

// UserRepository defines the data access contract for user profiles.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	UpdateProfile(ctx context.Context, user models.User) error
	SearchByUsernamePrefix(ctx context.Context, prefix, excludeID string, limit int) ([]models.User, error)
}
