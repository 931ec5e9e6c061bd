package interfaces

import (
	"context"
	"time"

	"accounts-server/internal/models"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user data persistence (PostgreSQL).
type UserRepository interface {
	// CreateUser inserts a new user into the database and fills in the
	// generated ID. Returns models.ErrEmailAlreadyExists on a duplicate
	// email (storage-level uniqueness constraint).
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves a user by their (normalized) email address.
	// Returns models.ErrUserNotFound if the user does not exist.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves a user by their ID.
	// Returns models.ErrUserNotFound if the user does not exist.
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetUserCount retrieves the total number of users.
	GetUserCount(ctx context.Context) (int64, error)

	// ListUsers retrieves all users ordered by ID.
	ListUsers(ctx context.Context) ([]models.User, error)

	// UpdateUserFields обновляет только указанные поля пользователя.
	// Поля со значением nil не обновляются.
	UpdateUserFields(ctx context.Context, userID uuid.UUID, email, name *string, isActive, isStaff, isSuperuser *bool) error

	// UpdatePasswordHash обновляет хеш пароля пользователя.
	UpdatePasswordHash(ctx context.Context, userID uuid.UUID, newPasswordHash string) error

	// SetLastLogin records the time of the latest successful authentication.
	SetLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error

	// DeleteUser removes a user record entirely.
	// Returns models.ErrUserNotFound if the user does not exist.
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}
