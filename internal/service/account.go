package service

import (
	"context"

	"accounts-server/internal/models"

	"github.com/google/uuid"
)

// CreateUserParams carries the fields accepted by CreateUser.
// A nil Password stores an unusable credential: the account exists but
// can never authenticate (useful for fixtures).
type CreateUserParams struct {
	Email       string
	Password    *string
	Name        string
	IsActive    *bool // nil defaults to true
	IsStaff     bool
	IsSuperuser bool
}

// ProfileUpdate carries a partial self-service profile update.
// Nil fields are left untouched; Password is re-hashed, never written raw.
type ProfileUpdate struct {
	Email    *string
	Name     *string
	Password *string
}

// AdminUserUpdate carries an operator-side update; any field may change.
type AdminUserUpdate struct {
	Email       *string
	Name        *string
	Password    *string
	IsActive    *bool
	IsStaff     *bool
	IsSuperuser *bool
}

// AccountService owns the canonical user record, credential validation
// and bearer token issuance.
type AccountService interface {
	// CreateUser validates and persists a new user. Fails with a
	// *models.ValidationError when the email is empty and with
	// models.ErrEmailAlreadyExists on a duplicate.
	CreateUser(ctx context.Context, params CreateUserParams) (*models.User, error)

	// CreateSuperuser creates a user and forces IsStaff and IsSuperuser.
	CreateSuperuser(ctx context.Context, email, password string) (*models.User, error)

	// IssueToken validates an email+password pair and returns the user
	// together with their opaque bearer token, creating the token if one
	// does not already exist. Lookup failure and password mismatch both
	// yield models.ErrInvalidCredentials.
	IssueToken(ctx context.Context, email, password string) (*models.User, string, error)

	// VerifyToken resolves a presented bearer token to its user.
	VerifyToken(ctx context.Context, key string) (*models.User, error)

	// UpdateProfile applies a partial update to the caller's own record
	// and returns the updated user.
	UpdateProfile(ctx context.Context, userID uuid.UUID, upd ProfileUpdate) (*models.User, error)

	// AdminListUsers returns all users ordered by id.
	AdminListUsers(ctx context.Context) ([]models.User, error)

	// AdminGetUser returns a single user by id.
	AdminGetUser(ctx context.Context, userID uuid.UUID) (*models.User, error)

	// AdminUpdateUser applies an operator-side update to any field.
	AdminUpdateUser(ctx context.Context, userID uuid.UUID, upd AdminUserUpdate) error

	// AdminDeleteUser removes a user record and revokes their token.
	AdminDeleteUser(ctx context.Context, userID uuid.UUID) error

	// IssueAdminSession validates credentials and returns a signed
	// session token, but only for staff users.
	IssueAdminSession(ctx context.Context, email, password string) (string, error)

	// VerifyAdminSession validates a session token and returns the user,
	// rejecting users that are no longer staff.
	VerifyAdminSession(ctx context.Context, tokenString string) (*models.User, error)
}
