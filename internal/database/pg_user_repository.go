package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"accounts-server/internal/interfaces"
	"accounts-server/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// Compile-time check to ensure pgUserRepository implements UserRepository
var _ interfaces.UserRepository = (*pgUserRepository)(nil)

const userColumns = `id, email, name, password_hash, is_active, is_staff, is_superuser, last_login, created_at, updated_at`

type pgUserRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgUserRepository creates a new PostgreSQL-backed UserRepository.
func NewPgUserRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.UserRepository {
	return &pgUserRepository{
		db:     db,
		logger: logger.Named("PgUserRepo"),
	}
}

func scanUser(row pgx.Row, user *models.User) error {
	return row.Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash,
		&user.IsActive, &user.IsStaff, &user.IsSuperuser, &user.LastLogin,
		&user.CreatedAt, &user.UpdatedAt)
}

// CreateUser inserts a new user into the database.
func (r *pgUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (email, name, password_hash, is_active, is_staff, is_superuser)
              VALUES ($1, $2, $3, $4, $5, $6)
              RETURNING id, created_at, updated_at`
	r.logger.Debug("Executing query", zap.String("query", query), zap.String("email", user.Email))
	err := r.db.QueryRow(ctx, query,
		user.Email, user.Name, user.PasswordHash,
		user.IsActive, user.IsStaff, user.IsSuperuser,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 is unique_violation: duplicate email
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.Warn("Attempted to create duplicate user by email",
				zap.String("email", user.Email),
				zap.String("constraint", pgErr.ConstraintName))
			return models.ErrEmailAlreadyExists
		}
		r.logger.Error("Failed to create user in postgres", zap.Error(err), zap.String("email", user.Email))
		return fmt.Errorf("failed to create user in postgres: %w", err)
	}
	r.logger.Info("User created successfully", zap.String("userID", user.ID.String()), zap.String("email", user.Email))
	return nil
}

// GetUserByEmail retrieves a user by their email.
func (r *pgUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user := &models.User{}
	r.logger.Debug("Executing query", zap.String("query", query), zap.String("email", email))
	err := scanUser(r.db.QueryRow(ctx, query, email), user)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("User not found by email", zap.String("email", email))
			return nil, models.ErrUserNotFound
		}
		r.logger.Error("Failed to get user by email from postgres", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("failed to get user by email from postgres: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a user by their ID.
func (r *pgUserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user := &models.User{}
	r.logger.Debug("Executing query", zap.String("query", query), zap.String("id", id.String()))
	err := scanUser(r.db.QueryRow(ctx, query, id), user)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("User not found by ID", zap.String("id", id.String()))
			return nil, models.ErrUserNotFound
		}
		r.logger.Error("Failed to get user by id from postgres", zap.Error(err), zap.String("id", id.String()))
		return nil, fmt.Errorf("failed to get user by id from postgres: %w", err)
	}
	return user, nil
}

// GetUserCount retrieves the total number of users.
func (r *pgUserRepository) GetUserCount(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM users`
	var count int64
	r.logger.Debug("Executing query", zap.String("query", query))
	if err := r.db.QueryRow(ctx, query).Scan(&count); err != nil {
		r.logger.Error("Failed to get user count from postgres", zap.Error(err))
		return 0, fmt.Errorf("failed to get user count: %w", err)
	}
	return count, nil
}

// ListUsers retrieves a list of users ordered by ID.
// TODO: Add pagination (LIMIT, OFFSET)
func (r *pgUserRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id ASC`
	r.logger.Debug("Executing query", zap.String("query", query))
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query users from postgres", zap.Error(err))
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		var user models.User
		if err := scanUser(rows, &user); err != nil {
			// Частичный список хуже ошибки: админка должна видеть всех
			r.logger.Error("Failed to scan user row", zap.Error(err))
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, user)
	}

	if err = rows.Err(); err != nil {
		r.logger.Error("Error iterating user rows", zap.Error(err))
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	return users, nil
}

// UpdateUserFields обновляет указанные поля пользователя в базе данных.
// Если указатель равен nil, соответствующее поле не обновляется.
func (r *pgUserRepository) UpdateUserFields(ctx context.Context, userID uuid.UUID, email, name *string, isActive, isStaff, isSuperuser *bool) error {
	queryBase := "UPDATE users SET updated_at = CURRENT_TIMESTAMP"
	args := []interface{}{}
	argID := 1

	if email != nil {
		queryBase += fmt.Sprintf(", email = $%d", argID)
		args = append(args, *email)
		argID++
	}
	if name != nil {
		queryBase += fmt.Sprintf(", name = $%d", argID)
		args = append(args, *name)
		argID++
	}
	if isActive != nil {
		queryBase += fmt.Sprintf(", is_active = $%d", argID)
		args = append(args, *isActive)
		argID++
	}
	if isStaff != nil {
		queryBase += fmt.Sprintf(", is_staff = $%d", argID)
		args = append(args, *isStaff)
		argID++
	}
	if isSuperuser != nil {
		queryBase += fmt.Sprintf(", is_superuser = $%d", argID)
		args = append(args, *isSuperuser)
		argID++
	}

	if len(args) == 0 {
		r.logger.Info("UpdateUserFields called with no fields to update", zap.String("userID", userID.String()))
		return nil
	}

	query := queryBase + fmt.Sprintf(" WHERE id = $%d", argID)
	args = append(args, userID)

	r.logger.Debug("Executing update user query", zap.String("query", query), zap.String("userID", userID.String()))
	cmdTag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.Warn("Attempted to update user with duplicate email", zap.String("userID", userID.String()), zap.Stringp("email", email))
			return models.ErrEmailAlreadyExists
		}
		r.logger.Error("Failed to update user fields in postgres", zap.Error(err), zap.String("userID", userID.String()))
		return fmt.Errorf("failed to update user fields: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		r.logger.Warn("Attempted to update non-existent user", zap.String("userID", userID.String()))
		return models.ErrUserNotFound
	}

	r.logger.Info("User fields updated successfully", zap.String("userID", userID.String()))
	return nil
}

// UpdatePasswordHash обновляет хеш пароля пользователя.
func (r *pgUserRepository) UpdatePasswordHash(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	r.logger.Debug("Executing query", zap.String("query", query), zap.String("userID", userID.String()))

	cmdTag, err := r.db.Exec(ctx, query, passwordHash, userID)
	if err != nil {
		r.logger.Error("Failed to update user password hash in postgres", zap.Error(err), zap.String("userID", userID.String()))
		return fmt.Errorf("failed to update password hash: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		r.logger.Warn("Attempted to update password hash for non-existent user", zap.String("userID", userID.String()))
		return models.ErrUserNotFound
	}

	r.logger.Info("User password hash updated successfully", zap.String("userID", userID.String()))
	return nil
}

// SetLastLogin records the time of the latest successful authentication.
func (r *pgUserRepository) SetLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error {
	query := `UPDATE users SET last_login = $1 WHERE id = $2`
	r.logger.Debug("Executing query", zap.String("query", query), zap.String("userID", userID.String()))

	cmdTag, err := r.db.Exec(ctx, query, at, userID)
	if err != nil {
		r.logger.Error("Failed to update last_login in postgres", zap.Error(err), zap.String("userID", userID.String()))
		return fmt.Errorf("failed to update last_login: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

// DeleteUser removes a user record entirely.
func (r *pgUserRepository) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	query := `DELETE FROM users WHERE id = $1`
	r.logger.Debug("Executing query", zap.String("query", query), zap.String("userID", userID.String()))

	cmdTag, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to delete user in postgres", zap.Error(err), zap.String("userID", userID.String()))
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		r.logger.Warn("Attempted to delete non-existent user", zap.String("userID", userID.String()))
		return models.ErrUserNotFound
	}

	r.logger.Info("User deleted successfully", zap.String("userID", userID.String()))
	return nil
}
