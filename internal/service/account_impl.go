package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"accounts-server/internal/config"
	"accounts-server/internal/domain"
	"accounts-server/internal/interfaces"
	"accounts-server/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Compile-time check to ensure accountServiceImpl implements AccountService
var _ AccountService = (*accountServiceImpl)(nil)

type accountServiceImpl struct {
	userRepo  interfaces.UserRepository
	tokenRepo interfaces.TokenRepository
	cfg       *config.Config
	logger    *zap.Logger
}

// NewAccountService creates a new instance of accountServiceImpl.
func NewAccountService(userRepo interfaces.UserRepository, tokenRepo interfaces.TokenRepository, cfg *config.Config, logger *zap.Logger) AccountService {
	return &accountServiceImpl{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		cfg:       cfg,
		logger:    logger.Named("AccountService"),
	}
}

// CreateUser validates, normalizes and persists a new user.
func (s *accountServiceImpl) CreateUser(ctx context.Context, params CreateUserParams) (*models.User, error) {
	email := models.NormalizeEmail(params.Email)
	logFields := []zap.Field{zap.String("email", email)}
	s.logger.Info("Creating new user", logFields...)

	if email == "" {
		s.logger.Warn("Create attempt with empty email")
		return nil, models.NewValidationError("email", "user must have an email address")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		s.logger.Warn("Create attempt with invalid email format", append(logFields, zap.Error(err))...)
		return nil, models.NewValidationError("email", "invalid email address")
	}

	// Без пароля сохраняем пустой хеш: аккаунт не сможет аутентифицироваться
	var passwordHash string
	if params.Password != nil {
		var err error
		passwordHash, err = hashPassword(*params.Password, s.cfg.PasswordPepper)
		if err != nil {
			s.logger.Error("Failed to hash password during user creation", append(logFields, zap.Error(err))...)
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
	}

	isActive := true
	if params.IsActive != nil {
		isActive = *params.IsActive
	}

	user := &models.User{
		Email:        email,
		Name:         params.Name,
		PasswordHash: passwordHash,
		IsActive:     isActive,
		IsStaff:      params.IsStaff,
		IsSuperuser:  params.IsSuperuser,
	}

	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		if !errors.Is(err, models.ErrEmailAlreadyExists) {
			s.logger.Error("Failed to create user via repository", append(logFields, zap.Error(err))...)
		}
		return nil, err
	}

	s.logger.Info("User created successfully", zap.String("userID", user.ID.String()), zap.String("email", user.Email))
	return user, nil
}

// CreateSuperuser creates a user and forces the staff and superuser flags.
func (s *accountServiceImpl) CreateSuperuser(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.CreateUser(ctx, CreateUserParams{Email: email, Password: &password})
	if err != nil {
		return nil, err
	}

	isStaff, isSuperuser := true, true
	if err := s.userRepo.UpdateUserFields(ctx, user.ID, nil, nil, nil, &isStaff, &isSuperuser); err != nil {
		s.logger.Error("Failed to promote superuser", zap.Error(err), zap.String("userID", user.ID.String()))
		return nil, fmt.Errorf("failed to promote superuser: %w", err)
	}
	user.IsStaff = true
	user.IsSuperuser = true

	s.logger.Info("Superuser created", zap.String("userID", user.ID.String()), zap.String("email", user.Email))
	return user, nil
}

// IssueToken validates credentials and returns the user's bearer token,
// creating it on first successful authentication.
//
// Note: deactivated accounts (is_active=false) are still able to obtain
// a token here. Deactivation is only consulted by the admin surface.
func (s *accountServiceImpl) IssueToken(ctx context.Context, email, password string) (*models.User, string, error) {
	email = models.NormalizeEmail(email)
	s.logger.Info("Token issuance attempt", zap.String("email", email))

	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, "", err
	}

	key, created, err := s.tokenRepo.GetOrCreateToken(ctx, user.ID)
	if err != nil {
		s.logger.Error("Failed to get or create token", zap.Error(err), zap.String("userID", user.ID.String()))
		return nil, "", fmt.Errorf("failed to get or create token: %w", err)
	}

	now := time.Now()
	if err := s.userRepo.SetLastLogin(ctx, user.ID, now); err != nil {
		// Некритично: токен уже выдан
		s.logger.Error("Failed to record last_login", zap.Error(err), zap.String("userID", user.ID.String()))
	} else {
		user.LastLogin = &now
	}

	s.logger.Info("Token issued", zap.String("userID", user.ID.String()), zap.Bool("created", created))
	return user, key, nil
}

// authenticate looks up a user by normalized email and checks the
// password. Both failure modes collapse into ErrInvalidCredentials so
// the caller cannot learn whether the email exists.
func (s *accountServiceImpl) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			s.logger.Warn("Authentication failed: user not found", zap.String("email", email))
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("Authentication failed: repository error", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.HasUsablePassword() || !checkPasswordHash(password, user.PasswordHash, s.cfg.PasswordPepper) {
		s.logger.Warn("Authentication failed: invalid password", zap.String("userID", user.ID.String()))
		return nil, models.ErrInvalidCredentials
	}

	return user, nil
}

// VerifyToken resolves a presented bearer token to its user.
func (s *accountServiceImpl) VerifyToken(ctx context.Context, key string) (*models.User, error) {
	userID, err := s.tokenRepo.GetUserIDByToken(ctx, key)
	if err != nil {
		if errors.Is(err, models.ErrTokenNotFound) {
			s.logger.Debug("Presented token not found in store")
			return nil, models.ErrTokenInvalid
		}
		s.logger.Error("Error checking token existence via repository", zap.Error(err))
		return nil, fmt.Errorf("error checking token existence: %w", err)
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			// Пользователь из токена не найден в БД - токен невалиден
			s.logger.Warn("User from valid token not found in DB", zap.String("userID", userID.String()))
			return nil, models.ErrTokenInvalid
		}
		s.logger.Error("Failed to get user by ID during token verification", zap.Error(err), zap.String("userID", userID.String()))
		return nil, fmt.Errorf("failed to get user for token verification: %w", err)
	}

	return user, nil
}

// UpdateProfile applies a partial self-service update. The password, if
// present, is popped out of the generic field path and re-hashed.
func (s *accountServiceImpl) UpdateProfile(ctx context.Context, userID uuid.UUID, upd ProfileUpdate) (*models.User, error) {
	log := s.logger.With(zap.String("userID", userID.String()))
	log.Info("Updating user profile")

	if upd.Email != nil {
		normalized := models.NormalizeEmail(*upd.Email)
		if _, err := mail.ParseAddress(normalized); err != nil {
			log.Warn("Profile update with invalid email format", zap.Error(err))
			return nil, models.NewValidationError("email", "invalid email address")
		}
		upd.Email = &normalized
	}

	if upd.Email != nil || upd.Name != nil {
		if err := s.userRepo.UpdateUserFields(ctx, userID, upd.Email, upd.Name, nil, nil, nil); err != nil {
			return nil, err
		}
	}

	if upd.Password != nil {
		newHash, err := hashPassword(*upd.Password, s.cfg.PasswordPepper)
		if err != nil {
			log.Error("Failed to hash new password during profile update", zap.Error(err))
			return nil, fmt.Errorf("failed to hash new password: %w", err)
		}
		if err := s.userRepo.UpdatePasswordHash(ctx, userID, newHash); err != nil {
			return nil, err
		}
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	log.Info("User profile updated successfully")
	return user, nil
}

// AdminListUsers returns all users ordered by id.
func (s *accountServiceImpl) AdminListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.userRepo.ListUsers(ctx)
	if err != nil {
		s.logger.Error("Failed to list users via repository", zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// AdminGetUser returns a single user by id.
func (s *accountServiceImpl) AdminGetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.userRepo.GetUserByID(ctx, userID)
}

// AdminUpdateUser applies an operator-side update; any field may change.
func (s *accountServiceImpl) AdminUpdateUser(ctx context.Context, userID uuid.UUID, upd AdminUserUpdate) error {
	log := s.logger.With(zap.String("userID", userID.String()))
	log.Info("Admin updating user")

	if upd.Email != nil {
		normalized := models.NormalizeEmail(*upd.Email)
		if _, err := mail.ParseAddress(normalized); err != nil {
			log.Warn("Admin update with invalid email format", zap.Error(err))
			return models.NewValidationError("email", "invalid email address")
		}
		upd.Email = &normalized
	}

	if upd.Email != nil || upd.Name != nil || upd.IsActive != nil || upd.IsStaff != nil || upd.IsSuperuser != nil {
		if err := s.userRepo.UpdateUserFields(ctx, userID, upd.Email, upd.Name, upd.IsActive, upd.IsStaff, upd.IsSuperuser); err != nil {
			return err
		}
	}

	if upd.Password != nil {
		newHash, err := hashPassword(*upd.Password, s.cfg.PasswordPepper)
		if err != nil {
			log.Error("Failed to hash new password during admin update", zap.Error(err))
			return fmt.Errorf("failed to hash new password: %w", err)
		}
		if err := s.userRepo.UpdatePasswordHash(ctx, userID, newHash); err != nil {
			return err
		}
	}

	log.Info("Admin user update applied")
	return nil
}

// AdminDeleteUser removes a user and revokes their bearer token.
func (s *accountServiceImpl) AdminDeleteUser(ctx context.Context, userID uuid.UUID) error {
	log := s.logger.With(zap.String("userID", userID.String()))
	log.Info("Admin deleting user")

	if err := s.userRepo.DeleteUser(ctx, userID); err != nil {
		return err
	}

	if _, err := s.tokenRepo.DeleteTokenByUserID(ctx, userID); err != nil {
		// Запись уже удалена, потерянный токен больше ни к кому не резолвится
		log.Error("Failed to delete token after user deletion", zap.Error(err))
	}

	log.Info("User deleted by admin")
	return nil
}

// IssueAdminSession validates credentials and signs a short-lived
// session token for the admin surface. Only staff users qualify.
func (s *accountServiceImpl) IssueAdminSession(ctx context.Context, email, password string) (string, error) {
	email = models.NormalizeEmail(email)
	s.logger.Info("Admin session attempt", zap.String("email", email))

	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return "", err
	}

	if !user.IsStaff {
		s.logger.Warn("Admin session attempt by non-staff user", zap.String("userID", user.ID.String()))
		return "", models.ErrForbidden
	}

	now := time.Now()
	claims := &domain.SessionClaims{
		UserID:      user.ID,
		IsStaff:     user.IsStaff,
		IsSuperuser: user.IsSuperuser,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    "accounts-server",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AdminSessionTTL)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.AdminSessionSecret))
	if err != nil {
		s.logger.Error("Failed to sign admin session token", zap.Error(err), zap.String("userID", user.ID.String()))
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	s.logger.Info("Admin session issued", zap.String("userID", user.ID.String()))
	return signed, nil
}

// VerifyAdminSession validates a session token and re-checks the staff
// flag against the database so revoked staff lose access immediately.
func (s *accountServiceImpl) VerifyAdminSession(ctx context.Context, tokenString string) (*models.User, error) {
	s.logger.Debug("Verifying admin session token")
	token, err := jwt.ParseWithClaims(tokenString, &domain.SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.AdminSessionSecret), nil
	})

	if err != nil {
		s.logger.Warn("Admin session token verification failed", zap.Error(err))
		return nil, models.ErrTokenInvalid
	}

	claims, ok := token.Claims.(*domain.SessionClaims)
	if !ok || !token.Valid {
		s.logger.Warn("Admin session token has invalid claims or signature")
		return nil, models.ErrTokenInvalid
	}

	user, err := s.userRepo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			s.logger.Warn("User from admin session not found in DB", zap.String("userID", claims.UserID.String()))
			return nil, models.ErrTokenInvalid
		}
		s.logger.Error("Failed to get user during admin session verification", zap.Error(err), zap.String("userID", claims.UserID.String()))
		return nil, fmt.Errorf("failed to get user for session verification: %w", err)
	}

	if !user.IsStaff {
		s.logger.Warn("Admin session for user that is no longer staff", zap.String("userID", user.ID.String()))
		return nil, models.ErrForbidden
	}

	return user, nil
}

// --- Helper Functions ---

// applyPepper applies HMAC-SHA256 using the pepper as the key.
func applyPepper(password, pepper string) []byte {
	h := hmac.New(sha256.New, []byte(pepper))
	h.Write([]byte(password))
	return h.Sum(nil)
}

// hashPassword generates a bcrypt hash of the password after applying the pepper.
func hashPassword(password, pepper string) (string, error) {
	pepperedPassword := applyPepper(password, pepper)
	bytes, err := bcrypt.GenerateFromPassword(pepperedPassword, bcrypt.DefaultCost)
	return string(bytes), err
}

// checkPasswordHash compares a plain text password (after applying pepper) with a stored hash.
func checkPasswordHash(password, hash, pepper string) bool {
	pepperedPassword := applyPepper(password, pepper)
	err := bcrypt.CompareHashAndPassword([]byte(hash), pepperedPassword)
	return err == nil
}
