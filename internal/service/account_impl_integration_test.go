package service_test // Используем _test пакет для изоляции

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"accounts-server/internal/config"
	"accounts-server/internal/database"
	"accounts-server/internal/interfaces"
	"accounts-server/internal/models"
	"accounts-server/internal/service"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	// Докер клиент для проверки доступности
	"github.com/docker/docker/client"
)

// IntegrationTestSuite содержит состояние для наших интеграционных тестов
type IntegrationTestSuite struct {
	suite.Suite
	ctx            context.Context
	pgContainer    *postgres.PostgresContainer
	rdContainer    *tcredis.RedisContainer
	pgPool         *pgxpool.Pool
	redisClient    *redis.Client
	config         *config.Config
	userRepo       interfaces.UserRepository
	tokenRepo      interfaces.TokenRepository
	accountService service.AccountService
	logger         *zap.Logger
}

// SetupSuite выполняется один раз перед всеми тестами в наборе
func (s *IntegrationTestSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error

	s.logger, err = zap.NewDevelopment()
	require.NoError(s.T(), err, "Failed to create logger for tests")
	s.logger.Info("Setting up integration test suite...")

	// Запускаем контейнер PostgreSQL
	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start postgres container")
	s.logger.Info("PostgreSQL container started")

	pgConnStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "Failed to get postgres connection string")

	s.pgPool, err = pgxpool.New(s.ctx, pgConnStr)
	require.NoError(s.T(), err, "Failed to connect to test postgres")
	s.logger.Info("Connected to test PostgreSQL")

	// Применяем миграции из embed.FS
	err = database.RunMigrations(pgConnStr, s.logger)
	require.NoError(s.T(), err, "Failed to run migrations")
	s.logger.Info("Database migrations applied")

	// Запускаем контейнер Redis
	s.rdContainer, err = tcredis.Run(s.ctx,
		"docker.io/redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("* Ready to accept connections").
				WithOccurrence(1).
				WithStartupTimeout(1*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start redis container")
	s.logger.Info("Redis container started")

	redisHost, err := s.rdContainer.Host(s.ctx)
	require.NoError(s.T(), err)
	redisPort, err := s.rdContainer.MappedPort(s.ctx, "6379/tcp")
	require.NoError(s.T(), err)
	redisAddr := fmt.Sprintf("%s:%s", redisHost, redisPort.Port())

	s.redisClient = redis.NewClient(&redis.Options{Addr: redisAddr})
	_, err = s.redisClient.Ping(s.ctx).Result()
	require.NoError(s.T(), err, "Failed to connect to test redis")
	s.logger.Info("Connected to test Redis")

	s.config = &config.Config{
		DBUser:             "testuser",
		DBPassword:         "testpass",
		DBName:             "test_db",
		DBSSLMode:          "disable",
		RedisAddr:          redisAddr,
		PasswordPepper:     "test-pepper",
		AdminSessionSecret: "test-session-secret",
		AdminSessionTTL:    time.Hour,
		Env:                "test",
		LogLevel:           "debug",
	}
	s.logger.Info("Test configuration created")

	s.userRepo = database.NewPgUserRepository(s.pgPool, s.logger)
	s.tokenRepo = database.NewRedisTokenRepository(s.redisClient, s.logger)
	s.accountService = service.NewAccountService(s.userRepo, s.tokenRepo, s.config, s.logger)
	s.logger.Info("AccountService initialized for tests")

	s.logger.Info("Test suite setup complete.")
}

// TearDownSuite выполняется один раз после всех тестов в наборе
func (s *IntegrationTestSuite) TearDownSuite() {
	s.logger.Info("Tearing down integration test suite...")
	if s.pgPool != nil {
		s.pgPool.Close()
	}
	if s.redisClient != nil {
		s.redisClient.Close()
	}
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(s.ctx); err != nil {
			s.logger.Error("Failed to terminate postgres container", zap.Error(err))
		}
	}
	if s.rdContainer != nil {
		if err := s.rdContainer.Terminate(s.ctx); err != nil {
			s.logger.Error("Failed to terminate redis container", zap.Error(err))
		}
	}
	s.logger.Info("Test suite teardown complete.")
}

// Перед каждым тестом очищаем Redis и таблицы БД
func (s *IntegrationTestSuite) SetupTest() {
	err := s.redisClient.FlushDB(s.ctx).Err()
	require.NoError(s.T(), err, "Failed to flush Redis DB")

	// ОСТОРОЖНО: НЕ запускать на production БД!
	_, err = s.pgPool.Exec(s.ctx, "TRUNCATE TABLE users RESTART IDENTITY CASCADE")
	require.NoError(s.T(), err, "Failed to truncate users table")
}

// TestIntegrationTestSuite запускает набор тестов
func TestIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	// Проверяем доступность Docker перед запуском
	cli, err := client.NewClientWithOpts(client.FromEnv)
	if err != nil {
		t.Fatalf("Docker client init error: %v. Ensure Docker is running and accessible.", err)
	}
	if _, err := cli.Ping(context.Background()); err != nil {
		t.Fatalf("Docker daemon is not running or accessible: %v", err)
	}
	cli.Close()

	suite.Run(t, new(IntegrationTestSuite))
}

// --- Сами Тестовые Функции ---

func (s *IntegrationTestSuite) TestCreateUserAndIssueToken_Success() {
	t := s.T()
	ctx := context.Background()
	email := "testuser1@example.com"
	password := "password123"

	// 1. Создание пользователя
	created, err := s.accountService.CreateUser(ctx, service.CreateUserParams{
		Email:    email,
		Password: &password,
		Name:     "Test User",
	})
	require.NoError(t, err, "CreateUser should succeed")
	require.NotNil(t, created)
	require.Equal(t, email, created.Email)
	require.Equal(t, "Test User", created.Name)
	require.NotEqual(t, uuid.Nil, created.ID, "User ID should be assigned")
	require.True(t, created.IsActive, "New users are active by default")
	require.False(t, created.IsStaff)
	require.False(t, created.IsSuperuser)
	require.True(t, created.HasUsablePassword())
	require.NotEqual(t, password, created.PasswordHash, "Password must be hashed")

	// Попытка повторной регистрации с тем же email - должна быть ошибка
	_, err = s.accountService.CreateUser(ctx, service.CreateUserParams{
		Email:    email,
		Password: &password,
	})
	require.Error(t, err, "Registering existing email should fail")
	require.True(t, errors.Is(err, models.ErrEmailAlreadyExists), "Error should be ErrEmailAlreadyExists")

	// 2. Выдача токена
	user, token, err := s.accountService.IssueToken(ctx, email, password)
	require.NoError(t, err, "IssueToken should succeed")
	require.NotEmpty(t, token, "Token should not be empty")
	require.Len(t, token, 40, "Opaque token key is 40 hex characters")
	require.Equal(t, created.ID, user.ID)
	require.NotNil(t, user.LastLogin, "Successful issuance records last_login")

	// Токен должен резолвиться в Redis
	resolvedID, err := s.tokenRepo.GetUserIDByToken(ctx, token)
	require.NoError(t, err, "Token should exist in Redis")
	require.Equal(t, created.ID, resolvedID)

	// Повторная выдача возвращает тот же токен
	_, token2, err := s.accountService.IssueToken(ctx, email, password)
	require.NoError(t, err)
	require.Equal(t, token, token2, "Repeat issuance returns the same token")

	// 3. Неверный пароль
	_, _, err = s.accountService.IssueToken(ctx, email, "wrongpassword")
	require.Error(t, err, "IssueToken with wrong password should fail")
	require.True(t, errors.Is(err, models.ErrInvalidCredentials), "Error should be ErrInvalidCredentials")

	// 4. Несуществующий пользователь - та же ошибка
	_, _, err = s.accountService.IssueToken(ctx, "ghost@example.com", password)
	require.Error(t, err)
	require.True(t, errors.Is(err, models.ErrInvalidCredentials), "Error should be ErrInvalidCredentials")
}

func (s *IntegrationTestSuite) TestCreateUser_NormalizesEmailDomain() {
	t := s.T()
	ctx := context.Background()
	password := "password123"

	created, err := s.accountService.CreateUser(ctx, service.CreateUserParams{
		Email:    "Test2@EXAMPLE.com",
		Password: &password,
	})
	require.NoError(t, err)
	// Локальная часть сохраняется, домен приводится к нижнему регистру
	require.Equal(t, "Test2@example.com", created.Email)

	// Логин работает с любым регистром домена
	_, token, err := s.accountService.IssueToken(ctx, "Test2@example.COM", password)
	require.NoError(t, err, "Issuance should succeed after domain normalization")
	require.NotEmpty(t, token)
}

func (s *IntegrationTestSuite) TestCreateUser_EmptyEmail() {
	t := s.T()
	ctx := context.Background()
	password := "password123"

	_, err := s.accountService.CreateUser(ctx, service.CreateUserParams{
		Email:    "   ",
		Password: &password,
	})
	require.Error(t, err, "CreateUser with empty email should fail")
	verr, ok := models.AsValidationError(err)
	require.True(t, ok, "Error should be a ValidationError")
	require.Equal(t, "email", verr.Field)
}

func (s *IntegrationTestSuite) TestCreateUser_NoPasswordIsUnusable() {
	t := s.T()
	ctx := context.Background()
	email := "nopass@example.com"

	created, err := s.accountService.CreateUser(ctx, service.CreateUserParams{Email: email})
	require.NoError(t, err, "CreateUser without password should succeed")
	require.False(t, created.HasUsablePassword(), "Account without password stores an unusable credential")

	// Аутентификация невозможна даже с пустым паролем
	_, _, err = s.accountService.IssueToken(ctx, email, "")
	require.Error(t, err)
	require.True(t, errors.Is(err, models.ErrInvalidCredentials))
}

func (s *IntegrationTestSuite) TestCreateSuperuser() {
	t := s.T()
	ctx := context.Background()

	su, err := s.accountService.CreateSuperuser(ctx, "root@example.com", "rootpass123")
	require.NoError(t, err, "CreateSuperuser should succeed")
	require.True(t, su.IsStaff, "Superuser must be staff")
	require.True(t, su.IsSuperuser)

	// Флаги сохранены в БД
	stored, err := s.userRepo.GetUserByID(ctx, su.ID)
	require.NoError(t, err)
	require.True(t, stored.IsStaff)
	require.True(t, stored.IsSuperuser)
}

func (s *IntegrationTestSuite) TestVerifyToken() {
	t := s.T()
	ctx := context.Background()
	email := "verify@example.com"
	password := "password123"

	created, err := s.accountService.CreateUser(ctx, service.CreateUserParams{Email: email, Password: &password})
	require.NoError(t, err)
	_, token, err := s.accountService.IssueToken(ctx, email, password)
	require.NoError(t, err)

	user, err := s.accountService.VerifyToken(ctx, token)
	require.NoError(t, err, "VerifyToken should succeed for an issued token")
	require.Equal(t, created.ID, user.ID)

	_, err = s.accountService.VerifyToken(ctx, "0000000000000000000000000000000000000000")
	require.Error(t, err, "Unknown token should fail verification")
	require.True(t, errors.Is(err, models.ErrTokenInvalid), "Error should be ErrTokenInvalid")
}

func (s *IntegrationTestSuite) TestUpdateProfile() {
	t := s.T()
	ctx := context.Background()
	email := "profile@example.com"
	password := "password123"

	created, err := s.accountService.CreateUser(ctx, service.CreateUserParams{Email: email, Password: &password})
	require.NoError(t, err)

	newName := "Updated Name"
	newPassword := "newpassword456"
	updated, err := s.accountService.UpdateProfile(ctx, created.ID, service.ProfileUpdate{
		Name:     &newName,
		Password: &newPassword,
	})
	require.NoError(t, err, "UpdateProfile should succeed")
	require.Equal(t, newName, updated.Name)
	require.Equal(t, email, updated.Email, "Email untouched when not in the update")

	// Старый пароль больше не работает, новый работает
	_, _, err = s.accountService.IssueToken(ctx, email, password)
	require.Error(t, err)
	require.True(t, errors.Is(err, models.ErrInvalidCredentials))

	_, _, err = s.accountService.IssueToken(ctx, email, newPassword)
	require.NoError(t, err, "New password should authenticate")
}

func (s *IntegrationTestSuite) TestAdminSessionFlow() {
	t := s.T()
	ctx := context.Background()
	password := "password123"

	// Обычный пользователь не получает сессию
	_, err := s.accountService.CreateUser(ctx, service.CreateUserParams{Email: "plain@example.com", Password: &password})
	require.NoError(t, err)
	_, err = s.accountService.IssueAdminSession(ctx, "plain@example.com", password)
	require.Error(t, err, "Non-staff user should not get an admin session")
	require.True(t, errors.Is(err, models.ErrForbidden), "Error should be ErrForbidden")

	// Staff получает сессию, и она резолвится обратно в пользователя
	staff, err := s.accountService.CreateUser(ctx, service.CreateUserParams{
		Email:    "staff@example.com",
		Password: &password,
		IsStaff:  true,
	})
	require.NoError(t, err)

	session, err := s.accountService.IssueAdminSession(ctx, "staff@example.com", password)
	require.NoError(t, err, "Staff user should get an admin session")
	require.NotEmpty(t, session)

	verified, err := s.accountService.VerifyAdminSession(ctx, session)
	require.NoError(t, err, "Session should verify")
	require.Equal(t, staff.ID, verified.ID)

	// Снимаем флаг staff - сессия перестает работать
	isStaff := false
	require.NoError(t, s.userRepo.UpdateUserFields(ctx, staff.ID, nil, nil, nil, &isStaff, nil))
	_, err = s.accountService.VerifyAdminSession(ctx, session)
	require.Error(t, err, "Session of revoked staff should fail")
	require.True(t, errors.Is(err, models.ErrForbidden))

	// Мусорная строка - невалидный токен
	_, err = s.accountService.VerifyAdminSession(ctx, "not-a-jwt")
	require.Error(t, err)
	require.True(t, errors.Is(err, models.ErrTokenInvalid))
}

func (s *IntegrationTestSuite) TestAdminDeleteUser_RevokesToken() {
	t := s.T()
	ctx := context.Background()
	email := "victim@example.com"
	password := "password123"

	created, err := s.accountService.CreateUser(ctx, service.CreateUserParams{Email: email, Password: &password})
	require.NoError(t, err)
	_, token, err := s.accountService.IssueToken(ctx, email, password)
	require.NoError(t, err)

	require.NoError(t, s.accountService.AdminDeleteUser(ctx, created.ID))

	// Пользователь удален и токен отозван
	_, err = s.userRepo.GetUserByID(ctx, created.ID)
	require.Error(t, err)
	require.True(t, errors.Is(err, models.ErrUserNotFound))

	_, err = s.tokenRepo.GetUserIDByToken(ctx, token)
	require.Error(t, err)
	require.True(t, errors.Is(err, models.ErrTokenNotFound))
}

func (s *IntegrationTestSuite) TestAdminUpdateUser_DuplicateEmail() {
	t := s.T()
	ctx := context.Background()
	password := "password123"

	_, err := s.accountService.CreateUser(ctx, service.CreateUserParams{Email: "first@example.com", Password: &password})
	require.NoError(t, err)
	second, err := s.accountService.CreateUser(ctx, service.CreateUserParams{Email: "second@example.com", Password: &password})
	require.NoError(t, err)

	takenEmail := "first@example.com"
	err = s.accountService.AdminUpdateUser(ctx, second.ID, service.AdminUserUpdate{Email: &takenEmail})
	require.Error(t, err, "Updating to a taken email should fail")
	require.True(t, errors.Is(err, models.ErrEmailAlreadyExists), "Error should be ErrEmailAlreadyExists")
}
