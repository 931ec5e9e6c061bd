// Command createsuperuser creates the first staff+superuser account so
// the admin surface can be bootstrapped on a fresh deployment. It
// applies pending migrations, creates the user and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"accounts-server/internal/config"
	"accounts-server/internal/database"
	"accounts-server/internal/logger"
	"accounts-server/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const minPasswordLength = 5

func main() {
	email := flag.String("email", "", "email address of the superuser (required)")
	password := flag.String("password", "", "password of the superuser (falls back to SUPERUSER_PASSWORD)")
	flag.Parse()

	cfg, err := config.LoadConfig(".env")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: "json",
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	if *email == "" {
		zap.L().Fatal("Missing required -email flag")
	}
	pass := *password
	if pass == "" {
		pass = os.Getenv("SUPERUSER_PASSWORD")
	}
	if len(pass) < minPasswordLength {
		zap.L().Fatal("Password too short", zap.Int("min_length", minPasswordLength))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		zap.L().Fatal("Unable to parse postgres config", zap.Error(err))
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		zap.L().Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		zap.L().Fatal("Failed to ping PostgreSQL", zap.Error(err))
	}

	if err := database.RunMigrations(cfg.DSN(), log); err != nil {
		zap.L().Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Клиент ленивый: CreateSuperuser не трогает Redis, соединение не
	// устанавливается
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	userRepo := database.NewPgUserRepository(pool, log.Named("PgUserRepo"))
	tokenRepo := database.NewRedisTokenRepository(redisClient, log.Named("RedisTokenRepo"))
	accountSvc := service.NewAccountService(userRepo, tokenRepo, cfg, log)

	user, err := accountSvc.CreateSuperuser(ctx, *email, pass)
	if err != nil {
		zap.L().Fatal("Failed to create superuser", zap.Error(err))
	}

	zap.L().Info("Superuser created",
		zap.String("userID", user.ID.String()),
		zap.String("email", user.Email),
	)
}
