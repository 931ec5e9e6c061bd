package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"accounts-server/internal/utils"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the application configuration.
type Config struct {
	Env        string `envconfig:"ENV" default:"development"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"debug"`
	ServerPort string `envconfig:"SERVER_PORT" default:"8080"`

	// Database (PostgreSQL for users)
	DBHost        string        `envconfig:"DB_HOST" required:"true"`
	DBPort        string        `envconfig:"DB_PORT" required:"true"`
	DBUser        string        `envconfig:"DB_USER" required:"true"`
	DBName        string        `envconfig:"DB_NAME" required:"true"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_IDLE_TIMEOUT" default:"5m"`
	// Секретное поле БЕЗ envconfig тега
	DBPassword string

	// Redis (bearer token store)
	RedisAddr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB   int    `envconfig:"REDIS_DB" default:"0"`
	// Секретное поле БЕЗ envconfig тега
	RedisPassword string

	// Password hashing - секретное поле БЕЗ envconfig тега
	PasswordPepper string

	// Admin surface session tokens - секретное поле БЕЗ envconfig тега
	AdminSessionSecret string
	AdminSessionTTL    time.Duration `envconfig:"ADMIN_SESSION_TTL" default:"8h"`

	// CORS Settings
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// DSN builds the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// GetAllowedOrigins splits the CORSAllowedOrigins string into a slice.
func (c *Config) GetAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(c.CORSAllowedOrigins, " ", ""), ",")
}

// LoadConfig loads configuration from environment variables and secrets.
func LoadConfig(envFilePath string) (*Config, error) {
	if _, err := os.Stat(envFilePath); err == nil {
		if err := godotenv.Load(envFilePath); err != nil {
			log.Printf("Warning: Could not load %s file: %v", envFilePath, err)
		} else {
			log.Printf("Loaded configuration from %s", envFilePath)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("Warning: Error checking %s file: %v", envFilePath, err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env vars: %w", err)
	}

	// Обязательные секреты: сначала из файлов Docker Secrets, затем из окружения
	var loadErr error
	cfg.DBPassword, loadErr = readRequiredSecret("db_password", "DB_PASSWORD")
	if loadErr != nil {
		return nil, loadErr
	}

	cfg.PasswordPepper, loadErr = readRequiredSecret("password_pepper", "PASSWORD_PEPPER")
	if loadErr != nil {
		return nil, loadErr
	}

	cfg.AdminSessionSecret, loadErr = readRequiredSecret("admin_session_secret", "ADMIN_SESSION_SECRET")
	if loadErr != nil {
		return nil, loadErr
	}

	// Необязательный секрет (пароль Redis)
	if redisPass, err := utils.ReadSecret("redis_password"); err == nil {
		cfg.RedisPassword = redisPass
		log.Println("Redis password loaded from secret.")
	} else if envPass := os.Getenv("REDIS_PASSWORD"); envPass != "" {
		cfg.RedisPassword = envPass
	}

	log.Println("Configuration loaded successfully.")
	return &cfg, nil
}

// readRequiredSecret reads a secret from the Docker Secrets path, falling
// back to an environment variable for non-container setups.
func readRequiredSecret(secretName, envName string) (string, error) {
	if secret, err := utils.ReadSecret(secretName); err == nil {
		return secret, nil
	}
	if value := os.Getenv(envName); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("required secret %q not found (no secret file and %s unset)", secretName, envName)
}
