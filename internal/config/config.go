package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// DatabaseConfig holds the postgres connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN builds the lib/pq connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// Config conjuntos-api (HTTP API) configuration.
type Config struct {
	HTTP struct {
		Addr       string
		CORSOrigin string
	}
	Env       string // "production" hides error details in 500 responses
	DBEnabled bool
	Database  DatabaseConfig
	Redis     struct {
		Enabled  bool
		Addr     string
		Password string
		DB       int
	}
	Auth struct {
		VerifyURL string // identity provider token-lookup endpoint
		APIKey    string
	}
	Log struct {
		Level  string
		Format string
	}
}

// Load reads configuration from the environment (optionally seeded from a
// .env file) and validates the critical variables. The caller is expected
// to exit non-zero on error.
func Load() (*Config, error) {
	cfg := fromEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadMigration reads configuration for the migration runner. Only database
// and logging settings matter there, so the API-server requirements
// (CORS origin, identity provider credentials) are not enforced.
func LoadMigration() (*Config, error) {
	return fromEnv(), nil
}

func fromEnv() *Config {
	// Best-effort: a missing .env file is fine.
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")
	cfg.HTTP.CORSOrigin = os.Getenv("CORS_ORIGIN")
	cfg.Env = getEnv("APP_ENV", "development")

	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "conjuntos")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Enabled = getEnv("REDIS_ENABLED", "true") == "true"
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.Auth.VerifyURL = os.Getenv("AUTH_VERIFY_URL")
	cfg.Auth.APIKey = os.Getenv("AUTH_API_KEY")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg
}

func (c *Config) validate() error {
	if c.HTTP.CORSOrigin == "" {
		return fmt.Errorf("missing required environment variable: CORS_ORIGIN")
	}
	if _, err := url.ParseRequestURI(c.HTTP.CORSOrigin); err != nil {
		return fmt.Errorf("CORS_ORIGIN must be a valid URL: %w", err)
	}
	if c.Auth.VerifyURL == "" {
		return fmt.Errorf("missing required environment variable: AUTH_VERIFY_URL")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("missing required environment variable: AUTH_API_KEY")
	}
	return nil
}

// IsProduction reports whether the process runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
