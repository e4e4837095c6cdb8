package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"product-views/pkg/validator"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Catalog  CatalogConfig
	App      AppConfig
	Sentry   SentryConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// CatalogConfig points at the external product catalog
type CatalogConfig struct {
	BaseURL string
	Timeout time.Duration
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Environment      string
	LogLevel         string
	BaseURL          string
	UpsertStrategy   string
	ViewGuardTTL     time.Duration
	LivePollInterval time.Duration
	DisplayLocale    string
	DisplayTimezone  string
	EnableMetrics    bool
}

// SentryConfig enables error reporting when DSN is set
type SentryConfig struct {
	DSN          string
	FlushTimeout time.Duration
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present; real
// environment variables take precedence over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     parseDuration("SERVER_READ_TIMEOUT", "10s"),
			WriteTimeout:    parseDuration("SERVER_WRITE_TIMEOUT", "30s"),
			IdleTimeout:     parseDuration("SERVER_IDLE_TIMEOUT", "120s"),
			ShutdownTimeout: parseDuration("SERVER_SHUTDOWN_TIMEOUT", "30s"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "productviews"),
			Password:        getEnv("DB_PASSWORD", "dev_password_123"),
			DBName:          getEnv("DB_NAME", "productviews"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    parseInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    parseInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: parseDuration("DB_CONN_MAX_LIFETIME", "5m"),
			AutoMigrate:     parseBool("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Enabled:  parseBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt("REDIS_DB", 0),
			CacheTTL: parseDuration("REDIS_CACHE_TTL", "10m"),
		},
		Catalog: CatalogConfig{
			BaseURL: getEnv("CATALOG_BASE_URL", "https://fakestoreapi.com/products"),
			Timeout: parseDuration("CATALOG_TIMEOUT", "5s"),
		},
		App: AppConfig{
			Environment:      getEnv("APP_ENV", "development"),
			LogLevel:         getEnv("LOG_LEVEL", "info"),
			BaseURL:          getEnv("BASE_URL", "http://localhost:8080"),
			UpsertStrategy:   getEnv("UPSERT_STRATEGY", "atomic"),
			ViewGuardTTL:     parseDuration("VIEW_GUARD_TTL", "30m"),
			LivePollInterval: parseDuration("LIVE_POLL_INTERVAL", "5s"),
			DisplayLocale:    getEnv("DISPLAY_LOCALE", "en-US"),
			DisplayTimezone:  getEnv("DISPLAY_TIMEZONE", "UTC"),
			EnableMetrics:    parseBool("ENABLE_METRICS", true),
		},
		Sentry: SentryConfig{
			DSN:          getEnv("SENTRY_DSN", ""),
			FlushTimeout: parseDuration("SENTRY_FLUSH_TIMEOUT", "2s"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings the server cannot start with
func (c *Config) Validate() error {
	if err := validator.ValidateURL(c.App.BaseURL); err != nil {
		return fmt.Errorf("BASE_URL: %w", err)
	}
	if err := validator.ValidateURL(c.Catalog.BaseURL); err != nil {
		return fmt.Errorf("CATALOG_BASE_URL: %w", err)
	}
	if c.App.ViewGuardTTL <= 0 {
		return errors.New("VIEW_GUARD_TTL must be positive")
	}
	if c.App.LivePollInterval <= 0 {
		return errors.New("LIVE_POLL_INTERVAL must be positive")
	}
	if _, err := time.LoadLocation(c.App.DisplayTimezone); err != nil {
		return fmt.Errorf("DISPLAY_TIMEZONE: %w", err)
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// RedisAddr returns the Redis address in host:port format
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsProduction reports whether APP_ENV is production
func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func parseBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func parseDuration(key string, defaultValue string) time.Duration {
	value := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		// Fall back to the default on a malformed value
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}
