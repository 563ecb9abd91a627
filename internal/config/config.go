// Package config loads application settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string
	Version  string

	Store       string
	DatabaseURL string
	DB          DBConfig
	DBMaxConns  int

	RedisAddr     string
	RedisPassword string

	SessionSecret    string
	SessionTTL       time.Duration
	PINMaxAttempts   int
	PINAttemptWindow time.Duration
	DevPIN           string

	AdmissionPolicy string
	SelectionPolicy string
	WaitListLimit   int

	WebDir             string
	CORSAllowedOrigins []string
}

// DBConfig holds PostgreSQL connection settings used when DATABASE_URL is unset.
type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN builds a libpq-compatible connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Load reads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Version:  getEnv("APP_VERSION", "dev"),

		Store:       strings.ToLower(getEnv("STORE", StorePostgres)),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "clinic"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		DBMaxConns: getEnvAsInt("DB_MAX_CONNS", 20),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		SessionSecret:    getEnv("SESSION_SECRET", ""),
		SessionTTL:       getEnvAsDuration("SESSION_TTL", 12*time.Hour),
		PINMaxAttempts:   getEnvAsInt("PIN_MAX_ATTEMPTS", 5),
		PINAttemptWindow: getEnvAsDuration("PIN_ATTEMPT_WINDOW", 15*time.Minute),
		DevPIN:           getEnv("DEV_PIN", ""),

		AdmissionPolicy: getEnv("ADMISSION_POLICY", "capacity"),
		SelectionPolicy: getEnv("SELECTION_POLICY", "replace"),
		WaitListLimit:   getEnvAsInt("WAIT_LIST_LIMIT", 500),

		WebDir:             getEnv("WEB_DIR", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = cfg.DB.DSN()
	}
	return cfg
}

// IsProduction reports whether ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Store {
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store)
	}
	if c.IsProduction() {
		if c.SessionSecret == "" {
			return fmt.Errorf("SESSION_SECRET is required in production")
		}
		if c.Store == StoreMemory {
			return fmt.Errorf("the memory store is not allowed in production")
		}
		if c.DevPIN != "" {
			return fmt.Errorf("DEV_PIN must not be set in production")
		}
	}
	if c.PINMaxAttempts <= 0 {
		return fmt.Errorf("PIN_MAX_ATTEMPTS must be positive")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
