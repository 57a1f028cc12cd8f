// Package config provides configuration management for the leaderboard collector.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported output formats
const (
	FormatParquet    = "parquet"
	FormatJSON       = "json"
	FormatRedis      = "redis"
	FormatPostgres   = "postgres"
	FormatClickHouse = "clickhouse"
)

// Supported throttle modes
const (
	ThrottleFixed = "fixed"
	ThrottleToken = "token"
)

// Config holds all application configuration
type Config struct {
	API      APIConfig
	Fetch    FetchConfig
	Output   OutputConfig
	Database DatabaseConfig
	Logging  LoggingConfig
}

// APIConfig holds leaderboard API configuration
type APIConfig struct {
	BaseURL        string
	PageSize       int
	RequestTimeout time.Duration
}

// FetchConfig holds pagination loop configuration
type FetchConfig struct {
	Interval      time.Duration // Wait between page requests (default: 500ms)
	ThrottleMode  string
	MaxAttempts   int // 1 disables retry
	ProgressEvery int
	StrictCount   bool
}

// OutputConfig holds sink configuration
type OutputConfig struct {
	Format      string
	Dir         string
	KeepPartial bool
}

// DatabaseConfig holds configuration for the database-backed sinks
type DatabaseConfig struct {
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// URL returns the connection URL used by golang-migrate
func (c PostgresConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// ClickHouseConfig holds ClickHouse configuration
type ClickHouseConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host      string
	Port      string
	Password  string
	DB        int
	KeyPrefix string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env is optional - environment variables can be set directly
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		API: APIConfig{
			BaseURL:        strings.TrimRight(getEnv("ELIXIR_API_BASE_URL", "https://api.points.elixir.xyz"), "/"),
			PageSize:       getEnvAsInt("ELIXIR_PAGE_SIZE", 5000),
			RequestTimeout: getEnvAsDuration("ELIXIR_REQUEST_TIMEOUT", 30*time.Second),
		},
		Fetch: FetchConfig{
			Interval:      getEnvAsDuration("FETCH_INTERVAL", 500*time.Millisecond),
			ThrottleMode:  strings.ToLower(getEnv("FETCH_THROTTLE_MODE", ThrottleFixed)),
			MaxAttempts:   getEnvAsInt("FETCH_MAX_ATTEMPTS", 1),
			ProgressEvery: getEnvAsInt("FETCH_PROGRESS_EVERY", 10),
			StrictCount:   getEnvAsBool("FETCH_STRICT_COUNT", true),
		},
		Output: OutputConfig{
			Format:      strings.ToLower(getEnv("OUTPUT_FORMAT", FormatParquet)),
			Dir:         getEnv("OUTPUT_DIR", "."),
			KeepPartial: getEnvAsBool("OUTPUT_KEEP_PARTIAL", false),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "leaderboard"),
				User:           getEnv("POSTGRES_USER", "collector"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 4),
			},
			ClickHouse: ClickHouseConfig{
				Host:     getEnv("CLICKHOUSE_HOST", "localhost"),
				Port:     getEnv("CLICKHOUSE_PORT", "9000"),
				Database: getEnv("CLICKHOUSE_DB", "leaderboard"),
				User:     getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
			Redis: RedisConfig{
				Host:      getEnv("REDIS_HOST", "localhost"),
				Port:      getEnv("REDIS_PORT", "6379"),
				Password:  getEnv("REDIS_PASSWORD", ""),
				DB:        getEnvAsInt("REDIS_DB", 0),
				KeyPrefix: getEnv("REDIS_KEY_PREFIX", "leaderboard"),
			},
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration for values the collector cannot run with
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("ELIXIR_API_BASE_URL cannot be empty")
	}
	if c.API.PageSize <= 0 {
		return fmt.Errorf("ELIXIR_PAGE_SIZE must be positive, got %d", c.API.PageSize)
	}
	if c.Fetch.Interval < 0 {
		return fmt.Errorf("FETCH_INTERVAL cannot be negative")
	}
	switch c.Fetch.ThrottleMode {
	case ThrottleFixed, ThrottleToken:
	default:
		return fmt.Errorf("unknown FETCH_THROTTLE_MODE %q", c.Fetch.ThrottleMode)
	}
	if c.Fetch.MaxAttempts < 1 {
		return fmt.Errorf("FETCH_MAX_ATTEMPTS must be at least 1, got %d", c.Fetch.MaxAttempts)
	}
	if c.Fetch.ProgressEvery < 1 {
		return fmt.Errorf("FETCH_PROGRESS_EVERY must be at least 1, got %d", c.Fetch.ProgressEvery)
	}
	switch c.Output.Format {
	case FormatParquet, FormatJSON, FormatRedis, FormatPostgres, FormatClickHouse:
	default:
		return fmt.Errorf("unknown OUTPUT_FORMAT %q", c.Output.Format)
	}
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a boolean with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
