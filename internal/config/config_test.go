package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	// Set some test environment variables
	if err := os.Setenv("ELIXIR_PAGE_SIZE", "1000"); err != nil {
		t.Fatalf("Failed to set ELIXIR_PAGE_SIZE: %v", err)
	}
	if err := os.Setenv("FETCH_INTERVAL", "250ms"); err != nil {
		t.Fatalf("Failed to set FETCH_INTERVAL: %v", err)
	}
	if err := os.Setenv("OUTPUT_FORMAT", "JSON"); err != nil {
		t.Fatalf("Failed to set OUTPUT_FORMAT: %v", err)
	}
	if err := os.Setenv("ELIXIR_API_BASE_URL", "http://localhost:9999/"); err != nil {
		t.Fatalf("Failed to set ELIXIR_API_BASE_URL: %v", err)
	}
	defer func() {
		_ = os.Unsetenv("ELIXIR_PAGE_SIZE")
		_ = os.Unsetenv("FETCH_INTERVAL")
		_ = os.Unsetenv("OUTPUT_FORMAT")
		_ = os.Unsetenv("ELIXIR_API_BASE_URL")
	}()

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.API.PageSize != 1000 {
		t.Errorf("API.PageSize = %v, want %v", cfg.API.PageSize, 1000)
	}

	if cfg.API.BaseURL != "http://localhost:9999" {
		t.Errorf("API.BaseURL = %v, want %v", cfg.API.BaseURL, "http://localhost:9999")
	}

	if cfg.Fetch.Interval != 250*time.Millisecond {
		t.Errorf("Fetch.Interval = %v, want %v", cfg.Fetch.Interval, 250*time.Millisecond)
	}

	if cfg.Output.Format != FormatJSON {
		t.Errorf("Output.Format = %v, want %v", cfg.Output.Format, FormatJSON)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.API.BaseURL != "https://api.points.elixir.xyz" {
		t.Errorf("API.BaseURL = %v", cfg.API.BaseURL)
	}
	if cfg.API.PageSize != 5000 {
		t.Errorf("API.PageSize = %v, want 5000", cfg.API.PageSize)
	}
	if cfg.Fetch.Interval != 500*time.Millisecond {
		t.Errorf("Fetch.Interval = %v, want 500ms", cfg.Fetch.Interval)
	}
	if cfg.Fetch.ThrottleMode != ThrottleFixed {
		t.Errorf("Fetch.ThrottleMode = %v, want %v", cfg.Fetch.ThrottleMode, ThrottleFixed)
	}
	if cfg.Fetch.MaxAttempts != 1 {
		t.Errorf("Fetch.MaxAttempts = %v, want 1", cfg.Fetch.MaxAttempts)
	}
	if cfg.Fetch.ProgressEvery != 10 {
		t.Errorf("Fetch.ProgressEvery = %v, want 10", cfg.Fetch.ProgressEvery)
	}
	if !cfg.Fetch.StrictCount {
		t.Error("Fetch.StrictCount = false, want true")
	}
	if cfg.Output.Format != FormatParquet {
		t.Errorf("Output.Format = %v, want %v", cfg.Output.Format, FormatParquet)
	}
	if cfg.Output.KeepPartial {
		t.Error("Output.KeepPartial = true, want false")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			API:    APIConfig{BaseURL: "http://x", PageSize: 10},
			Fetch:  FetchConfig{ThrottleMode: ThrottleFixed, MaxAttempts: 1, ProgressEvery: 10},
			Output: OutputConfig{Format: FormatParquet},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "empty base url", mutate: func(c *Config) { c.API.BaseURL = "" }, wantErr: "ELIXIR_API_BASE_URL"},
		{name: "zero page size", mutate: func(c *Config) { c.API.PageSize = 0 }, wantErr: "ELIXIR_PAGE_SIZE"},
		{name: "negative interval", mutate: func(c *Config) { c.Fetch.Interval = -time.Second }, wantErr: "FETCH_INTERVAL"},
		{name: "unknown throttle mode", mutate: func(c *Config) { c.Fetch.ThrottleMode = "burst" }, wantErr: "FETCH_THROTTLE_MODE"},
		{name: "zero attempts", mutate: func(c *Config) { c.Fetch.MaxAttempts = 0 }, wantErr: "FETCH_MAX_ATTEMPTS"},
		{name: "zero progress", mutate: func(c *Config) { c.Fetch.ProgressEvery = 0 }, wantErr: "FETCH_PROGRESS_EVERY"},
		{name: "unknown format", mutate: func(c *Config) { c.Output.Format = "csv" }, wantErr: "OUTPUT_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestPostgresConfigURL(t *testing.T) {
	cfg := PostgresConfig{Host: "db", Port: "5432", Database: "leaderboard", User: "u", Password: "p"}
	want := "postgres://u:p@db:5432/leaderboard?sslmode=disable"
	if got := cfg.URL(); got != want {
		t.Errorf("URL() = %v, want %v", got, want)
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns environment variable when set",
			key:          "TEST_KEY",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when environment variable not set",
			key:          "NONEXISTENT_KEY",
			defaultValue: "default",
			envValue:     "",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				if err := os.Setenv(tt.key, tt.envValue); err != nil {
					t.Fatalf("Failed to set env var: %v", err)
				}
				defer func() {
					_ = os.Unsetenv(tt.key)
				}()
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue int
		envValue     string
		want         int
	}{
		{
			name:         "returns integer when valid",
			key:          "TEST_INT",
			defaultValue: 100,
			envValue:     "200",
			want:         200,
		},
		{
			name:         "returns default when invalid",
			key:          "TEST_INT_INVALID",
			defaultValue: 100,
			envValue:     "invalid",
			want:         100,
		},
		{
			name:         "returns default when not set",
			key:          "TEST_INT_NOTSET",
			defaultValue: 100,
			envValue:     "",
			want:         100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				if err := os.Setenv(tt.key, tt.envValue); err != nil {
					t.Fatalf("Failed to set env var: %v", err)
				}
				defer func() {
					_ = os.Unsetenv(tt.key)
				}()
			}

			got := getEnvAsInt(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvAsInt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue time.Duration
		envValue     string
		want         time.Duration
	}{
		{
			name:         "returns duration when valid",
			key:          "TEST_DURATION",
			defaultValue: 10 * time.Second,
			envValue:     "30s",
			want:         30 * time.Second,
		},
		{
			name:         "returns default when invalid",
			key:          "TEST_DURATION_INVALID",
			defaultValue: 10 * time.Second,
			envValue:     "invalid",
			want:         10 * time.Second,
		},
		{
			name:         "returns default when not set",
			key:          "TEST_DURATION_NOTSET",
			defaultValue: 10 * time.Second,
			envValue:     "",
			want:         10 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				if err := os.Setenv(tt.key, tt.envValue); err != nil {
					t.Fatalf("Failed to set env var: %v", err)
				}
				defer func() {
					_ = os.Unsetenv(tt.key)
				}()
			}

			got := getEnvAsDuration(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvAsDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue bool
		envValue     string
		want         bool
	}{
		{
			name:         "returns false when set to false",
			key:          "TEST_BOOL",
			defaultValue: true,
			envValue:     "false",
			want:         false,
		},
		{
			name:         "returns default when invalid",
			key:          "TEST_BOOL_INVALID",
			defaultValue: true,
			envValue:     "maybe",
			want:         true,
		},
		{
			name:         "returns default when not set",
			key:          "TEST_BOOL_NOTSET",
			defaultValue: false,
			envValue:     "",
			want:         false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				if err := os.Setenv(tt.key, tt.envValue); err != nil {
					t.Fatalf("Failed to set env var: %v", err)
				}
				defer func() {
					_ = os.Unsetenv(tt.key)
				}()
			}

			got := getEnvAsBool(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvAsBool() = %v, want %v", got, tt.want)
			}
		})
	}
}
