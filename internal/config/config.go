package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Database DatabaseConfig `yaml:"database"`
	LogLevel string         `yaml:"log_level"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	MaxUploadMB    int64    `yaml:"max_upload_mb"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// StoreConfig selects where uploads and outputs are kept
type StoreConfig struct {
	Kind            string        `yaml:"kind"` // dir or sql
	DataDir         string        `yaml:"data_dir"`
	UploadTTL       time.Duration `yaml:"upload_ttl"`
	OutputTTL       time.Duration `yaml:"output_ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"` // 0 disables the periodic sweep
}

// DatabaseConfig holds database connection settings for the sql store
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite or postgres
	URL    string `yaml:"url"`
}

// MaxUploadBytes returns the upload limit in bytes.
func (c ServerConfig) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8000",
			MaxUploadMB:    100,
			AllowedOrigins: []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		},
		Store: StoreConfig{
			Kind:            "dir",
			DataDir:         "./data",
			UploadTTL:       24 * time.Hour,
			OutputTTL:       48 * time.Hour,
			CleanupInterval: time.Hour,
		},
		Database: DatabaseConfig{Driver: "sqlite"},
		LogLevel: "info",
	}
}

// Load builds the configuration from defaults, the YAML file named by
// XLACTION_CONFIG, a .env file and the environment, in increasing
// precedence, and validates it.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("XLACTION_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	// A missing .env file is normal in production.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = getEnvOrDefault("XLACTION_ADDR", c.Server.Addr)
	c.Server.MaxUploadMB = int64(getEnvIntOrDefault("XLACTION_MAX_UPLOAD_MB", int(c.Server.MaxUploadMB)))
	if origins := os.Getenv("XLACTION_ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = splitList(origins)
	}

	c.Store.Kind = getEnvOrDefault("XLACTION_STORE", c.Store.Kind)
	c.Store.DataDir = getEnvOrDefault("XLACTION_DATA_DIR", c.Store.DataDir)
	c.Store.UploadTTL = getEnvDurationOrDefault("XLACTION_UPLOAD_TTL", c.Store.UploadTTL)
	c.Store.OutputTTL = getEnvDurationOrDefault("XLACTION_OUTPUT_TTL", c.Store.OutputTTL)
	c.Store.CleanupInterval = getEnvDurationOrDefault("XLACTION_CLEANUP_INTERVAL", c.Store.CleanupInterval)

	c.Database.Driver = getEnvOrDefault("DATABASE_DRIVER", c.Database.Driver)
	c.Database.URL = getEnvOrDefault("DATABASE_URL", c.Database.URL)

	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Store.Kind {
	case "dir":
		if c.Store.DataDir == "" {
			return errors.New("data directory is required for the dir store")
		}
	case "sql":
		if c.Database.URL == "" {
			return errors.New("DATABASE_URL is required for the sql store")
		}
		if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
			return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf("unsupported store kind %q", c.Store.Kind)
	}
	if c.Store.UploadTTL <= 0 || c.Store.OutputTTL <= 0 {
		return errors.New("retention periods must be positive")
	}
	if c.Store.CleanupInterval < 0 {
		return errors.New("cleanup interval must not be negative")
	}
	if c.Server.MaxUploadMB <= 0 {
		return errors.New("upload limit must be positive")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
