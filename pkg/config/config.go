package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for catalog-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, tokens) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8484"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL metadata store)
	Database DatabaseConfig `yaml:"database"`

	// Sync configuration for metadata extraction runs
	Sync SyncConfig `yaml:"sync"`

	// Encryption key for data source credentials. Must be a 32-byte key,
	// base64 encoded. Generate with: openssl rand -base64 32.
	// Server will fail to start if this is not set.
	CredentialsKey string `yaml:"-" env:"CREDENTIALS_KEY"` // Secret - not in YAML
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"catalog"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"catalog_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	MaxIdleConns   int32  `yaml:"max_idle_conns" env:"PGMAX_IDLE_CONNS" env-default:"5"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// SyncConfig holds settings for metadata extraction runs against source systems.
type SyncConfig struct {
	// ConnectTimeoutSeconds bounds the connectivity probe against a source.
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds" env:"SYNC_CONNECT_TIMEOUT_SECONDS" env-default:"10"`
	// ExtractTimeoutMinutes bounds a full metadata extraction pass.
	ExtractTimeoutMinutes int `yaml:"extract_timeout_minutes" env:"SYNC_EXTRACT_TIMEOUT_MINUTES" env-default:"30"`
	// QueryTimeoutSeconds bounds individual introspection queries.
	QueryTimeoutSeconds int `yaml:"query_timeout_seconds" env:"SYNC_QUERY_TIMEOUT_SECONDS" env-default:"60"`
}

// ConnectTimeout returns the connectivity probe deadline as a duration.
func (s *SyncConfig) ConnectTimeout() time.Duration {
	return time.Duration(s.ConnectTimeoutSeconds) * time.Second
}

// ExtractTimeout returns the full extraction deadline as a duration.
func (s *SyncConfig) ExtractTimeout() time.Duration {
	return time.Duration(s.ExtractTimeoutMinutes) * time.Minute
}

// QueryTimeout returns the per-query deadline as a duration.
func (s *SyncConfig) QueryTimeout() time.Duration {
	return time.Duration(s.QueryTimeoutSeconds) * time.Second
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
// Environment variables override YAML values. Secrets (PGPASSWORD) must come
// from environment variables (yaml:"-" fields).
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	return cfg, nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
