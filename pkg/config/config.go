package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for intent-engine.
// Configuration can come from YAML file (config.yaml) or environment
// variables. Environment variables always override YAML values. Secrets
// (database password) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8480"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// WeightsPath locates the versioned weight-table artifact. The table is
	// loaded once at startup; weight changes ship as deployments.
	WeightsPath string `yaml:"weights_path" env:"WEIGHTS_PATH" env-default:"weights.yaml"`

	// MigrationsPath locates the SQL migration files.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Registry is the entity-identity registry consumed per submission.
	Registry RegistryConfig `yaml:"registry"`

	// Intake tuning
	Intake IntakeConfig `yaml:"intake"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"intent"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"intent_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// RegistryConfig holds the identity-registry client settings.
type RegistryConfig struct {
	// BaseURL is the registry API base URL, e.g. http://identity:8080.
	BaseURL string `yaml:"base_url" env:"REGISTRY_BASE_URL" env-default:"http://localhost:8470"`
	// TimeoutSeconds bounds each existence lookup.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"REGISTRY_TIMEOUT_SECONDS" env-default:"5"`
}

// Timeout returns the per-lookup deadline.
func (c *RegistryConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// IntakeConfig holds intake-gateway tuning.
type IntakeConfig struct {
	// StorageTimeoutMS bounds each internal storage operation during intake.
	// Expiry maps to the retryable storage_timeout rejection.
	StorageTimeoutMS int `yaml:"storage_timeout_ms" env:"INTAKE_STORAGE_TIMEOUT_MS" env-default:"2000"`
	// ErrorSinkTimeoutMS bounds the best-effort error-sink write.
	ErrorSinkTimeoutMS int `yaml:"error_sink_timeout_ms" env:"INTAKE_ERROR_SINK_TIMEOUT_MS" env-default:"1000"`
}

// StorageTimeout returns the per-operation storage deadline.
func (c *IntakeConfig) StorageTimeout() time.Duration {
	return time.Duration(c.StorageTimeoutMS) * time.Millisecond
}

// ErrorSinkTimeout returns the error-sink write deadline.
func (c *IntakeConfig) ErrorSinkTimeout() time.Duration {
	return time.Duration(c.ErrorSinkTimeoutMS) * time.Millisecond
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time and set on the
// returned Config.
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
