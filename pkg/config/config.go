package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for dedup-engine.
// Configuration can come from YAML file (config.yaml) or environment
// variables. Environment variables always override YAML values. Secrets
// (the database password) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8087"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration (optional, used for the cross-instance scan lock)
	Redis RedisConfig `yaml:"redis"`

	// Duplicate detection configuration
	Dedup DedupConfig `yaml:"dedup"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"hausradar"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"dedup_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// RedisConfig holds optional Redis configuration. An empty host disables
// Redis; the scan lock then falls back to an in-process lock, which is
// sufficient for single-instance deployments.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST"`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// DedupConfig holds the tunable knobs of the duplicate-detection engine.
type DedupConfig struct {
	// MinConfidence is the default scan threshold. Callers may raise it per
	// request but never lower it below the evaluator's own emission rules.
	MinConfidence float64 `yaml:"min_confidence" env:"DEDUP_MIN_CONFIDENCE" env-default:"0.70"`

	// IncludeSameOwner flips the default cross-owner-only policy. Leaving
	// it false avoids flagging one landlord's near-identical units.
	IncludeSameOwner bool `yaml:"include_same_owner" env:"DEDUP_INCLUDE_SAME_OWNER" env-default:"false"`

	// Workers is the size of the pair-comparison worker pool.
	Workers int `yaml:"workers" env:"DEDUP_WORKERS" env-default:"4"`

	// BatchLimit caps how many records a single scan will fetch. The scan
	// is quadratic in the batch size, so this is a hard backstop.
	BatchLimit int `yaml:"batch_limit" env:"DEDUP_BATCH_LIMIT" env-default:"500"`

	// ScanTimeoutSeconds bounds one scan invocation end to end, including
	// the batched media-hash lookup and group persistence.
	ScanTimeoutSeconds int `yaml:"scan_timeout_seconds" env:"DEDUP_SCAN_TIMEOUT_SECONDS" env-default:"120"`

	// TopMatches is how many of the highest-confidence matches a scan
	// summary reports back to the caller.
	TopMatches int `yaml:"top_matches" env:"DEDUP_TOP_MATCHES" env-default:"20"`
}

// ScanTimeout returns the scan timeout as a duration.
func (c *DedupConfig) ScanTimeout() time.Duration {
	return time.Duration(c.ScanTimeoutSeconds) * time.Second
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

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Dedup.MinConfidence < 0 || c.Dedup.MinConfidence > 1 {
		return fmt.Errorf("dedup.min_confidence must be in [0,1], got %v", c.Dedup.MinConfidence)
	}
	if c.Dedup.Workers < 1 {
		return fmt.Errorf("dedup.workers must be at least 1, got %d", c.Dedup.Workers)
	}
	if c.Dedup.BatchLimit < 2 {
		return fmt.Errorf("dedup.batch_limit must be at least 2, got %d", c.Dedup.BatchLimit)
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
