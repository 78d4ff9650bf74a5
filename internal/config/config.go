// Package config defines the global configuration structure for the SafeWave
// platform. Configuration is loaded once at process initialization and is
// immutable thereafter. It follows 12-Factor App principles by strictly
// separating code from configuration.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File (Lowest)
//
// Any missing required value or invalid format causes the application to fail
// immediately on startup (fail fast).
package config

import (
	"time"

	"safewave/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used throughout configuration to prevent accidental logging of sensitive
// values.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the SafeWave platform.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"safewave"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// SiteID identifies the monitored site this deployment scores. The
	// original deployment assumed a single implicit site; readings that do
	// not carry an explicit site identifier are attributed to this one.
	SiteID string `envconfig:"SITE_ID" default:"default"`

	// Domain Configurations
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	MQTT       MQTTConfig
	Classifier ClassifierConfig
	Risk       RiskThresholds
	Retention  RetentionConfig
	Security   SecurityConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server tuning parameters.
type ServerConfig struct {
	Port           string        `envconfig:"PORT" default:"8080"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required"`

	// Tuning Parameters
	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`     // Fail fast when pool exhausted
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"` // Detect dead connections during failover
}

// RedisConfig holds the connection settings for the latest-decision cache.
// The cache is strictly best-effort; an unreachable Redis degrades GET
// /latest to a database read and never fails a decision.
type RedisConfig struct {
	Addr      string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password  SecretString  `envconfig:"REDIS_PASSWORD"`
	DB        int           `envconfig:"REDIS_DB" default:"0"`
	LatestTTL time.Duration `envconfig:"REDIS_LATEST_TTL" default:"10m"`
}

// MQTTConfig holds the broker settings for the sensor-reading ingestor.
type MQTTConfig struct {
	BrokerURL     string       `envconfig:"MQTT_BROKER_URL" default:"tcp://localhost:1883"`
	ClientID      string       `envconfig:"MQTT_CLIENT_ID" default:"safewave-ingestor"`
	Username      string       `envconfig:"MQTT_USERNAME"`
	Password      SecretString `envconfig:"MQTT_PASSWORD"`
	ReadingsTopic string       `envconfig:"MQTT_READINGS_TOPIC" default:"safewave/readings"`
	QoS           int          `envconfig:"MQTT_QOS" default:"1" validate:"gte=0,lte=2"`
}

// ClassifierConfig holds the settings for the external advisory model
// service. An empty URL disables the classifier entirely; every decision
// then carries the UNKNOWN advisory label.
type ClassifierConfig struct {
	URL     string        `envconfig:"CLASSIFIER_URL" validate:"omitempty,url"`
	Timeout time.Duration `envconfig:"CLASSIFIER_TIMEOUT" default:"5s"`
}

// RetentionConfig holds the decision-log retention settings. Decisions older
// than MaxAge are archived to gzip NDJSON files under ArchiveDir and then
// pruned, on the cron schedule given by Schedule. An empty ArchiveDir skips
// archiving and prunes directly.
type RetentionConfig struct {
	MaxAge     time.Duration `envconfig:"RETENTION_MAX_AGE" default:"2160h"` // 90 days
	Schedule   string        `envconfig:"RETENTION_SCHEDULE" default:"0 3 * * *"`
	ArchiveDir string        `envconfig:"RETENTION_ARCHIVE_DIR"`
}

// SecurityConfig holds CORS settings for the dashboard and mobile clients.
type SecurityConfig struct {
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
