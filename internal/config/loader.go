// loader.go implements the configuration loading lifecycle for the SafeWave
// platform.
//
// The loading sequence is:
//  1. Enforce UTC timezone to prevent drift bugs (the seasonal adjustment in
//     the risk engine is calendar-driven).
//  2. Load .env file via godotenv (non-fatal if absent; never overrides
//     existing environment variables).
//  3. Use envconfig to process struct tags and populate the Config struct.
//  4. Populate BuildInfo from linker-injected variables.
//  5. Validate the struct using go-playground/validator.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigError is a diagnostic error type returned by LoadConfig to aid
// debugging. It wraps a ConfigErrorType and an underlying error message.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// LoadConfig loads and validates the SafeWave configuration from the
// environment (and an optional .env file).
func LoadConfig() (*Config, error) {
	// Enforce UTC to keep the calendar-driven seasonal rule and all
	// persisted timestamps consistent across deployments.
	time.Local = time.UTC

	// godotenv.Load silently succeeds if no .env file exists and does NOT
	// override existing environment variables, preserving the priority
	// chain: OS Environment > Dotenv.
	_ = godotenv.Load()

	// The empty prefix "" means envconfig uses the exact tag values
	// (e.g., envconfig:"DATABASE_URL" reads DATABASE_URL directly).
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	cfg.Build = NewBuildInfo()

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}

	return &cfg, nil
}
