// Package config provides configuration management for pairmeta.
//
// This package has no I/O dependencies (no file operations, no network calls).
// Validation functions may write user-facing warnings via gn.Warn().
//
// # Configuration Sources
//
// Precedence (highest to lowest): CLI flags > env vars > config.yaml > defaults
//
// # Design Principles
//
// - Default config (from New()) is always valid - no validation needed
// - All mutations go through Option functions - the only way to modify Config
// - Invalid options are rejected with gn.Warn() - config remains in valid state
// - ToOptions() converts persistent fields (those in config.yaml)
// - Environment variables match ToOptions() fields exactly
//
// # Environment Variables
//
// Use PAIRMETA_ prefix with underscores for nesting:
//
//	PAIRMETA_DATABASE_HOST=localhost
//	PAIRMETA_DATABASE_PORT=5432
//	PAIRMETA_LOG_LEVEL=info
//	PAIRMETA_JOBS_NUMBER=8
package config

import (
	"runtime"
)

// Config represents the complete pairmeta configuration.
type Config struct {
	// Database contains PostgreSQL connection settings.
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`

	// Aggregate contains settings for meta-analysis pooling and ranking.
	Aggregate AggregateConfig `mapstructure:"aggregate" yaml:"aggregate"`

	// HTTP contains settings for the query API server.
	HTTP HTTPConfig `mapstructure:"http" yaml:"http"`

	Log LogConfig `mapstructure:"log" yaml:"log"`

	// JobsNumber is the number of concurrent workers for per-pair
	// pooled recomputation. Defaults to the number of CPU threads.
	JobsNumber int `mapstructure:"jobs_number" yaml:"jobs_number"`

	// HomeDir determines where config, cache and logs directories reside.
	// It must be set by CLI during init, there is no default value for it.
	HomeDir string
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname or IP address.
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the PostgreSQL server port number.
	Port int `mapstructure:"port" yaml:"port"`

	// User is the PostgreSQL database username.
	User string `mapstructure:"user" yaml:"user"`

	// Password is the PostgreSQL database password.
	Password string `mapstructure:"password" yaml:"password"`

	// Database is the PostgreSQL database name to connect to.
	Database string `mapstructure:"database" yaml:"database"`

	// SSLMode specifies the SSL connection mode.
	// Valid values: "disable", "require", "verify-ca", "verify-full"
	SSLMode string `mapstructure:"ssl_mode" yaml:"ssl_mode"`

	// BatchSize defines the number of records per batch for bulk
	// operations such as ledger replay and component staging reads.
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`
}

// AggregateConfig contains meta-analysis and ranking settings.
type AggregateConfig struct {
	// QThreshold is the FDR-adjusted significance cutoff for the
	// filtered ranking view.
	QThreshold float64 `mapstructure:"q_threshold" yaml:"q_threshold"`

	// KMin is the minimum number of contributing studies a pair needs
	// to appear in the filtered ranking view.
	KMin int `mapstructure:"k_min" yaml:"k_min"`

	// I2Max is the maximum acceptable heterogeneity (I², percent) for
	// the filtered ranking view. Pairs above it stay in the pooled
	// fact table but are excluded from rankings.
	I2Max float64 `mapstructure:"i2_max" yaml:"i2_max"`

	// StoufferWeighting selects weights for p-value combination.
	// Valid values: "sqrt_n" (weight by sqrt of sample size) or
	// "equal". With "sqrt_n", a combination where any component lacks
	// a sample size falls back to equal weights with a warning.
	StoufferWeighting string `mapstructure:"stouffer_weighting" yaml:"stouffer_weighting"`

	// MinCorrelationN is the minimum per-study sample size required to
	// Fisher-transform a correlation (SE = 1/sqrt(n-3) needs n >= 4).
	// Smaller studies are skipped with a warning.
	MinCorrelationN int `mapstructure:"min_correlation_n" yaml:"min_correlation_n"`

	// RetryAttempts bounds how many times a whole study update is
	// retried after a transient store failure.
	RetryAttempts int `mapstructure:"retry_attempts" yaml:"retry_attempts"`
}

// HTTPConfig contains query API server settings.
type HTTPConfig struct {
	// Host is the interface the API server binds to.
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the API server port.
	Port int `mapstructure:"port" yaml:"port"`

	// RateLimit is the sustained requests-per-second allowance per
	// server instance; bursts up to twice this value are tolerated.
	RateLimit int `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// LogConfig provides typical settings for application logs.
type LogConfig struct {
	// Format can be 'json' or 'text'.
	Format string `mapstructure:"format"      yaml:"format"`
	// Level of logging -- 'error', 'warn', 'info', 'debug'
	Level string `mapstructure:"level"       yaml:"level"`
	// Destination can be a log file (to default place), STDERR or STDOUT
	Destination string `mapstructure:"destination" yaml:"destination"`
}

// New creates a Config with sensible default values.
// The returned config is always valid and ready to use.
// Default values can be overridden using Option functions via Update().
func New() *Config {
	res := &Config{
		Database: DatabaseConfig{
			Host:      "localhost",
			Port:      5432,
			User:      "postgres",
			Password:  "postgres",
			Database:  "pairmeta",
			SSLMode:   "disable",
			BatchSize: 50_000,
		},
		Aggregate: AggregateConfig{
			QThreshold:        0.05,
			KMin:              3,
			I2Max:             75,
			StoufferWeighting: "sqrt_n",
			MinCorrelationN:   4,
			RetryAttempts:     3,
		},
		HTTP: HTTPConfig{
			Host:      "localhost",
			Port:      8658,
			RateLimit: 50,
		},
		Log: LogConfig{
			Format: "json",
			Level:  "info",
			// for now file is rewritten every time the log starts
			Destination: "file",
		},
		JobsNumber: runtime.NumCPU(),
	}

	return res
}
