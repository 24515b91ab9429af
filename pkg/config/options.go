package config

import (
	"strings"
)

// Option is a function that modifies a Config.
// Options validate inputs and reject invalid values with warnings.
type Option func(*Config)

// OptDatabaseHost sets the PostgreSQL server hostname or IP address.
func OptDatabaseHost(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Database Host", s) {
			c.Database.Host = s
		}
	}
}

// OptDatabasePort sets the PostgreSQL server port number.
func OptDatabasePort(i int) Option {
	return func(c *Config) {
		if isValidInt("Database Port", i) {
			c.Database.Port = i
		}
	}
}

// OptDatabaseUser sets the PostgreSQL database username.
func OptDatabaseUser(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Database User", s) {
			c.Database.User = s
		}
	}
}

// OptDatabasePassword sets the PostgreSQL database password.
func OptDatabasePassword(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Database Password", s) {
			c.Database.Password = s
		}
	}
}

// OptDatabaseDatabase sets the PostgreSQL database name to connect to.
func OptDatabaseDatabase(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Database Name", s) {
			c.Database.Database = s
		}
	}
}

// OptDatabaseSSLMode sets the SSL connection mode.
// Valid values: "disable", "require", "verify-ca", "verify-full".
func OptDatabaseSSLMode(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Database.SSLMode", s) {
			c.Database.SSLMode = s
		}
	}
}

// OptDatabaseBatchSize sets the number of records to process per batch.
func OptDatabaseBatchSize(i int) Option {
	return func(c *Config) {
		if isValidInt("Batch Size", i) {
			c.Database.BatchSize = i
		}
	}
}

// OptQThreshold sets the FDR significance cutoff for the ranking view.
func OptQThreshold(f float64) Option {
	return func(c *Config) {
		if isValidFraction("Aggregate.QThreshold", f) {
			c.Aggregate.QThreshold = f
		}
	}
}

// OptKMin sets the minimum study count for the ranking view.
func OptKMin(i int) Option {
	return func(c *Config) {
		if isValidInt("Aggregate.KMin", i) {
			c.Aggregate.KMin = i
		}
	}
}

// OptI2Max sets the maximum heterogeneity percentage for the ranking view.
func OptI2Max(f float64) Option {
	return func(c *Config) {
		if isValidPercent("Aggregate.I2Max", f) {
			c.Aggregate.I2Max = f
		}
	}
}

// OptStoufferWeighting selects the weighting scheme for p-value
// combination: "sqrt_n" or "equal".
func OptStoufferWeighting(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Aggregate.StoufferWeighting", s) {
			c.Aggregate.StoufferWeighting = s
		}
	}
}

// OptMinCorrelationN sets the minimum sample size for Fisher-transforming
// a correlation component. Values below 4 are rejected: SE = 1/sqrt(n-3)
// is undefined for smaller n.
func OptMinCorrelationN(i int) Option {
	return func(c *Config) {
		if isValidIntMin("Aggregate.MinCorrelationN", i, 4) {
			c.Aggregate.MinCorrelationN = i
		}
	}
}

// OptRetryAttempts bounds retries of a whole study update after
// transient store failures.
func OptRetryAttempts(i int) Option {
	return func(c *Config) {
		if isValidInt("Aggregate.RetryAttempts", i) {
			c.Aggregate.RetryAttempts = i
		}
	}
}

// OptHTTPHost sets the interface the query API binds to.
func OptHTTPHost(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("HTTP Host", s) {
			c.HTTP.Host = s
		}
	}
}

// OptHTTPPort sets the query API port.
func OptHTTPPort(i int) Option {
	return func(c *Config) {
		if isValidInt("HTTP Port", i) {
			c.HTTP.Port = i
		}
	}
}

// OptHTTPRateLimit sets the sustained requests-per-second allowance.
func OptHTTPRateLimit(i int) Option {
	return func(c *Config) {
		if isValidInt("HTTP RateLimit", i) {
			c.HTTP.RateLimit = i
		}
	}
}

// OptLogFormat sets the log output format ('json' or 'text').
func OptLogFormat(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Log.Format", s) {
			c.Log.Format = s
		}
	}
}

// OptLogLevel sets the log level ('debug', 'info', 'warn', 'error').
func OptLogLevel(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Log.Level", s) {
			c.Log.Level = s
		}
	}
}

// OptLogDestination sets where logs go ('file', 'stdout', 'stderr').
func OptLogDestination(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Log.Destination", s) {
			c.Log.Destination = s
		}
	}
}

// OptJobsNumber sets the number of concurrent workers for per-pair
// pooled recomputation.
func OptJobsNumber(i int) Option {
	return func(c *Config) {
		if isValidInt("Jobs Number", i) {
			c.JobsNumber = i
		}
	}
}

// OptHomeDir sets the home directory used to derive config, cache and
// log paths. Runtime-only, never persisted to config.yaml.
func OptHomeDir(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Home Directory", s) {
			c.HomeDir = s
		}
	}
}
