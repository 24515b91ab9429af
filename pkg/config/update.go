package config

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/gnames/gn"
)

// Update applies a slice of Option functions to the Config.
// This is the only way to modify a Config after creation.
// Invalid options are rejected with warnings - config remains in valid state.
func (c *Config) Update(opts []Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// ToOptions converts the Config to a slice of Option functions.
// Only includes persistent fields appropriate for config.yaml.
// Excludes runtime-only fields (HomeDir).
// Used for round-tripping config.yaml ↔ Config conversions.
func (c *Config) ToOptions() []Option {
	var res []Option

	if c.Database.Host != "" {
		res = append(res, OptDatabaseHost(c.Database.Host))
	}
	if c.Database.Port > 0 {
		res = append(res, OptDatabasePort(c.Database.Port))
	}
	if c.Database.User != "" {
		res = append(res, OptDatabaseUser(c.Database.User))
	}
	if c.Database.Password != "" {
		res = append(res, OptDatabasePassword(c.Database.Password))
	}
	if c.Database.Database != "" {
		res = append(res, OptDatabaseDatabase(c.Database.Database))
	}
	if c.Database.SSLMode != "" {
		res = append(res, OptDatabaseSSLMode(c.Database.SSLMode))
	}
	if c.Database.BatchSize > 0 {
		res = append(res, OptDatabaseBatchSize(c.Database.BatchSize))
	}

	if c.Aggregate.QThreshold > 0 {
		res = append(res, OptQThreshold(c.Aggregate.QThreshold))
	}
	if c.Aggregate.KMin > 0 {
		res = append(res, OptKMin(c.Aggregate.KMin))
	}
	if c.Aggregate.I2Max > 0 {
		res = append(res, OptI2Max(c.Aggregate.I2Max))
	}
	if c.Aggregate.StoufferWeighting != "" {
		res = append(res, OptStoufferWeighting(c.Aggregate.StoufferWeighting))
	}
	if c.Aggregate.MinCorrelationN > 0 {
		res = append(res, OptMinCorrelationN(c.Aggregate.MinCorrelationN))
	}
	if c.Aggregate.RetryAttempts > 0 {
		res = append(res, OptRetryAttempts(c.Aggregate.RetryAttempts))
	}

	if c.HTTP.Host != "" {
		res = append(res, OptHTTPHost(c.HTTP.Host))
	}
	if c.HTTP.Port > 0 {
		res = append(res, OptHTTPPort(c.HTTP.Port))
	}
	if c.HTTP.RateLimit > 0 {
		res = append(res, OptHTTPRateLimit(c.HTTP.RateLimit))
	}

	if c.Log.Format != "" {
		res = append(res, OptLogFormat(c.Log.Format))
	}
	if c.Log.Level != "" {
		res = append(res, OptLogLevel(c.Log.Level))
	}
	if c.Log.Destination != "" {
		res = append(res, OptLogDestination(c.Log.Destination))
	}

	if c.JobsNumber > 0 {
		res = append(res, OptJobsNumber(c.JobsNumber))
	}

	return res
}

func isValidString(name, s string) bool {
	res := s != ""
	if !res {
		gn.Warn("<em>%s</em> cannot be empty, ignoring", name)
	}
	return res
}

func isValidInt(name string, i int) bool {
	res := i > 0
	if !res {
		gn.Warn("<em>%s</em> has to be positive number, ignoring %d", name, i)
	}
	return res
}

func isValidIntMin(name string, i, min int) bool {
	res := i >= min
	if !res {
		gn.Warn("<em>%s</em> has to be at least %d, ignoring %d", name, min, i)
	}
	return res
}

func isValidFraction(name string, f float64) bool {
	res := f > 0 && f <= 1
	if !res {
		gn.Warn("<em>%s</em> has to be in (0, 1], ignoring %v", name, f)
	}
	return res
}

func isValidPercent(name string, f float64) bool {
	res := f > 0 && f <= 100
	if !res {
		gn.Warn("<em>%s</em> has to be in (0, 100], ignoring %v", name, f)
	}
	return res
}

func isValidEnum(name, val string) bool {
	s := struct{}{}
	data := map[string]map[string]struct{}{
		"Database.SSLMode": {"disable": s, "require": s,
			"verify-ca": s, "verify-full": s},
		"Aggregate.StoufferWeighting": {"sqrt_n": s, "equal": s},
		"Log.Level":                   {"debug": s, "info": s, "warn": s, "error": s},
		"Log.Format":                  {"json": s, "text": s},
		"Log.Destination":             {"file": s, "stderr": s, "stdout": s},
	}
	vals := slices.Sorted(maps.Keys(data[name]))
	var lines []string
	for _, v := range vals {
		line := fmt.Sprintf("  * %s", v)
		lines = append(lines, line)
	}
	if _, ok := data[name][val]; ok {
		return true
	}
	gn.Warn(
		"<em>%s</em> does not support '%s' as a value. "+
			"Valid values are: \n%s\nIgnoring...",
		name, val, strings.Join(lines, "\n"),
	)
	return false
}
