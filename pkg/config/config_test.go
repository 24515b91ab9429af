package config_test

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/genobase/pairmeta/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirs(t *testing.T) {
	tempHome := t.TempDir()

	tests := []struct {
		msg string
		fn  func(string) string
		res string
	}{
		{
			msg: "config dir",
			fn:  config.ConfigDir,
			res: filepath.Join(tempHome, ".config", "pairmeta"),
		},
		{
			msg: "cache dir",
			fn:  config.CacheDir,
			res: filepath.Join(tempHome, ".cache", "pairmeta"),
		},
		{
			msg: "log dir",
			fn:  config.LogDir,
			res: filepath.Join(tempHome, ".local", "share", "pairmeta", "logs"),
		},
	}

	for _, v := range tests {
		res := v.fn(tempHome)
		assert.Equal(t, v.res, res, v.msg)
	}
}

func TestNew(t *testing.T) {
	cfg := config.New()

	t.Run("creates valid default config", func(t *testing.T) {
		require.NotNil(t, cfg)

		// Database defaults
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "postgres", cfg.Database.User)
		assert.Equal(t, "pairmeta", cfg.Database.Database)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, 50_000, cfg.Database.BatchSize)

		// Aggregate defaults
		assert.InDelta(t, 0.05, cfg.Aggregate.QThreshold, 1e-12)
		assert.Equal(t, 3, cfg.Aggregate.KMin)
		assert.InDelta(t, 75.0, cfg.Aggregate.I2Max, 1e-12)
		assert.Equal(t, "sqrt_n", cfg.Aggregate.StoufferWeighting)
		assert.Equal(t, 4, cfg.Aggregate.MinCorrelationN)
		assert.Equal(t, 3, cfg.Aggregate.RetryAttempts)

		// HTTP defaults
		assert.Equal(t, "localhost", cfg.HTTP.Host)
		assert.Equal(t, 8658, cfg.HTTP.Port)

		// Log defaults
		assert.Equal(t, "json", cfg.Log.Format)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "file", cfg.Log.Destination)

		// JobsNumber defaults to CPU count
		assert.Equal(t, runtime.NumCPU(), cfg.JobsNumber)
	})
}

func TestOptions(t *testing.T) {
	tests := []struct {
		name  string
		opt   config.Option
		check func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "sets valid host",
			opt:  config.OptDatabaseHost("  db.example.com  "),
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, "db.example.com", cfg.Database.Host)
			},
		},
		{
			name: "ignores empty host",
			opt:  config.OptDatabaseHost("   "),
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, "localhost", cfg.Database.Host)
			},
		},
		{
			name: "sets q threshold",
			opt:  config.OptQThreshold(0.01),
			check: func(t *testing.T, cfg *config.Config) {
				assert.InDelta(t, 0.01, cfg.Aggregate.QThreshold, 1e-12)
			},
		},
		{
			name: "rejects q threshold above one",
			opt:  config.OptQThreshold(1.5),
			check: func(t *testing.T, cfg *config.Config) {
				assert.InDelta(t, 0.05, cfg.Aggregate.QThreshold, 1e-12)
			},
		},
		{
			name: "rejects negative i2 bound",
			opt:  config.OptI2Max(-10),
			check: func(t *testing.T, cfg *config.Config) {
				assert.InDelta(t, 75.0, cfg.Aggregate.I2Max, 1e-12)
			},
		},
		{
			name: "normalizes stouffer weighting case",
			opt:  config.OptStoufferWeighting("EQUAL"),
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, "equal", cfg.Aggregate.StoufferWeighting)
			},
		},
		{
			name: "rejects unknown stouffer weighting",
			opt:  config.OptStoufferWeighting("harmonic"),
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, "sqrt_n", cfg.Aggregate.StoufferWeighting)
			},
		},
		{
			name: "rejects correlation n below four",
			opt:  config.OptMinCorrelationN(2),
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, 4, cfg.Aggregate.MinCorrelationN)
			},
		},
		{
			name: "accepts larger correlation n",
			opt:  config.OptMinCorrelationN(10),
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, 10, cfg.Aggregate.MinCorrelationN)
			},
		},
		{
			name: "rejects invalid log level",
			opt:  config.OptLogLevel("verbose"),
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, "info", cfg.Log.Level)
			},
		},
	}

	for _, v := range tests {
		t.Run(v.name, func(t *testing.T) {
			cfg := config.New()
			cfg.Update([]config.Option{v.opt})
			v.check(t, cfg)
		})
	}
}

func TestToOptionsRoundTrip(t *testing.T) {
	src := config.New()
	src.Update([]config.Option{
		config.OptDatabaseHost("warehouse.internal"),
		config.OptDatabasePort(6432),
		config.OptQThreshold(0.01),
		config.OptKMin(5),
		config.OptI2Max(50),
		config.OptStoufferWeighting("equal"),
		config.OptHTTPPort(9090),
		config.OptLogFormat("text"),
	})

	dst := config.New()
	dst.Update(src.ToOptions())

	assert.Equal(t, src.Database, dst.Database)
	assert.Equal(t, src.Aggregate, dst.Aggregate)
	assert.Equal(t, src.HTTP, dst.HTTP)
	assert.Equal(t, src.Log, dst.Log)
	assert.Equal(t, src.JobsNumber, dst.JobsNumber)
}

func TestHomeDirNotPersisted(t *testing.T) {
	src := config.New()
	src.Update([]config.Option{config.OptHomeDir("/home/user")})

	dst := config.New()
	dst.Update(src.ToOptions())
	assert.Empty(t, dst.HomeDir)
}
