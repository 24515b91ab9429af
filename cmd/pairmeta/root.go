package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gnames/gn"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/genobase/pairmeta/internal/iofs"
	"github.com/genobase/pairmeta/internal/iologger"
	"github.com/genobase/pairmeta/pkg/config"
	"github.com/genobase/pairmeta/pkg/pairmeta"
)

var (
	homeDir string
	cfg     *config.Config
)

func getRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pairmeta",
		Short: "pairmeta manages the gene-pair meta-analysis database",
		Long: `pairmeta maintains pooled effect sizes for gene pairs across
transcriptomic studies. Each study contributes per-pair effect
components; pairmeta folds them into sufficient-statistics fact
tables and recomputes DerSimonian-Laird random-effects estimates
for the affected pairs.

The tool provides four main phases:
  - create:    create database schema and seed the disease vocabulary
  - aggregate: fold one study's components into the pooled tables
  - rank:      print the filtered, FDR-controlled pair ranking
  - serve:     run the HTTP query API

Configuration precedence (highest to lowest):
  1. CLI flags (--disease, --technology, etc.)
  2. Environment variables (PAIRMETA_*)
  3. Config file (~/.config/pairmeta/config.yaml)
  4. Built-in defaults

Environment Variables:
  Nested fields use underscores (database.host → PAIRMETA_DATABASE_HOST).

  Examples:
    PAIRMETA_DATABASE_HOST         PostgreSQL host
    PAIRMETA_DATABASE_PASSWORD     PostgreSQL password
    PAIRMETA_AGGREGATE_Q_THRESHOLD Ranking FDR cutoff
    PAIRMETA_LOG_LEVEL             Log level (debug/info/warn/error)`,
		Version: fmt.Sprintf("version: %s\nbuild:   %s",
			pairmeta.Version, pairmeta.Build),
		PersistentPreRunE: bootstrap,
		SilenceErrors:     true,
		SilenceUsage:      true,
	}

	// Remove the automatic "pairmeta version" prefix
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	// Override version flag to use -V (consistent with other gn projects)
	rootCmd.Flags().BoolP("version", "V", false, "version for pairmeta")

	rootCmd.AddCommand(getCreateCmd())
	rootCmd.AddCommand(getAggregateCmd())
	rootCmd.AddCommand(getRankCmd())
	rootCmd.AddCommand(getServeCmd())

	return rootCmd
}

func bootstrap(cmd *cobra.Command, args []string) error {
	var err error
	homeDir, err = os.UserHomeDir()
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	if err = iofs.EnsureDirs(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	// Initialize logging with hardcoded defaults.
	// Will be reconfigured later with user's config settings.
	defaultLog := config.LogConfig{
		Format:      "json",
		Level:       "info",
		Destination: "file",
	}
	if err = iologger.Init(config.LogDir(homeDir), defaultLog, false); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	if err = iofs.EnsureConfigFile(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	var cfgViper *config.Config
	if cfgViper, err = initConfig(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	cfg = config.New()
	cfg.Update(cfgViper.ToOptions())
	cfg.Update([]config.Option{config.OptHomeDir(homeDir)})

	// Reconfigure logging with user's settings, appending to the file
	// created above.
	if err = iologger.Init(config.LogDir(cfg.HomeDir), cfg.Log, true); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	slog.Info("Configuration loaded",
		"config_file", config.ConfigFilePath(homeDir))

	return nil
}

func initConfig(home string) (*config.Config, error) {
	var err error
	cfgPath := config.ConfigFilePath(home)
	v := viper.New()
	v.SetConfigFile(cfgPath)

	initEnvVars(v)

	if err = v.ReadInConfig(); err != nil {
		return nil, iofs.ReadFileError(cfgPath, err)
	}

	var res config.Config
	if err = v.Unmarshal(&res); err != nil {
		return nil, iofs.ReadFileError(cfgPath, err)
	}

	return &res, nil
}

func initEnvVars(v *viper.Viper) {
	// Set environment variables we want.
	// We set them manually so we can see clearly which env variables
	// are allowed. These match the fields included in
	// config.ToOptions(), i.e. persistent configuration that can be
	// stored in config.yaml.
	v.SetEnvPrefix("PAIRMETA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Database configuration
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.database", "DATABASE_DATABASE")
	v.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")
	v.BindEnv("database.batch_size", "DATABASE_BATCH_SIZE")

	// Aggregation and ranking configuration
	v.BindEnv("aggregate.q_threshold", "AGGREGATE_Q_THRESHOLD")
	v.BindEnv("aggregate.k_min", "AGGREGATE_K_MIN")
	v.BindEnv("aggregate.i2_max", "AGGREGATE_I2_MAX")
	v.BindEnv("aggregate.stouffer_weighting", "AGGREGATE_STOUFFER_WEIGHTING")
	v.BindEnv("aggregate.min_correlation_n", "AGGREGATE_MIN_CORRELATION_N")
	v.BindEnv("aggregate.retry_attempts", "AGGREGATE_RETRY_ATTEMPTS")

	// HTTP configuration
	v.BindEnv("http.host", "HTTP_HOST")
	v.BindEnv("http.port", "HTTP_PORT")
	v.BindEnv("http.rate_limit", "HTTP_RATE_LIMIT")

	// Log configuration
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.format", "LOG_FORMAT")
	v.BindEnv("log.destination", "LOG_DESTINATION")

	// General configuration
	v.BindEnv("jobs_number", "JOBS_NUMBER")

	v.AutomaticEnv()
}
