// Package config loads the CLI's run configuration (infotracker.yml),
// optional schema catalog, and ignore-file globs, and exposes the adapter
// abstraction used to turn a bare database name into a namespace URI.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the fully-resolved run configuration for one CLI invocation.
type Config struct {
	DefaultAdapter    string
	DefaultDatabase   string
	DefaultSchema     string
	SQLDir            string
	OutDir            string
	Include           []string
	Exclude           []string
	SeverityThreshold string
	Ignore            []string
	Catalog           string
	LogLevel          string
	OutputFormat      string
	DBTMode           bool
}

// Load reads infotracker.yml (if present) via viper and returns a Config
// seeded with defaults. path may be empty, in which case only defaults and
// environment variables (INFOTRACKER_* prefix) apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("INFOTRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("default_adapter", "mssql")
	v.SetDefault("default_database", "InfoTrackerDW")
	v.SetDefault("default_schema", "dbo")
	v.SetDefault("sql_dir", ".")
	v.SetDefault("out_dir", "build/lineage")
	v.SetDefault("severity_threshold", "BREAKING")
	v.SetDefault("log_level", "info")
	v.SetDefault("output_format", "text")
	v.SetDefault("dbt_mode", false)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	return &Config{
		DefaultAdapter:    v.GetString("default_adapter"),
		DefaultDatabase:   v.GetString("default_database"),
		DefaultSchema:     v.GetString("default_schema"),
		SQLDir:            v.GetString("sql_dir"),
		OutDir:            v.GetString("out_dir"),
		Include:           v.GetStringSlice("include"),
		Exclude:           v.GetStringSlice("exclude"),
		SeverityThreshold: v.GetString("severity_threshold"),
		Ignore:            v.GetStringSlice("ignore"),
		Catalog:           v.GetString("catalog"),
		LogLevel:          v.GetString("log_level"),
		OutputFormat:      v.GetString("output_format"),
		DBTMode:           v.GetBool("dbt_mode"),
	}, nil
}
