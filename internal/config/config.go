// Package config loads CLI settings from flags, METABIND_* environment
// variables and an optional metabind.yaml, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/aretw0/metabind/internal/platform"
)

// EnvPrefix prefixes every environment variable, e.g. METABIND_SITE_ADAPTER.
const EnvPrefix = "METABIND"

// FileName is the config file looked up in the site root and the working directory.
const FileName = "metabind"

// Config represents the CLI configuration.
type Config struct {
	Site SiteConfig
	Log  LogConfig
}

// SiteConfig selects and tunes the storage backend.
type SiteConfig struct {
	Adapter     string
	Path        string
	Schema      []string
	Versioning  string // "auto", "on" or "off"
	AutoInit    bool
	ReadOnly    bool
	DevSafety   bool
	EventBuffer int
}

// LogConfig configures the CLI logger.
type LogConfig struct {
	Verbose    bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("site.adapter", platform.AdapterFS)
	v.SetDefault("site.path", ".")
	v.SetDefault("site.schema", []string{})
	v.SetDefault("site.versioning", "auto")
	v.SetDefault("site.auto_init", true)
	v.SetDefault("site.read_only", false)
	v.SetDefault("site.dev_safety", true)
	v.SetDefault("site.event_buffer", 100)

	v.SetDefault("log.verbose", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	return v
}

// ReadFile reads an explicit config file, or looks for metabind.yaml in dirs.
// A missing file is not an error unless it was named explicitly.
func ReadFile(v *viper.Viper, explicit string, dirs ...string) error {
	if explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", explicit, err)
		}
		return nil
	}

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	for _, d := range dirs {
		v.AddConfigPath(d)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// Load builds a Config from v.
func Load(v *viper.Viper) (*Config, error) {
	c := &Config{
		Site: SiteConfig{
			Adapter:     v.GetString("site.adapter"),
			Path:        v.GetString("site.path"),
			Schema:      v.GetStringSlice("site.schema"),
			Versioning:  strings.ToLower(v.GetString("site.versioning")),
			AutoInit:    v.GetBool("site.auto_init"),
			ReadOnly:    v.GetBool("site.read_only"),
			DevSafety:   v.GetBool("site.dev_safety"),
			EventBuffer: v.GetInt("site.event_buffer"),
		},
		Log: LogConfig{
			Verbose:    v.GetBool("log.verbose"),
			File:       v.GetString("log.file"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAgeDays: v.GetInt("log.max_age_days"),
		},
	}

	switch c.Site.Adapter {
	case platform.AdapterFS, platform.AdapterSQLite, platform.AdapterMemory:
	default:
		return nil, fmt.Errorf("unknown adapter %q", c.Site.Adapter)
	}
	switch c.Site.Versioning {
	case "auto", "on", "off":
	default:
		return nil, fmt.Errorf("versioning must be auto, on or off, got %q", c.Site.Versioning)
	}
	return c, nil
}

// Options translates the site settings into platform options.
func (c SiteConfig) Options(logger *slog.Logger) []platform.Option {
	opts := []platform.Option{
		platform.WithLogger(logger),
		platform.WithAdapter(c.Adapter),
		platform.WithAutoInit(c.AutoInit),
		platform.WithReadOnly(c.ReadOnly),
		platform.WithDevSafety(c.DevSafety),
		platform.WithEventBuffer(c.EventBuffer),
	}
	switch c.Versioning {
	case "on":
		opts = append(opts, platform.WithVersioning(true))
	case "off":
		opts = append(opts, platform.WithVersioning(false))
	}
	for _, s := range c.Schema {
		opts = append(opts, platform.WithSchemaFile(s))
	}
	return opts
}

// Level is the slog level the CLI logs at.
func (c LogConfig) Level() slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
