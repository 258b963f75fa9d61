// Package config provides configuration management for ariel.
//
// Configuration is loaded from four sources with the following precedence
// (highest to lowest):
//  1. CLI flags
//  2. Environment variables (ARIEL_ prefix)
//  3. Config file (.ariel.yaml)
//  4. Built-in defaults
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Supported log levels.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Supported log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Server defaults.
const (
	DefaultHost           = "127.0.0.1"
	DefaultPort           = 5000
	DefaultPollInterval   = time.Second
	DefaultMermaidVersion = "10"
	DefaultDebounce       = 200 * time.Millisecond
)

// Config represents the global configuration for ariel.
type Config struct {
	// LogLevel controls the verbosity of log output.
	// Valid values: debug, info, warn, error.
	LogLevel string `mapstructure:"log-level" json:"logLevel" yaml:"log-level"`

	// LogFormat controls the format of log output.
	// Valid values: text, json.
	LogFormat string `mapstructure:"log-format" json:"logFormat" yaml:"log-format"`

	// NoColor disables colored output.
	NoColor bool `mapstructure:"no-color" json:"noColor" yaml:"no-color"`

	// Quiet suppresses all log output below error level.
	Quiet bool `mapstructure:"quiet" json:"quiet" yaml:"quiet"`

	// Host is the bind address of the viewer server.
	Host string `mapstructure:"host" json:"host" yaml:"host"`

	// Port is the TCP port of the viewer server.
	Port int `mapstructure:"port" json:"port" yaml:"port"`

	// Debug enables debug logging and change diffs.
	Debug bool `mapstructure:"debug" json:"debug" yaml:"debug"`

	// PollInterval is how often the browser asks for new content.
	PollInterval time.Duration `mapstructure:"poll-interval" json:"pollInterval" yaml:"poll-interval"`

	// MermaidVersion is the version constraint of the Mermaid CDN bundle.
	MermaidVersion string `mapstructure:"mermaid-version" json:"mermaidVersion" yaml:"mermaid-version"`

	// NoCache disables the in-memory snapshot cache.
	NoCache bool `mapstructure:"no-cache" json:"noCache" yaml:"no-cache"`

	// NoWatch disables the filesystem watcher.
	NoWatch bool `mapstructure:"no-watch" json:"noWatch" yaml:"no-watch"`

	// Debounce is the quiet period before a file change is reported.
	Debounce time.Duration `mapstructure:"debounce" json:"debounce" yaml:"debounce"`

	// Metrics exposes Prometheus metrics on /metrics.
	Metrics bool `mapstructure:"metrics" json:"metrics" yaml:"metrics"`

	// ConfigFile is the resolved path to the config file used.
	// Set after Load(), never read from config itself.
	ConfigFile string `mapstructure:"-" json:"-" yaml:"-"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		LogLevel:       LogLevelInfo,
		LogFormat:      LogFormatText,
		Host:           DefaultHost,
		Port:           DefaultPort,
		PollInterval:   DefaultPollInterval,
		MermaidVersion: DefaultMermaidVersion,
		Debounce:       DefaultDebounce,
	}
}

// Validate checks that all config values are valid.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		// valid
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.LogLevel)
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
		// valid
	default:
		return fmt.Errorf("invalid log format %q: must be one of text, json", c.LogFormat)
	}

	if strings.TrimSpace(c.Host) == "" {
		return errors.New("invalid host: must not be empty")
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", c.Port)
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("invalid poll interval %s: must be positive", c.PollInterval)
	}

	if c.Debounce < 0 {
		return fmt.Errorf("invalid debounce %s: must not be negative", c.Debounce)
	}

	if err := ValidateMermaidVersion(c.MermaidVersion); err != nil {
		return err
	}

	return nil
}

// EffectiveLogLevel returns the log level to use. Quiet wins over Debug,
// and Debug wins over the configured LogLevel.
func (c *Config) EffectiveLogLevel() string {
	if c.Quiet {
		return LogLevelError
	}

	if c.Debug {
		return LogLevelDebug
	}

	return c.LogLevel
}

// Load initialises configuration from flags, environment variables, and an
// optional config file. A fresh viper instance is used on every call so that
// Load is safe for concurrent tests.
func Load(cmd *cobra.Command, configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	configureEnv(v)

	if err := configureFile(v, configFile); err != nil {
		return nil, err
	}

	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("log-format", d.LogFormat)
	v.SetDefault("no-color", false)
	v.SetDefault("quiet", false)
	v.SetDefault("host", d.Host)
	v.SetDefault("port", d.Port)
	v.SetDefault("debug", false)
	v.SetDefault("poll-interval", d.PollInterval)
	v.SetDefault("mermaid-version", d.MermaidVersion)
	v.SetDefault("no-cache", false)
	v.SetDefault("no-watch", false)
	v.SetDefault("debounce", d.Debounce)
	v.SetDefault("metrics", false)
}

// configureEnv sets up environment variable support.
func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix("ARIEL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

// configureFile sets up the config file source.
func configureFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %q: %w", configFile, err)
		}

		return nil
	}

	v.SetConfigName(".ariel")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "ariel"))
	}

	if err := v.ReadInConfig(); err != nil {
		// No config file found → perfectly fine in auto-discovery.
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}

		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// bindFlags binds the command's own flags and the persistent flags of the
// command and all of its parents.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if cmd == nil {
		return nil
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	for c := cmd; c != nil; c = c.Parent() {
		if err := v.BindPFlags(c.PersistentFlags()); err != nil {
			return fmt.Errorf("binding persistent flags: %w", err)
		}
	}

	return nil
}

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

type ctxKey struct{}

// NewContext returns a child context carrying cfg.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, cfg)
}

// FromContext extracts a Config from ctx, falling back to Default().
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(ctxKey{}).(*Config); ok {
		return cfg
	}

	return Default()
}
