// Package config loads git-ai-sync settings.
//
// Values are layered by viper, lowest to highest precedence: built-in
// defaults, the TOML config file, GIT_AI_SYNC_* environment variables (plus
// ANTHROPIC_API_KEY), and command line flags. Everything outside this
// package receives a validated *Config and never reads the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable the tool reads.
const EnvPrefix = "GIT_AI_SYNC"

// Defaults
const (
	DefaultInterval         = 30
	DefaultCommitPrefix     = "auto"
	DefaultModel            = "claude-sonnet-4-5-20250929"
	DefaultResolveTimeout   = 120
	DefaultMaxResolveRounds = 10
	DefaultMaxTokens        = 16384
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
)

// Config holds all settings.
type Config struct {
	// Interval is the tick interval of watch, in seconds.
	Interval int `mapstructure:"interval" toml:"interval" yaml:"interval"`

	// QuietPeriod is how long the tree must be quiet before a tick syncs,
	// in seconds. Zero means the same as Interval.
	QuietPeriod int `mapstructure:"quiet_period" toml:"quiet_period" yaml:"quiet_period"`

	CommitPrefix string `mapstructure:"commit_prefix" toml:"commit_prefix" yaml:"commit_prefix"`

	// APIKey is never written to the config file.
	APIKey string `mapstructure:"api_key" toml:"-" yaml:"api_key"`

	Model            string `mapstructure:"model" toml:"model" yaml:"model"`
	MaxTokens        int64  `mapstructure:"max_tokens" toml:"max_tokens" yaml:"max_tokens"`
	ResolveTimeout   int    `mapstructure:"resolve_timeout" toml:"resolve_timeout" yaml:"resolve_timeout"`
	MaxResolveRounds int    `mapstructure:"max_resolve_rounds" toml:"max_resolve_rounds" yaml:"max_resolve_rounds"`

	// DashboardPort serves the outcome dashboard during watch. Zero
	// disables it.
	DashboardPort int `mapstructure:"dashboard_port" toml:"dashboard_port" yaml:"dashboard_port"`

	LogLevel  string `mapstructure:"log_level" toml:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" toml:"log_format" yaml:"log_format"`
	LogFile   string `mapstructure:"log_file" toml:"log_file" yaml:"log_file"`

	// Source is the config file that was read, if any.
	Source string `mapstructure:"-" toml:"-" yaml:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Interval:         DefaultInterval,
		CommitPrefix:     DefaultCommitPrefix,
		Model:            DefaultModel,
		MaxTokens:        DefaultMaxTokens,
		ResolveTimeout:   DefaultResolveTimeout,
		MaxResolveRounds: DefaultMaxResolveRounds,
		LogLevel:         DefaultLogLevel,
		LogFormat:        DefaultLogFormat,
	}
}

// keys lists every setting, in display order.
var keys = []string{
	"interval", "quiet_period", "commit_prefix", "api_key", "model",
	"max_tokens", "resolve_timeout", "max_resolve_rounds", "dashboard_port",
	"log_level", "log_format", "log_file",
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("interval", d.Interval)
	v.SetDefault("quiet_period", d.QuietPeriod)
	v.SetDefault("commit_prefix", d.CommitPrefix)
	v.SetDefault("api_key", "")
	v.SetDefault("model", d.Model)
	v.SetDefault("max_tokens", d.MaxTokens)
	v.SetDefault("resolve_timeout", d.ResolveTimeout)
	v.SetDefault("max_resolve_rounds", d.MaxResolveRounds)
	v.SetDefault("dashboard_port", d.DashboardPort)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("log_file", "")
}

// DefaultPath returns $XDG_CONFIG_HOME/git-ai-sync/config.toml, falling
// back to the platform user config directory.
func DefaultPath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		var err error
		dir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("failed to locate config directory: %w", err)
		}
	}
	return filepath.Join(dir, "git-ai-sync", "config.toml"), nil
}

// Options controls Load.
type Options struct {
	// Path is the config file. Empty selects DefaultPath. A missing file
	// is not an error.
	Path string

	// Flags are bound to settings of the same name, with dashes read as
	// underscores (--log-level sets log_level). Only flags the user set
	// take effect.
	Flags *pflag.FlagSet
}

// Load layers defaults, file, environment and flags, and validates the
// result.
func Load(opts Options) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("api_key", EnvPrefix+"_API_KEY", "ANTHROPIC_API_KEY"); err != nil {
		return nil, err
	}

	path := opts.Path
	explicit := path != ""
	if !explicit {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	source := ""
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, &ConfigError{Field: "config", Value: path, Err: fmt.Errorf("failed to parse: %w", err)}
		}
		source = path
	} else if explicit && !errors.Is(err, os.ErrNotExist) {
		return nil, &ConfigError{Field: "config", Value: path, Err: err}
	}

	if opts.Flags != nil {
		for _, key := range keys {
			f := opts.Flags.Lookup(strings.ReplaceAll(key, "_", "-"))
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, &ConfigError{Field: "config", Err: err}
	}
	cfg.Source = source
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IntervalDuration returns the tick interval.
func (c *Config) IntervalDuration() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

// QuietDuration returns the debounce threshold.
func (c *Config) QuietDuration() time.Duration {
	if c.QuietPeriod <= 0 {
		return c.IntervalDuration()
	}
	return time.Duration(c.QuietPeriod) * time.Second
}

// ResolveTimeoutDuration bounds each resolution service call.
func (c *Config) ResolveTimeoutDuration() time.Duration {
	return time.Duration(c.ResolveTimeout) * time.Second
}

// HasAPIKey reports whether conflict resolution is available.
func (c *Config) HasAPIKey() bool {
	return c.APIKey != ""
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	out := *c
	if out.APIKey != "" {
		out.APIKey = redact(out.APIKey)
	}
	return &out
}

func redact(key string) string {
	if len(key) <= 8 {
		return "********"
	}
	return key[:4] + "…" + key[len(key)-4:]
}

// YAML renders the configuration for display. The API key is redacted.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c.Redacted())
}
