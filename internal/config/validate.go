package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is matched by every *ConfigError.
var ErrInvalid = errors.New("invalid configuration")

// ConfigError reports an invalid setting.
type ConfigError struct {
	Field string
	Value any
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("configuration error for %s = %v: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("configuration error for %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalid
}

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"text", "json"}
)

// Validate checks every setting and returns the first problem as
// *ConfigError.
func (c *Config) Validate() error {
	switch {
	case c.Interval < 1:
		return &ConfigError{Field: "interval", Value: c.Interval, Err: errors.New("must be at least 1 second")}
	case c.QuietPeriod < 0:
		return &ConfigError{Field: "quiet_period", Value: c.QuietPeriod, Err: errors.New("must not be negative")}
	case strings.TrimSpace(c.CommitPrefix) == "":
		return &ConfigError{Field: "commit_prefix", Value: c.CommitPrefix, Err: errors.New("must not be empty")}
	case strings.ContainsAny(c.CommitPrefix, "\r\n"):
		return &ConfigError{Field: "commit_prefix", Value: c.CommitPrefix, Err: errors.New("must be a single line")}
	case c.Model == "":
		return &ConfigError{Field: "model", Err: errors.New("must not be empty")}
	case c.MaxTokens < 1:
		return &ConfigError{Field: "max_tokens", Value: c.MaxTokens, Err: errors.New("must be positive")}
	case c.ResolveTimeout < 1:
		return &ConfigError{Field: "resolve_timeout", Value: c.ResolveTimeout, Err: errors.New("must be at least 1 second")}
	case c.MaxResolveRounds < 1 || c.MaxResolveRounds > 100:
		return &ConfigError{Field: "max_resolve_rounds", Value: c.MaxResolveRounds, Err: errors.New("must be between 1 and 100")}
	case c.DashboardPort < 0 || c.DashboardPort > 65535:
		return &ConfigError{Field: "dashboard_port", Value: c.DashboardPort, Err: errors.New("must be a valid port")}
	case !contains(validLevels, c.LogLevel):
		return &ConfigError{Field: "log_level", Value: c.LogLevel, Err: fmt.Errorf("must be one of %s", strings.Join(validLevels, ", "))}
	case !contains(validFormats, c.LogFormat):
		return &ConfigError{Field: "log_format", Value: c.LogFormat, Err: fmt.Errorf("must be one of %s", strings.Join(validFormats, ", "))}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
