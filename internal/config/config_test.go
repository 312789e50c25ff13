package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/spf13/pflag"
)

// clearEnv blanks every variable Load reads so the host environment does
// not leak into the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(EnvPrefix+"_"+strings.ToUpper(key), "")
	}
	t.Setenv("ANTHROPIC_API_KEY", "")
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(Options{Path: filepath.Join(t.TempDir(), "missing.toml")})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
	if cfg.QuietDuration() != 30*time.Second {
		t.Errorf("QuietDuration() = %v, want the interval", cfg.QuietDuration())
	}
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
interval = 60
commit_prefix = "sync"
model = "file-model"
log_level = "DEBUG"
`)

	t.Setenv("GIT_AI_SYNC_MODEL", "env-model")
	t.Setenv("GIT_AI_SYNC_COMMIT_PREFIX", "env")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test-key")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("interval", DefaultInterval, "")
	flags.String("commit-prefix", DefaultCommitPrefix, "")
	if err := flags.Parse([]string{"--commit-prefix", "flag"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(Options{Path: path, Flags: flags})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"interval from file (flag unset)", cfg.Interval, 60},
		{"model from env over file", cfg.Model, "env-model"},
		{"prefix from flag over env", cfg.CommitPrefix, "flag"},
		{"api key from ANTHROPIC_API_KEY", cfg.APIKey, "sk-test-key"},
		{"log level lowercased", cfg.LogLevel, "debug"},
		{"source recorded", cfg.Source, path},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoadInvalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("GIT_AI_SYNC_INTERVAL", "0")

	_, err := Load(Options{Path: filepath.Join(t.TempDir(), "missing.toml")})
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("Load() error = %v, want ErrInvalid", err)
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "interval" {
		t.Errorf("Load() error = %v, want a ConfigError for interval", err)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "interval = [\n")

	if _, err := Load(Options{Path: path}); !errors.Is(err, ErrInvalid) {
		t.Errorf("Load() error = %v, want ErrInvalid", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"valid", func(c *Config) {}, ""},
		{"zero interval", func(c *Config) { c.Interval = 0 }, "interval"},
		{"negative quiet period", func(c *Config) { c.QuietPeriod = -1 }, "quiet_period"},
		{"empty prefix", func(c *Config) { c.CommitPrefix = "  " }, "commit_prefix"},
		{"multi-line prefix", func(c *Config) { c.CommitPrefix = "a\nb" }, "commit_prefix"},
		{"empty model", func(c *Config) { c.Model = "" }, "model"},
		{"zero timeout", func(c *Config) { c.ResolveTimeout = 0 }, "resolve_timeout"},
		{"too many rounds", func(c *Config) { c.MaxResolveRounds = 1000 }, "max_resolve_rounds"},
		{"bad port", func(c *Config) { c.DashboardPort = 70000 }, "dashboard_port"},
		{"bad level", func(c *Config) { c.LogLevel = "verbose" }, "log_level"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.field == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}

			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() error = %v, want *ConfigError", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("ConfigError.Field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestSaveOmitsAPIKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Interval = 45
	cfg.QuietPeriod = 10
	cfg.APIKey = "sk-secret"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "sk-secret") {
		t.Error("Save() wrote the API key to disk")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config file mode = %o, want 600", perm)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	cfg.APIKey = ""
	if diff := cmp.Diff(cfg, loaded, cmpopts.IgnoreFields(Config{}, "Source")); diff != "" {
		t.Errorf("LoadFile() mismatch (-want +got):\n%s", diff)
	}
}

func TestRedactedYAML(t *testing.T) {
	cfg := Default()
	cfg.APIKey = "sk-ant-0123456789abcdef"

	out, err := cfg.YAML()
	if err != nil {
		t.Fatalf("YAML() error = %v", err)
	}
	if strings.Contains(string(out), "0123456789") {
		t.Errorf("YAML() leaked the API key:\n%s", out)
	}
	if !strings.Contains(string(out), "interval: 30") {
		t.Errorf("YAML() missing interval:\n%s", out)
	}
	if cfg.APIKey != "sk-ant-0123456789abcdef" {
		t.Error("YAML() modified the original config")
	}
}
