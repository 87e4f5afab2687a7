// Package config defines the libcat-cli configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yndnr/libcat-go/internal/core/domain"
	"github.com/yndnr/libcat-go/internal/infra/confloader"
	"github.com/yndnr/libcat-go/internal/storage/credential"
)

// DefaultDir returns ~/.libcat.
func DefaultDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".libcat"
	}
	return filepath.Join(homeDir, ".libcat")
}

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDir(), "cli.yaml")
}

// Defaults returns the default values keyed by dotted path.
func Defaults() map[string]any {
	dir := DefaultDir()
	return map[string]any{
		"api.server":                "http://localhost:8000/api",
		"api.timeout":               "15s",
		"api.rate_limit":            0,
		"api.burst":                 5,
		"credentials.backend":       credential.BackendFile,
		"credentials.path":          filepath.Join(dir, "credential.yaml"),
		"credentials.name":          credential.DefaultName,
		"credentials.max_age":       credential.DefaultMaxAge.String(),
		"session.min_token_length":  10,
		"output.format":             "table",
		"log.level":                 "warn",
		"log.format":                "text",
		"console.history_file":      filepath.Join(dir, "history"),
		"console.history_size":      1000,
		"console.watch_credentials": true,
	}
}

// EnvPrefix starts every environment variable the CLI reads.
const EnvPrefix = "LIBCAT_"

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	cfg, err := load(confloader.Defaults(Defaults()))
	if err != nil {
		panic("config: invalid defaults: " + err.Error())
	}
	return cfg
}

// Load reads defaults, the file at path (optional), LIBCAT_* environment
// variables and then flags, in increasing priority.
func Load(path string, flags map[string]any) (*CLIConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	return load(
		confloader.Defaults(Defaults()),
		confloader.File(path, true),
		confloader.Env(EnvPrefix),
		confloader.Map("flags", flags),
	)
}

func load(layers ...confloader.Layer) (*CLIConfig, error) {
	merged, err := confloader.Load(layers...)
	if err != nil {
		return nil, err
	}
	cfg := &CLIConfig{}
	if err := merged.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.expandPaths()
	return cfg, nil
}

// Save writes cfg as YAML with mode 0600, creating the directory.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Validate checks cfg and returns every problem found.
func (c *CLIConfig) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, domain.ErrValidation.WithDetails(fmt.Sprintf(format, args...)))
	}

	if u, err := url.Parse(c.API.Server); err != nil || c.API.Server == "" || u.Host == "" {
		add("api.server %q is not a valid URL", c.API.Server)
	} else if u.Scheme != "http" && u.Scheme != "https" {
		add("api.server scheme must be http or https, got %q", u.Scheme)
	}
	if c.API.Timeout <= 0 {
		add("api.timeout must be positive")
	}
	if c.API.RateLimit < 0 {
		add("api.rate_limit must not be negative")
	}
	if c.API.RateLimit > 0 && c.API.Burst < 1 {
		add("api.burst must be at least 1 when api.rate_limit is set")
	}
	if (c.API.CertFile == "") != (c.API.KeyFile == "") {
		add("api.cert_file and api.key_file must be set together")
	}

	switch c.Credentials.Backend {
	case credential.BackendFile, credential.BackendBadger:
		if c.Credentials.Path == "" {
			add("credentials.path is required for the %s backend", c.Credentials.Backend)
		}
	case credential.BackendMemory:
	default:
		add("credentials.backend must be file, badger or memory, got %q", c.Credentials.Backend)
	}
	if c.Credentials.MaxAge <= 0 {
		add("credentials.max_age must be positive")
	}

	if c.Session.MinTokenLength < 1 {
		add("session.min_token_length must be at least 1")
	}

	switch c.Output.Format {
	case "table", "json", "yaml":
	default:
		add("output.format must be table, json or yaml, got %q", c.Output.Format)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		add("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		add("log.format must be text or json, got %q", c.Log.Format)
	}

	return errors.Join(errs...)
}

// CredentialKeyFile returns the key file for sealing the credential.
func (c *CLIConfig) CredentialKeyFile() string {
	if c.Credentials.KeyFile != "" {
		return c.Credentials.KeyFile
	}
	if c.Credentials.Backend == credential.BackendBadger {
		return filepath.Join(c.Credentials.Path, "key")
	}
	return c.Credentials.Path + ".key"
}

// CredentialMaxAge returns the cookie lifetime, falling back to the default.
func (c *CLIConfig) CredentialMaxAge() time.Duration {
	if c.Credentials.MaxAge <= 0 {
		return credential.DefaultMaxAge
	}
	return c.Credentials.MaxAge
}

func (c *CLIConfig) expandPaths() {
	for _, p := range []*string{
		&c.API.CAFile, &c.API.CADir, &c.API.CertFile, &c.API.KeyFile,
		&c.Credentials.Path, &c.Credentials.KeyFile,
		&c.Console.HistoryFile, &c.Metrics.Textfile,
	} {
		*p = expandHome(*p)
	}
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
