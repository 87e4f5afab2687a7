// Package config defines the libcat-cli configuration.
package config

import "time"

// CLIConfig is the configuration for libcat-cli.
type CLIConfig struct {
	API         APIConfig         `koanf:"api" yaml:"api"`
	Credentials CredentialsConfig `koanf:"credentials" yaml:"credentials"`
	Session     SessionConfig     `koanf:"session" yaml:"session"`
	Auth        AuthConfig        `koanf:"auth" yaml:"auth"`
	Output      OutputConfig      `koanf:"output" yaml:"output"`
	Log         LogConfig         `koanf:"log" yaml:"log"`
	Console     ConsoleConfig     `koanf:"console" yaml:"console"`
	Metrics     MetricsConfig     `koanf:"metrics" yaml:"metrics"`
}

// APIConfig is the catalog backend connection.
type APIConfig struct {
	Server        string        `koanf:"server" yaml:"server"`
	Timeout       time.Duration `koanf:"timeout" yaml:"timeout"`
	RateLimit     float64       `koanf:"rate_limit" yaml:"rate_limit"` // requests per second, 0 = unlimited
	Burst         int           `koanf:"burst" yaml:"burst"`
	CAFile        string        `koanf:"ca_file" yaml:"ca_file,omitempty"`
	CADir         string        `koanf:"ca_dir" yaml:"ca_dir,omitempty"`
	NoSystemRoots bool          `koanf:"no_system_roots" yaml:"no_system_roots,omitempty"`
	ServerName    string        `koanf:"server_name" yaml:"server_name,omitempty"` // TLS SNI override
	CertFile      string        `koanf:"cert_file" yaml:"cert_file,omitempty"`
	KeyFile       string        `koanf:"key_file" yaml:"key_file,omitempty"`
}

// CredentialsConfig is where the bearer token is persisted.
type CredentialsConfig struct {
	Backend string        `koanf:"backend" yaml:"backend"` // file, badger, memory
	Path    string        `koanf:"path" yaml:"path"`
	KeyFile string        `koanf:"key_file" yaml:"key_file,omitempty"`
	Name    string        `koanf:"name" yaml:"name"`
	MaxAge  time.Duration `koanf:"max_age" yaml:"max_age"`
}

// SessionConfig tunes the session controller.
type SessionConfig struct {
	MinTokenLength int `koanf:"min_token_length" yaml:"min_token_length"`
}

// AuthConfig holds registration policy.
type AuthConfig struct {
	// AdminRegistrationCode must be presented to register as admin.
	// Empty disables admin self-registration.
	AdminRegistrationCode string `koanf:"admin_registration_code" yaml:"admin_registration_code,omitempty"`
}

// OutputConfig selects how results are printed.
type OutputConfig struct {
	Format string `koanf:"format" yaml:"format"` // table, json, yaml
	Wide   bool   `koanf:"wide" yaml:"wide"`
	Quiet  bool   `koanf:"quiet" yaml:"quiet"`
}

// LogConfig configures diagnostic logging on stderr.
type LogConfig struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}

// ConsoleConfig configures the interactive console.
type ConsoleConfig struct {
	HistoryFile      string `koanf:"history_file" yaml:"history_file"`
	HistorySize      int    `koanf:"history_size" yaml:"history_size"`
	WatchCredentials bool   `koanf:"watch_credentials" yaml:"watch_credentials"`
}

// MetricsConfig configures the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `koanf:"textfile" yaml:"textfile,omitempty"`
}
