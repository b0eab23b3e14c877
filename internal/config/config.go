// Package config provides centralized configuration management for the
// importer. It loads settings from environment variables with sensible
// defaults and validates them on startup to fail fast on misconfiguration.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all importer configuration.
// All settings can be configured via environment variables.
type Config struct {
	Splunk    SplunkConfig
	Search    SearchConfig
	Generator GeneratorConfig
	Logging   LoggingConfig
}

// SplunkConfig holds connection settings for the target instance.
// Host and credentials are only required when actually publishing;
// see ValidateConnection.
type SplunkConfig struct {
	// Host is the splunkd management hostname
	Host string `env:"SPLUNK_HOST"`

	// Port is the management port (default: 8089)
	Port int `env:"SPLUNK_PORT" default:"8089"`

	// Scheme is http or https (default: https)
	Scheme string `env:"SPLUNK_SCHEME" default:"https"`

	// Token is a bearer token; takes precedence over username/password
	Token string `env:"SPLUNK_TOKEN"`

	// Username/Password are basic-auth credentials used when no token is set
	Username string `env:"SPLUNK_USERNAME"`
	Password string `env:"SPLUNK_PASSWORD"`

	// InsecureSkipVerify disables TLS certificate verification.
	// Splunk management ports frequently run self-signed certificates.
	InsecureSkipVerify bool `env:"SPLUNK_INSECURE_SKIP_VERIFY" default:"false"`
}

// SearchConfig holds search-job execution settings.
type SearchConfig struct {
	// RequestTimeout is the per-HTTP-request timeout (default: 30s)
	RequestTimeout time.Duration `env:"SEARCH_REQUEST_TIMEOUT" default:"30s"`

	// PollInterval is the job status poll cadence (default: 500ms)
	PollInterval time.Duration `env:"SEARCH_POLL_INTERVAL" default:"500ms"`

	// WaitTimeout is the total wait for one job to complete (default: 2m)
	WaitTimeout time.Duration `env:"SEARCH_WAIT_TIMEOUT" default:"2m"`
}

// GeneratorConfig holds SPL generation settings.
type GeneratorConfig struct {
	// Delimiter separates synthesized record boundaries inside a generated
	// statement. It must not occur in any CSV value; a value containing it
	// fails generation rather than corrupting the lookup.
	Delimiter string `env:"GENERATOR_DELIMITER" default:";;"`

	// ChunkSize is the maximum number of rows per generated statement
	// (default: 500)
	ChunkSize int `env:"GENERATOR_CHUNK_SIZE" default:"500"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Validate checks settings that must hold for any mode, including
// dry runs that never open a connection.
func (c *Config) Validate() error {
	var errs []string

	if c.Splunk.Port <= 0 || c.Splunk.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SPLUNK_PORT (%d) must be 1-65535", c.Splunk.Port))
	}
	if s := strings.ToLower(c.Splunk.Scheme); s != "http" && s != "https" {
		errs = append(errs, fmt.Sprintf("SPLUNK_SCHEME (%q) must be http or https", c.Splunk.Scheme))
	}

	if c.Search.RequestTimeout <= 0 {
		errs = append(errs, "SEARCH_REQUEST_TIMEOUT must be positive")
	}
	if c.Search.PollInterval <= 0 {
		errs = append(errs, "SEARCH_POLL_INTERVAL must be positive")
	}
	if c.Search.WaitTimeout <= 0 {
		errs = append(errs, "SEARCH_WAIT_TIMEOUT must be positive")
	}

	if c.Generator.Delimiter == "" {
		errs = append(errs, "GENERATOR_DELIMITER must not be empty")
	}
	if strings.ContainsAny(c.Generator.Delimiter, `"\`) {
		errs = append(errs, "GENERATOR_DELIMITER must not contain quote or backslash characters")
	}
	if c.Generator.ChunkSize <= 0 {
		errs = append(errs, "GENERATOR_CHUNK_SIZE must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ValidateConnection checks the settings needed to reach a live
// instance. Called before publishing; skipped on dry runs so SPL can be
// previewed without any Splunk environment configured.
func (c *Config) ValidateConnection() error {
	var errs []string

	if c.Splunk.Host == "" {
		errs = append(errs, "SPLUNK_HOST is required")
	}
	if c.Splunk.Token == "" && c.Splunk.Username == "" {
		errs = append(errs, "SPLUNK_TOKEN or SPLUNK_USERNAME/SPLUNK_PASSWORD is required")
	}
	if c.Splunk.Token == "" && c.Splunk.Username != "" && c.Splunk.Password == "" {
		errs = append(errs, "SPLUNK_PASSWORD is required when SPLUNK_USERNAME is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// String returns a safe string representation of the config for logging.
// Credentials are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Splunk: {Host: %q, Port: %d, Scheme: %q, Token: [MASKED], InsecureSkipVerify: %v}, ",
		c.Splunk.Host, c.Splunk.Port, c.Splunk.Scheme, c.Splunk.InsecureSkipVerify))
	b.WriteString(fmt.Sprintf("Search: {RequestTimeout: %s, PollInterval: %s, WaitTimeout: %s}, ",
		c.Search.RequestTimeout, c.Search.PollInterval, c.Search.WaitTimeout))
	b.WriteString(fmt.Sprintf("Generator: {Delimiter: %q, ChunkSize: %d}, ",
		c.Generator.Delimiter, c.Generator.ChunkSize))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
