package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Splunk.Port != 8089 {
		t.Errorf("Splunk.Port = %d, want %d", cfg.Splunk.Port, 8089)
	}
	if cfg.Splunk.Scheme != "https" {
		t.Errorf("Splunk.Scheme = %q, want %q", cfg.Splunk.Scheme, "https")
	}
	if cfg.Generator.Delimiter != ";;" {
		t.Errorf("Generator.Delimiter = %q, want %q", cfg.Generator.Delimiter, ";;")
	}
	if cfg.Generator.ChunkSize != 500 {
		t.Errorf("Generator.ChunkSize = %d, want %d", cfg.Generator.ChunkSize, 500)
	}
	if cfg.Search.WaitTimeout != 2*time.Minute {
		t.Errorf("Search.WaitTimeout = %v, want %v", cfg.Search.WaitTimeout, 2*time.Minute)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
}

func TestLoad_OverrideDefaults(t *testing.T) {
	t.Setenv("SPLUNK_HOST", "splunk.internal")
	t.Setenv("SPLUNK_PORT", "9089")
	t.Setenv("GENERATOR_DELIMITER", "~~")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Splunk.Host != "splunk.internal" {
		t.Errorf("Splunk.Host = %q, want %q", cfg.Splunk.Host, "splunk.internal")
	}
	if cfg.Splunk.Port != 9089 {
		t.Errorf("Splunk.Port = %d, want %d", cfg.Splunk.Port, 9089)
	}
	if cfg.Generator.Delimiter != "~~" {
		t.Errorf("Generator.Delimiter = %q, want %q", cfg.Generator.Delimiter, "~~")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoad_Duration(t *testing.T) {
	t.Setenv("SEARCH_WAIT_TIMEOUT", "5m")
	t.Setenv("SEARCH_POLL_INTERVAL", "250ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Search.WaitTimeout != 5*time.Minute {
		t.Errorf("Search.WaitTimeout = %v, want %v", cfg.Search.WaitTimeout, 5*time.Minute)
	}
	if cfg.Search.PollInterval != 250*time.Millisecond {
		t.Errorf("Search.PollInterval = %v, want %v", cfg.Search.PollInterval, 250*time.Millisecond)
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("SPLUNK_PORT", "99999")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for out-of-range port")
	}
}

func TestLoad_InvalidDelimiter(t *testing.T) {
	t.Setenv("GENERATOR_DELIMITER", `;"`)

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "GENERATOR_DELIMITER") {
		t.Errorf("Load() error = %v, want delimiter validation error", err)
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "LOG_LEVEL") {
		t.Errorf("Load() error = %v, want log level validation error", err)
	}
}

func TestValidateConnection(t *testing.T) {
	tests := []struct {
		name string
		cfg  SplunkConfig
		ok   bool
	}{
		{"token auth", SplunkConfig{Host: "h", Token: "t"}, true},
		{"basic auth", SplunkConfig{Host: "h", Username: "u", Password: "p"}, true},
		{"missing host", SplunkConfig{Token: "t"}, false},
		{"no credentials", SplunkConfig{Host: "h"}, false},
		{"username without password", SplunkConfig{Host: "h", Username: "u"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Splunk: tt.cfg}
			err := cfg.ValidateConnection()
			if tt.ok && err != nil {
				t.Errorf("ValidateConnection() = %v, want nil", err)
			}
			if !tt.ok && err == nil {
				t.Error("ValidateConnection() = nil, want error")
			}
		})
	}
}

func TestString_MasksCredentials(t *testing.T) {
	cfg := &Config{
		Splunk: SplunkConfig{Host: "h", Token: "super-secret", Password: "hunter2"},
	}

	s := cfg.String()
	if strings.Contains(s, "super-secret") || strings.Contains(s, "hunter2") {
		t.Errorf("String() leaked credentials: %s", s)
	}
	if !strings.Contains(s, "[MASKED]") {
		t.Errorf("String() missing mask marker: %s", s)
	}
}
