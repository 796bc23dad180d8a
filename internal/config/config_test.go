package config

import (
	"strings"
	"testing"
)

// TestDefaults tests that the default configuration is valid
func TestDefaults(t *testing.T) {
	cfg := GetDefaults()
	if err := validateConfig(cfg); err != nil {
		t.Errorf("default configuration invalid: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d", cfg.Server.Port)
	}
	if cfg.Cloak.StartDelimiter != "<" || cfg.Cloak.EndDelimiter != ">" {
		t.Errorf("default delimiters = %q %q", cfg.Cloak.StartDelimiter, cfg.Cloak.EndDelimiter)
	}
}

// TestValidateConfig tests validation failures
func TestValidateConfig(t *testing.T) {
	t.Run("InvalidPort", func(t *testing.T) {
		cfg := GetDefaults()
		cfg.Server.Port = 0
		if err := validateConfig(cfg); err == nil || !strings.Contains(err.Error(), "port") {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("EmptyDelimiter", func(t *testing.T) {
		cfg := GetDefaults()
		cfg.Cloak.StartDelimiter = ""
		if err := validateConfig(cfg); err == nil || !strings.Contains(err.Error(), "delimiter") {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("EmptyDelimiterAllowedWhenDisabled", func(t *testing.T) {
		cfg := GetDefaults()
		cfg.Cloak.Enabled = false
		cfg.Cloak.StartDelimiter = ""
		if err := validateConfig(cfg); err != nil {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("BadLogLevel", func(t *testing.T) {
		cfg := GetDefaults()
		cfg.Logging.Level = "verbose"
		if err := validateConfig(cfg); err == nil || !strings.Contains(err.Error(), "log level") {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("BadRateLimit", func(t *testing.T) {
		cfg := GetDefaults()
		cfg.RateLimit.RequestsPerMin = -5
		if err := validateConfig(cfg); err == nil || !strings.Contains(err.Error(), "rate limit") {
			t.Errorf("err = %v", err)
		}
	})
}
