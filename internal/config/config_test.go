// ABOUTME: Tests for centralized configuration system
// ABOUTME: Verifies environment variable parsing and validation
package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.ChatModel != "gpt-4o-mini" {
		t.Errorf("ChatModel = %s, want gpt-4o-mini", cfg.ChatModel)
	}
	if cfg.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want 60s", cfg.Timeout)
	}
	if cfg.FacetTimeout != 90*time.Second {
		t.Errorf("FacetTimeout = %v, want 90s", cfg.FacetTimeout)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.MinRetainRatio != 0.05 {
		t.Errorf("MinRetainRatio = %v, want 0.05", cfg.MinRetainRatio)
	}
	if cfg.CharmDBName != "worldcafe" {
		t.Errorf("CharmDBName = %s, want worldcafe", cfg.CharmDBName)
	}
	if cfg.AutoSync {
		t.Error("AutoSync = true, want false")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %s, want info", cfg.LogLevel)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()
	t.Setenv("WORLDCAFE_OPENAI_MODEL", "gpt-4o")
	t.Setenv("OPENAI_RETRY_DELAY", "500ms")
	t.Setenv("WORLDCAFE_FACET_TIMEOUT", "2m")
	t.Setenv("WORLDCAFE_MAX_CONTEXT_TOKENS", "8000")
	t.Setenv("WORLDCAFE_MAX_RESPONSE_TOKENS", "500")
	t.Setenv("CHARM_AUTO_SYNC", "true")
	t.Setenv("WORLDCAFE_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.ChatModel != "gpt-4o" || cfg.RetryDelay != 500*time.Millisecond || cfg.FacetTimeout != 2*time.Minute {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.MaxContextTokens != 8000 || cfg.MaxResponseTokens != 500 {
		t.Errorf("token limits = %d/%d", cfg.MaxContextTokens, cfg.MaxResponseTokens)
	}
	if !cfg.AutoSync {
		t.Error("AutoSync = false, want true")
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{LogLevel: "info", MaxRetries: 3, FacetTimeout: time.Second, MinRetainRatio: 0.05}
	}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"too many retries", func(c *Config) { c.MaxRetries = 11 }, "OPENAI_MAX_RETRIES"},
		{"ratio out of range", func(c *Config) { c.MinRetainRatio = 1.5 }, "MIN_RETAIN_RATIO"},
		{"zero facet timeout", func(c *Config) { c.FacetTimeout = 0 }, "FACET_TIMEOUT"},
		{"response exceeds context", func(c *Config) { c.MaxContextTokens = 100; c.MaxResponseTokens = 100 }, "MAX_RESPONSE_TOKENS"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "LOG_LEVEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestApplyBudgetOverrides(t *testing.T) {
	p := DefaultPrompts()
	cfg := &Config{ChatModel: "local-model", MaxContextTokens: 4096}
	cfg.ApplyBudgetOverrides(p)

	b := p.BudgetFor("local-model")
	if b.MaxContextTokens != 4096 {
		t.Errorf("MaxContextTokens = %d, want 4096", b.MaxContextTokens)
	}
	if b.MaxResponseTokens != p.BudgetFor(DefaultCapability).MaxResponseTokens {
		t.Errorf("response reserve should fall back to the default entry, got %d", b.MaxResponseTokens)
	}
}
