// ABOUTME: Centralized configuration for the World Café analysis tools
// ABOUTME: Loads from environment variables with validation and defaults
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

// Config holds all configuration for the analysis pipeline
type Config struct {
	// Storage
	DBPath string `env:"WORLDCAFE_DB_PATH"`

	// Logging
	LogLevel string `env:"WORLDCAFE_LOG_LEVEL" envDefault:"info"`

	// Prompt templates and capability budgets
	PromptsFile string `env:"WORLDCAFE_PROMPTS_FILE"`

	// OpenAI settings
	OpenAIKey     string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string        `env:"OPENAI_BASE_URL"`
	ChatModel     string        `env:"WORLDCAFE_OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	Timeout       time.Duration `env:"OPENAI_TIMEOUT" envDefault:"60s"`
	MaxRetries    int           `env:"OPENAI_MAX_RETRIES" envDefault:"3"`
	RetryDelay    time.Duration `env:"OPENAI_RETRY_DELAY" envDefault:"2s"`

	// Analysis settings
	FacetTimeout      time.Duration `env:"WORLDCAFE_FACET_TIMEOUT" envDefault:"90s"`
	MaxContextTokens  int           `env:"WORLDCAFE_MAX_CONTEXT_TOKENS"`
	MaxResponseTokens int           `env:"WORLDCAFE_MAX_RESPONSE_TOKENS"`
	MinRetainRatio    float64       `env:"WORLDCAFE_MIN_RETAIN_RATIO" envDefault:"0.05"`

	// Charm settings
	CharmHost   string `env:"CHARM_HOST" envDefault:"cloud.charm.sh"`
	CharmDBName string `env:"CHARM_DB" envDefault:"worldcafe"`
	AutoSync    bool   `env:"CHARM_AUTO_SYNC" envDefault:"false"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("OPENAI_MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	if c.MinRetainRatio < 0 || c.MinRetainRatio > 1 {
		return fmt.Errorf("WORLDCAFE_MIN_RETAIN_RATIO must be 0-1, got %f", c.MinRetainRatio)
	}
	if c.FacetTimeout <= 0 {
		return fmt.Errorf("WORLDCAFE_FACET_TIMEOUT must be positive, got %v", c.FacetTimeout)
	}
	if c.MaxContextTokens < 0 || c.MaxResponseTokens < 0 {
		return fmt.Errorf("token limits cannot be negative")
	}
	if c.MaxContextTokens > 0 && c.MaxResponseTokens >= c.MaxContextTokens {
		return fmt.Errorf("WORLDCAFE_MAX_RESPONSE_TOKENS (%d) must be below WORLDCAFE_MAX_CONTEXT_TOKENS (%d)",
			c.MaxResponseTokens, c.MaxContextTokens)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("WORLDCAFE_LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel)
	}
	return nil
}

// ApplyBudgetOverrides lets environment limits win over the prompts file
func (c *Config) ApplyBudgetOverrides(p *Prompts) {
	if c.MaxContextTokens == 0 && c.MaxResponseTokens == 0 {
		return
	}
	b := p.BudgetFor(c.ChatModel)
	if c.MaxContextTokens > 0 {
		b.MaxContextTokens = c.MaxContextTokens
	}
	if c.MaxResponseTokens > 0 {
		b.MaxResponseTokens = c.MaxResponseTokens
	}
	if p.Capabilities == nil {
		p.Capabilities = make(map[string]CapabilityBudget)
	}
	p.Capabilities[c.ChatModel] = b
}
