// ABOUTME: Prompt templates and per-capability token budgets
// ABOUTME: Defaults are embedded TOML; a user file overrides individual entries
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed default_prompts.toml
var defaultPromptsTOML string

// DefaultCapability is the budget key used when a capability has no entry
const DefaultCapability = "default"

// CapabilityBudget is the context window and response reserve of one model
type CapabilityBudget struct {
	MaxContextTokens  int `toml:"max_context_tokens"`
	MaxResponseTokens int `toml:"max_response_tokens"`
}

// Prompts holds every template sent to the completion capability
type Prompts struct {
	AnalysisSystem string                      `toml:"analysis_system"`
	ChatSystem     string                      `toml:"chat_system"`
	ChatTemplate   string                      `toml:"chat_template"`
	Facets         map[string]string           `toml:"facets"`
	Capabilities   map[string]CapabilityBudget `toml:"capabilities"`
}

// DefaultPrompts returns the built-in templates
func DefaultPrompts() *Prompts {
	var p Prompts
	if err := toml.Unmarshal([]byte(defaultPromptsTOML), &p); err != nil {
		panic(fmt.Sprintf("embedded prompts are invalid: %v", err))
	}
	return &p
}

// SamplePrompts returns the embedded TOML, for writing a starter file
func SamplePrompts() string {
	return defaultPromptsTOML
}

// LoadPrompts returns the defaults overlaid with entries from path.
// An empty path yields the defaults.
func LoadPrompts(path string) (*Prompts, error) {
	p := DefaultPrompts()
	if path == "" {
		return p, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open prompts: %w", err)
	}
	defer func() { _ = file.Close() }()

	var override Prompts
	if err := toml.NewDecoder(file).Decode(&override); err != nil {
		return nil, fmt.Errorf("parse prompts %s: %w", path, err)
	}
	p.merge(&override)

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("prompts %s: %w", path, err)
	}
	return p, nil
}

func (p *Prompts) merge(o *Prompts) {
	if strings.TrimSpace(o.AnalysisSystem) != "" {
		p.AnalysisSystem = o.AnalysisSystem
	}
	if strings.TrimSpace(o.ChatSystem) != "" {
		p.ChatSystem = o.ChatSystem
	}
	if strings.TrimSpace(o.ChatTemplate) != "" {
		p.ChatTemplate = o.ChatTemplate
	}
	for facet, tmpl := range o.Facets {
		if strings.TrimSpace(tmpl) != "" {
			p.Facets[facet] = tmpl
		}
	}
	for id, b := range o.Capabilities {
		p.Capabilities[id] = b
	}
}

// Validate checks every template still carries the placeholders it needs
func (p *Prompts) Validate() error {
	for facet, tmpl := range p.Facets {
		if !strings.Contains(tmpl, "{{corpus}}") {
			return fmt.Errorf("facet template %q is missing {{corpus}}", facet)
		}
	}
	if !strings.Contains(p.ChatTemplate, "{{digest}}") || !strings.Contains(p.ChatTemplate, "{{message}}") {
		return fmt.Errorf("chat template must contain {{digest}} and {{message}}")
	}
	for id, b := range p.Capabilities {
		if b.MaxContextTokens <= 0 {
			return fmt.Errorf("capability %q: max_context_tokens must be positive", id)
		}
		if b.MaxResponseTokens < 0 || b.MaxResponseTokens >= b.MaxContextTokens {
			return fmt.Errorf("capability %q: max_response_tokens must be between 0 and max_context_tokens", id)
		}
	}
	return nil
}

// FacetTemplate returns the user prompt template for a facet
func (p *Prompts) FacetTemplate(facet string) (string, error) {
	tmpl, ok := p.Facets[facet]
	if !ok {
		return "", fmt.Errorf("no prompt template for facet %q", facet)
	}
	return tmpl, nil
}

// BudgetFor returns the budget of a capability, falling back to the default entry
func (p *Prompts) BudgetFor(capabilityID string) CapabilityBudget {
	if b, ok := p.Capabilities[capabilityID]; ok {
		return b
	}
	return p.Capabilities[DefaultCapability]
}

// Render substitutes {{name}} placeholders. Unknown placeholders are left alone.
func Render(tmpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
