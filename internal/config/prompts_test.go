// ABOUTME: Tests for prompt templates and capability budgets
// ABOUTME: Verifies embedded defaults, file overrides and placeholder rendering
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultPrompts(t *testing.T) {
	p := DefaultPrompts()
	if err := p.Validate(); err != nil {
		t.Fatalf("default prompts invalid: %v", err)
	}
	for _, facet := range []string{"conflicts", "agreements", "themes", "sentiment"} {
		tmpl, err := p.FacetTemplate(facet)
		if err != nil {
			t.Errorf("FacetTemplate(%s) error = %v", facet, err)
		}
		if !strings.Contains(tmpl, "{{corpus}}") {
			t.Errorf("template for %s missing corpus placeholder", facet)
		}
	}
	if _, err := p.FacetTemplate("mood"); err == nil {
		t.Error("expected error for unknown facet")
	}
	if got := p.BudgetFor("gpt-4o-mini").MaxContextTokens; got != 128000 {
		t.Errorf("gpt-4o-mini context = %d", got)
	}
	if got := p.BudgetFor("unknown-model"); got != p.Capabilities[DefaultCapability] {
		t.Errorf("unknown model should use default budget, got %+v", got)
	}
}

func TestLoadPromptsOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.toml")
	contents := `
chat_system = "Be brief."

[facets]
themes = "Themes please: {{corpus}}"

[capabilities."tiny"]
max_context_tokens = 2048
max_response_tokens = 256
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write prompts: %v", err)
	}

	p, err := LoadPrompts(path)
	if err != nil {
		t.Fatalf("LoadPrompts() error = %v", err)
	}
	if p.ChatSystem != "Be brief." {
		t.Errorf("ChatSystem = %q", p.ChatSystem)
	}
	if tmpl, _ := p.FacetTemplate("themes"); tmpl != "Themes please: {{corpus}}" {
		t.Errorf("themes template = %q", tmpl)
	}
	if tmpl, _ := p.FacetTemplate("conflicts"); !strings.Contains(tmpl, "disagreement") {
		t.Error("unspecified facets should keep defaults")
	}
	if b := p.BudgetFor("tiny"); b.MaxContextTokens != 2048 || b.MaxResponseTokens != 256 {
		t.Errorf("tiny budget = %+v", b)
	}
	if p.AnalysisSystem == "" {
		t.Error("analysis system prompt should keep its default")
	}
}

func TestLoadPromptsErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadPrompts(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.toml")
	_ = os.WriteFile(bad, []byte("[facets]\nthemes = \"no placeholder\"\n"), 0o600)
	if _, err := LoadPrompts(bad); err == nil || !strings.Contains(err.Error(), "{{corpus}}") {
		t.Errorf("expected placeholder error, got %v", err)
	}

	broken := filepath.Join(dir, "broken.toml")
	_ = os.WriteFile(broken, []byte("this is = = not toml"), 0o600)
	if _, err := LoadPrompts(broken); err == nil {
		t.Error("expected parse error")
	}
}

func TestRender(t *testing.T) {
	got := Render("Q: {{message}}\n{{digest}} {{unknown}}", map[string]string{
		"message": "why {{digest}}?",
		"digest":  "D",
	})
	if got != "Q: why {{digest}}?\nD {{unknown}}" {
		t.Errorf("Render() = %q", got)
	}
}
