// ABOUTME: Tests for session export to YAML and Markdown
// ABOUTME: Uses an in-memory store seeded with transcripts and findings
package sqlite

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harper/worldcafe/internal/models"
)

func seedExport(t *testing.T) *Storage {
	t.Helper()
	s := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, tr := range []models.Transcript{
		{ID: "r1", TableID: "t1", SessionID: "s1", Text: "more buses"},
		{ID: "r2", TableID: "t2", SessionID: "s1", Text: "more trees"},
		{ID: "r3", TableID: "t9", SessionID: "other", Text: "unrelated"},
	} {
		tr.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if _, err := s.Transcripts.SaveTranscript(ctx, &tr); err != nil {
			t.Fatalf("SaveTranscript() error = %v", err)
		}
	}

	records := []models.AnalysisRecord{
		{
			Key:      models.AnalysisKey{SessionID: "s1", Facet: models.FacetThemes, Scope: models.ScopeSession},
			Payload:  json.RawMessage(`{"themes":[{"label":"Transit","frequency":2,"locations":["Table t1"],"sentiment":0.25}]}`),
			Metadata: models.GenerationMetadata{InputTranscriptCount: 2, Level: "full", GeneratedAt: base},
		},
		{
			Key:      models.AnalysisKey{SessionID: "s1", TableID: "t2", Facet: models.FacetAgreements, Scope: models.ScopeTable},
			Payload:  json.RawMessage(`{"agreements":[{"location":"Table t2","quote":"yes to trees","strength":0.9,"description":"greenery"}]}`),
			Metadata: models.GenerationMetadata{InputTranscriptCount: 1, Level: "full", GeneratedAt: base},
		},
		{
			Key:      models.AnalysisKey{SessionID: "s1", Facet: models.FacetChatSummary, Scope: models.ScopeSession},
			Payload:  json.RawMessage(`{"digest":"=== Table t1 ===","table_count":2,"transcript_count":2}`),
			Metadata: models.GenerationMetadata{InputTranscriptCount: 2, GeneratedAt: base},
		},
	}
	for i := range records {
		if err := s.Analyses.Upsert(ctx, &records[i]); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}
	return s
}

func TestExportSession(t *testing.T) {
	s := seedExport(t)

	data, err := s.ExportSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("ExportSession() error = %v", err)
	}
	if data.Tool != "worldcafe" || data.SessionID != "s1" {
		t.Errorf("header = %+v", data)
	}
	if len(data.Tables) != 2 || data.TranscriptCount != 2 {
		t.Errorf("tables = %v, transcripts = %d", data.Tables, data.TranscriptCount)
	}
	if len(data.Findings) != 3 {
		t.Fatalf("findings = %d, want 3", len(data.Findings))
	}
}

func TestExportToYAML(t *testing.T) {
	s := seedExport(t)
	path := filepath.Join(t.TempDir(), "out", "s1.yaml")

	if err := s.ExportToYAML(context.Background(), "s1", path); err != nil {
		t.Fatalf("ExportToYAML() error = %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	var got struct {
		SessionID string `yaml:"session_id"`
		Findings  []struct {
			Facet   string                 `yaml:"facet"`
			Payload map[string]interface{} `yaml:"payload"`
		} `yaml:"findings"`
	}
	if err := yaml.Unmarshal(raw, &got); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if got.SessionID != "s1" || len(got.Findings) != 3 {
		t.Fatalf("decoded = %+v", got)
	}
	if !strings.Contains(string(raw), "label: Transit") {
		t.Errorf("payload not rendered as YAML:\n%s", raw)
	}
}

func TestWriteMarkdown(t *testing.T) {
	s := seedExport(t)
	data, err := s.ExportSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("ExportSession() error = %v", err)
	}

	var buf bytes.Buffer
	if err := WriteMarkdown(&buf, data); err != nil {
		t.Fatalf("WriteMarkdown() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# World Café Session s1",
		"**Tables:** t1, t2",
		"## Themes (Session)",
		"| Transit | 2 | +0.25 | Table t1 |",
		"## Agreements (Table t2)",
		"> yes to trees",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "## Themes") > strings.Index(out, "## Agreements") {
		t.Error("session findings should come before table findings")
	}
	if strings.Contains(out, "chat_summary") || strings.Contains(out, "=== Table t1 ===") {
		t.Error("chat digest should not be rendered")
	}
}

func TestExportEmptySession(t *testing.T) {
	s := newTestStorage(t)
	path := filepath.Join(t.TempDir(), "empty.md")

	if err := s.ExportToMarkdown(context.Background(), "nobody", path); err != nil {
		t.Fatalf("ExportToMarkdown() error = %v", err)
	}
	raw, _ := os.ReadFile(path)
	if !strings.Contains(string(raw), "**Transcripts:** 0") {
		t.Errorf("unexpected export:\n%s", raw)
	}
}
