// ABOUTME: Tests for analyze, findings and chat commands end to end
// ABOUTME: Runs against a temp database with a canned completion capability
package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

func ingestSample(t *testing.T, db string) {
	t.Helper()
	if _, err := runRoot(t, sampleJSONL, "--db", db, "--format", "json", "ingest"); err != nil {
		t.Fatalf("ingest error = %v", err)
	}
}

func TestAnalyzeSessionJSON(t *testing.T) {
	db := testDB(t)
	capability := useCanned(t)
	ingestSample(t, db)

	out, err := runRoot(t, "", "--db", db, "--format", "json", "analyze", "session", "s1")
	if err != nil {
		t.Fatalf("analyze error = %v", err)
	}

	var report struct {
		SessionID string `json:"session_id"`
		Facets    []struct {
			Facet    string `json:"facet"`
			Degraded bool   `json:"degraded"`
			Level    string `json:"level"`
		} `json:"facets"`
		Participation struct {
			TotalTables int `json:"total_tables"`
		} `json:"participation"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("output is not a report: %v\n%s", err, out)
	}
	if report.SessionID != "s1" || len(report.Facets) != 4 {
		t.Fatalf("report = %+v", report)
	}
	for _, f := range report.Facets {
		if f.Degraded || f.Level != "full" {
			t.Errorf("facet %s degraded=%v level=%s", f.Facet, f.Degraded, f.Level)
		}
	}
	if atomic.LoadInt32(&capability.calls) != 4 {
		t.Errorf("capability calls = %d, want 4", capability.calls)
	}

	out, err = runRoot(t, "", "--db", db, "--format", "json", "findings", "s1", "--facet", "themes")
	if err != nil {
		t.Fatalf("findings error = %v", err)
	}
	var records []map[string]interface{}
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("findings output: %v\n%s", err, out)
	}
	if len(records) != 1 {
		t.Errorf("themes records = %d, want 1", len(records))
	}
}

func TestAnalyzeTableRendersTables(t *testing.T) {
	db := testDB(t)
	useCanned(t)
	ingestSample(t, db)

	out, err := runRoot(t, "", "--db", db, "--format", "table", "analyze", "table", "t1", "--facets", "themes")
	if err != nil {
		t.Fatalf("analyze error = %v", err)
	}
	for _, want := range []string{"Table analysis for t1", "Themes", "Transit"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAnalyzeRejectsUnknownFacet(t *testing.T) {
	db := testDB(t)
	useCanned(t)
	if _, err := runRoot(t, "", "--db", db, "analyze", "session", "s1", "--facets", "vibes"); err == nil {
		t.Error("expected error for unknown facet")
	}
}

func TestAnalyzeNeedsAPIKey(t *testing.T) {
	db := testDB(t)
	if _, err := runRoot(t, "", "--db", db, "analyze", "session", "s1"); err == nil {
		t.Error("expected error without OPENAI_API_KEY")
	}
}

func TestFindingsRejectsUnknownScope(t *testing.T) {
	db := testDB(t)
	if _, err := runRoot(t, "", "--db", db, "findings", "s1", "--scope", "room"); err == nil {
		t.Error("expected error for unknown scope")
	}
}

func TestChatAndSummary(t *testing.T) {
	db := testDB(t)
	useCanned(t)
	ingestSample(t, db)

	out, err := runRoot(t, "", "--db", db, "--format", "table", "chat", "s1", "what", "about", "buses?")
	if err != nil {
		t.Fatalf("chat error = %v", err)
	}
	if !strings.Contains(out, "buses") {
		t.Errorf("chat output = %q", out)
	}

	out, err = runRoot(t, "", "--db", db, "summary", "show", "s1")
	if err != nil {
		t.Fatalf("summary show error = %v", err)
	}
	if !strings.Contains(out, "t1") {
		t.Errorf("digest should mention the tables: %q", out)
	}

	out, err = runRoot(t, "", "--db", db, "summary", "rebuild", "s1")
	if err != nil {
		t.Fatalf("summary rebuild error = %v", err)
	}
	if !strings.Contains(out, "3 transcript(s) across 2 table(s)") {
		t.Errorf("rebuild output = %q", out)
	}
}

func TestSummaryShowWithoutDigest(t *testing.T) {
	db := testDB(t)
	out, err := runRoot(t, "", "--db", db, "summary", "show", "nobody")
	if err != nil {
		t.Fatalf("summary show error = %v", err)
	}
	if !strings.Contains(out, "No digest stored") {
		t.Errorf("output = %q", out)
	}
}

func TestPromptsCmdPrintsTOML(t *testing.T) {
	out, err := runRoot(t, "", "prompts")
	if err != nil {
		t.Fatalf("prompts error = %v", err)
	}
	if !strings.Contains(out, "[") {
		t.Errorf("expected TOML tables in output: %q", out)
	}
}

func TestExportMarkdown(t *testing.T) {
	db := testDB(t)
	useCanned(t)
	ingestSample(t, db)
	if _, err := runRoot(t, "", "--db", db, "analyze", "session", "s1", "--facets", "themes"); err != nil {
		t.Fatalf("analyze error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "report.md")
	if _, err := runRoot(t, "", "--db", db, "export", "s1", "--as", "md", "-o", path); err != nil {
		t.Fatalf("export error = %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(raw), "| Transit |") {
		t.Errorf("export missing themes:\n%s", raw)
	}

	if _, err := runRoot(t, "", "--db", db, "export", "s1", "--as", "pdf"); err == nil {
		t.Error("expected error for unknown export format")
	}
}
