// ABOUTME: Export of one session's transcripts summary and stored findings
// ABOUTME: Supports YAML and Markdown export formats
package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harper/worldcafe/internal/models"
)

// ExportData is a session's exportable state
type ExportData struct {
	Version         string          `yaml:"version" json:"version"`
	ExportedAt      string          `yaml:"exported_at" json:"exported_at"`
	Tool            string          `yaml:"tool" json:"tool"`
	SessionID       string          `yaml:"session_id" json:"session_id"`
	Tables          []string        `yaml:"tables" json:"tables"`
	TranscriptCount int             `yaml:"transcript_count" json:"transcript_count"`
	Findings        []ExportFinding `yaml:"findings,omitempty" json:"findings,omitempty"`

	records []models.AnalysisRecord
}

// ExportFinding is one stored analysis record with its payload decoded
type ExportFinding struct {
	Facet       string      `yaml:"facet" json:"facet"`
	Scope       string      `yaml:"scope" json:"scope"`
	TableID     string      `yaml:"table_id,omitempty" json:"table_id,omitempty"`
	Level       string      `yaml:"level,omitempty" json:"level,omitempty"`
	Inputs      int         `yaml:"input_transcripts" json:"input_transcripts"`
	GeneratedAt string      `yaml:"generated_at" json:"generated_at"`
	Payload     interface{} `yaml:"payload" json:"payload"`
}

// ExportSession collects a session's tables, transcript count and findings
func (s *Storage) ExportSession(ctx context.Context, sessionID string) (*ExportData, error) {
	data := &ExportData{
		Version:    "1.0",
		ExportedAt: time.Now().Format(time.RFC3339),
		Tool:       "worldcafe",
		SessionID:  sessionID,
	}

	tables, err := s.Transcripts.ListTables(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	data.Tables = tables

	transcripts, err := s.Transcripts.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}
	data.TranscriptCount = len(transcripts)

	records, err := s.Analyses.FindBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get findings: %w", err)
	}
	data.records = records
	for _, rec := range records {
		var payload interface{}
		if err := json.Unmarshal(rec.Payload, &payload); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", rec.Key, err)
		}
		data.Findings = append(data.Findings, ExportFinding{
			Facet:       string(rec.Key.Facet),
			Scope:       string(rec.Key.Scope),
			TableID:     rec.Key.TableID,
			Level:       rec.Metadata.Level,
			Inputs:      rec.Metadata.InputTranscriptCount,
			GeneratedAt: rec.Metadata.GeneratedAt.Format(time.RFC3339),
			Payload:     payload,
		})
	}

	return data, nil
}

// ExportToYAML writes a session export as YAML
func (s *Storage) ExportToYAML(ctx context.Context, sessionID, outputPath string) error {
	data, err := s.ExportSession(ctx, sessionID)
	if err != nil {
		return err
	}
	return writeExport(outputPath, func(w io.Writer) error {
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(data); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return encoder.Close()
	})
}

// ExportToMarkdown writes a session export as a readable report
func (s *Storage) ExportToMarkdown(ctx context.Context, sessionID, outputPath string) error {
	data, err := s.ExportSession(ctx, sessionID)
	if err != nil {
		return err
	}
	return writeExport(outputPath, func(w io.Writer) error {
		return WriteMarkdown(w, data)
	})
}

func writeExport(outputPath string, encode func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(outputPath) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return encode(file)
}

// WriteMarkdown renders an export as Markdown. Session findings come before
// table findings; facets without a known payload shape are skipped.
func WriteMarkdown(w io.Writer, data *ExportData) error {
	_, _ = fmt.Fprintf(w, "# World Café Session %s\n\n", data.SessionID)
	_, _ = fmt.Fprintf(w, "Generated: %s\n\n", data.ExportedAt)
	_, _ = fmt.Fprintf(w, "- **Tables:** %s\n", strings.Join(data.Tables, ", "))
	_, _ = fmt.Fprintf(w, "- **Transcripts:** %d\n\n", data.TranscriptCount)

	for _, scope := range []models.Scope{models.ScopeSession, models.ScopeTable} {
		for i := range data.records {
			rec := &data.records[i]
			if rec.Key.Scope != scope {
				continue
			}
			if err := writeFinding(w, rec); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeFinding(w io.Writer, rec *models.AnalysisRecord) error {
	where := "Session"
	if rec.Key.Scope == models.ScopeTable {
		where = "Table " + rec.Key.TableID
	}

	switch rec.Key.Facet {
	case models.FacetThemes:
		var p models.ThemesResult
		if err := rec.DecodePayload(&p); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "## Themes (%s)\n\n", where)
		_, _ = fmt.Fprintln(w, "| Theme | Frequency | Sentiment | Where |")
		_, _ = fmt.Fprintln(w, "|-------|-----------|-----------|-------|")
		for _, th := range p.Themes {
			_, _ = fmt.Fprintf(w, "| %s | %d | %+.2f | %s |\n", th.Label, th.Frequency, th.Sentiment, strings.Join(th.Locations, ", "))
		}
	case models.FacetConflicts:
		var p models.ConflictsResult
		if err := rec.DecodePayload(&p); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "## Conflicts (%s)\n\n", where)
		for _, c := range p.Conflicts {
			_, _ = fmt.Fprintf(w, "- **%s** (severity %.2f): %s\n  > %s\n", c.Location, c.Severity, c.Description, c.Quote)
		}
	case models.FacetAgreements:
		var p models.AgreementsResult
		if err := rec.DecodePayload(&p); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "## Agreements (%s)\n\n", where)
		for _, a := range p.Agreements {
			_, _ = fmt.Fprintf(w, "- **%s** (strength %.2f): %s\n  > %s\n", a.Location, a.Strength, a.Description, a.Quote)
		}
	case models.FacetSentiment:
		var p models.SentimentResult
		if err := rec.DecodePayload(&p); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "## Sentiment (%s)\n\n", where)
		_, _ = fmt.Fprintf(w, "Overall %+.2f: %s\n\n", p.Overall, p.Interpretation)
		for _, s := range p.Breakdown {
			_, _ = fmt.Fprintf(w, "- %s: %+.2f\n", s.Location, s.Score)
		}
	default:
		return nil
	}
	_, _ = fmt.Fprintln(w)
	return nil
}
