// ABOUTME: CLI command to ingest finished transcripts
// ABOUTME: Accepts a JSON array or JSON Lines from a file or stdin
package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/harper/worldcafe/internal/models"
)

var (
	ingestSession string
	ingestTable   string
)

// NewIngestCmd creates the ingest command
func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Store transcripts for analysis",
		Long: `Store finished transcripts from a JSON array or JSON Lines file.

Each transcript looks like:
  {"id": "...", "recordingId": "...", "tableId": "t1", "sessionId": "s1",
   "text": "...", "speakerSegments": [{"speaker": "0", "text": "...", "start": 0, "end": 4.2}],
   "createdAt": "2026-03-01T10:00:00Z"}

Missing ids are generated. Missing timestamps keep the file order.
Re-ingesting a transcript with an existing id is a no-op.

Examples:
  worldcafe ingest transcripts.json
  cat table1.jsonl | worldcafe ingest --session s1 --table t1`,
		Args: cobra.MaximumNArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().StringVar(&ingestSession, "session", "", "Session id for records that omit one")
	cmd.Flags().StringVar(&ingestTable, "table", "", "Table id for records that omit one")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	transcripts, err := parseTranscripts(in)
	if err != nil {
		return err
	}
	if len(transcripts) == 0 {
		return fmt.Errorf("no transcripts in input")
	}
	fillDefaults(transcripts, ingestSession, ingestTable, time.Now().UTC())

	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	var inserted, skipped int
	for i := range transcripts {
		ok, err := a.store.Transcripts.SaveTranscript(cmd.Context(), &transcripts[i])
		if err != nil {
			return fmt.Errorf("storing transcript %s: %w", transcripts[i].ID, err)
		}
		if ok {
			inserted++
		} else {
			skipped++
		}
	}
	a.logger.Info("ingest finished", "inserted", inserted, "skipped", skipped)

	format, err := resolveFormat(outputFormat, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if format == "json" {
		return writeJSON(cmd.OutOrStdout(), map[string]int{"inserted": inserted, "skipped": skipped})
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Stored %d transcript(s), %d already present\n", inserted, skipped)
	}
	return nil
}

// parseTranscripts reads either one JSON array or a stream of JSON objects
func parseTranscripts(r io.Reader) ([]models.Transcript, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '[' {
		var out []models.Transcript
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("parsing transcript array: %w", err)
		}
		return out, nil
	}

	var out []models.Transcript
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var t models.Transcript
		if err := dec.Decode(&t); err != nil {
			return nil, fmt.Errorf("parsing transcript %d: %w", len(out)+1, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// fillDefaults supplies ids, session and table from flags, and timestamps
// that preserve input order
func fillDefaults(ts []models.Transcript, session, table string, now time.Time) {
	for i := range ts {
		t := &ts[i]
		if t.ID == "" {
			t.ID = uuid.New().String()
		}
		if t.SessionID == "" {
			t.SessionID = session
		}
		if t.TableID == "" {
			t.TableID = table
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now.Add(time.Duration(i) * time.Millisecond)
		}
	}
}
