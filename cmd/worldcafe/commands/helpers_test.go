// ABOUTME: Shared helpers for command tests: a canned capability and a root runner
// ABOUTME: Each run gets a fresh database under t.TempDir and reset global flags
package commands

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/harper/worldcafe/internal/config"
	"github.com/harper/worldcafe/internal/llm"
)

type cannedCapability struct {
	calls int32
}

func (c *cannedCapability) Submit(_ context.Context, req llm.Request) (string, error) {
	atomic.AddInt32(&c.calls, 1)
	p := req.UserPrompt
	switch {
	case strings.Contains(p, "points of disagreement"):
		return `{"conflicts":[{"location":"Table t1","quote":"no cars","severity":0.6,"description":"traffic"}]}`, nil
	case strings.Contains(p, "points of consensus"):
		return `{"agreements":[{"location":"Table t2","quote":"more trees","strength":0.8,"description":"parks"}]}`, nil
	case strings.Contains(p, "recurring themes"):
		return `{"themes":[{"label":"Transit","frequency":2,"locations":["Table t1"],"sentiment":0.1}]}`, nil
	case strings.Contains(p, "Assess the sentiment"):
		return `{"overall":0.3,"breakdown":[{"location":"Table t1","score":0.3}],"interpretation":"hopeful"}`, nil
	}
	return "People mostly talked about buses.", nil
}

// useCanned swaps the capability factory for the duration of the test
func useCanned(t *testing.T) *cannedCapability {
	t.Helper()
	capability := &cannedCapability{}
	orig := newCapability
	newCapability = func(*config.Config) (llm.Capability, error) { return capability, nil }
	t.Cleanup(func() { newCapability = orig })
	return capability
}

// testDB isolates configuration and returns a fresh database path
func testDB(t *testing.T) string {
	t.Helper()
	t.Setenv("WORLDCAFE_PROMPTS_FILE", "")
	t.Setenv("WORLDCAFE_LOG_LEVEL", "error")
	t.Setenv("OPENAI_API_KEY", "")
	return filepath.Join(t.TempDir(), "worldcafe.db")
}

// runRoot executes the root command with args and returns stdout
func runRoot(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	verbose, quiet, outputFormat, dbPath = false, false, "auto", ""
	ingestSession, ingestTable = "", ""
	analyzeFacets = nil
	exportAs, exportOutput = "yaml", ""

	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

const sampleJSONL = `{"id":"r1","recordingId":"rec1","tableId":"t1","sessionId":"s1","text":"we need more buses","createdAt":"2026-03-01T10:00:00Z"}
{"id":"r2","recordingId":"rec2","tableId":"t1","sessionId":"s1","text":"and bike lanes","createdAt":"2026-03-01T10:05:00Z"}
{"id":"r3","recordingId":"rec3","tableId":"t2","sessionId":"s1","text":"plant trees by the river","createdAt":"2026-03-01T10:01:00Z"}
`
