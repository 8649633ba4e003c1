// ABOUTME: Tests for unified Storage wrapper
// ABOUTME: Verifies file-backed storage survives reopen and both stores share one database
package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/harper/worldcafe/internal/models"
)

func TestStorageWithPathPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "worldcafe.db")
	ctx := context.Background()

	store, err := NewStorageWithPath(path)
	if err != nil {
		t.Fatalf("NewStorageWithPath() error = %v", err)
	}
	if store.DB().Path() != path {
		t.Errorf("Path() = %q, want %q", store.DB().Path(), path)
	}

	tr := &models.Transcript{ID: "r1", TableID: "t1", SessionID: "s1", Text: "hello", CreatedAt: time.Now().UTC()}
	if _, err := store.Transcripts.SaveTranscript(ctx, tr); err != nil {
		t.Fatalf("SaveTranscript() error = %v", err)
	}
	rec := &models.AnalysisRecord{
		Key:     models.AnalysisKey{SessionID: "s1", Facet: models.FacetThemes, Scope: models.ScopeSession},
		Payload: json.RawMessage(`{"themes":[]}`),
	}
	if err := store.Analyses.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewStorageWithPath(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer func() { _ = reopened.Close() }()

	got, err := reopened.Transcripts.ListBySession(ctx, "s1")
	if err != nil || len(got) != 1 {
		t.Fatalf("ListBySession() = %d, %v", len(got), err)
	}
	stored, err := reopened.Analyses.Get(ctx, rec.Key)
	if err != nil || stored == nil {
		t.Fatalf("Get() = %v, %v", stored, err)
	}
}

func TestStorageInMemoryIsIsolated(t *testing.T) {
	a := newTestStorage(t)
	b := newTestStorage(t)
	ctx := context.Background()

	tr := &models.Transcript{ID: "r1", TableID: "t1", SessionID: "s1", Text: "hi", CreatedAt: time.Now().UTC()}
	if _, err := a.Transcripts.SaveTranscript(ctx, tr); err != nil {
		t.Fatalf("SaveTranscript() error = %v", err)
	}
	got, err := b.Transcripts.ListBySession(ctx, "s1")
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("in-memory stores share data: %d transcripts", len(got))
	}
}
