// ABOUTME: Tests for recording and transcript persistence
// ABOUTME: Verifies insert-once transcripts, ordering and status transitions
package sqlite

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/harper/worldcafe/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorageInMemory()
	if err != nil {
		t.Fatalf("NewStorageInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveTranscriptInsertOnce(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tr := &models.Transcript{
		ID:        "tr-1",
		TableID:   "table-1",
		SessionID: "sess-1",
		Text:      "first words",
		SpeakerSegments: []models.SpeakerSegment{
			{Speaker: "A", Text: "first words", Start: 0, End: 3.5, Confidence: 0.9},
		},
		ConfidenceScore: 0.9,
		Language:        "en",
		CreatedAt:       base,
	}

	inserted, err := s.Transcripts.SaveTranscript(ctx, tr)
	if err != nil {
		t.Fatalf("SaveTranscript() error = %v", err)
	}
	if !inserted {
		t.Fatal("expected first save to insert")
	}

	changed := *tr
	changed.Text = "rewritten"
	inserted, err = s.Transcripts.SaveTranscript(ctx, &changed)
	if err != nil {
		t.Fatalf("second SaveTranscript() error = %v", err)
	}
	if inserted {
		t.Error("expected re-ingest to be a no-op")
	}

	got, err := s.Transcripts.ListByTable(ctx, "table-1")
	if err != nil {
		t.Fatalf("ListByTable() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 transcript, got %d", len(got))
	}
	if got[0].Text != "first words" {
		t.Errorf("transcript was overwritten: %q", got[0].Text)
	}
	if got[0].DurationSeconds != 3.5 {
		t.Errorf("expected derived duration 3.5, got %v", got[0].DurationSeconds)
	}
	if len(got[0].SpeakerSegments) != 1 || got[0].SpeakerSegments[0].Speaker != "A" {
		t.Errorf("speaker segments not round-tripped: %+v", got[0].SpeakerSegments)
	}
	if !got[0].CreatedAt.Equal(base) {
		t.Errorf("CreatedAt = %v, want %v", got[0].CreatedAt, base)
	}

	rec, err := s.Transcripts.GetRecording(ctx, "tr-1")
	if err != nil {
		t.Fatalf("GetRecording() error = %v", err)
	}
	if rec == nil || rec.Status != models.RecordingCompleted {
		t.Errorf("expected implicit completed recording, got %+v", rec)
	}
}

func TestListBySessionOrdering(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for _, tr := range []models.Transcript{
		{ID: "c", TableID: "t2", SessionID: "s", Text: "third", CreatedAt: base.Add(20 * time.Second)},
		{ID: "a", TableID: "t1", SessionID: "s", Text: "first", CreatedAt: base},
		{ID: "b", TableID: "t1", SessionID: "s", Text: "second", CreatedAt: base.Add(10 * time.Second)},
		{ID: "x", TableID: "t9", SessionID: "other", Text: "elsewhere", CreatedAt: base},
	} {
		tr := tr
		if _, err := s.Transcripts.SaveTranscript(ctx, &tr); err != nil {
			t.Fatalf("SaveTranscript(%s) error = %v", tr.ID, err)
		}
	}

	got, err := s.Transcripts.ListBySession(ctx, "s")
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 transcripts, got %d", len(got))
	}
	for i, want := range []string{"a", "b", "c"} {
		if got[i].ID != want {
			t.Errorf("position %d = %s, want %s", i, got[i].ID, want)
		}
	}

	tables, err := s.Transcripts.ListTables(ctx, "s")
	if err != nil {
		t.Fatalf("ListTables() error = %v", err)
	}
	if len(tables) != 2 || tables[0] != "t1" || tables[1] != "t2" {
		t.Errorf("ListTables() = %v", tables)
	}

	empty, err := s.Transcripts.ListBySession(ctx, "missing")
	if err != nil {
		t.Fatalf("ListBySession(missing) error = %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", empty)
	}
}

func TestRecordingStatusLifecycle(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	rec := &models.Recording{ID: "rec-1", TableID: "t1", SessionID: "s"}
	if err := s.Transcripts.SaveRecording(ctx, rec); err != nil {
		t.Fatalf("SaveRecording() error = %v", err)
	}

	steps := []struct {
		to      models.RecordingStatus
		wantErr bool
	}{
		{models.RecordingProcessing, false},
		{models.RecordingProcessing, false},
		{models.RecordingUploaded, true},
		{models.RecordingCompleted, false},
		{models.RecordingFailed, true},
	}
	for _, step := range steps {
		err := s.Transcripts.UpdateRecordingStatus(ctx, "rec-1", step.to)
		if (err != nil) != step.wantErr {
			t.Fatalf("UpdateRecordingStatus(%s) error = %v, wantErr %v", step.to, err, step.wantErr)
		}
	}

	got, err := s.Transcripts.GetRecording(ctx, "rec-1")
	if err != nil {
		t.Fatalf("GetRecording() error = %v", err)
	}
	if got.Status != models.RecordingCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}

	if err := s.Transcripts.UpdateRecordingStatus(ctx, "nope", models.RecordingFailed); err == nil {
		t.Error("expected error for missing recording")
	}
}

func TestListFailsOnCorruptSpeakerSegments(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	tr := &models.Transcript{
		ID:        "tr-bad",
		TableID:   "table-1",
		SessionID: "sess-1",
		Text:      "words",
		SpeakerSegments: []models.SpeakerSegment{
			{Speaker: "A", Text: "words", Start: 0, End: 1},
		},
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	if _, err := s.Transcripts.SaveTranscript(ctx, tr); err != nil {
		t.Fatalf("SaveTranscript() error = %v", err)
	}
	if _, err := s.DB().ExecContext(ctx,
		`UPDATE transcripts SET speaker_segments = ? WHERE id = ?`, `[{"speaker":`, "tr-bad"); err != nil {
		t.Fatalf("ExecContext() error = %v", err)
	}

	tests := []struct {
		name string
		list func() ([]models.Transcript, error)
	}{
		{"by session", func() ([]models.Transcript, error) { return s.Transcripts.ListBySession(ctx, "sess-1") }},
		{"by table", func() ([]models.Transcript, error) { return s.Transcripts.ListByTable(ctx, "table-1") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.list()
			if err == nil {
				t.Fatalf("list error = nil, got %d transcripts", len(got))
			}
			var perr *PersistenceError
			if !errors.As(err, &perr) {
				t.Errorf("expected PersistenceError, got %v", err)
			}
			if !strings.Contains(err.Error(), "tr-bad") {
				t.Errorf("error %q does not name the transcript", err)
			}
		})
	}
}
