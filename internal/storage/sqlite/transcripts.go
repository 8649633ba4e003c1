// ABOUTME: Recording and transcript storage operations for SQLite
// ABOUTME: Transcripts are insert-once; recording status only moves forward
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/harper/worldcafe/internal/models"
)

// TranscriptStore handles recording and transcript persistence
type TranscriptStore struct {
	db *DB
}

// NewTranscriptStore creates a new TranscriptStore
func NewTranscriptStore(db *DB) *TranscriptStore {
	return &TranscriptStore{db: db}
}

// SaveRecording inserts a recording; an existing id is left untouched
func (s *TranscriptStore) SaveRecording(ctx context.Context, rec *models.Recording) error {
	if rec.Status == "" {
		rec.Status = models.RecordingUploaded
	}
	if !rec.Status.IsValid() {
		return fmt.Errorf("invalid recording status %q", rec.Status)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recordings (id, session_id, table_id, status, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, rec.ID, rec.SessionID, rec.TableID, string(rec.Status), rec.CreatedAt.UnixNano())
	return persistErr("save recording", err)
}

// GetRecording returns the recording or nil when it does not exist
func (s *TranscriptStore) GetRecording(ctx context.Context, id string) (*models.Recording, error) {
	var (
		rec       models.Recording
		status    string
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, table_id, status, created_at FROM recordings WHERE id = ?
	`, id).Scan(&rec.ID, &rec.SessionID, &rec.TableID, &status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("get recording", err)
	}
	rec.Status = models.RecordingStatus(status)
	rec.CreatedAt = fromNanos(createdAt)
	return &rec, nil
}

// UpdateRecordingStatus moves a recording forward in its lifecycle.
// Regressions are rejected; re-asserting the current status is a no-op.
func (s *TranscriptStore) UpdateRecordingStatus(ctx context.Context, id string, next models.RecordingStatus) error {
	rec, err := s.GetRecording(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("recording %s not found", id)
	}
	if !rec.Status.CanTransitionTo(next) {
		return fmt.Errorf("recording %s: cannot move from %s to %s", id, rec.Status, next)
	}
	if rec.Status == next {
		return nil
	}
	// Guard on the observed status so a concurrent transition is not overwritten.
	res, err := s.db.ExecContext(ctx, `
		UPDATE recordings SET status = ? WHERE id = ? AND status = ?
	`, string(next), id, string(rec.Status))
	if err != nil {
		return persistErr("update recording status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("recording %s changed status concurrently", id)
	}
	return nil
}

// SaveTranscript stores a transcript and marks its recording completed.
// Returns false when a transcript with the same id already exists.
func (s *TranscriptStore) SaveTranscript(ctx context.Context, t *models.Transcript) (bool, error) {
	if err := t.Validate(); err != nil {
		return false, err
	}
	if t.RecordingID == "" {
		t.RecordingID = t.ID
	}

	segmentsJSON, err := json.Marshal(t.SpeakerSegments)
	if err != nil {
		return false, fmt.Errorf("failed to encode speaker segments: %w", err)
	}

	tx, err := s.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return false, persistErr("begin transcript tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO recordings (id, session_id, table_id, status, created_at)
		VALUES (?, ?, ?, 'completed', ?)
		ON CONFLICT(id) DO UPDATE SET status = 'completed'
		WHERE recordings.status IN ('uploaded', 'processing')
	`, t.RecordingID, t.SessionID, t.TableID, t.CreatedAt.UnixNano()); err != nil {
		return false, persistErr("save transcript recording", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO transcripts (id, recording_id, session_id, table_id, text, speaker_segments,
			confidence_score, language, duration_seconds, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, t.ID, t.RecordingID, t.SessionID, t.TableID, t.Text, string(segmentsJSON),
		t.ConfidenceScore, nullString(t.Language), t.Duration(), t.CreatedAt.UnixNano())
	if err != nil {
		return false, persistErr("save transcript", err)
	}
	n, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return false, persistErr("commit transcript", err)
	}
	return n > 0, nil
}

// ListBySession returns all transcripts of a session ordered by creation time
func (s *TranscriptStore) ListBySession(ctx context.Context, sessionID string) ([]models.Transcript, error) {
	return s.list(ctx, "session_id = ?", sessionID)
}

// ListByTable returns all transcripts of a table ordered by creation time
func (s *TranscriptStore) ListByTable(ctx context.Context, tableID string) ([]models.Transcript, error) {
	return s.list(ctx, "table_id = ?", tableID)
}

// ListTables returns the distinct table ids of a session in id order
func (s *TranscriptStore) ListTables(ctx context.Context, sessionID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT table_id FROM transcripts WHERE session_id = ? ORDER BY table_id
	`, sessionID)
	if err != nil {
		return nil, persistErr("list tables", err)
	}
	defer func() { _ = rows.Close() }()

	tables := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, persistErr("scan table", err)
		}
		tables = append(tables, id)
	}
	return tables, persistErr("list tables", rows.Err())
}

func (s *TranscriptStore) list(ctx context.Context, where string, arg string) ([]models.Transcript, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recording_id, session_id, table_id, text, speaker_segments,
			confidence_score, language, duration_seconds, created_at
		FROM transcripts
		WHERE `+where+`
		ORDER BY created_at ASC, id ASC
	`, arg)
	if err != nil {
		return nil, persistErr("list transcripts", err)
	}
	defer func() { _ = rows.Close() }()

	transcripts := []models.Transcript{}
	for rows.Next() {
		t, err := scanTranscript(rows)
		if err != nil {
			return nil, persistErr("scan transcript", err)
		}
		transcripts = append(transcripts, *t)
	}
	return transcripts, persistErr("list transcripts", rows.Err())
}

func scanTranscript(rows *sql.Rows) (*models.Transcript, error) {
	var (
		t            models.Transcript
		segmentsJSON sql.NullString
		language     sql.NullString
		createdAt    int64
	)
	if err := rows.Scan(&t.ID, &t.RecordingID, &t.SessionID, &t.TableID, &t.Text, &segmentsJSON,
		&t.ConfidenceScore, &language, &t.DurationSeconds, &createdAt); err != nil {
		return nil, err
	}
	if segmentsJSON.Valid && segmentsJSON.String != "" && segmentsJSON.String != "null" {
		if err := json.Unmarshal([]byte(segmentsJSON.String), &t.SpeakerSegments); err != nil {
			return nil, fmt.Errorf("transcript %s: corrupt speaker segments: %w", t.ID, err)
		}
	}
	t.Language = language.String
	t.CreatedAt = fromNanos(createdAt)
	return &t, nil
}

// nullString converts an empty string to sql.NullString
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
