// ABOUTME: Analysis record storage keyed by (session, table, facet, scope)
// ABOUTME: Upsert is a single statement; updated_at strictly increases on every overwrite
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harper/worldcafe/internal/models"
)

// AnalysisStore handles analysis record persistence
type AnalysisStore struct {
	db  *DB
	now func() time.Time
}

// NewAnalysisStore creates a new AnalysisStore
func NewAnalysisStore(db *DB) *AnalysisStore {
	return &AnalysisStore{db: db, now: time.Now}
}

// Upsert inserts the record or overwrites the payload stored under its key.
// On return rec carries the stored id, created_at and updated_at.
func (s *AnalysisStore) Upsert(ctx context.Context, rec *models.AnalysisRecord) error {
	if err := rec.Key.Validate(); err != nil {
		return fmt.Errorf("invalid analysis key: %w", err)
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if len(rec.Payload) == 0 {
		rec.Payload = json.RawMessage("{}")
	}
	metadataJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	now := s.now().UTC().UnixNano()
	var createdAt, updatedAt int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO analysis_records (id, session_id, table_id, facet_type, scope, payload, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, table_id, facet_type, scope) DO UPDATE SET
			payload = excluded.payload,
			metadata = excluded.metadata,
			updated_at = CASE
				WHEN excluded.updated_at > analysis_records.updated_at THEN excluded.updated_at
				ELSE analysis_records.updated_at + 1
			END
		RETURNING id, created_at, updated_at
	`, rec.ID, rec.Key.SessionID, rec.Key.TableID, string(rec.Key.Facet), string(rec.Key.Scope),
		string(rec.Payload), string(metadataJSON), now, now).Scan(&rec.ID, &createdAt, &updatedAt)
	if err != nil {
		return persistErr("upsert analysis "+rec.Key.String(), err)
	}

	rec.CreatedAt = fromNanos(createdAt)
	rec.UpdatedAt = fromNanos(updatedAt)
	return nil
}

// Get returns the record stored under key, or nil when there is none
func (s *AnalysisStore) Get(ctx context.Context, key models.AnalysisKey) (*models.AnalysisRecord, error) {
	records, err := s.Find(ctx, models.AnalysisQuery{
		SessionID: key.SessionID,
		TableID:   key.TableID,
		Facet:     key.Facet,
		Scope:     key.Scope,
	})
	if err != nil {
		return nil, err
	}
	for i := range records {
		// Find treats an empty table id as "any table"; Get wants exactly "no table".
		if records[i].Key == key {
			return &records[i], nil
		}
	}
	return nil, nil
}

// FindBySession returns every record of a session
func (s *AnalysisStore) FindBySession(ctx context.Context, sessionID string) ([]models.AnalysisRecord, error) {
	return s.Find(ctx, models.AnalysisQuery{SessionID: sessionID})
}

// FindByFacet returns every record of one facet type within a session
func (s *AnalysisStore) FindByFacet(ctx context.Context, sessionID string, facet models.FacetType) ([]models.AnalysisRecord, error) {
	return s.Find(ctx, models.AnalysisQuery{SessionID: sessionID, Facet: facet})
}

// FindByTable returns every record scoped to a table
func (s *AnalysisStore) FindByTable(ctx context.Context, tableID string) ([]models.AnalysisRecord, error) {
	return s.Find(ctx, models.AnalysisQuery{TableID: tableID})
}

// FindByScope returns every record of a session at one scope
func (s *AnalysisStore) FindByScope(ctx context.Context, sessionID string, scope models.Scope) ([]models.AnalysisRecord, error) {
	return s.Find(ctx, models.AnalysisQuery{SessionID: sessionID, Scope: scope})
}

// Find returns records matching every non-empty field of q, oldest key first.
// An empty result is an empty slice, never an error.
func (s *AnalysisStore) Find(ctx context.Context, q models.AnalysisQuery) ([]models.AnalysisRecord, error) {
	var (
		conds []string
		args  []interface{}
	)
	if q.SessionID != "" {
		conds = append(conds, "session_id = ?")
		args = append(args, q.SessionID)
	}
	if q.TableID != "" {
		conds = append(conds, "table_id = ?")
		args = append(args, q.TableID)
	}
	if q.Facet != "" {
		conds = append(conds, "facet_type = ?")
		args = append(args, string(q.Facet))
	}
	if q.Scope != "" {
		conds = append(conds, "scope = ?")
		args = append(args, string(q.Scope))
	}

	query := `
		SELECT id, session_id, table_id, facet_type, scope, payload, metadata, created_at, updated_at
		FROM analysis_records`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY session_id, table_id, facet_type, scope"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistErr("find analyses", err)
	}
	defer func() { _ = rows.Close() }()

	records := []models.AnalysisRecord{}
	for rows.Next() {
		rec, err := scanAnalysis(rows)
		if err != nil {
			return nil, persistErr("scan analysis", err)
		}
		records = append(records, *rec)
	}
	return records, persistErr("find analyses", rows.Err())
}

// Delete removes the record stored under key. Deleting a missing key is not an error.
func (s *AnalysisStore) Delete(ctx context.Context, key models.AnalysisKey) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM analysis_records
		WHERE session_id = ? AND table_id = ? AND facet_type = ? AND scope = ?
	`, key.SessionID, key.TableID, string(key.Facet), string(key.Scope))
	return persistErr("delete analysis "+key.String(), err)
}

func scanAnalysis(rows *sql.Rows) (*models.AnalysisRecord, error) {
	var (
		rec                  models.AnalysisRecord
		facet, scope         string
		payload, metadata    string
		createdAt, updatedAt int64
	)
	if err := rows.Scan(&rec.ID, &rec.Key.SessionID, &rec.Key.TableID, &facet, &scope,
		&payload, &metadata, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	rec.Key.Facet = models.FacetType(facet)
	rec.Key.Scope = models.Scope(scope)
	rec.Payload = json.RawMessage(payload)
	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &rec.Metadata); err != nil {
			return nil, errors.New("corrupt metadata for " + rec.Key.String())
		}
	}
	rec.CreatedAt = fromNanos(createdAt)
	rec.UpdatedAt = fromNanos(updatedAt)
	return &rec, nil
}
