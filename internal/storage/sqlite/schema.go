// ABOUTME: SQLite database schema for transcripts and analysis records
// ABOUTME: Creates all tables and indexes; the analysis key uniqueness lives here
package sqlite

// SchemaVersion is written to PRAGMA user_version on open
const SchemaVersion = 1

// Schema contains all SQL statements for database initialization
const Schema = `
CREATE TABLE IF NOT EXISTS recordings (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    table_id TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'uploaded',
    created_at INTEGER NOT NULL
);

-- Transcripts are immutable; re-ingesting the same id is ignored
CREATE TABLE IF NOT EXISTS transcripts (
    id TEXT PRIMARY KEY,
    recording_id TEXT NOT NULL,
    session_id TEXT NOT NULL,
    table_id TEXT NOT NULL,
    text TEXT NOT NULL DEFAULT '',
    speaker_segments TEXT,
    confidence_score REAL NOT NULL DEFAULT 0,
    language TEXT,
    duration_seconds REAL NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

-- table_id is '' rather than NULL so the unique index treats "no table" as one value
CREATE TABLE IF NOT EXISTS analysis_records (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    table_id TEXT NOT NULL DEFAULT '',
    facet_type TEXT NOT NULL,
    scope TEXT NOT NULL,
    payload TEXT NOT NULL,
    metadata TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_recordings_session ON recordings(session_id);
CREATE INDEX IF NOT EXISTS idx_transcripts_session ON transcripts(session_id, created_at);
CREATE INDEX IF NOT EXISTS idx_transcripts_table ON transcripts(table_id, created_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_analysis_key ON analysis_records(session_id, table_id, facet_type, scope);
CREATE INDEX IF NOT EXISTS idx_analysis_facet ON analysis_records(facet_type);
`
