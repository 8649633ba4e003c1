// ABOUTME: Unified Storage layer that wraps the transcript and analysis stores
// ABOUTME: One SQLite file backs both the input side and the analysis results
package sqlite

import (
	"fmt"
)

// Storage manages all persistent data for the analysis pipeline
type Storage struct {
	db          *DB
	Transcripts *TranscriptStore
	Analyses    *AnalysisStore
}

// NewStorage initializes storage at the default XDG location
func NewStorage() (*Storage, error) {
	return NewStorageWithPath(DefaultDBPath())
}

// NewStorageWithPath initializes storage with a custom database path
func NewStorageWithPath(dbPath string) (*Storage, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return newStorage(db), nil
}

// NewStorageInMemory initializes storage backed by an in-memory database
func NewStorageInMemory() (*Storage, error) {
	db, err := OpenInMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return newStorage(db), nil
}

func newStorage(db *DB) *Storage {
	return &Storage{
		db:          db,
		Transcripts: NewTranscriptStore(db),
		Analyses:    NewAnalysisStore(db),
	}
}

// DB returns the underlying database
func (s *Storage) DB() *DB {
	return s.db
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}
