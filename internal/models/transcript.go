// ABOUTME: Recording and Transcript represent captured audio segments and their text
// ABOUTME: Transcripts are immutable once created and owned by exactly one Recording
package models

import (
	"errors"
	"strings"
	"time"
)

// RecordingStatus represents the lifecycle state of a Recording
type RecordingStatus string

const (
	RecordingUploaded   RecordingStatus = "uploaded"
	RecordingProcessing RecordingStatus = "processing"
	RecordingCompleted  RecordingStatus = "completed"
	RecordingFailed     RecordingStatus = "failed"
)

// IsValid reports whether the status is one of the known lifecycle states
func (s RecordingStatus) IsValid() bool {
	switch s {
	case RecordingUploaded, RecordingProcessing, RecordingCompleted, RecordingFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are possible
func (s RecordingStatus) IsTerminal() bool {
	return s == RecordingCompleted || s == RecordingFailed
}

func (s RecordingStatus) rank() int {
	switch s {
	case RecordingUploaded:
		return 0
	case RecordingProcessing:
		return 1
	case RecordingCompleted, RecordingFailed:
		return 2
	}
	return -1
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Status only moves forward; re-asserting the current status is allowed and is a no-op.
func (s RecordingStatus) CanTransitionTo(next RecordingStatus) bool {
	if !s.IsValid() || !next.IsValid() {
		return false
	}
	if s == next {
		return true
	}
	if s.IsTerminal() {
		return false
	}
	return next.rank() > s.rank()
}

// Recording is one captured audio segment at a discussion table
type Recording struct {
	ID        string          `json:"id"`
	TableID   string          `json:"table_id"`
	SessionID string          `json:"session_id"`
	Status    RecordingStatus `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// SpeakerSegment is one diarized span of speech inside a Transcript
type SpeakerSegment struct {
	Speaker    string  `json:"speaker"`
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

// Duration returns the segment length in seconds, never negative
func (s SpeakerSegment) Duration() float64 {
	if s.End <= s.Start {
		return 0
	}
	return s.End - s.Start
}

// Transcript is the text derived from one completed Recording
type Transcript struct {
	ID              string           `json:"id"`
	RecordingID     string           `json:"recordingId"`
	TableID         string           `json:"tableId"`
	SessionID       string           `json:"sessionId"`
	Text            string           `json:"text"`
	SpeakerSegments []SpeakerSegment `json:"speakerSegments,omitempty"`
	ConfidenceScore float64          `json:"confidenceScore"`
	Language        string           `json:"language,omitempty"`
	DurationSeconds float64          `json:"duration,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
}

// Validate checks the fields required to place a transcript in a table
func (t *Transcript) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("transcript ID cannot be empty")
	}
	if strings.TrimSpace(t.TableID) == "" {
		return errors.New("table ID cannot be empty")
	}
	if strings.TrimSpace(t.SessionID) == "" {
		return errors.New("session ID cannot be empty")
	}
	if t.CreatedAt.IsZero() {
		return errors.New("created at cannot be zero")
	}
	return nil
}

// Duration returns the recording length in seconds.
// Falls back to the latest segment end when no explicit duration was recorded.
func (t *Transcript) Duration() float64 {
	if t.DurationSeconds > 0 {
		return t.DurationSeconds
	}
	var end float64
	for _, seg := range t.SpeakerSegments {
		if seg.End > end {
			end = seg.End
		}
	}
	return end
}

// EndedAt returns the wall-clock time the recording finished
func (t *Transcript) EndedAt() time.Time {
	return t.CreatedAt.Add(time.Duration(t.Duration() * float64(time.Second)))
}

// SpeakerCount returns the number of distinct speakers in the segments
func (t *Transcript) SpeakerCount() int {
	seen := make(map[string]struct{})
	for _, seg := range t.SpeakerSegments {
		seen[seg.Speaker] = struct{}{}
	}
	return len(seen)
}
