// ABOUTME: TranscriptAggregator merges one table's recordings into a single narrative
// ABOUTME: Ordering comes from created_at, never from input order; provenance lives beside the text
package core

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harper/worldcafe/internal/models"
)

// RecordingBreak separates adjacent recordings in aggregated text
const RecordingBreak = "--- [Recording Break] ---"

// LineTag records where one line of aggregated text came from
type LineTag struct {
	Line           int       `json:"line"`
	RecordingIndex int       `json:"recording_index"`
	RecordingID    string    `json:"recording_id"`
	Timestamp      time.Time `json:"timestamp"`
}

// SpeakerStats accumulates participation for one speaker
type SpeakerStats struct {
	Speaker         string  `json:"speaker"`
	Words           int     `json:"words"`
	DurationSeconds float64 `json:"duration_seconds"`
	Segments        int     `json:"segments"`
}

// AggregateMetadata describes the recordings behind an Aggregate
type AggregateMetadata struct {
	RecordingCount   int       `json:"recording_count"`
	TotalDuration    float64   `json:"total_duration_seconds"`
	ConfidenceScores []float64 `json:"confidence_scores"`
	StartedAt        time.Time `json:"started_at"`
	EndedAt          time.Time `json:"ended_at"`
}

// Aggregate is the merged narrative of one table
type Aggregate struct {
	TableID  string            `json:"table_id"`
	Text     string            `json:"text"`
	Lines    []LineTag         `json:"lines"`
	Metadata AggregateMetadata `json:"metadata"`
	Speakers []SpeakerStats    `json:"speakers"`
}

// EmptyAggregate is returned for a table with no transcripts
var EmptyAggregate = Aggregate{}

// Empty reports whether the aggregate holds no recordings
func (a Aggregate) Empty() bool {
	return a.Metadata.RecordingCount == 0
}

// TranscriptAggregator merges transcripts. It holds no state.
type TranscriptAggregator struct{}

// NewTranscriptAggregator creates a new aggregator
func NewTranscriptAggregator() *TranscriptAggregator {
	return &TranscriptAggregator{}
}

// Aggregate merges one table's transcripts in chronological order.
// The input slice is not modified. Empty input yields EmptyAggregate.
func (ta *TranscriptAggregator) Aggregate(transcripts []models.Transcript) Aggregate {
	if len(transcripts) == 0 {
		return EmptyAggregate
	}

	ordered := SortChronological(transcripts)

	agg := Aggregate{
		TableID: ordered[0].TableID,
		Lines:   []LineTag{},
		Metadata: AggregateMetadata{
			RecordingCount:   len(ordered),
			ConfidenceScores: make([]float64, 0, len(ordered)),
		},
	}

	var (
		out      []string
		speakers = make(map[string]*SpeakerStats)
		order    []string
	)

	for i, t := range ordered {
		if i > 0 {
			out = append(out, RecordingBreak)
		}

		recordingID := t.RecordingID
		if recordingID == "" {
			recordingID = t.ID
		}

		if len(t.SpeakerSegments) > 0 {
			for _, seg := range t.SpeakerSegments {
				out = append(out, fmt.Sprintf("Speaker %s: %s", seg.Speaker, strings.TrimSpace(seg.Text)))
				agg.Lines = append(agg.Lines, LineTag{
					Line:           len(out) - 1,
					RecordingIndex: i,
					RecordingID:    recordingID,
					Timestamp:      t.CreatedAt.Add(time.Duration(seg.Start * float64(time.Second))),
				})

				st, ok := speakers[seg.Speaker]
				if !ok {
					st = &SpeakerStats{Speaker: seg.Speaker}
					speakers[seg.Speaker] = st
					order = append(order, seg.Speaker)
				}
				st.Words += len(strings.Fields(seg.Text))
				st.DurationSeconds += seg.Duration()
				st.Segments++
			}
		} else {
			for _, line := range strings.Split(t.Text, "\n") {
				out = append(out, line)
				agg.Lines = append(agg.Lines, LineTag{
					Line:           len(out) - 1,
					RecordingIndex: i,
					RecordingID:    recordingID,
					Timestamp:      t.CreatedAt,
				})
			}
		}

		agg.Metadata.TotalDuration += t.Duration()
		agg.Metadata.ConfidenceScores = append(agg.Metadata.ConfidenceScores, t.ConfidenceScore)
		if i == 0 || t.CreatedAt.Before(agg.Metadata.StartedAt) {
			agg.Metadata.StartedAt = t.CreatedAt
		}
		if end := t.EndedAt(); end.After(agg.Metadata.EndedAt) {
			agg.Metadata.EndedAt = end
		}
	}

	agg.Text = strings.Join(out, "\n")
	agg.Speakers = make([]SpeakerStats, 0, len(order))
	for _, name := range order {
		agg.Speakers = append(agg.Speakers, *speakers[name])
	}
	return agg
}

// SortChronological returns a copy ordered by created_at, ties broken by id
func SortChronological(transcripts []models.Transcript) []models.Transcript {
	ordered := make([]models.Transcript, len(transcripts))
	copy(ordered, transcripts)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}

// GroupByTable splits transcripts by table id, returning ids in sorted order
func GroupByTable(transcripts []models.Transcript) ([]string, map[string][]models.Transcript) {
	groups := make(map[string][]models.Transcript)
	for _, t := range transcripts {
		groups[t.TableID] = append(groups[t.TableID], t)
	}
	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, groups
}
