// ABOUTME: Capability-independent participation statistics and table comparison
// ABOUTME: Computed locally from transcripts so they are never degraded
package core

import (
	"sort"
	"unicode/utf8"

	"github.com/harper/worldcafe/internal/models"
)

// TableSpeakerStats is one speaker's participation at one table
type TableSpeakerStats struct {
	TableID string `json:"table_id"`
	SpeakerStats
}

// ParticipationStats summarizes who spoke and how much
type ParticipationStats struct {
	TotalTables          int                 `json:"total_tables"`
	TotalTranscripts     int                 `json:"total_transcripts"`
	MeanTranscriptLength float64             `json:"mean_transcript_length"`
	MultiSpeakerTables   int                 `json:"multi_speaker_tables"`
	Speakers             []TableSpeakerStats `json:"speakers"`
}

// TableComparison ranks one table against the others by how much was said
type TableComparison struct {
	Rank            int    `json:"rank"`
	TableID         string `json:"table_id"`
	TotalLength     int    `json:"total_length"`
	TranscriptCount int    `json:"transcript_count"`
	SpeakerCount    int    `json:"speaker_count"`
}

// StatsSummary is the payload stored under the summary facet
type StatsSummary struct {
	Participation ParticipationStats `json:"participation"`
	Comparison    []TableComparison  `json:"comparison"`
}

// ComputeStats derives participation figures and the length ranking.
// Tables rank by aggregate transcript length descending, ties by table id.
func ComputeStats(agg *TranscriptAggregator, transcripts []models.Transcript) StatsSummary {
	ids, groups := GroupByTable(transcripts)

	stats := ParticipationStats{
		TotalTables:      len(ids),
		TotalTranscripts: len(transcripts),
		Speakers:         []TableSpeakerStats{},
	}
	comparison := make([]TableComparison, 0, len(ids))

	var totalChars int
	for _, id := range ids {
		group := groups[id]
		var length int
		for _, t := range group {
			length += utf8.RuneCountInString(t.Text)
		}
		totalChars += length

		tableAgg := agg.Aggregate(group)
		if len(tableAgg.Speakers) >= 2 {
			stats.MultiSpeakerTables++
		}
		for _, sp := range tableAgg.Speakers {
			stats.Speakers = append(stats.Speakers, TableSpeakerStats{TableID: id, SpeakerStats: sp})
		}

		comparison = append(comparison, TableComparison{
			TableID:         id,
			TotalLength:     length,
			TranscriptCount: len(group),
			SpeakerCount:    len(tableAgg.Speakers),
		})
	}
	if len(transcripts) > 0 {
		stats.MeanTranscriptLength = float64(totalChars) / float64(len(transcripts))
	}

	sort.SliceStable(comparison, func(i, j int) bool {
		if comparison[i].TotalLength != comparison[j].TotalLength {
			return comparison[i].TotalLength > comparison[j].TotalLength
		}
		return comparison[i].TableID < comparison[j].TableID
	})
	for i := range comparison {
		comparison[i].Rank = i + 1
	}

	return StatsSummary{Participation: stats, Comparison: comparison}
}
