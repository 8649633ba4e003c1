// ABOUTME: Synthetic corpus scenarios for the context budget ladder benchmark
// ABOUTME: Each scenario pairs a corpus size with a budget and the level it should land on
package ladder

import (
	"fmt"
	"strings"

	"github.com/harper/worldcafe/internal/core"
)

// Scenario is one corpus/budget combination
type Scenario struct {
	ID                  string
	Name                string
	Tables              int
	TranscriptsPerTable int
	CharsPerTable       int
	MaxContextTokens    int
	MaxResponseTokens   int
	ExpectLevel         core.Level
}

var vocabulary = []string{
	"parking", "bicycle", "library", "housing", "transit", "schools", "trees",
	"rent", "safety", "lighting", "market", "youth", "elders", "noise", "budget",
	"playground", "bus", "sidewalk", "garden", "council", "volunteers", "river",
}

// Corpus builds the deterministic synthetic corpus for s
func (s Scenario) Corpus() core.Corpus {
	sections := make([]core.Section, 0, s.Tables)
	for t := 0; t < s.Tables; t++ {
		sections = append(sections, core.Section{
			Label:   fmt.Sprintf("Table %d", t+1),
			Content: syntheticText(t, s.TranscriptsPerTable, s.CharsPerTable),
		})
	}
	return core.Corpus{
		Sections:        sections,
		TableCount:      s.Tables,
		TranscriptCount: s.Tables * s.TranscriptsPerTable,
	}
}

// syntheticText produces exactly chars bytes of ASCII word salad, with a
// newline roughly every chars/transcripts bytes
func syntheticText(table, transcripts, chars int) string {
	if transcripts < 1 {
		transcripts = 1
	}
	perTranscript := chars / transcripts

	var sb strings.Builder
	since := 0
	for i := 0; sb.Len() < chars; i++ {
		if i > 0 {
			if perTranscript > 0 && since >= perTranscript {
				sb.WriteByte('\n')
				since = 0
			} else {
				sb.WriteByte(' ')
			}
		}
		word := vocabulary[(i*7+table*3)%len(vocabulary)]
		sb.WriteString(word)
		since += len(word) + 1
	}
	return sb.String()[:chars]
}

// GetScenarios returns one scenario per ladder level
func GetScenarios() []Scenario {
	return []Scenario{
		{
			ID: "full", Name: "Small session fits untouched",
			Tables: 4, TranscriptsPerTable: 3, CharsPerTable: 1000,
			MaxContextTokens: 2000, ExpectLevel: core.LevelFull,
		},
		{
			ID: "truncated", Name: "Slightly over budget is cut proportionally",
			Tables: 4, TranscriptsPerTable: 3, CharsPerTable: 1000,
			MaxContextTokens: 1000, ExpectLevel: core.LevelTruncated,
		},
		{
			ID: "summarized", Name: "Large session keeps excerpts and keywords",
			Tables: 4, TranscriptsPerTable: 10, CharsPerTable: 100000,
			MaxContextTokens: 1500, ExpectLevel: core.LevelSummarized,
		},
		{
			ID: "minimal", Name: "Tight budget falls back to counts",
			Tables: 4, TranscriptsPerTable: 10, CharsPerTable: 100000,
			MaxContextTokens: 300, ExpectLevel: core.LevelMinimal,
		},
		{
			ID: "refused", Name: "Nothing fits and narrowing is suggested",
			Tables: 4, TranscriptsPerTable: 10, CharsPerTable: 100000,
			MaxContextTokens: 20, ExpectLevel: core.LevelRefused,
		},
	}
}
