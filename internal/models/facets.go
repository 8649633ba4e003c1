// ABOUTME: Facet result shapes decoded from capability output
// ABOUTME: Normalize default-fills missing fields and clamps scores so payloads are always well-formed
package models

import (
	"strings"

	"golang.org/x/text/cases"
)

// ConflictItem is one point of disagreement found in the discussion
type ConflictItem struct {
	Location    string  `json:"location"`
	Quote       string  `json:"quote"`
	Severity    float64 `json:"severity"`
	Description string  `json:"description"`
}

// AgreementItem is one point of consensus found in the discussion
type AgreementItem struct {
	Location    string  `json:"location"`
	Quote       string  `json:"quote"`
	Strength    float64 `json:"strength"`
	Description string  `json:"description"`
}

// Theme is a recurring topic with the places it came up
type Theme struct {
	Label     string   `json:"label"`
	Frequency int      `json:"frequency"`
	Locations []string `json:"locations"`
	Sentiment float64  `json:"sentiment"`
}

// SentimentScore is the sentiment at one location
type SentimentScore struct {
	Location string  `json:"location"`
	Score    float64 `json:"score"`
}

// SentimentResult is the overall tone plus a per-location breakdown
type SentimentResult struct {
	Overall        float64          `json:"overall"`
	Breakdown      []SentimentScore `json:"breakdown"`
	Interpretation string           `json:"interpretation"`
}

// ConflictsResult wraps the conflicts facet payload
type ConflictsResult struct {
	Conflicts []ConflictItem `json:"conflicts"`
}

// AgreementsResult wraps the agreements facet payload
type AgreementsResult struct {
	Agreements []AgreementItem `json:"agreements"`
}

// ThemesResult wraps the themes facet payload
type ThemesResult struct {
	Themes []Theme `json:"themes"`
}

const unknownLocation = "unknown"

func clamp(v, lo, hi float64) float64 {
	if v != v { // NaN
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampSigned(v float64) float64 {
	if v != v {
		return 0
	}
	return clamp(v, -1, 1)
}

func location(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return unknownLocation
	}
	return s
}

// Normalize drops empty items, fills locations and clamps severity to [0,1]
func (r *ConflictsResult) Normalize() {
	out := make([]ConflictItem, 0, len(r.Conflicts))
	for _, c := range r.Conflicts {
		c.Quote = strings.TrimSpace(c.Quote)
		c.Description = strings.TrimSpace(c.Description)
		if c.Quote == "" && c.Description == "" {
			continue
		}
		c.Location = location(c.Location)
		c.Severity = clamp(c.Severity, 0, 1)
		out = append(out, c)
	}
	r.Conflicts = out
}

// Normalize drops empty items, fills locations and clamps strength to [0,1]
func (r *AgreementsResult) Normalize() {
	out := make([]AgreementItem, 0, len(r.Agreements))
	for _, a := range r.Agreements {
		a.Quote = strings.TrimSpace(a.Quote)
		a.Description = strings.TrimSpace(a.Description)
		if a.Quote == "" && a.Description == "" {
			continue
		}
		a.Location = location(a.Location)
		a.Strength = clamp(a.Strength, 0, 1)
		out = append(out, a)
	}
	r.Agreements = out
}

// Normalize merges themes whose labels differ only by case, sums their
// frequencies and averages their sentiment. First-seen order is kept.
func (r *ThemesResult) Normalize() {
	fold := cases.Fold()
	index := make(map[string]int)
	counts := make([]int, 0, len(r.Themes))
	out := make([]Theme, 0, len(r.Themes))

	for _, th := range r.Themes {
		label := strings.Join(strings.Fields(th.Label), " ")
		if label == "" {
			continue
		}
		freq := th.Frequency
		if freq < 0 {
			freq = 0
		}
		key := fold.String(label)
		if i, ok := index[key]; ok {
			merged := &out[i]
			merged.Frequency += freq
			merged.Locations = appendUnique(merged.Locations, th.Locations...)
			counts[i]++
			merged.Sentiment += (clampSigned(th.Sentiment) - merged.Sentiment) / float64(counts[i])
			continue
		}
		index[key] = len(out)
		counts = append(counts, 1)
		out = append(out, Theme{
			Label:     label,
			Frequency: freq,
			Locations: appendUnique(nil, th.Locations...),
			Sentiment: clampSigned(th.Sentiment),
		})
	}
	r.Themes = out
}

// Normalize clamps every score to [-1,1] and fills missing locations
func (r *SentimentResult) Normalize() {
	r.Overall = clampSigned(r.Overall)
	breakdown := make([]SentimentScore, 0, len(r.Breakdown))
	for _, b := range r.Breakdown {
		breakdown = append(breakdown, SentimentScore{
			Location: location(b.Location),
			Score:    clampSigned(b.Score),
		})
	}
	r.Breakdown = breakdown
	r.Interpretation = strings.TrimSpace(r.Interpretation)
	if r.Interpretation == "" {
		r.Interpretation = InterpretSentiment(r.Overall)
	}
}

// InterpretSentiment gives a one-word reading of a score in [-1,1]
func InterpretSentiment(score float64) string {
	switch {
	case score >= 0.25:
		return "positive"
	case score <= -0.25:
		return "negative"
	default:
		return "neutral"
	}
}

func appendUnique(dst []string, values ...string) []string {
	if dst == nil {
		dst = []string{}
	}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		dup := false
		for _, existing := range dst {
			if existing == v {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, v)
		}
	}
	return dst
}

// EmptyFacetPayload returns the neutral shape used when a facet cannot be produced
func EmptyFacetPayload(facet FacetType) interface{} {
	switch facet {
	case FacetConflicts:
		return &ConflictsResult{Conflicts: []ConflictItem{}}
	case FacetAgreements:
		return &AgreementsResult{Agreements: []AgreementItem{}}
	case FacetThemes:
		return &ThemesResult{Themes: []Theme{}}
	case FacetSentiment:
		return &SentimentResult{Breakdown: []SentimentScore{}, Interpretation: "neutral"}
	}
	return map[string]interface{}{}
}
