// ABOUTME: ContextBudgetManager fits a corpus into a capability's context window
// ABOUTME: Walks the ladder Full, Truncated, Summarized, Minimal and refuses when nothing fits
package core

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TruncationMarker ends every section that was cut short
const TruncationMarker = "[... truncated ...]"

// Ladder defaults
const (
	DefaultMinRetainRatio      = 0.05
	DefaultSummaryExcerptChars = 300
	DefaultSummaryKeywords     = 8
	DefaultSummarySectionChars = 600
	DefaultSummaryTotalChars   = 6000
)

// EstimateTokens approximates tokens as one per four characters, rounded up.
// This is a heuristic; real tokenizers vary by model and language.
func EstimateTokens(s string) int {
	n := utf8.RuneCountInString(s)
	return (n + 3) / 4
}

// Level is a rung of the degradation ladder
type Level int

const (
	LevelFull Level = iota
	LevelTruncated
	LevelSummarized
	LevelMinimal
	LevelRefused
)

func (l Level) String() string {
	switch l {
	case LevelFull:
		return "full"
	case LevelTruncated:
		return "truncated"
	case LevelSummarized:
		return "summarized"
	case LevelMinimal:
		return "minimal"
	case LevelRefused:
		return "refused"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Section is one labelled block of corpus text, usually a table
type Section struct {
	Label   string
	Content string
}

// Corpus is the text to fit plus the counts the Minimal level reports
type Corpus struct {
	Sections        []Section
	TableCount      int
	TranscriptCount int
}

// Budget describes the capability limits and the prompt surrounding the corpus
type Budget struct {
	CapabilityID      string
	MaxContextTokens  int
	MaxResponseTokens int
	SystemPrompt      string
	// PromptFrame is the user prompt with the corpus removed
	PromptFrame string
}

// Reserved is the token overhead that is not corpus
func (b Budget) Reserved() int {
	return EstimateTokens(b.SystemPrompt) + EstimateTokens(b.PromptFrame) + b.MaxResponseTokens
}

// Available is the token space left for the corpus
func (b Budget) Available() int {
	return b.MaxContextTokens - b.Reserved()
}

// Refusal explains why nothing could be sent and how to narrow the request
type Refusal struct {
	Estimated    int      `json:"estimated"`
	Available    int      `json:"available"`
	CapabilityID string   `json:"capability_id"`
	Suggestions  []string `json:"suggestions"`
}

// Outcome is the tagged result of fitting a corpus
type Outcome struct {
	Level           Level
	Text            string
	EstimatedTokens int
	AvailableTokens int
	KeptRatio       float64
	Refusal         *Refusal
}

// Refused reports whether the corpus could not be fitted at all
func (o Outcome) Refused() bool {
	return o.Level == LevelRefused
}

// BudgetManager selects a ladder level. It is stateless and deterministic.
type BudgetManager struct {
	MinRetainRatio      float64
	SummaryExcerptChars int
	SummaryKeywords     int
	SummarySectionChars int
	SummaryTotalChars   int
}

// NewBudgetManager creates a manager with the default ladder parameters
func NewBudgetManager() *BudgetManager {
	return &BudgetManager{
		MinRetainRatio:      DefaultMinRetainRatio,
		SummaryExcerptChars: DefaultSummaryExcerptChars,
		SummaryKeywords:     DefaultSummaryKeywords,
		SummarySectionChars: DefaultSummarySectionChars,
		SummaryTotalChars:   DefaultSummaryTotalChars,
	}
}

// Fit returns the first ladder level whose re-estimated size fits the budget
func (bm *BudgetManager) Fit(corpus Corpus, budget Budget) Outcome {
	available := budget.Available()

	full := RenderSections(corpus.Sections)
	fullEstimate := EstimateTokens(full)
	if fullEstimate <= available {
		return Outcome{Level: LevelFull, Text: full, EstimatedTokens: fullEstimate, AvailableTokens: available, KeptRatio: 1}
	}

	if text, ratio, ok := bm.truncate(corpus.Sections, available); ok {
		return Outcome{Level: LevelTruncated, Text: text, EstimatedTokens: EstimateTokens(text), AvailableTokens: available, KeptRatio: ratio}
	}

	if text := bm.summarize(corpus.Sections); text != "" {
		if est := EstimateTokens(text); est <= available {
			return Outcome{Level: LevelSummarized, Text: text, EstimatedTokens: est, AvailableTokens: available}
		}
	}

	minimal := MinimalText(corpus)
	if est := EstimateTokens(minimal); est <= available {
		return Outcome{Level: LevelMinimal, Text: minimal, EstimatedTokens: est, AvailableTokens: available}
	}

	refusal := NewRefusal(fullEstimate, available, budget, corpus.TableCount)
	return Outcome{Level: LevelRefused, EstimatedTokens: fullEstimate, AvailableTokens: available, Refusal: &refusal}
}

// RenderSections joins sections as "=== label ===" blocks separated by blank lines
func RenderSections(sections []Section) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		parts = append(parts, sectionHeader(s.Label)+s.Content)
	}
	return strings.Join(parts, "\n\n")
}

func sectionHeader(label string) string {
	return "=== " + label + " ===\n"
}

// truncate distributes the character budget by water-filling: sections shorter
// than the equal share are kept whole and the rest are cut to the share.
func (bm *BudgetManager) truncate(sections []Section, available int) (string, float64, bool) {
	if len(sections) == 0 || available <= 0 {
		return "", 0, false
	}
	charBudget := available * 4

	var overhead, total int
	lengths := make([]int, len(sections))
	for i, s := range sections {
		overhead += utf8.RuneCountInString(sectionHeader(s.Label))
		lengths[i] = utf8.RuneCountInString(s.Content)
		total += lengths[i]
	}
	overhead += 2 * (len(sections) - 1)
	if total == 0 {
		return "", 0, false
	}

	remaining := charBudget - overhead
	if remaining <= 0 {
		return "", 0, false
	}

	order := make([]int, len(sections))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return lengths[order[a]] < lengths[order[b]]
	})

	// Each truncated section also pays for "\n" + marker.
	markerCost := utf8.RuneCountInString(TruncationMarker) + 1
	caps := make([]int, len(sections))
	for i := range caps {
		caps[i] = -1
	}
	for pos, idx := range order {
		left := len(order) - pos
		share := remaining / left
		if lengths[idx] <= share {
			caps[idx] = lengths[idx]
			remaining -= lengths[idx]
			continue
		}
		// Every section from here on is at least as long; cut them all to the
		// equal share, handing leftover characters to earlier labels.
		tail := append([]int(nil), order[pos:]...)
		sort.Ints(tail)
		extra := remaining % left
		for _, t := range tail {
			c := share - markerCost
			if extra > 0 {
				c++
				extra--
			}
			if c <= 0 {
				return "", 0, false
			}
			caps[t] = c
		}
		break
	}

	var kept int
	parts := make([]string, len(sections))
	for i, s := range sections {
		if caps[i] >= lengths[i] {
			parts[i] = sectionHeader(s.Label) + s.Content
			kept += lengths[i]
			continue
		}
		head := cutRunes(s.Content, caps[i])
		kept += utf8.RuneCountInString(head)
		parts[i] = sectionHeader(s.Label) + head + "\n" + TruncationMarker
	}

	ratio := float64(kept) / float64(total)
	if ratio < bm.MinRetainRatio {
		return "", ratio, false
	}
	text := strings.Join(parts, "\n\n")
	if EstimateTokens(text) > available {
		return "", ratio, false
	}
	return text, ratio, true
}

// summarize replaces each section with a leading excerpt and its top keywords
func (bm *BudgetManager) summarize(sections []Section) string {
	if len(sections) == 0 {
		return ""
	}
	digests := make([]string, 0, len(sections))
	for _, s := range sections {
		digests = append(digests, SectionDigest(s, bm.SummaryExcerptChars, bm.SummaryKeywords, bm.SummarySectionChars))
	}
	return JoinDigests(digests, bm.SummaryTotalChars)
}

// SectionDigest renders one section as an excerpt plus keywords, capped at maxChars
func SectionDigest(s Section, excerptChars, keywords, maxChars int) string {
	var sb strings.Builder
	sb.WriteString(sectionHeader(s.Label))
	excerpt := strings.Join(strings.Fields(s.Content), " ")
	if utf8.RuneCountInString(excerpt) > excerptChars {
		excerpt = cutRunes(excerpt, excerptChars) + "..."
	}
	sb.WriteString("Excerpt: ")
	sb.WriteString(excerpt)
	if kw := TopKeywords(s.Content, keywords); len(kw) > 0 {
		sb.WriteString("\nKeywords: ")
		sb.WriteString(strings.Join(kw, ", "))
	}
	out := sb.String()
	if utf8.RuneCountInString(out) > maxChars {
		out = cutRunes(out, maxChars)
	}
	return out
}

// JoinDigests concatenates digests up to maxChars, dropping trailing ones with a note
func JoinDigests(digests []string, maxChars int) string {
	var (
		parts []string
		used  int
	)
	for i, d := range digests {
		cost := utf8.RuneCountInString(d)
		if len(parts) > 0 {
			cost += 2
		}
		reserve := 0
		if i < len(digests)-1 {
			reserve = utf8.RuneCountInString(omissionNote(len(digests))) + 2
		}
		if used+cost+reserve > maxChars {
			dropped := len(digests) - i
			if len(parts) == 0 {
				return ""
			}
			parts = append(parts, omissionNote(dropped))
			break
		}
		parts = append(parts, d)
		used += cost
	}
	return strings.Join(parts, "\n\n")
}

func omissionNote(n int) string {
	return fmt.Sprintf("[... %d more sections omitted ...]", n)
}

// MinimalText is the counts-only representation of a corpus
func MinimalText(c Corpus) string {
	return fmt.Sprintf("The discussion is too large to include. It spans %d table(s) and %d transcript(s). "+
		"Ask the user to narrow the query to a single table or a smaller question.",
		c.TableCount, c.TranscriptCount)
}

// NewRefusal builds a refusal with narrowing suggestions that fit the situation
func NewRefusal(estimated, available int, budget Budget, tableCount int) Refusal {
	if available < 0 {
		available = 0
	}
	var suggestions []string
	if tableCount > 1 {
		suggestions = append(suggestions, fmt.Sprintf("Analyze one table at a time instead of all %d tables", tableCount))
	}
	suggestions = append(suggestions, "Request fewer facets or a single facet per call")
	if budget.MaxResponseTokens > 0 {
		suggestions = append(suggestions, fmt.Sprintf("Lower the response reserve (currently %d tokens)", budget.MaxResponseTokens))
	}
	suggestions = append(suggestions,
		fmt.Sprintf("Use a capability with a context window larger than %d tokens", budget.MaxContextTokens),
		"Shorten the question or system prompt")
	return Refusal{
		Estimated:    estimated,
		Available:    available,
		CapabilityID: budget.CapabilityID,
		Suggestions:  suggestions,
	}
}

// cutRunes returns at most n runes of s, preferring to end at a word boundary
// when one exists in the latter half of the cut.
func cutRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	head := runes[:n]
	for i := len(head) - 1; i >= n/2; i-- {
		if unicode.IsSpace(head[i]) {
			return strings.TrimRightFunc(string(head[:i]), unicode.IsSpace)
		}
	}
	return string(head)
}
