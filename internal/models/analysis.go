// ABOUTME: AnalysisRecord is a stored facet result keyed by session, table, facet and scope
// ABOUTME: At most one record exists per key; regeneration overwrites the whole payload
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SchemaVersion is stamped into every generated payload
const SchemaVersion = 1

// FacetType names the kind of analysis stored in a record
type FacetType string

const (
	FacetSummary     FacetType = "summary"
	FacetThemes      FacetType = "themes"
	FacetSentiment   FacetType = "sentiment"
	FacetConflicts   FacetType = "conflicts"
	FacetAgreements  FacetType = "agreements"
	FacetChatSummary FacetType = "chat_summary"
)

// AnalysisFacets are the four dimensions produced by the orchestrator, in default order
var AnalysisFacets = []FacetType{FacetConflicts, FacetAgreements, FacetThemes, FacetSentiment}

// IsValid reports whether the facet type is known
func (f FacetType) IsValid() bool {
	switch f {
	case FacetSummary, FacetThemes, FacetSentiment, FacetConflicts, FacetAgreements, FacetChatSummary:
		return true
	}
	return false
}

// IsAnalysisFacet reports whether the facet is one of the four capability-backed facets
func (f FacetType) IsAnalysisFacet() bool {
	for _, af := range AnalysisFacets {
		if af == f {
			return true
		}
	}
	return false
}

// ParseFacets converts names into facet types, defaulting to all analysis facets.
// Duplicates are dropped, order is preserved.
func ParseFacets(names []string) ([]FacetType, error) {
	if len(names) == 0 {
		return append([]FacetType(nil), AnalysisFacets...), nil
	}
	seen := make(map[FacetType]bool)
	var facets []FacetType
	for _, name := range names {
		f := FacetType(name)
		if !f.IsAnalysisFacet() {
			return nil, fmt.Errorf("unknown facet %q (want one of conflicts, agreements, themes, sentiment)", name)
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		facets = append(facets, f)
	}
	return facets, nil
}

// Scope is the granularity of an analysis result
type Scope string

const (
	ScopeSession Scope = "session"
	ScopeTable   Scope = "table"
)

// IsValid reports whether the scope is known
func (s Scope) IsValid() bool {
	return s == ScopeSession || s == ScopeTable
}

// AnalysisKey identifies exactly one stored record. An empty TableID means "no table".
type AnalysisKey struct {
	SessionID string    `json:"session_id"`
	TableID   string    `json:"table_id,omitempty"`
	Facet     FacetType `json:"facet"`
	Scope     Scope     `json:"scope"`
}

// Validate checks the key is complete and consistent with its scope
func (k AnalysisKey) Validate() error {
	if k.SessionID == "" {
		return errors.New("session ID cannot be empty")
	}
	if !k.Facet.IsValid() {
		return fmt.Errorf("invalid facet type %q", k.Facet)
	}
	if !k.Scope.IsValid() {
		return fmt.Errorf("invalid scope %q", k.Scope)
	}
	if k.Scope == ScopeTable && k.TableID == "" {
		return errors.New("table scope requires a table ID")
	}
	if k.Scope == ScopeSession && k.TableID != "" {
		return errors.New("session scope must not carry a table ID")
	}
	return nil
}

// String renders the key for logs and mirror keys
func (k AnalysisKey) String() string {
	table := k.TableID
	if table == "" {
		table = "-"
	}
	return fmt.Sprintf("%s:%s:%s:%s", k.SessionID, table, k.Facet, k.Scope)
}

// GenerationMetadata describes how a payload was produced
type GenerationMetadata struct {
	InputTranscriptCount int       `json:"input_transcript_count"`
	GeneratedAt          time.Time `json:"generated_at"`
	SchemaVersion        int       `json:"schema_version"`
	Level                string    `json:"level,omitempty"`
	CapabilityID         string    `json:"capability_id,omitempty"`
	Note                 string    `json:"note,omitempty"`
}

// AnalysisRecord is a persisted facet result
type AnalysisRecord struct {
	ID        string             `json:"id"`
	Key       AnalysisKey        `json:"key"`
	Payload   json.RawMessage    `json:"payload"`
	Metadata  GenerationMetadata `json:"metadata"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// DecodePayload unmarshals the stored payload into dest
func (r *AnalysisRecord) DecodePayload(dest interface{}) error {
	if len(r.Payload) == 0 {
		return errors.New("record has no payload")
	}
	return json.Unmarshal(r.Payload, dest)
}

// AnalysisQuery filters stored records. Zero-valued fields do not filter.
type AnalysisQuery struct {
	SessionID string
	TableID   string
	Facet     FacetType
	Scope     Scope
}

// ChatSummaryPayload is the payload stored under the chat_summary facet
type ChatSummaryPayload struct {
	Digest          string `json:"digest"`
	TableCount      int    `json:"table_count"`
	TranscriptCount int    `json:"transcript_count"`
}
