// ABOUTME: Tests for analysis keys and facet parsing
// ABOUTME: Verifies scope/table consistency rules
package models

import (
	"testing"
)

func TestAnalysisKeyValidate(t *testing.T) {
	tests := []struct {
		name    string
		key     AnalysisKey
		wantErr bool
	}{
		{"session scope", AnalysisKey{SessionID: "s1", Facet: FacetThemes, Scope: ScopeSession}, false},
		{"table scope", AnalysisKey{SessionID: "s1", TableID: "t1", Facet: FacetConflicts, Scope: ScopeTable}, false},
		{"chat summary", AnalysisKey{SessionID: "s1", Facet: FacetChatSummary, Scope: ScopeSession}, false},
		{"missing session", AnalysisKey{Facet: FacetThemes, Scope: ScopeSession}, true},
		{"table scope without table", AnalysisKey{SessionID: "s1", Facet: FacetThemes, Scope: ScopeTable}, true},
		{"session scope with table", AnalysisKey{SessionID: "s1", TableID: "t1", Facet: FacetThemes, Scope: ScopeSession}, true},
		{"bad facet", AnalysisKey{SessionID: "s1", Facet: "mood", Scope: ScopeSession}, true},
		{"bad scope", AnalysisKey{SessionID: "s1", Facet: FacetThemes, Scope: "global"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.key.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAnalysisKeyString(t *testing.T) {
	k := AnalysisKey{SessionID: "s1", Facet: FacetSummary, Scope: ScopeSession}
	if got := k.String(); got != "s1:-:summary:session" {
		t.Errorf("String() = %q", got)
	}
}

func TestParseFacets(t *testing.T) {
	all, err := ParseFacets(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 default facets, got %v", all)
	}

	got, err := ParseFacets([]string{"themes", "themes", "sentiment"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != FacetThemes || got[1] != FacetSentiment {
		t.Errorf("unexpected facets %v", got)
	}

	if _, err := ParseFacets([]string{"chat_summary"}); err == nil {
		t.Error("expected chat_summary to be rejected as an analysis facet")
	}
}
