// ABOUTME: CLI commands to generate session and table analysis
// ABOUTME: Prints facet results and participation statistics as tables or JSON
package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/harper/worldcafe/internal/core"
	"github.com/harper/worldcafe/internal/models"
)

var analyzeFacets []string

// NewAnalyzeCmd creates the analyze command group
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Generate multi-facet analysis",
		Long: `Generate conflicts, agreements, themes and sentiment for a session
or a single table. Facets run concurrently; a facet that fails is
reported as degraded without affecting the others.

Examples:
  worldcafe analyze session s1
  worldcafe analyze table t3 --facets themes,sentiment`,
	}

	cmd.PersistentFlags().StringSliceVar(&analyzeFacets, "facets", nil, "Facets to generate (default: all)")

	cmd.AddCommand(&cobra.Command{
		Use:   "session <session-id>",
		Short: "Analyze every table of a session together",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, models.ScopeSession, args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "table <table-id>",
		Short: "Analyze one table's merged recordings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, models.ScopeTable, args[0])
		},
	})

	return cmd
}

func runAnalyze(cmd *cobra.Command, scope models.Scope, id string) error {
	facets, err := models.ParseFacets(analyzeFacets)
	if err != nil {
		return err
	}
	format, err := resolveFormat(outputFormat, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	var report *core.AnalysisReport
	if scope == models.ScopeSession {
		report, err = a.orchestrator.GenerateSessionAnalysis(cmd.Context(), id, facets)
	} else {
		report, err = a.orchestrator.GenerateTableAnalysis(cmd.Context(), id, facets)
	}
	if report == nil {
		return err
	}
	if err != nil {
		a.logger.Error("analysis not persisted", "err", err)
	}

	if format == "json" {
		if werr := writeJSON(cmd.OutOrStdout(), report); werr != nil {
			return werr
		}
		return err
	}
	renderReport(cmd.OutOrStdout(), report)
	return err
}

func renderReport(w io.Writer, r *core.AnalysisReport) {
	if r.NoData {
		fmt.Fprintf(w, "No transcripts found for %s %s\n", r.Scope, scopeID(r))
		return
	}

	fmt.Fprintf(w, "%s analysis for %s (%d transcript(s), %d table(s))\n\n",
		cases.Title(language.English).String(string(r.Scope)), scopeID(r), r.Participation.TotalTranscripts, r.Participation.TotalTables)

	rows := make([][]string, 0, len(r.Comparison))
	for _, c := range r.Comparison {
		rows = append(rows, []string{
			fmt.Sprint(c.Rank), c.TableID, fmt.Sprint(c.TotalLength),
			fmt.Sprint(c.TranscriptCount), fmt.Sprint(c.SpeakerCount),
		})
	}
	fmt.Fprintln(w, renderTable([]string{"Rank", "Table", "Chars", "Transcripts", "Speakers"}, rows, 0, 2, 3, 4))

	rows = rows[:0]
	for _, fr := range r.Facets {
		status := "ok"
		switch {
		case fr.Refusal != nil:
			status = "refused"
		case fr.Degraded:
			status = "degraded"
		}
		rows = append(rows, []string{string(fr.Facet), status, fr.Level, fmt.Sprint(itemCount(fr.Payload)), truncate(fr.Note, 60)})
	}
	fmt.Fprintln(w, renderTable([]string{"Facet", "Status", "Level", "Items", "Note"}, rows, 3))

	for _, fr := range r.Facets {
		renderFacet(w, fr)
	}
}

func renderFacet(w io.Writer, fr core.FacetResult) {
	if fr.Refusal != nil {
		fmt.Fprintf(w, "\n%s refused: ~%d tokens needed, %d available for %s\n",
			fr.Facet, fr.Refusal.Estimated, fr.Refusal.Available, fr.Refusal.CapabilityID)
		for _, s := range fr.Refusal.Suggestions {
			fmt.Fprintf(w, "  • %s\n", s)
		}
		return
	}

	switch p := fr.Payload.(type) {
	case *models.ThemesResult:
		if len(p.Themes) == 0 {
			return
		}
		rows := make([][]string, 0, len(p.Themes))
		for _, th := range p.Themes {
			rows = append(rows, []string{th.Label, fmt.Sprint(th.Frequency), fmt.Sprintf("%+.2f", th.Sentiment), strings.Join(th.Locations, ", ")})
		}
		fmt.Fprintln(w, "\nThemes")
		fmt.Fprintln(w, renderTable([]string{"Theme", "Freq", "Sentiment", "Where"}, rows, 1, 2))
	case *models.ConflictsResult:
		if len(p.Conflicts) == 0 {
			return
		}
		rows := make([][]string, 0, len(p.Conflicts))
		for _, c := range p.Conflicts {
			rows = append(rows, []string{c.Location, fmt.Sprintf("%.2f", c.Severity), truncate(c.Description, 50), truncate(c.Quote, 50)})
		}
		fmt.Fprintln(w, "\nConflicts")
		fmt.Fprintln(w, renderTable([]string{"Where", "Severity", "About", "Quote"}, rows, 1))
	case *models.AgreementsResult:
		if len(p.Agreements) == 0 {
			return
		}
		rows := make([][]string, 0, len(p.Agreements))
		for _, ag := range p.Agreements {
			rows = append(rows, []string{ag.Location, fmt.Sprintf("%.2f", ag.Strength), truncate(ag.Description, 50), truncate(ag.Quote, 50)})
		}
		fmt.Fprintln(w, "\nAgreements")
		fmt.Fprintln(w, renderTable([]string{"Where", "Strength", "About", "Quote"}, rows, 1))
	case *models.SentimentResult:
		if fr.Degraded {
			return
		}
		fmt.Fprintf(w, "\nSentiment: %+.2f (%s)\n", p.Overall, p.Interpretation)
		for _, s := range p.Breakdown {
			fmt.Fprintf(w, "  %-20s %+.2f\n", s.Location, s.Score)
		}
	}
}

func itemCount(payload interface{}) int {
	switch p := payload.(type) {
	case *models.ThemesResult:
		return len(p.Themes)
	case *models.ConflictsResult:
		return len(p.Conflicts)
	case *models.AgreementsResult:
		return len(p.Agreements)
	case *models.SentimentResult:
		return len(p.Breakdown)
	}
	return 0
}

func scopeID(r *core.AnalysisReport) string {
	if r.Scope == models.ScopeTable {
		return r.TableID
	}
	return r.SessionID
}
