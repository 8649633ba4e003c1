// ABOUTME: CLI command to list stored analysis results
// ABOUTME: Reads the analysis store without calling the model
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/worldcafe/internal/models"
)

var (
	findingsTable string
	findingsFacet string
	findingsScope string
)

// NewFindingsCmd creates the findings command
func NewFindingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "findings <session-id>",
		Short: "List stored analysis results",
		Long: `List analysis results stored for a session, optionally filtered by
table, facet or scope.

Examples:
  worldcafe findings s1
  worldcafe findings s1 --facet themes --format json
  worldcafe findings s1 --table t2`,
		Args: cobra.ExactArgs(1),
		RunE: runFindings,
	}

	cmd.Flags().StringVar(&findingsTable, "table", "", "Only results for this table")
	cmd.Flags().StringVar(&findingsFacet, "facet", "", "Only this facet")
	cmd.Flags().StringVar(&findingsScope, "scope", "", "Only this scope (session or table)")

	return cmd
}

func runFindings(cmd *cobra.Command, args []string) error {
	q := models.AnalysisQuery{
		SessionID: args[0],
		TableID:   findingsTable,
		Facet:     models.FacetType(findingsFacet),
		Scope:     models.Scope(findingsScope),
	}
	if q.Facet != "" && !q.Facet.IsValid() {
		return fmt.Errorf("unknown facet %q", q.Facet)
	}
	if q.Scope != "" && !q.Scope.IsValid() {
		return fmt.Errorf("unknown scope %q", q.Scope)
	}

	format, err := resolveFormat(outputFormat, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	records, err := a.store.Analyses.Find(cmd.Context(), q)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		return writeJSON(out, records)
	}
	if len(records) == 0 {
		if !quiet {
			fmt.Fprintln(out, "No findings stored")
		}
		return nil
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		table := rec.Key.TableID
		if table == "" {
			table = "-"
		}
		rows = append(rows, []string{
			string(rec.Key.Facet),
			string(rec.Key.Scope),
			table,
			rec.Metadata.Level,
			fmt.Sprint(rec.Metadata.InputTranscriptCount),
			formatTime(rec.UpdatedAt),
		})
	}
	fmt.Fprintln(out, renderTable([]string{"Facet", "Scope", "Table", "Level", "Inputs", "Updated"}, rows, 4))
	if !quiet {
		fmt.Fprintf(out, "\nTotal: %d record(s)\n", len(records))
	}
	return nil
}
