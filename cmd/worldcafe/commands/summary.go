// ABOUTME: CLI commands for the cached chat digest
// ABOUTME: rebuild regenerates it from transcripts, show prints the stored text
package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/worldcafe/internal/core"
	"github.com/harper/worldcafe/internal/models"
)

// NewSummaryCmd creates the summary command group
func NewSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Manage the cached chat digest",
		Long: `Manage the per-session digest chat answers from.

The digest is built on the first question and never refreshed on its
own. Rebuild it after new transcripts arrive.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "rebuild <session-id>",
		Short: "Regenerate the digest from stored transcripts",
		Args:  cobra.ExactArgs(1),
		RunE:  runSummaryRebuild,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <session-id>",
		Short: "Print the stored digest",
		Args:  cobra.ExactArgs(1),
		RunE:  runSummaryShow,
	})

	return cmd
}

func runSummaryRebuild(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	rec, err := a.chat.Rebuild(cmd.Context(), args[0])
	if errors.Is(err, core.ErrNoData) {
		fmt.Fprintf(cmd.OutOrStdout(), "No transcripts found for session %s\n", args[0])
		return nil
	}
	if err != nil {
		return err
	}

	var summary models.ChatSummaryPayload
	if err := rec.DecodePayload(&summary); err != nil {
		return err
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Rebuilt digest for %s from %d transcript(s) across %d table(s)\n",
			args[0], summary.TranscriptCount, summary.TableCount)
	}
	return nil
}

func runSummaryShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	rec, err := a.store.Analyses.Get(cmd.Context(), models.AnalysisKey{
		SessionID: args[0],
		Facet:     models.FacetChatSummary,
		Scope:     models.ScopeSession,
	})
	if err != nil {
		return err
	}
	if rec == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "No digest stored for session %s\n", args[0])
		return nil
	}

	var summary models.ChatSummaryPayload
	if err := rec.DecodePayload(&summary); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), summary.Digest)
	return nil
}
