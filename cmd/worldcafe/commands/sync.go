// ABOUTME: Sync commands mirror stored analysis records to Charm cloud
// ABOUTME: Uses the local SSH identity; SQLite stays the source of truth
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/worldcafe/internal/charm"
)

// openMirror connects to Charm; tests replace it
var openMirror = charm.Open

// NewSyncCmd creates the sync command group
func NewSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Mirror analysis results to Charm cloud",
		Long: `Mirror analysis results between the local SQLite database and
Charm cloud KV storage.

Charm authenticates with your SSH keys, so results sync across every
device linked to the same Charm account. Local storage remains the
source of truth; newer local records win.`,
	}

	cmd.AddCommand(newSyncNowCmd())
	cmd.AddCommand(newSyncStatusCmd())

	return cmd
}

func mirrorConfig(a *app) charm.Config {
	return charm.Config{Host: a.cfg.CharmHost, DBName: a.cfg.CharmDBName, AutoSync: a.cfg.AutoSync}
}

func newSyncNowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "now <session-id>",
		Short: "Push and pull a session's records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, false)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			mirror, err := openMirror(mirrorConfig(a))
			if err != nil {
				return fmt.Errorf("failed to connect to Charm: %w", err)
			}
			defer func() { _ = mirror.Close() }()

			stats, err := charm.Replicate(cmd.Context(), a.store.Analyses, mirror, args[0])
			if err != nil {
				return err
			}

			format, err := resolveFormat(outputFormat, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if format == "json" {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Synced %s: %d pushed, %d pulled, %d unchanged\n",
				args[0], stats.Pushed, stats.Pulled, stats.Skipped)
			return nil
		},
	}
}

func newSyncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <session-id>",
		Short: "Compare local and mirrored records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, false)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			mirror, err := openMirror(mirrorConfig(a))
			if err != nil {
				return fmt.Errorf("failed to connect to Charm: %w", err)
			}
			defer func() { _ = mirror.Close() }()

			local, err := a.store.Analyses.FindBySession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			remote, err := mirror.List(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Host:   %s\n", a.cfg.CharmHost)
			fmt.Fprintf(cmd.OutOrStdout(), "Local:  %d record(s)\n", len(local))
			fmt.Fprintf(cmd.OutOrStdout(), "Mirror: %d record(s)\n", len(remote))
			return nil
		},
	}
}
