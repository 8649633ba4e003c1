// ABOUTME: Root command and global flags for the worldcafe CLI
// ABOUTME: Wires every subcommand and exposes Execute for main
package commands

import (
	"github.com/spf13/cobra"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
	dbPath       string
)

const banner = `
█   █ █▀▀█ █▀▀█ █   █▀▀▄ █▀▀ █▀▀█ █▀▀ █▀▀
█▄█▄█ █  █ █▄▄▀ █   █  █ █   █▄▄█ █▀▀ █▀▀
 ▀ ▀  ▀▀▀▀ ▀ ▀▀ ▀▀▀ ▀▀▀  ▀▀▀ ▀  ▀ ▀   ▀▀▀`

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worldcafe",
		Short: "Analyze World Café discussion transcripts",
		Long: banner + `

Ingest table transcripts, generate conflicts, agreements, themes and
sentiment for a whole session or a single table, and chat about a
session from a cached digest. Results are stored in a local SQLite
database and can be mirrored to Charm cloud.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (debug logging)")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only print results and errors")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto, table or json")
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: $WORLDCAFE_DB_PATH or XDG data dir)")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(NewIngestCmd())
	cmd.AddCommand(NewAnalyzeCmd())
	cmd.AddCommand(NewChatCmd())
	cmd.AddCommand(NewFindingsCmd())
	cmd.AddCommand(NewSummaryCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewSyncCmd())
	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewPromptsCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
