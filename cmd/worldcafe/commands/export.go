// ABOUTME: CLI command to export a session's findings to a file
// ABOUTME: Writes YAML for machines or Markdown for people
package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	exportAs     string
	exportOutput string
)

// NewExportCmd creates the export command
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Export a session's findings",
		Long: `Export a session's tables, transcript count and stored findings.

Examples:
  worldcafe export s1
  worldcafe export s1 --as markdown --output report.md`,
		Args: cobra.ExactArgs(1),
		RunE: runExport,
	}

	cmd.Flags().StringVar(&exportAs, "as", "yaml", "Export format: yaml or markdown")
	cmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: worldcafe-<session>.<ext>)")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	sessionID := args[0]
	kind := strings.ToLower(exportAs)
	var ext string
	switch kind {
	case "yaml", "yml":
		kind, ext = "yaml", "yaml"
	case "markdown", "md":
		kind, ext = "markdown", "md"
	default:
		return fmt.Errorf("unknown export format %q (want yaml or markdown)", exportAs)
	}

	path := exportOutput
	if path == "" {
		path = fmt.Sprintf("worldcafe-%s.%s", sessionID, ext)
	}

	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if kind == "yaml" {
		err = a.store.ExportToYAML(cmd.Context(), sessionID, path)
	} else {
		err = a.store.ExportToMarkdown(cmd.Context(), sessionID, path)
	}
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %s to %s\n", sessionID, path)
	}
	return nil
}
