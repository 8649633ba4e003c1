// ABOUTME: CLI command to print the default prompt templates
// ABOUTME: The output is a starting point for WORLDCAFE_PROMPTS_FILE
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/worldcafe/internal/config"
)

// NewPromptsCmd creates the prompts command
func NewPromptsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prompts",
		Short: "Print the default prompts and capability budgets",
		Long: `Print the built-in prompt templates and capability budgets as TOML.

Save the output, edit it and point WORLDCAFE_PROMPTS_FILE at it. Only
the keys present in your file override the defaults.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), config.SamplePrompts())
		},
	}
}
