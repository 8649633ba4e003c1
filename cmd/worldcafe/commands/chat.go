// ABOUTME: CLI command to ask questions about a session
// ABOUTME: Uses the cached session digest; prints refusals with suggestions
package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewChatCmd creates the chat command
func NewChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat <session-id> <message>",
		Short: "Ask a question about a session",
		Long: `Ask a question about a session. The first question builds a digest
of every table and stores it; later questions reuse it. Run
'worldcafe summary rebuild' after ingesting new transcripts.

Examples:
  worldcafe chat s1 "Which tables disagreed about parking?"`,
		Args: cobra.MinimumNArgs(2),
		RunE: runChat,
	}
	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	sessionID := args[0]
	message := strings.TrimSpace(strings.Join(args[1:], " "))
	if message == "" {
		return fmt.Errorf("no message provided")
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

	reply, err := a.chat.Chat(cmd.Context(), sessionID, message)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		return writeJSON(out, reply)
	}

	switch {
	case reply.NoData:
		fmt.Fprintln(out, reply.Response)
	case reply.Refused:
		fmt.Fprintf(out, "Question too large: ~%d tokens needed, %d available for %s\n",
			reply.Refusal.Estimated, reply.Refusal.Available, reply.Refusal.CapabilityID)
		for _, s := range reply.Refusal.Suggestions {
			fmt.Fprintf(out, "  • %s\n", s)
		}
	default:
		fmt.Fprintln(out, reply.Response)
		if verbose {
			fmt.Fprintf(cmd.ErrOrStderr(), "(cache hit: %v, digest truncated: %v)\n", reply.CacheHit, reply.Truncated)
		}
	}
	return nil
}
