// ABOUTME: Standalone MCP server binary with stdio transport
// ABOUTME: Equivalent to `worldcafe mcp` for hosts that expect a dedicated binary
package main

import (
	"fmt"
	"os"

	"github.com/harper/worldcafe/cmd/worldcafe/commands"
)

func main() {
	cmd := commands.NewRootCmd()
	cmd.SetArgs(append([]string{"mcp"}, os.Args[1:]...))
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
