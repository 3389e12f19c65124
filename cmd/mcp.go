package cmd

import (
	"github.com/huangsam/placewise/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the placewise MCP server",
	Long: `Launch an MCP server over stdio that lets AI agents rank areas via standard tools.

Tools:
  rank_areas    - Rank areas for a persona with optional constraints
  list_personas - Show the factor weights of every persona
  cache_stats   - Show cache statistics

Logs go to stderr so stdout stays reserved for the protocol.`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, cacheManager, version)
	},
}
