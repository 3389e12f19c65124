package cmd

import (
	"github.com/huangsam/placewise/core"
	"github.com/huangsam/placewise/internal/contract"
	"github.com/spf13/cobra"
)

// personasCmd displays the factor weights of every persona.
var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "Display the factor weights of every persona",
	Long: `Show the factors and weights each persona uses to score an area.

Provides complete transparency into how areas are ranked, including:
- The factors each persona cares about
- The weight of each factor and its share of the total
- Custom weights if configured via .placewise.yaml

No upstream data is fetched - this is purely informational.

Examples:
  # Show the built-in personas
  placewise personas

  # View with custom weights from config file
  placewise personas --config .placewise.yaml

  # Export weights as CSV
  placewise personas --output csv`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecutePersonas(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot display personas", err)
		}
	},
}
