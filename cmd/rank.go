package cmd

import (
	"github.com/huangsam/placewise/core"
	"github.com/huangsam/placewise/internal/contract"
	"github.com/spf13/cobra"
)

// rankCmd enriches and ranks areas for a persona.
var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank areas for a persona.",
	Long: `Score and rank areas for a student, parent or developer.

Each area is scored on up to nine factors (affordability, commute, safety,
schools, amenities, and more). The persona decides how much each factor counts,
and your importance ratings adjust those weights. Hard constraints such as a
budget or a maximum commute remove areas before ranking.

Area data comes from the configured upstream collaborators (--areas) or from
a JSON request file (--input). Upstream responses are cached per category.

Examples:
  # Rank three areas for a student
  placewise rank --areas E14,SE15,N1

  # A parent who cares most about schools and safety
  placewise rank --persona parent --areas E14,SE15,N1 --importance 'schools:10,safety:9'

  # Hard constraints and per-factor columns
  placewise rank --areas E14,SE15 --budget 1800 --max-commute 40 --detail

  # Rank a prepared request and explain the top results
  placewise rank --input request.json --explain

  # Export to CSV
  placewise rank --input request.json --output csv --output-file ranking.csv`,
	PreRunE: sharedSetupWrapper,
	PostRun: dumpMetrics,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteRank(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot rank areas", err)
		}
	},
}
