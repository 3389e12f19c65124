// Package cmd defines the command-line interface for placewise.
package cmd

import (
	"github.com/huangsam/placewise/internal/api"
	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(rankCmd)
	rootCmd.AddCommand(personasCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheSweepCmd)
	cacheCmd.AddCommand(cacheGetCmd)
	cacheCmd.AddCommand(cacheInvalidateCmd)

	// Add the history subcommands to the parent history command
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyMigrateCmd)
	historyCmd.AddCommand(historyClearCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().IntP("limit", "l", contract.DefaultResultLimit, "Number of recommendations to display")
	rootCmd.PersistentFlags().StringP("persona", "p", string(schema.StudentPersona), "Persona: student or parent or developer")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent workers")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.FileBackend), "Cache backend: file or sqlite or mysql or postgresql or redis or badger or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Connection string for mysql/postgresql/redis, or the sqlite file path")
	rootCmd.PersistentFlags().String("cache-dir", "", "Directory for the file and badger cache backends")
	rootCmd.PersistentFlags().String("history-backend", "", "Run history backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("history-db-connect", "", "Connection string for run history (must differ from cache-db-connect)")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: trace or debug or info or warn or error or disabled")
	rootCmd.PersistentFlags().String("log-format", "console", "Log format: console or json")
	rootCmd.PersistentFlags().String("metrics-file", "", "Write Prometheus metrics to this file after the command")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of rankCmd to Viper
	rankCmd.Flags().String("areas", "", "Comma-separated list of area codes to enrich and rank")
	rankCmd.Flags().String("input", "", "JSON ranking request file with preferences and area data")
	rankCmd.Flags().Bool("explain", false, "Attach explanations to the top recommendations")
	rankCmd.Flags().Int("explain-top", contract.DefaultExplainTop, "Number of recommendations to explain")
	rankCmd.Flags().String("explainer-url", "", "HTTP explainer endpoint (default: built-in template)")
	rankCmd.Flags().Float64("budget", 0, "Maximum monthly budget in GBP (0 = no limit)")
	rankCmd.Flags().Float64("max-commute", 0, "Maximum commute in minutes (0 = no limit)")
	rankCmd.Flags().Float64("min-safety", 0, "Minimum safety score 0-100")
	rankCmd.Flags().Float64("min-school", 0, "Minimum school rating 0-100")
	rankCmd.Flags().String("importance", "", "Factor importance ratings 1-10 (format: 'safety:9,schools:7')")
	rankCmd.Flags().Bool("detail", false, "Print per-factor score columns")
	if err := viper.BindPFlags(rankCmd.Flags()); err != nil {
		contract.LogFatal("Error binding rank flags", err)
	}

	// --days maps onto the sweep-days config key
	cacheSweepCmd.Flags().Int("days", contract.DefaultSweepDays, "Remove cache entries older than this many days")
	if err := viper.BindPFlag("sweep-days", cacheSweepCmd.Flags().Lookup("days")); err != nil {
		contract.LogFatal("Error binding cache sweep flags", err)
	}

	// Bind all flags of historyMigrateCmd to Viper
	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(historyMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history migrate flags", err)
	}

	// Bind all flags of serveCmd to Viper
	defaults := api.DefaultServerConfig()
	serveCmd.Flags().String("addr", defaults.Addr, "Listen address for the HTTP API")
	serveCmd.Flags().Int("rate-limit", defaults.RateLimit, "Requests per minute per client IP on /v1 (0 = unlimited)")
	if err := viper.BindPFlags(serveCmd.Flags()); err != nil {
		contract.LogFatal("Error binding serve flags", err)
	}
}
