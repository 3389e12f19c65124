package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/huangsam/placewise/internal/api"
	"github.com/huangsam/placewise/internal/contract"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serveCmd runs the HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ranking engine over HTTP",
	Long: `Start an HTTP server that exposes the ranking engine.

Routes:
  POST /v1/rank     - Rank the areas in a JSON request body
  GET  /v1/personas - Persona factor weights
  GET  /healthz     - Liveness probe
  GET  /metrics     - Prometheus metrics

Requests under /v1 are rate limited per client IP. The server shuts down
gracefully on SIGINT or SIGTERM.

Examples:
  # Serve on the default address
  placewise serve

  # Serve with a Redis cache shared between replicas
  placewise serve --addr :9000 --cache-backend redis --cache-db-connect redis://localhost:6379/0`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		srvCfg := api.DefaultServerConfig()
		srvCfg.Addr = viper.GetString("addr")
		srvCfg.RateLimit = viper.GetInt("rate-limit")
		if err := api.Serve(ctx, cfg, cacheManager, srvCfg); err != nil {
			contract.LogFatal("HTTP server failed", err)
		}
	},
}
