// Package main is the entry point for the placewise CLI.
package main

import (
	"os"

	"github.com/huangsam/placewise/cmd"
	"github.com/huangsam/placewise/internal/iocache"
	"github.com/huangsam/placewise/internal/logging"
)

func main() {
	cmd.SetCacheManager(iocache.Manager)
	defer iocache.CloseCaching()

	if err := cmd.Execute(); err != nil {
		logging.Error().Err(err).Msg("command failed")
		iocache.CloseCaching()
		os.Exit(1)
	}
}
