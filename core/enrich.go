package core

import (
	"context"
	"errors"

	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/internal/logging"
	"github.com/huangsam/placewise/internal/upstream"
	"github.com/huangsam/placewise/schema"
	"golang.org/x/sync/errgroup"
)

// buildFetchers returns the configured collaborators, each reading through the cache.
func buildFetchers(cfg *contract.Config, mgr contract.CacheManager) []contract.Fetcher {
	cache := cacheStore(mgr)
	var fetchers []contract.Fetcher
	for _, f := range upstream.NewFetchers(cfg.Upstream) {
		fetchers = append(fetchers, upstream.NewCachedFetcher(f, cache))
	}
	return fetchers
}

// EnrichAreas builds one AreaRecord per area code by asking every fetcher.
// Areas run concurrently, bounded by workers; categories of one area run in
// fetcher order so later categories can refine earlier ones. Not-found and
// transient failures leave the category unknown. The output keeps the input order.
func EnrichAreas(ctx context.Context, codes []string, fetchers []contract.Fetcher, workers int) ([]schema.AreaRecord, error) {
	log := logging.With("enrich")
	if len(fetchers) == 0 {
		log.Warn().Int("areas", len(codes)).Msg("no upstream endpoints configured, every factor will use the neutral default")
	}

	records := make([]schema.AreaRecord, len(codes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	for i, code := range codes {
		g.Go(func() error {
			area := schema.AreaRecord{AreaCode: code}
			for _, f := range fetchers {
				payload, err := f.Fetch(gctx, code)
				if err != nil {
					if ctxErr := gctx.Err(); ctxErr != nil {
						return ctxErr
					}
					if upstream.IsUnknown(err) {
						if errors.Is(err, contract.ErrNotFound) {
							log.Debug().Err(err).Str("category", string(f.Category())).Str("area", code).Msg("no data for category")
						} else {
							log.Warn().Err(err).Str("category", string(f.Category())).Str("area", code).Msg("category unavailable")
						}
						continue
					}
					return err
				}
				if err := upstream.Apply(&area, f.Category(), payload); err != nil {
					log.Warn().Err(err).Str("category", string(f.Category())).Str("area", code).Msg("discarding malformed payload")
				}
			}
			records[i] = area
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}
