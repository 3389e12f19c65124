// Package core wires the scoring engine to its collaborators: upstream
// enrichment, explanations, run history and output.
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/placewise/core/algo"
	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/internal/logging"
	"github.com/huangsam/placewise/internal/metrics"
	"github.com/huangsam/placewise/internal/outwriter"
	"github.com/huangsam/placewise/schema"
)

// ExecutorFunc defines the function signature for the CLI entry points.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error

// ExecuteRank builds the request from --input or --areas, ranks it and
// prints the result in the configured format.
func ExecuteRank(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	req, err := BuildRequest(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	result, err := Rank(ctx, cfg, mgr, req)
	if err != nil {
		return err
	}
	return outwriter.PrintRankingResult(result, cfg, time.Since(start))
}

// ExecutePersonas prints the persona weight tables.
func ExecutePersonas(_ context.Context, cfg *contract.Config, _ contract.CacheManager) error {
	return outwriter.PrintPersonas(cfg.Personas.Profiles(), cfg)
}

// BuildRequest returns the ranking request for the CLI: a JSON file when
// --input is set, otherwise the --areas codes enriched through the upstreams.
func BuildRequest(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) (schema.RankingRequest, error) {
	defaults := DefaultRequest(cfg)
	if cfg.InputFile != "" {
		return LoadRequest(cfg.InputFile, defaults)
	}
	if len(cfg.Areas) == 0 {
		return schema.RankingRequest{}, fmt.Errorf("%w: no areas given, use --areas or --input", contract.ErrInvalidInput)
	}
	areas, err := EnrichAreas(ctx, cfg.Areas, buildFetchers(cfg, mgr), cfg.Workers)
	if err != nil {
		return schema.RankingRequest{}, err
	}
	defaults.Areas = areas
	return defaults, nil
}

// Rank scores a request, explains the top recommendations and records the
// run. History and explanation failures are logged and never fail the ranking.
func Rank(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, req schema.RankingRequest) (*schema.RankingResult, error) {
	start := time.Now()
	if req.Limit <= 0 {
		req.Limit = cfg.ResultLimit
	}

	result, err := algo.ScoreAndRank(cfg.Personas, req)
	if err != nil {
		return nil, err
	}
	result.RunID = uuid.NewString()
	result.GeneratedAt = start.UTC()

	if cfg.Explain {
		explainTop(ctx, cfg, mgr, result)
	}

	metrics.RecordRanking(string(result.Persona), result.ScoredCount, result.FilteredOutCount, time.Since(start))
	recordRun(ctx, cfg, mgr, result, start, len(req.Areas))

	logging.Info().
		Str("run_id", result.RunID).
		Str("persona", string(result.Persona)).
		Int("scored", result.ScoredCount).
		Int("filtered", result.FilteredOutCount).
		Dur("elapsed", time.Since(start)).
		Msg("ranking complete")
	return result, nil
}

// IsInputError reports whether err is the caller's fault rather than the system's.
func IsInputError(err error) bool {
	return errors.Is(err, contract.ErrInvalidInput)
}

func cacheStore(mgr contract.CacheManager) contract.CacheStore {
	if mgr == nil {
		return nil
	}
	return mgr.GetCacheStore()
}

func historyStore(mgr contract.CacheManager) contract.HistoryStore {
	if mgr == nil {
		return nil
	}
	return mgr.GetHistoryStore()
}
