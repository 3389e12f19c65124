package core

import (
	"context"

	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/internal/logging"
	"github.com/huangsam/placewise/internal/upstream"
	"github.com/huangsam/placewise/schema"
	"golang.org/x/sync/errgroup"
)

// newExplainer picks the HTTP explainer when a service URL is configured and
// the template explainer otherwise, both reading through the cache.
func newExplainer(cfg *contract.Config, mgr contract.CacheManager) contract.Explainer {
	var inner contract.Explainer = upstream.NewTemplateExplainer(upstream.MediumFormat)
	if cfg.ExplainerURL != "" {
		inner = upstream.NewHTTPExplainer(cfg.ExplainerURL, upstream.MediumFormat, cfg.Upstream.Timeout)
	}
	return upstream.NewCachedExplainer(inner, cacheStore(mgr))
}

// explainTop attaches explanations to the first ExplainTop recommendations.
func explainTop(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, result *schema.RankingResult) {
	attachExplanations(ctx, newExplainer(cfg, mgr), result, cfg.ExplainTop, cfg.Workers)
}

// attachExplanations runs the explainer concurrently over the top n
// candidates. A failed explanation is attached with Success false.
func attachExplanations(ctx context.Context, explainer contract.Explainer, result *schema.RankingResult, n, workers int) {
	n = min(n, len(result.Recommendations))
	var g errgroup.Group
	g.SetLimit(max(workers, 1))
	for i := range n {
		g.Go(func() error {
			c := result.Recommendations[i]
			exp, err := explainer.Explain(ctx, c, result.Persona)
			if err != nil {
				logging.Warn().Err(err).Str("area", c.AreaCode).Msg("explanation failed")
				if exp.Error == "" {
					exp.Error = err.Error()
				}
				exp.Success = false
			}
			result.Recommendations[i].Explanation = &exp
			return nil
		})
	}
	_ = g.Wait()
}
