package core

import (
	"context"
	"time"

	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/internal/logging"
	"github.com/huangsam/placewise/schema"
)

// recordRun writes the run and its recommendations to the history store, if one is configured.
func recordRun(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, result *schema.RankingResult, start time.Time, totalAreas int) {
	store := historyStore(mgr)
	if store == nil {
		return
	}

	runID, err := store.BeginRun(ctx, result.RunID, result.Persona, start, runParams(cfg, result))
	if err != nil {
		logTrackingError("BeginRun", result.RunID, err)
		return
	}
	for _, c := range result.Recommendations {
		if err := store.RecordRecommendation(ctx, runID, result.Persona, c); err != nil {
			logTrackingError("RecordRecommendation", c.AreaCode, err)
		}
	}
	if err := store.EndRun(ctx, runID, time.Now(), totalAreas, result.FilteredOutCount); err != nil {
		logTrackingError("EndRun", result.RunID, err)
	}
}

// runParams captures the settings that shaped a run.
func runParams(cfg *contract.Config, result *schema.RankingResult) map[string]any {
	params := map[string]any{
		"limit":            cfg.ResultLimit,
		"workers":          cfg.Workers,
		"explain":          cfg.Explain,
		"cache_backend":    string(cfg.CacheBackend),
		"adjusted_weights": result.AdjustedWeights,
	}
	prefs := result.Preferences
	if prefs.BudgetMax != nil {
		params["budget_max"] = *prefs.BudgetMax
	}
	if prefs.MaxCommuteMinutes != nil {
		params["max_commute_minutes"] = *prefs.MaxCommuteMinutes
	}
	if prefs.MinSafetyScore != nil {
		params["min_safety_score"] = *prefs.MinSafetyScore
	}
	if prefs.MinSchoolRating != nil {
		params["min_school_rating"] = *prefs.MinSchoolRating
	}
	if len(prefs.ImportanceWeights) > 0 {
		params["importance_weights"] = prefs.ImportanceWeights
	}
	return params
}

// logTrackingError logs history failures without interrupting the ranking.
func logTrackingError(operation, subject string, err error) {
	logging.Warn().Err(err).Str("operation", operation).Str("subject", subject).Msg("history tracking failed")
}
