package algo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/huangsam/placewise/schema"
)

// TopTradeOff is the fixed statement for the rank 1 candidate.
const TopTradeOff = "Top-ranked with best overall balance of factors"

// SimilarTradeOff is used when no factor differs from rank 1 by more than TradeOffDelta.
const SimilarTradeOff = "Similar profile to top choice"

// RankCandidates sorts candidates by descending unrounded composite score,
// keeps the first limit entries (limit <= 0 keeps all), assigns ranks from 1
// and annotates trade-offs against rank 1. Equal scores keep input order.
func RankCandidates(candidates []schema.ScoredCandidate, limit int) []schema.ScoredCandidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CompositeScore > candidates[j].CompositeScore
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	for i := range candidates {
		candidates[i].Rank = i + 1
	}
	for i := range candidates {
		if i == 0 {
			candidates[i].TradeOffs = TopTradeOff
			continue
		}
		candidates[i].TradeOffs = TradeOff(candidates[i], candidates[0])
	}
	return candidates
}

// TradeOff describes how a candidate differs from the top candidate. Only
// the first two factors in each direction are named.
func TradeOff(c, top schema.ScoredCandidate) string {
	var better, lower []string
	for _, f := range schema.AllFactors {
		score, ok := c.FactorScores[f]
		if !ok {
			continue
		}
		topScore, ok := top.FactorScores[f]
		if !ok {
			topScore = NeutralScore
		}
		switch diff := score - topScore; {
		case diff > TradeOffDelta:
			better = append(better, schema.FactorPhrase(f))
		case diff < -TradeOffDelta:
			lower = append(lower, schema.FactorPhrase(f))
		}
	}
	better = better[:min(TradeOffMaxItems, len(better))]
	lower = lower[:min(TradeOffMaxItems, len(lower))]

	switch {
	case len(better) > 0 && len(lower) > 0:
		return fmt.Sprintf("Better %s but lower %s", strings.Join(better, ", "), strings.Join(lower, ", "))
	case len(lower) > 0:
		return fmt.Sprintf("Lower %s than top choice", strings.Join(lower, ", "))
	default:
		// Only better factors still reads as similar
		return SimilarTradeOff
	}
}
