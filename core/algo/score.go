package algo

import (
	"sort"

	"github.com/huangsam/placewise/schema"
)

// Scoring thresholds. Changing any of these changes recommendation outcomes.
const (
	NeutralScore     = 50.0 // value of a weighted factor with no data
	StrengthMin      = 80.0 // a top factor at or above this is a strength
	WeaknessMax      = 60.0 // a bottom factor below this is a weakness
	StrengthWindow   = 3
	WeaknessWindow   = 2
	TradeOffDelta    = 5.0
	TradeOffMaxItems = 2
)

// EffectiveScores returns a score for every weighted factor, substituting
// NeutralScore where the area had no data. The defaulted factors are
// returned in canonical order.
func EffectiveScores(scores schema.FactorScores, weights schema.WeightMap) (schema.FactorScores, []schema.Factor) {
	out := make(schema.FactorScores, len(weights))
	var defaulted []schema.Factor
	for _, f := range weights.Factors() {
		if v, ok := scores[f]; ok {
			out[f] = v
			continue
		}
		out[f] = NeutralScore
		defaulted = append(defaulted, f)
	}
	return out, defaulted
}

// CompositeScore combines factor scores with weights that sum to 100. Each
// weighted factor contributes score*weight/100; an unknown factor counts as
// NeutralScore, never zero. The composite is the sum of the contributions.
func CompositeScore(scores schema.FactorScores, weights schema.WeightMap) (float64, schema.FactorScores) {
	contributions := make(schema.FactorScores, len(weights))
	composite := 0.0
	for _, f := range weights.Factors() {
		v, ok := scores[f]
		if !ok {
			v = NeutralScore
		}
		c := v * weights[f] / WeightTotal
		contributions[f] = c
		composite += c
	}
	return composite, contributions
}

// StrengthsWeaknesses labels the best and worst factors. Strengths come
// from the top three scores at or above 80, best first. Weaknesses come
// from the bottom two scores below 60, worst first.
func StrengthsWeaknesses(scores schema.FactorScores) (strengths, weaknesses []string) {
	sorted := sortedByScore(scores)
	seen := make(map[schema.Factor]bool)

	strengths = []string{}
	for _, f := range sorted[:min(StrengthWindow, len(sorted))] {
		if scores[f] >= StrengthMin {
			strengths = append(strengths, schema.FactorLabel(f))
			seen[f] = true
		}
	}

	weaknesses = []string{}
	bottom := sorted[max(0, len(sorted)-WeaknessWindow):]
	for i := len(bottom) - 1; i >= 0; i-- {
		f := bottom[i]
		if scores[f] < WeaknessMax && !seen[f] {
			weaknesses = append(weaknesses, schema.FactorLabel(f))
		}
	}
	return strengths, weaknesses
}

// sortedByScore orders factors by descending score, keeping canonical order on ties.
func sortedByScore(scores schema.FactorScores) []schema.Factor {
	factors := make([]schema.Factor, 0, len(scores))
	for _, f := range schema.AllFactors {
		if _, ok := scores[f]; ok {
			factors = append(factors, f)
		}
	}
	sort.SliceStable(factors, func(i, j int) bool {
		return scores[factors[i]] > scores[factors[j]]
	})
	return factors
}
