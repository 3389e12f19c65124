package algo

import (
	"fmt"
	"math"

	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/schema"
)

// Importance rating bounds. A rating of NeutralImportance leaves a weight unchanged.
const (
	MinImportance     = 0.0
	MaxImportance     = 10.0
	NeutralImportance = 5.0
)

// WeightTotal is the sum every resolved weight map is normalized to.
const WeightTotal = 100.0

// ImportanceMultiplier maps a 0-10 rating to a weight multiplier in [0.5, 1.5].
func ImportanceMultiplier(rating float64) float64 {
	return 0.5 + rating/10
}

// ValidateImportance rejects unknown factors and ratings outside 0-10.
func ValidateImportance(importance map[schema.Factor]float64) error {
	for f, r := range importance {
		if _, ok := schema.ValidFactors[f]; !ok {
			return fmt.Errorf("%w: unknown factor %q in importance weights", contract.ErrInvalidInput, f)
		}
		if math.IsNaN(r) || r < MinImportance || r > MaxImportance {
			return fmt.Errorf("%w: importance for %s must be between %.0f and %.0f (received %v)", contract.ErrInvalidInput, f, MinImportance, MaxImportance, r)
		}
	}
	return nil
}

// ResolveWeights scales the persona's base weights by the user's importance
// ratings and normalizes the result to sum to 100. Scaling always happens
// before normalizing. When the scaled total is zero the base weights are
// returned unchanged.
func ResolveWeights(profile schema.PersonaProfile, importance map[schema.Factor]float64) (schema.WeightMap, error) {
	if err := ValidateImportance(importance); err != nil {
		return nil, err
	}
	for f, w := range profile.Weights {
		if w < 0 || math.IsNaN(w) {
			return nil, fmt.Errorf("%w: persona %s has invalid weight %v for %s", contract.ErrConfiguration, profile.Name, w, f)
		}
	}

	adjusted := make(schema.WeightMap, len(profile.Weights))
	for f, base := range profile.Weights {
		rating, ok := importance[f]
		if !ok {
			rating = NeutralImportance
		}
		adjusted[f] = base * ImportanceMultiplier(rating)
	}

	total := adjusted.Sum()
	if total <= 0 {
		return profile.Weights.Clone(), nil
	}
	for f, w := range adjusted {
		adjusted[f] = w / total * WeightTotal
	}
	return adjusted, nil
}
