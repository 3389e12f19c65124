package algo

import (
	"fmt"
	"time"

	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/schema"
)

// ScoreAndRank runs one scoring pass: resolve weights, filter, extract,
// score and rank. Every input area ends up either scored or counted as
// filtered, so ScoredCount + FilteredOutCount == len(req.Areas).
func ScoreAndRank(personas schema.PersonaSet, req schema.RankingRequest) (*schema.RankingResult, error) {
	profile, ok := personas.Get(req.Persona)
	if !ok {
		return nil, fmt.Errorf("%w: unknown persona %q (known: %v)", contract.ErrInvalidInput, req.Persona, personas.Names())
	}
	if err := contract.ValidatePreferences(req.Preferences); err != nil {
		return nil, err
	}
	if err := checkUniqueAreas(req.Areas); err != nil {
		return nil, err
	}

	weights, err := ResolveWeights(profile, req.Preferences.ImportanceWeights)
	if err != nil {
		return nil, err
	}

	result := &schema.RankingResult{
		Persona:            profile.Name,
		Preferences:        req.Preferences,
		AdjustedWeights:    weights,
		FilteredOutReasons: []schema.FilteredArea{},
		GeneratedAt:        time.Now(),
	}

	candidates := make([]schema.ScoredCandidate, 0, len(req.Areas))
	for _, area := range req.Areas {
		if !Passes(area, req.Preferences) {
			result.FilteredOutCount++
			if len(result.FilteredOutReasons) < MaxFilteredSamples {
				result.FilteredOutReasons = append(result.FilteredOutReasons, schema.FilteredArea{
					AreaCode: area.AreaCode,
					Reason:   FilterReason(area, req.Preferences),
				})
			}
			continue
		}
		candidates = append(candidates, ScoreArea(area, weights))
	}
	result.ScoredCount = len(candidates)
	result.Recommendations = RankCandidates(candidates, req.Limit)
	return result, nil
}

// ScoreArea builds the scored candidate for one area that passed filtering.
func ScoreArea(area schema.AreaRecord, weights schema.WeightMap) schema.ScoredCandidate {
	observed := Extract(area)
	effective, defaulted := EffectiveScores(observed, weights)
	composite, contributions := CompositeScore(effective, weights)
	// Defaulted factors carry no data, so they are never strengths or weaknesses
	strengths, weaknesses := StrengthsWeaknesses(observed)
	return schema.ScoredCandidate{
		AreaCode:         area.AreaCode,
		AreaName:         area.AreaName,
		CompositeScore:   composite,
		FactorScores:     effective,
		Contributions:    contributions,
		DefaultedFactors: defaulted,
		Strengths:        strengths,
		Weaknesses:       weaknesses,
	}
}

func checkUniqueAreas(areas []schema.AreaRecord) error {
	seen := make(map[string]struct{}, len(areas))
	for _, a := range areas {
		if a.AreaCode == "" {
			return fmt.Errorf("%w: area record without area_code", contract.ErrInvalidInput)
		}
		if _, dup := seen[a.AreaCode]; dup {
			return fmt.Errorf("%w: duplicate area %q", contract.ErrInvalidInput, a.AreaCode)
		}
		seen[a.AreaCode] = struct{}{}
	}
	return nil
}
