package schema

import (
	"math"
	"time"

	"github.com/goccy/go-json"
)

// UserPreferences holds optional hard constraints and importance ratings.
// Nil pointers mean the constraint is not set.
type UserPreferences struct {
	BudgetMax         *float64           `json:"budget_max,omitempty" validate:"omitempty,gt=0"`
	MaxCommuteMinutes *float64           `json:"max_commute_minutes,omitempty" validate:"omitempty,gt=0"`
	MinSafetyScore    *float64           `json:"min_safety_score,omitempty" validate:"omitempty,gte=0,lte=100"`
	MinSchoolRating   *float64           `json:"min_school_rating,omitempty" validate:"omitempty,gte=0,lte=100"`
	ImportanceWeights map[Factor]float64 `json:"importance_weights,omitempty" validate:"omitempty,dive,keys,oneof=affordability commute safety schools amenities investment_quality demand_index risk_score infrastructure,endkeys,gte=0,lte=10"`
}

// RankingRequest is the engine input. Areas keeps the caller's order, which
// decides ties between equal composite scores.
type RankingRequest struct {
	Persona     Persona         `json:"persona"`
	Preferences UserPreferences `json:"user_preferences"`
	Areas       []AreaRecord    `json:"areas"`
	Limit       int             `json:"limit,omitempty"`
}

// Explanation is the natural-language summary attached to a recommendation.
type Explanation struct {
	Text     string `json:"text,omitempty"`
	VideoURL string `json:"video_url,omitempty"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// ScoredCandidate is one area after scoring. Numeric fields are unrounded;
// rounding only happens when the candidate is rendered.
type ScoredCandidate struct {
	AreaCode         string       `json:"area_code"`
	AreaName         string       `json:"area_name,omitempty"`
	Rank             int          `json:"rank"`
	CompositeScore   float64      `json:"composite_score"`
	FactorScores     FactorScores `json:"factor_scores"`
	Contributions    FactorScores `json:"factor_contributions"`
	DefaultedFactors []Factor     `json:"defaulted_factors,omitempty"`
	Strengths        []string     `json:"strengths"`
	Weaknesses       []string     `json:"weaknesses"`
	TradeOffs        string       `json:"trade_offs"`
	Explanation      *Explanation `json:"explanation,omitempty"`
}

// MarshalJSON applies display rounding: composite and contributions to one
// decimal, factor scores to the nearest integer.
func (c ScoredCandidate) MarshalJSON() ([]byte, error) {
	type alias ScoredCandidate
	out := alias(c)
	out.CompositeScore = RoundTo(c.CompositeScore, 1)
	out.FactorScores = roundScores(c.FactorScores, 0)
	out.Contributions = roundScores(c.Contributions, 1)
	return json.Marshal(out)
}

// FilteredArea records why an area was removed before scoring.
type FilteredArea struct {
	AreaCode string `json:"area_code"`
	Reason   string `json:"reason"`
}

// RankingResult is the engine output.
type RankingResult struct {
	RunID              string            `json:"run_id,omitempty"`
	Persona            Persona           `json:"persona"`
	Preferences        UserPreferences   `json:"user_preferences"`
	AdjustedWeights    WeightMap         `json:"adjusted_weights"`
	Recommendations    []ScoredCandidate `json:"recommendations"`
	ScoredCount        int               `json:"scored_count"`
	FilteredOutCount   int               `json:"filtered_out_count"`
	FilteredOutReasons []FilteredArea    `json:"filtered_out_reasons"`
	GeneratedAt        time.Time         `json:"timestamp"`
}

// RoundTo rounds v to the given number of decimal places.
func RoundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func roundScores(in FactorScores, places int) FactorScores {
	if in == nil {
		return nil
	}
	out := make(FactorScores, len(in))
	for k, v := range in {
		out[k] = RoundTo(v, places)
	}
	return out
}
