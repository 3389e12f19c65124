// Package algo holds the pure scoring and ranking logic.
package algo

import "github.com/huangsam/placewise/schema"

// CommuteZeroMinutes is the duration at which the commute score reaches 0.
const CommuteZeroMinutes = 60.0

// Extract maps an area's raw records to normalized 0-100 factor scores.
// A factor is left out when its sub-record or field is missing; the scorer
// decides what an unknown factor is worth.
func Extract(area schema.AreaRecord) schema.FactorScores {
	scores := make(schema.FactorScores)
	put := func(f schema.Factor, v *float64) {
		if v != nil {
			scores[f] = clamp(*v)
		}
	}

	if p := area.Property; p != nil {
		put(schema.Affordability, p.AffordabilityScore)
		put(schema.InvestmentQuality, p.InvestmentQuality)
		put(schema.DemandIndex, p.DemandIndex)
		put(schema.RiskScore, p.RiskScore)
	}
	if c := area.Commute; c != nil && c.DurationMinutes != nil {
		scores[schema.Commute] = CommuteScore(*c.DurationMinutes)
	}
	if s := area.Safety; s != nil {
		switch {
		case s.SafetyScore != nil:
			scores[schema.Safety] = clamp(*s.SafetyScore)
		case s.TotalCrimes != nil:
			scores[schema.Safety] = SafetyScoreFromCrimeCount(*s.TotalCrimes)
		}
	}
	if s := area.Schools; s != nil {
		put(schema.Schools, s.QualityScore)
	}
	if a := area.Amenities; a != nil {
		put(schema.Amenities, a.DensityScore)
	}
	if i := area.Infrastructure; i != nil {
		put(schema.Infrastructure, i.Score)
	}
	return scores
}

// CommuteScore inverts a travel time: 0 minutes is 100, an hour or more is 0.
func CommuteScore(minutes float64) float64 {
	return clamp(100 - minutes/CommuteZeroMinutes*100)
}

// SafetyScoreFromCrimeCount buckets a monthly crime count into a safety score.
func SafetyScoreFromCrimeCount(total int) float64 {
	switch {
	case total < 30:
		return 90
	case total < 60:
		return 75
	case total < 90:
		return 60
	case total < 120:
		return 45
	default:
		return 30
	}
}

func clamp(v float64) float64 {
	return max(0, min(100, v))
}
