package algo

import (
	"fmt"
	"strconv"

	"github.com/huangsam/placewise/schema"
)

// MaxFilteredSamples caps how many filter reasons a ranking result keeps.
const MaxFilteredSamples = 5

// DefaultFilterReason is reported when no specific constraint can be named.
const DefaultFilterReason = "Did not meet constraints"

// constraint reports a reason when the area violates it. A constraint whose
// preference or data is missing never fires.
type constraint func(area schema.AreaRecord, prefs schema.UserPreferences) (string, bool)

// constraints run in fixed precedence: budget, commute, safety, schools.
var constraints = []constraint{
	func(area schema.AreaRecord, prefs schema.UserPreferences) (string, bool) {
		if prefs.BudgetMax == nil || area.Property == nil || area.Property.AvgPrice == nil {
			return "", false
		}
		price := *area.Property.AvgPrice
		if price > *prefs.BudgetMax {
			return fmt.Sprintf("Over budget: £%s > £%s", num(price), num(*prefs.BudgetMax)), true
		}
		return "", false
	},
	func(area schema.AreaRecord, prefs schema.UserPreferences) (string, bool) {
		if prefs.MaxCommuteMinutes == nil || area.Commute == nil || area.Commute.DurationMinutes == nil {
			return "", false
		}
		d := *area.Commute.DurationMinutes
		if d > *prefs.MaxCommuteMinutes {
			return fmt.Sprintf("Commute too long: %s min > %s min", num(d), num(*prefs.MaxCommuteMinutes)), true
		}
		return "", false
	},
	func(area schema.AreaRecord, prefs schema.UserPreferences) (string, bool) {
		if prefs.MinSafetyScore == nil || area.Safety == nil {
			return "", false
		}
		var safety float64
		switch {
		case area.Safety.SafetyScore != nil:
			safety = *area.Safety.SafetyScore
		case area.Safety.TotalCrimes != nil:
			safety = SafetyScoreFromCrimeCount(*area.Safety.TotalCrimes)
		default:
			return "", false
		}
		if safety < *prefs.MinSafetyScore {
			return fmt.Sprintf("Safety score too low: %s < %s", num(safety), num(*prefs.MinSafetyScore)), true
		}
		return "", false
	},
	func(area schema.AreaRecord, prefs schema.UserPreferences) (string, bool) {
		if prefs.MinSchoolRating == nil || area.Schools == nil || area.Schools.QualityScore == nil {
			return "", false
		}
		rating := *area.Schools.QualityScore
		if rating < *prefs.MinSchoolRating {
			return fmt.Sprintf("School rating too low: %s < %s", num(rating), num(*prefs.MinSchoolRating)), true
		}
		return "", false
	},
}

// Passes reports whether the area satisfies every applicable hard constraint.
func Passes(area schema.AreaRecord, prefs schema.UserPreferences) bool {
	_, failed := firstViolation(area, prefs)
	return !failed
}

// FilterReason names the first violated constraint in precedence order.
func FilterReason(area schema.AreaRecord, prefs schema.UserPreferences) string {
	if reason, failed := firstViolation(area, prefs); failed {
		return reason
	}
	return DefaultFilterReason
}

func firstViolation(area schema.AreaRecord, prefs schema.UserPreferences) (string, bool) {
	for _, c := range constraints {
		if reason, failed := c(area, prefs); failed {
			return reason, true
		}
	}
	return "", false
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
