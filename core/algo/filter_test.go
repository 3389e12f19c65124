package algo

import (
	"testing"

	"github.com/huangsam/placewise/schema"
	"github.com/stretchr/testify/assert"
)

func TestConstraintFilter(t *testing.T) {
	area := schema.AreaRecord{
		AreaCode: "SE15",
		Property: &schema.PropertyRecord{AvgPrice: schema.Float(1500)},
		Commute:  &schema.CommuteRecord{DurationMinutes: schema.Float(45)},
		Safety:   &schema.SafetyRecord{SafetyScore: schema.Float(55)},
		Schools:  &schema.SchoolsRecord{QualityScore: schema.Float(62)},
	}

	tests := []struct {
		name   string
		area   schema.AreaRecord
		prefs  schema.UserPreferences
		passes bool
		reason string
	}{
		{
			name:   "no preferences",
			area:   area,
			passes: true,
		},
		{
			name:   "over budget",
			area:   area,
			prefs:  schema.UserPreferences{BudgetMax: schema.Float(1200)},
			reason: "Over budget: £1500 > £1200",
		},
		{
			name:   "commute too long",
			area:   area,
			prefs:  schema.UserPreferences{MaxCommuteMinutes: schema.Float(30)},
			reason: "Commute too long: 45 min > 30 min",
		},
		{
			name:   "unsafe",
			area:   area,
			prefs:  schema.UserPreferences{MinSafetyScore: schema.Float(60)},
			reason: "Safety score too low: 55 < 60",
		},
		{
			name:   "schools below rating",
			area:   area,
			prefs:  schema.UserPreferences{MinSchoolRating: schema.Float(70)},
			reason: "School rating too low: 62 < 70",
		},
		{
			name: "budget wins over the rest",
			area: area,
			prefs: schema.UserPreferences{
				BudgetMax: schema.Float(1000), MaxCommuteMinutes: schema.Float(10),
				MinSafetyScore: schema.Float(90), MinSchoolRating: schema.Float(90),
			},
			reason: "Over budget: £1500 > £1000",
		},
		{
			name: "commute wins over safety",
			area: area,
			prefs: schema.UserPreferences{
				MaxCommuteMinutes: schema.Float(10), MinSafetyScore: schema.Float(90),
			},
			reason: "Commute too long: 45 min > 10 min",
		},
		{
			name:   "budget equal to price passes",
			area:   area,
			prefs:  schema.UserPreferences{BudgetMax: schema.Float(1500)},
			passes: true,
		},
		{
			name: "missing data skips the check",
			area: schema.AreaRecord{AreaCode: "N1", Property: &schema.PropertyRecord{}},
			prefs: schema.UserPreferences{
				BudgetMax: schema.Float(1), MaxCommuteMinutes: schema.Float(1),
				MinSafetyScore: schema.Float(99), MinSchoolRating: schema.Float(99),
			},
			passes: true,
		},
		{
			name:   "crime count is bucketed",
			area:   schema.AreaRecord{AreaCode: "N2", Safety: &schema.SafetyRecord{TotalCrimes: schema.Int(200)}},
			prefs:  schema.UserPreferences{MinSafetyScore: schema.Float(40)},
			reason: "Safety score too low: 30 < 40",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.passes, Passes(tt.area, tt.prefs))
			if !tt.passes {
				assert.Equal(t, tt.reason, FilterReason(tt.area, tt.prefs))
			}
		})
	}
}

func TestFilterReasonFallback(t *testing.T) {
	assert.Equal(t, DefaultFilterReason, FilterReason(schema.AreaRecord{AreaCode: "X"}, schema.UserPreferences{}))
}
