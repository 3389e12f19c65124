package algo

import (
	"testing"

	"github.com/huangsam/placewise/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(code string, composite float64, scores schema.FactorScores) schema.ScoredCandidate {
	return schema.ScoredCandidate{AreaCode: code, CompositeScore: composite, FactorScores: scores}
}

func TestRankCandidates(t *testing.T) {
	t.Run("descending with stable ties", func(t *testing.T) {
		in := []schema.ScoredCandidate{
			candidate("A", 60, nil),
			candidate("B", 75.04, nil),
			candidate("C", 60, nil),
			candidate("D", 75.01, nil),
		}
		got := RankCandidates(in, 0)
		require.Len(t, got, 4)

		codes := []string{got[0].AreaCode, got[1].AreaCode, got[2].AreaCode, got[3].AreaCode}
		// B and D both display as 75.0 but sort on the unrounded value.
		assert.Equal(t, []string{"B", "D", "A", "C"}, codes)
		for i, c := range got {
			assert.Equal(t, i+1, c.Rank)
		}
	})

	t.Run("limit truncates after sorting", func(t *testing.T) {
		in := []schema.ScoredCandidate{candidate("A", 10, nil), candidate("B", 30, nil), candidate("C", 20, nil)}
		got := RankCandidates(in, 2)
		require.Len(t, got, 2)
		assert.Equal(t, "B", got[0].AreaCode)
		assert.Equal(t, "C", got[1].AreaCode)
	})

	t.Run("rank 1 never compares to itself", func(t *testing.T) {
		got := RankCandidates([]schema.ScoredCandidate{candidate("A", 10, schema.FactorScores{schema.Safety: 10})}, 5)
		assert.Equal(t, TopTradeOff, got[0].TradeOffs)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, RankCandidates(nil, 10))
	})
}

func TestRankingIsMonotonic(t *testing.T) {
	in := []schema.ScoredCandidate{
		candidate("A", 50, nil), candidate("B", 80, nil), candidate("C", 50, nil),
		candidate("D", 10, nil), candidate("E", 99.9, nil), candidate("F", 80, nil),
	}
	order := map[string]int{"A": 0, "B": 1, "C": 2, "D": 3, "E": 4, "F": 5}
	got := RankCandidates(in, 0)
	for i := 0; i < len(got); i++ {
		for j := i + 1; j < len(got); j++ {
			assert.GreaterOrEqual(t, got[i].CompositeScore, got[j].CompositeScore)
			if got[i].CompositeScore == got[j].CompositeScore {
				assert.Less(t, order[got[i].AreaCode], order[got[j].AreaCode], "ties keep input order")
			}
		}
	}
}

func TestTradeOff(t *testing.T) {
	top := candidate("TOP", 80, schema.FactorScores{
		schema.Affordability: 70, schema.Commute: 80, schema.Safety: 60, schema.Amenities: 90,
	})

	tests := []struct {
		name   string
		scores schema.FactorScores
		want   string
	}{
		{
			name:   "better and lower",
			scores: schema.FactorScores{schema.Affordability: 90, schema.Commute: 50, schema.Safety: 60, schema.Amenities: 90},
			want:   "Better affordability but lower commute",
		},
		{
			name:   "only lower",
			scores: schema.FactorScores{schema.Affordability: 60, schema.Commute: 70, schema.Safety: 50, schema.Amenities: 90},
			want:   "Lower affordability, commute than top choice",
		},
		{
			name:   "only better is similar",
			scores: schema.FactorScores{schema.Affordability: 80, schema.Commute: 80, schema.Safety: 60, schema.Amenities: 90},
			want:   SimilarTradeOff,
		},
		{
			name:   "within threshold",
			scores: schema.FactorScores{schema.Affordability: 75, schema.Commute: 75, schema.Safety: 65, schema.Amenities: 85},
			want:   SimilarTradeOff,
		},
		{
			name: "at most two per direction",
			scores: schema.FactorScores{
				schema.Affordability: 90, schema.Commute: 95, schema.Safety: 80, schema.Amenities: 10,
				schema.InvestmentQuality: 10, schema.DemandIndex: 10,
			},
			want: "Better affordability, commute but lower amenities, investment quality",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TradeOff(candidate("X", 70, tt.scores), top))
		})
	}
}
