package parquet

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/placewise/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructTags(t *testing.T) {
	tests := []struct {
		name    string
		model   any
		columns []string
	}{
		{
			name:    "run",
			model:   new(Run),
			columns: []string{"run_id", "run_uuid", "persona", "start_time", "end_time", "run_duration_ms", "total_areas", "filtered_out", "config_params"},
		},
		{
			name:    "recommendation",
			model:   new(Recommendation),
			columns: []string{"run_id", "area_code", "persona", "rank", "composite_score", "factor_scores", "strengths", "weaknesses", "trade_offs", "recorded_at"},
		},
		{
			name:    "ranked area",
			model:   new(RankedArea),
			columns: []string{"rank", "area_code", "composite_score", "affordability", "investment_quality", "explanation"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := parquet.SchemaOf(tt.model)
			require.NotNil(t, s)
			for _, col := range tt.columns {
				_, ok := s.Lookup(col)
				assert.True(t, ok, "Column %s should exist in schema", col)
			}
		})
	}
}

func readAll[T any](t *testing.T, path string) []T {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	reader := parquet.NewGenericReader[T](file)
	defer reader.Close()

	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	return rows[:n]
}

func TestWriteRunsParquet(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(1500 * time.Millisecond)
	duration := int64(1500)
	total, filtered := 12, 5
	params := `{"persona":"student"}`

	records := []schema.RunRecord{
		{RunID: 1, RunUUID: "a", Persona: "student", StartTime: start, EndTime: &end, RunDurationMs: &duration,
			TotalAreas: &total, FilteredOut: &filtered, ConfigParams: &params},
		{RunID: 2, RunUUID: "b", Persona: "parent", StartTime: start.Add(time.Hour)},
	}
	path := filepath.Join(t.TempDir(), "runs.parquet")
	require.NoError(t, WriteRunsParquet(ConvertRunRecords(records), path))

	got := readAll[Run](t, path)
	require.Len(t, got, 2)

	assert.Equal(t, int64(1), got[0].RunID)
	require.NotNil(t, got[0].EndTime)
	assert.WithinDuration(t, end, *got[0].EndTime, time.Nanosecond)
	require.NotNil(t, got[0].TotalAreas)
	assert.Equal(t, int32(12), *got[0].TotalAreas)
	assert.Equal(t, params, *got[0].ConfigParams)

	// Unfinished runs keep their nulls
	assert.Nil(t, got[1].EndTime)
	assert.Nil(t, got[1].RunDurationMs)
	assert.Nil(t, got[1].FilteredOut)
}

func TestWriteRecommendationsParquet(t *testing.T) {
	recorded := time.Date(2026, 3, 1, 9, 0, 1, 0, time.UTC)
	records := []schema.RecommendationRecord{
		{RunID: 1, AreaCode: "E1", Persona: "student", Rank: 1, CompositeScore: 79.04,
			FactorScores: `{"affordability":85}`, Strengths: "Affordability", RecordedAt: recorded},
	}
	path := filepath.Join(t.TempDir(), "recs.parquet")
	require.NoError(t, WriteRecommendationsParquet(ConvertRecommendationRecords(records), path))

	got := readAll[Recommendation](t, path)
	require.Len(t, got, 1)
	assert.Equal(t, "E1", got[0].AreaCode)
	assert.Equal(t, int32(1), got[0].Rank)
	assert.InDelta(t, 79.04, got[0].CompositeScore, 1e-9)
	assert.WithinDuration(t, recorded, got[0].RecordedAt, time.Nanosecond)
}

func TestConvertRankingResult(t *testing.T) {
	result := &schema.RankingResult{
		Persona: schema.ParentPersona,
		Recommendations: []schema.ScoredCandidate{
			{
				Rank: 1, AreaCode: "SE15", AreaName: "Peckham", CompositeScore: 71.26,
				FactorScores: schema.FactorScores{schema.Safety: 70, schema.Schools: 82},
				Strengths:    []string{"Schools"},
				TradeOffs:    "Top-ranked with best overall balance of factors",
				Explanation:  &schema.Explanation{Text: "Good schools.", Success: true},
			},
			{Rank: 2, AreaCode: "E1", CompositeScore: 60},
		},
	}
	rows := ConvertRankingResult(result)
	require.Len(t, rows, 2)

	assert.Equal(t, "parent", rows[0].Persona)
	require.NotNil(t, rows[0].AreaName)
	assert.Equal(t, "Peckham", *rows[0].AreaName)
	require.NotNil(t, rows[0].Schools)
	assert.Equal(t, 82.0, *rows[0].Schools)
	assert.Nil(t, rows[0].Affordability)
	assert.Equal(t, "Schools", rows[0].Strengths)
	require.NotNil(t, rows[0].Explanation)

	assert.Nil(t, rows[1].AreaName)
	assert.Nil(t, rows[1].Explanation)

	var buf bytes.Buffer
	require.NoError(t, WriteRows(&buf, rows))
	assert.NotZero(t, buf.Len())
}
