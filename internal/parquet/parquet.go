// Package parquet provides data structures and functions for exporting
// ranking results and run history to Parquet files using
// github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/huangsam/placewise/schema"
	"github.com/parquet-go/parquet-go"
)

// Run represents a single ranking run with metadata.
// This struct maps to the placewise_runs database table.
type Run struct {
	RunID   int64  `parquet:"run_id,snappy"`
	RunUUID string `parquet:"run_uuid,snappy"`
	Persona string `parquet:"persona,snappy"`

	StartTime time.Time  `parquet:"start_time,snappy"`
	EndTime   *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is null for runs that never finished
	RunDurationMs *int64 `parquet:"run_duration_ms,optional,snappy"`
	TotalAreas    *int32 `parquet:"total_areas,optional,snappy"`
	FilteredOut   *int32 `parquet:"filtered_out,optional,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// Recommendation represents one ranked area of a run.
// This struct maps to the placewise_recommendations database table.
type Recommendation struct {
	RunID          int64     `parquet:"run_id,snappy"`
	AreaCode       string    `parquet:"area_code,snappy"`
	Persona        string    `parquet:"persona,snappy"`
	Rank           int32     `parquet:"rank,snappy"`
	CompositeScore float64   `parquet:"composite_score,snappy"`
	FactorScores   string    `parquet:"factor_scores,snappy"`
	Strengths      string    `parquet:"strengths,snappy"`
	Weaknesses     string    `parquet:"weaknesses,snappy"`
	TradeOffs      string    `parquet:"trade_offs,snappy"`
	RecordedAt     time.Time `parquet:"recorded_at,snappy"`
}

// RankedArea is one row of a ranking result written with --output parquet.
// Factor scores are flattened into one column per factor; unweighted
// factors are null.
type RankedArea struct {
	Rank              int32    `parquet:"rank,snappy"`
	AreaCode          string   `parquet:"area_code,snappy"`
	AreaName          *string  `parquet:"area_name,optional,snappy"`
	Persona           string   `parquet:"persona,snappy"`
	CompositeScore    float64  `parquet:"composite_score,snappy"`
	Affordability     *float64 `parquet:"affordability,optional,snappy"`
	Commute           *float64 `parquet:"commute,optional,snappy"`
	Safety            *float64 `parquet:"safety,optional,snappy"`
	Schools           *float64 `parquet:"schools,optional,snappy"`
	Amenities         *float64 `parquet:"amenities,optional,snappy"`
	InvestmentQuality *float64 `parquet:"investment_quality,optional,snappy"`
	DemandIndex       *float64 `parquet:"demand_index,optional,snappy"`
	RiskScore         *float64 `parquet:"risk_score,optional,snappy"`
	Infrastructure    *float64 `parquet:"infrastructure,optional,snappy"`
	Strengths         string   `parquet:"strengths,snappy"`
	Weaknesses        string   `parquet:"weaknesses,snappy"`
	TradeOffs         string   `parquet:"trade_offs,snappy"`
	Explanation       *string  `parquet:"explanation,optional,snappy"`
}

// WriteRows writes rows of any parquet-tagged struct to w.
func WriteRows[T any](w io.Writer, rows []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// writeFile creates outputPath and writes rows into it.
func writeFile[T any](rows []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := WriteRows(file, rows); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// WriteRunsParquet writes a slice of Run structs to a Parquet file.
func WriteRunsParquet(data []Run, outputPath string) error {
	return writeFile(data, outputPath)
}

// WriteRecommendationsParquet writes a slice of Recommendation structs to a Parquet file.
func WriteRecommendationsParquet(data []Recommendation, outputPath string) error {
	return writeFile(data, outputPath)
}

// ConvertRunRecords converts history rows to their Parquet form.
func ConvertRunRecords(records []schema.RunRecord) []Run {
	result := make([]Run, len(records))
	for i, r := range records {
		result[i] = Run{
			RunID:         r.RunID,
			RunUUID:       r.RunUUID,
			Persona:       r.Persona,
			StartTime:     r.StartTime,
			EndTime:       r.EndTime,
			RunDurationMs: r.RunDurationMs,
			TotalAreas:    int32Ptr(r.TotalAreas),
			FilteredOut:   int32Ptr(r.FilteredOut),
			ConfigParams:  r.ConfigParams,
		}
	}
	return result
}

// ConvertRecommendationRecords converts history rows to their Parquet form.
func ConvertRecommendationRecords(records []schema.RecommendationRecord) []Recommendation {
	result := make([]Recommendation, len(records))
	for i, r := range records {
		result[i] = Recommendation{
			RunID:          r.RunID,
			AreaCode:       r.AreaCode,
			Persona:        r.Persona,
			Rank:           int32(r.Rank),
			CompositeScore: r.CompositeScore,
			FactorScores:   r.FactorScores,
			Strengths:      r.Strengths,
			Weaknesses:     r.Weaknesses,
			TradeOffs:      r.TradeOffs,
			RecordedAt:     r.RecordedAt,
		}
	}
	return result
}

// ConvertRankingResult flattens the recommendations of a ranking. Scores keep
// full precision.
func ConvertRankingResult(result *schema.RankingResult) []RankedArea {
	rows := make([]RankedArea, len(result.Recommendations))
	for i, c := range result.Recommendations {
		row := RankedArea{
			Rank:           int32(c.Rank),
			AreaCode:       c.AreaCode,
			Persona:        string(result.Persona),
			CompositeScore: c.CompositeScore,
			Strengths:      strings.Join(c.Strengths, ", "),
			Weaknesses:     strings.Join(c.Weaknesses, ", "),
			TradeOffs:      c.TradeOffs,
		}
		if c.AreaName != "" {
			row.AreaName = &c.AreaName
		}
		if c.Explanation != nil && c.Explanation.Success {
			text := c.Explanation.Text
			row.Explanation = &text
		}
		columns := map[schema.Factor]**float64{
			schema.Affordability:     &row.Affordability,
			schema.Commute:           &row.Commute,
			schema.Safety:            &row.Safety,
			schema.Schools:           &row.Schools,
			schema.Amenities:         &row.Amenities,
			schema.InvestmentQuality: &row.InvestmentQuality,
			schema.DemandIndex:       &row.DemandIndex,
			schema.RiskScore:         &row.RiskScore,
			schema.Infrastructure:    &row.Infrastructure,
		}
		for factor, score := range c.FactorScores {
			if col, ok := columns[factor]; ok {
				*col = schema.Float(score)
			}
		}
		rows[i] = row
	}
	return rows
}

func int32Ptr(v *int) *int32 {
	if v == nil {
		return nil
	}
	n := int32(*v)
	return &n
}
